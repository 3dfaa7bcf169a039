package models

import (
	"time"
)

// Role identifies who authored a turn
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// NormalizeRole maps any stored role onto user/model. The backend records
// assistant replies under several names.
func NormalizeRole(role string) Role {
	if role == string(RoleUser) {
		return RoleUser
	}
	return RoleModel
}

// ConversationTurn is one message in the transcript
type ConversationTurn struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// MessagePart is a text fragment of a stored message
type MessagePart struct {
	Text string `json:"text"`
}

// StoredMessage is a message as returned by /chat/info and /chat/allChats
type StoredMessage struct {
	Role  string          `json:"role"`
	Parts []MessagePart   `json:"parts"`
	Files []GeneratedFile `json:"files,omitempty"`
}

// Text returns the first part's text, or "" when there are no parts
func (m StoredMessage) Text() string {
	if len(m.Parts) == 0 {
		return ""
	}
	return m.Parts[0].Text
}

// Chat is a stored conversation
type Chat struct {
	ID        string          `json:"_id"`
	Title     string          `json:"title,omitempty"`
	Messages  []StoredMessage `json:"messages"`
	CreatedAt time.Time       `json:"createdAt,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt,omitempty"`
}

// ChatInfoResponse is the body of GET /chat/info/{id}
type ChatInfoResponse struct {
	Success bool   `json:"success"`
	Chat    *Chat  `json:"chat"`
	Error   string `json:"error,omitempty"`
}

// ChatListResponse is the body of GET /chat/allChats
type ChatListResponse struct {
	Success bool   `json:"success"`
	Chats   []Chat `json:"chats"`
	Error   string `json:"error,omitempty"`
}

// MessageRequest is the body sent to every prompt-style endpoint
type MessageRequest struct {
	Message string `json:"message"`
}

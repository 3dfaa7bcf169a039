package tui

import (
	"time"

	"github.com/vanpelt/sitecraft/internal/codegen"
	"github.com/vanpelt/sitecraft/internal/models"
	"github.com/vanpelt/sitecraft/internal/preview"
)

// Core message types
type previewTickMsg time.Time
type deployTickMsg time.Time
type quitMsg struct{}

// Conversation messages, sent from engine hooks
type transcriptMsg []models.ConversationTurn
type chatIDMsg string
type draftMsg string
type loadingMsg bool
type newChatMsg struct{}
type conversationLoadedMsg struct {
	chatID string
	ok     bool
}

// Generation and preview messages
type generationMsg codegen.Event
type previewStateMsg preview.BuildState
type filesChangedMsg struct{}

// Chat list messages
type chatsMsg struct {
	chats []models.Chat
	err   error
}
type chatDeletedMsg struct {
	chatID string
	err    error
}

// Export and deploy results
type exportDoneMsg struct {
	path string
	err  error
}
type deployDoneMsg struct {
	url string
	err error
}

// Alerts clear themselves; seq ignores a clear meant for an older alert
type alertMsg string
type clearAlertMsg struct {
	seq int
}

package chats

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/vanpelt/sitecraft/internal/cache"
	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/models"
)

const (
	listKey       = "chats:list"
	maxTitleRunes = 40
	untitled      = "New chat"
)

// Backend lists and deletes stored conversations
type Backend interface {
	AllChats(ctx context.Context) (*models.ChatListResponse, error)
	DeleteChat(ctx context.Context, chatID string) error
}

// Service is the conversation list shown in the sidebar and by `chats list`
type Service struct {
	backend Backend
	cache   cache.Cache[[]models.Chat]
}

// NewService wraps backend with a list cache
func NewService(backend Backend, c cache.Cache[[]models.Chat]) *Service {
	return &Service{backend: backend, cache: c}
}

// List returns the user's conversations, served from cache while fresh
func (s *Service) List(ctx context.Context) ([]models.Chat, error) {
	if chats, ok := s.cache.Get(listKey); ok {
		return chats, nil
	}
	return s.Refresh(ctx)
}

// Refresh reloads the list from the backend
func (s *Service) Refresh(ctx context.Context) ([]models.Chat, error) {
	resp, err := s.backend.AllChats(ctx)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		msg := resp.Error
		if msg == "" {
			msg = "failed to load chats"
		}
		return nil, errors.New(msg)
	}

	chats := resp.Chats
	if chats == nil {
		chats = []models.Chat{}
	}
	s.cache.Set(listKey, chats)
	logger.Debugf("📚 Loaded %d chats", len(chats))
	return chats, nil
}

// Delete removes a conversation and drops the cached list
func (s *Service) Delete(ctx context.Context, chatID string) error {
	if strings.TrimSpace(chatID) == "" {
		return errors.New("chat id is required")
	}
	if err := s.backend.DeleteChat(ctx, chatID); err != nil {
		return err
	}
	s.Invalidate()
	logger.Component("chats").Info().Str("chat_id", chatID).Msg("🗑️  Chat deleted")
	return nil
}

// Invalidate forgets the cached list, e.g. after a new conversation was created
func (s *Service) Invalidate() {
	s.cache.Clear("chats:")
}

// Search filters chats whose first message contains query, ignoring case.
// An empty query returns every chat.
func Search(chats []models.Chat, query string) []models.Chat {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return chats
	}

	var out []models.Chat
	for _, c := range chats {
		if strings.Contains(strings.ToLower(firstMessage(c)), query) {
			out = append(out, c)
		}
	}
	return out
}

// Title is the label shown for a conversation: its stored title, or the first
// message cut to 40 characters.
func Title(c models.Chat) string {
	if t := strings.TrimSpace(c.Title); t != "" {
		return t
	}
	text := strings.Join(strings.Fields(firstMessage(c)), " ")
	if text == "" {
		return untitled
	}
	if utf8.RuneCountInString(text) <= maxTitleRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxTitleRunes]) + "…"
}

func firstMessage(c models.Chat) string {
	if len(c.Messages) == 0 {
		return ""
	}
	return c.Messages[0].Text()
}

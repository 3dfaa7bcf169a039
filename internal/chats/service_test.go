package chats

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanpelt/sitecraft/internal/cache"
	"github.com/vanpelt/sitecraft/internal/models"
)

type fakeBackend struct {
	listCalls int
	deleted   []string
	chats     []models.Chat
	listErr   error
	deleteErr error
}

func (f *fakeBackend) AllChats(ctx context.Context) (*models.ChatListResponse, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &models.ChatListResponse{Success: true, Chats: f.chats}, nil
}

func (f *fakeBackend) DeleteChat(ctx context.Context, chatID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, chatID)
	return nil
}

func chat(id, first string) models.Chat {
	c := models.Chat{ID: id}
	if first != "" {
		c.Messages = []models.StoredMessage{{Role: "user", Parts: []models.MessagePart{{Text: first}}}}
	}
	return c
}

func newService(t *testing.T, backend *fakeBackend) (*Service, *time.Time) {
	t.Helper()
	now := time.Unix(1700000000, 0)
	c := cache.NewLRU[[]models.Chat](cache.Config{MaxSize: 4, DefaultTTL: 30 * time.Second},
		cache.WithClock(func() time.Time { return now }))
	t.Cleanup(func() { _ = c.Close() })
	return NewService(backend, c), &now
}

func TestListIsCached(t *testing.T) {
	backend := &fakeBackend{chats: []models.Chat{chat("1", "bakery site")}}
	svc, now := newService(t, backend)
	ctx := context.Background()

	got, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.listCalls)

	*now = now.Add(31 * time.Second)
	_, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.listCalls)
}

func TestListError(t *testing.T) {
	backend := &fakeBackend{listErr: errors.New("Not authenticated")}
	svc, _ := newService(t, backend)

	_, err := svc.List(context.Background())
	assert.EqualError(t, err, "Not authenticated")
}

func TestDeleteInvalidatesCache(t *testing.T) {
	backend := &fakeBackend{chats: []models.Chat{chat("1", "a"), chat("2", "b")}}
	svc, _ := newService(t, backend)
	ctx := context.Background()

	_, err := svc.List(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "2"))
	assert.Equal(t, []string{"2"}, backend.deleted)

	_, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.listCalls)

	assert.Error(t, svc.Delete(ctx, " "))
}

func TestDeleteFailureKeepsCache(t *testing.T) {
	backend := &fakeBackend{chats: []models.Chat{chat("1", "a")}, deleteErr: errors.New("Something went wrong")}
	svc, _ := newService(t, backend)
	ctx := context.Background()

	_, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Error(t, svc.Delete(ctx, "1"))

	_, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.listCalls)
}

func TestSearch(t *testing.T) {
	chats := []models.Chat{
		chat("1", "Portfolio for a Photographer"),
		chat("2", "coffee shop landing page"),
		chat("3", ""),
	}

	assert.Len(t, Search(chats, ""), 3)
	assert.Len(t, Search(chats, "   "), 3)

	got := Search(chats, "PHOTO")
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	assert.Empty(t, Search(chats, "bakery"))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "New chat", Title(chat("1", "")))
	assert.Equal(t, "coffee shop", Title(chat("1", "  coffee\n shop ")))
	assert.Equal(t, "Named", Title(models.Chat{ID: "1", Title: "Named"}))

	long := strings.Repeat("é", 50)
	title := Title(chat("1", long))
	assert.Equal(t, strings.Repeat("é", 40)+"…", title)
}

package chat

import (
	"sync"

	"github.com/google/uuid"
	"github.com/vanpelt/sitecraft/internal/models"
)

// Transcript is the ordered list of turns for one conversation. Only the last
// turn is ever mutated in place, and only while a reply streams in.
type Transcript struct {
	mu       sync.RWMutex
	turns    []models.ConversationTurn
	chatID   string
	onChange func([]models.ConversationTurn)
}

// NewTranscript creates an empty transcript for chatID ("" for a new chat)
func NewTranscript(chatID string) *Transcript {
	return &Transcript{chatID: chatID}
}

// OnChange registers a callback that receives a snapshot after each mutation
func (t *Transcript) OnChange(fn func([]models.ConversationTurn)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Turns returns a copy of the current turns
func (t *Transcript) Turns() []models.ConversationTurn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

// Len returns the number of turns
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// ChatID returns the conversation id, "" until the backend assigns one
func (t *Transcript) ChatID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.chatID
}

// SetChatID records the conversation id
func (t *Transcript) SetChatID(id string) {
	t.mu.Lock()
	t.chatID = id
	t.mu.Unlock()
}

// AppendExchange adds the user's turn and the empty model placeholder the
// reply will stream into, as a single mutation.
func (t *Transcript) AppendExchange(userText string) {
	t.mutate(func() {
		t.turns = append(t.turns,
			models.ConversationTurn{ID: uuid.NewString(), Role: models.RoleUser, Content: userText},
			models.ConversationTurn{ID: uuid.NewString(), Role: models.RoleModel},
		)
	})
}

// AppendToLast appends streamed text to the trailing model turn. It is a
// no-op if the last turn is not a model turn.
func (t *Transcript) AppendToLast(text string) {
	if text == "" {
		return
	}
	t.mutate(func() {
		n := len(t.turns)
		if n == 0 || t.turns[n-1].Role != models.RoleModel {
			return
		}
		t.turns[n-1].Content += text
	})
}

// ReplaceLast swaps the trailing turn, used to turn a failed reply into an
// error message.
func (t *Transcript) ReplaceLast(role models.Role, content string) {
	t.mutate(func() {
		turn := models.ConversationTurn{ID: uuid.NewString(), Role: role, Content: content}
		if n := len(t.turns); n > 0 {
			t.turns[n-1] = turn
			return
		}
		t.turns = append(t.turns, turn)
	})
}

// Replace sets the whole transcript, used when loading history
func (t *Transcript) Replace(turns []models.ConversationTurn) {
	t.mutate(func() {
		t.turns = append([]models.ConversationTurn(nil), turns...)
	})
}

// Reset clears turns and chat id
func (t *Transcript) Reset() {
	t.mutate(func() {
		t.turns = nil
		t.chatID = ""
	})
}

func (t *Transcript) mutate(fn func()) {
	t.mu.Lock()
	fn()
	snapshot := t.snapshotLocked()
	onChange := t.onChange
	t.mu.Unlock()

	if onChange != nil {
		onChange(snapshot)
	}
}

func (t *Transcript) snapshotLocked() []models.ConversationTurn {
	out := make([]models.ConversationTurn, len(t.turns))
	copy(out, t.turns)
	return out
}

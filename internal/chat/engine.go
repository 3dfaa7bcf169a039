package chat

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vanpelt/sitecraft/internal/api"
	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/models"
)

const (
	errorTurnPrefix   = "❌ Error: "
	loadFailedMessage = "⚠️ Failed to load this chat."
)

// Backend is the subset of the API client the engine needs
type Backend interface {
	Explain(ctx context.Context, chatID, message string) (*api.StreamResponse, error)
	EnhancePrompt(ctx context.Context, message string) (*api.StreamResponse, error)
	ChatInfo(ctx context.Context, chatID string) (*models.ChatInfoResponse, error)
}

// Hooks lets the owner react to engine events. Every hook is optional and is
// called on the goroutine running the operation.
type Hooks struct {
	// OnTranscript receives a snapshot after every transcript change
	OnTranscript func(turns []models.ConversationTurn)
	// OnChatID fires once when the backend assigns a new conversation id
	OnChatID func(chatID string)
	// OnPromptComplete fires after a reply finished streaming successfully
	OnPromptComplete func(prompt, chatID string)
	// OnDraft fires whenever the input draft is rewritten by enhancement
	OnDraft func(draft string)
	// OnLoading fires when a submission starts and ends
	OnLoading func(loading bool)
}

// Engine drives one conversation: submitting prompts, streaming replies into
// the transcript, enhancing drafts and loading history.
type Engine struct {
	backend       Backend
	transcript    *Transcript
	files         *filemap.Store
	hooks         Hooks
	flushInterval time.Duration

	loading   atomic.Bool
	enhancing atomic.Bool

	draftMu sync.Mutex
	draft   string

	// navMu guards the conversation epoch. Leaving a conversation bumps the
	// epoch and cancels navCtx, which every in-flight operation derives from.
	navMu     sync.Mutex
	epoch     uint64
	navCtx    context.Context
	navCancel context.CancelFunc
}

// NewEngine creates an engine for a new conversation
func NewEngine(backend Backend, files *filemap.Store, hooks Hooks) *Engine {
	e := &Engine{
		backend:       backend,
		transcript:    NewTranscript(""),
		files:         files,
		hooks:         hooks,
		flushInterval: DefaultFlushInterval,
	}
	e.navCtx, e.navCancel = context.WithCancel(context.Background())
	e.transcript.OnChange(func(turns []models.ConversationTurn) {
		if e.hooks.OnTranscript != nil {
			e.hooks.OnTranscript(turns)
		}
	})
	return e
}

// SetFlushInterval overrides how often streamed text reaches the transcript
func (e *Engine) SetFlushInterval(d time.Duration) {
	e.flushInterval = d
}

// Transcript returns the conversation transcript
func (e *Engine) Transcript() *Transcript {
	return e.transcript
}

// Files returns the FileMap store fed by this conversation
func (e *Engine) Files() *filemap.Store {
	return e.files
}

// ChatID returns the current conversation id
func (e *Engine) ChatID() string {
	return e.transcript.ChatID()
}

// Loading reports whether a reply is streaming
func (e *Engine) Loading() bool {
	return e.loading.Load()
}

// Enhancing reports whether a draft enhancement is in flight
func (e *Engine) Enhancing() bool {
	return e.enhancing.Load()
}

// Draft returns the current input draft
func (e *Engine) Draft() string {
	e.draftMu.Lock()
	defer e.draftMu.Unlock()
	return e.draft
}

// SetDraft replaces the input draft
func (e *Engine) SetDraft(text string) {
	e.draftMu.Lock()
	e.draft = text
	e.draftMu.Unlock()
	if e.hooks.OnDraft != nil {
		e.hooks.OnDraft(text)
	}
}

// enter binds ctx to the current conversation. The returned context is
// cancelled when the conversation is left; release must be called when the
// operation ends.
func (e *Engine) enter(ctx context.Context) (context.Context, uint64, func()) {
	e.navMu.Lock()
	epoch, navCtx := e.epoch, e.navCtx
	e.navMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(navCtx, cancel)
	return ctx, epoch, func() {
		stop()
		cancel()
	}
}

// current runs fn only while the conversation of epoch is still open. Leaving
// the conversation waits for a running fn, so nothing is applied afterwards.
func (e *Engine) current(epoch uint64, fn func()) bool {
	e.navMu.Lock()
	defer e.navMu.Unlock()
	if e.epoch != epoch {
		return false
	}
	fn()
	return true
}

// Leave aborts every in-flight reply, enhancement and load of the current
// conversation. Their results are discarded.
func (e *Engine) Leave() {
	e.navMu.Lock()
	defer e.navMu.Unlock()
	e.epoch++
	e.navCancel()
	e.navCtx, e.navCancel = context.WithCancel(context.Background())
}

// SubmitPrompt sends text as the next user turn and streams the reply into the
// transcript. It returns false without doing anything if text is blank or a
// reply is already streaming. Failures become an error turn; they are never
// returned. Cancelling ctx stops the stream and keeps what was already shown.
func (e *Engine) SubmitPrompt(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if !e.loading.CompareAndSwap(false, true) {
		logger.Debugf("submit ignored, reply already streaming")
		return false
	}
	e.notifyLoading(true)
	defer func() {
		e.loading.Store(false)
		e.notifyLoading(false)
	}()

	ctx, epoch, release := e.enter(ctx)
	defer release()

	var chatID string
	if !e.current(epoch, func() {
		e.transcript.AppendExchange(text)
		chatID = e.transcript.ChatID()
	}) {
		return true
	}
	log := logger.Component("chat")
	log.Info().Str("chat_id", chatID).Msg("💬 Submitting prompt")

	resp, err := e.backend.Explain(ctx, chatID, text)
	if err != nil {
		e.failReply(ctx, epoch, err)
		return true
	}
	defer resp.Close()

	err = ReadStream(ctx, resp.Body, e.flushInterval, func(text string) {
		e.current(epoch, func() { e.transcript.AppendToLast(text) })
	})
	if err != nil {
		e.failReply(ctx, epoch, err)
		return true
	}

	live := e.current(epoch, func() {
		effectiveID := chatID
		if newID := resp.ChatID(); newID != "" {
			effectiveID = newID
			if newID != chatID {
				e.transcript.SetChatID(newID)
				log.Info().Str("chat_id", newID).Msg("🆕 Conversation created")
				if e.hooks.OnChatID != nil {
					e.hooks.OnChatID(newID)
				}
			}
		}
		if e.hooks.OnPromptComplete != nil {
			e.hooks.OnPromptComplete(text, effectiveID)
		}
	})
	if !live {
		log.Debug().Str("chat_id", chatID).Msg("reply finished after the conversation was left")
	}
	return true
}

func (e *Engine) notifyLoading(loading bool) {
	if e.hooks.OnLoading != nil {
		e.hooks.OnLoading(loading)
	}
}

// failReply turns the trailing model turn into an error message, unless the
// caller cancelled, in which case partial content stays as it is.
func (e *Engine) failReply(ctx context.Context, epoch uint64, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		logger.Debugf("reply stream cancelled: %v", err)
		return
	}
	logger.Component("chat").Error().Err(err).Msg("💥 Chat error")
	e.current(epoch, func() {
		e.transcript.ReplaceLast(models.RoleModel, errorTurnPrefix+err.Error())
	})
}

var (
	leadingFence  = regexp.MustCompile("^```(.*?)\n")
	trailingFence = regexp.MustCompile("```$")
)

// cleanEnhanced strips a markdown code fence the model sometimes wraps the
// enhanced prompt in.
func cleanEnhanced(text string) string {
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// EnhancePrompt asks the backend to rewrite draft and streams the result into
// the input draft. On failure the original draft is restored. Returns false
// if draft is blank or an enhancement is already running.
func (e *Engine) EnhancePrompt(ctx context.Context, draft string) bool {
	if strings.TrimSpace(draft) == "" {
		return false
	}
	if !e.enhancing.CompareAndSwap(false, true) {
		return false
	}
	defer e.enhancing.Store(false)

	ctx, epoch, release := e.enter(ctx)
	defer release()

	original := draft
	restore := func(err error) {
		logger.Warnf("⚠️  Enhance error: %v", err)
		e.current(epoch, func() { e.SetDraft(original) })
	}

	resp, err := e.backend.EnhancePrompt(ctx, draft)
	if err != nil {
		restore(err)
		return true
	}
	defer resp.Close()

	var acc strings.Builder
	err = ReadStream(ctx, resp.Body, e.flushInterval, func(text string) {
		acc.WriteString(text)
		e.current(epoch, func() { e.SetDraft(cleanEnhanced(acc.String())) })
	})
	if err != nil {
		restore(err)
	}
	return true
}

// LoadConversation replaces the transcript with the stored history of chatID
// and seeds the FileMap from the newest model message that carried files. An
// empty chatID starts a fresh conversation. Failures leave a single error
// turn; the return value reports success.
//
// Loading leaves the previous conversation first, so its in-flight reply can
// no longer touch the transcript. A newer load or new chat supersedes this
// one, which then reports false without changing anything.
func (e *Engine) LoadConversation(ctx context.Context, chatID string) bool {
	e.Leave()
	ctx, epoch, release := e.enter(ctx)
	defer release()

	if chatID == "" {
		return e.current(epoch, e.transcript.Reset)
	}

	if !e.current(epoch, func() { e.transcript.Replace(nil) }) {
		return false
	}

	resp, err := e.backend.ChatInfo(ctx, chatID)
	if err == nil && (resp == nil || !resp.Success || resp.Chat == nil) {
		err = errors.New("chat not found")
	}
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		logger.Component("chat").Error().Err(err).Str("chat_id", chatID).Msg("Failed to load chat")
		e.current(epoch, func() {
			e.transcript.Replace([]models.ConversationTurn{{Role: models.RoleModel, Content: loadFailedMessage}})
		})
		return false
	}

	turns := make([]models.ConversationTurn, 0, len(resp.Chat.Messages))
	for _, m := range resp.Chat.Messages {
		turns = append(turns, models.ConversationTurn{
			Role:    models.NormalizeRole(m.Role),
			Content: m.Text(),
		})
	}

	return e.current(epoch, func() {
		// A conversation without generated files starts from the bare scaffold
		e.files.Seed(filemap.FromGenerated(lastModelFiles(resp.Chat.Messages)))
		e.transcript.SetChatID(chatID)
		e.transcript.Replace(turns)
	})
}

func lastModelFiles(messages []models.StoredMessage) []models.GeneratedFile {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if models.NormalizeRole(m.Role) == models.RoleModel && len(m.Files) > 0 {
			return m.Files
		}
	}
	return nil
}

// NewChat leaves the current conversation, clears the transcript and drops
// all generated files
func (e *Engine) NewChat() {
	e.Leave()
	e.transcript.Reset()
	e.files.Reset()
	e.SetDraft("")
}

package tui

import (
	"context"
	"errors"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vanpelt/sitecraft/internal/chat"
	"github.com/vanpelt/sitecraft/internal/chats"
	"github.com/vanpelt/sitecraft/internal/codegen"
	"github.com/vanpelt/sitecraft/internal/export"
	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/models"
	"github.com/vanpelt/sitecraft/internal/preview"
	"github.com/vanpelt/sitecraft/internal/recovery"
)

// Options wires the TUI to the rest of the client. Files is required.
type Options struct {
	ChatBackend    chat.Backend
	CodegenBackend codegen.Backend
	Codegen        codegen.Config

	Files    *filemap.Store
	Bridge   *preview.Bridge
	Chats    *chats.Service
	Deployer *export.Deployer
	Opener   export.Opener
	User     *models.User

	// OpenWorkspace mirrors the conversation on screen to disk; nil
	// disables mirroring
	OpenWorkspace WorkspaceOpener

	ChatID     string
	PreviewURL string
	ExportPath string
}

// App runs the interactive client
type App struct {
	opts       Options
	program    atomic.Pointer[tea.Program]
	workspaces *workspaceSlot
}

// NewApp creates the TUI
func NewApp(opts Options) *App {
	return &App{opts: opts, workspaces: newWorkspaceSlot(opts.OpenWorkspace)}
}

// send delivers msg to the running program. Messages sent before the
// program exists are dropped.
func (a *App) send(msg tea.Msg) {
	if p := a.program.Load(); p != nil {
		p.Send(msg)
	}
}

// Run blocks until the user quits or ctx is cancelled
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	generator := codegen.NewGenerator(a.opts.CodegenBackend, a.opts.Files, a.opts.Codegen, a.onGeneration)
	defer generator.Close()

	engine := chat.NewEngine(a.opts.ChatBackend, a.opts.Files, chat.Hooks{
		OnTranscript: func(turns []models.ConversationTurn) { a.send(transcriptMsg(turns)) },
		OnChatID:     a.onChatID,
		OnDraft:      func(draft string) { a.send(draftMsg(draft)) },
		OnLoading:    func(loading bool) { a.send(loadingMsg(loading)) },
		OnPromptComplete: func(prompt, chatID string) {
			generator.Generate(prompt, chatID)
		},
	})

	if a.opts.ChatID == "" {
		a.workspaces.attach("")
	}
	defer a.workspaces.detach()

	m := newModel(ctx, a.opts, engine, generator)
	m.workspaces = a.workspaces
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	a.program.Store(program)
	defer a.program.Store(nil)

	a.forward(ctx)

	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// forward relays FileMap and preview state changes into the program
func (a *App) forward(ctx context.Context) {
	changes, stopFiles := a.opts.Files.Subscribe()
	recovery.SafeGoContext(ctx, "tui-files", func(ctx context.Context) {
		defer stopFiles()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				a.send(filesChangedMsg{})
			}
		}
	})

	if a.opts.Bridge == nil {
		return
	}
	states, stopStates := a.opts.Bridge.Subscribe()
	recovery.SafeGoContext(ctx, "tui-preview", func(ctx context.Context) {
		defer stopStates()
		for {
			select {
			case <-ctx.Done():
				return
			case st, ok := <-states:
				if !ok {
					return
				}
				a.send(previewStateMsg(st))
			}
		}
	})
}

// onChatID moves the workspace of a draft to the id the backend assigned
func (a *App) onChatID(chatID string) {
	a.workspaces.attach(chatID)
	a.send(chatIDMsg(chatID))
}

// onGeneration checkpoints the workspace after a successful generation and
// relays every event to the program.
func (a *App) onGeneration(ev codegen.Event) {
	if ws := a.workspaces.current(); ev.Type == codegen.EventSuccess && ws != nil {
		prompt := ev.Job.Prompt
		recovery.SafeGo("workspace-checkpoint", func() {
			if _, err := ws.Checkpoint(prompt); err != nil {
				logger.Warnf("⚠️  Checkpoint failed: %v", err)
			}
		})
	}
	a.send(generationMsg(ev))
}

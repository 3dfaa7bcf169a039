package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vanpelt/sitecraft/internal/chat"
	"github.com/vanpelt/sitecraft/internal/codegen"
	"github.com/vanpelt/sitecraft/internal/export"
	"github.com/vanpelt/sitecraft/internal/logger"
)

const alertDuration = 4 * time.Second

// Ticker commands
func previewTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return previewTickMsg(t)
	})
}

func deployTick() tea.Cmd {
	return tea.Tick(time.Millisecond*50, func(t time.Time) tea.Msg {
		return deployTickMsg(t)
	})
}

func clearAlertAfter(seq int) tea.Cmd {
	return tea.Tick(alertDuration, func(time.Time) tea.Msg {
		return clearAlertMsg{seq: seq}
	})
}

// Engine operations run as commands: their hooks send messages back into the
// program, which must not happen from inside Update.
func (m *Model) submitPrompt(text string) tea.Cmd {
	engine, ctx := m.engine, m.ctx
	return func() tea.Msg {
		engine.SubmitPrompt(ctx, text)
		return nil
	}
}

func (m *Model) enhancePrompt(draft string) tea.Cmd {
	engine, ctx := m.engine, m.ctx
	return func() tea.Msg {
		engine.EnhancePrompt(ctx, draft)
		return nil
	}
}

// leaveConversation stops the reply first, so no new generation can be
// scheduled, then drops the generation already running and stops mirroring
// before the FileMap changes hands. The engine waits for hooks that are
// sending into the program, so this never runs inside Update.
func leaveConversation(engine *chat.Engine, generator *codegen.Generator, workspaces *workspaceSlot) {
	engine.Leave()
	if generator != nil {
		generator.Cancel()
	}
	workspaces.detach()
}

func (m *Model) loadConversation(chatID string) tea.Cmd {
	engine, generator, workspaces, ctx := m.engine, m.generator, m.workspaces, m.ctx
	return func() tea.Msg {
		leaveConversation(engine, generator, workspaces)
		ok := engine.LoadConversation(ctx, chatID)
		workspaces.attach(engine.ChatID())
		return conversationLoadedMsg{chatID: chatID, ok: ok}
	}
}

func (m *Model) newChat() tea.Cmd {
	if m.engine == nil {
		return nil
	}
	engine, generator, workspaces := m.engine, m.generator, m.workspaces
	return func() tea.Msg {
		leaveConversation(engine, generator, workspaces)
		engine.NewChat()
		workspaces.attach("")
		return newChatMsg{}
	}
}

// Data fetching commands
func (m *Model) fetchChats(refresh bool) tea.Cmd {
	if m.chats == nil {
		return nil
	}
	svc, ctx := m.chats, m.ctx
	return func() tea.Msg {
		if refresh {
			svc.Invalidate()
		}
		list, err := svc.List(ctx)
		return chatsMsg{chats: list, err: err}
	}
}

func (m *Model) deleteChat(chatID string) tea.Cmd {
	svc, ctx := m.chats, m.ctx
	return func() tea.Msg {
		return chatDeletedMsg{chatID: chatID, err: svc.Delete(ctx, chatID)}
	}
}

func (m *Model) exportZip() tea.Cmd {
	fm, path := m.files.Effective(), m.exportPath
	return func() tea.Msg {
		err := export.WriteZipFile(path, fm)
		if err != nil {
			logger.Errorf("❌ Export to %s failed: %v", path, err)
		}
		return exportDoneMsg{path: path, err: err}
	}
}

func (m *Model) deploy() tea.Cmd {
	deployer, ctx, fm := m.deployer, m.ctx, m.files.Effective()
	return func() tea.Msg {
		url, err := deployer.Deploy(ctx, fm)
		return deployDoneMsg{url: url, err: err}
	}
}

func (m *Model) openPreview() tea.Cmd {
	opener, url := m.opener, m.previewURL
	return func() tea.Msg {
		if err := opener.Open(url); err != nil {
			return alertMsg("Failed to open browser: " + err.Error())
		}
		return nil
	}
}

// Batch commands for initialization
func (m *Model) initCommands() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		m.spinner.Tick,
		previewTick(),
		m.fetchChats(false),
	}
	if m.chatID != "" && m.engine != nil {
		cmds = append(cmds, m.loadConversation(m.chatID))
	}
	return tea.Batch(cmds...)
}

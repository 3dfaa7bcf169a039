package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vanpelt/sitecraft/internal/codegen"
	"github.com/vanpelt/sitecraft/internal/export"
	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/preview"
	"github.com/vanpelt/sitecraft/internal/tui/components"
)

// Update is the main update function that routes messages to appropriate handlers
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// First, handle global window sizing
	if windowMsg, ok := msg.(tea.WindowSizeMsg); ok {
		return m.handleWindowResize(windowMsg)
	}

	// Route key messages to current view
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		return m.handleKeyMessage(keyMsg)
	}

	if spinnerMsg, ok := msg.(spinner.TickMsg); ok {
		return m.handleSpinnerTick(spinnerMsg)
	}

	// Route other messages by type
	switch msg := msg.(type) {
	case previewTickMsg:
		return m.handlePreviewTick(msg)
	case deployTickMsg:
		return m.handleDeployTick(msg)
	case transcriptMsg:
		return m.handleTranscript(msg)
	case chatIDMsg:
		return m.handleChatID(msg)
	case draftMsg:
		m.input.SetValue(string(msg))
		return m, nil
	case loadingMsg:
		m.loading = bool(msg)
		return m, nil
	case newChatMsg:
		return m.handleNewChat(msg)
	case conversationLoadedMsg:
		return m.handleConversationLoaded(msg)
	case generationMsg:
		return m.handleGeneration(msg)
	case previewStateMsg:
		m.previewState = preview.BuildState(msg)
		return m, nil
	case filesChangedMsg:
		return m.handleFilesChanged(msg)
	case chatsMsg:
		return m.handleChats(msg)
	case chatDeletedMsg:
		return m.handleChatDeleted(msg)
	case exportDoneMsg:
		return m.handleExportDone(msg)
	case deployDoneMsg:
		return m.handleDeployDone(msg)
	case alertMsg:
		cmd := m.setAlert(string(msg))
		return m, cmd
	case clearAlertMsg:
		if msg.seq == m.alertSeq {
			m.alert = ""
		}
		return m, nil
	case quitMsg:
		m.quitRequested = true
		return m, tea.Quit
	}

	// Let current view handle any remaining messages
	newModel, cmd := m.GetCurrentView().Update(&m, msg)
	return *newModel, cmd
}

// Window resize handler. Every view is resized so switching never shows
// stale dimensions.
func (m Model) handleWindowResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.progressBar.Width = min(60, max(10, msg.Width-20))

	var cmds []tea.Cmd
	for _, v := range []ViewType{ChatView, CodeView, PreviewView, ChatsView} {
		newModel, cmd := m.views[v].HandleResize(&m, msg)
		m = *newModel
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// Key message router with global key handling
func (m Model) handleKeyMessage(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	logger.Debugf("KeyMsg received: %s", msg.String())

	if cmd, handled := m.handleGlobalKeys(msg); handled {
		return m, cmd
	}

	if m.showFeedback {
		return m.handleFeedbackKey(msg)
	}
	if m.generating() {
		return m, nil
	}

	newModel, cmd := m.GetCurrentView().HandleKey(&m, msg)
	return *newModel, cmd
}

func (m *Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case components.KeyQuit, components.KeyQuitAlt:
		m.quitRequested = true
		return tea.Quit, true

	case components.KeyNewChat:
		if m.engine == nil {
			return nil, true
		}
		return m.newChat(), true

	case components.KeyEnhance:
		if m.engine == nil || m.loading || m.engine.Enhancing() {
			return nil, true
		}
		draft := m.input.Value()
		if strings.TrimSpace(draft) == "" {
			return nil, true
		}
		m.SwitchToView(ChatView)
		return m.enhancePrompt(draft), true

	case components.KeyExport:
		if m.files == nil {
			return nil, true
		}
		return m.exportZip(), true

	case components.KeyDeploy:
		if m.deployer == nil || m.files == nil {
			return m.setAlert("Deploy is not available"), true
		}
		if m.deploying {
			return nil, true
		}
		m.deploying = true
		m.deployStarted = time.Now()
		m.deployProgress = 0
		return tea.Batch(m.deploy(), deployTick()), true

	case components.KeyRefresh:
		if m.bridge != nil {
			m.bridge.Handle().ManualRefresh()
		}
		return nil, true

	case components.KeyStop:
		if m.bridge != nil {
			m.bridge.Stop()
			return m.setAlert("Preview stopped"), true
		}
		return nil, true

	case components.KeyChats:
		if m.currentView == ChatsView {
			m.SwitchToView(ChatView)
			return nil, true
		}
		m.SwitchToView(ChatsView)
		return m.fetchChats(false), true

	case components.KeyNextView, components.KeyPrevView:
		if m.currentView == ChatsView {
			m.SwitchToView(ChatView)
			return nil, true
		}
		step := 1
		if msg.String() == components.KeyPrevView {
			step = -1
		}
		m.SwitchToView(m.nextView(step))
		return nil, true
	}
	return nil, false
}

func (m Model) handleFeedbackKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case components.KeyFeedbackGood:
		m.showFeedback = false
		logger.Component("feedback").Info().Str("chat", m.chatID).Bool("helpful", true).Msg("👍 Generation feedback")
		return m, m.setAlert("Thanks for the feedback!")
	case components.KeyFeedbackBad:
		m.showFeedback = false
		logger.Component("feedback").Info().Str("chat", m.chatID).Bool("helpful", false).Msg("👎 Generation feedback")
		return m, m.setAlert("Thanks for the feedback!")
	case components.KeyEscape:
		m.showFeedback = false
	}
	return m, nil
}

// Spinner tick handler
func (m Model) handleSpinnerTick(msg spinner.TickMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m Model) handlePreviewTick(msg previewTickMsg) (tea.Model, tea.Cmd) {
	if m.quitRequested {
		return m, nil
	}
	return m, previewTick()
}

func (m Model) handleDeployTick(msg deployTickMsg) (tea.Model, tea.Cmd) {
	if !m.deploying {
		return m, nil
	}
	m.deployProgress = export.DeployProgress(time.Since(m.deployStarted))
	return m, deployTick()
}

func (m Model) handleTranscript(msg transcriptMsg) (tea.Model, tea.Cmd) {
	m.turns = msg
	m.renderTranscript()
	return m, nil
}

func (m Model) handleChatID(msg chatIDMsg) (tea.Model, tea.Cmd) {
	m.chatID = string(msg)
	return m, m.fetchChats(true)
}

func (m Model) handleNewChat(msg newChatMsg) (tea.Model, tea.Cmd) {
	m.chatID = ""
	m.job = codegen.Job{}
	m.completed = false
	m.showFeedback = false
	m.input.Reset()
	m.refreshFiles()
	m.SwitchToView(ChatView)
	return m, m.input.Focus()
}

func (m Model) handleConversationLoaded(msg conversationLoadedMsg) (tea.Model, tea.Cmd) {
	m.SwitchToView(ChatView)
	if !msg.ok {
		return m, m.setAlert("⚠️ Failed to load this chat.")
	}
	m.chatID = msg.chatID
	m.job = codegen.Job{}
	m.showFeedback = false
	m.refreshFiles()
	return m, nil
}

func (m Model) handleGeneration(msg generationMsg) (tea.Model, tea.Cmd) {
	ev := codegen.Event(msg)
	m.job = ev.Job

	switch ev.Type {
	case codegen.EventStarted:
		m.completed = false
		m.showFeedback = false
	case codegen.EventSuccess:
		m.refreshFiles()
		m.renderCode()
	case codegen.EventError:
		return m, m.setAlert("❌ " + ev.Job.Err)
	case codegen.EventComplete:
		m.completed = true
		m.showFeedback = ev.Job.Status == codegen.StatusSuccess
	}
	return m, nil
}

func (m Model) handleFilesChanged(msg filesChangedMsg) (tea.Model, tea.Cmd) {
	m.refreshFiles()
	m.renderCode()
	return m, nil
}

func (m Model) handleChats(msg chatsMsg) (tea.Model, tea.Cmd) {
	m.chatsErr = msg.err
	if msg.err == nil {
		m.allChats = msg.chats
	}
	m.applyChatFilter()
	return m, nil
}

func (m Model) handleChatDeleted(msg chatDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, m.setAlert("Failed to delete chat: " + msg.err.Error())
	}
	cmds := []tea.Cmd{m.setAlert("Chat deleted"), m.fetchChats(false)}
	if msg.chatID == m.chatID {
		cmds = append(cmds, m.newChat())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleExportDone(msg exportDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, m.setAlert("Failed to download files")
	}
	return m, m.setAlert(fmt.Sprintf("📦 Saved %s", msg.path))
}

func (m Model) handleDeployDone(msg deployDoneMsg) (tea.Model, tea.Cmd) {
	m.deploying = false
	m.deployProgress = 0
	if msg.err != nil {
		return m, m.setAlert(msg.err.Error())
	}
	m.deployURL = msg.url
	return m, m.setAlert("🚀 Deployed to " + msg.url)
}

func (m *Model) setAlert(text string) tea.Cmd {
	m.alertSeq++
	m.alert = text
	return clearAlertAfter(m.alertSeq)
}

package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/vanpelt/sitecraft/internal/chat"
	"github.com/vanpelt/sitecraft/internal/chats"
	"github.com/vanpelt/sitecraft/internal/codegen"
	"github.com/vanpelt/sitecraft/internal/export"
	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/models"
	"github.com/vanpelt/sitecraft/internal/preview"
	"github.com/vanpelt/sitecraft/internal/tui/components"
)

// ViewType represents the different views in the application
type ViewType int

const (
	// ChatView is the conversation and prompt input
	ChatView ViewType = iota
	// CodeView lists the generated files
	CodeView
	// PreviewView shows the live preview's build state
	PreviewView
	// ChatsView lists stored conversations
	ChatsView
)

// tabOrder is the order tab cycles through
var tabOrder = []ViewType{ChatView, CodeView, PreviewView}

func (v ViewType) String() string {
	switch v {
	case ChatView:
		return "Chat"
	case CodeView:
		return "Code"
	case PreviewView:
		return "Preview"
	case ChatsView:
		return "Chats"
	}
	return "?"
}

// View interface that all views must implement
type View interface {
	// Update handles view-specific message processing
	Update(m *Model, msg tea.Msg) (*Model, tea.Cmd)

	// Render generates the view content
	Render(m *Model) string

	// HandleKey processes key messages for this view
	HandleKey(m *Model, msg tea.KeyMsg) (*Model, tea.Cmd)

	// HandleResize processes window resize messages
	HandleResize(m *Model, msg tea.WindowSizeMsg) (*Model, tea.Cmd)

	// GetViewType returns the view type identifier
	GetViewType() ViewType
}

// Model represents the main application state
type Model struct {
	// Core dependencies
	ctx       context.Context
	engine    *chat.Engine
	generator *codegen.Generator
	files     *filemap.Store
	bridge    *preview.Bridge
	chats     *chats.Service
	deployer  *export.Deployer
	opener    export.Opener
	user      *models.User

	workspaces *workspaceSlot

	previewURL string
	exportPath string

	// Current state
	currentView   ViewType
	width         int
	height        int
	quitRequested bool
	alert         string
	alertSeq      int

	// Chat view
	turns        []models.ConversationTurn
	chatID       string
	loading      bool
	input        textarea.Model
	chatViewport viewport.Model
	spinner      spinner.Model
	renderer     *glamour.TermRenderer
	renderWidth  int

	// Generation overlay and feedback prompt
	job          codegen.Job
	completed    bool
	showFeedback bool
	progressBar  progress.Model

	// Code view
	filePaths    []string
	selectedFile int
	codeViewport viewport.Model

	// Preview view
	previewState preview.BuildState

	// Chats view
	chatList    list.Model
	allChats    []models.Chat
	chatsErr    error
	searchInput textinput.Model
	searchMode  bool

	// Deploy animation
	deploying      bool
	deployStarted  time.Time
	deployProgress float64
	deployURL      string

	// View instances
	views map[ViewType]View
}

// newModel builds the initial model. Any dependency except files may be nil;
// the matching feature is then unavailable.
func newModel(ctx context.Context, opts Options, engine *chat.Engine, generator *codegen.Generator) Model {
	input := textarea.New()
	input.Placeholder = "Describe the website you want to build..."
	input.ShowLineNumbers = false
	input.CharLimit = 8000
	input.SetHeight(3)
	input.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(components.ColorPrimary))

	search := textinput.New()
	search.Placeholder = "Search chats..."
	search.Prompt = "🔍 "
	search.CharLimit = 100

	chatList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	chatList.Title = "Chats"
	chatList.SetShowHelp(false)
	chatList.SetShowStatusBar(false)
	chatList.SetFilteringEnabled(false)

	opener := opts.Opener
	if opener == nil {
		opener = export.BrowserOpener{}
	}

	m := Model{
		ctx:          ctx,
		engine:       engine,
		generator:    generator,
		files:        opts.Files,
		bridge:       opts.Bridge,
		chats:        opts.Chats,
		deployer:     opts.Deployer,
		opener:       opener,
		user:         opts.User,
		previewURL:   opts.PreviewURL,
		exportPath:   opts.ExportPath,
		currentView:  ChatView,
		chatID:       opts.ChatID,
		input:        input,
		chatViewport: viewport.New(80, 20),
		spinner:      sp,
		progressBar:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		codeViewport: viewport.New(80, 20),
		chatList:     chatList,
		searchInput:  search,
		previewState: preview.BuildState{Status: preview.StatusIdle},
		views:        make(map[ViewType]View),
	}
	if m.exportPath == "" {
		m.exportPath = export.DefaultZipName
	}
	if m.bridge != nil {
		m.previewState = m.bridge.State()
	}
	m.refreshFiles()

	m.views[ChatView] = NewChatView()
	m.views[CodeView] = NewCodeView()
	m.views[PreviewView] = NewPreviewView()
	m.views[ChatsView] = NewChatsView()

	return m
}

// GetCurrentView returns the currently active view
func (m *Model) GetCurrentView() View {
	return m.views[m.currentView]
}

// SwitchToView changes the current view and tells the preview bridge which
// tab is visible.
func (m *Model) SwitchToView(viewType ViewType) {
	m.currentView = viewType
	if m.bridge == nil {
		return
	}
	if viewType == PreviewView {
		m.bridge.SetActiveTab(preview.TabPreview)
	} else {
		m.bridge.SetActiveTab(preview.TabCode)
	}
}

// nextView cycles through tabOrder; the chats list returns to chat
func (m *Model) nextView(step int) ViewType {
	for i, v := range tabOrder {
		if v == m.currentView {
			n := len(tabOrder)
			return tabOrder[((i+step)%n+n)%n]
		}
	}
	return ChatView
}

// generating reports whether the progress overlay should be shown
func (m *Model) generating() bool {
	switch m.job.Status {
	case codegen.StatusRunning:
		return true
	case codegen.StatusSuccess:
		return !m.completed
	}
	return false
}

func (m *Model) refreshFiles() {
	if m.files == nil {
		return
	}
	m.filePaths = m.files.Effective().Paths()
	if m.selectedFile >= len(m.filePaths) {
		m.selectedFile = len(m.filePaths) - 1
	}
	if m.selectedFile < 0 {
		m.selectedFile = 0
	}
}

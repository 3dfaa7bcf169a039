package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanpelt/sitecraft/internal/codegen"
	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/models"
	"github.com/vanpelt/sitecraft/internal/preview"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	m := newModel(context.Background(), Options{Files: filemap.NewStore()}, nil, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTabCyclesViews(t *testing.T) {
	m := newTestModel(t)
	assert.Equal(t, ChatView, m.currentView)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, CodeView, m.currentView)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, PreviewView, m.currentView)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, ChatView, m.currentView)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, PreviewView, m.currentView)
}

func TestChatsToggle(t *testing.T) {
	m := newTestModel(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Equal(t, ChatsView, m.currentView)
	assert.Contains(t, m.View(), "No chats yet")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, ChatView, m.currentView)
}

func TestQuitKeys(t *testing.T) {
	m := newTestModel(t)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, m.quitRequested)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestGenerationOverlayAndFeedback(t *testing.T) {
	m := newTestModel(t)

	job := codegen.Job{Prompt: "bakery", Status: codegen.StatusRunning, Progress: 30, Stage: 1}
	m, _ = update(t, m, generationMsg{Type: codegen.EventStarted, Job: job})
	m, _ = update(t, m, generationMsg{Type: codegen.EventProgress, Job: job})

	view := m.View()
	assert.Contains(t, view, "Generating your website")
	assert.Contains(t, view, "✓ Analyzing")
	assert.Contains(t, view, "● Designing")
	assert.Contains(t, view, "About 9s remaining")

	// Input is locked while the overlay is up
	m, _ = update(t, m, runes("a"))
	assert.Empty(t, m.input.Value())

	job.Status, job.Progress, job.Stage = codegen.StatusSuccess, 100, codegen.TerminalStage
	m, _ = update(t, m, generationMsg{Type: codegen.EventSuccess, Job: job})
	assert.Contains(t, m.View(), "Your website is ready!")
	assert.False(t, m.showFeedback)

	m, _ = update(t, m, generationMsg{Type: codegen.EventComplete, Job: job})
	assert.False(t, m.generating())
	assert.True(t, m.showFeedback)
	assert.Contains(t, m.View(), "How did this generation turn out?")

	m, _ = update(t, m, runes("y"))
	assert.False(t, m.showFeedback)
	assert.Equal(t, "Thanks for the feedback!", m.alert)
}

func TestGenerationErrorAlerts(t *testing.T) {
	m := newTestModel(t)
	job := codegen.Job{Status: codegen.StatusError, Progress: 100, Err: "quota exceeded"}

	m, cmd := update(t, m, generationMsg{Type: codegen.EventError, Job: job})
	assert.NotNil(t, cmd)
	assert.False(t, m.generating())
	assert.Equal(t, "❌ quota exceeded", m.alert)

	m, _ = update(t, m, generationMsg{Type: codegen.EventComplete, Job: job})
	assert.False(t, m.showFeedback, "no feedback prompt after a failure")
}

func TestAlertClearsOnlyLatest(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, alertMsg("first"))
	m, _ = update(t, m, alertMsg("second"))

	m, _ = update(t, m, clearAlertMsg{seq: m.alertSeq - 1})
	assert.Equal(t, "second", m.alert)

	m, _ = update(t, m, clearAlertMsg{seq: m.alertSeq})
	assert.Empty(t, m.alert)
}

func TestPreviewViewRendersState(t *testing.T) {
	m := newTestModel(t)
	m.previewURL = "http://127.0.0.1:5173"
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	require.Equal(t, PreviewView, m.currentView)

	assert.Contains(t, m.View(), "Ready to run")
	assert.Contains(t, m.View(), "Last run: Never")

	m, _ = update(t, m, previewStateMsg(preview.BuildState{
		Status:      preview.StatusSuccess,
		LastBuiltAt: time.Now().Add(-2 * time.Minute),
		Cached:      true,
	}))
	view := m.View()
	assert.Contains(t, view, "Preview ready")
	assert.Contains(t, view, "(cached)")
	assert.Contains(t, view, "Last run: 2m ago")
	assert.Contains(t, view, "http://127.0.0.1:5173")

	m, _ = update(t, m, previewStateMsg(preview.BuildState{Status: preview.StatusError, ErrorDetail: "index.html is missing"}))
	assert.Contains(t, m.View(), "Build failed")
	assert.Contains(t, m.View(), "index.html is missing")
}

func TestChatsSearchFilters(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})

	m, _ = update(t, m, chatsMsg{chats: []models.Chat{
		{ID: "1", Messages: []models.StoredMessage{{Role: "user", Parts: []models.MessagePart{{Text: "A bakery landing page"}}}}},
		{ID: "2", Messages: []models.StoredMessage{{Role: "user", Parts: []models.MessagePart{{Text: "Portfolio for a photographer"}}}}},
	}})
	assert.Len(t, m.chatList.Items(), 2)

	m, _ = update(t, m, runes("/"))
	require.True(t, m.searchMode)
	m, _ = update(t, m, runes("BAK"))
	require.Len(t, m.chatList.Items(), 1)
	assert.Equal(t, "1", m.chatList.Items()[0].(chatItem).chat.ID)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.searchMode)

	// esc clears the query before leaving the view
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Len(t, m.chatList.Items(), 2)
	assert.Equal(t, ChatsView, m.currentView)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ChatView, m.currentView)
}

func TestChatsLoadError(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	m, _ = update(t, m, chatsMsg{err: errors.New("Not authenticated")})
	assert.Contains(t, m.View(), "Failed to load chats: Not authenticated")
}

func TestExportAndDeployResults(t *testing.T) {
	m := newTestModel(t)

	m, _ = update(t, m, exportDoneMsg{path: "site.zip", err: errors.New("disk full")})
	assert.Equal(t, "Failed to download files", m.alert)

	m, _ = update(t, m, exportDoneMsg{path: "site.zip"})
	assert.Equal(t, "📦 Saved site.zip", m.alert)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.Equal(t, "Deploy is not available", m.alert)
	assert.False(t, m.deploying)

	m.deploying = true
	m.deployProgress = 40
	m, _ = update(t, m, deployDoneMsg{url: "https://bakery.example.app"})
	assert.False(t, m.deploying)
	assert.Zero(t, m.deployProgress)
	assert.Equal(t, "https://bakery.example.app", m.deployURL)
}

func TestDeployTickAdvances(t *testing.T) {
	m := newTestModel(t)
	m.deploying = true
	m.deployStarted = time.Now().Add(-1500 * time.Millisecond)

	m, cmd := update(t, m, deployTickMsg(time.Now()))
	assert.NotNil(t, cmd)
	assert.InDelta(t, 50, m.deployProgress, 5)

	m.deploying = false
	_, cmd = update(t, m, deployTickMsg(time.Now()))
	assert.Nil(t, cmd)
}

func TestCodeViewFollowsFiles(t *testing.T) {
	m := newTestModel(t)
	m.files.Merge([]models.GeneratedFile{{Path: "/aaa.js", Content: "first file"}})
	m, _ = update(t, m, filesChangedMsg{})
	require.Contains(t, m.filePaths, "/aaa.js")
	assert.Equal(t, "/aaa.js", m.filePaths[0])

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, CodeView, m.currentView)
	assert.Contains(t, m.View(), "first file")

	m, _ = update(t, m, runes("j"))
	assert.Equal(t, 1, m.selectedFile)
	m, _ = update(t, m, runes("k"))
	assert.Equal(t, 0, m.selectedFile)
	m, _ = update(t, m, runes("k"))
	assert.Equal(t, 0, m.selectedFile)
}

func TestTranscriptRenders(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, transcriptMsg{
		{Role: models.RoleUser, Content: "Build a bakery site"},
		{Role: models.RoleModel, Content: "Sure! Here is a plan."},
	})

	view := m.View()
	assert.Contains(t, view, "You")
	assert.Contains(t, view, "Build a bakery site")
	assert.Contains(t, view, "Assistant")
	assert.Contains(t, view, "plan")
}

func TestEnterWithoutEngineKeepsInput(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, runes("hello"))
	assert.Equal(t, "hello", m.input.Value())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "hello", m.input.Value())
}

func TestTruncateLeft(t *testing.T) {
	assert.Equal(t, "/a.js", truncateLeft("/a.js", 10))
	assert.Equal(t, "…/App.jsx", truncateLeft("/src/components/App.jsx", 9))
}

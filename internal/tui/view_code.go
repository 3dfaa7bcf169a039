package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/vanpelt/sitecraft/internal/tui/components"
)

const fileListWidth = 32

// CodeViewImpl lists the effective files and shows the selected one
type CodeViewImpl struct{}

// NewCodeView creates a new code view instance
func NewCodeView() *CodeViewImpl {
	return &CodeViewImpl{}
}

// GetViewType returns the view type identifier
func (v *CodeViewImpl) GetViewType() ViewType {
	return CodeView
}

// Update handles code-specific message processing
func (v *CodeViewImpl) Update(m *Model, msg tea.Msg) (*Model, tea.Cmd) {
	var cmd tea.Cmd
	m.codeViewport, cmd = m.codeViewport.Update(msg)
	return m, cmd
}

// HandleKey moves the file selection and scrolls the file
func (v *CodeViewImpl) HandleKey(m *Model, msg tea.KeyMsg) (*Model, tea.Cmd) {
	switch msg.String() {
	case components.KeyUp, components.KeyVimUp:
		if m.selectedFile > 0 {
			m.selectedFile--
			m.renderCode()
		}
	case components.KeyDown, components.KeyVimDown:
		if m.selectedFile < len(m.filePaths)-1 {
			m.selectedFile++
			m.renderCode()
		}
	case components.KeyPageUp:
		m.codeViewport.PageUp()
	case components.KeyPageDown:
		m.codeViewport.PageDown()
	case components.KeyHome, components.KeyVimTop:
		m.codeViewport.GotoTop()
	case components.KeyEnd, components.KeyVimBottom:
		m.codeViewport.GotoBottom()
	}
	return m, nil
}

// HandleResize processes window resize for the code view
func (v *CodeViewImpl) HandleResize(m *Model, msg tea.WindowSizeMsg) (*Model, tea.Cmd) {
	m.codeViewport.Width = max(10, msg.Width-fileListWidth-4)
	m.codeViewport.Height = max(3, msg.Height-headerHeight-footerHeight-3)
	m.renderCode()
	return m, nil
}

// Render generates the code view content
func (v *CodeViewImpl) Render(m *Model) string {
	if len(m.filePaths) == 0 {
		return components.MainContentStyle.Render(components.MutedStyle.Render("No files yet"))
	}

	height := m.codeViewport.Height
	start := 0
	if m.selectedFile >= height {
		start = m.selectedFile - height + 1
	}
	end := min(len(m.filePaths), start+height)

	var rows []string
	for i := start; i < end; i++ {
		name := truncateLeft(m.filePaths[i], fileListWidth-2)
		if i == m.selectedFile {
			rows = append(rows, components.SelectedStyle.Render("▸ "+name))
		} else {
			rows = append(rows, "  "+name)
		}
	}

	list := lipgloss.NewStyle().Width(fileListWidth).Render(strings.Join(rows, "\n"))
	return components.MainContentStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, list, " ", m.codeViewport.View()))
}

// renderCode loads the selected file into the viewport
func (m *Model) renderCode() {
	if m.files == nil || len(m.filePaths) == 0 {
		m.codeViewport.SetContent("")
		return
	}
	path := m.filePaths[m.selectedFile]
	m.codeViewport.SetContent(m.files.Effective()[path].Code)
	m.codeViewport.GotoTop()
}

// truncateLeft keeps the end of a long path, which is the part that differs
func truncateLeft(s string, width int) string {
	r := []rune(s)
	if len(r) <= width || width < 2 {
		return s
	}
	return "…" + string(r[len(r)-width+1:])
}

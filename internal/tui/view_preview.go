package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/vanpelt/sitecraft/internal/preview"
	"github.com/vanpelt/sitecraft/internal/tui/components"
)

// PreviewViewImpl shows the live preview's build state
type PreviewViewImpl struct{}

// NewPreviewView creates a new preview view instance
func NewPreviewView() *PreviewViewImpl {
	return &PreviewViewImpl{}
}

// GetViewType returns the view type identifier
func (v *PreviewViewImpl) GetViewType() ViewType {
	return PreviewView
}

// Update handles preview-specific message processing
func (v *PreviewViewImpl) Update(m *Model, msg tea.Msg) (*Model, tea.Cmd) {
	return m, nil
}

// HandleKey processes key messages for the preview view
func (v *PreviewViewImpl) HandleKey(m *Model, msg tea.KeyMsg) (*Model, tea.Cmd) {
	switch msg.String() {
	case components.KeyPreviewRefresh:
		if m.bridge != nil {
			m.bridge.Handle().ManualRefresh()
		}
	case components.KeyPreviewOpen:
		if m.previewURL != "" {
			return m, m.openPreview()
		}
	}
	return m, nil
}

// HandleResize processes window resize for the preview view
func (v *PreviewViewImpl) HandleResize(m *Model, msg tea.WindowSizeMsg) (*Model, tea.Cmd) {
	return m, nil
}

// Render generates the preview view content
func (v *PreviewViewImpl) Render(m *Model) string {
	st := m.previewState
	var sections []string

	sections = append(sections, components.SectionHeaderStyle.Render("🖥️  Live Preview"), "")

	status := previewStatusIcon(st.Status, m.spinner.View()) + " " + st.Message()
	if st.Cached {
		status += components.MutedStyle.Render(" (cached)")
	}
	sections = append(sections, status)
	sections = append(sections, components.MutedStyle.Render("Last run: "+preview.FormatLastRun(st.LastBuiltAt)))

	if m.previewURL != "" {
		sections = append(sections, "URL: "+components.KeyHighlightStyle.Render(m.previewURL))
	}
	if st.Status == preview.StatusError && st.ErrorDetail != "" {
		sections = append(sections, "", components.ErrorStyle.Render(st.ErrorDetail))
	}
	if m.deployURL != "" {
		sections = append(sections, "", "Deployed: "+m.deployURL)
	}

	return components.MainContentStyle.Render(strings.Join(sections, "\n"))
}

func previewStatusIcon(status preview.Status, spinner string) string {
	switch status {
	case preview.StatusRunning:
		return spinner
	case preview.StatusSuccess:
		return components.SuccessStyle.Render("●")
	case preview.StatusError:
		return components.ErrorStyle.Render("●")
	}
	return components.MutedStyle.Render("○")
}

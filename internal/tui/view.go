package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/vanpelt/sitecraft/internal/codegen"
	"github.com/vanpelt/sitecraft/internal/tui/components"
)

const (
	headerHeight = 2
	footerHeight = 2
)

// Init starts the background commands
func (m Model) Init() tea.Cmd {
	return m.initCommands()
}

// View renders the header, the active view (or the generation overlay) and
// the footer.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string
	if m.generating() {
		content = m.renderProgressOverlay()
	} else {
		content = m.GetCurrentView().Render(&m)
	}

	sections := []string{m.renderHeader(), content}
	if m.showFeedback {
		sections = append(sections, m.renderFeedbackPrompt())
	}
	if m.deploying {
		sections = append(sections, m.renderDeployBar())
	}
	if m.alert != "" {
		sections = append(sections, components.AlertStyle.Render(m.alert))
	}
	sections = append(sections, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	var tabs []string
	for _, v := range append(append([]ViewType{}, tabOrder...), ChatsView) {
		style := components.TabStyle
		if v == m.currentView {
			style = components.ActiveTabStyle
		}
		tabs = append(tabs, style.Render(v.String()))
	}

	left := components.SectionHeaderStyle.Render("🌐 sitecraft") + "  " + strings.Join(tabs, "")
	right := ""
	if m.user != nil {
		right = components.MutedStyle.Render("👤 " + m.user.DisplayName())
	}
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	return components.ApplyWidth(components.HeaderStyle, m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m *Model) renderFooter() string {
	var help string
	switch m.currentView {
	case ChatView:
		help = "enter send • alt+enter newline • ctrl+e enhance"
	case CodeView:
		help = "↑↓/jk select file • pgup/pgdn scroll"
	case PreviewView:
		help = "r refresh • o open in browser • ctrl+x stop"
	case ChatsView:
		help = "/ search • enter open • d delete • n new chat • esc back"
	}
	help += " • tab switch • ctrl+l chats • ctrl+n new • ctrl+s export • ctrl+d deploy • ctrl+q quit"
	return components.ApplyWidth(components.FooterStyle, m.width).Render(help)
}

func (m *Model) contentHeight() int {
	return max(3, m.height-headerHeight-footerHeight-1)
}

// renderProgressOverlay shows the bar, the stage list, what is happening now
// and the estimated time left.
func (m *Model) renderProgressOverlay() string {
	job := m.job
	var b strings.Builder

	b.WriteString(components.SubHeaderStyle.Render("✨ Generating your website"))
	b.WriteString("\n\n")
	b.WriteString(m.progressBar.ViewAs(job.Progress / 100))
	b.WriteString("\n\n")

	var stages []string
	for i, name := range codegen.StageNames() {
		switch {
		case i < job.Stage || job.Status == codegen.StatusSuccess:
			stages = append(stages, components.StageDoneStyle.Render("✓ "+name))
		case i == job.Stage:
			stages = append(stages, components.StageActiveStyle.Render("● "+name))
		default:
			stages = append(stages, components.MutedStyle.Render("○ "+name))
		}
	}
	b.WriteString(strings.Join(stages, "  "))
	b.WriteString("\n\n")

	if job.Status == codegen.StatusSuccess {
		b.WriteString(components.SuccessStyle.Render("✅ Your website is ready!"))
	} else {
		b.WriteString(codegen.Describe(job.Progress))
		b.WriteString("\n")
		eta := codegen.ETA(job.Progress)
		b.WriteString(components.MutedStyle.Render(fmt.Sprintf("About %ds remaining", int(math.Round(eta.Seconds())))))
	}

	box := components.OverlayStyle.Render(b.String())
	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) renderFeedbackPrompt() string {
	return components.OverlayStyle.Render(
		"How did this generation turn out?  " +
			components.KeyHighlightStyle.Render("y") + " 👍   " +
			components.KeyHighlightStyle.Render("n") + " 👎   " +
			components.KeyHighlightStyle.Render("esc") + " dismiss")
}

func (m *Model) renderDeployBar() string {
	return "🚀 Deploying " + m.progressBar.ViewAs(m.deployProgress/100)
}

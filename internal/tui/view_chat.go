package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/vanpelt/sitecraft/internal/models"
	"github.com/vanpelt/sitecraft/internal/tui/components"
)

const inputHeight = 5 // textarea plus border

// ChatViewImpl handles the conversation view
type ChatViewImpl struct{}

// NewChatView creates a new chat view instance
func NewChatView() *ChatViewImpl {
	return &ChatViewImpl{}
}

// GetViewType returns the view type identifier
func (v *ChatViewImpl) GetViewType() ViewType {
	return ChatView
}

// Update forwards cursor blinks and other input messages to the textarea
func (v *ChatViewImpl) Update(m *Model, msg tea.Msg) (*Model, tea.Cmd) {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// HandleKey processes key messages for the chat view
func (v *ChatViewImpl) HandleKey(m *Model, msg tea.KeyMsg) (*Model, tea.Cmd) {
	switch msg.String() {
	case components.KeyEnter:
		text := m.input.Value()
		if strings.TrimSpace(text) == "" || m.loading || m.engine == nil {
			return m, nil
		}
		m.input.Reset()
		return m, m.submitPrompt(text)

	case components.KeyPageUp:
		m.chatViewport.PageUp()
		return m, nil

	case components.KeyPageDown:
		m.chatViewport.PageDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// HandleResize processes window resize for the chat view
func (v *ChatViewImpl) HandleResize(m *Model, msg tea.WindowSizeMsg) (*Model, tea.Cmd) {
	m.input.SetWidth(max(10, msg.Width-4))
	m.chatViewport.Width = max(10, msg.Width-2)
	m.chatViewport.Height = max(3, msg.Height-headerHeight-footerHeight-inputHeight-2)
	m.renderTranscript()
	return m, nil
}

// Render generates the chat view content
func (v *ChatViewImpl) Render(m *Model) string {
	var sections []string

	if len(m.turns) == 0 {
		sections = append(sections, components.MutedStyle.Render("Describe a website and press enter to start building."))
		sections = append(sections, strings.Repeat("\n", max(0, m.chatViewport.Height-1)))
	} else {
		sections = append(sections, m.chatViewport.View())
	}

	sections = append(sections, components.InputBorderStyle.Render(m.input.View()))

	switch {
	case m.engine != nil && m.engine.Enhancing():
		sections = append(sections, m.spinner.View()+" ✨ Enhancing your prompt...")
	case m.loading:
		sections = append(sections, m.spinner.View()+" Thinking...")
	default:
		sections = append(sections, "")
	}

	return components.MainContentStyle.Render(strings.Join(sections, "\n"))
}

// renderTranscript rebuilds the viewport content from the turns. Model
// replies are markdown and go through glamour.
func (m *Model) renderTranscript() {
	width := max(20, m.chatViewport.Width-2)
	if m.renderer == nil || m.renderWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			m.renderer = r
			m.renderWidth = width
		}
	}

	var b strings.Builder
	for _, turn := range m.turns {
		switch turn.Role {
		case models.RoleUser:
			b.WriteString(components.UserLabelStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(turn.Content)
			b.WriteString("\n\n")
		default:
			b.WriteString(components.ModelLabelStyle.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(m.renderMarkdown(turn.Content))
			b.WriteString("\n")
		}
	}
	m.chatViewport.SetContent(b.String())
	m.chatViewport.GotoBottom()
}

func (m *Model) renderMarkdown(content string) string {
	if strings.TrimSpace(content) == "" {
		return components.MutedStyle.Render("…") + "\n"
	}
	if m.renderer == nil {
		return content + "\n"
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return out
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vanpelt/sitecraft/internal/chats"
	"github.com/vanpelt/sitecraft/internal/models"
	"github.com/vanpelt/sitecraft/internal/tui/components"
)

// chatItem adapts a stored chat to the list component
type chatItem struct {
	chat models.Chat
}

func (i chatItem) Title() string       { return chats.Title(i.chat) }
func (i chatItem) FilterValue() string { return i.Title() }

func (i chatItem) Description() string {
	desc := fmt.Sprintf("%d messages", len(i.chat.Messages))
	if !i.chat.CreatedAt.IsZero() {
		desc += " • " + i.chat.CreatedAt.Local().Format("Jan 2 15:04")
	}
	return desc
}

// ChatsViewImpl lists stored conversations with search, open and delete
type ChatsViewImpl struct{}

// NewChatsView creates a new chats view instance
func NewChatsView() *ChatsViewImpl {
	return &ChatsViewImpl{}
}

// GetViewType returns the view type identifier
func (v *ChatsViewImpl) GetViewType() ViewType {
	return ChatsView
}

// Update handles chats-specific message processing
func (v *ChatsViewImpl) Update(m *Model, msg tea.Msg) (*Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.searchMode {
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
	m.chatList, cmd = m.chatList.Update(msg)
	return m, cmd
}

// HandleKey processes key messages for the chats view
func (v *ChatsViewImpl) HandleKey(m *Model, msg tea.KeyMsg) (*Model, tea.Cmd) {
	if m.searchMode {
		switch msg.String() {
		case components.KeyEscape, components.KeyEnter:
			m.searchMode = false
			m.searchInput.Blur()
			return m, nil
		default:
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			m.applyChatFilter()
			return m, cmd
		}
	}

	switch msg.String() {
	case components.KeyChatsSearch:
		m.searchMode = true
		return m, m.searchInput.Focus()

	case components.KeyEscape:
		if m.searchInput.Value() != "" {
			m.searchInput.SetValue("")
			m.applyChatFilter()
			return m, nil
		}
		m.SwitchToView(ChatView)
		return m, nil

	case components.KeyEnter:
		if item, ok := m.chatList.SelectedItem().(chatItem); ok && m.engine != nil {
			return m, m.loadConversation(item.chat.ID)
		}
		return m, nil

	case components.KeyChatsDelete:
		if item, ok := m.chatList.SelectedItem().(chatItem); ok && m.chats != nil {
			return m, m.deleteChat(item.chat.ID)
		}
		return m, nil

	case components.KeyChatsNew:
		if m.engine == nil {
			return m, nil
		}
		return m, m.newChat()
	}

	var cmd tea.Cmd
	m.chatList, cmd = m.chatList.Update(msg)
	return m, cmd
}

// HandleResize processes window resize for the chats view
func (v *ChatsViewImpl) HandleResize(m *Model, msg tea.WindowSizeMsg) (*Model, tea.Cmd) {
	m.searchInput.Width = max(10, msg.Width-10)
	m.chatList.SetSize(max(10, msg.Width-2), max(3, msg.Height-headerHeight-footerHeight-4))
	return m, nil
}

// Render generates the chats view content
func (v *ChatsViewImpl) Render(m *Model) string {
	var sections []string

	if m.searchMode || m.searchInput.Value() != "" {
		sections = append(sections, m.searchInput.View())
	} else {
		sections = append(sections, components.MutedStyle.Render("Press '/' to search"))
	}

	switch {
	case m.chatsErr != nil:
		sections = append(sections, components.ErrorStyle.Render("Failed to load chats: "+m.chatsErr.Error()))
	case len(m.allChats) == 0:
		sections = append(sections, "", components.MutedStyle.Render("No chats yet"))
	case len(m.chatList.Items()) == 0:
		sections = append(sections, "", components.MutedStyle.Render("No chats match your search"))
	default:
		sections = append(sections, m.chatList.View())
	}

	return components.MainContentStyle.Render(strings.Join(sections, "\n"))
}

// applyChatFilter refills the list from the search query
func (m *Model) applyChatFilter() {
	found := chats.Search(m.allChats, m.searchInput.Value())
	items := make([]list.Item, 0, len(found))
	for _, c := range found {
		items = append(items, chatItem{chat: c})
	}
	m.chatList.SetItems(items)
}

package components

// Key Command Groups:
// 1. Global - always available, Ctrl modifier
// 2. View-specific - only in the view that owns them
// 3. Everything else goes to the focused input

// Global keys (require Ctrl modifier)
const (
	KeyQuit    = "ctrl+q"
	KeyQuitAlt = "ctrl+c"

	KeyNewChat = "ctrl+n"
	KeyEnhance = "ctrl+e"
	KeyExport  = "ctrl+s"
	KeyDeploy  = "ctrl+d"
	KeyRefresh = "ctrl+r"
	KeyStop    = "ctrl+x"
	KeyChats   = "ctrl+l"

	KeyNextView = "tab"
	KeyPrevView = "shift+tab"
)

// Common keys
const (
	KeyEscape = "esc"
	KeyEnter  = "enter"
)

// Navigation keys
const (
	KeyUp       = "up"
	KeyDown     = "down"
	KeyPageUp   = "pgup"
	KeyPageDown = "pgdown"
	KeyHome     = "home"
	KeyEnd      = "end"
)

// Vim-style navigation
const (
	KeyVimUp     = "k"
	KeyVimDown   = "j"
	KeyVimTop    = "g"
	KeyVimBottom = "G"
)

// Chats view keys
const (
	KeyChatsSearch = "/"
	KeyChatsDelete = "d"
	KeyChatsNew    = "n"
)

// Preview view keys
const (
	KeyPreviewOpen    = "o"
	KeyPreviewRefresh = "r"
)

// Feedback prompt keys
const (
	KeyFeedbackGood = "y"
	KeyFeedbackBad  = "n"
)

// IsGlobalKey checks if a key is handled before any view sees it
func IsGlobalKey(key string) bool {
	switch key {
	case KeyQuit, KeyQuitAlt, KeyNewChat, KeyEnhance, KeyExport, KeyDeploy,
		KeyRefresh, KeyStop, KeyChats, KeyNextView, KeyPrevView:
		return true
	}
	return false
}

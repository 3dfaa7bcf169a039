package tui

import (
	"sync"

	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/workspace"
)

// WorkspaceOpener opens the mirror directory of a chat; "" is the draft
type WorkspaceOpener func(chatID string) (*workspace.Workspace, error)

// workspaceSlot holds the workspace of the conversation on screen. Each chat
// mirrors into its own directory, so the slot is detached before the FileMap
// is replaced and attached again once the new conversation owns it.
type workspaceSlot struct {
	open WorkspaceOpener

	mu       sync.Mutex
	chatID   string
	ws       *workspace.Workspace
	attached bool
}

func newWorkspaceSlot(open WorkspaceOpener) *workspaceSlot {
	return &workspaceSlot{open: open}
}

// attach mirrors into chatID's directory, closing the previous workspace.
// Attaching the chat that is already attached does nothing.
func (s *workspaceSlot) attach(chatID string) {
	if s == nil || s.open == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached && s.chatID == chatID {
		return
	}
	s.closeLocked()

	ws, err := s.open(chatID)
	if err != nil {
		logger.Warnf("⚠️  Workspace mirror disabled for %q: %v", chatID, err)
		return
	}
	s.ws, s.chatID, s.attached = ws, chatID, true
	logger.Debugf("📁 Workspace for %q at %s", chatID, ws.Dir())
}

// detach stops mirroring until the next attach
func (s *workspaceSlot) detach() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// current returns the attached workspace, or nil
func (s *workspaceSlot) current() *workspace.Workspace {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws
}

func (s *workspaceSlot) closeLocked() {
	if s.ws != nil {
		if err := s.ws.Close(); err != nil {
			logger.Warnf("⚠️  Failed to close workspace %s: %v", s.ws.Dir(), err)
		}
	}
	s.ws, s.chatID, s.attached = nil, "", false
}

package git

import (
	"fmt"
	"strings"
	"sync"

	"github.com/vanpelt/sitecraft/internal/logger"
)

const maxTitleLength = 60

// CheckpointManager commits the workspace after each generation
type CheckpointManager interface {
	CreateCheckpoint(title string) (string, error)
	Count() int
	Reset()
}

// Service is the git operation the checkpoint manager needs
type Service interface {
	AddCommitGetHash(title string) (string, error)
}

// SessionCheckpointManager numbers checkpoints within one conversation
type SessionCheckpointManager struct {
	checkpointCount int
	checkpointMutex sync.Mutex
	gitService      Service
	onCheckpoint    func(Checkpoint)
}

// NewSessionCheckpointManager creates a checkpoint manager; onCheckpoint may
// be nil.
func NewSessionCheckpointManager(gitService Service, onCheckpoint func(Checkpoint)) *SessionCheckpointManager {
	return &SessionCheckpointManager{
		gitService:   gitService,
		onCheckpoint: onCheckpoint,
	}
}

// CreateCheckpoint commits the workspace as "<title> checkpoint: N". Nothing
// is committed, and the counter is unchanged, when no files changed.
func (cm *SessionCheckpointManager) CreateCheckpoint(title string) (string, error) {
	if cm.gitService == nil {
		return "", fmt.Errorf("git service not available")
	}

	cm.checkpointMutex.Lock()
	defer cm.checkpointMutex.Unlock()

	checkpointTitle := fmt.Sprintf("%s checkpoint: %d", shortTitle(title), cm.checkpointCount+1)
	commitHash, err := cm.gitService.AddCommitGetHash(checkpointTitle)
	if err != nil {
		return "", err
	} else if commitHash == "" {
		return "", nil
	}

	cm.checkpointCount++
	logger.Infof("✅ Created checkpoint commit: %q (hash: %s)", checkpointTitle, commitHash)

	if cm.onCheckpoint != nil {
		cm.onCheckpoint(Checkpoint{Hash: commitHash, Message: checkpointTitle})
	}
	return commitHash, nil
}

// Count is the number of checkpoints created since the last Reset
func (cm *SessionCheckpointManager) Count() int {
	cm.checkpointMutex.Lock()
	defer cm.checkpointMutex.Unlock()
	return cm.checkpointCount
}

// Reset restarts numbering, e.g. for a new conversation
func (cm *SessionCheckpointManager) Reset() {
	cm.checkpointMutex.Lock()
	defer cm.checkpointMutex.Unlock()
	cm.checkpointCount = 0
}

// shortTitle keeps the first line of a prompt, cut to a readable length
func shortTitle(title string) string {
	title = strings.TrimSpace(title)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	if title == "" {
		return "Generation"
	}
	if r := []rune(title); len(r) > maxTitleLength {
		return string(r[:maxTitleLength]) + "…"
	}
	return title
}

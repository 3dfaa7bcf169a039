package config

import (
	"os"
	"path/filepath"

	"github.com/vanpelt/sitecraft/internal/logger"
)

// RuntimeConfig holds the on-disk locations sitecraft uses on this host
type RuntimeConfig struct {
	HomeDir      string
	StateDir     string // Session, preview cache and logs live here
	WorkspaceDir string // Mirrored FileMaps, one directory per chat
	TempDir      string
}

var (
	// Runtime is the global runtime configuration instance
	Runtime *RuntimeConfig
)

func init() {
	Runtime = DetectRuntime()
}

// DetectRuntime resolves the state and workspace directories, honouring the
// SITECRAFT_STATE_DIR and SITECRAFT_WORKSPACE_DIR overrides.
func DetectRuntime() *RuntimeConfig {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.Getenv("HOME")
		if homeDir == "" {
			homeDir = "."
		}
	}

	stateDir := os.Getenv("SITECRAFT_STATE_DIR")
	if stateDir == "" {
		stateDir = filepath.Join(homeDir, ".sitecraft")
	}

	workspaceDir := os.Getenv("SITECRAFT_WORKSPACE_DIR")
	if workspaceDir == "" {
		workspaceDir = filepath.Join(stateDir, "workspace")
	}

	return &RuntimeConfig{
		HomeDir:      homeDir,
		StateDir:     stateDir,
		WorkspaceDir: workspaceDir,
		TempDir:      os.TempDir(),
	}
}

// EnsureDirs creates the state and workspace directories
func (rc *RuntimeConfig) EnsureDirs() {
	for _, dir := range []string{rc.StateDir, rc.WorkspaceDir} {
		if err := ensureDir(dir); err != nil {
			logger.Warnf("⚠️  Failed to create directory %s: %v", dir, err)
		}
	}
}

// SessionFile is where the persisted auth partition lives
func (rc *RuntimeConfig) SessionFile() string {
	return filepath.Join(rc.StateDir, "session.json")
}

// PreviewCacheFile is where preview build results are remembered
func (rc *RuntimeConfig) PreviewCacheFile() string {
	return filepath.Join(rc.StateDir, "preview-cache.json")
}

// CookieFile stores the backend session cookies between runs
func (rc *RuntimeConfig) CookieFile() string {
	return filepath.Join(rc.StateDir, "cookies.json")
}

// LogFile is used while the TUI owns the terminal
func (rc *RuntimeConfig) LogFile() string {
	return filepath.Join(rc.StateDir, "logs", "sitecraft.log")
}

// ConfigFile is the optional YAML config
func (rc *RuntimeConfig) ConfigFile() string {
	return filepath.Join(rc.StateDir, "config.yaml")
}

// ChatWorkspace returns the mirror directory for a chat. Unsaved chats share
// the "draft" directory.
func (rc *RuntimeConfig) ChatWorkspace(chatID string) string {
	if chatID == "" {
		chatID = "draft"
	}
	return filepath.Join(rc.WorkspaceDir, filepath.Base(chatID))
}

func ensureDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, 0755)
}

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vanpelt/sitecraft/internal/cache"
	"github.com/vanpelt/sitecraft/internal/chats"
	"github.com/vanpelt/sitecraft/internal/codegen"
	"github.com/vanpelt/sitecraft/internal/export"
	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/models"
	"github.com/vanpelt/sitecraft/internal/tui"
	"github.com/vanpelt/sitecraft/internal/workspace"
)

var chatExportPath string

var chatCmd = &cobra.Command{
	Use:   "chat [chatId]",
	Short: "💬 Open the interactive client",
	Long: `# 💬 Interactive Client

**Chat with the model, watch the site get built and preview it live.**

## ⌨️  Keys

- **Enter** sends, **Alt+Enter** adds a new line
- **Tab** / **Shift+Tab** switch between Chat, Code and Preview
- **Ctrl+L** lists your chats, **Ctrl+N** starts a new one
- **Ctrl+E** rewrites your draft into a better prompt
- **Ctrl+S** exports a zip, **Ctrl+D** deploys
- **Ctrl+R** rebuilds the preview, **Ctrl+X** stops it
- **Ctrl+Q** quits

Logs go to the sitecraft log file while the client is open; see **sitecraft logs**.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatExportPath, "output", "o", export.DefaultZipName, "Where Ctrl+S writes the zip")
}

func runChat(cmd *cobra.Command, args []string) error {
	if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
		return errors.New("the interactive client needs a terminal; use `sitecraft generate` for scripts")
	}
	ctx := cmd.Context()

	e, err := newEnv()
	if err != nil {
		return err
	}
	user, err := e.requireAuth(ctx)
	if err != nil {
		return err
	}

	var chatID string
	if len(args) > 0 {
		chatID = args[0]
	}

	// The TUI owns the terminal from here on
	if err := logger.ConfigureFile(e.cfg.Runtime.LogFile(), logLevel()); err != nil {
		return err
	}
	logger.Infof("🚀 Starting interactive client for %s", user.DisplayName())

	opts := tui.Options{
		ChatBackend:    e.client,
		CodegenBackend: e.client,
		Codegen:        codegen.DefaultConfig(),
		Files:          e.files,
		Deployer:       export.NewDeployer(e.client, export.BrowserOpener{}),
		Opener:         export.BrowserOpener{},
		User:           user,
		ChatID:         chatID,
		ExportPath:     chatExportPath,
	}

	lru := cache.NewLRU[[]models.Chat](cache.DefaultConfig())
	defer lru.Close()
	opts.Chats = chats.NewService(e.client, lru)

	stack, err := startPreview(ctx, e, chatID)
	if err != nil {
		logger.Warnf("⚠️  Preview disabled: %v", err)
	} else {
		defer stack.Close()
		opts.Bridge = stack.bridge
		opts.PreviewURL = stack.url
	}

	if e.cfg.MirrorFiles {
		opts.OpenWorkspace = func(id string) (*workspace.Workspace, error) {
			return workspace.Open(e.cfg.Runtime.ChatWorkspace(id), e.files, workspace.Options{
				Watch:       true,
				Checkpoints: e.cfg.Checkpoints,
			})
		}
	}

	if err := tui.NewApp(opts).Run(ctx); err != nil {
		return fmt.Errorf("interactive client failed: %w", err)
	}
	return nil
}

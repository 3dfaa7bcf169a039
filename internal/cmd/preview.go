package cmd

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"github.com/vanpelt/sitecraft/internal/export"
	"github.com/vanpelt/sitecraft/internal/handlers"
	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/preview"
	"github.com/vanpelt/sitecraft/internal/recovery"
	"github.com/vanpelt/sitecraft/internal/workspace"
)

var previewOpen bool

var previewCmd = &cobra.Command{
	Use:   "preview <chatId>",
	Short: "👀 Serve a conversation's site locally",
	Long: `# 👀 Preview

**Serve the site of a conversation with live reload.**

The files are mirrored to the chat's workspace directory. Edit them with any
editor and the page reloads with your changes. Press **Ctrl+C** to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := newEnv()
		if err != nil {
			return err
		}
		if _, err := e.requireAuth(ctx); err != nil {
			return err
		}
		chatID := args[0]
		if _, err := e.loadChat(ctx, chatID); err != nil {
			return err
		}

		stack, err := startPreview(ctx, e, chatID)
		if err != nil {
			return err
		}
		defer stack.Close()

		if e.cfg.MirrorFiles {
			ws, err := workspace.Open(e.cfg.Runtime.ChatWorkspace(chatID), e.files, workspace.Options{Watch: true})
			if err != nil {
				return err
			}
			defer ws.Close()
			fmt.Printf("📁 Editing %s reloads the page\n", ws.Dir())
		}

		states, stopStates := stack.bridge.Subscribe()
		defer stopStates()
		stack.bridge.SetActiveTab(preview.TabPreview)

		fmt.Printf("🌐 Preview at %s (Ctrl+C to stop)\n", stack.url)
		opened := !previewOpen
		for {
			select {
			case <-ctx.Done():
				fmt.Println("\n🛑 Stopping preview")
				return nil
			case st, ok := <-states:
				if !ok {
					return nil
				}
				printPreviewState(st)
				if st.Status == preview.StatusSuccess && !opened {
					opened = true
					if err := (export.BrowserOpener{}).Open(stack.url); err != nil {
						logger.Warnf("⚠️  Failed to open browser: %v", err)
					}
				}
			}
		}
	},
}

func init() {
	previewCmd.Flags().BoolVar(&previewOpen, "open", false, "Open the preview in a browser once it is ready")
}

func printPreviewState(st preview.BuildState) {
	switch st.Status {
	case preview.StatusRunning:
		fmt.Println("🔨 " + st.Message())
	case preview.StatusSuccess:
		suffix := ""
		if st.Cached {
			suffix = " (cached)"
		}
		fmt.Printf("✅ %s%s\n", st.Message(), suffix)
	case preview.StatusError:
		fmt.Printf("❌ %s: %s\n", st.Message(), st.ErrorDetail)
	}
}

// previewStack is the local preview server with the bridge driving it
type previewStack struct {
	server  *handlers.PreviewServer
	runtime *preview.LocalRuntime
	bridge  *preview.Bridge
	url     string
	cancel  context.CancelFunc
}

// startPreview listens on the configured address and builds the bridge for
// chatID. A cached build is republished so the server has pages to serve.
func startPreview(ctx context.Context, e *env, chatID string) (*previewStack, error) {
	ln, err := net.Listen("tcp", e.cfg.PreviewAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", e.cfg.PreviewAddr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	server := handlers.NewPreviewServer()
	recovery.SafeGoContext(ctx, "preview-server", func(ctx context.Context) {
		if err := server.ServeListener(ctx, ln); err != nil {
			logger.Errorf("❌ Preview server failed: %v", err)
		}
	})

	runtime := preview.NewLocalRuntime(e.files, server)
	bridge := preview.NewBridge(
		runtime,
		e.files,
		preview.OpenBuildCache(e.cfg.Runtime.PreviewCacheFile()),
		preview.DefaultConfig(preview.SessionIDFor(chatID)),
	)

	states, stopStates := bridge.Subscribe()
	recovery.SafeGoContext(ctx, "preview-restore", func(ctx context.Context) {
		defer stopStates()
		for {
			select {
			case <-ctx.Done():
				return
			case st, ok := <-states:
				if !ok {
					return
				}
				if st.Status == preview.StatusSuccess && st.Cached {
					runtime.Restore()
				}
			}
		}
	})

	return &previewStack{
		server:  server,
		runtime: runtime,
		bridge:  bridge,
		url:     "http://" + ln.Addr().String() + "/",
		cancel:  cancel,
	}, nil
}

// Close stops the bridge and shuts the server down
func (s *previewStack) Close() {
	s.bridge.Close()
	s.cancel()
}

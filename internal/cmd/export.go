package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/spf13/cobra"
	"github.com/vanpelt/sitecraft/internal/export"
	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/recovery"
)

var (
	exportOutput string
	deployNoOpen bool
)

var exportCmd = &cobra.Command{
	Use:   "export <chatId>",
	Short: "📦 Download a conversation's site as a zip",
	Long: `# 📦 Export

**Write every file of a conversation, scaffold included, to a zip archive.**

The archive is named ` + "`" + export.DefaultZipName + "`" + ` unless **--output** says otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		if _, err := e.requireAuth(cmd.Context()); err != nil {
			return err
		}
		if _, err := e.loadChat(cmd.Context(), args[0]); err != nil {
			return err
		}
		return writeExport(exportOutput, e.files.Effective())
	},
}

var deployCmd = &cobra.Command{
	Use:   "deploy <chatId>",
	Short: "🚀 Publish a conversation's site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		if _, err := e.requireAuth(cmd.Context()); err != nil {
			return err
		}
		if _, err := e.loadChat(cmd.Context(), args[0]); err != nil {
			return err
		}

		var opener export.Opener = export.BrowserOpener{}
		if deployNoOpen {
			opener = nil
		}
		url, err := deployWithProgress(cmd, export.NewDeployer(e.client, opener), e.files.Effective())
		if err != nil {
			return err
		}
		fmt.Printf("🚀 Deployed to %s\n", url)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", export.DefaultZipName, "Archive path")
	deployCmd.Flags().BoolVar(&deployNoOpen, "no-open", false, "Don't open the deployed site in a browser")
}

func writeExport(path string, fm filemap.FileMap) error {
	if err := export.WriteZipFile(path, fm); err != nil {
		return fmt.Errorf("Failed to download files: %w", err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	fmt.Printf("📦 Saved %d files to %s\n", len(fm), path)
	return nil
}

// deployWithProgress runs the deployment while drawing the cosmetic deploy
// bar on a terminal.
func deployWithProgress(cmd *cobra.Command, deployer *export.Deployer, fm filemap.FileMap) (string, error) {
	type result struct {
		url string
		err error
	}
	done := make(chan result, 1)
	recovery.SafeGo("deploy", func() {
		url, err := deployer.Deploy(cmd.Context(), fm)
		done <- result{url, err}
	})

	tty := isTerminal(os.Stdout)
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
	start := time.Now()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case r := <-done:
			if tty && r.err == nil {
				fmt.Printf("\r🚀 Deploying %s\n", bar.ViewAs(1))
			} else if tty {
				fmt.Println()
			}
			return r.url, r.err
		case <-ticker.C:
			if tty {
				pct := export.DeployProgress(time.Since(start))
				fmt.Printf("\r🚀 Deploying %s", bar.ViewAs(pct/100))
			}
		}
	}
}

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"github.com/vanpelt/sitecraft/internal/config"
	"github.com/vanpelt/sitecraft/internal/logger"
)

var (
	apiURLFlag string
	debugFlag  bool

	// appConfig is loaded once per invocation before any command runs
	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sitecraft",
	Short: "🌐 Sitecraft - Build websites by chatting with AI",
	Long: `# 🌐 Sitecraft

**Describe a website, watch it get built, preview it and ship it.**

## ✨ Features

- 💬 **Chat** with the model about your site, streamed live
- 🏗️  **Code generation** with a staged progress view
- 👀 **Local preview** with live reload while files change
- 📦 **Export** the generated files as a zip
- 🚀 **Deploy** to a public URL in one keystroke

## 🚀 Getting Started

Run **sitecraft login** once, then **sitecraft chat** to open the interactive client.

Use **sitecraft generate "a bakery landing page"** to build a site without the TUI.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func Execute() {
	ctx, stop := signalContext()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceErrors = true

	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "Backend base URL (overrides SITECRAFT_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderMarkdownHelp(cmd)
	})

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(chatCmd, generateCmd, chatsCmd)
	rootCmd.AddCommand(exportCmd, deployCmd, previewCmd, historyCmd, logsCmd)
}

// setup layers flags over the loaded configuration and points the logger at
// stderr. The chat command moves logging to a file once the TUI starts.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if apiURLFlag != "" {
		cfg.APIURL = apiURLFlag
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	cfg.Runtime.EnsureDirs()
	appConfig = cfg

	logger.Configure(logLevel(), cfg.Dev)
	logger.Debugf("🔧 Using backend %s", cfg.APIURL)
	return nil
}

func logLevel() logger.LogLevel {
	if debugFlag {
		return logger.LevelDebug
	}
	if appConfig != nil {
		level := logger.GetLogLevelFromEnv(appConfig.Dev)
		if level == logger.LevelDebug {
			return level
		}
	}
	// Normal CLI runs only show warnings so output stays readable
	return logger.LevelWarn
}

// renderMarkdownHelp renders command help using glamour for beautiful markdown display
func renderMarkdownHelp(cmd *cobra.Command) {
	var helpContent strings.Builder

	if cmd.Long != "" {
		helpContent.WriteString(cmd.Long)
		helpContent.WriteString("\n\n")
	} else if cmd.Short != "" {
		helpContent.WriteString("# " + cmd.Short)
		helpContent.WriteString("\n\n")
	}

	helpContent.WriteString("## 📖 Usage\n\n")
	helpContent.WriteString("```bash\n")
	helpContent.WriteString(cmd.UseLine())
	helpContent.WriteString("\n```\n\n")

	if cmd.HasAvailableSubCommands() {
		helpContent.WriteString("## 🔧 Available Commands\n\n")
		for _, subCmd := range cmd.Commands() {
			if subCmd.IsAvailableCommand() {
				helpContent.WriteString(fmt.Sprintf("- **%s** - %s\n", subCmd.Name(), subCmd.Short))
			}
		}
		helpContent.WriteString("\n")
	}

	if cmd.HasAvailableLocalFlags() {
		helpContent.WriteString("## ⚙️  Flags\n\n")
		if usages := cmd.LocalFlags().FlagUsages(); usages != "" {
			helpContent.WriteString("```\n")
			helpContent.WriteString(usages)
			helpContent.WriteString("```\n\n")
		}
	}

	if cmd.HasParent() && cmd.InheritedFlags().HasFlags() {
		helpContent.WriteString("## 🌐 Global Flags\n\n")
		if usages := cmd.InheritedFlags().FlagUsages(); usages != "" {
			helpContent.WriteString("```\n")
			helpContent.WriteString(usages)
			helpContent.WriteString("```\n\n")
		}
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		// Fallback to default help if glamour fails
		_ = cmd.Usage()
		return
	}

	rendered, err := renderer.Render(helpContent.String())
	if err != nil {
		_ = cmd.Usage()
		return
	}

	fmt.Print(rendered)
}

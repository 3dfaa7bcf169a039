package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/spf13/cobra"
	"github.com/vanpelt/sitecraft/internal/chat"
	"github.com/vanpelt/sitecraft/internal/codegen"
	"github.com/vanpelt/sitecraft/internal/models"
	"github.com/vanpelt/sitecraft/internal/workspace"
)

var (
	generateChatID string
	generateOutput string
)

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "🏗️  Build or change a site without the TUI",
	Long: `# 🏗️ Generate

**Send one prompt, stream the reply, then generate the site's files.**

- The reply streams to stdout as it arrives
- A progress line follows code generation
- Files are mirrored to the chat's workspace directory and checkpointed
- **--output** also writes a zip of the result

## 💡 Examples

` + "```bash\nsitecraft generate \"a landing page for a bakery\"\nsitecraft generate --chat 665f1c \"make the header pink\" -o site.zip\n```",
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateChatID, "chat", "c", "", "Continue an existing conversation")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Also write the files to this zip")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return errors.New("prompt is required")
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	if _, err := e.requireAuth(ctx); err != nil {
		return err
	}

	printer := &streamPrinter{w: os.Stdout}
	var (
		completed bool
		chatID    string
	)
	engine := chat.NewEngine(e.client, e.files, chat.Hooks{
		OnTranscript: printer.update,
		OnPromptComplete: func(prompt, id string) {
			completed = true
			chatID = id
		},
	})
	if generateChatID != "" && !engine.LoadConversation(ctx, generateChatID) {
		return fmt.Errorf("failed to load chat %s", generateChatID)
	}

	printer.start()
	engine.SubmitPrompt(ctx, text)
	fmt.Println()
	if !completed {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.New("the model did not reply")
	}

	reporter := newGenerationReporter(os.Stdout, isTerminal(os.Stdout))
	generator := codegen.NewGenerator(e.client, e.files, codegen.DefaultConfig(), reporter.report)
	defer generator.Close()

	job := generator.GenerateNow(ctx, text, chatID)
	if job.Status != codegen.StatusSuccess {
		if job.Err == "" {
			return errors.New("generation was cancelled")
		}
		return errors.New(job.Err)
	}
	for _, p := range job.Files {
		fmt.Printf("  📄 %s\n", p)
	}

	if e.cfg.MirrorFiles {
		mirrorGenerated(e, chatID, text)
	}
	if generateOutput != "" {
		if err := writeExport(generateOutput, e.files.Effective()); err != nil {
			return err
		}
	}
	if chatID != "" {
		fmt.Printf("💬 Chat %s\n", chatID)
	}
	return nil
}

// mirrorGenerated writes the files to the chat workspace and records a
// checkpoint. Failures only warn, the generation itself succeeded.
func mirrorGenerated(e *env, chatID, prompt string) {
	ws, err := workspace.Open(e.cfg.Runtime.ChatWorkspace(chatID), e.files, workspace.Options{Checkpoints: e.cfg.Checkpoints})
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to mirror files: %v\n", err)
		return
	}
	defer ws.Close()

	hash, err := ws.Checkpoint(prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to checkpoint: %v\n", err)
	}
	fmt.Printf("📁 Files in %s\n", ws.Dir())
	if hash != "" {
		fmt.Printf("📌 Checkpoint %s\n", hash[:8])
	}
}

// streamPrinter writes the growing model reply without repeating what was
// already printed.
type streamPrinter struct {
	w io.Writer

	mu     sync.Mutex
	active bool
	shown  string
}

func (p *streamPrinter) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = true
	p.shown = ""
}

func (p *streamPrinter) update(turns []models.ConversationTurn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active || len(turns) == 0 {
		return
	}
	last := turns[len(turns)-1]
	if last.Role != models.RoleModel || last.Content == p.shown {
		return
	}
	if strings.HasPrefix(last.Content, p.shown) {
		fmt.Fprint(p.w, last.Content[len(p.shown):])
	} else {
		// The reply was rewritten (an error replaced it), start a new line
		fmt.Fprint(p.w, "\n"+last.Content)
	}
	p.shown = last.Content
}

// generationReporter draws generation progress. Terminals get a redrawn bar,
// anything else gets one line per stage.
type generationReporter struct {
	w   io.Writer
	tty bool
	bar progress.Model

	mu    sync.Mutex
	stage int
}

func newGenerationReporter(w io.Writer, tty bool) *generationReporter {
	return &generationReporter{
		w:     w,
		tty:   tty,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		stage: -1,
	}
}

func (r *generationReporter) report(ev codegen.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job := ev.Job
	switch ev.Type {
	case codegen.EventStarted, codegen.EventProgress:
		if r.tty {
			fmt.Fprintf(r.w, "\r⏳ %s %3.0f%%  %-11s", r.bar.ViewAs(job.Progress/100), job.Progress, codegen.StageName(job.Stage))
			return
		}
		if job.Stage != r.stage {
			r.stage = job.Stage
			fmt.Fprintf(r.w, "⏳ %s: %s\n", codegen.StageName(job.Stage), codegen.Describe(job.Progress))
		}
	case codegen.EventSuccess:
		if r.tty {
			fmt.Fprintf(r.w, "\r✅ %s 100%%  %-11s\n", r.bar.ViewAs(1), codegen.StageName(codegen.TerminalStage))
		}
		fmt.Fprintf(r.w, "✅ Your website is ready! %d files updated\n", len(job.Files))
	case codegen.EventError:
		if r.tty {
			fmt.Fprintln(r.w)
		}
		fmt.Fprintf(r.w, "❌ %s\n", job.Err)
	}
}

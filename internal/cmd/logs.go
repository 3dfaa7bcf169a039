package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var (
	logsFollow bool
	logsLines  int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "📋 Show the interactive client's log file",
	Long: `# 📋 Client Logs

**The interactive client owns the terminal, so it logs to a file instead.**

## ✨ Features

- 📝 **Tail**: print the last lines of the log
- ⚡ **Follow**: keep printing as the client writes
- 🛑 **Ctrl+C** stops following

## 💡 Examples

Watch a running session from another terminal:
` + "```bash\nsitecraft logs -f\n```" + `

Debug logging while chatting:
` + "```bash\nsitecraft chat --debug\n```",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := appConfig.Runtime.LogFile()
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Printf("No log file yet at %s\n", path)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()

		fmt.Printf("📋 %s\n---\n", path)
		if err := tailLines(f, os.Stdout, logsLines); err != nil {
			return err
		}
		if !logsFollow {
			return nil
		}
		return followFile(cmd, f, path)
	},
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Keep printing new log lines")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "How many trailing lines to show")
}

// tailLines copies the last n lines of r to w and leaves r at its end
func tailLines(r io.Reader, w io.Writer, n int) error {
	if n <= 0 {
		_, err := io.Copy(io.Discard, r)
		return err
	}
	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}
	if len(ring) > 0 {
		_, err := fmt.Fprintln(w, strings.Join(ring, "\n"))
		return err
	}
	return nil
}

// followFile prints whatever is appended to f until the command is cancelled
func followFile(cmd *cobra.Command, f *os.File, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}

	for {
		select {
		case <-cmd.Context().Done():
			fmt.Println("\n🛑 Stopped following")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) {
				if _, err := io.Copy(os.Stdout, f); err != nil {
					return fmt.Errorf("failed to read log file: %w", err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Warning: watcher error: %v\n", err)
		}
	}
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vanpelt/sitecraft/internal/git"
	"github.com/vanpelt/sitecraft/internal/logger"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [chatId]",
	Short: "📌 List the checkpoints of a chat's workspace",
	Long: `# 📌 Checkpoint History

**Every successful generation is committed to the chat's workspace directory.**

Without a chat id the draft workspace is shown. The directory is a plain git
repository, so ` + "`git log`" + ` and ` + "`git diff`" + ` work there too.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chatID := ""
		if len(args) > 0 {
			chatID = args[0]
		}
		dir := appConfig.Runtime.ChatWorkspace(chatID)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			fmt.Println("No workspace yet for this chat")
			return nil
		}

		repo, err := git.OpenDir(dir)
		if err != nil {
			return err
		}
		checkpoints, err := repo.Log(historyLimit)
		if err != nil {
			logger.Debugf("history unavailable for %s: %v", dir, err)
			fmt.Println("No checkpoints yet")
			return nil
		}
		if len(checkpoints) == 0 {
			fmt.Println("No checkpoints yet")
			return nil
		}

		fmt.Printf("📁 %s\n", dir)
		for _, c := range checkpoints {
			fmt.Printf("%s  %s  %s\n", c.Hash[:8], c.When.Local().Format("2006-01-02 15:04"), c.Message)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "How many checkpoints to show")
}

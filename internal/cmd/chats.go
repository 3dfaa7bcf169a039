package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vanpelt/sitecraft/internal/cache"
	"github.com/vanpelt/sitecraft/internal/chats"
	"github.com/vanpelt/sitecraft/internal/models"
)

var chatsSearch string

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "📚 List and manage your conversations",
	Args:  cobra.NoArgs,
	RunE:  runChatsList,
}

var chatsListCmd = &cobra.Command{
	Use:   "list",
	Short: "📚 List your conversations",
	Args:  cobra.NoArgs,
	RunE:  runChatsList,
}

var chatsDeleteCmd = &cobra.Command{
	Use:   "delete <chatId>",
	Short: "🗑️  Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeSvc, err := chatService(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSvc()

		if err := svc.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("🗑️  Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	chatsCmd.AddCommand(chatsListCmd, chatsDeleteCmd)
	for _, c := range []*cobra.Command{chatsCmd, chatsListCmd} {
		c.Flags().StringVarP(&chatsSearch, "search", "s", "", "Only show chats whose title or messages match")
	}
}

func runChatsList(cmd *cobra.Command, args []string) error {
	svc, closeSvc, err := chatService(cmd.Context())
	if err != nil {
		return err
	}
	defer closeSvc()

	list, err := svc.List(cmd.Context())
	if err != nil {
		return err
	}
	list = chats.Search(list, chatsSearch)
	if len(list) == 0 {
		fmt.Println("No chats yet. Start one with: sitecraft chat")
		return nil
	}
	for _, c := range list {
		fmt.Println(formatChatLine(c))
	}
	return nil
}

// chatService authenticates and returns a list service with its cleanup
func chatService(ctx context.Context) (*chats.Service, func(), error) {
	e, err := newEnv()
	if err != nil {
		return nil, nil, err
	}
	if _, err := e.requireAuth(ctx); err != nil {
		return nil, nil, err
	}
	lru := cache.NewLRU[[]models.Chat](cache.DefaultConfig())
	return chats.NewService(e.client, lru), func() { _ = lru.Close() }, nil
}

func formatChatLine(c models.Chat) string {
	updated := c.UpdatedAt
	if updated.IsZero() {
		updated = c.CreatedAt
	}
	when := "-"
	if !updated.IsZero() {
		when = updated.Local().Format("2006-01-02 15:04")
	}
	return fmt.Sprintf("%-26s  %-16s  %3d msgs  %s", c.ID, when, len(c.Messages), chats.Title(c))
}

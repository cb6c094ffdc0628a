package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <conversation-id...>",
	Short: "Delete conversations",
	Long: `Delete conversations, aborting any in-flight generation first. The
store never ends up empty; deleting the last conversation creates a fresh
one.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openStoreEnv()
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer env.close()

		ids := make([]string, 0, len(args))
		for _, arg := range args {
			c, err := env.findConversation(arg)
			if err != nil {
				return err
			}
			ids = append(ids, c.ID)
		}

		next := env.store.DeleteConversations(ids, "")
		fmt.Printf("Deleted %d conversation(s), next active: %s\n", len(ids), shortID(next))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

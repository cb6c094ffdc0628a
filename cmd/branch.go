package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var branchAt string

var branchCmd = &cobra.Command{
	Use:   "branch <conversation-id>",
	Short: "Branch a conversation",
	Long: `Duplicate a conversation under a fresh id. With --at, only messages up
to and including the given message id are kept. Branch titles get an
incrementing "(n) " prefix.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openStoreEnv()
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer env.close()

		conv, err := env.findConversation(args[0])
		if err != nil {
			return err
		}

		id := env.store.BranchConversation(conv.ID, branchAt)
		if id == "" {
			return fmt.Errorf("failed to branch conversation %s", conv.ID)
		}
		fmt.Printf("Branched %s as %s\n", shortID(conv.ID), id)
		return nil
	},
}

func init() {
	branchCmd.Flags().StringVar(&branchAt, "at", "", "Cutoff message id (inclusive)")
	rootCmd.AddCommand(branchCmd)
}

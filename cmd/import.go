package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/chatkeep/internal"
	"github.com/spf13/cobra"
)

var importKeepIDs bool

var importCmd = &cobra.Command{
	Use:   "import <file...>",
	Short: "Import conversation records",
	Long: `Import portable conversation records from JSON files. Records may mix
legacy flat-text messages and current fragment-list messages; every message
is migrated and normalized on the way in.

By default an id collision reassigns the imported conversation a fresh id.
With --keep-ids the existing conversation is replaced instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openStoreEnv()
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer env.close()

		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			rec, err := internal.ParseConversationRecord(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			id, err := env.store.ImportConversation(rec, !importKeepIDs)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Printf("Imported %s as %s\n", path, id)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importKeepIDs, "keep-ids", false, "Replace existing conversations on id collision instead of reassigning")
	rootCmd.AddCommand(importCmd)
}

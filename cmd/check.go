package cmd

import (
	"fmt"

	"github.com/iksnae/chatkeep/internal"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check store health",
	Long:  `Report schema version, conversation and message counts, and orphaned blobs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openStoreEnv()
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer env.close()

		meta, err := env.docs.Meta()
		if err != nil {
			return err
		}

		convs := env.store.Conversations()
		messages := 0
		fragments := 0
		invalid := 0
		for _, c := range convs {
			messages += len(c.Messages)
			for _, m := range c.Messages {
				fragments += len(m.Fragments)
				for _, f := range m.Fragments {
					if !f.Valid() {
						invalid++
					}
				}
			}
		}

		fmt.Printf("Schema version:  %d (current: %d)\n", meta.Version, internal.SchemaVersion)
		if !meta.SavedAt.IsZero() {
			fmt.Printf("Last saved:      %s\n", meta.SavedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("Conversations:   %d\n", len(convs))
		fmt.Printf("Messages:        %d\n", messages)
		fmt.Printf("Fragments:       %d (%d invalid)\n", fragments, invalid)

		collector := internal.NewCollector(env.blobs)
		orphans, err := collector.OrphanIDs(convs)
		if err != nil {
			return err
		}
		stored, err := env.blobs.ListIDs()
		if err != nil {
			return err
		}
		fmt.Printf("Blobs:           %d (%d unreferenced)\n", len(stored), len(orphans))

		if invalid > 0 {
			return fmt.Errorf("store has %d invalid fragment(s)", invalid)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

package cmd

import (
	"context"
	"fmt"

	"github.com/iksnae/chatkeep/internal"
	"github.com/spf13/cobra"
)

var gcDryRun bool

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Garbage-collect unreferenced blobs",
	Long: `Scan every conversation for referenced binary attachments and delete
blobs nothing references anymore. When no references exist at all the pass
is skipped as a safety measure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openStoreEnv()
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer env.close()

		collector := internal.NewCollector(env.blobs)
		convs := env.store.Conversations()

		if gcDryRun {
			orphans, err := collector.OrphanIDs(convs)
			if err != nil {
				return err
			}
			for _, id := range orphans {
				fmt.Println(id)
			}
			fmt.Printf("%d unreferenced blob(s)\n", len(orphans))
			return nil
		}

		deleted, err := collector.CollectUnreferenced(context.Background(), convs)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d unreferenced blob(s)\n", deleted)
		return nil
	},
}

func init() {
	gcCmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "List unreferenced blobs without deleting")
	rootCmd.AddCommand(gcCmd)
}

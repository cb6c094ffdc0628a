package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/chatkeep/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export [conversation-id...]",
	Short: "Export conversations",
	Long: `Export conversations as portable records. With no arguments every
conversation is exported; otherwise only the named ones.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openStoreEnv()
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer env.close()

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		targets := env.store.Conversations()
		if len(args) > 0 {
			targets = targets[:0:0]
			for _, arg := range args {
				c, err := env.findConversation(arg)
				if err != nil {
					return err
				}
				targets = append(targets, c)
			}
		}

		// Single conversation with no output dir goes to stdout.
		if exportOutput == "" && len(targets) == 1 {
			return exporter.Export(targets[0], os.Stdout)
		}

		outDir := exportOutput
		if outDir == "" {
			outDir = "."
		}
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		for _, c := range targets {
			path := filepath.Join(outDir, fmt.Sprintf("conversation-%s.%s", shortID(c.ID), exporter.Extension()))
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			if err := exporter.Export(c, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Printf("Exported %s\n", path)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format (json, jsonl, md, yaml)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output directory (default: stdout for one conversation)")
	rootCmd.AddCommand(exportCmd)
}

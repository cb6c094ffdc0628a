package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	generatingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations",
	Long:  `List all conversations in the store with metadata.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openStoreEnv()
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer env.close()

		convs := env.store.Conversations()
		fmt.Println(headerStyle.Render(fmt.Sprintf("Conversations (%d)", len(convs))))

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		for _, c := range convs {
			title := titleStyle.Render(c.Title("(untitled)"))
			id := idStyle.Render(shortID(c.ID))
			count := countStyle.Render(fmt.Sprintf("%d msgs", len(c.Messages)))
			tokens := countStyle.Render(fmt.Sprintf("%d tok", c.TokenCount))
			updated := dateStyle.Render(c.Updated.Format("2006-01-02 15:04"))
			state := ""
			if c.IsGenerating() {
				state = generatingStyle.Render("generating")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", id, title, count, tokens, updated, state)
		}
		return w.Flush()
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(listCmd)
}

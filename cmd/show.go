package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/chatkeep/internal"
	"github.com/spf13/cobra"
)

var (
	roleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	voidStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	attachStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135"))
)

var showCmd = &cobra.Command{
	Use:   "show <conversation-id>",
	Short: "Show a conversation",
	Long:  `Show a conversation with fragment-level detail.`,
	Args:  cobra.ExactArgs(1),
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

		fmt.Println(headerStyle.Render(conv.Title("(untitled)")))
		fmt.Printf("%s persona=%s tokens=%d\n\n",
			idStyle.Render(conv.ID), conv.PersonaID, conv.TokenCount)

		for _, msg := range conv.Messages {
			fmt.Println(roleStyle.Render(string(msg.Role) + ":"))
			for _, frag := range msg.Fragments {
				printFragment(frag)
			}
			fmt.Println()
		}
		return nil
	},
}

func printFragment(frag *internal.Fragment) {
	if frag.Part == nil {
		return
	}
	switch p := frag.Part.(type) {
	case *internal.TextPart:
		fmt.Println(p.Text)
	case *internal.ErrorPart:
		fmt.Println(errStyle.Render("error: " + p.Error))
	case *internal.DocPart:
		title := frag.Title
		if title == "" {
			title = p.Title
		}
		fmt.Println(attachStyle.Render(fmt.Sprintf("[attachment %s v%d, %d bytes]", title, p.Version, len(p.Data))))
	case *internal.ImageRefPart:
		fmt.Println(attachStyle.Render(fmt.Sprintf("[image %dx%d]", p.Width, p.Height)))
	case *internal.ReferencePart:
		fmt.Println(attachStyle.Render("[asset " + shortID(p.AssetID) + "]"))
	case *internal.ToolInvocationPart:
		fmt.Println(voidStyle.Render("[tool call " + p.Name + "]"))
	case *internal.ToolResponsePart:
		fmt.Println(voidStyle.Render("[tool result]"))
	case *internal.ModelAuxPart:
		fmt.Println(voidStyle.Render("[reasoning] " + p.Text))
	case *internal.PlaceholderPart:
		fmt.Println(voidStyle.Render("[pending] " + p.Text))
	default:
		fmt.Println(voidStyle.Render(fmt.Sprintf("[%s]", frag.Part.PartType())))
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
}

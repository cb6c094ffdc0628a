package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/chatkeep/internal"
)

// MarkdownExporter exports conversations in Markdown format
type MarkdownExporter struct{}

// Export exports a conversation to Markdown format
func (e *MarkdownExporter) Export(conv *internal.Conversation, w io.Writer) error {
	// Header
	_, _ = fmt.Fprintf(w, "# %s\n\n", conv.Title("Conversation "+conv.ID))

	_, _ = fmt.Fprintf(w, "**Persona:** %s  \n", conv.PersonaID)
	_, _ = fmt.Fprintf(w, "**Messages:** %d  \n", len(conv.Messages))
	if !conv.Created.IsZero() {
		_, _ = fmt.Fprintf(w, "**Created:** %s\n\n", conv.Created.Format("2006-01-02 15:04"))
	}

	_, _ = fmt.Fprintf(w, "---\n\n")

	// Messages
	for i, msg := range conv.Messages {
		_, _ = fmt.Fprintf(w, "**%s:**\n\n", msg.Role)

		for _, frag := range msg.Fragments {
			renderFragment(w, frag)
		}

		// Add horizontal rule after each message (except the last one)
		if i < len(conv.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// renderFragment writes one fragment. Void fragments render as quoted
// asides so their bookkeeping content is visibly not message content.
func renderFragment(w io.Writer, frag *internal.Fragment) {
	if frag.Part == nil {
		return
	}

	switch p := frag.Part.(type) {
	case *internal.TextPart:
		_, _ = fmt.Fprintf(w, "%s\n\n", escapeMarkdown(p.Text))
	case *internal.ErrorPart:
		_, _ = fmt.Fprintf(w, "> ⚠ %s\n\n", p.Error)
	case *internal.DocPart:
		title := frag.Title
		if title == "" {
			title = p.Title
		}
		_, _ = fmt.Fprintf(w, "**Attachment:** %s (v%d)\n\n```\n%s\n```\n\n", title, p.Version, p.Data)
	case *internal.ImageRefPart:
		_, _ = fmt.Fprintf(w, "![%s](%s)\n\n", p.AltText, imageRefTarget(p))
	case *internal.ReferencePart:
		_, _ = fmt.Fprintf(w, "![asset](chatkeep://blob/%s)\n\n", p.AssetID)
	case *internal.ToolInvocationPart:
		_, _ = fmt.Fprintf(w, "**Tool call:** `%s`\n\n", p.Name)
	case *internal.ToolResponsePart:
		if p.Error != "" {
			_, _ = fmt.Fprintf(w, "**Tool result (error):** %s\n\n", p.Error)
		} else {
			_, _ = fmt.Fprintf(w, "**Tool result:**\n\n```\n%s\n```\n\n", p.Response)
		}
	case *internal.ModelAuxPart:
		_, _ = fmt.Fprintf(w, "> _%s_\n\n", p.Text)
	default:
		// Annotations, placeholders, unknown shapes: nothing to render.
	}
}

func imageRefTarget(p *internal.ImageRefPart) string {
	if p.DataRef.Kind == "blob" {
		return "chatkeep://blob/" + p.DataRef.BlobID
	}
	return p.DataRef.URL
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	// Basic escaping - preserve code blocks
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			// Escape markdown syntax outside code blocks
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}

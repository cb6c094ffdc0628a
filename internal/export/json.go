package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/chatkeep/internal"
)

// JSONExporter exports conversations as portable records in JSON format
// (pretty-printed). The record is the data-at-rest boundary shape: it
// re-imports cleanly through the migration and normalization pipeline.
type JSONExporter struct{}

// Export exports a conversation to JSON format
func (e *JSONExporter) Export(conv *internal.Conversation, w io.Writer) error {
	rec, err := internal.FormatConversationToRecord(conv)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(rec)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}

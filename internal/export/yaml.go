package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/chatkeep/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter exports conversations as portable records in YAML format
type YAMLExporter struct{}

// Export exports a conversation to YAML format
func (e *YAMLExporter) Export(conv *internal.Conversation, w io.Writer) error {
	rec, err := internal.FormatConversationToRecord(conv)
	if err != nil {
		return err
	}

	// Round-trip through JSON so raw message payloads become plain maps
	// instead of opaque byte slices in the YAML output.
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()

	return enc.Encode(doc)
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}

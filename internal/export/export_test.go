package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/iksnae/chatkeep/internal"
)

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{"jsonl", "jsonl", false},
		{"md", "md", false},
		{"markdown", "md", false},
		{"yaml", "yaml", false},
		{"json", "json", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			e, err := NewExporter(tt.format)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error for unsupported format")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewExporter() error: %v", err)
			}
			if e.Extension() != tt.wantExt {
				t.Errorf("Extension() = %q, want %q", e.Extension(), tt.wantExt)
			}
		})
	}
}

func TestJSONLExport(t *testing.T) {
	conv := internal.CreateTestConversation("Export Me")

	var buf bytes.Buffer
	if err := (&JSONLExporter{}).Export(conv, &buf); err != nil {
		t.Fatalf("Export() error: %v", err)
	}

	scanner := bufio.NewScanner(&buf)
	var lines []map[string]any
	for scanner.Scan() {
		var obj map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &obj); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		lines = append(lines, obj)
	}

	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0]["role"] != "user" || lines[1]["role"] != "assistant" {
		t.Errorf("roles = (%v, %v), want (user, assistant)", lines[0]["role"], lines[1]["role"])
	}
	if lines[0]["content"] != "Hello, how are you?" {
		t.Errorf("content = %v, want the user turn text", lines[0]["content"])
	}
}

func TestJSONExportParses(t *testing.T) {
	conv := internal.CreateTestConversation("As JSON")

	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(conv, &buf); err != nil {
		t.Fatalf("Export() error: %v", err)
	}

	rec, err := internal.ParseConversationRecord(buf.Bytes())
	if err != nil {
		t.Fatalf("exported JSON is not a valid record: %v", err)
	}
	if rec.ID != conv.ID {
		t.Errorf("ID = %q, want %q", rec.ID, conv.ID)
	}
	if len(rec.Messages) != 2 {
		t.Errorf("len(Messages) = %d, want 2", len(rec.Messages))
	}
}

func TestYAMLExportParses(t *testing.T) {
	conv := internal.CreateTestConversation("As YAML")

	var buf bytes.Buffer
	if err := (&YAMLExporter{}).Export(conv, &buf); err != nil {
		t.Fatalf("Export() error: %v", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("exported YAML does not parse: %v", err)
	}
	if doc["id"] != conv.ID {
		t.Errorf("id = %v, want %q", doc["id"], conv.ID)
	}
}

func TestMarkdownExport(t *testing.T) {
	msg := internal.NewMessage(internal.RoleAssistant)
	msg.Fragments = []*internal.Fragment{
		internal.NewTextFragment("plain answer"),
		internal.NewErrorFragment("something failed"),
		internal.CreateTestAttachment("notes.txt", "attached body"),
	}
	conv := internal.CreateTestConversationWithMessages("Markdown Title", []*internal.Message{msg})

	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(conv, &buf); err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Markdown Title",
		"plain answer",
		"something failed",
		"notes.txt",
		"attached body",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownEscapesOutsideCodeBlocks(t *testing.T) {
	conv := internal.CreateTestConversationWithMessages("Escapes", []*internal.Message{
		internal.NewTextMessage(internal.RoleUser, "**bold** text\n```\n**verbatim**\n```"),
	})

	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(conv, &buf); err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, `\*\*bold\*\*`) {
		t.Errorf("markdown syntax not escaped outside code block:\n%s", out)
	}
	if !strings.Contains(out, "**verbatim**") {
		t.Errorf("code block content was escaped:\n%s", out)
	}
}

package internal

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNewFragmentKinds(t *testing.T) {
	tests := []struct {
		name     string
		fragment *Fragment
		wantKind FragmentKind
	}{
		{"text content", NewTextFragment("hi"), FragmentKindContent},
		{"error content", NewErrorFragment("boom"), FragmentKindContent},
		{"attachment", NewAttachmentFragment(&DocPart{MimeKind: "text/plain", Data: "notes", Ref: "d1"}, "Notes", ""), FragmentKindAttachment},
		{"void", NewVoidFragment(&AnnotationsPart{}), FragmentKindVoid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.fragment.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", tt.fragment.Kind, tt.wantKind)
			}
			if tt.fragment.ID == "" {
				t.Error("fragment has no ID")
			}
			if !tt.fragment.Valid() {
				t.Error("Valid() = false for a freshly built fragment")
			}
		})
	}
}

func TestFragmentValidRejectsMismatchedKind(t *testing.T) {
	tests := []struct {
		name     string
		fragment *Fragment
		want     bool
	}{
		{"nil part", &Fragment{Kind: FragmentKindContent, ID: NewFragmentID()}, false},
		{"no kind", &Fragment{ID: NewFragmentID(), Part: &TextPart{Text: "x"}}, false},
		{"void part in content slot", &Fragment{Kind: FragmentKindContent, ID: NewFragmentID(), Part: &AnnotationsPart{}}, false},
		{"content part in void slot", &Fragment{Kind: FragmentKindVoid, ID: NewFragmentID(), Part: &TextPart{Text: "x"}}, false},
		{"doc as content", NewContentFragment(&DocPart{MimeKind: "text/markdown", Data: "# t", Ref: "d"}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fragment.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDuplicateFragment(t *testing.T) {
	orig := NewAttachmentFragment(&DocPart{MimeKind: "text/plain", Data: "body", Ref: "d1", Version: 2}, "Title", "Caption")
	orig.OriginID = "origin-1"
	orig.VendorState = map[string]any{"nested": map[string]any{"k": "v"}}

	dup := DuplicateFragment(orig)

	if dup.ID == orig.ID {
		t.Error("duplicate kept the original fragment ID")
	}
	if dup.OriginID != orig.OriginID {
		t.Errorf("OriginID = %q, want %q", dup.OriginID, orig.OriginID)
	}
	if dup.Part == orig.Part {
		t.Error("duplicate shares the part pointer with the original")
	}
	if !reflect.DeepEqual(dup.Part, orig.Part) {
		t.Errorf("duplicate part differs:\ngot  %+v\nwant %+v", dup.Part, orig.Part)
	}

	// Vendor state must be a deep copy.
	dup.VendorState["nested"].(map[string]any)["k"] = "changed"
	if orig.VendorState["nested"].(map[string]any)["k"] == "changed" {
		t.Error("duplicate shares vendor state with the original")
	}
}

func TestUpdateFragmentWithEditedText(t *testing.T) {
	t.Run("text part", func(t *testing.T) {
		orig := NewTextFragment("before")
		edited, ok := UpdateFragmentWithEditedText(orig, "after")
		if !ok {
			t.Fatal("UpdateFragmentWithEditedText() = false for a text fragment")
		}
		if edited.ID != orig.ID {
			t.Errorf("edit changed the fragment ID: got %q, want %q", edited.ID, orig.ID)
		}
		if got := edited.Part.(*TextPart).Text; got != "after" {
			t.Errorf("edited text = %q, want %q", got, "after")
		}
		if orig.Part.(*TextPart).Text != "before" {
			t.Error("edit mutated the original fragment")
		}
	})

	t.Run("doc part bumps version", func(t *testing.T) {
		orig := NewAttachmentFragment(&DocPart{MimeKind: "text/markdown", Data: "v1", Ref: "d1", Version: 3}, "Doc", "")
		edited, ok := UpdateFragmentWithEditedText(orig, "v2")
		if !ok {
			t.Fatal("UpdateFragmentWithEditedText() = false for a doc fragment")
		}
		doc := edited.Part.(*DocPart)
		if doc.Data != "v2" {
			t.Errorf("Data = %q, want %q", doc.Data, "v2")
		}
		if doc.Version != 4 {
			t.Errorf("Version = %d, want 4", doc.Version)
		}
	})

	t.Run("non-editable part", func(t *testing.T) {
		orig := NewContentFragment(&ToolInvocationPart{ID: "t1", Name: "search"})
		if _, ok := UpdateFragmentWithEditedText(orig, "x"); ok {
			t.Error("UpdateFragmentWithEditedText() = true for a tool invocation")
		}
	})
}

func TestFragmentJSONRoundTrip(t *testing.T) {
	orig := NewAttachmentFragment(&DocPart{MimeKind: "text/plain", Data: "hello", Ref: "d1", Version: 1}, "Greeting", "a caption")
	orig.VendorState = map[string]any{"source": "upload"}

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var back Fragment
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if back.ID != orig.ID || back.Kind != orig.Kind || back.Title != orig.Title || back.Caption != orig.Caption {
		t.Errorf("round trip changed fragment header:\ngot  %+v\nwant %+v", back, orig)
	}
	if !reflect.DeepEqual(back.Part, orig.Part) {
		t.Errorf("round trip changed part:\ngot  %+v\nwant %+v", back.Part, orig.Part)
	}
}

func TestFragmentUnmarshalLegacyKindKey(t *testing.T) {
	raw := []byte(`{"ft":"content","fragmentId":"f-1","part":{"pt":"text","text":"old data"}}`)

	var f Fragment
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if f.Kind != FragmentKindContent {
		t.Errorf("Kind = %q, want %q", f.Kind, FragmentKindContent)
	}
	if f.ID != "f-1" {
		t.Errorf("ID = %q, want %q", f.ID, "f-1")
	}
	if got := f.Part.(*TextPart).Text; got != "old data" {
		t.Errorf("text = %q, want %q", got, "old data")
	}
}

func TestFragmentUnmarshalUnreadablePart(t *testing.T) {
	// A structurally broken part leaves the fragment without a part; the
	// normalizer drops it later instead of failing the whole load.
	raw := []byte(`{"fragmentKind":"content","fragmentId":"f-1","part":"not an object"}`)

	var f Fragment
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if f.Part != nil {
		t.Errorf("Part = %+v, want nil", f.Part)
	}
	if f.Valid() {
		t.Error("Valid() = true for a fragment without a part")
	}
}

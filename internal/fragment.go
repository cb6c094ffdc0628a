package internal

import (
	"encoding/json"
	"fmt"
	"time"
)

// FragmentKind classifies how a fragment participates in a message.
type FragmentKind string

const (
	// FragmentKindContent fragments are the message body sent to models.
	FragmentKindContent FragmentKind = "content"
	// FragmentKindAttachment fragments carry user-attached files or assets.
	FragmentKindAttachment FragmentKind = "attachment"
	// FragmentKindVoid fragments are local bookkeeping, never sent to a
	// model and never treated as durable content.
	FragmentKindVoid FragmentKind = "void"
)

// Fragment is the unit of message content: exactly one part plus
// fragment-level identity and metadata. Fragment IDs are unique within their
// owning message only.
type Fragment struct {
	Kind     FragmentKind
	ID       string
	Part     Part
	OriginID string
	// VendorState is an opaque, lossy-safe bag of vendor metadata. It must
	// round-trip through duplication and export, but dropping it never
	// breaks correctness.
	VendorState map[string]any

	// Attachment-only metadata.
	Title      string
	Caption    string
	Created    time.Time
	LiveFileID string
}

// IsContentPartType reports whether a part kind may live in a content
// fragment.
func IsContentPartType(pt PartType) bool {
	switch pt {
	case PartTypeText, PartTypeReference, PartTypeImageRef,
		PartTypeToolInvocation, PartTypeToolResponse, PartTypeError:
		return true
	default:
		return false
	}
}

// IsAttachmentPartType reports whether a part kind may live in an attachment
// fragment.
func IsAttachmentPartType(pt PartType) bool {
	switch pt {
	case PartTypeDoc, PartTypeReference, PartTypeImageRef:
		return true
	default:
		return false
	}
}

// IsVoidPartType reports whether a part kind may live in a void fragment.
func IsVoidPartType(pt PartType) bool {
	switch pt {
	case PartTypeAnnotations, PartTypeModelAux, PartTypePlaceholder:
		return true
	default:
		return false
	}
}

// NewContentFragment wraps a content-subset part in a fresh fragment.
func NewContentFragment(p Part) *Fragment {
	return &Fragment{
		Kind: FragmentKindContent,
		ID:   NewFragmentID(),
		Part: p,
	}
}

// NewTextFragment is a shorthand for the most common content fragment.
func NewTextFragment(text string) *Fragment {
	return NewContentFragment(&TextPart{Text: text})
}

// NewErrorFragment wraps an error part in a content fragment.
func NewErrorFragment(message string) *Fragment {
	return NewContentFragment(&ErrorPart{Error: message})
}

// NewAttachmentFragment wraps an attachment-subset part with its metadata.
func NewAttachmentFragment(p Part, title, caption string) *Fragment {
	return &Fragment{
		Kind:    FragmentKindAttachment,
		ID:      NewFragmentID(),
		Part:    p,
		Title:   title,
		Caption: caption,
		Created: time.Now(),
	}
}

// NewVoidFragment wraps a void-subset part in a fresh fragment.
func NewVoidFragment(p Part) *Fragment {
	return &Fragment{
		Kind: FragmentKindVoid,
		ID:   NewFragmentID(),
		Part: p,
	}
}

// Valid reports whether the fragment's part kind matches its fragment kind.
func (f *Fragment) Valid() bool {
	if f.Part == nil || f.ID == "" {
		return false
	}
	pt := f.Part.PartType()
	switch f.Kind {
	case FragmentKindContent:
		return IsContentPartType(pt)
	case FragmentKindAttachment:
		return IsAttachmentPartType(pt)
	case FragmentKindVoid:
		return IsVoidPartType(pt)
	default:
		return false
	}
}

// DuplicateFragment returns a structurally independent copy with a fresh
// fragment id. OriginID is preserved and VendorState is deep-copied.
// Unknown part shapes are cloned structurally rather than dropped.
func DuplicateFragment(f *Fragment) *Fragment {
	c := *f
	c.ID = NewFragmentID()
	c.Part = f.Part.ClonePart()
	c.VendorState = cloneAnyMap(f.VendorState)
	return &c
}

// UpdateFragmentWithEditedText rewrites the fragment's textual payload in
// place of the old one, preserving the fragment id and origin. Doc
// attachments get their version counter bumped. Returns false when the
// fragment's part has no editable text.
func UpdateFragmentWithEditedText(f *Fragment, text string) (*Fragment, bool) {
	c := *f
	switch p := f.Part.(type) {
	case *TextPart:
		c.Part = &TextPart{Text: text}
	case *ErrorPart:
		c.Part = &ErrorPart{Error: text, Hint: p.Hint}
	case *DocPart:
		np := *p
		np.Data = text
		np.Version = p.Version + 1
		np.Meta = cloneAnyMap(p.Meta)
		c.Part = &np
	case *PlaceholderPart:
		np := *p
		np.Text = text
		c.Part = &np
	default:
		return f, false
	}
	return &c, true
}

// fragmentJSON is the wire shape of a fragment. The discriminator key used
// to be "ft"; both keys are accepted on read, "fragmentKind" is written.
type fragmentJSON struct {
	FragmentKind FragmentKind    `json:"fragmentKind,omitempty"`
	LegacyKind   FragmentKind    `json:"ft,omitempty"`
	ID           string          `json:"fragmentId"`
	Part         json.RawMessage `json:"part,omitempty"`
	OriginID     string          `json:"originId,omitempty"`
	VendorState  map[string]any  `json:"vendorState,omitempty"`
	Title        string          `json:"title,omitempty"`
	Caption      string          `json:"caption,omitempty"`
	Created      *time.Time      `json:"created,omitempty"`
	LiveFileID   string          `json:"liveFileId,omitempty"`
}

// MarshalJSON encodes the fragment with its part envelope.
func (f *Fragment) MarshalJSON() ([]byte, error) {
	out := fragmentJSON{
		FragmentKind: f.Kind,
		ID:           f.ID,
		OriginID:     f.OriginID,
		VendorState:  f.VendorState,
		Title:        f.Title,
		Caption:      f.Caption,
		LiveFileID:   f.LiveFileID,
	}
	if !f.Created.IsZero() {
		t := f.Created
		out.Created = &t
	}
	if f.Part != nil {
		part, err := MarshalPart(f.Part)
		if err != nil {
			return nil, fmt.Errorf("fragment %s: %w", f.ID, err)
		}
		out.Part = part
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a fragment. A fragment whose discriminator or part
// cannot be read comes back with a zero Kind or nil Part; normalization
// drops those instead of failing the whole conversation.
func (f *Fragment) UnmarshalJSON(data []byte) error {
	var raw fragmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse fragment JSON: %w", err)
	}

	kind := raw.FragmentKind
	if kind == "" {
		kind = raw.LegacyKind
	}
	f.Kind = kind
	f.ID = raw.ID
	f.OriginID = raw.OriginID
	f.VendorState = raw.VendorState
	f.Title = raw.Title
	f.Caption = raw.Caption
	f.LiveFileID = raw.LiveFileID
	if raw.Created != nil {
		f.Created = *raw.Created
	}

	if len(raw.Part) > 0 {
		part, err := UnmarshalPart(raw.Part)
		if err != nil {
			// Leave Part nil; the normalizer drops the fragment.
			LogWarn("dropping unreadable part on fragment %s: %v", f.ID, err)
			return nil
		}
		f.Part = part
	}
	return nil
}

package internal

import (
	"encoding/json"
	"fmt"
)

// PartType identifies the payload kind carried by a fragment.
type PartType string

const (
	PartTypeText           PartType = "text"
	PartTypeError          PartType = "error"
	PartTypeImageRef       PartType = "image_ref" // legacy inline image reference
	PartTypeReference      PartType = "reference"
	PartTypeDoc            PartType = "doc"
	PartTypeToolInvocation PartType = "tool_invocation"
	PartTypeToolResponse   PartType = "tool_response"
	PartTypeAnnotations    PartType = "annotations"
	PartTypeModelAux       PartType = "model_aux"
	PartTypePlaceholder    PartType = "placeholder"
)

// Part is the smallest typed content payload of a fragment. Parts are
// immutable value objects; they carry no identity of their own.
type Part interface {
	PartType() PartType
	// ClonePart returns a structurally independent copy.
	ClonePart() Part
}

// TextPart holds plain text content.
type TextPart struct {
	Text string `json:"text"`
}

func (p *TextPart) PartType() PartType { return PartTypeText }
func (p *TextPart) ClonePart() Part    { c := *p; return &c }

// ErrorPart holds a user-visible error with an optional remediation hint.
type ErrorPart struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

func (p *ErrorPart) PartType() PartType { return PartTypeError }
func (p *ErrorPart) ClonePart() Part    { c := *p; return &c }

// DataRef points at binary data, either a blob in the blob store or an
// external URL.
type DataRef struct {
	Kind     string `json:"kind"` // "blob" or "url"
	BlobID   string `json:"blobId,omitempty"`
	URL      string `json:"url,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	ByteSize int64  `json:"byteSize,omitempty"`
}

// ImageRefPart is the legacy inline image reference. New data uses
// ReferencePart; this shape is still accepted and persisted for old
// conversations.
type ImageRefPart struct {
	DataRef DataRef `json:"dataRef"`
	AltText string  `json:"altText,omitempty"`
	Width   int     `json:"width,omitempty"`
	Height  int     `json:"height,omitempty"`
}

func (p *ImageRefPart) PartType() PartType { return PartTypeImageRef }
func (p *ImageRefPart) ClonePart() Part    { c := *p; return &c }

// ReferencePart points at an asset by UUID. LegacyImage keeps the inline
// fallback for data written before asset references existed.
type ReferencePart struct {
	RefKind     string        `json:"refKind"` // "asset"
	AssetID     string        `json:"assetId"`
	AssetType   string        `json:"assetType,omitempty"` // "image", ...
	LegacyImage *ImageRefPart `json:"legacyImage,omitempty"`
}

func (p *ReferencePart) PartType() PartType { return PartTypeReference }
func (p *ReferencePart) ClonePart() Part {
	c := *p
	if p.LegacyImage != nil {
		li := *p.LegacyImage
		c.LegacyImage = &li
	}
	return &c
}

// DocPart holds an attached document with its own version counter.
type DocPart struct {
	MimeKind string         `json:"mimeKind"`
	Data     string         `json:"data"`
	Ref      string         `json:"ref"`
	Title    string         `json:"title,omitempty"`
	Version  int            `json:"version"`
	Meta     map[string]any `json:"meta,omitempty"`
}

func (p *DocPart) PartType() PartType { return PartTypeDoc }
func (p *DocPart) ClonePart() Part {
	c := *p
	c.Meta = cloneAnyMap(p.Meta)
	return &c
}

// ToolInvocationPart records a tool call issued by the model.
type ToolInvocationPart struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Args       string `json:"args,omitempty"` // JSON-encoded arguments
	Invocation string `json:"invocation,omitempty"`
}

func (p *ToolInvocationPart) PartType() PartType { return PartTypeToolInvocation }
func (p *ToolInvocationPart) ClonePart() Part    { c := *p; return &c }

// ToolResponsePart records the outcome of a tool call.
type ToolResponsePart struct {
	ID          string `json:"id"`
	Error       string `json:"error,omitempty"`
	Response    string `json:"response,omitempty"`
	Environment string `json:"environment,omitempty"`
}

func (p *ToolResponsePart) PartType() PartType { return PartTypeToolResponse }
func (p *ToolResponsePart) ClonePart() Part    { c := *p; return &c }

// TextRange marks a span of text in character offsets.
type TextRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Citation links a span of generated text to a source.
type Citation struct {
	Title  string      `json:"title,omitempty"`
	URL    string      `json:"url,omitempty"`
	Ranges []TextRange `json:"ranges,omitempty"`
}

// AnnotationsPart carries citations attached to a message. Never sent to a
// model.
type AnnotationsPart struct {
	Citations []Citation `json:"citations"`
}

func (p *AnnotationsPart) PartType() PartType { return PartTypeAnnotations }
func (p *AnnotationsPart) ClonePart() Part {
	c := *p
	c.Citations = make([]Citation, len(p.Citations))
	for i, cit := range p.Citations {
		cc := cit
		cc.Ranges = append([]TextRange(nil), cit.Ranges...)
		c.Citations[i] = cc
	}
	return &c
}

// ModelAuxPart carries model-auxiliary output such as a reasoning trace.
type ModelAuxPart struct {
	AuxKind      string `json:"auxKind"` // "reasoning"
	Text         string `json:"text"`
	Signature    string `json:"signature,omitempty"`
	RedactedData string `json:"redactedData,omitempty"`
}

func (p *ModelAuxPart) PartType() PartType { return PartTypeModelAux }
func (p *ModelAuxPart) ClonePart() Part    { c := *p; return &c }

// PlaceholderPart stands in for content of an asynchronous operation that has
// not completed yet.
type PlaceholderPart struct {
	Text         string `json:"text"`
	Kind         string `json:"kind,omitempty"`
	ModelOp      string `json:"modelOp,omitempty"`
	RetryControl string `json:"retryControl,omitempty"`
}

func (p *PlaceholderPart) PartType() PartType { return PartTypePlaceholder }
func (p *PlaceholderPart) ClonePart() Part    { c := *p; return &c }

// UnknownPart preserves a part whose type this build does not recognize.
// The raw JSON round-trips untouched so newer data survives older software.
type UnknownPart struct {
	Type PartType
	Raw  json.RawMessage
}

func (p *UnknownPart) PartType() PartType { return p.Type }
func (p *UnknownPart) ClonePart() Part {
	return &UnknownPart{Type: p.Type, Raw: append(json.RawMessage(nil), p.Raw...)}
}

// MarshalPart encodes a part as a JSON object with a "pt" discriminator.
func MarshalPart(p Part) ([]byte, error) {
	if u, ok := p.(*UnknownPart); ok {
		// Raw already contains its own discriminator.
		return append([]byte(nil), u.Raw...), nil
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal part: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to re-read part fields: %w", err)
	}
	fields["pt"] = json.RawMessage(fmt.Sprintf("%q", p.PartType()))
	return json.Marshal(fields)
}

// UnmarshalPart decodes a part by its "pt" discriminator. Unrecognized
// discriminators come back as UnknownPart; a missing discriminator is an
// error (the caller decides whether to drop the fragment).
func UnmarshalPart(data []byte) (Part, error) {
	var probe struct {
		Type PartType `json:"pt"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse part JSON: %w", err)
	}
	if probe.Type == "" {
		return nil, fmt.Errorf("part missing discriminator")
	}

	var p Part
	switch probe.Type {
	case PartTypeText:
		p = &TextPart{}
	case PartTypeError:
		p = &ErrorPart{}
	case PartTypeImageRef:
		p = &ImageRefPart{}
	case PartTypeReference:
		p = &ReferencePart{}
	case PartTypeDoc:
		p = &DocPart{}
	case PartTypeToolInvocation:
		p = &ToolInvocationPart{}
	case PartTypeToolResponse:
		p = &ToolResponsePart{}
	case PartTypeAnnotations:
		p = &AnnotationsPart{}
	case PartTypeModelAux:
		p = &ModelAuxPart{}
	case PartTypePlaceholder:
		p = &PlaceholderPart{}
	default:
		return &UnknownPart{Type: probe.Type, Raw: append(json.RawMessage(nil), data...)}, nil
	}

	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse %s part: %w", probe.Type, err)
	}
	return p, nil
}

// PartText returns the primary textual payload of a part, or "" when the
// part has none.
func PartText(p Part) string {
	switch v := p.(type) {
	case *TextPart:
		return v.Text
	case *ErrorPart:
		return v.Error
	case *DocPart:
		return v.Data
	case *ModelAuxPart:
		return v.Text
	case *PlaceholderPart:
		return v.Text
	case *ImageRefPart:
		return v.AltText
	default:
		return ""
	}
}

// cloneAnyMap deep-copies a JSON-shaped map (maps, slices, scalars).
func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneAnyValue(v)
	}
	return out
}

func cloneAnyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneAnyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneAnyValue(e)
		}
		return out
	default:
		return t
	}
}

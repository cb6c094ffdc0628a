package internal

import (
	"encoding/json"
	"time"
)

// Role identifies the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// NotifyFlag marks a message that should fire a completion notification.
// It is UI-session state and is stripped on reload.
const NotifyFlag = "notify-complete"

// StarredFlag marks a user-starred message.
const StarredFlag = "starred"

// Message is an ordered list of fragments plus role and per-message
// metadata.
type Message struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Fragments []*Fragment `json:"fragments"`

	// PendingIncomplete marks a message a generation is still writing
	// into. While set, TokenCount is stale and the message is excluded
	// from cost accounting.
	PendingIncomplete bool `json:"pendingIncomplete,omitempty"`

	Generator string         `json:"generator,omitempty"`
	PurposeID string         `json:"purposeId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	UserFlags []string       `json:"userFlags,omitempty"`

	// TokenCount caches the estimated cost of Fragments; recomputed on
	// every fragment change while the message is not pending.
	TokenCount int `json:"tokenCount"`

	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// NewMessage creates an empty message with a generated id.
func NewMessage(role Role) *Message {
	now := time.Now()
	return &Message{
		ID:        NewMessageID(),
		Role:      role,
		Fragments: []*Fragment{},
		Created:   now,
		Updated:   now,
	}
}

// NewTextMessage creates a message holding a single text fragment.
func NewTextMessage(role Role, text string) *Message {
	m := NewMessage(role)
	m.Fragments = []*Fragment{NewTextFragment(text)}
	return m
}

// NewPendingMessage creates an assistant message a generation will stream
// fragments into.
func NewPendingMessage(generator string) *Message {
	m := NewMessage(RoleAssistant)
	m.Generator = generator
	m.PendingIncomplete = true
	return m
}

// DuplicateMessage deep-copies a message under a fresh id. Fragment ids are
// refreshed too; origin and vendor metadata carry over.
func DuplicateMessage(m *Message) *Message {
	c := *m
	c.ID = NewMessageID()
	c.Fragments = make([]*Fragment, len(m.Fragments))
	for i, f := range m.Fragments {
		c.Fragments[i] = DuplicateFragment(f)
	}
	c.Metadata = cloneAnyMap(m.Metadata)
	c.UserFlags = append([]string(nil), m.UserFlags...)
	return &c
}

// WithFragments returns a copy of the message holding the given fragment
// list, with Updated stamped. The receiver is not modified.
func (m *Message) WithFragments(frags []*Fragment) *Message {
	c := *m
	c.Fragments = frags
	c.Updated = time.Now()
	return &c
}

// FragmentByID returns the fragment with the given id, or nil.
func (m *Message) FragmentByID(fragmentID string) *Fragment {
	for _, f := range m.Fragments {
		if f.ID == fragmentID {
			return f
		}
	}
	return nil
}

// HasFlag reports whether a user flag is set.
func (m *Message) HasFlag(flag string) bool {
	for _, fl := range m.UserFlags {
		if fl == flag {
			return true
		}
	}
	return false
}

// Text flattens the message's content and attachment fragments into plain
// text. Void fragments do not contribute.
func (m *Message) Text() string {
	out := ""
	for _, f := range m.Fragments {
		if f.Kind == FragmentKindVoid || f.Part == nil {
			continue
		}
		t := PartText(f.Part)
		if t == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += t
	}
	return out
}

// Preview returns the first maxLen characters of the message text.
func (m *Message) Preview(maxLen int) string {
	t := m.Text()
	runes := []rune(t)
	if len(runes) <= maxLen {
		return t
	}
	return string(runes[:maxLen]) + "…"
}

// refreshTokenCount recomputes the token cache unless the message is
// pending, in which case the cache is left stale on purpose.
func (m *Message) refreshTokenCount(profile *ModelProfile) {
	if m.PendingIncomplete {
		return
	}
	m.TokenCount = EstimateTokens(profile, m.Role, m.Fragments)
}

// MarshalJSON fills nil fragment slices so persisted messages always carry
// a fragments array (shape detection relies on its presence).
func (m *Message) MarshalJSON() ([]byte, error) {
	type alias Message
	a := (*alias)(m)
	if a.Fragments == nil {
		c := *a
		c.Fragments = []*Fragment{}
		return json.Marshal(&c)
	}
	return json.Marshal(a)
}

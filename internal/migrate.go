package internal

import (
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion is the current persisted document schema version.
const SchemaVersion = 4

// Migration reshapes older data-at-rest into the current in-memory shape.
// Detection is structural, per message: payloads can legitimately mix the
// legacy flat-text shape and the current fragment-list shape, so no version
// tag on the message itself is trusted. All converters are idempotent and
// non-destructive: a sub-shape that cannot be mapped becomes a marked error
// fragment instead of failing the conversation.

// IsCurrentMessageShape reports whether a raw message already carries a
// fragments array. This predicate is the single home of shape detection.
func IsCurrentMessageShape(raw json.RawMessage) bool {
	var probe struct {
		Fragments json.RawMessage `json:"fragments"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return len(probe.Fragments) > 0 && probe.Fragments[0] == '['
}

// legacyMessageV3 is the flat single-text-field message shape of schema
// versions below 4.
type legacyMessageV3 struct {
	ID         string         `json:"id"`
	Role       Role           `json:"role"`
	Sender     string         `json:"sender,omitempty"`
	Text       string         `json:"text"`
	Generator  string         `json:"generator,omitempty"`
	PurposeID  string         `json:"purposeId,omitempty"`
	Typing     bool           `json:"typing,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	TokenCount int            `json:"tokenCount,omitempty"`
	Created    time.Time      `json:"created"`
	Updated    time.Time      `json:"updated"`
}

// MigrateMessage converts one raw message of either shape into the current
// Message. It never fails outright: an unreadable payload yields a message
// holding a single marked error fragment.
func MigrateMessage(raw json.RawMessage) *Message {
	if IsCurrentMessageShape(raw) {
		var m Message
		if err := json.Unmarshal(raw, &m); err != nil {
			LogWarn("current-shape message failed to parse, substituting error fragment: %v", err)
			return unrecoverableMessage(raw, err)
		}
		if m.ID == "" {
			m.ID = NewMessageID()
		}
		return &m
	}

	var legacy legacyMessageV3
	if err := json.Unmarshal(raw, &legacy); err != nil {
		LogWarn("legacy message failed to parse, substituting error fragment: %v", err)
		return unrecoverableMessage(raw, err)
	}

	role := legacy.Role
	if role == "" {
		switch legacy.Sender {
		case "You", "user":
			role = RoleUser
		case "Bot", "assistant":
			role = RoleAssistant
		default:
			role = RoleSystem
		}
	}

	id := legacy.ID
	if id == "" {
		id = NewMessageID()
	}
	m := &Message{
		ID:                id,
		Role:              role,
		Fragments:         []*Fragment{NewTextFragment(legacy.Text)},
		PendingIncomplete: legacy.Typing,
		Generator:         legacy.Generator,
		PurposeID:         legacy.PurposeID,
		Metadata:          legacy.Metadata,
		TokenCount:        legacy.TokenCount,
		Created:           legacy.Created,
		Updated:           legacy.Updated,
	}
	if m.Created.IsZero() {
		m.Created = time.Now()
	}
	if m.Updated.IsZero() {
		m.Updated = m.Created
	}
	return m
}

func unrecoverableMessage(raw json.RawMessage, cause error) *Message {
	m := NewMessage(RoleSystem)
	snippet := string(raw)
	if len(snippet) > 120 {
		snippet = snippet[:120] + "…"
	}
	m.Fragments = []*Fragment{
		NewContentFragment(&ErrorPart{
			Error: fmt.Sprintf("unrecoverable message: %v", cause),
			Hint:  snippet,
		}),
	}
	return m
}

// rawConversation is the transport shape used while migrating a document or
// record: everything but the messages parses normally, and each message is
// converted individually.
type rawConversation struct {
	ID         string            `json:"id"`
	Messages   []json.RawMessage `json:"messages"`
	UserTitle  string            `json:"userTitle,omitempty"`
	AutoTitle  string            `json:"autoTitle,omitempty"`
	Name       string            `json:"name,omitempty"` // pre-v4 title field
	PersonaID  string            `json:"personaId"`
	TokenCount int               `json:"tokenCount,omitempty"`
	Created    time.Time         `json:"created"`
	Updated    time.Time         `json:"updated"`
}

// MigrateConversation converts one raw conversation, mixing message shapes
// freely, into the current Conversation.
func MigrateConversation(raw json.RawMessage) (*Conversation, error) {
	var rc rawConversation
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, &MigrateError{Stage: "conversation", Err: err}
	}

	c := &Conversation{
		ID:         rc.ID,
		Messages:   make([]*Message, 0, len(rc.Messages)),
		UserTitle:  rc.UserTitle,
		AutoTitle:  rc.AutoTitle,
		PersonaID:  rc.PersonaID,
		TokenCount: rc.TokenCount,
		Created:    rc.Created,
		Updated:    rc.Updated,
	}
	if c.ID == "" {
		c.ID = NewConversationID()
	}
	if c.UserTitle == "" && rc.Name != "" {
		c.UserTitle = rc.Name
	}
	if c.PersonaID == "" {
		c.PersonaID = DefaultPersonaID
	}
	if c.Created.IsZero() {
		c.Created = time.Now()
	}
	if c.Updated.IsZero() {
		c.Updated = c.Created
	}
	for _, rawMsg := range rc.Messages {
		c.Messages = append(c.Messages, MigrateMessage(rawMsg))
	}
	return c, nil
}

// Document is the persisted shape of the whole store.
type Document struct {
	Version       int             `json:"version"`
	Conversations []*Conversation `json:"conversations"`
	SavedAt       time.Time       `json:"savedAt,omitempty"`
	AppVersion    string          `json:"appVersion,omitempty"`
}

// rawDocument defers conversation parsing so migration can run per item.
type rawDocument struct {
	Version       int               `json:"version"`
	Conversations []json.RawMessage `json:"conversations"`
	SavedAt       time.Time         `json:"savedAt,omitempty"`
	AppVersion    string            `json:"appVersion,omitempty"`
}

// MigrateDocument parses a persisted document of any known version into the
// current shape. A conversation that cannot be mapped at all is dropped with
// a logged error rather than failing the load.
func MigrateDocument(raw []byte) (*Document, error) {
	var rd rawDocument
	if err := json.Unmarshal(raw, &rd); err != nil {
		return nil, &MigrateError{Stage: "document", Err: err}
	}
	if rd.Version > SchemaVersion {
		return nil, &MigrateError{
			Stage: "document",
			Err:   fmt.Errorf("document version %d is newer than supported version %d", rd.Version, SchemaVersion),
		}
	}

	doc := &Document{
		Version:       SchemaVersion,
		Conversations: make([]*Conversation, 0, len(rd.Conversations)),
		SavedAt:       rd.SavedAt,
		AppVersion:    rd.AppVersion,
	}
	for _, rawConv := range rd.Conversations {
		c, err := MigrateConversation(rawConv)
		if err != nil {
			LogError("dropping unreadable conversation during migration: %v", err)
			continue
		}
		doc.Conversations = append(doc.Conversations, c)
	}
	return doc, nil
}

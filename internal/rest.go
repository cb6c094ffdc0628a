package internal

import (
	"encoding/json"
	"fmt"
	"time"
)

// ConversationRecord is the portable data-at-rest shape used by file
// import/export and link sharing. Messages stay raw so a single record may
// mix legacy flat-text and current fragment-list shapes; the importer
// detects and converts each message individually.
type ConversationRecord struct {
	ID        string            `json:"id"`
	Messages  []json.RawMessage `json:"messages"`
	PersonaID string            `json:"personaId"`
	UserTitle string            `json:"userTitle,omitempty"`
	AutoTitle string            `json:"autoTitle,omitempty"`
	Created   time.Time         `json:"created"`
	Updated   time.Time         `json:"updated"`
}

// FormatConversationToRecord serializes a conversation into the portable
// record shape. Transient state is never part of the record.
func FormatConversationToRecord(c *Conversation) (*ConversationRecord, error) {
	rec := &ConversationRecord{
		ID:        c.ID,
		Messages:  make([]json.RawMessage, 0, len(c.Messages)),
		PersonaID: c.PersonaID,
		UserTitle: c.UserTitle,
		AutoTitle: c.AutoTitle,
		Created:   c.Created,
		Updated:   c.Updated,
	}
	for _, m := range c.Messages {
		raw, err := json.Marshal(m)
		if err != nil {
			return nil, &ImportError{ConversationID: c.ID, Err: fmt.Errorf("failed to encode message %s: %w", m.ID, err)}
		}
		rec.Messages = append(rec.Messages, raw)
	}
	return rec, nil
}

// RecreateConversation rebuilds an in-memory conversation from a portable
// record, migrating and normalizing every message. This runs even for
// records that already look current, to coalesce foreign objects into
// canonical shape.
func RecreateConversation(rec *ConversationRecord, liveFileExists ResourceChecker, profile *ModelProfile) (*Conversation, error) {
	if rec == nil {
		return nil, &ImportError{Err: fmt.Errorf("record is nil")}
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, &ImportError{ConversationID: rec.ID, Err: err}
	}
	c, err := MigrateConversation(raw)
	if err != nil {
		return nil, &ImportError{ConversationID: rec.ID, Err: err}
	}
	return NormalizeConversation(c, liveFileExists, profile), nil
}

// ParseConversationRecord reads a portable record from JSON.
func ParseConversationRecord(data []byte) (*ConversationRecord, error) {
	var rec ConversationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &ImportError{Err: fmt.Errorf("failed to parse record JSON: %w", err)}
	}
	return &rec, nil
}

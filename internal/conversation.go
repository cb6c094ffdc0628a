package internal

import (
	"fmt"
	"regexp"
	"time"
)

// DefaultPersonaID is assigned when a caller does not name a persona.
const DefaultPersonaID = "default"

// Conversation is an ordered list of messages plus titles and persona
// binding. Messages are ordered by conversation turn, not by timestamp.
type Conversation struct {
	ID       string     `json:"id"`
	Messages []*Message `json:"messages"`

	UserTitle string `json:"userTitle,omitempty"`
	AutoTitle string `json:"autoTitle,omitempty"`
	PersonaID string `json:"personaId"`

	// Incognito conversations live in memory only and are never persisted.
	Incognito bool `json:"-"`

	TokenCount int       `json:"tokenCount"`
	Created    time.Time `json:"created"`
	Updated    time.Time `json:"updated"`

	// abort is the transient handle for an in-flight generation. Never
	// persisted; nil immediately after load.
	abort *AbortHandle
}

// NewConversation creates an empty conversation.
func NewConversation(personaID string, incognito bool) *Conversation {
	if personaID == "" {
		personaID = DefaultPersonaID
	}
	now := time.Now()
	return &Conversation{
		ID:        NewConversationID(),
		Messages:  []*Message{},
		PersonaID: personaID,
		Incognito: incognito,
		Created:   now,
		Updated:   now,
	}
}

// Title returns the effective title: the user title if set, else the auto
// title, else the supplied fallback.
func (c *Conversation) Title(fallback string) string {
	if c.UserTitle != "" {
		return c.UserTitle
	}
	if c.AutoTitle != "" {
		return c.AutoTitle
	}
	return fallback
}

// IsEmpty reports whether the conversation has no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// MessageByID returns the message with the given id, or nil.
func (c *Conversation) MessageByID(messageID string) *Message {
	for _, m := range c.Messages {
		if m.ID == messageID {
			return m
		}
	}
	return nil
}

// AbortHandle returns the transient handle for the in-flight generation, or
// nil when the conversation is idle.
func (c *Conversation) AbortHandle() *AbortHandle {
	return c.abort
}

// IsGenerating reports whether a generation is in flight.
func (c *Conversation) IsGenerating() bool {
	return c.abort != nil
}

// withMessages returns a copy holding the given message list, with the
// aggregate token count and Updated refreshed. The receiver is unchanged.
func (c *Conversation) withMessages(msgs []*Message, profile *ModelProfile) *Conversation {
	n := *c
	n.Messages = msgs
	n.TokenCount = aggregateTokens(msgs, profile)
	n.Updated = time.Now()
	return &n
}

// aggregateTokens sums message token caches, skipping pending messages
// whose caches are stale by definition. A zero cache on a non-empty message
// means it was never priced (imported data); price it now.
func aggregateTokens(msgs []*Message, profile *ModelProfile) int {
	total := 0
	for _, m := range msgs {
		if m.PendingIncomplete {
			continue
		}
		if m.TokenCount == 0 && len(m.Fragments) > 0 {
			total += EstimateTokens(profile, m.Role, m.Fragments)
			continue
		}
		total += m.TokenCount
	}
	return total
}

// branchPrefix matches an existing "(n) " disambiguation prefix.
var branchPrefix = regexp.MustCompile(`^\((\d+)\) `)

// SplitBranchTitle splits a title into its "(n) " branch number and base
// title. Titles without a prefix have number 0.
func SplitBranchTitle(title string) (int, string) {
	if m := branchPrefix.FindStringSubmatch(title); m != nil {
		n := 0
		_, _ = fmt.Sscanf(m[1], "%d", &n)
		return n, title[len(m[0]):]
	}
	return 0, title
}

// BranchTitle produces the next "(n) " disambiguated title for a branch of
// the given title: "Foo" becomes "(1) Foo", "(1) Foo" becomes "(2) Foo".
func BranchTitle(title string) string {
	if title == "" {
		return ""
	}
	n, base := SplitBranchTitle(title)
	return fmt.Sprintf("(%d) %s", n+1, base)
}

// DuplicateConversation deep-copies a conversation under a fresh id, keeping
// messages up to and including cutoffMessageID (all messages when the cutoff
// is empty). Titles gain a branch prefix; the abort handle is not carried.
func DuplicateConversation(c *Conversation, cutoffMessageID string) *Conversation {
	cut := len(c.Messages)
	if cutoffMessageID != "" {
		for i, m := range c.Messages {
			if m.ID == cutoffMessageID {
				cut = i + 1
				break
			}
		}
	}

	now := time.Now()
	n := &Conversation{
		ID:         NewConversationID(),
		Messages:   make([]*Message, 0, cut),
		UserTitle:  BranchTitle(c.UserTitle),
		AutoTitle:  BranchTitle(c.AutoTitle),
		PersonaID:  c.PersonaID,
		Incognito:  c.Incognito,
		TokenCount: 0,
		Created:    now,
		Updated:    now,
	}
	for _, m := range c.Messages[:cut] {
		n.Messages = append(n.Messages, DuplicateMessage(m))
	}
	for _, m := range n.Messages {
		n.TokenCount += m.TokenCount
	}
	return n
}

package internal

// In-memory normalization runs on every load and every external import. It
// coalesces foreign or reconstructed objects into canonical shape, recovers
// locally from structural corruption, and strips session-only state that
// must not survive a reload. Running it twice is a no-op.

// ResourceChecker reports whether a live-file resource still exists.
// A nil checker treats every reference as live.
type ResourceChecker func(liveFileID string) bool

// NormalizeMessage returns a cleaned copy of a message:
//   - fragments missing a discriminator or a readable part are dropped,
//   - fragments missing an id get a fresh one minted,
//   - dangling LiveFileID references are cleared,
//   - stranded placeholder fragments become visible error fragments so the
//     user sees why a message looks incomplete,
//   - the completion-notification flag is stripped.
func NormalizeMessage(m *Message, liveFileExists ResourceChecker) *Message {
	c := *m
	c.Fragments = make([]*Fragment, 0, len(m.Fragments))
	for _, f := range m.Fragments {
		nf := normalizeFragment(f, liveFileExists)
		if nf == nil {
			continue
		}
		c.Fragments = append(c.Fragments, nf)
	}

	// A reload means no generation is running anymore.
	c.PendingIncomplete = false

	if c.HasFlag(NotifyFlag) {
		flags := make([]string, 0, len(c.UserFlags))
		for _, fl := range c.UserFlags {
			if fl != NotifyFlag {
				flags = append(flags, fl)
			}
		}
		if len(flags) == 0 {
			flags = nil
		}
		c.UserFlags = flags
	}
	return &c
}

func normalizeFragment(f *Fragment, liveFileExists ResourceChecker) *Fragment {
	if f == nil || f.Kind == "" || f.Part == nil {
		LogDebug("dropping structurally invalid fragment during normalization")
		return nil
	}

	c := *f

	// Foreign payloads may omit fragment ids; the id-targeted fragment ops
	// need every fragment addressable, so mint one here.
	if c.ID == "" {
		c.ID = NewFragmentID()
	}

	if c.LiveFileID != "" && liveFileExists != nil && !liveFileExists(c.LiveFileID) {
		LogDebug("clearing dangling live file reference %s on fragment %s", c.LiveFileID, c.ID)
		c.LiveFileID = ""
	}

	// A placeholder that survived to disk is an aborted asynchronous
	// operation; surface it instead of showing a stuck placeholder.
	if p, ok := c.Part.(*PlaceholderPart); ok {
		c.Kind = FragmentKindContent
		c.Part = &ErrorPart{Error: p.Text + " (did not complete)"}
	}

	return &c
}

// NormalizeConversation returns a cleaned copy of a conversation with every
// message normalized, the transient abort handle cleared, and the aggregate
// token count recomputed.
func NormalizeConversation(conv *Conversation, liveFileExists ResourceChecker, profile *ModelProfile) *Conversation {
	c := *conv
	c.abort = nil
	c.Messages = make([]*Message, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		nm := NormalizeMessage(m, liveFileExists)
		nm.refreshTokenCount(profile)
		c.Messages = append(c.Messages, nm)
	}
	c.TokenCount = aggregateTokens(c.Messages, profile)
	return &c
}

// NormalizeConversations normalizes a whole loaded set.
func NormalizeConversations(convs []*Conversation, liveFileExists ResourceChecker, profile *ModelProfile) []*Conversation {
	out := make([]*Conversation, 0, len(convs))
	for _, c := range convs {
		out = append(out, NormalizeConversation(c, liveFileExists, profile))
	}
	return out
}

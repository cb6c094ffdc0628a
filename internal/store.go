package internal

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store owns the live conversation list. All mutation goes through its
// operations; callers never modify a Conversation or Message they got from
// the store. Every operation is copy-on-write: paths that changed get new
// objects, unchanged branches keep referential equality so consumers can
// detect change cheaply. In-memory state is authoritative; persistence is a
// subscriber.
type Store struct {
	mu            sync.RWMutex
	conversations []*Conversation

	profile        *ModelProfile
	liveFileExists ResourceChecker
	collector      *Collector

	subMu       sync.Mutex
	subscribers map[int]func([]*Conversation)
	nextSubID   int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithProfile sets the model profile used for token accounting.
func WithProfile(p *ModelProfile) StoreOption {
	return func(s *Store) { s.profile = p }
}

// WithResourceChecker wires the live-file existence check used during
// normalization of imported data.
func WithResourceChecker(rc ResourceChecker) StoreOption {
	return func(s *Store) { s.liveFileExists = rc }
}

// WithCollector wires the blob garbage collector triggered after
// destructive operations.
func WithCollector(c *Collector) StoreOption {
	return func(s *Store) { s.collector = c }
}

// NewStore creates a store holding one default empty conversation.
func NewStore(opts ...StoreOption) *Store {
	return NewStoreWith(nil, opts...)
}

// NewStoreWith creates a store over an already-normalized conversation set,
// seeding a default conversation when the set is empty.
func NewStoreWith(convs []*Conversation, opts ...StoreOption) *Store {
	s := &Store{
		profile:     DefaultProfile,
		subscribers: map[int]func([]*Conversation){},
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(convs) == 0 {
		convs = []*Conversation{NewConversation(DefaultPersonaID, false)}
	}
	s.conversations = convs
	return s
}

// Subscribe registers a callback invoked with every committed state. The
// returned function unsubscribes.
func (s *Store) Subscribe(fn func(convs []*Conversation)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subscribers, id)
		s.subMu.Unlock()
	}
}

// commit installs a new conversation list and notifies subscribers.
func (s *Store) commit(convs []*Conversation) {
	s.mu.Lock()
	s.conversations = convs
	s.mu.Unlock()

	s.subMu.Lock()
	subs := make([]func([]*Conversation), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(convs)
	}
}

// Conversations returns the committed conversation list. Callers must treat
// it as immutable.
func (s *Store) Conversations() []*Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversations
}

// Get returns the conversation with the given id, or nil.
func (s *Store) Get(id string) *Conversation {
	for _, c := range s.Conversations() {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func indexOf(convs []*Conversation, id string) int {
	for i, c := range convs {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// replaceAt builds a new list with one element replaced, sharing the rest.
func replaceAt(convs []*Conversation, i int, c *Conversation) []*Conversation {
	next := make([]*Conversation, len(convs))
	copy(next, convs)
	next[i] = c
	return next
}

// CreateConversation prepends a new empty conversation and returns its id.
func (s *Store) CreateConversation(personaID string, incognito bool) string {
	c := NewConversation(personaID, incognito)
	convs := s.Conversations()
	next := make([]*Conversation, 0, len(convs)+1)
	next = append(next, c)
	next = append(next, convs...)
	s.commit(next)
	return c.ID
}

// ImportConversation accepts external conversation data. The record is
// always migrated and normalized before acceptance. On an id collision the
// imported conversation is reassigned a fresh id when preventIDClash is
// set; otherwise the existing conversation is aborted and replaced.
func (s *Store) ImportConversation(rec *ConversationRecord, preventIDClash bool) (string, error) {
	c, err := RecreateConversation(rec, s.liveFileExists, s.profile)
	if err != nil {
		return "", err
	}

	convs := s.Conversations()
	if i := indexOf(convs, c.ID); i >= 0 {
		if preventIDClash {
			c.ID = NewConversationID()
		} else {
			s.abortConversation(convs[i])
			s.commit(replaceAt(convs, i, c))
			return c.ID, nil
		}
	}

	next := make([]*Conversation, 0, len(convs)+1)
	next = append(next, c)
	next = append(next, convs...)
	s.commit(next)
	return c.ID, nil
}

// BranchConversation duplicates a conversation up to and including the
// cutoff message (all messages when cutoff is empty) under a fresh id, and
// numbers the branch title against its siblings. Returns "" when the source
// id does not exist.
func (s *Store) BranchConversation(id, cutoffMessageID string) string {
	convs := s.Conversations()
	i := indexOf(convs, id)
	if i < 0 {
		return ""
	}

	src := convs[i]
	branch := DuplicateConversation(src, cutoffMessageID)
	branch.UserTitle = s.nextBranchTitle(convs, src.UserTitle)
	branch.AutoTitle = s.nextBranchTitle(convs, src.AutoTitle)

	next := make([]*Conversation, 0, len(convs)+1)
	next = append(next, convs[:i+1]...)
	next = append(next, branch)
	next = append(next, convs[i+1:]...)
	s.commit(next)
	return branch.ID
}

// nextBranchTitle numbers a branch title one past the highest existing
// sibling with the same base title.
func (s *Store) nextBranchTitle(convs []*Conversation, title string) string {
	if title == "" {
		return ""
	}
	_, base := SplitBranchTitle(title)
	max := 0
	for _, c := range convs {
		for _, t := range []string{c.UserTitle, c.AutoTitle} {
			if n, b := SplitBranchTitle(t); b == base && n > max {
				max = n
			}
		}
	}
	return fmt.Sprintf("(%d) %s", max+1, base)
}

// DeleteConversations removes the given conversations, aborting their
// in-flight generations. The store never ends up empty: a fresh
// conversation is created when the last one is deleted. Returns the id of
// the next conversation to activate (same index position, clamped).
func (s *Store) DeleteConversations(ids []string, fallbackPersonaID string) string {
	convs := s.Conversations()
	doomed := make(map[string]bool, len(ids))
	for _, id := range ids {
		doomed[id] = true
	}

	firstIdx := len(convs)
	next := make([]*Conversation, 0, len(convs))
	for i, c := range convs {
		if doomed[c.ID] {
			s.abortConversation(c)
			if i < firstIdx {
				firstIdx = i
			}
			continue
		}
		next = append(next, c)
	}
	if len(next) == 0 {
		next = []*Conversation{NewConversation(fallbackPersonaID, false)}
	}
	s.commit(next)
	s.maybeCollect()

	if firstIdx == len(convs) {
		// Nothing matched; the active conversation is unchanged.
		return next[0].ID
	}
	if firstIdx >= len(next) {
		firstIdx = len(next) - 1
	}
	return next[firstIdx].ID
}

// abortConversation cancels an in-flight generation, if any. Cancellation
// always happens before the structural mutation that invalidates the
// message the generation is writing into.
func (s *Store) abortConversation(c *Conversation) {
	if c.abort != nil {
		c.abort.Abort()
	}
}

// mutateConversation applies fn to a copy of the identified conversation
// after aborting its in-flight generation, and commits the result. Reports
// whether the conversation was found.
func (s *Store) mutateConversation(id string, fn func(c *Conversation) *Conversation) bool {
	convs := s.Conversations()
	i := indexOf(convs, id)
	if i < 0 {
		return false
	}
	s.abortConversation(convs[i])
	c := fn(convs[i])
	if c == convs[i] {
		cc := *c
		c = &cc
	}
	c.abort = nil
	s.commit(replaceAt(convs, i, c))
	return true
}

// HistoryReplace replaces a conversation's entire message list.
func (s *Store) HistoryReplace(convID string, msgs []*Message) {
	ok := s.mutateConversation(convID, func(c *Conversation) *Conversation {
		priced := make([]*Message, len(msgs))
		for i, m := range msgs {
			pm := *m
			pm.refreshTokenCount(s.profile)
			priced[i] = &pm
		}
		return c.withMessages(priced, s.profile)
	})
	if !ok {
		LogError("historyReplace: conversation %s not found", convID)
		return
	}
	s.maybeCollect()
}

// HistoryTruncateToIncluded drops every message after the given one.
func (s *Store) HistoryTruncateToIncluded(convID, messageID string) {
	s.mutateConversation(convID, func(c *Conversation) *Conversation {
		for i, m := range c.Messages {
			if m.ID == messageID {
				return c.withMessages(c.Messages[:i+1], s.profile)
			}
		}
		LogError("historyTruncateToIncluded: message %s not found in conversation %s", messageID, convID)
		return c
	})
	s.maybeCollect()
}

// AppendMessage appends a message to a conversation.
func (s *Store) AppendMessage(convID string, msg *Message) {
	s.mutateConversation(convID, func(c *Conversation) *Conversation {
		m := *msg
		m.refreshTokenCount(s.profile)
		msgs := make([]*Message, 0, len(c.Messages)+1)
		msgs = append(msgs, c.Messages...)
		msgs = append(msgs, &m)
		return c.withMessages(msgs, s.profile)
	})
}

// DeleteMessage removes a message by id.
func (s *Store) DeleteMessage(convID, messageID string) {
	s.mutateConversation(convID, func(c *Conversation) *Conversation {
		msgs := make([]*Message, 0, len(c.Messages))
		for _, m := range c.Messages {
			if m.ID != messageID {
				msgs = append(msgs, m)
			}
		}
		if len(msgs) == len(c.Messages) {
			LogError("deleteMessage: message %s not found in conversation %s", messageID, convID)
			return c
		}
		return c.withMessages(msgs, s.profile)
	})
	s.maybeCollect()
}

// EditMessage applies an edit to a copy of the identified message. The edit
// callback may change fragments, flags and metadata; identity and
// timestamps are managed here.
func (s *Store) EditMessage(convID, messageID string, edit func(m *Message)) {
	s.mutateConversation(convID, func(c *Conversation) *Conversation {
		i, old := s.findMessage(c, messageID, "editMessage")
		if old == nil {
			return c
		}
		m := *old
		m.Fragments = append([]*Fragment(nil), old.Fragments...)
		edit(&m)
		m.Updated = time.Now()
		m.refreshTokenCount(s.profile)
		return c.withMessages(replaceMessageAt(c.Messages, i, &m), s.profile)
	})
}

func (s *Store) findMessage(c *Conversation, messageID, op string) (int, *Message) {
	for i, m := range c.Messages {
		if m.ID == messageID {
			return i, m
		}
	}
	LogError("%s: message %s not found in conversation %s", op, messageID, c.ID)
	return -1, nil
}

func replaceMessageAt(msgs []*Message, i int, m *Message) []*Message {
	next := make([]*Message, len(msgs))
	copy(next, msgs)
	next[i] = m
	return next
}

// updateMessageFragments rewrites one message's fragment list without
// touching the generation state; these are the writes a generation itself
// issues, so no abort happens here.
func (s *Store) updateMessageFragments(convID, messageID, op string, fn func(m *Message) ([]*Fragment, bool)) {
	convs := s.Conversations()
	ci := indexOf(convs, convID)
	if ci < 0 {
		LogError("%s: conversation %s not found", op, convID)
		return
	}
	c := convs[ci]
	mi, old := s.findMessage(c, messageID, op)
	if old == nil {
		return
	}
	frags, ok := fn(old)
	if !ok {
		return
	}
	m := old.WithFragments(frags)
	m.refreshTokenCount(s.profile)
	nc := c.withMessages(replaceMessageAt(c.Messages, mi, m), s.profile)
	s.commit(replaceAt(convs, ci, nc))
}

// AppendMessageFragment appends a fragment to a message.
func (s *Store) AppendMessageFragment(convID, messageID string, f *Fragment) {
	s.updateMessageFragments(convID, messageID, "appendMessageFragment", func(m *Message) ([]*Fragment, bool) {
		frags := make([]*Fragment, 0, len(m.Fragments)+1)
		frags = append(frags, m.Fragments...)
		frags = append(frags, f)
		return frags, true
	})
}

// DeleteMessageFragment removes a fragment by id. A missing fragment id is
// reported as a developer-visible error and the operation is a no-op.
func (s *Store) DeleteMessageFragment(convID, messageID, fragmentID string) {
	s.updateMessageFragments(convID, messageID, "deleteMessageFragment", func(m *Message) ([]*Fragment, bool) {
		frags := make([]*Fragment, 0, len(m.Fragments))
		for _, fr := range m.Fragments {
			if fr.ID != fragmentID {
				frags = append(frags, fr)
			}
		}
		if len(frags) == len(m.Fragments) {
			LogError("deleteMessageFragment: fragment %s not found in message %s", fragmentID, messageID)
			return nil, false
		}
		return frags, true
	})
}

// ReplaceMessageFragment swaps the fragment with the given id. A missing
// fragment id is reported as a developer-visible error and the operation is
// a no-op; callers see no failure.
func (s *Store) ReplaceMessageFragment(convID, messageID, fragmentID string, f *Fragment) {
	s.updateMessageFragments(convID, messageID, "replaceMessageFragment", func(m *Message) ([]*Fragment, bool) {
		for i, fr := range m.Fragments {
			if fr.ID == fragmentID {
				frags := make([]*Fragment, len(m.Fragments))
				copy(frags, m.Fragments)
				frags[i] = f
				return frags, true
			}
		}
		LogError("replaceMessageFragment: fragment %s not found in message %s", fragmentID, messageID)
		return nil, false
	})
}

// SetUserTitle sets the user title. Clearing it also clears the auto title:
// an explicit rename invalidates any auto-generated title.
func (s *Store) SetUserTitle(convID, title string) {
	convs := s.Conversations()
	i := indexOf(convs, convID)
	if i < 0 {
		LogError("setUserTitle: conversation %s not found", convID)
		return
	}
	c := *convs[i]
	c.UserTitle = title
	if title == "" {
		c.AutoTitle = ""
	}
	c.Updated = time.Now()
	s.commit(replaceAt(convs, i, &c))
}

// SetAutoTitle records an auto-generated title; a user title always wins
// over it when displaying.
func (s *Store) SetAutoTitle(convID, title string) {
	convs := s.Conversations()
	i := indexOf(convs, convID)
	if i < 0 {
		LogError("setAutoTitle: conversation %s not found", convID)
		return
	}
	c := *convs[i]
	c.AutoTitle = title
	c.Updated = time.Now()
	s.commit(replaceAt(convs, i, &c))
}

// StartGenerating appends a pending assistant message and attaches a fresh
// abort handle, moving the conversation from idle to generating. Returns
// the handle the generation task must watch and the pending message id.
func (s *Store) StartGenerating(ctx context.Context, convID, generator string) (*AbortHandle, string) {
	convs := s.Conversations()
	i := indexOf(convs, convID)
	if i < 0 {
		LogError("startGenerating: conversation %s not found", convID)
		return nil, ""
	}
	c := convs[i]
	prior := c.Messages
	if c.abort != nil {
		// One generation per conversation; cancel the stale one and
		// settle its pending message, which nothing will finish now.
		c.abort.Abort()
		for mi, m := range prior {
			if m.PendingIncomplete {
				nm := *m
				nm.PendingIncomplete = false
				nm.Updated = time.Now()
				nm.refreshTokenCount(s.profile)
				prior = replaceMessageAt(prior, mi, &nm)
			}
		}
	}

	handle := NewAbortHandle(ctx)
	msg := NewPendingMessage(generator)
	msgs := make([]*Message, 0, len(prior)+1)
	msgs = append(msgs, prior...)
	msgs = append(msgs, msg)
	nc := c.withMessages(msgs, s.profile)
	nc.abort = handle
	s.commit(replaceAt(convs, i, nc))
	return handle, msg.ID
}

// FinishGenerating completes the pending message: the incomplete flag is
// dropped, the token cache becomes trustworthy again and the handle is
// released without cancellation.
func (s *Store) FinishGenerating(convID, messageID string) {
	convs := s.Conversations()
	i := indexOf(convs, convID)
	if i < 0 {
		LogError("finishGenerating: conversation %s not found", convID)
		return
	}
	c := convs[i]
	mi, old := s.findMessage(c, messageID, "finishGenerating")
	if old == nil {
		return
	}
	m := *old
	m.PendingIncomplete = false
	m.Updated = time.Now()
	m.refreshTokenCount(s.profile)
	nc := c.withMessages(replaceMessageAt(c.Messages, mi, &m), s.profile)
	nc.abort = nil
	s.commit(replaceAt(convs, i, nc))
}

// AbortGenerating cancels the in-flight generation and releases the handle.
// The pending message stays as written so far, unflagged.
func (s *Store) AbortGenerating(convID string) {
	convs := s.Conversations()
	i := indexOf(convs, convID)
	if i < 0 {
		return
	}
	c := convs[i]
	if c.abort == nil {
		return
	}
	c.abort.Abort()

	msgs := c.Messages
	for mi, m := range msgs {
		if m.PendingIncomplete {
			nm := *m
			nm.PendingIncomplete = false
			nm.Updated = time.Now()
			nm.refreshTokenCount(s.profile)
			msgs = replaceMessageAt(msgs, mi, &nm)
		}
	}
	nc := c.withMessages(msgs, s.profile)
	nc.abort = nil
	s.commit(replaceAt(convs, i, nc))
}

// maybeCollect kicks a background blob GC pass after a destructive
// operation. Fire-and-forget; the collector enforces single-flight.
func (s *Store) maybeCollect() {
	if s.collector == nil {
		return
	}
	snapshot := s.Conversations()
	go func() {
		if _, err := s.collector.CollectUnreferenced(context.Background(), snapshot); err != nil {
			LogWarn("background blob GC failed: %v", err)
		}
	}()
}

package internal

import "testing"

func newTestDocStore(t *testing.T) *DocStore {
	t.Helper()
	docs, err := OpenDocStore(":memory:")
	if err != nil {
		t.Fatalf("OpenDocStore() error: %v", err)
	}
	t.Cleanup(func() { docs.Close() })
	return docs
}

func TestDocStoreSaveLoadRoundTrip(t *testing.T) {
	docs := newTestDocStore(t)

	saved := []*Conversation{
		CreateTestConversation("First"),
		CreateTestConversation("Second"),
	}
	if err := docs.SaveConversations(saved); err != nil {
		t.Fatalf("SaveConversations() error: %v", err)
	}

	loaded, err := docs.LoadConversations(nil, DefaultProfile)
	if err != nil {
		t.Fatalf("LoadConversations() error: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("len(loaded) = %d, want 2", len(loaded))
	}
	for i, c := range loaded {
		if c.ID != saved[i].ID {
			t.Errorf("conversation %d id = %q, want %q", i, c.ID, saved[i].ID)
		}
		if c.AutoTitle != saved[i].AutoTitle {
			t.Errorf("conversation %d title = %q, want %q", i, c.AutoTitle, saved[i].AutoTitle)
		}
		if len(c.Messages) != len(saved[i].Messages) {
			t.Fatalf("conversation %d has %d messages, want %d", i, len(c.Messages), len(saved[i].Messages))
		}
		for j, m := range c.Messages {
			if m.Text() != saved[i].Messages[j].Text() {
				t.Errorf("message %d/%d text = %q, want %q", i, j, m.Text(), saved[i].Messages[j].Text())
			}
		}
	}
}

func TestDocStoreLoadEmpty(t *testing.T) {
	docs := newTestDocStore(t)

	loaded, err := docs.LoadConversations(nil, DefaultProfile)
	if err != nil {
		t.Fatalf("LoadConversations() error: %v", err)
	}
	if loaded != nil {
		t.Errorf("loaded = %v, want nil for an empty store", loaded)
	}
}

func TestFilterForSave(t *testing.T) {
	normal := CreateTestConversation("keep me")
	incognito := CreateTestConversation("secret")
	incognito.Incognito = true
	empty := NewConversation(DefaultPersonaID, false)

	out := FilterForSave([]*Conversation{normal, incognito, empty})

	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if out[0].ID != normal.ID {
		t.Errorf("kept %q, want %q", out[0].ID, normal.ID)
	}
}

func TestDocStoreMeta(t *testing.T) {
	docs := newTestDocStore(t)
	if err := docs.SaveConversations([]*Conversation{CreateTestConversation("one")}); err != nil {
		t.Fatalf("SaveConversations() error: %v", err)
	}

	meta, err := docs.Meta()
	if err != nil {
		t.Fatalf("Meta() error: %v", err)
	}
	if meta.Version != SchemaVersion {
		t.Errorf("Version = %d, want %d", meta.Version, SchemaVersion)
	}
	if meta.SavedAt.IsZero() {
		t.Error("SavedAt not recorded")
	}
}

func TestDocStoreNormalizesOnLoad(t *testing.T) {
	docs := newTestDocStore(t)

	pending := NewPendingMessage("gpt-test")
	pending.Fragments = []*Fragment{
		NewTextFragment("partial answer"),
		NewVoidFragment(&PlaceholderPart{Text: "Running tool", Kind: "tool"}),
	}
	conv := CreateTestConversationWithMessages("Interrupted", []*Message{pending})
	if err := docs.SaveConversations([]*Conversation{conv}); err != nil {
		t.Fatalf("SaveConversations() error: %v", err)
	}

	loaded, err := docs.LoadConversations(nil, DefaultProfile)
	if err != nil {
		t.Fatalf("LoadConversations() error: %v", err)
	}
	m := loaded[0].Messages[0]
	if m.PendingIncomplete {
		t.Error("pending flag survived the reload")
	}
	found := false
	for _, f := range m.Fragments {
		if ep, ok := f.Part.(*ErrorPart); ok {
			found = true
			if want := "Running tool (did not complete)"; ep.Error != want {
				t.Errorf("Error = %q, want %q", ep.Error, want)
			}
		}
	}
	if !found {
		t.Error("stranded placeholder was not surfaced as an error fragment")
	}
}

func TestPersistenceAdapterFlushesOnClose(t *testing.T) {
	docs := newTestDocStore(t)

	adapter := NewPersistenceAdapter(docs)
	s := NewStore()
	adapter.Attach(s)

	convID := s.Conversations()[0].ID
	s.AppendMessage(convID, NewTextMessage(RoleUser, "persist me"))
	s.SetUserTitle(convID, "Saved")

	// Close drains the queue before returning.
	adapter.Close()

	loaded, err := docs.LoadConversations(nil, DefaultProfile)
	if err != nil {
		t.Fatalf("LoadConversations() error: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("len(loaded) = %d, want 1", len(loaded))
	}
	if loaded[0].UserTitle != "Saved" {
		t.Errorf("UserTitle = %q, want %q", loaded[0].UserTitle, "Saved")
	}
	if loaded[0].Messages[0].Text() != "persist me" {
		t.Errorf("message text = %q, want %q", loaded[0].Messages[0].Text(), "persist me")
	}
}

func TestPersistenceAdapterCoalesces(t *testing.T) {
	docs := newTestDocStore(t)

	adapter := NewPersistenceAdapter(docs)
	s := NewStore()
	adapter.Attach(s)

	convID := s.Conversations()[0].ID
	for i := 0; i < 50; i++ {
		s.AppendMessage(convID, NewTextMessage(RoleUser, "burst"))
	}
	adapter.Close()

	loaded, err := docs.LoadConversations(nil, DefaultProfile)
	if err != nil {
		t.Fatalf("LoadConversations() error: %v", err)
	}
	if len(loaded[0].Messages) != 50 {
		t.Errorf("len(Messages) = %d, want 50: the last committed state must win", len(loaded[0].Messages))
	}

	// The store keeps working in memory after the adapter detaches.
	s.AppendMessage(convID, NewTextMessage(RoleUser, "after close"))
	if got := len(s.Get(convID).Messages); got != 51 {
		t.Errorf("in-memory message count = %d, want 51", got)
	}
}

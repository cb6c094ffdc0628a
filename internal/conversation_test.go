package internal

import "testing"

func TestConversationTitle(t *testing.T) {
	tests := []struct {
		name      string
		userTitle string
		autoTitle string
		want      string
	}{
		{"user title wins", "Mine", "Generated", "Mine"},
		{"auto title next", "", "Generated", "Generated"},
		{"fallback last", "", "", "Untitled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConversation("", false)
			c.UserTitle = tt.userTitle
			c.AutoTitle = tt.autoTitle
			if got := c.Title("Untitled"); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewConversationDefaultPersona(t *testing.T) {
	c := NewConversation("", false)
	if c.PersonaID != DefaultPersonaID {
		t.Errorf("PersonaID = %q, want %q", c.PersonaID, DefaultPersonaID)
	}
	if !c.IsEmpty() {
		t.Error("IsEmpty() = false for a fresh conversation")
	}
	if c.IsGenerating() {
		t.Error("IsGenerating() = true for a fresh conversation")
	}
}

func TestSplitBranchTitle(t *testing.T) {
	tests := []struct {
		title    string
		wantN    int
		wantBase string
	}{
		{"Foo", 0, "Foo"},
		{"(1) Foo", 1, "Foo"},
		{"(12) Foo Bar", 12, "Foo Bar"},
		{"(x) Foo", 0, "(x) Foo"},
		{"(3)Foo", 0, "(3)Foo"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			n, base := SplitBranchTitle(tt.title)
			if n != tt.wantN || base != tt.wantBase {
				t.Errorf("SplitBranchTitle(%q) = (%d, %q), want (%d, %q)", tt.title, n, base, tt.wantN, tt.wantBase)
			}
		})
	}
}

func TestBranchTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Foo", "(1) Foo"},
		{"(1) Foo", "(2) Foo"},
		{"(9) Foo", "(10) Foo"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := BranchTitle(tt.title); got != tt.want {
			t.Errorf("BranchTitle(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestDuplicateConversation(t *testing.T) {
	src := NewConversation(DefaultPersonaID, false)
	src.UserTitle = "Plans"
	m1 := NewTextMessage(RoleUser, "one")
	m2 := NewTextMessage(RoleAssistant, "two")
	m3 := NewTextMessage(RoleUser, "three")
	src.Messages = []*Message{m1, m2, m3}

	t.Run("full copy", func(t *testing.T) {
		dup := DuplicateConversation(src, "")
		if dup.ID == src.ID {
			t.Error("duplicate kept the original conversation ID")
		}
		if dup.UserTitle != "(1) Plans" {
			t.Errorf("UserTitle = %q, want %q", dup.UserTitle, "(1) Plans")
		}
		if len(dup.Messages) != 3 {
			t.Fatalf("len(Messages) = %d, want 3", len(dup.Messages))
		}
		for i, m := range dup.Messages {
			if m.ID == src.Messages[i].ID {
				t.Errorf("message %d kept its original ID", i)
			}
			if m.Text() != src.Messages[i].Text() {
				t.Errorf("message %d text = %q, want %q", i, m.Text(), src.Messages[i].Text())
			}
		}
	})

	t.Run("cutoff keeps prefix inclusive", func(t *testing.T) {
		dup := DuplicateConversation(src, m2.ID)
		if len(dup.Messages) != 2 {
			t.Fatalf("len(Messages) = %d, want 2", len(dup.Messages))
		}
		if dup.Messages[1].Text() != "two" {
			t.Errorf("last message = %q, want %q", dup.Messages[1].Text(), "two")
		}
	})

	t.Run("unknown cutoff keeps everything", func(t *testing.T) {
		dup := DuplicateConversation(src, "no-such-message")
		if len(dup.Messages) != 3 {
			t.Errorf("len(Messages) = %d, want 3", len(dup.Messages))
		}
	})
}

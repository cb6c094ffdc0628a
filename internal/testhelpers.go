package internal

import "time"

// CreateTestConversation creates a conversation with a user/assistant
// exchange for tests.
func CreateTestConversation(title string) *Conversation {
	c := NewConversation(DefaultPersonaID, false)
	c.AutoTitle = title
	c.Messages = []*Message{
		NewTextMessage(RoleUser, "Hello, how are you?"),
		NewTextMessage(RoleAssistant, "I'm doing well, thank you!"),
	}
	for _, m := range c.Messages {
		m.refreshTokenCount(DefaultProfile)
	}
	c.TokenCount = aggregateTokens(c.Messages, DefaultProfile)
	return c
}

// CreateTestConversationWithMessages creates a conversation holding the
// given messages.
func CreateTestConversationWithMessages(title string, msgs []*Message) *Conversation {
	c := NewConversation(DefaultPersonaID, false)
	c.AutoTitle = title
	c.Messages = msgs
	for _, m := range msgs {
		m.refreshTokenCount(DefaultProfile)
	}
	c.TokenCount = aggregateTokens(msgs, DefaultProfile)
	return c
}

// CreateTestImageMessage creates a user message referencing a blob.
func CreateTestImageMessage(blobID string) *Message {
	m := NewMessage(RoleUser)
	m.Fragments = []*Fragment{
		NewContentFragment(&ReferencePart{
			RefKind:   "asset",
			AssetID:   blobID,
			AssetType: "image",
		}),
	}
	m.refreshTokenCount(DefaultProfile)
	return m
}

// CreateTestAttachment creates a doc attachment fragment.
func CreateTestAttachment(title, data string) *Fragment {
	return NewAttachmentFragment(&DocPart{
		MimeKind: "text/plain",
		Data:     data,
		Ref:      title,
		Title:    title,
		Version:  1,
	}, title, "")
}

// FixedTime is a stable timestamp for tests that compare serialized output.
var FixedTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

package internal

import "github.com/google/uuid"

// NewConversationID mints a conversation id.
func NewConversationID() string {
	return uuid.NewString()
}

// NewMessageID mints a message id.
func NewMessageID() string {
	return uuid.NewString()
}

// NewFragmentID mints a fragment id. Fragment ids only need to be unique
// within their owning message, but minting them globally unique keeps
// duplication and import trivially collision-free.
func NewFragmentID() string {
	return uuid.NewString()
}

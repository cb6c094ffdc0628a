package internal

import "fmt"

// StoreError represents errors from the persistence layer
type StoreError struct {
	Op   string // "open", "save", "load"
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// MigrateError represents errors reshaping data-at-rest
type MigrateError struct {
	Stage string // "document", "conversation", "message"
	ID    string
	Err   error
}

func (e *MigrateError) Error() string {
	return fmt.Sprintf("migrate error [%s] %s: %v", e.Stage, e.ID, e.Err)
}

func (e *MigrateError) Unwrap() error {
	return e.Err
}

// ImportError represents errors accepting external conversation data
type ImportError struct {
	ConversationID string
	Err            error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import error [%s]: %v", e.ConversationID, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// BlobError represents errors accessing the blob store
type BlobError struct {
	Op  string // "put", "list", "delete"
	ID  string
	Err error
}

func (e *BlobError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("blob error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("blob error: %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *BlobError) Unwrap() error {
	return e.Err
}

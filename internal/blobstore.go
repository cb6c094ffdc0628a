package internal

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// BlobStore is the narrow interface the garbage collector and the
// attachment pipeline depend on. Blobs are binary attachments (typically
// images) referenced by id from a fragment's part.
type BlobStore interface {
	Put(data []byte, mimeType string) (string, error)
	URLByID(id string) (string, error)
	ListIDs() ([]string, error)
	DeleteMany(ids []string) error
}

// SQLiteBlobStore stores blobs in a local sqlite table, one row per blob.
type SQLiteBlobStore struct {
	db *sql.DB
}

// OpenBlobStore opens (and if needed creates) a blob store at the given
// sqlite path. ":memory:" works for tests.
func OpenBlobStore(path string) (*SQLiteBlobStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StoreError{Op: "open", Path: path, Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StoreError{Op: "open", Path: path, Err: err}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS blobs (
		id TEXT PRIMARY KEY,
		mimeType TEXT,
		data BLOB
	)`); err != nil {
		db.Close()
		return nil, &StoreError{Op: "open", Path: path, Err: err}
	}
	return &SQLiteBlobStore{db: db}, nil
}

// NewBlobStoreFromDB wraps an existing database handle; the blobs table
// must already exist.
func NewBlobStoreFromDB(db *sql.DB) *SQLiteBlobStore {
	return &SQLiteBlobStore{db: db}
}

// Close releases the underlying database.
func (b *SQLiteBlobStore) Close() error {
	return b.db.Close()
}

// Put stores a blob and returns its generated id.
func (b *SQLiteBlobStore) Put(data []byte, mimeType string) (string, error) {
	id := NewConversationID()
	if _, err := b.db.Exec(
		"INSERT INTO blobs (id, mimeType, data) VALUES (?, ?, ?)",
		id, mimeType, data,
	); err != nil {
		return "", &BlobError{Op: "put", Err: err}
	}
	return id, nil
}

// URLByID returns a resolvable URL for a stored blob.
func (b *SQLiteBlobStore) URLByID(id string) (string, error) {
	var exists int
	err := b.db.QueryRow("SELECT COUNT(1) FROM blobs WHERE id = ?", id).Scan(&exists)
	if err != nil {
		return "", &BlobError{Op: "get", ID: id, Err: err}
	}
	if exists == 0 {
		return "", &BlobError{Op: "get", ID: id, Err: fmt.Errorf("not found")}
	}
	return "chatkeep://blob/" + id, nil
}

// Get returns a blob's bytes and mime type.
func (b *SQLiteBlobStore) Get(id string) ([]byte, string, error) {
	var data []byte
	var mime sql.NullString
	err := b.db.QueryRow("SELECT data, mimeType FROM blobs WHERE id = ?", id).Scan(&data, &mime)
	if err != nil {
		return nil, "", &BlobError{Op: "get", ID: id, Err: err}
	}
	return data, mime.String, nil
}

// ListIDs returns every stored blob id.
func (b *SQLiteBlobStore) ListIDs() ([]string, error) {
	rows, err := b.db.Query("SELECT id FROM blobs")
	if err != nil {
		return nil, &BlobError{Op: "list", Err: err}
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &BlobError{Op: "list", Err: err}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &BlobError{Op: "list", Err: err}
	}
	return ids, nil
}

// DeleteMany removes the given blobs in one transaction.
func (b *SQLiteBlobStore) DeleteMany(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := b.db.Begin()
	if err != nil {
		return &BlobError{Op: "delete", Err: err}
	}
	for _, id := range ids {
		if _, err := tx.Exec("DELETE FROM blobs WHERE id = ?", id); err != nil {
			_ = tx.Rollback()
			return &BlobError{Op: "delete", ID: id, Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &BlobError{Op: "delete", Err: err}
	}
	return nil
}

package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	documentKey = "chatDocument"
	metaKey     = "chatMeta"
)

// DocStore persists the versioned conversation document in a local sqlite
// key-value table. The in-memory store stays authoritative; this layer is
// purely derivative.
type DocStore struct {
	db   *sql.DB
	path string
}

// DocMeta is bookkeeping stored beside the document payload.
type DocMeta struct {
	SavedAt    time.Time `json:"saved_at"`
	AppVersion string    `json:"app_version,omitempty"`
	Version    int       `json:"version"`
}

// OpenDocStore opens (and if needed creates) the document store at the
// given sqlite path. ":memory:" works for tests.
func OpenDocStore(path string) (*DocStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &StoreError{Op: "open", Path: path, Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StoreError{Op: "open", Path: path, Err: err}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS chatDocKV (
		key TEXT PRIMARY KEY,
		value TEXT
	)`); err != nil {
		db.Close()
		return nil, &StoreError{Op: "open", Path: path, Err: err}
	}
	return &DocStore{db: db, path: path}, nil
}

// Close releases the underlying database.
func (d *DocStore) Close() error {
	return d.db.Close()
}

func (d *DocStore) get(key string) ([]byte, error) {
	var value sql.NullString
	err := d.db.QueryRow("SELECT value FROM chatDocKV WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "load", Path: d.path, Err: err}
	}
	if !value.Valid {
		return nil, nil
	}
	return []byte(value.String), nil
}

func (d *DocStore) put(key string, value []byte) error {
	if _, err := d.db.Exec(
		"INSERT INTO chatDocKV (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, string(value),
	); err != nil {
		return &StoreError{Op: "save", Path: d.path, Err: err}
	}
	return nil
}

// SaveConversations serializes a filtered snapshot: incognito and fully
// empty conversations are dropped, transient fields never serialize.
func (d *DocStore) SaveConversations(convs []*Conversation) error {
	doc := Document{
		Version:       SchemaVersion,
		Conversations: FilterForSave(convs),
		SavedAt:       time.Now(),
	}
	payload, err := json.Marshal(&doc)
	if err != nil {
		return &StoreError{Op: "save", Path: d.path, Err: err}
	}
	if err := d.put(documentKey, payload); err != nil {
		return err
	}

	meta, err := json.Marshal(DocMeta{SavedAt: doc.SavedAt, Version: doc.Version})
	if err != nil {
		return &StoreError{Op: "save", Path: d.path, Err: err}
	}
	return d.put(metaKey, meta)
}

// FilterForSave drops incognito and fully-empty conversations from a
// snapshot about to be persisted.
func FilterForSave(convs []*Conversation) []*Conversation {
	out := make([]*Conversation, 0, len(convs))
	for _, c := range convs {
		if c.Incognito || c.IsEmpty() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// LoadConversations rehydrates the persisted document: version check and
// migration over the raw payload first, then the in-memory normalization
// pass over every conversation. Returns nil when nothing was persisted yet.
func (d *DocStore) LoadConversations(liveFileExists ResourceChecker, profile *ModelProfile) ([]*Conversation, error) {
	raw, err := d.get(documentKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	doc, err := MigrateDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return NormalizeConversations(doc.Conversations, liveFileExists, profile), nil
}

// Meta returns the stored bookkeeping, or the zero value when absent.
func (d *DocStore) Meta() (DocMeta, error) {
	raw, err := d.get(metaKey)
	if err != nil || raw == nil {
		return DocMeta{}, err
	}
	var m DocMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		return DocMeta{}, &StoreError{Op: "load", Path: d.path, Err: err}
	}
	return m, nil
}

// PersistenceAdapter subscribes to a store and writes committed snapshots
// asynchronously. Writes coalesce: only the latest pending snapshot is
// written, intermediate states may be skipped.
type PersistenceAdapter struct {
	docs *DocStore

	mu      sync.Mutex
	pending []*Conversation
	kick    chan struct{}
	done    chan struct{}

	unsubscribe func()
}

// NewPersistenceAdapter starts the background writer.
func NewPersistenceAdapter(docs *DocStore) *PersistenceAdapter {
	p := &PersistenceAdapter{
		docs: docs,
		kick: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go p.run()
	return p
}

// Attach subscribes the adapter to a store's committed states.
func (p *PersistenceAdapter) Attach(s *Store) {
	p.unsubscribe = s.Subscribe(p.enqueue)
}

func (p *PersistenceAdapter) enqueue(convs []*Conversation) {
	p.mu.Lock()
	p.pending = convs
	p.mu.Unlock()
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *PersistenceAdapter) run() {
	defer close(p.done)
	for range p.kick {
		p.flushPending()
	}
}

func (p *PersistenceAdapter) flushPending() {
	p.mu.Lock()
	convs := p.pending
	p.pending = nil
	p.mu.Unlock()
	if convs == nil {
		return
	}
	if err := p.docs.SaveConversations(convs); err != nil {
		LogError("failed to persist conversations: %v", err)
	}
}

// Close detaches from the store, flushes any pending snapshot and stops the
// writer.
func (p *PersistenceAdapter) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
	close(p.kick)
	<-p.done
	p.flushPending()
}

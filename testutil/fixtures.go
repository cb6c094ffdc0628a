package testutil

import (
	"fmt"
	"testing"

	"github.com/iksnae/chatkeep/internal"
)

// OpenTestDocStore creates an in-memory document store
func OpenTestDocStore(t *testing.T) *internal.DocStore {
	t.Helper()
	ds, err := internal.OpenDocStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to open doc store: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

// OpenTestBlobStore creates an in-memory blob store
func OpenTestBlobStore(t *testing.T) *internal.SQLiteBlobStore {
	t.Helper()
	bs, err := internal.OpenBlobStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to open blob store: %v", err)
	}
	t.Cleanup(func() { _ = bs.Close() })
	return bs
}

// LegacyRecordJSON builds a portable record holding legacy flat-text
// messages, the pre-v4 shape.
func LegacyRecordJSON(id string, texts ...string) []byte {
	msgs := ""
	for i, text := range texts {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		if i > 0 {
			msgs += ","
		}
		msgs += fmt.Sprintf(`{"id":"legacy-%d","role":%q,"text":%q}`, i+1, role, text)
	}
	return []byte(fmt.Sprintf(`{"id":%q,"personaId":"default","messages":[%s]}`, id, msgs))
}

package internal

import (
	"context"
	"sync/atomic"
)

// Collector reclaims blobs no conversation references anymore. It runs as a
// best-effort background task over a possibly slightly stale snapshot; at
// most one pass is in flight at a time.
type Collector struct {
	blobs    BlobStore
	inFlight atomic.Bool
}

// NewCollector creates a collector over the given blob store.
func NewCollector(blobs BlobStore) *Collector {
	return &Collector{blobs: blobs}
}

// ReferencedBlobIDs walks every fragment of every message and collects the
// blob ids referenced by content and attachment fragments with image-like
// parts. Void fragments never pin a blob.
func ReferencedBlobIDs(convs []*Conversation) map[string]bool {
	refs := make(map[string]bool)
	for _, c := range convs {
		for _, m := range c.Messages {
			for _, f := range m.Fragments {
				if f.Kind == FragmentKindVoid || f.Part == nil {
					continue
				}
				collectPartBlobIDs(f.Part, refs)
			}
		}
	}
	return refs
}

func collectPartBlobIDs(p Part, refs map[string]bool) {
	switch v := p.(type) {
	case *ImageRefPart:
		if v.DataRef.Kind == "blob" && v.DataRef.BlobID != "" {
			refs[v.DataRef.BlobID] = true
		}
	case *ReferencePart:
		if v.AssetID != "" {
			refs[v.AssetID] = true
		}
		if v.LegacyImage != nil {
			collectPartBlobIDs(v.LegacyImage, refs)
		}
	}
}

// CollectUnreferenced deletes every blob present in the store but
// referenced by no conversation, and returns how many were deleted.
//
// Safety: when the reference scan yields nothing at all, the pass is
// skipped entirely. An empty set is indistinguishable from a transient or
// incomplete read of conversation state, and must never be mistaken for
// permission to delete everything.
func (c *Collector) CollectUnreferenced(ctx context.Context, convs []*Conversation) (int, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		LogDebug("blob GC already running, skipping pass")
		return 0, nil
	}
	defer c.inFlight.Store(false)

	refs := ReferencedBlobIDs(convs)
	if len(refs) == 0 {
		LogDebug("blob GC: no referenced blobs, skipping pass")
		return 0, nil
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	stored, err := c.blobs.ListIDs()
	if err != nil {
		return 0, err
	}

	var orphans []string
	for _, id := range stored {
		if !refs[id] {
			orphans = append(orphans, id)
		}
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	if err := c.blobs.DeleteMany(orphans); err != nil {
		return 0, err
	}
	LogDebug("blob GC: deleted %d unreferenced blobs", len(orphans))
	return len(orphans), nil
}

// OrphanIDs reports which stored blobs are unreferenced, without deleting
// anything. Used by the health check.
func (c *Collector) OrphanIDs(convs []*Conversation) ([]string, error) {
	refs := ReferencedBlobIDs(convs)
	stored, err := c.blobs.ListIDs()
	if err != nil {
		return nil, err
	}
	var orphans []string
	for _, id := range stored {
		if !refs[id] {
			orphans = append(orphans, id)
		}
	}
	return orphans, nil
}

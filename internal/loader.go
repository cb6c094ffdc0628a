package internal

// LoadStore rehydrates a store from the document store, wires the blob
// collector, and kicks the post-load GC pass. blobs may be nil when no blob
// store is configured.
func LoadStore(docs *DocStore, blobs BlobStore, opts ...StoreOption) (*Store, error) {
	if blobs != nil {
		opts = append(opts, WithCollector(NewCollector(blobs)))
	}

	// Apply options up front so the load pipeline sees the configured
	// profile and resource checker.
	cfg := &Store{profile: DefaultProfile}
	for _, opt := range opts {
		opt(cfg)
	}

	convs, err := docs.LoadConversations(cfg.liveFileExists, cfg.profile)
	if err != nil {
		return nil, err
	}

	s := NewStoreWith(convs, opts...)

	// Post-rehydration GC, best effort.
	s.maybeCollect()
	return s, nil
}

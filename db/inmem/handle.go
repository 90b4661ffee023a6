package inmem

// Handle is the db.Handle for the in-memory backend. There is no real
// connection to manage; the handle only carries the optional snapshot file
// path from configuration so callers know where to Persist to.
type Handle struct {
	// SnapshotFile is the path stores built on this handle should snapshot
	// to, or empty for purely in-memory operation.
	SnapshotFile string
}

func (h Handle) Close() error {
	return nil
}

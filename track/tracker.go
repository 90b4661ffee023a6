package track

import (
	"reflect"

	"github.com/dekarrin/silk/types"
)

// Tracker is the unit-of-work coordinator for one entity type. It owns a
// Collection, runs change detection over it, and exposes the finalized
// changeset to writers.
//
// The expected call order during a save is DetectChanges, then Entries or
// Changeset to build the write, then CommitChanges only once the write has
// succeeded. A failed write must leave the tracker untouched so that a
// retried save reissues the same operations.
type Tracker[E any] struct {
	mapper types.Mapper[E]
	col    *Collection[E]
}

// NewTracker creates a Tracker for entities mapped by the given mapper.
func NewTracker[E any](mapper types.Mapper[E]) *Tracker[E] {
	return &Tracker[E]{
		mapper: mapper,
		col:    NewCollection(mapper),
	}
}

// Collection returns the tracker's backing collection.
func (t *Tracker[E]) Collection() *Collection[E] {
	return t.col
}

// Update tracks the entity with the given state. It is the sole mutation
// entry point; Add/Remove-style calls above the tracker all route through
// it.
func (t *Tracker[E]) Update(entity E, state State) error {
	return t.col.Update(entity, state)
}

// Add tracks the entity for insertion on the next save.
func (t *Tracker[E]) Add(entity E) error {
	return t.col.Update(entity, Added)
}

// Remove detaches the entity from tracking entirely. To delete it from
// storage instead, call Update with Deleted.
func (t *Tracker[E]) Remove(entity E) (bool, error) {
	return t.col.Remove(entity)
}

// Entries returns the current snapshot of tracked entries. Call
// DetectChanges first when the snapshot must reflect direct entity
// mutations.
func (t *Tracker[E]) Entries() []*Entry[E] {
	return t.col.Entries()
}

// DetectChanges re-derives the state of every NoChanges entry by comparing
// the entity's current mapped field values against the values last seen at
// synchronization time, promoting it to Updated on any difference. Entries
// already Added, Updated, or Deleted are left untouched, which makes
// re-running detection idempotent.
func (t *Tracker[E]) DetectChanges() {
	for _, ent := range t.col.entries {
		if ent.State != NoChanges {
			continue
		}
		if ent.known == nil {
			// never synchronized; nothing to compare against
			continue
		}
		if !reflect.DeepEqual(t.mapper.FieldValues(ent.Entity), ent.known) {
			ent.State = Updated
		}
	}
}

// Changeset returns the tracked entities grouped by pending operation.
// NoChanges entries are not represented.
func (t *Tracker[E]) Changeset() types.Changeset[E] {
	var cs types.Changeset[E]
	for _, ent := range t.col.entries {
		switch ent.State {
		case Added:
			cs.Added = append(cs.Added, ent.Entity)
		case Updated:
			cs.Updated = append(cs.Updated, ent.Entity)
		case Deleted:
			cs.Deleted = append(cs.Deleted, ent.Entity)
		}
	}
	return cs
}

// CommitChanges finalizes a successful write: entries in state Deleted are
// removed from the collection and every remaining entry is reset to
// NoChanges with a fresh field snapshot. It must only be called after the
// corresponding write succeeded.
func (t *Tracker[E]) CommitChanges() {
	kept := t.col.entries[:0]
	for _, ent := range t.col.entries {
		if ent.State == Deleted {
			continue
		}
		ent.State = NoChanges
		ent.known = t.mapper.FieldValues(ent.Entity)
		kept = append(kept, ent)
	}
	t.col.entries = kept
}

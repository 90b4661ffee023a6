// Package silk is a small object-document mapping layer that sits between
// application entity types and a document database. It tracks in-memory
// changes to typed entities, works out what must be inserted, updated, and
// deleted, resolves foreign-key navigation between entity collections, and
// commits the result as one consistent, correctly ordered batch of writes.
//
// The center of the module is the Set: a unit of work over one entity type.
// Application code adds, updates, and deletes entities through a Set, then
// calls SaveChanges to reconcile everything tracked with storage. The change
// tracking itself lives in the track sub-package, per-type field mapping in
// the mapping sub-package, and storage backends under db.
package silk

import (
	"context"

	"github.com/dekarrin/silk/track"
	"github.com/dekarrin/silk/types"
)

// Set is a unit of work over one entity type backed by a change tracker and
// a group of storage collaborators. A Set instance assumes a single logical
// owner; it performs no internal locking.
//
// Use NewSet to create one.
type Set[E any] struct {
	mapper    types.Mapper[E]
	tracker   *track.Tracker[E]
	reader    types.Reader[E]
	writer    types.Writer[E]
	indexes   types.IndexWriter
	relations types.RelationWriter[E]
	validator types.Validator[E]
	log       types.Logger
}

// SetOptions carries the storage collaborators and policies a Set is
// constructed with. Every field may be left nil: a nil Reader or Writer
// causes the corresponding operations to fail with ErrNotConfigured, a nil
// IndexWriter or RelationWriter skips that save phase, a nil Validator
// disables validation, and a nil Logger silences the Set.
type SetOptions[E any] struct {
	Reader    types.Reader[E]
	Writer    types.Writer[E]
	Indexes   types.IndexWriter
	Relations types.RelationWriter[E]
	Validator types.Validator[E]
	Logger    types.Logger
}

// NewSet creates a Set for entities mapped by the given mapper, configured
// with the given collaborators.
func NewSet[E any](mapper types.Mapper[E], opts SetOptions[E]) *Set[E] {
	return &Set[E]{
		mapper:    mapper,
		tracker:   track.NewTracker(mapper),
		reader:    opts.Reader,
		writer:    opts.Writer,
		indexes:   opts.Indexes,
		relations: opts.Relations,
		validator: opts.Validator,
		log:       opts.Logger,
	}
}

// Add tracks the entity for insertion on the next save.
func (s *Set[E]) Add(entity E) error {
	return s.tracker.Update(entity, track.Added)
}

// Update tracks the entity for an update on the next save. Entities already
// tracked from a query do not require this; direct mutations are picked up
// by change detection during the save.
func (s *Set[E]) Update(entity E) error {
	return s.tracker.Update(entity, track.Updated)
}

// Delete tracks the entity for deletion from storage on the next save.
func (s *Set[E]) Delete(entity E) error {
	return s.tracker.Update(entity, track.Deleted)
}

// Attach tracks the entity as already synchronized with storage, with no
// pending changes.
func (s *Set[E]) Attach(entity E) error {
	return s.tracker.Update(entity, track.NoChanges)
}

// Detach forgets the entity entirely without touching storage. The returned
// bool is whether the entity was tracked.
func (s *Set[E]) Detach(entity E) (bool, error) {
	return s.tracker.Remove(entity)
}

// Entries returns the current snapshot of tracked entries.
func (s *Set[E]) Entries() []*track.Entry[E] {
	return s.tracker.Entries()
}

// Tracker returns the Set's change tracker, for callers that need direct
// access to the unit of work.
func (s *Set[E]) Tracker() *track.Tracker[E] {
	return s.tracker
}

// Navigation creates a navigation collection over this Set's entity type for
// the named foreign-key property, hydrating through the Set's reader.
func (s *Set[E]) Navigation(property string) (*track.NavigationCollection[E], error) {
	return track.NewNavigationCollection(s.mapper, s.reader, property)
}

// Load queries storage for every entity whose named stored property equals
// any of the given values, attaches each result to the tracker with no
// pending changes, and returns them. It fails with ErrNotConfigured when the
// Set has no reader.
func (s *Set[E]) Load(ctx context.Context, field string, values ...interface{}) ([]E, error) {
	if s.reader == nil {
		return nil, ErrNotConfigured
	}

	cur, err := s.reader.FindByField(ctx, field, values)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []E
	for cur.Next(ctx) {
		ent := cur.Entity()
		if err := s.tracker.Update(ent, track.NoChanges); err != nil {
			return nil, err
		}
		out = append(out, ent)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

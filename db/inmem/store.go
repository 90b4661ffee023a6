// Package inmem provides a silk storage backend that holds documents in
// process memory. It is primarily for tests and prototyping, but a Store can
// optionally snapshot itself to a file and be reloaded later, so small tools
// can use it as their only storage.
package inmem

import (
	"context"
	"reflect"

	"github.com/dekarrin/silk/db"
	"github.com/dekarrin/silk/internal/entsort"
	"github.com/dekarrin/silk/types"
)

// Store is an in-memory document store for one entity type. It implements
// types.Reader, types.Writer, and types.IndexWriter.
//
// Store performs no locking; like the trackers it backs, it assumes a single
// logical owner.
type Store[E any] struct {
	mapper types.Mapper[E]
	docs   map[string]E
}

// NewStore creates an empty Store for entities mapped by the given mapper.
func NewStore[E any](mapper types.Mapper[E]) *Store[E] {
	return &Store[E]{
		mapper: mapper,
		docs:   make(map[string]E),
	}
}

// Len returns the number of stored documents.
func (s *Store[E]) Len() int {
	return len(s.docs)
}

// Get returns the stored entity with the given id, or ErrNotFound.
func (s *Store[E]) Get(id interface{}) (E, error) {
	ent, ok := s.docs[db.IDString(id)]
	if !ok {
		var zero E
		return zero, types.ErrNotFound
	}
	return ent, nil
}

// All returns every stored entity, ordered by id string so that enumeration
// is deterministic.
func (s *Store[E]) All() []E {
	out := make([]E, 0, len(s.docs))
	for k := range s.docs {
		out = append(out, s.docs[k])
	}
	return entsort.By(out, func(l, r E) bool {
		return db.IDString(s.mapper.IDValue(l)) < db.IDString(s.mapper.IDValue(r))
	})
}

// FindByField returns a cursor over every stored entity whose named mapped
// property equals any of the given values.
func (s *Store[E]) FindByField(ctx context.Context, field string, values []interface{}) (types.Cursor[E], error) {
	var matched []E
	for _, ent := range s.All() {
		fv, ok := s.mapper.FieldValues(ent)[field]
		if !ok {
			continue
		}
		for _, want := range values {
			if reflect.DeepEqual(fv, want) {
				matched = append(matched, ent)
				break
			}
		}
	}
	return db.NewSliceCursor(matched), nil
}

// WriteChanges applies the changeset. Added entities still holding the
// default id get a generated one, which requires a pointer entity type;
// adding an entity whose id is already present fails with
// ErrConstraintViolation. Updates are upserts. Deleting an absent entity is
// not an error.
func (s *Store[E]) WriteChanges(ctx context.Context, cs types.Changeset[E]) error {
	for _, ent := range cs.Added {
		id := s.mapper.IDValue(ent)
		if reflect.DeepEqual(id, s.mapper.DefaultID()) {
			newID, err := s.mapper.GenerateID()
			if err != nil {
				return err
			}
			if err := s.mapper.SetIDValue(ent, newID); err != nil {
				return err
			}
			id = newID
		}

		key := db.IDString(id)
		if _, ok := s.docs[key]; ok {
			return types.ErrConstraintViolation
		}
		s.docs[key] = ent
	}

	for _, ent := range cs.Updated {
		s.docs[db.IDString(s.mapper.IDValue(ent))] = ent
	}

	for _, ent := range cs.Deleted {
		delete(s.docs, db.IDString(s.mapper.IDValue(ent)))
	}

	return nil
}

// EnsureIndexes is a no-op; every lookup in this backend is a scan.
func (s *Store[E]) EnsureIndexes(ctx context.Context) error {
	return nil
}

// Close drops all stored documents.
func (s *Store[E]) Close() error {
	s.docs = make(map[string]E)
	return nil
}

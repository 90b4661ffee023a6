package track

import (
	"context"

	"github.com/dekarrin/silk/types"
)

// Stream is a two-phase cursor over a NavigationCollection's membership,
// created by calling its Stream method. Phase one yields the snapshot of
// entities that were loaded when the stream was created; phase two, entered
// on the first advance past that snapshot, issues one batched load for the
// pending foreign ids and yields each freshly loaded entity while folding it
// into the backing collection. Phase two never triggers once the pending set
// is empty.
//
// Stream satisfies the same advance-then-read protocol as types.Cursor.
type Stream[E any] struct {
	nav      *NavigationCollection[E]
	snapshot []E
	pos      int
	loading  types.Cursor[E]
	current  E
	err      error
	done     bool
}

// Next advances the stream. It returns false once the membership is
// exhausted or an error occurred; use Err to tell which.
func (s *Stream[E]) Next(ctx context.Context) bool {
	if s.err != nil || s.done {
		return false
	}

	// phase one: already-loaded snapshot
	if s.pos < len(s.snapshot) {
		s.current = s.snapshot[s.pos]
		s.pos++
		return true
	}

	// phase two: batched load of whatever is still pending
	if s.loading == nil {
		if len(s.nav.unloaded) == 0 {
			s.done = true
			return false
		}
		if s.nav.reader == nil {
			s.err = types.ErrNotConfigured
			return false
		}
		// the fold below mutates the pending set, so the query gets a copy
		cur, err := s.nav.reader.FindByField(ctx, s.nav.property, s.nav.Unloaded())
		if err != nil {
			s.err = err
			return false
		}
		s.loading = cur
	}

	if s.loading.Next(ctx) {
		ent := s.loading.Entity()
		if err := s.nav.Collection.Update(ent, NoChanges); err != nil {
			s.err = err
			return false
		}
		s.nav.dropUnloaded(s.nav.mapper.FieldValues(ent)[s.nav.property])
		s.current = ent
		return true
	}

	s.err = s.loading.Err()
	_ = s.loading.Close(ctx)
	s.loading = nil
	s.done = true
	if s.err == nil {
		// load complete; ids that matched nothing are dropped with it
		s.nav.unloaded = nil
	}
	return false
}

// Entity returns the entity at the current position. It is only valid after
// a call to Next that returned true.
func (s *Stream[E]) Entity() E {
	return s.current
}

// Err returns the error that ended the stream early, if any.
func (s *Stream[E]) Err() error {
	return s.err
}

// Close releases the stream's underlying load cursor, if one is open.
func (s *Stream[E]) Close(ctx context.Context) error {
	s.done = true
	if s.loading != nil {
		err := s.loading.Close(ctx)
		s.loading = nil
		return err
	}
	return nil
}

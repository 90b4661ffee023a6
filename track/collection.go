package track

import (
	"reflect"

	"github.com/dekarrin/silk/types"
)

// Collection is an identity-keyed, insertion-ordered set of entries for one
// entity type. At most one entry exists per resolved identity at any time.
//
// Identity resolution is two-tiered: two entities are the same tracked item
// if their mapped identifier values are equal and neither is the mapper's
// default (unset) sentinel, or, when the identifier is unset, if they are the
// same in-memory instance. The fallback is what keeps two distinct
// not-yet-persisted entities from being merged while still deduplicating
// persisted ones by id.
//
// The zero value is not usable; call NewCollection.
type Collection[E any] struct {
	mapper  types.Mapper[E]
	entries []*Entry[E]
}

// NewCollection creates a Collection that resolves identity through the given
// mapper.
func NewCollection[E any](mapper types.Mapper[E]) *Collection[E] {
	return &Collection[E]{
		mapper: mapper,
	}
}

// GetEntry returns the entry tracking the given entity, applying the two-tier
// identity rule. The scan is linear; collections are expected to stay small
// within one request scope.
func (c *Collection[E]) GetEntry(entity E) (*Entry[E], bool) {
	id := c.mapper.IDValue(entity)
	def := c.mapper.DefaultID()
	idSet := !reflect.DeepEqual(id, def)

	for _, ent := range c.entries {
		entID := c.mapper.IDValue(ent.Entity)
		if idSet {
			if !reflect.DeepEqual(entID, def) && reflect.DeepEqual(entID, id) {
				return ent, true
			}
			continue
		}
		if reflect.DeepEqual(entID, def) && sameInstance(ent.Entity, entity) {
			return ent, true
		}
	}
	return nil, false
}

// Update tracks the given entity with the requested state. If an entry
// already tracks the same identity and holds the same instance, only its
// state changes. If an entry holds a *different* instance under the same
// identifier - a stale duplicate - that entry is dropped and replaced by a
// fresh one for the incoming instance. Otherwise a new entry is appended.
//
// A nil entity fails with ErrNilArgument before any mutation.
func (c *Collection[E]) Update(entity E, state State) error {
	if isNilValue(entity) {
		return types.ErrNilArgument
	}

	ent, ok := c.GetEntry(entity)
	if ok {
		if sameInstance(ent.Entity, entity) {
			ent.State = state
			if state == NoChanges {
				// the entity is being declared synchronized; its current
				// values are the new detection baseline
				ent.known = c.mapper.FieldValues(entity)
			}
			return nil
		}
		// same identifier, different instance; drop the stale entry
		c.remove(ent)
	}

	c.entries = append(c.entries, c.newEntry(entity, state))
	return nil
}

// Add tracks the entity for insertion. It is shorthand for
// Update(entity, Added).
func (c *Collection[E]) Add(entity E) error {
	return c.Update(entity, Added)
}

// Remove detaches the entity from the collection outright. This is distinct
// from tracking it as Deleted: a removed entity is simply forgotten, while a
// Deleted one remains tracked until the delete is written. The returned bool
// is whether an entry existed.
func (c *Collection[E]) Remove(entity E) (bool, error) {
	if isNilValue(entity) {
		return false, types.ErrNilArgument
	}

	ent, ok := c.GetEntry(entity)
	if !ok {
		return false, nil
	}
	c.remove(ent)
	return true, nil
}

// Clear drops every entry unconditionally.
func (c *Collection[E]) Clear() {
	c.entries = nil
}

// Len returns the number of tracked entries.
func (c *Collection[E]) Len() int {
	return len(c.entries)
}

// Entries returns the current entries in insertion order. The returned slice
// is a copy but the entries it points to are live; mutating their State
// mutates the collection.
func (c *Collection[E]) Entries() []*Entry[E] {
	out := make([]*Entry[E], len(c.entries))
	copy(out, c.entries)
	return out
}

// Entities returns the tracked entities, not their entries, in insertion
// order.
func (c *Collection[E]) Entities() []E {
	out := make([]E, len(c.entries))
	for i := range c.entries {
		out[i] = c.entries[i].Entity
	}
	return out
}

func (c *Collection[E]) newEntry(entity E, state State) *Entry[E] {
	ent := &Entry[E]{
		Entity: entity,
		State:  state,
	}
	if state == NoChanges {
		// tracked straight from a query; snapshot now so detection has a
		// baseline
		ent.known = c.mapper.FieldValues(entity)
	}
	return ent
}

func (c *Collection[E]) remove(target *Entry[E]) {
	for i := range c.entries {
		if c.entries[i] == target {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

// Package track implements the change-tracking core of silk: tracked entity
// entries, identity-keyed entity collections, lazily-loaded navigation
// collections, and the per-type change tracker that turns tracked entities
// into a changeset ready for writing.
//
// A Collection (and everything built on it) assumes a single logical owner;
// none of the types in this package perform internal locking. Callers that
// share one across goroutines must provide their own synchronization.
package track

import (
	"fmt"
	"reflect"
)

// State is the lifecycle state of a tracked entity entry. It is always one of
// the four defined values; transitions happen only through explicit tracking
// calls or change detection, never silently.
type State int

const (
	// NoChanges means the entity matches what storage last reported; a save
	// will not write it.
	NoChanges State = iota

	// Added means the entity will be inserted on the next save.
	Added

	// Updated means the entity will be updated on the next save.
	Updated

	// Deleted means the entity will be deleted from storage on the next save,
	// after which its entry is dropped from the collection.
	Deleted
)

func (s State) String() string {
	switch s {
	case NoChanges:
		return "NoChanges"
	case Added:
		return "Added"
	case Updated:
		return "Updated"
	case Deleted:
		return "Deleted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Entry is the tracked pairing of one entity instance and its pending
// persistence state. Entries are created by their owning Collection when an
// entity is first tracked and should not be constructed directly.
type Entry[E any] struct {
	// Entity is the tracked instance.
	Entity E

	// State is the entry's lifecycle state.
	State State

	// known holds the mapped field values as of the last time this entry was
	// synchronized with storage. Change detection compares it against the
	// entity's current field values. It is nil until the entry first reaches
	// NoChanges.
	known map[string]interface{}
}

// isNilValue reports whether v is nil, including a typed nil inside the
// interface.
func isNilValue(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// sameInstance reports whether a and b are the same in-memory entity. For
// pointer entity types this is pointer identity; for value types it falls
// back to deep value equality.
func sameInstance[E any](a, b E) bool {
	av := reflect.ValueOf(a)
	if av.Kind() == reflect.Ptr {
		bv := reflect.ValueOf(b)
		return av.Pointer() == bv.Pointer()
	}
	return reflect.DeepEqual(a, b)
}

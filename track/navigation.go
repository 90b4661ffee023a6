package track

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dekarrin/silk/types"
)

// NavigationCollection is a Collection for one side of a relationship whose
// members may be known by foreign identifier before being loaded into memory.
// It keeps the set of not-yet-materialized foreign id values alongside the
// loaded entries and hydrates them on demand through a Reader, so that
// tracking a relationship does not force an eager fan-out query.
//
// The total logical membership is the loaded entries plus the unloaded ids;
// callers must not assume every member is materialized. See Count.
type NavigationCollection[E any] struct {
	*Collection[E]

	reader   types.Reader[E]
	property string
	propType reflect.Type
	unloaded []interface{}
}

// NewNavigationCollection creates a NavigationCollection over entities of
// type E whose stored property named by property holds the foreign reference.
// The property's declared type is resolved through the mapper once, up front,
// and used to type-check every foreign id added later. An unmapped property
// name is an error.
func NewNavigationCollection[E any](mapper types.Mapper[E], reader types.Reader[E], property string) (*NavigationCollection[E], error) {
	pt, ok := mapper.PropertyType(property)
	if !ok {
		return nil, fmt.Errorf("entity type has no mapped property %q", property)
	}

	return &NavigationCollection[E]{
		Collection: NewCollection(mapper),
		reader:     reader,
		property:   property,
		propType:   pt,
	}, nil
}

// Property returns the name of the foreign-key property this collection
// navigates on.
func (nc *NavigationCollection[E]) Property() string {
	return nc.property
}

// AddForeignID records that an entity with the given foreign-key value
// belongs to this collection without loading it. If a loaded entry already
// has that foreign-key value the call is a no-op, as is adding an id that is
// already pending.
//
// A nil id fails with ErrNilArgument and an id whose runtime type does not
// match the property's declared type fails with ErrTypeMismatch; in both
// cases the pending id set is untouched.
func (nc *NavigationCollection[E]) AddForeignID(id interface{}) error {
	if isNilValue(id) {
		return types.ErrNilArgument
	}
	if reflect.TypeOf(id) != nc.propType {
		return fmt.Errorf("%w: property %q holds %s, not %T", types.ErrTypeMismatch, nc.property, nc.propType, id)
	}

	for _, ent := range nc.entries {
		fv := nc.mapper.FieldValues(ent.Entity)
		if reflect.DeepEqual(fv[nc.property], id) {
			// already represented by a loaded entity
			return nil
		}
	}
	for _, pending := range nc.unloaded {
		if reflect.DeepEqual(pending, id) {
			return nil
		}
	}

	nc.unloaded = append(nc.unloaded, id)
	return nil
}

// AddForeignIDs applies AddForeignID to each id in order. The batch is
// fail-fast: the first invalid id aborts the call and is reported, and ids
// after it are not examined. Ids admitted before the failure stay admitted;
// each individual add is atomic but the batch as a whole is not.
func (nc *NavigationCollection[E]) AddForeignIDs(ids ...interface{}) error {
	for i := range ids {
		if err := nc.AddForeignID(ids[i]); err != nil {
			return fmt.Errorf("id at index %d: %w", i, err)
		}
	}
	return nil
}

// LoadAll materializes every pending foreign id in one batched read. Each
// returned entity is tracked as a NoChanges entry and its foreign id leaves
// the pending set the moment it is tracked, so an id is never pending and
// loaded at once. When the read completes, ids that matched nothing are
// dropped silently too, not treated as an error.
//
// If nothing is pending this is a no-op. If the read fails, ids not yet
// matched stay pending so a later call can retry them.
func (nc *NavigationCollection[E]) LoadAll(ctx context.Context) error {
	if len(nc.unloaded) == 0 {
		return nil
	}
	if nc.reader == nil {
		return types.ErrNotConfigured
	}

	// the fold below mutates the pending set, so the query gets a copy
	cur, err := nc.reader.FindByField(ctx, nc.property, nc.Unloaded())
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		ent := cur.Entity()
		if err := nc.Collection.Update(ent, NoChanges); err != nil {
			return err
		}
		nc.dropUnloaded(nc.mapper.FieldValues(ent)[nc.property])
	}
	if err := cur.Err(); err != nil {
		return err
	}

	nc.unloaded = nil
	return nil
}

// dropUnloaded removes one pending foreign id, if present. Called as loaded
// entities are folded in, so that no id is ever simultaneously pending and
// represented by a loaded entry.
func (nc *NavigationCollection[E]) dropUnloaded(id interface{}) {
	for i := range nc.unloaded {
		if reflect.DeepEqual(nc.unloaded[i], id) {
			nc.unloaded = append(nc.unloaded[:i], nc.unloaded[i+1:]...)
			return
		}
	}
}

// ForeignIDs returns the complete membership key set regardless of load
// state: the foreign-key values of every loaded entry unioned with the
// pending unloaded ids.
func (nc *NavigationCollection[E]) ForeignIDs() []interface{} {
	var out []interface{}
	seen := func(v interface{}) bool {
		for _, have := range out {
			if reflect.DeepEqual(have, v) {
				return true
			}
		}
		return false
	}

	for _, ent := range nc.entries {
		fv := nc.mapper.FieldValues(ent.Entity)
		if v, ok := fv[nc.property]; ok && !seen(v) {
			out = append(out, v)
		}
	}
	for _, pending := range nc.unloaded {
		if !seen(pending) {
			out = append(out, pending)
		}
	}
	return out
}

// Count returns the total logical membership: loaded entries plus pending
// unloaded ids.
func (nc *NavigationCollection[E]) Count() int {
	return nc.Len() + len(nc.unloaded)
}

// Unloaded returns a copy of the pending foreign id set.
func (nc *NavigationCollection[E]) Unloaded() []interface{} {
	out := make([]interface{}, len(nc.unloaded))
	copy(out, nc.unloaded)
	return out
}

// Stream returns a cursor over the full membership of the collection. It
// first yields every currently loaded entity, then, if unloaded ids remain,
// performs the same batched load as LoadAll but yields each entity as it
// streams in, folding it into the collection as a side effect. Because of
// that fold, a second Stream after full consumption yields the same entities
// without touching storage again.
//
// The stream is single-pass and finite. Mutating the collection while a
// stream is open is undefined, per the package's single-owner rule.
func (nc *NavigationCollection[E]) Stream() *Stream[E] {
	return &Stream[E]{
		nav:      nc,
		snapshot: nc.Entities(),
	}
}

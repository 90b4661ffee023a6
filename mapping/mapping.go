// Package mapping builds the per-entity-type mappers consumed by the
// change-tracking core. A Map is derived once from an entity type's struct
// definition - stored field names come from bson tags, the identifier field
// is recognized by its "_id" tag or by being named ID - and is then used on
// the hot tracking path without any further type inspection.
//
// Maps are obtained through an explicit Registry rather than a package-level
// table so that two independent uses of the module (a test and the code under
// test, say) never share hidden mutable state.
package mapping

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// IDField is the stored name of the identifier field.
const IDField = "_id"

type field struct {
	name  string // stored name
	index int    // struct field index
	typ   reflect.Type
}

// Map describes how entities of type E map onto stored documents. It
// implements types.Mapper[E].
//
// E may be a struct type or a pointer to one. Use For to obtain a Map.
type Map[E any] struct {
	entityType reflect.Type // the struct type, pointers stripped
	pointer    bool         // whether E itself is a pointer type
	fields     []field
	idIndex    int // index into fields of the identifier field
}

// newMap derives the Map for E, or fails if E is not a struct type (or
// pointer to one) or has no recognizable identifier field.
func newMap[E any]() (*Map[E], error) {
	var zero E
	t := reflect.TypeOf(&zero).Elem()

	m := &Map[E]{idIndex: -1}
	if t.Kind() == reflect.Ptr {
		m.pointer = true
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot map non-struct entity type %s", t)
	}
	m.entityType = t

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			// unexported
			continue
		}

		name := strings.ToLower(sf.Name)
		if tag, ok := sf.Tag.Lookup("bson"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
		}

		m.fields = append(m.fields, field{name: name, index: i, typ: sf.Type})
	}

	// an explicit "_id" tag wins; otherwise a field named ID (or Id) is the
	// identifier and is stored under "_id"
	for i := range m.fields {
		if m.fields[i].name == IDField {
			m.idIndex = i
			break
		}
	}
	if m.idIndex < 0 {
		for i := range m.fields {
			fName := t.Field(m.fields[i].index).Name
			if fName == "ID" || fName == "Id" {
				m.fields[i].name = IDField
				m.idIndex = i
				break
			}
		}
	}
	if m.idIndex < 0 {
		return nil, fmt.Errorf("entity type %s has no identifier field (bson:\"_id\" tag or field named ID)", t)
	}

	return m, nil
}

func (m *Map[E]) structValue(entity E) reflect.Value {
	v := reflect.ValueOf(entity)
	if m.pointer {
		v = v.Elem()
	}
	return v
}

// IDValue returns the entity's mapped identifier value.
func (m *Map[E]) IDValue(entity E) interface{} {
	return m.structValue(entity).Field(m.fields[m.idIndex].index).Interface()
}

// DefaultID returns the sentinel meaning "identifier not yet assigned": the
// zero value of the identifier field's type.
func (m *Map[E]) DefaultID() interface{} {
	return reflect.Zero(m.fields[m.idIndex].typ).Interface()
}

// SetIDValue assigns id to the entity's identifier field. E must be a
// pointer type for the assignment to be visible to the caller; for value
// entity types SetIDValue returns an error.
func (m *Map[E]) SetIDValue(entity E, id interface{}) error {
	if !m.pointer {
		return fmt.Errorf("cannot assign id through value entity type %s", m.entityType)
	}

	fv := m.structValue(entity).Field(m.fields[m.idIndex].index)
	iv := reflect.ValueOf(id)
	if iv.Type() != fv.Type() {
		return fmt.Errorf("id type %T does not match identifier field type %s", id, fv.Type())
	}
	fv.Set(iv)
	return nil
}

// GenerateID produces a fresh identifier value for the entity type's id
// field. UUID ids get a random UUID, bson ObjectID ids get a new ObjectID,
// and string ids get the string form of a random UUID. Other id types must
// be assigned by the caller before insert; GenerateID fails for them.
func (m *Map[E]) GenerateID() (interface{}, error) {
	idType := m.fields[m.idIndex].typ

	switch idType {
	case reflect.TypeOf(uuid.UUID{}):
		return uuid.NewRandom()
	case reflect.TypeOf(bson.ObjectID{}):
		return bson.NewObjectID(), nil
	}
	if idType.Kind() == reflect.String {
		newUUID, err := uuid.NewRandom()
		if err != nil {
			return nil, err
		}
		return newUUID.String(), nil
	}

	return nil, fmt.Errorf("no id generation strategy for identifier type %s", idType)
}

// FieldValues returns the entity's current mapped field values keyed by
// stored field name, identifier included.
func (m *Map[E]) FieldValues(entity E) map[string]interface{} {
	v := m.structValue(entity)
	out := make(map[string]interface{}, len(m.fields))
	for _, f := range m.fields {
		out[f.name] = v.Field(f.index).Interface()
	}
	return out
}

// PropertyType resolves the declared Go type of the named stored property.
func (m *Map[E]) PropertyType(name string) (reflect.Type, bool) {
	for _, f := range m.fields {
		if f.name == name {
			return f.typ, true
		}
	}
	return nil, false
}

// FieldNames returns every stored field name in declaration order.
func (m *Map[E]) FieldNames() []string {
	out := make([]string, len(m.fields))
	for i := range m.fields {
		out[i] = m.fields[i].name
	}
	return out
}

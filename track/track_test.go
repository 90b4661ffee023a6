package track

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/dekarrin/silk/db"
	"github.com/dekarrin/silk/mapping"
	"github.com/dekarrin/silk/types"
)

// widget is the entity type shared across the tests in this package.
type widget struct {
	ID    uuid.UUID `bson:"_id"`
	Name  string    `bson:"name"`
	Owner string    `bson:"owner"`
}

var (
	idAlpha = uuid.MustParse("82779fe7-0ca5-4b45-9b05-98b961dff83e")
	idBeta  = uuid.MustParse("d91cc234-6bfc-42c4-b0b5-e8bbbb1d4bb7")
	idGamma = uuid.MustParse("3391f5b7-03c3-4e69-9a3f-a04e69c2306c")
	idDelta = uuid.MustParse("236e5b6a-bbbe-416c-bc7b-d459ae9a1639")
)

func widgetMapper(t *testing.T) types.Mapper[*widget] {
	t.Helper()

	m, err := mapping.For[*widget](mapping.NewRegistry())
	if err != nil {
		t.Fatalf("could not build widget mapping: %v", err)
	}
	return m
}

// stubReader serves canned widgets and records how it was called.
type stubReader struct {
	entities []*widget
	err      error
	calls    int

	lastField  string
	lastValues []interface{}
}

func (r *stubReader) FindByField(ctx context.Context, field string, values []interface{}) (types.Cursor[*widget], error) {
	r.calls++
	r.lastField = field
	r.lastValues = values

	if r.err != nil {
		return nil, r.err
	}

	var matched []*widget
	for _, ent := range r.entities {
		for _, v := range values {
			if ent.Owner == v || ent.ID == v {
				matched = append(matched, ent)
				break
			}
		}
	}
	return db.NewSliceCursor(matched), nil
}

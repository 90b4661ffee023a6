package inmem

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/silk/mapping"
	"github.com/dekarrin/silk/types"
)

type gadget struct {
	ID    uuid.UUID `bson:"_id"`
	Name  string    `bson:"name"`
	Owner string    `bson:"owner"`
}

var (
	idAlpha = uuid.MustParse("82779fe7-0ca5-4b45-9b05-98b961dff83e")
	idBeta  = uuid.MustParse("d91cc234-6bfc-42c4-b0b5-e8bbbb1d4bb7")
)

func gadgetStore(t *testing.T) *Store[*gadget] {
	t.Helper()

	m, err := mapping.For[*gadget](mapping.NewRegistry())
	if err != nil {
		t.Fatalf("could not build gadget mapping: %v", err)
	}
	return NewStore[*gadget](m)
}

func Test_Store_WriteChanges(t *testing.T) {
	ctx := context.Background()

	t.Run("insert generates missing ids", func(t *testing.T) {
		assert := assert.New(t)
		store := gadgetStore(t)

		ent := &gadget{Name: "thing"}
		err := store.WriteChanges(ctx, types.Changeset[*gadget]{Added: []*gadget{ent}})

		assert.NoError(err)
		assert.NotEqual(uuid.UUID{}, ent.ID)
		assert.Equal(1, store.Len())
	})

	t.Run("insert keeps a preset id", func(t *testing.T) {
		assert := assert.New(t)
		store := gadgetStore(t)

		ent := &gadget{ID: idAlpha, Name: "thing"}
		err := store.WriteChanges(ctx, types.Changeset[*gadget]{Added: []*gadget{ent}})

		assert.NoError(err)
		got, err := store.Get(idAlpha)
		assert.NoError(err)
		assert.Same(ent, got)
	})

	t.Run("duplicate insert violates the key constraint", func(t *testing.T) {
		assert := assert.New(t)
		store := gadgetStore(t)

		first := &gadget{ID: idAlpha, Name: "first"}
		assert.NoError(store.WriteChanges(ctx, types.Changeset[*gadget]{Added: []*gadget{first}}))

		err := store.WriteChanges(ctx, types.Changeset[*gadget]{
			Added: []*gadget{{ID: idAlpha, Name: "second"}},
		})

		assert.ErrorIs(err, types.ErrConstraintViolation)
	})

	t.Run("update upserts", func(t *testing.T) {
		assert := assert.New(t)
		store := gadgetStore(t)

		ent := &gadget{ID: idAlpha, Name: "fresh"}
		err := store.WriteChanges(ctx, types.Changeset[*gadget]{Updated: []*gadget{ent}})

		assert.NoError(err)
		assert.Equal(1, store.Len())
	})

	t.Run("delete of absent entity is not an error", func(t *testing.T) {
		assert := assert.New(t)
		store := gadgetStore(t)

		err := store.WriteChanges(ctx, types.Changeset[*gadget]{
			Deleted: []*gadget{{ID: idAlpha}},
		})

		assert.NoError(err)
	})

	t.Run("full cycle", func(t *testing.T) {
		assert := assert.New(t)
		store := gadgetStore(t)

		keep := &gadget{ID: idAlpha, Name: "keep"}
		drop := &gadget{ID: idBeta, Name: "drop"}
		assert.NoError(store.WriteChanges(ctx, types.Changeset[*gadget]{Added: []*gadget{keep, drop}}))

		keep.Name = "kept"
		assert.NoError(store.WriteChanges(ctx, types.Changeset[*gadget]{
			Updated: []*gadget{keep},
			Deleted: []*gadget{drop},
		}))

		assert.Equal(1, store.Len())
		got, err := store.Get(idAlpha)
		assert.NoError(err)
		assert.Equal("kept", got.Name)
		_, err = store.Get(idBeta)
		assert.ErrorIs(err, types.ErrNotFound)
	})
}

func Test_Store_FindByField(t *testing.T) {
	ctx := context.Background()
	store := gadgetStore(t)

	err := store.WriteChanges(ctx, types.Changeset[*gadget]{Added: []*gadget{
		{ID: idAlpha, Name: "one", Owner: "rose"},
		{ID: idBeta, Name: "two", Owner: "dave"},
	}})
	if err != nil {
		t.Fatalf("could not seed store: %v", err)
	}

	t.Run("matches across the value set", func(t *testing.T) {
		assert := assert.New(t)

		cur, err := store.FindByField(ctx, "owner", []interface{}{"rose", "dave"})
		assert.NoError(err)
		defer cur.Close(ctx)

		var names []string
		for cur.Next(ctx) {
			names = append(names, cur.Entity().Name)
		}
		assert.NoError(cur.Err())
		assert.ElementsMatch([]string{"one", "two"}, names)
	})

	t.Run("by id field", func(t *testing.T) {
		assert := assert.New(t)

		cur, err := store.FindByField(ctx, "_id", []interface{}{idAlpha})
		assert.NoError(err)
		defer cur.Close(ctx)

		assert.True(cur.Next(ctx))
		assert.Equal("one", cur.Entity().Name)
		assert.False(cur.Next(ctx))
	})

	t.Run("no matches yields an empty cursor", func(t *testing.T) {
		assert := assert.New(t)

		cur, err := store.FindByField(ctx, "owner", []interface{}{"nobody"})
		assert.NoError(err)
		defer cur.Close(ctx)

		assert.False(cur.Next(ctx))
		assert.NoError(cur.Err())
	})

	t.Run("unmapped field matches nothing", func(t *testing.T) {
		assert := assert.New(t)

		cur, err := store.FindByField(ctx, "nonexistent", []interface{}{"x"})
		assert.NoError(err)
		defer cur.Close(ctx)

		assert.False(cur.Next(ctx))
	})
}

func Test_Store_Persist(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gadgets.dat")

	store := gadgetStore(t)
	assert.NoError(store.WriteChanges(ctx, types.Changeset[*gadget]{Added: []*gadget{
		{ID: idAlpha, Name: "one", Owner: "rose"},
		{ID: idBeta, Name: "two", Owner: "dave"},
	}}))

	assert.NoError(store.Persist(path))

	reloaded := gadgetStore(t)
	assert.NoError(reloaded.Load(path))

	assert.Equal(2, reloaded.Len())
	got, err := reloaded.Get(idAlpha)
	assert.NoError(err)
	assert.Equal("one", got.Name)
	assert.Equal("rose", got.Owner)
}

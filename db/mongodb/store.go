package mongodb

import (
	"context"
	"reflect"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dekarrin/silk/types"
)

// Store is a MongoDB-backed document store for one entity type over one
// collection. It implements types.Reader, types.Writer, and
// types.IndexWriter.
type Store[E any] struct {
	mapper      types.Mapper[E]
	coll        *mongo.Collection
	indexFields []string
}

// NewStore creates a Store over the named collection of the given database.
func NewStore[E any](mapper types.Mapper[E], database *mongo.Database, collection string) *Store[E] {
	return &Store[E]{
		mapper: mapper,
		coll:   database.Collection(collection),
	}
}

// Indexes configures which stored fields EnsureIndexes maintains single
// field ascending indexes for. It replaces any previously configured list.
func (s *Store[E]) Indexes(fields ...string) {
	s.indexFields = fields
}

// EnsureIndexes creates the configured indexes. Creating an index that
// already exists is a no-op server side, so this is safe to run every save.
func (s *Store[E]) EnsureIndexes(ctx context.Context) error {
	if len(s.indexFields) == 0 {
		return nil
	}

	models := make([]mongo.IndexModel, len(s.indexFields))
	for i, field := range s.indexFields {
		models[i] = mongo.IndexModel{
			Keys: bson.D{{Key: field, Value: 1}},
		}
	}
	_, err := s.coll.Indexes().CreateMany(ctx, models)
	return WrapDBError(err)
}

// FindByField returns a cursor over every document whose named property
// equals any of the given values, streamed from the server as it is
// consumed.
func (s *Store[E]) FindByField(ctx context.Context, field string, values []interface{}) (types.Cursor[E], error) {
	cur, err := s.coll.Find(ctx, bson.M{field: bson.M{"$in": values}})
	if err != nil {
		return nil, WrapDBError(err)
	}
	return &streamCursor[E]{cur: cur}, nil
}

// WriteChanges applies the changeset as a single ordered bulk write:
// inserts for Added (generating ids for entities still holding the default
// id, which requires a pointer entity type), upserting replacements for
// Updated, and deletes for Deleted. An empty changeset performs no round
// trip at all.
func (s *Store[E]) WriteChanges(ctx context.Context, cs types.Changeset[E]) error {
	var models []mongo.WriteModel

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
		}
		models = append(models, mongo.NewInsertOneModel().SetDocument(ent))
	}

	for _, ent := range cs.Updated {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": s.mapper.IDValue(ent)}).
			SetReplacement(ent).
			SetUpsert(true))
	}

	for _, ent := range cs.Deleted {
		models = append(models, mongo.NewDeleteOneModel().
			SetFilter(bson.M{"_id": s.mapper.IDValue(ent)}))
	}

	if len(models) == 0 {
		return nil
	}

	_, err := s.coll.BulkWrite(ctx, models)
	return WrapDBError(err)
}

// streamCursor adapts the driver cursor to types.Cursor, decoding each
// document into the entity type as it is read.
type streamCursor[E any] struct {
	cur     *mongo.Cursor
	current E
	err     error
}

func (c *streamCursor[E]) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if !c.cur.Next(ctx) {
		c.err = c.cur.Err()
		return false
	}

	ent, err := decodeCurrent[E](c.cur)
	if err != nil {
		c.err = err
		return false
	}
	c.current = ent
	return true
}

func (c *streamCursor[E]) Entity() E {
	return c.current
}

func (c *streamCursor[E]) Err() error {
	return c.err
}

func (c *streamCursor[E]) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}

// decodeCurrent decodes the cursor's current document into a fresh E,
// handling both pointer and value entity types.
func decodeCurrent[E any](cur *mongo.Cursor) (E, error) {
	var zero E
	t := reflect.TypeOf(&zero).Elem()

	if t.Kind() == reflect.Ptr {
		target := reflect.New(t.Elem())
		if err := cur.Decode(target.Interface()); err != nil {
			return zero, err
		}
		return target.Interface().(E), nil
	}

	target := reflect.New(t)
	if err := cur.Decode(target.Interface()); err != nil {
		return zero, err
	}
	return target.Elem().Interface().(E), nil
}

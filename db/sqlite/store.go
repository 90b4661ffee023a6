package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dekarrin/silk/db"
	"github.com/dekarrin/silk/types"
)

// Store is a SQLite-backed document store for one entity type. It implements
// types.Reader, types.Writer, and types.IndexWriter.
//
// Document bodies are stored as relaxed extended JSON derived from the same
// bson tags the mapper reads, so stored field names line up with mapped
// property names. uuid.UUID properties are stored as their canonical string
// form; field queries compare string and numeric properties directly and
// match anything else against its string form.
//
// Its zero-value should not be used; call NewStore to get a Store ready for
// use.
type Store[E any] struct {
	mapper      types.Mapper[E]
	database    *sql.DB
	table       string
	indexFields []string
	ownsDB      bool
}

// NewStore opens (creating if needed) the SQLite database in the given file
// and prepares a Store over the named table. Multiple Stores for different
// entity types may share one file by opening it separately; each manages
// only its own table.
func NewStore[E any](mapper types.Mapper[E], file string, table string) (*Store[E], error) {
	database, err := sql.Open("sqlite", file)
	if err != nil {
		return nil, WrapDBError(err)
	}

	st := &Store[E]{
		mapper:   mapper,
		database: database,
		table:    table,
		ownsDB:   true,
	}
	if err := st.init(); err != nil {
		database.Close()
		return nil, err
	}
	return st, nil
}

// NewStoreOnDB prepares a Store over the named table of an already-open
// database handle. Closing the Store will not close the handle.
func NewStoreOnDB[E any](mapper types.Mapper[E], database *sql.DB, table string) (*Store[E], error) {
	st := &Store[E]{
		mapper:   mapper,
		database: database,
		table:    table,
	}
	if err := st.init(); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store[E]) init() error {
	_, err := s.database.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT NOT NULL PRIMARY KEY,
		data TEXT NOT NULL
	);`, s.table))
	if err != nil {
		return WrapDBError(err)
	}
	return nil
}

// Indexes configures which stored fields EnsureIndexes maintains expression
// indexes for. It replaces any previously configured list.
func (s *Store[E]) Indexes(fields ...string) {
	s.indexFields = fields
}

// EnsureIndexes creates an expression index over json_extract for every
// configured index field that does not already have one.
func (s *Store[E]) EnsureIndexes(ctx context.Context) error {
	for _, field := range s.indexFields {
		stmt := fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (json_extract(data, '$.%s'));`,
			s.table, field, s.table, field,
		)
		if _, err := s.database.ExecContext(ctx, stmt); err != nil {
			return WrapDBError(err)
		}
	}
	return nil
}

// FindByField returns a cursor over every stored entity whose named property
// equals any of the given values. Lookups on the identifier go to the
// primary key column; everything else goes through json_extract on the
// document body.
func (s *Store[E]) FindByField(ctx context.Context, field string, values []interface{}) (types.Cursor[E], error) {
	if len(values) == 0 {
		return db.NewSliceCursor[E](nil), nil
	}

	placeholders := ""
	args := make([]interface{}, len(values))
	for i, v := range values {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args[i] = bindable(v)
	}

	var query string
	if field == "_id" {
		query = fmt.Sprintf(`SELECT data FROM %s WHERE id IN (%s);`, s.table, placeholders)
	} else {
		query = fmt.Sprintf(`SELECT data FROM %s WHERE json_extract(data, '$.%s') IN (%s);`, s.table, field, placeholders)
	}

	rows, err := s.database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, WrapDBError(err)
	}
	defer rows.Close()

	var matched []E
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, WrapDBError(err)
		}
		ent, err := decodeEntity[E](body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrDecodingFailure, err)
		}
		matched = append(matched, ent)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapDBError(err)
	}

	return db.NewSliceCursor(matched), nil
}

// WriteChanges applies the changeset in one transaction. Added entities
// still holding the default id get a generated one, which requires a pointer
// entity type; inserting over an existing id fails with
// ErrConstraintViolation. Updates are upserts. Deleting an absent entity is
// not an error.
func (s *Store[E]) WriteChanges(ctx context.Context, cs types.Changeset[E]) error {
	tx, err := s.database.BeginTx(ctx, nil)
	if err != nil {
		return WrapDBError(err)
	}
	defer tx.Rollback()

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

		body, err := encodeEntity(ent)
		if err != nil {
			return err
		}
		insert := fmt.Sprintf(`INSERT INTO %s (id, data) VALUES (?, ?);`, s.table)
		if _, err := tx.ExecContext(ctx, insert, db.IDString(id), string(body)); err != nil {
			return WrapDBError(err)
		}
	}

	for _, ent := range cs.Updated {
		body, err := encodeEntity(ent)
		if err != nil {
			return err
		}
		upsert := fmt.Sprintf(`INSERT OR REPLACE INTO %s (id, data) VALUES (?, ?);`, s.table)
		if _, err := tx.ExecContext(ctx, upsert, db.IDString(s.mapper.IDValue(ent)), string(body)); err != nil {
			return WrapDBError(err)
		}
	}

	for _, ent := range cs.Deleted {
		del := fmt.Sprintf(`DELETE FROM %s WHERE id = ?;`, s.table)
		if _, err := tx.ExecContext(ctx, del, db.IDString(s.mapper.IDValue(ent))); err != nil {
			return WrapDBError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return WrapDBError(err)
	}
	return nil
}

// Close releases the underlying database handle if this Store opened it.
func (s *Store[E]) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.database.Close()
}

// bindable converts a field value into something the SQL driver can bind
// that will compare correctly against what json_extract returns for the
// stored document: numbers stay numbers, strings stay strings, and anything
// exotic (UUIDs and the like, stored in JSON as their string forms) is
// stringified.
func bindable(v interface{}) interface{} {
	switch vv := v.(type) {
	case string, []byte, bool, float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return vv
	}
	return fmt.Sprint(v)
}

// extJSONRegistry is the bson registry used for document bodies. It encodes
// uuid.UUID values as their canonical string form rather than bson's default
// byte-array rendering, so that what json_extract returns for a uuid
// property is the same string bindable produces for the query value.
var extJSONRegistry = newExtJSONRegistry()

func newExtJSONRegistry() *bson.Registry {
	tUUID := reflect.TypeOf(uuid.UUID{})

	reg := bson.NewRegistry()
	reg.RegisterTypeEncoder(tUUID, bson.ValueEncoderFunc(func(ec bson.EncodeContext, vw bson.ValueWriter, val reflect.Value) error {
		return vw.WriteString(val.Interface().(uuid.UUID).String())
	}))
	reg.RegisterTypeDecoder(tUUID, bson.ValueDecoderFunc(func(dc bson.DecodeContext, vr bson.ValueReader, val reflect.Value) error {
		s, err := vr.ReadString()
		if err != nil {
			return err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return err
		}
		val.Set(reflect.ValueOf(id))
		return nil
	}))
	return reg
}

// encodeEntity renders an entity as the relaxed extended JSON document body
// stored in the data column.
func encodeEntity(ent interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := bson.NewEncoder(bson.NewExtJSONValueWriter(&buf, false, false))
	enc.SetRegistry(extJSONRegistry)
	if err := enc.Encode(ent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeEntity json-unmarshals a document body into a fresh E, handling both
// pointer and value entity types.
func decodeEntity[E any](body string) (E, error) {
	var zero E
	t := reflect.TypeOf(&zero).Elem()

	decode := func(target interface{}) error {
		vr, err := bson.NewExtJSONValueReader(strings.NewReader(body), false)
		if err != nil {
			return err
		}
		dec := bson.NewDecoder(vr)
		dec.SetRegistry(extJSONRegistry)
		return dec.Decode(target)
	}

	if t.Kind() == reflect.Ptr {
		target := reflect.New(t.Elem())
		if err := decode(target.Interface()); err != nil {
			return zero, err
		}
		return target.Interface().(E), nil
	}

	target := reflect.New(t)
	if err := decode(target.Interface()); err != nil {
		return zero, err
	}
	return target.Elem().Interface().(E), nil
}

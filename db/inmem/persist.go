package inmem

import (
	"fmt"
	"os"
	"reflect"

	"github.com/dekarrin/rezi/v2"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dekarrin/silk/db"
	"github.com/dekarrin/silk/types"
)

// This file gives Store an optional file snapshot: Persist writes the
// current documents out and Load reads them back in. The snapshot is a
// rezi-encoded map of id key to bson document body.

// Persist writes every stored document to the named file, replacing whatever
// the file held. The resulting file can be read back with Load.
func (s *Store[E]) Persist(path string) error {
	snap := make(map[string][]byte, len(s.docs))
	for key, ent := range s.docs {
		body, err := bson.Marshal(ent)
		if err != nil {
			return fmt.Errorf("encode document %q: %w", key, err)
		}
		snap[key] = body
	}

	enc, err := rezi.Enc(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(path, enc, 0660)
}

// Load replaces the store's documents with the contents of a file written by
// Persist. Documents that cannot be decoded back into the entity type fail
// the load with an error matching ErrDecodingFailure.
func (s *Store[E]) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var snap map[string][]byte
	if _, err := rezi.Dec(data, &snap); err != nil {
		return err
	}

	docs := make(map[string]E, len(snap))
	for key, body := range snap {
		ent, err := decodeEntity[E](body)
		if err != nil {
			return fmt.Errorf("document %q: %w: %v", key, types.ErrDecodingFailure, err)
		}
		docs[db.IDString(s.mapper.IDValue(ent))] = ent
	}

	s.docs = docs
	return nil
}

// decodeEntity bson-unmarshals a document body into a fresh E, handling both
// pointer and value entity types.
func decodeEntity[E any](body []byte) (E, error) {
	var zero E
	t := reflect.TypeOf(&zero).Elem()

	if t.Kind() == reflect.Ptr {
		target := reflect.New(t.Elem())
		if err := bson.Unmarshal(body, target.Interface()); err != nil {
			return zero, err
		}
		return target.Interface().(E), nil
	}

	target := reflect.New(t)
	if err := bson.Unmarshal(body, target.Interface()); err != nil {
		return zero, err
	}
	return target.Elem().Interface().(E), nil
}

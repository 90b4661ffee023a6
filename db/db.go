// Package db holds what the silk storage backends share: the backend Kind
// enumeration that configuration keys connectors on, the id-to-key
// stringification every backend uses, and an in-memory cursor for backends
// that produce their result sets eagerly.
//
// The backends themselves live in the sub-packages inmem, sqlite, and
// mongodb.
package db

import (
	"context"
	"fmt"
	"strings"
)

// Kind enumerates the storage backends silk ships with.
type Kind int

const (
	InMemory Kind = iota
	SQLite
	MongoDB
)

func (k Kind) String() string {
	switch k {
	case InMemory:
		return "inmem"
	case SQLite:
		return "sqlite"
	case MongoDB:
		return "mongodb"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses a string such as found in a config file into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case InMemory.String(), "", "memory":
		return InMemory, nil
	case SQLite.String():
		return SQLite, nil
	case MongoDB.String(), "mongo":
		return MongoDB, nil
	default:
		return InMemory, fmt.Errorf("unknown database kind %q", s)
	}
}

// IDString renders an identifier value as the string key backends use for
// document lookup. Two id values that are equal always render to the same
// key.
func IDString(id interface{}) string {
	return fmt.Sprint(id)
}

// SliceCursor is a types.Cursor over an already-materialized result set. It
// is used by backends that produce their results eagerly and by tests that
// fake a Reader.
type SliceCursor[E any] struct {
	entities []E
	pos      int
	err      error
}

// NewSliceCursor creates a cursor over the given entities.
func NewSliceCursor[E any](entities []E) *SliceCursor[E] {
	return &SliceCursor[E]{entities: entities}
}

// Next advances to the next entity, honoring context cancellation.
func (c *SliceCursor[E]) Next(ctx context.Context) bool {
	if ctx.Err() != nil {
		c.err = ctx.Err()
		return false
	}
	if c.pos >= len(c.entities) {
		return false
	}
	c.pos++
	return true
}

// Entity returns the entity at the current position.
func (c *SliceCursor[E]) Entity() E {
	return c.entities[c.pos-1]
}

// Err reports why iteration stopped early. It is non-nil only when Next
// returned false due to context cancellation; a materialized result set
// cannot otherwise fail mid-read.
func (c *SliceCursor[E]) Err() error {
	return c.err
}

// Close is a no-op.
func (c *SliceCursor[E]) Close(ctx context.Context) error {
	return nil
}

// Handle is an open connection to a storage backend, as produced by a
// connector in the config package's ConnectorRegistry. What it wraps depends
// on the backend; callers type-assert to the backend's own Handle type to
// build stores on it.
type Handle interface {
	// Close closes the connection and releases its resources. It should
	// always be called once the Handle is no longer in use.
	Close() error
}

// Package types contains the contracts shared by every other package in the
// silk module: the mapper, reader, and writer interfaces consumed by the
// change-tracking core, the error values returned across package boundaries,
// and the logging interface.
//
// Most types in this package are aliased in the root silk package; callers
// should generally refer to them through those aliases.
package types

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrNilArgument is returned by any tracking call handed a nil entity or
	// nil id value. The call performs no mutation before returning it.
	ErrNilArgument = errors.New("argument must not be nil")

	// ErrTypeMismatch is returned when a foreign id's runtime type does not
	// match the declared type of the navigation property it is added to.
	ErrTypeMismatch = errors.New("value type does not match the property type")

	// ErrValidation is matched by every validation failure raised during a
	// save. The concrete error will be a ValidationError carrying the
	// offending entity.
	ErrValidation = errors.New("entity failed validation")

	// ErrWrite is matched by errors propagated from a Writer during a save.
	// When a save fails with it, the pending changeset is untouched and a
	// retried save will reissue the same operations.
	ErrWrite = errors.New("the write to storage failed")

	// ErrNotConfigured is returned when a save or query is attempted before a
	// storage collaborator has been attached.
	ErrNotConfigured = errors.New("no storage has been configured")

	// ErrNotFound is returned when a requested entity does not exist in
	// storage.
	ErrNotFound = errors.New("the requested entity could not be found")

	// ErrConstraintViolation is returned when storage rejects a write due to
	// a uniqueness constraint.
	ErrConstraintViolation = errors.New("a uniqueness constraint was violated")

	// ErrDecodingFailure is returned when a stored document could not be
	// decoded back into its entity type.
	ErrDecodingFailure = errors.New("document could not be decoded from storage format")
)

// Mapper describes how one entity type maps onto stored documents. A Mapper
// is resolved once per entity type (see the mapping package) and then used on
// the hot tracking path without further type inspection.
type Mapper[E any] interface {
	// IDValue returns the mapped identifier value of the given entity.
	IDValue(entity E) interface{}

	// DefaultID returns the sentinel value that means "identifier not yet
	// assigned" for this entity type. For most id types this is the zero
	// value.
	DefaultID() interface{}

	// SetIDValue assigns the given identifier value to the entity. It only
	// works on entity types whose values can be written through (pointer
	// entities); for others it returns an error.
	SetIDValue(entity E, id interface{}) error

	// GenerateID produces a fresh identifier value appropriate for the
	// entity's id type, for use when an entity is inserted while still
	// holding the default id.
	GenerateID() (interface{}, error)

	// FieldValues returns the current values of every mapped field of the
	// entity, keyed by stored field name. Change detection compares two such
	// snapshots for equality.
	FieldValues(entity E) map[string]interface{}

	// PropertyType resolves the declared Go type of the named mapped
	// property. The second return value is false if no such property is
	// mapped.
	PropertyType(name string) (reflect.Type, bool)
}

// Cursor is a lazy, finite sequence of entities streamed out of storage. It
// follows the advance-then-read protocol: call Next until it returns false,
// reading the current entity with Entity after each successful advance, then
// check Err.
type Cursor[E any] interface {
	// Next advances to the next entity. It returns false when the sequence is
	// exhausted or an error occurred; distinguish the two with Err.
	Next(ctx context.Context) bool

	// Entity returns the entity at the current position. It is only valid
	// after a call to Next that returned true.
	Entity() E

	// Err returns the error that ended iteration early, or nil if the
	// sequence completed normally (or is not yet exhausted).
	Err() error

	// Close releases any resources held by the cursor. It is safe to call
	// more than once.
	Close(ctx context.Context) error
}

// Reader retrieves entities from storage by matching a named property against
// a set of candidate values. It is the read half of a storage backend, used
// by navigation collections to hydrate entities known only by foreign id.
type Reader[E any] interface {
	// FindByField returns a cursor over every entity whose named stored
	// property equals any of the given values. Values that match no entity
	// simply contribute nothing to the sequence.
	FindByField(ctx context.Context, field string, values []interface{}) (Cursor[E], error)
}

// Changeset is the set of entities visible to one save operation, grouped by
// the operation storage must perform for them. Entities with no pending
// changes are not included.
type Changeset[E any] struct {
	Added   []E
	Updated []E
	Deleted []E
}

// Empty returns whether the changeset contains no entities at all.
func (cs Changeset[E]) Empty() bool {
	return len(cs.Added) == 0 && len(cs.Updated) == 0 && len(cs.Deleted) == 0
}

// Writer applies a changeset to storage. The writer must treat the changeset
// as one batch: inserts for Added, updates for Updated, deletes for Deleted.
type Writer[E any] interface {
	// WriteChanges performs the inserts, updates, and deletes described by
	// the changeset. Errors it returns should match ErrWrite when wrapped by
	// the save orchestrator.
	WriteChanges(ctx context.Context, cs Changeset[E]) error
}

// IndexWriter synchronizes storage-side index definitions for an entity type.
// It is invoked as the first phase of every save.
type IndexWriter interface {
	EnsureIndexes(ctx context.Context) error
}

// RelationWriter commits pending relationship changes captured by navigation
// collections. It runs before change detection and receives the changeset as
// it stood at that moment.
type RelationWriter[E any] interface {
	CommitRelations(ctx context.Context, cs Changeset[E]) error
}

// Validator checks a single entity before it is written. Implementations
// should return an error matching ErrValidation (a ValidationError does) when
// the entity is not fit to persist.
type Validator[E any] interface {
	Validate(entity E) error
}

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc[E any] func(entity E) error

func (f ValidatorFunc[E]) Validate(entity E) error {
	return f(entity)
}

// ValidationError is the error raised when an entity fails validation during
// a save. It carries the offending entity and the rule that it violated, and
// matches ErrValidation under errors.Is.
type ValidationError struct {
	// Entity is the entity that failed validation.
	Entity interface{}

	// Rule describes the violated rule.
	Rule string
}

func (e ValidationError) Error() string {
	if e.Rule == "" {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Rule)
}

func (e ValidationError) Unwrap() error {
	return ErrValidation
}

// Logger is an object that is used to log messages. Use the New functions in
// the logging sub-package to create one.
type Logger interface {
	// Debug writes a message to the log at Debug level.
	Debug(string)

	// Debugf writes a formatted message to the log at Debug level.
	Debugf(string, ...interface{})

	// Error writes a message to the log at Error level.
	Error(string)

	// Errorf writes a formatted message to the log at Error level.
	Errorf(string, ...interface{})

	// Info writes a message to the log at Info level.
	Info(string)

	// Infof writes a formatted message to the log at Info level.
	Infof(string, ...interface{})

	// Trace writes a message to the log at Trace level.
	Trace(string)

	// Tracef writes a formatted message to the log at Trace level.
	Tracef(string, ...interface{})

	// Warn writes a message to the log at Warn level.
	Warn(string)

	// Warnf writes a formatted message to the log at Warn level.
	Warnf(string, ...interface{})
}

type LogProvider int

const (
	NoLog LogProvider = iota
	Jellog
)

func (p LogProvider) String() string {
	switch p {
	case NoLog:
		return "none"
	case Jellog:
		return "jellog"
	default:
		return fmt.Sprintf("LogProvider(%d)", int(p))
	}
}

func ParseLogProvider(s string) (LogProvider, error) {
	switch strings.ToLower(s) {
	case NoLog.String(), "":
		return NoLog, nil
	case Jellog.String():
		return Jellog, nil
	default:
		return NoLog, fmt.Errorf("unknown LogProvider %q", s)
	}
}

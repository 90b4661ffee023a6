package silk

import (
	"github.com/dekarrin/silk/types"
)

// This file contains aliases to values in the types package, so that callers
// of silk do not need to import it directly for the common cases. The generic
// contracts (types.Mapper, types.Reader, types.Writer, types.Cursor,
// types.Changeset, types.Validator, types.RelationWriter) are referred to
// through the types package.

var (
	ErrNilArgument         = types.ErrNilArgument
	ErrTypeMismatch        = types.ErrTypeMismatch
	ErrValidation          = types.ErrValidation
	ErrWrite               = types.ErrWrite
	ErrNotConfigured       = types.ErrNotConfigured
	ErrNotFound            = types.ErrNotFound
	ErrConstraintViolation = types.ErrConstraintViolation
	ErrDecodingFailure     = types.ErrDecodingFailure
)

type (
	// Logger is an object used to log messages. Use the logging sub-package
	// to create one.
	Logger = types.Logger

	// ValidationError is the error raised when an entity fails validation
	// during a save.
	ValidationError = types.ValidationError

	// IndexWriter synchronizes storage-side index definitions.
	IndexWriter = types.IndexWriter
)

// Package sqlite provides a silk storage backend on SQLite. Entities are
// stored as JSON document bodies in a one-table-per-entity-type layout, with
// field queries going through json_extract, so the document-shaped mapping
// the rest of silk assumes carries over unchanged.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"

	"github.com/dekarrin/silk/types"
)

// WrapDBError wraps an error from the SQLite engine into an error useable by
// the rest of the silk module. It should be called on any error returned
// from SQLite before the store passes the error back to a caller.
func WrapDBError(err error) error {
	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		primaryCode := sqliteErr.Code() & 0xff
		if primaryCode == 19 {
			return fmt.Errorf("%w: %s", types.ErrConstraintViolation, err.Error())
		}
		if primaryCode == 1 {
			// this is a generic error and thus the string is not descriptive,
			// so preserve the original error instead
			return err
		}
		return fmt.Errorf("%s", sqlite.ErrorCodeString[sqliteErr.Code()])
	} else if errors.Is(err, sql.ErrNoRows) {
		return types.ErrNotFound
	}
	return err
}

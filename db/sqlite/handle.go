package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
)

// Handle is the db.Handle for the SQLite backend: an open database handle
// plus the file it lives in. Build stores on it with NewStoreOnDB.
type Handle struct {
	DB       *sql.DB
	Filename string
}

func (h *Handle) Close() error {
	return h.DB.Close()
}

// Open creates the data directory if needed and opens (creating if needed)
// the SQLite database file inside it, returning a Handle over it.
func Open(dataDir, dataFile string) (*Handle, error) {
	if err := os.MkdirAll(dataDir, 0770); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	filename := filepath.Join(dataDir, dataFile)
	database, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, WrapDBError(err)
	}

	return &Handle{DB: database, Filename: filename}, nil
}

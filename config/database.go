package config

import (
	"fmt"

	"github.com/dekarrin/silk/db"
	"github.com/dekarrin/silk/db/inmem"
	"github.com/dekarrin/silk/db/mongodb"
	"github.com/dekarrin/silk/db/sqlite"
	"github.com/dekarrin/silk/types"
)

// Connector opens a connection to a storage backend from its configuration.
type Connector func(d Database, log types.Logger) (db.Handle, error)

// ConnectorRegistry holds registered connector functions for opening
// connections to storage backends.
//
// The zero value can be immediately used and will have the built-in default
// connectors available. This can be disabled by setting DisableDefaults to
// true before attempting to use it.
type ConnectorRegistry struct {
	DisableDefaults bool
	reg             map[db.Kind]Connector
}

func (cr *ConnectorRegistry) initDefaults() {
	if cr.reg == nil {
		cr.reg = map[db.Kind]Connector{}

		if !cr.DisableDefaults {
			cr.reg[db.InMemory] = func(d Database, log types.Logger) (db.Handle, error) {
				var snapshot string
				if d.DataDir != "" {
					snapshot = d.DataDir + "/" + d.DataFile
				}
				return inmem.Handle{SnapshotFile: snapshot}, nil
			}
			cr.reg[db.SQLite] = func(d Database, log types.Logger) (db.Handle, error) {
				handle, err := sqlite.Open(d.DataDir, d.DataFile)
				if err != nil {
					return nil, fmt.Errorf("initialize sqlite: %w", err)
				}
				return handle, nil
			}
			cr.reg[db.MongoDB] = func(d Database, log types.Logger) (db.Handle, error) {
				client, err := mongodb.Open(mongodb.Config{
					URI:      d.URI,
					Database: d.Database,
				}, log)
				if err != nil {
					return nil, fmt.Errorf("initialize mongodb: %w", err)
				}
				return &mongodb.Handle{
					Client: client,
					DB:     client.Database(d.Database),
				}, nil
			}
		}
	}
}

// Register adds a connector for the given backend kind, replacing any
// previous one, built-in included.
func (cr *ConnectorRegistry) Register(kind db.Kind, c Connector) {
	cr.initDefaults()
	cr.reg[kind] = c
}

// Connect opens a connection to the backend described by d using the
// registered connector for its kind. A nil logger is allowed.
func (cr *ConnectorRegistry) Connect(d Database, log types.Logger) (db.Handle, error) {
	cr.initDefaults()

	connector, ok := cr.reg[d.Type]
	if !ok {
		return nil, fmt.Errorf("no connector registered for %s", d.Type)
	}
	return connector(d, log)
}

// List returns the kinds that currently have a connector registered.
func (cr *ConnectorRegistry) List() []db.Kind {
	cr.initDefaults()

	kinds := make([]db.Kind, 0, len(cr.reg))
	for k := range cr.reg {
		kinds = append(kinds, k)
	}
	return kinds
}

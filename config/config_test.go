package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/silk/db"
	"github.com/dekarrin/silk/db/inmem"
	"github.com/dekarrin/silk/logging"
	"github.com/dekarrin/silk/types"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "silk.yml")
	if err := os.WriteFile(path, []byte(contents), 0660); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}
	return path
}

func Test_Load(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		assert := assert.New(t)

		path := writeConfigFile(t, `
logging:
  enabled: true
  provider: jellog
  file: /var/log/silk.log

databases:
  main:
    type: sqlite
    dir: /var/lib/silk
  cache:
    type: inmem
  remote:
    type: mongodb
    uri: mongodb://localhost:27017
    database: silk
`)

		cfg, err := Load(path)

		assert.NoError(err)
		assert.True(cfg.Log.Enabled)
		assert.Equal(types.Jellog, cfg.Log.Provider)
		assert.Equal("/var/log/silk.log", cfg.Log.File)
		assert.Len(cfg.DBs, 3)
		assert.Equal(db.SQLite, cfg.DBs["main"].Type)
		assert.Equal("data.db", cfg.DBs["main"].DataFile)
		assert.Equal(db.InMemory, cfg.DBs["cache"].Type)
		assert.Equal(db.MongoDB, cfg.DBs["remote"].Type)
		assert.Equal("mongodb://localhost:27017", cfg.DBs["remote"].URI)
	})

	t.Run("missing file", func(t *testing.T) {
		assert := assert.New(t)

		_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yml"))
		assert.Error(err)
	})

	t.Run("bad database kind", func(t *testing.T) {
		assert := assert.New(t)

		path := writeConfigFile(t, `
databases:
  main:
    type: cassandra
`)

		_, err := Load(path)
		assert.Error(err)
	})

	t.Run("sqlite without dir fails validation", func(t *testing.T) {
		assert := assert.New(t)

		path := writeConfigFile(t, `
databases:
  main:
    type: sqlite
`)

		_, err := Load(path)
		assert.Error(err)
	})

	t.Run("mongodb without uri fails validation", func(t *testing.T) {
		assert := assert.New(t)

		path := writeConfigFile(t, `
databases:
  remote:
    type: mongodb
    database: silk
`)

		_, err := Load(path)
		assert.Error(err)
	})
}

func Test_Log_FillDefaults(t *testing.T) {
	assert := assert.New(t)

	filled := Log{}.FillDefaults()

	assert.Equal(types.Jellog, filled.Provider)
}

func Test_Log_Create(t *testing.T) {
	assert := assert.New(t)

	log, err := Log{Enabled: false}.Create()
	assert.NoError(err)
	assert.IsType(logging.NoOpLogger{}, log)
}

func Test_ConnectorRegistry(t *testing.T) {
	t.Run("defaults are available on the zero value", func(t *testing.T) {
		assert := assert.New(t)
		reg := &ConnectorRegistry{}

		kinds := reg.List()

		assert.Contains(kinds, db.InMemory)
		assert.Contains(kinds, db.SQLite)
		assert.Contains(kinds, db.MongoDB)
	})

	t.Run("defaults can be disabled", func(t *testing.T) {
		assert := assert.New(t)
		reg := &ConnectorRegistry{DisableDefaults: true}

		assert.Empty(reg.List())
		_, err := reg.Connect(Database{Type: db.InMemory}, logging.NoOpLogger{})
		assert.Error(err)
	})

	t.Run("connects inmem", func(t *testing.T) {
		assert := assert.New(t)
		reg := &ConnectorRegistry{}

		handle, err := reg.Connect(Database{Type: db.InMemory}, logging.NoOpLogger{})

		assert.NoError(err)
		assert.IsType(inmem.Handle{}, handle)
		assert.NoError(handle.Close())
	})

	t.Run("registered connector replaces the default", func(t *testing.T) {
		assert := assert.New(t)
		reg := &ConnectorRegistry{}

		var called bool
		reg.Register(db.InMemory, func(d Database, log types.Logger) (db.Handle, error) {
			called = true
			return inmem.Handle{}, nil
		})

		_, err := reg.Connect(Database{Type: db.InMemory}, logging.NoOpLogger{})

		assert.NoError(err)
		assert.True(called)
	})
}

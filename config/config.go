// Package config contains configuration options for programs built on silk:
// logging settings and named database connections, loadable from a YAML
// file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dekarrin/silk/db"
	"github.com/dekarrin/silk/logging"
	"github.com/dekarrin/silk/types"
)

// Log contains logging options.
type Log struct {
	// Enabled is whether to enable built-in logging statements.
	Enabled bool

	// Provider must be the name of one of the logging providers. If set to
	// NoLog or unset, it will default to types.Jellog.
	Provider types.LogProvider

	// File to log to. If not set, all logging will be done to stderr and it
	// will display all logging statements. If set, the file will receive all
	// levels of log messages and stderr will show only those of Info level
	// or higher.
	File string
}

// Create builds the configured logger. When logging is not enabled it
// returns a no-op logger.
func (log Log) Create() (types.Logger, error) {
	if !log.Enabled {
		return logging.NoOpLogger{}, nil
	}
	return logging.New(log.Provider, log.File)
}

// FillDefaults returns a new Log identical to log but with unset values set
// to their defaults.
func (log Log) FillDefaults() Log {
	newLog := log

	if newLog.Provider == types.NoLog {
		newLog.Provider = types.Jellog
	}

	return newLog
}

func (log Log) Validate() error {
	if log.Enabled && log.Provider == types.NoLog {
		return fmt.Errorf("provider: must not be empty")
	}
	return nil
}

func (log *Log) UnmarshalYAML(n *yaml.Node) error {
	var shadow struct {
		Enabled  bool   `yaml:"enabled"`
		Provider string `yaml:"provider"`
		File     string `yaml:"file"`
	}
	if err := n.Decode(&shadow); err != nil {
		return err
	}

	provider, err := types.ParseLogProvider(shadow.Provider)
	if err != nil {
		return err
	}

	log.Enabled = shadow.Enabled
	log.Provider = provider
	log.File = shadow.File
	return nil
}

// Database is the configuration of one named database connection.
type Database struct {
	// Type selects the storage backend.
	Type db.Kind

	// DataDir is the directory that file-backed stores keep their data in.
	// Used by the sqlite backend.
	DataDir string

	// DataFile is the name of the data file inside DataDir. Defaults to
	// "data.db".
	DataFile string

	// URI is the connection string. Used by the mongodb backend.
	URI string

	// Database is the server-side database name. Used by the mongodb
	// backend.
	Database string
}

// FillDefaults returns a new Database identical to d but with unset values
// set to their defaults.
func (d Database) FillDefaults() Database {
	newD := d

	if newD.DataFile == "" {
		newD.DataFile = "data.db"
	}

	return newD
}

func (d Database) Validate() error {
	switch d.Type {
	case db.SQLite:
		if d.DataDir == "" {
			return fmt.Errorf("dir: must not be empty for sqlite")
		}
	case db.MongoDB:
		if d.URI == "" {
			return fmt.Errorf("uri: must not be empty for mongodb")
		}
		if d.Database == "" {
			return fmt.Errorf("database: must not be empty for mongodb")
		}
	}
	return nil
}

func (d *Database) UnmarshalYAML(n *yaml.Node) error {
	var shadow struct {
		Type     string `yaml:"type"`
		DataDir  string `yaml:"dir"`
		DataFile string `yaml:"file"`
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	}
	if err := n.Decode(&shadow); err != nil {
		return err
	}

	kind, err := db.ParseKind(shadow.Type)
	if err != nil {
		return err
	}

	d.Type = kind
	d.DataDir = shadow.DataDir
	d.DataFile = shadow.DataFile
	d.URI = shadow.URI
	d.Database = shadow.Database
	return nil
}

// Config is the complete configuration of a program built on silk.
type Config struct {
	// Log configures logging.
	Log Log `yaml:"logging"`

	// DBs is the configurations to use for connecting to databases, keyed by
	// the name the program knows each connection by.
	DBs map[string]Database `yaml:"databases"`
}

// FillDefaults returns a new Config identical to cfg but with unset values
// set to their defaults.
func (cfg Config) FillDefaults() Config {
	newCfg := cfg

	newCfg.Log = newCfg.Log.FillDefaults()
	for name, d := range newCfg.DBs {
		newCfg.DBs[name] = d.FillDefaults()
	}

	return newCfg
}

// Validate returns an error if the Config has invalid field values set.
// Empty and unset values are considered invalid; if defaults are intended to
// be used, call Validate on the return value of FillDefaults.
func (cfg Config) Validate() error {
	if err := cfg.Log.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	for name, d := range cfg.DBs {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("databases: %s: %w", name, err)
		}
	}
	return nil
}

// Load reads a YAML config file, fills defaults, and validates it.
func Load(file string) (Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

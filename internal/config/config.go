// Package config loads service configuration from defaults, an optional YAML
// file and the environment. CLI flags are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Defaults.
const (
	DefaultAddress      = ":3000"
	DefaultStaticDir    = "public"
	DefaultMaxBodyBytes = 100 << 10
	DefaultSQLitePath   = "entries.db"
)

// Environment variables consulted by Load.
const (
	EnvPort      = "PORT"
	EnvMongoURI  = "MONGODB_URI"
	EnvDBPath    = "ENTRIES_DB"
	EnvBackend   = "ENTRIES_BACKEND"
	EnvStaticDir = "ENTRIES_STATIC_DIR"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address      string `yaml:"address"`
	StaticDir    string `yaml:"static_dir"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	// Backend is "sqlite" or "mongo". Empty means resolve from MongoURI.
	Backend  string `yaml:"backend,omitempty"`
	Path     string `yaml:"path"`
	MongoURI string `yaml:"mongo_uri,omitempty"`
}

// Config is the complete service configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      DefaultAddress,
			StaticDir:    DefaultStaticDir,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Store: StoreConfig{
			Path: DefaultSQLitePath,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty or the file does not exist) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := decode(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// decode overlays YAML onto cfg, rejecting unknown fields.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays environment values using lookup (os.LookupEnv in
// production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPort); ok && v != "" {
		c.Server.Address = ":" + v
	}
	if v, ok := lookup(EnvStaticDir); ok && v != "" {
		c.Server.StaticDir = v
	}
	if v, ok := lookup(EnvMongoURI); ok && v != "" {
		c.Store.MongoURI = v
	}
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		c.Store.Path = v
	}
	if v, ok := lookup(EnvBackend); ok && v != "" {
		c.Store.Backend = v
	}
}

// ResolvedBackend returns the backend to open: the explicit one if set,
// otherwise mongo when a URI is configured, else sqlite.
func (c *Config) ResolvedBackend() string {
	if c.Store.Backend != "" {
		return c.Store.Backend
	}
	if c.Store.MongoURI != "" {
		return BackendMongo
	}
	return BackendSQLite
}

// Validate reports configuration that cannot be served.
func (c *Config) Validate() error {
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	if c.Server.Address == "" {
		return errors.New("server.address is required")
	}

	switch c.ResolvedBackend() {
	case BackendSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path is required for the sqlite backend")
		}
	case BackendMongo:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("store.mongo_uri (or %s) is required for the mongo backend", EnvMongoURI)
		}
	default:
		return fmt.Errorf("unknown store backend %q (want %s or %s)", c.Store.Backend, BackendSQLite, BackendMongo)
	}
	return nil
}

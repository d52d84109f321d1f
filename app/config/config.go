// Package config handles loading nought.toml configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// EnvConfig names the environment variable that overrides the config path.
const EnvConfig = "NOUGHT_CONFIG"

// DefaultPath is the config file read when neither a flag nor EnvConfig
// names one.
const DefaultPath = "nought.toml"

// ErrInvalid is returned for configuration values that fail validation.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the nought.toml configuration file.
type Config struct {
	Store  Store  `toml:"store"`
	Server Server `toml:"server"`
	Log    Log    `toml:"log"`
}

// Store configures the todo document.
type Store struct {
	// Path is the XML document holding the todos.
	Path string `toml:"path"`
	// AutoSave writes unsaved changes back to Path on shutdown.
	AutoSave bool `toml:"auto-save"`
}

// Server configures the noughtd HTTP listener.
type Server struct {
	Addr string `toml:"addr"`
}

// Log configures the logger built by NewLogger.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
	// Format is one of text, json, logfmt.
	Format     string `toml:"format"`
	Timestamps bool   `toml:"timestamps"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Store:  Store{Path: "todos.xml", AutoSave: true},
		Server: Server{Addr: "0.0.0.0:8080"},
		Log:    Log{Level: "info", Format: "text"},
	}
}

// ResolvePath picks the config file to read: flagPath if set, then the
// EnvConfig variable, then DefaultPath.
func ResolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if env := strings.TrimSpace(os.Getenv(EnvConfig)); env != "" {
		return env
	}
	return DefaultPath
}

// Load reads the config file at path on top of the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var file Config
	meta, err := toml.Decode(string(data), &file)
	if err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	merge(cfg, &file, meta)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func merge(cfg, file *Config, meta toml.MetaData) {
	mergeString(&cfg.Store.Path, meta.IsDefined("store", "path"), file.Store.Path)
	if meta.IsDefined("store", "auto-save") {
		cfg.Store.AutoSave = file.Store.AutoSave
	}
	mergeString(&cfg.Server.Addr, meta.IsDefined("server", "addr"), file.Server.Addr)
	mergeString(&cfg.Log.Level, meta.IsDefined("log", "level"), file.Log.Level)
	mergeString(&cfg.Log.Format, meta.IsDefined("log", "format"), file.Log.Format)
	if meta.IsDefined("log", "timestamps") {
		cfg.Log.Timestamps = file.Log.Timestamps
	}
}

func mergeString(dst *string, defined bool, value string) {
	if defined {
		*dst = strings.TrimSpace(value)
	}
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("%w: store.path is empty", ErrInvalid)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is empty", ErrInvalid)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	if _, ok := formatters[strings.ToLower(c.Log.Format)]; !ok {
		return fmt.Errorf("%w: log.format %q is not one of text, json, logfmt", ErrInvalid, c.Log.Format)
	}
	return nil
}

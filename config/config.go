// Package config handles fen.toml host configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents a fen.toml host configuration.
type Config struct {
	Interp      Interp            `toml:"interp"`
	UnitCache   UnitCache         `toml:"unit-cache"`
	Filesystems []FilesystemMount `toml:"filesystem"`
	Log         Log               `toml:"log"`

	// Dir is the directory containing the fen.toml file (set at load time).
	Dir string `toml:"-"`
}

// Interp configures the interpreter core.
type Interp struct {
	RecursionLimit int      `toml:"recursion-limit"`
	LibraryPath    []string `toml:"library-path"`
}

// UnitCache configures the compiled-unit cache.
type UnitCache struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"` // persist units here when set
}

// FilesystemMount declares an extra filesystem to register at startup.
type FilesystemMount struct {
	Kind   string `toml:"kind"` // "mem" or "sqlite"
	Prefix string `toml:"prefix"`
	Path   string `toml:"path"` // database file for sqlite mounts
}

// Log configures logging verbosity.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Load parses a fen.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "fen.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	applyDefaults(&c)
	return &c, nil
}

// FindAndLoad walks up from startDir to find a fen.toml file, then
// loads and returns the config. Returns nil if none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "fen.toml")); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Default returns the configuration used when no fen.toml exists.
func Default() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}

func applyDefaults(c *Config) {
	if c.Interp.RecursionLimit <= 0 {
		c.Interp.RecursionLimit = 1000
	}
}

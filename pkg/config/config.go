// Package config loads NJIL project settings from njil.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// FileName is the project config file looked up in the working directory.
const FileName = "njil.yaml"

// Config holds project settings. Command-line flags override them.
type Config struct {
	ModulePaths   []string `yaml:"module_paths"`
	ImplicitPaths bool     `yaml:"implicit_paths"`
	// Packs are activated for program documents before their imports run.
	Packs     []string `yaml:"packs"`
	LogLevel  string   `yaml:"log_level"`
	TraceFile string   `yaml:"trace_file"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-"`
	// Project is set when Path is the explicit or the project config,
	// not the user-wide one.
	Project bool `yaml:"-"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		ModulePaths: []string{"modules"},
		LogLevel:    "warn",
	}
}

// Load finds and reads the config. Precedence: the explicit path, then
// njil.yaml in projectDir, then ~/.njil/config.yaml, then the defaults.
// An explicit path must exist; the others are skipped when missing.
func Load(explicit, projectDir string) (*Config, error) {
	if explicit != "" {
		cfg, err := LoadFile(explicit)
		if err != nil {
			return nil, err
		}
		cfg.Project = true
		return cfg, nil
	}

	candidates := []string{filepath.Join(projectDir, FileName)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".njil", "config.yaml"))
	}
	for i, path := range candidates {
		cfg, err := LoadFile(path)
		if err == nil {
			cfg.Project = i == 0
			if !cfg.Project {
				cfg.ModulePaths = withDefaultPaths(cfg.ModulePaths)
			}
			return cfg, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return Default(), nil
}

// withDefaultPaths keeps the project's own module directories searched
// ahead of the user-wide ones.
func withDefaultPaths(paths []string) []string {
	out := Default().ModulePaths
	for _, p := range paths {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// LoadFile reads one config file. Unknown keys are rejected. Module paths
// the file declares are made absolute against the file's directory; when
// it declares none the relative defaults are kept.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	cfg.ModulePaths = nil
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return nil, fmt.Errorf("config %s: invalid log_level %q", path, cfg.LogLevel)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	cfg.Path = abs
	dir := filepath.Dir(abs)
	if cfg.ModulePaths == nil {
		cfg.ModulePaths = Default().ModulePaths
	} else {
		for i, p := range cfg.ModulePaths {
			if !filepath.IsAbs(p) {
				cfg.ModulePaths[i] = filepath.Join(dir, p)
			}
		}
	}
	if cfg.TraceFile != "" && !filepath.IsAbs(cfg.TraceFile) {
		cfg.TraceFile = filepath.Join(dir, cfg.TraceFile)
	}
	return cfg, nil
}

// Level is the configured zerolog level, warn when unset.
func (c *Config) Level() zerolog.Level {
	if c.LogLevel == "" {
		return zerolog.WarnLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.WarnLevel
	}
	return lvl
}

// Root is the project root: the directory of a project config, otherwise
// fallback.
func (c *Config) Root(fallback string) string {
	if c.Project && c.Path != "" {
		return filepath.Dir(c.Path)
	}
	return fallback
}

// Dir is the directory holding the config file, or "" for defaults.
func (c *Config) Dir() string {
	if c.Path == "" {
		return ""
	}
	return filepath.Dir(c.Path)
}

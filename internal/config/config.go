package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/dshills/outliner/internal/config/loader"
)

// DefaultFileName is the config file looked up in the user config directory.
const DefaultFileName = "outliner.toml"

// maxIncludeDepth bounds nested include directives.
const maxIncludeDepth = 8

// Config is the complete outliner configuration.
type Config struct {
	Outline   OutlineConfig   `toml:"outline"`
	Log       LogConfig       `toml:"log"`
	Languages LanguagesConfig `toml:"languages"`
	Metrics   MetricsConfig   `toml:"metrics"`
	View      ViewConfig      `toml:"view"`
}

// OutlineConfig configures the outlining engine and extractors.
type OutlineConfig struct {
	// DebounceMS is the quiescence interval before recomputing, in
	// milliseconds.
	DebounceMS int `toml:"debounce_ms"`

	// MinLines is the smallest number of lines a region spans.
	MinLines int `toml:"min_lines"`

	// CollapseImports starts import blocks collapsed.
	CollapseImports bool `toml:"collapse_imports"`
}

// Debounce returns the debounce interval as a duration.
func (c OutlineConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is a zerolog level name.
	Level string `toml:"level"`

	// Format is "console" or "json".
	Format string `toml:"format"`

	// File is the log destination. Empty means stderr.
	File string `toml:"file"`
}

// LanguagesConfig configures extra languages.
type LanguagesConfig struct {
	// Scripts maps file extensions to Lua extractor scripts.
	Scripts map[string]string `toml:"scripts"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address. Empty disables the endpoint.
	Addr string `toml:"addr"`
}

// ViewConfig configures the interactive viewer.
type ViewConfig struct {
	// TabWidth is the number of cells a tab expands to.
	TabWidth int `toml:"tab_width"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Outline: OutlineConfig{
			DebounceMS: 2500,
			MinLines:   2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Languages: LanguagesConfig{
			Scripts: map[string]string{},
		},
		View: ViewConfig{
			TabWidth: 4,
		},
	}
}

// Load builds a configuration from defaults, the file at path and the
// environment. An empty path loads DefaultPath() if it exists; an explicit
// path must exist.
func Load(path string) (*Config, error) {
	return load(path, loader.DefaultFS(), loader.NewEnvLoader(loader.DefaultEnvPrefix))
}

func load(path string, fsys loader.FileSystem, env loader.Loader) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	var file map[string]any
	if path != "" {
		if _, err := fsys.Stat(path); err != nil {
			if explicit {
				return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
		} else {
			m, err := loader.NewTOMLFile(fsys, maxIncludeDepth).Read(path)
			if err != nil {
				return nil, err
			}
			file = m
		}
	}

	envMap, err := env.Load()
	if err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg := Default()
	if err := cfg.apply(loader.Merge(file, envMap)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if path != "" {
		cfg.resolveScripts(filepath.Dir(path))
	}
	return cfg, nil
}

// apply overlays a configuration map onto c by round-tripping it through
// TOML, which keeps the struct tags the single source of key names.
func (c *Config) apply(m map[string]any) error {
	if len(m) == 0 {
		return nil
	}
	data, err := toml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	return nil
}

// resolveScripts makes relative script paths relative to dir and expands a
// leading "~".
func (c *Config) resolveScripts(dir string) {
	for ext, p := range c.Languages.Scripts {
		if strings.HasPrefix(p, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				p = filepath.Join(home, p[2:])
			}
		}
		if !filepath.IsAbs(p) && dir != "" {
			p = filepath.Join(dir, p)
		}
		c.Languages.Scripts[ext] = p
	}
}

// Validate checks every setting.
func (c *Config) Validate() error {
	if c.Outline.DebounceMS <= 0 {
		return fmt.Errorf("%w: outline.debounce_ms must be positive, got %d", ErrValidationFailed, c.Outline.DebounceMS)
	}
	if c.Outline.MinLines < 1 {
		return fmt.Errorf("%w: outline.min_lines must be at least 1, got %d", ErrValidationFailed, c.Outline.MinLines)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrValidationFailed, err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log.format must be console or json, got %q", ErrValidationFailed, c.Log.Format)
	}
	if c.View.TabWidth < 1 || c.View.TabWidth > 16 {
		return fmt.Errorf("%w: view.tab_width must be between 1 and 16, got %d", ErrValidationFailed, c.View.TabWidth)
	}
	return nil
}

// DefaultPath returns the default config file path, or "" if the user
// config directory cannot be determined.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "outliner", DefaultFileName)
}

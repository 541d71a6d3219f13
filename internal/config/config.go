package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/dshills/actionbus/internal/config/loader"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "ACTIONBUS_"

// UI modes.
const (
	UIModeAuto     = "auto"
	UIModeTerminal = "terminal"
	UIModeHeadless = "headless"
)

// Config is the application configuration.
type Config struct {
	// LogLevel is debug, info, warn or error.
	LogLevel string `toml:"log_level" yaml:"log_level"`

	UI      UIConfig      `toml:"ui" yaml:"ui"`
	Scripts ScriptsConfig `toml:"scripts" yaml:"scripts"`
	Watch   WatchConfig   `toml:"watch" yaml:"watch"`
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	// Mode selects the host: auto uses the terminal UI when stdout is a TTY.
	Mode string `toml:"mode" yaml:"mode"`

	// LogLines is the number of bus messages kept in the event log view.
	LogLines int `toml:"log_lines" yaml:"log_lines"`
}

// ScriptsConfig lists Lua scripts loaded at startup.
type ScriptsConfig struct {
	Paths []string `toml:"paths" yaml:"paths"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	// Paths are files or directories to watch. Directories are not recursive.
	Paths []string `toml:"paths" yaml:"paths"`

	// DebounceMS groups file events arriving within this window into one
	// action.
	DebounceMS int `toml:"debounce_ms" yaml:"debounce_ms"`

	// Ignore lists filepath.Match patterns tested against the base name of
	// each changed file.
	Ignore []string `toml:"ignore" yaml:"ignore"`
}

// Debounce returns the debounce window as a duration.
func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		UI: UIConfig{
			Mode:     UIModeAuto,
			LogLines: 200,
		},
		Watch: WatchConfig{
			DebounceMS: 50,
		},
	}
}

// envMapping maps top-level variables whose names contain underscores.
var envMapping = map[string]string{
	EnvPrefix + "LOG_LEVEL": "log_level",
}

// Loader loads configuration layers.
type Loader struct {
	toml *loader.TOMLLoader
	yaml *loader.YAMLLoader
	env  *loader.EnvLoader
}

// NewLoader creates a loader reading from the OS.
func NewLoader() *Loader {
	return &Loader{
		toml: loader.NewTOMLLoader().Strict(),
		yaml: loader.NewYAMLLoader().Strict(),
		env:  loader.NewEnvLoader(EnvPrefix, envMapping),
	}
}

// NewLoaderWithFS creates a loader reading files from fs. Environment
// variables are still read from the process.
func NewLoaderWithFS(fs loader.FileSystem) *Loader {
	return &Loader{
		toml: loader.NewTOMLLoaderWithFS(fs).Strict(),
		yaml: loader.NewYAMLLoaderWithFS(fs).Strict(),
		env:  loader.NewEnvLoader(EnvPrefix, envMapping),
	}
}

// Load builds the configuration from defaults, the file at path (if any)
// and the environment, then validates it. Files ending in .yaml or .yml are
// read as YAML, anything else as TOML.
func (l *Loader) Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			_, err = l.yaml.LoadInto(path, &cfg)
		default:
			_, err = l.toml.LoadInto(path, &cfg)
		}
		if err != nil {
			return Config{}, err
		}
	}

	values, err := l.env.Load()
	if err != nil {
		return Config{}, err
	}
	if err := l.toml.Overlay("environment", values, &cfg); err != nil {
		return Config{}, err
	}

	cfg.ExpandPaths()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load is a shortcut for NewLoader().Load(path).
func Load(path string) (Config, error) {
	return NewLoader().Load(path)
}

// DefaultPath returns the per-user configuration file path, or "" if the
// user configuration directory is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "actionbus", "config.toml")
}

// Validate checks setting values.
func (c Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, &ValidationError{Key: "log_level", Value: c.LogLevel, Message: "must be debug, info, warn or error"})
	}

	switch c.UI.Mode {
	case UIModeAuto, UIModeTerminal, UIModeHeadless:
	default:
		errs = append(errs, &ValidationError{Key: "ui.mode", Value: c.UI.Mode, Message: "must be auto, terminal or headless"})
	}

	if c.UI.LogLines < 1 {
		errs = append(errs, &ValidationError{Key: "ui.log_lines", Value: c.UI.LogLines, Message: "must be positive"})
	}

	for _, pattern := range c.Watch.Ignore {
		if _, err := filepath.Match(pattern, ""); err != nil {
			errs = append(errs, &ValidationError{Key: "watch.ignore", Value: pattern, Message: "malformed pattern"})
		}
	}

	if c.Watch.DebounceMS < 0 {
		errs = append(errs, &ValidationError{Key: "watch.debounce_ms", Value: c.Watch.DebounceMS, Message: "must not be negative"})
	}

	return errors.Join(errs...)
}

// ExpandPaths expands a leading ~ in script and watch paths.
func (c *Config) ExpandPaths() {
	for i, p := range c.Scripts.Paths {
		c.Scripts.Paths[i] = expandHome(p)
	}
	for i, p := range c.Watch.Paths {
		c.Watch.Paths[i] = expandHome(p)
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Changed returns the top-level keys whose value differs between old and
// new, in declaration order.
func Changed(old, new Config) []string {
	var keys []string
	ov := reflect.ValueOf(old)
	nv := reflect.ValueOf(new)
	typ := ov.Type()

	for i := 0; i < typ.NumField(); i++ {
		if reflect.DeepEqual(ov.Field(i).Interface(), nv.Field(i).Interface()) {
			continue
		}
		name, _, _ := strings.Cut(typ.Field(i).Tag.Get("toml"), ",")
		keys = append(keys, name)
	}
	return keys
}

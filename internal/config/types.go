// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// LogLevelDebug logs every lifecycle step.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs phase summaries.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs only problems.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs only failures.
	LogLevelError LogLevel = "error"

	// LogFormatText writes human-readable log lines.
	LogFormatText LogFormat = "text"
	// LogFormatJSON writes one JSON object per line.
	LogFormatJSON LogFormat = "json"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidDebounce is returned for a non-positive watch debounce.
	ErrInvalidDebounce = errors.New("invalid watch debounce")
	// ErrInvalidIgnorePattern is returned for a malformed watch ignore glob.
	ErrInvalidIgnorePattern = errors.New("invalid ignore pattern")
	// ErrInvalidPort is returned for a console port outside 1-65535.
	ErrInvalidPort = errors.New("invalid console port")
	// ErrInvalidModsDir is returned for an empty or whitespace-only mods directory.
	ErrInvalidModsDir = errors.New("invalid mods directory")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum severity written to the log.
	LogLevel string

	// LogFormat selects the log handler.
	LogFormat string

	// InvalidValueError reports one rejected field. It unwraps to the
	// field's sentinel.
	InvalidValueError struct {
		Field    string
		Value    string
		sentinel error
	}

	// InvalidConfigError collects every field error of a Config. It wraps
	// ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// ModsDir is the directory scanned for packages.
		ModsDir string `json:"mods_dir" mapstructure:"mods_dir"`
		// Log configures the structured logger.
		Log LogConfig `json:"log" mapstructure:"log"`
		// Packages configures the lifecycle engine.
		Packages PackagesConfig `json:"packages" mapstructure:"packages"`
		// Watch configures the file watcher.
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
		// Console configures the SSH management console.
		Console ConsoleConfig `json:"console" mapstructure:"console"`

		// Source is the config file that was read, empty when only defaults
		// and the environment applied.
		Source string `json:"-" mapstructure:"-"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		Level  LogLevel  `json:"level" mapstructure:"level"`
		Format LogFormat `json:"format" mapstructure:"format"`
	}

	// PackagesConfig configures package loading.
	PackagesConfig struct {
		// Disabled lists package directory names that are never loaded.
		Disabled []string `json:"disabled" mapstructure:"disabled"`
		// RevalidateOnUnload removes dependents of an unloaded package.
		RevalidateOnUnload bool `json:"revalidate_on_unload" mapstructure:"revalidate_on_unload"`
	}

	// WatchConfig configures the file watcher.
	WatchConfig struct {
		// Debounce is the quiet period before a batch of changes is applied.
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		// Ignore lists doublestar patterns, relative to the mods directory,
		// whose changes are ignored.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
	}

	// ConsoleConfig configures the SSH management console.
	ConsoleConfig struct {
		Host string `json:"host" mapstructure:"host"`
		Port int    `json:"port" mapstructure:"port"`
	}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ModsDir: "mods",
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
		Packages: PackagesConfig{
			Disabled:           []string{},
			RevalidateOnUnload: true,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
			Ignore:   []string{},
		},
		Console: ConsoleConfig{
			Host: "127.0.0.1",
			Port: 2222,
		},
	}
}

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels,
// and a list of validation errors if it is not.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidValueError{Field: "log.level", Value: string(l), sentinel: ErrInvalidLogLevel}}
	}
}

// SlogLevel maps the level onto log/slog. Unknown levels map to info.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// String returns the string representation of the LogFormat.
func (f LogFormat) String() string { return string(f) }

// IsValid returns whether the LogFormat is text or json.
func (f LogFormat) IsValid() (bool, []error) {
	switch f {
	case LogFormatText, LogFormatJSON:
		return true, nil
	default:
		return false, []error{&InvalidValueError{Field: "log.format", Value: string(f), sentinel: ErrInvalidLogFormat}}
	}
}

// IsValid checks the watcher settings. Every ignore pattern must be a valid
// doublestar pattern.
func (c WatchConfig) IsValid() (bool, []error) {
	var errs []error
	if c.Debounce <= 0 {
		errs = append(errs, &InvalidValueError{Field: "watch.debounce", Value: c.Debounce.String(), sentinel: ErrInvalidDebounce})
	}
	for i, p := range c.Ignore {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, &InvalidValueError{Field: fmt.Sprintf("watch.ignore[%d]", i), Value: p, sentinel: ErrInvalidIgnorePattern})
		}
	}
	return len(errs) == 0, errs
}

// Addr returns the host:port listen address.
func (c ConsoleConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsValid checks the console port range.
func (c ConsoleConfig) IsValid() (bool, []error) {
	if c.Port < 1 || c.Port > 65535 {
		return false, []error{&InvalidValueError{Field: "console.port", Value: fmt.Sprint(c.Port), sentinel: ErrInvalidPort}}
	}
	return true, nil
}

// IsValid returns whether the Config has valid fields, delegating to each
// section.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if strings.TrimSpace(c.ModsDir) == "" {
		errs = append(errs, &InvalidValueError{Field: "mods_dir", Value: c.ModsDir, sentinel: ErrInvalidModsDir})
	}
	if valid, fieldErrs := c.Log.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Log.Format.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Watch.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Console.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%s: %q: %v", e.Field, e.Value, e.sentinel)
}

// Unwrap returns the field's sentinel error.
func (e *InvalidValueError) Unwrap() error { return e.sentinel }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return fmt.Sprintf("invalid config: %v", e.FieldErrors[0])
	}
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %d field errors: %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

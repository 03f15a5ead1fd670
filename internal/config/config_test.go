// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/modhost/modhost/internal/issue"
	"github.com/modhost/modhost/internal/testutil"
)

func load(t *testing.T, opts LoadOptions) (*Config, error) {
	t.Helper()
	return NewProvider().Load(context.Background(), opts)
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.cue")
	testutil.MustWriteFile(t, path, content)
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.ModsDir != "mods" {
		t.Errorf("ModsDir = %q, want mods", cfg.ModsDir)
	}
	if cfg.Log.Level != LogLevelInfo || cfg.Log.Format != LogFormatText {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if !cfg.Packages.RevalidateOnUnload {
		t.Error("RevalidateOnUnload should default to true")
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("Debounce = %v, want 500ms", cfg.Watch.Debounce)
	}
	if cfg.Console.Addr() != "127.0.0.1:2222" {
		t.Errorf("Console.Addr() = %q", cfg.Console.Addr())
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("DefaultConfig() invalid: %v", errs)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, LoadOptions{ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source != "" && !strings.HasSuffix(cfg.Source, "config.cue") {
		t.Errorf("Source = %q", cfg.Source)
	}
	if cfg.ModsDir == "" || cfg.Console.Port == 0 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_FromConfigDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeConfig(t, dir, `
mods_dir: "/srv/mods"
log: level: "debug"
packages: {
	disabled: ["broken", "Old"]
	revalidate_on_unload: false
}
watch: debounce: "2s"
console: port: 2300
`)

	cfg, err := load(t, LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source != path {
		t.Errorf("Source = %q, want %q", cfg.Source, path)
	}
	if cfg.ModsDir != "/srv/mods" || cfg.Log.Level != LogLevelDebug {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Log.Format != LogFormatText {
		t.Errorf("Log.Format = %q, want the default to survive", cfg.Log.Format)
	}
	if len(cfg.Packages.Disabled) != 2 || cfg.Packages.RevalidateOnUnload {
		t.Errorf("Packages = %+v", cfg.Packages)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("Debounce = %v, want 2s", cfg.Watch.Debounce)
	}
	if cfg.Console.Port != 2300 || cfg.Console.Host != "127.0.0.1" {
		t.Errorf("Console = %+v", cfg.Console)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, t.TempDir(), `log: format: "json"`)
	cfg, err := load(t, LoadOptions{ConfigFilePath: path, ConfigDirPath: t.TempDir()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Format != LogFormatJSON {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}

	_, err = load(t, LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "absent.cue")})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("Load(missing file) error = %v, want *issue.ActionableError", err)
	}
	if ae.Issue != issue.ConfigLoadFailedId || !ae.HasSuggestions() {
		t.Errorf("ActionableError = %+v", ae)
	}
}

func TestLoad_SchemaRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown top-level key", `container_engine: "docker"`},
		{"unknown nested key", `log: colour: true`},
		{"bad log level", `log: level: "loud"`},
		{"port out of range", `console: port: 70000`},
		{"wrong type", `packages: revalidate_on_unload: "yes"`},
		{"syntax error", `mods_dir: `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeConfig(t, t.TempDir(), tt.content)
			_, err := load(t, LoadOptions{ConfigFilePath: path})
			if err == nil {
				t.Fatal("Load() succeeded")
			}
			if !strings.Contains(err.Error(), "config.cue") {
				t.Errorf("error %q does not name the file", err)
			}
		})
	}
}

func TestLoad_TypedValidation(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, t.TempDir(), `
watch: {
	debounce: "0s"
	ignore: ["[unclosed"]
}
`)
	_, err := load(t, LoadOptions{ConfigFilePath: path})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Load() error = %v, want ErrInvalidConfig", err)
	}
	if !errors.Is(err, ErrInvalidDebounce) || !errors.Is(err, ErrInvalidIgnorePattern) {
		t.Errorf("Load() error = %v, want debounce and ignore errors", err)
	}
}

// Environment tests mutate process state and cannot run in parallel.
func TestLoad_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `log: level: "debug"`)
	t.Setenv("MODHOST_LOG_LEVEL", "warn")
	t.Setenv("MODHOST_CONSOLE_PORT", "4000")
	t.Setenv("MODHOST_MODS_DIR", "/data/mods")

	cfg, err := load(t, LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != LogLevelWarn {
		t.Errorf("Log.Level = %q, want warn from the environment", cfg.Log.Level)
	}
	if cfg.Console.Port != 4000 || cfg.ModsDir != "/data/mods" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_EnvironmentValidated(t *testing.T) {
	t.Setenv("MODHOST_LOG_FORMAT", "xml")
	_, err := load(t, LoadOptions{ConfigDirPath: t.TempDir()})
	if !errors.Is(err, ErrInvalidLogFormat) {
		t.Errorf("Load() error = %v, want ErrInvalidLogFormat", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG lookup is Linux-specific")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if got != filepath.Join("/tmp/xdg", AppName) {
		t.Errorf("ConfigDir() = %q", got)
	}
}

func TestGenerateCUE_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	path, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("CreateDefaultConfig() = %q, want inside %q", path, dir)
	}

	cfg, err := load(t, LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load(generated) error = %v\n%s", err, GenerateCUE(DefaultConfig()))
	}
	def := DefaultConfig()
	if cfg.ModsDir != def.ModsDir || cfg.Watch.Debounce != def.Watch.Debounce || cfg.Console != def.Console {
		t.Errorf("round trip = %+v, want %+v", cfg, def)
	}

	// An existing file is left alone.
	testutil.MustWriteFile(t, path, `mods_dir: "custom"`)
	if _, err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != `mods_dir: "custom"` {
		t.Errorf("existing config overwritten: %s", data)
	}
}

package mirror_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tailored-agentic-units/mirror/backing"
	"github.com/tailored-agentic-units/mirror/mirror"
)

func TestDefaultConfig(t *testing.T) {
	cfg := mirror.DefaultConfig()
	if cfg.Backing.Driver != backing.DriverMemory {
		t.Errorf("DefaultConfig().Backing.Driver = %q, want %q", cfg.Backing.Driver, backing.DriverMemory)
	}
	if cfg.Sync.Disabled || cfg.Sync.Watch {
		t.Errorf("DefaultConfig().Sync = %+v, want sync enabled without watch", cfg.Sync)
	}
	if cfg.Observer != "noop" {
		t.Errorf("DefaultConfig().Observer = %q, want noop", cfg.Observer)
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := mirror.DefaultConfig()
	cfg.Merge(&mirror.Config{
		Backing:    backing.Config{Driver: backing.DriverFile, Path: "/data"},
		Sync:       mirror.SyncConfig{Watch: true},
		Observer:   "slog",
		Validators: map[string]string{"prefs": "value.Count >= 0"},
	})

	if cfg.Backing.Driver != backing.DriverFile || cfg.Backing.Path != "/data" {
		t.Errorf("Merge() backing = %+v", cfg.Backing)
	}
	if !cfg.Sync.Watch || cfg.Sync.Disabled {
		t.Errorf("Merge() sync = %+v", cfg.Sync)
	}
	if cfg.Observer != "slog" {
		t.Errorf("Merge() observer = %q", cfg.Observer)
	}
	if cfg.Validators["prefs"] == "" {
		t.Error("Merge() dropped validators")
	}

	// A zero source keeps everything.
	cfg.Merge(&mirror.Config{})
	if cfg.Backing.Driver != backing.DriverFile || cfg.Observer != "slog" || !cfg.Sync.Watch {
		t.Errorf("Merge(zero) = %+v", cfg)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.json")
	data := `{
		"backing": {"driver": "file", "path": "/var/mirror"},
		"sync": {"watch": true},
		"validators": {"prefs": "value.Count >= 0"}
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := mirror.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Backing.Driver != backing.DriverFile || cfg.Backing.Path != "/var/mirror" {
		t.Errorf("LoadConfig() backing = %+v", cfg.Backing)
	}
	if !cfg.Sync.Watch {
		t.Error("LoadConfig() dropped sync.watch")
	}
	if cfg.Observer != "noop" {
		t.Errorf("LoadConfig() observer = %q, want default noop", cfg.Observer)
	}
	if cfg.Validators["prefs"] != "value.Count >= 0" {
		t.Errorf("LoadConfig() validators = %+v", cfg.Validators)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	if _, err := mirror.LoadConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("LoadConfig() error = nil for missing file")
	}
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := mirror.LoadConfig(path); err == nil {
		t.Fatal("LoadConfig() error = nil for malformed file")
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv("MIRROR_DRIVER", "sqlite")
	t.Setenv("MIRROR_PATH", "/tmp/mirror.db")
	t.Setenv("MIRROR_SYNC_DISABLED", "true")
	t.Setenv("MIRROR_OBSERVER", "slog")

	cfg := mirror.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Backing.Driver != backing.DriverSQLite || cfg.Backing.Path != "/tmp/mirror.db" {
		t.Errorf("ApplyEnv() backing = %+v", cfg.Backing)
	}
	if !cfg.Sync.Disabled {
		t.Error("ApplyEnv() did not disable sync")
	}
	if cfg.Observer != "slog" {
		t.Errorf("ApplyEnv() observer = %q", cfg.Observer)
	}
}

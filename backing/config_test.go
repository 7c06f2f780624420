package backing_test

import (
	"path/filepath"
	"testing"

	"github.com/tailored-agentic-units/mirror/backing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := backing.DefaultConfig()
	if cfg.Driver != backing.DriverMemory {
		t.Errorf("DefaultConfig().Driver = %q, want %q", cfg.Driver, backing.DriverMemory)
	}
	if cfg.Path != "" || cfg.MaxBytes != 0 {
		t.Errorf("DefaultConfig() = %+v, want empty path and no quota", cfg)
	}
}

func TestConfig_Merge(t *testing.T) {
	tests := []struct {
		name   string
		base   backing.Config
		source backing.Config
		want   backing.Config
	}{
		{
			name:   "overrides non-zero fields",
			base:   backing.DefaultConfig(),
			source: backing.Config{Driver: backing.DriverFile, Path: "/data", MaxBytes: 100},
			want:   backing.Config{Driver: backing.DriverFile, Path: "/data", MaxBytes: 100},
		},
		{
			name:   "zero source keeps base",
			base:   backing.Config{Driver: backing.DriverSQLite, Path: "/db", MaxBytes: 5},
			source: backing.Config{},
			want:   backing.Config{Driver: backing.DriverSQLite, Path: "/db", MaxBytes: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.base
			cfg.Merge(&tt.source)
			if cfg != tt.want {
				t.Errorf("Merge() = %+v, want %+v", cfg, tt.want)
			}
		})
	}
}

func TestNewStore(t *testing.T) {
	t.Run("memory default", func(t *testing.T) {
		cfg := backing.Config{}
		store, err := backing.NewStore(&cfg)
		if err != nil {
			t.Fatalf("NewStore() error = %v", err)
		}
		if store.ID() != "memory" {
			t.Errorf("store.ID() = %q, want memory", store.ID())
		}
	})

	t.Run("file", func(t *testing.T) {
		root := t.TempDir()
		cfg := backing.Config{Driver: backing.DriverFile, Path: root}
		store, err := backing.NewStore(&cfg)
		if err != nil {
			t.Fatalf("NewStore() error = %v", err)
		}
		if store.ID() != "file:"+root {
			t.Errorf("store.ID() = %q, want %q", store.ID(), "file:"+root)
		}
	})

	t.Run("file without path", func(t *testing.T) {
		cfg := backing.Config{Driver: backing.DriverFile}
		if _, err := backing.NewStore(&cfg); err == nil {
			t.Error("NewStore() error = nil, want error")
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := backing.Config{Driver: backing.DriverSQLite, Path: filepath.Join(t.TempDir(), "m.db")}
		store, err := backing.NewStore(&cfg)
		if err != nil {
			t.Fatalf("NewStore() error = %v", err)
		}
		if s, ok := store.(*backing.SQLiteStore); ok {
			defer s.Close()
		} else {
			t.Error("NewStore(sqlite) did not return a *SQLiteStore")
		}
	})

	t.Run("sqlite without path", func(t *testing.T) {
		cfg := backing.Config{Driver: backing.DriverSQLite}
		if _, err := backing.NewStore(&cfg); err == nil {
			t.Error("NewStore() error = nil, want error")
		}
	})

	t.Run("none", func(t *testing.T) {
		cfg := backing.Config{Driver: backing.DriverNone}
		store, err := backing.NewStore(&cfg)
		if err != nil {
			t.Fatalf("NewStore() error = %v", err)
		}
		if store != nil {
			t.Errorf("NewStore(none) = %v, want nil store", store)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := backing.Config{Driver: "redis"}
		if _, err := backing.NewStore(&cfg); err == nil {
			t.Error("NewStore() error = nil, want error")
		}
	})
}

package mirror

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/tailored-agentic-units/mirror/backing"
)

// SyncConfig controls cross-context change propagation.
type SyncConfig struct {
	// Disabled turns off the change-signal bus entirely: slots neither
	// publish nor react to writes from other contexts.
	Disabled bool `json:"disabled,omitempty"`
	// Watch enables a filesystem watcher that turns writes by other
	// processes into change signals. Only meaningful for the file driver.
	Watch bool `json:"watch,omitempty"`
}

// Merge applies set values from source into c.
func (c *SyncConfig) Merge(source *SyncConfig) {
	if source.Disabled {
		c.Disabled = true
	}
	if source.Watch {
		c.Watch = true
	}
}

// Config holds mirror initialization parameters.
type Config struct {
	Backing  backing.Config `json:"backing"`
	Sync     SyncConfig     `json:"sync"`
	Observer string         `json:"observer,omitempty"` // registered observer name
	// Validators maps storage keys to boolean expressions applied once per
	// runtime when a slot for the key is first opened.
	Validators map[string]string `json:"validators,omitempty"`
}

// DefaultConfig returns the default mirror configuration: in-memory backing,
// sync enabled, no-op observability.
func DefaultConfig() Config {
	return Config{
		Backing:  backing.DefaultConfig(),
		Observer: "noop",
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Backing.Merge(&source.Backing)
	c.Sync.Merge(&source.Sync)

	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if len(source.Validators) > 0 {
		c.Validators = source.Validators
	}
}

// LoadConfig reads a JSON config file, merges it with defaults and
// environment overrides, and returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type envOverrides struct {
	Driver       string `env:"MIRROR_DRIVER"`
	Path         string `env:"MIRROR_PATH"`
	MaxBytes     int    `env:"MIRROR_MAX_BYTES"`
	SyncDisabled bool   `env:"MIRROR_SYNC_DISABLED"`
	Watch        bool   `env:"MIRROR_WATCH"`
	Observer     string `env:"MIRROR_OBSERVER"`
}

// ApplyEnv overlays MIRROR_* environment variables onto c. Unset variables
// leave the corresponding fields untouched.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	c.Merge(&Config{
		Backing: backing.Config{
			Driver:   o.Driver,
			Path:     o.Path,
			MaxBytes: o.MaxBytes,
		},
		Sync: SyncConfig{
			Disabled: o.SyncDisabled,
			Watch:    o.Watch,
		},
		Observer: o.Observer,
	})
	return nil
}

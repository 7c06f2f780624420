package backing

import "fmt"

// Driver names accepted by NewStore.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverNone   = "none"
)

// Config holds backing store initialization parameters.
type Config struct {
	Driver   string `json:"driver,omitempty"`    // memory, file, or sqlite
	Path     string `json:"path,omitempty"`      // file root or sqlite database path
	MaxBytes int    `json:"max_bytes,omitempty"` // memory driver quota; 0 disables
}

// DefaultConfig returns the default backing configuration (in-memory,
// unbounded).
func DefaultConfig() Config {
	return Config{Driver: DriverMemory}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Driver != "" {
		c.Driver = source.Driver
	}
	if source.Path != "" {
		c.Path = source.Path
	}
	if source.MaxBytes > 0 {
		c.MaxBytes = source.MaxBytes
	}
}

// NewStore creates a Store from configuration. Returns nil Store for the
// none driver, indicating persistence is disabled.
func NewStore(cfg *Config) (Store, error) {
	switch cfg.Driver {
	case DriverNone:
		return nil, nil
	case "", DriverMemory:
		return NewMemoryStore("memory", cfg.MaxBytes), nil
	case DriverFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file driver requires a path")
		}
		return NewFileStore(cfg.Path), nil
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite driver requires a path")
		}
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown backing driver: %s", cfg.Driver)
	}
}

// Package mirror wires a backing store, a change-signal bus, and a runtime
// into a single handle from which typed slots are opened. One Mirror
// corresponds to one synchronization context; two Mirrors sharing a store
// and a bus observe each other's writes.
package mirror

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tailored-agentic-units/mirror/backing"
	"github.com/tailored-agentic-units/mirror/engine"
	"github.com/tailored-agentic-units/mirror/observability"
	"github.com/tailored-agentic-units/mirror/signal"
	"github.com/tailored-agentic-units/mirror/validate"
)

// Mirror owns the wiring for one synchronization context.
type Mirror struct {
	cfg      Config
	store    backing.Store
	bus      *signal.Bus
	watcher  *signal.Watcher
	runtime  *engine.Runtime
	observer observability.Observer
	logger   *slog.Logger
}

// Option overrides a wired component before construction completes.
type Option func(*Mirror)

// WithStore replaces the store built from configuration.
func WithStore(store backing.Store) Option {
	return func(m *Mirror) { m.store = store }
}

// WithBus replaces the change-signal bus, letting several Mirrors in one
// process share signals.
func WithBus(bus *signal.Bus) Option {
	return func(m *Mirror) { m.bus = bus }
}

// WithObserver replaces the observer resolved from configuration.
func WithObserver(observer observability.Observer) Option {
	return func(m *Mirror) {
		if observer != nil {
			m.observer = observer
		}
	}
}

// WithLogger sets the logger used by the bus and watcher.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mirror) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New builds a Mirror from configuration. A nil cfg uses defaults.
func New(cfg *Config, opts ...Option) (*Mirror, error) {
	resolved := DefaultConfig()
	if cfg != nil {
		resolved.Merge(cfg)
	}

	m := &Mirror{
		cfg:    resolved,
		logger: slog.Default(),
	}

	observer, err := observability.GetObserver(resolved.Observer)
	if err != nil {
		return nil, err
	}
	m.observer = observer

	for _, opt := range opts {
		opt(m)
	}

	if m.store == nil {
		store, err := backing.NewStore(&resolved.Backing)
		if err != nil {
			return nil, err
		}
		m.store = store
	}

	if m.bus == nil && !resolved.Sync.Disabled {
		m.bus = signal.NewBus(m.logger)
	}

	runtimeOpts := []engine.RuntimeOption{engine.WithRuntimeObserver(m.observer)}
	if m.bus != nil {
		runtimeOpts = append(runtimeOpts, engine.WithBus(m.bus))
	}
	m.runtime = engine.NewRuntime(runtimeOpts...)

	if resolved.Sync.Watch && m.bus != nil && m.store != nil {
		if resolved.Backing.Driver != backing.DriverFile {
			return nil, fmt.Errorf("watch requires the file driver, got %q", resolved.Backing.Driver)
		}
		watcher, err := signal.NewWatcher(resolved.Backing.Path, m.store.ID(), m.bus, m.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}
		m.watcher = watcher
	}

	return m, nil
}

// Start begins watching for external changes when a watcher is configured.
func (m *Mirror) Start(ctx context.Context) error {
	if m.watcher == nil {
		return nil
	}
	return m.watcher.Start(ctx)
}

// Close stops the watcher and releases the backing store.
func (m *Mirror) Close() error {
	if m.watcher != nil {
		m.watcher.Stop()
	}
	if closer, ok := m.store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Store returns the wired backing store; nil when persistence is disabled.
func (m *Mirror) Store() backing.Store {
	return m.store
}

// Bus returns the change-signal bus; nil when sync is disabled.
func (m *Mirror) Bus() *signal.Bus {
	return m.bus
}

// Runtime returns this context's runtime.
func (m *Mirror) Runtime() *engine.Runtime {
	return m.runtime
}

// Slot opens a typed slot for key on m. When no backing store is available
// the returned slot is a no-op: reads report absent and writes are
// discarded. A validator expression configured for key is compiled against
// T and applied once per runtime.
func Slot[T any](ctx context.Context, m *Mirror, key string, opts ...engine.Option[T]) (engine.Slot[T], error) {
	if m.store == nil {
		return engine.NewNoop[T](key), nil
	}

	if source, ok := m.cfg.Validators[key]; ok {
		pred, err := validate.Expr[T](source)
		if err != nil {
			return nil, err
		}
		opts = append([]engine.Option[T]{engine.WithValidator(pred)}, opts...)
	}

	return engine.New(ctx, m.runtime, m.store, key, opts...)
}

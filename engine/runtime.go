// Package engine implements the synchronized store engine: a process-wide
// mirror cache over a backing store, a per-key listener registry, a one-time
// validation gate, and the cross-context synchronization that reconciles the
// mirror with writes from other contexts.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/mirror/observability"
	"github.com/tailored-agentic-units/mirror/signal"
)

// Runtime holds the state shared by every Engine in one context: the mirror
// cache, the listener registry, and the validation gate. It stands in for
// "process lifetime" — construct one per process and pass it to every
// engine; tests may construct several, and each behaves as an independent
// context. A Runtime is never reset.
//
// The Runtime's identity tags change signals published by its engines so the
// bus can withhold them from the writing context itself.
type Runtime struct {
	id       string
	bus      *signal.Bus
	observer observability.Observer

	mu        sync.Mutex
	mirror    map[string]mirrorEntry
	listeners map[string]map[*Listener]struct{}
	validated map[string]struct{}
}

// mirrorEntry is one mirror cache slot. Entries are shared across engines of
// different value types bound to the same key, so the decoded value is held
// as any and re-asserted by each engine.
type mirrorEntry struct {
	kind Kind
	val  any
}

// RuntimeOption configures a Runtime at construction.
type RuntimeOption func(*Runtime)

// WithBus connects the runtime to a change-signal bus. Engines publish their
// writes to it and, when sync is enabled, subscribe to writes from other
// contexts.
func WithBus(bus *signal.Bus) RuntimeOption {
	return func(rt *Runtime) { rt.bus = bus }
}

// WithRuntimeObserver sets the observer engines emit events to. Defaults to
// NoOpObserver.
func WithRuntimeObserver(observer observability.Observer) RuntimeOption {
	return func(rt *Runtime) {
		if observer != nil {
			rt.observer = observer
		}
	}
}

// NewRuntime creates a Runtime with a unique UUIDv7 context identity.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	rt := &Runtime{
		id:        uuid.Must(uuid.NewV7()).String(),
		observer:  observability.NoOpObserver{},
		mirror:    make(map[string]mirrorEntry),
		listeners: make(map[string]map[*Listener]struct{}),
		validated: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// ID returns the runtime's context identity.
func (rt *Runtime) ID() string {
	return rt.id
}

func (rt *Runtime) mirrorGet(key string) (mirrorEntry, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	entry, ok := rt.mirror[key]
	return entry, ok
}

func (rt *Runtime) mirrorSet(key string, entry mirrorEntry) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.mirror[key] = entry
}

func (rt *Runtime) addListener(key string, l *Listener) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.listeners[key] == nil {
		rt.listeners[key] = make(map[*Listener]struct{})
	}
	rt.listeners[key][l] = struct{}{}
}

func (rt *Runtime) removeListener(key string, l *Listener) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if set, ok := rt.listeners[key]; ok {
		delete(set, l)
	}
}

// passGate marks key as validated and reports whether this call was the
// first. Gate entries are never removed for the runtime's lifetime.
func (rt *Runtime) passGate(key string) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if _, done := rt.validated[key]; done {
		return false
	}
	rt.validated[key] = struct{}{}
	return true
}

// notifyAll invokes every listener registered for key against a snapshot of
// the set taken at invocation time. A panicking listener is reported to the
// observer and does not prevent the remaining listeners from running.
func (rt *Runtime) notifyAll(ctx context.Context, key string) {
	rt.mu.Lock()
	snapshot := make([]*Listener, 0, len(rt.listeners[key]))
	for l := range rt.listeners[key] {
		snapshot = append(snapshot, l)
	}
	rt.mu.Unlock()

	for _, l := range snapshot {
		rt.invoke(ctx, key, l)
	}
}

func (rt *Runtime) invoke(ctx context.Context, key string, l *Listener) {
	defer func() {
		if r := recover(); r != nil {
			rt.observer.OnEvent(ctx, observability.Event{
				Type:      EventListenerPanic,
				Level:     observability.LevelError,
				Timestamp: time.Now(),
				Source:    "runtime.notifyAll",
				Key:       key,
				Data:      map[string]any{"panic": fmt.Sprint(r)},
			})
		}
	}()
	l.fn()
}

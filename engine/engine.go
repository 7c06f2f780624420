package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tailored-agentic-units/mirror/backing"
	"github.com/tailored-agentic-units/mirror/codec"
	"github.com/tailored-agentic-units/mirror/observability"
	"github.com/tailored-agentic-units/mirror/signal"
)

// Validator is a one-time predicate applied to a key's stored value the
// first time an engine with a validator is constructed for that key. It
// returns whether the decoded value is acceptable; a false outcome triggers
// a repair (reseed with the default, or removal), never an error.
type Validator[T any] func(value T) bool

// Engine binds one storage key to a runtime, a backing store, and a codec,
// exposing the key as subscribable state. Multiple engines for the same key
// share the runtime's mirror cache, listener registry, and validation gate,
// so every mount observes the same state without coordination.
type Engine[T any] struct {
	rt        *Runtime
	store     backing.Store
	key       string
	codec     codec.Codec[T]
	def       Value[T]
	validator Validator[T]
	observer  observability.Observer
	silent    bool
	sync      bool
}

// Option configures an Engine before its constructor-time validation pass.
type Option[T any] func(*Engine[T])

// WithCodec replaces the default JSON codec.
func WithCodec[T any](c codec.Codec[T]) Option[T] {
	return func(e *Engine[T]) {
		if c != nil {
			e.codec = c
		}
	}
}

// WithDefault sets the value seeded when the key is absent at construction
// and restored when validation rejects the stored value.
func WithDefault[T any](value T) Option[T] {
	return func(e *Engine[T]) { e.def = Of(value) }
}

// WithValidator sets the one-time validator for the engine's key.
func WithValidator[T any](v Validator[T]) Option[T] {
	return func(e *Engine[T]) { e.validator = v }
}

// WithObserver overrides the runtime's observer for this engine.
func WithObserver[T any](o observability.Observer) Option[T] {
	return func(e *Engine[T]) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithoutSync disables cross-context synchronization for this engine:
// Subscribe registers only the local listener and external change signals
// are ignored.
func WithoutSync[T any]() Option[T] {
	return func(e *Engine[T]) { e.sync = false }
}

// WithSilent controls whether backing-store access failures are returned to
// callers (false) or reported to the observer and degraded (true, the
// default). Decode failures are always degraded regardless of this flag:
// the raw read succeeded, so the engine repairs the entry and reports null.
func WithSilent[T any](silent bool) Option[T] {
	return func(e *Engine[T]) { e.silent = silent }
}

// New constructs an Engine for key and runs the constructor-time pass: an
// absent key is seeded with the configured default; a present key is
// validated once per runtime lifetime when a validator is configured. Under
// WithSilent(false), access failures during this pass are returned.
func New[T any](ctx context.Context, rt *Runtime, store backing.Store, key string, opts ...Option[T]) (*Engine[T], error) {
	if rt == nil {
		return nil, ErrNilRuntime
	}
	if store == nil {
		return nil, ErrNilStore
	}
	if key == "" {
		return nil, ErrEmptyKey
	}

	e := &Engine[T]{
		rt:       rt,
		store:    store,
		key:      key,
		codec:    codec.JSON[T](),
		observer: rt.observer,
		silent:   true,
		sync:     true,
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.initialize(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Key returns the storage key this engine is bound to.
func (e *Engine[T]) Key() string {
	return e.key
}

func (e *Engine[T]) initialize(ctx context.Context) error {
	raw, ok, err := e.store.Load(ctx, e.key)
	if err != nil {
		return e.fail(ctx, "initialize", err)
	}

	if !ok || codec.IsAbsentLiteral(raw) {
		def, has := e.def.Get()
		if !has {
			return nil
		}
		encoded, err := e.codec.Encode(def)
		if err != nil {
			return e.fail(ctx, "initialize", err)
		}
		if err := e.store.Save(ctx, e.key, encoded); err != nil {
			return e.fail(ctx, "initialize", err)
		}
		e.rt.mirrorSet(e.key, mirrorEntry{kind: KindValue, val: def})
		e.publish(ctx, signal.NewUpdate(e.store.ID(), e.rt.id, e.key, encoded))
		e.emit(ctx, EventSeed, observability.LevelInfo, "engine.initialize", nil)
		return nil
	}

	if e.validator == nil || !e.rt.passGate(e.key) {
		return nil
	}

	value, err := e.codec.Decode(raw)
	if err != nil {
		e.repair(ctx, "initialize", err)
		return nil
	}

	if e.validator(value) {
		e.rt.mirrorSet(e.key, mirrorEntry{kind: KindValue, val: value})
		e.emit(ctx, EventValidate, observability.LevelVerbose, "engine.initialize",
			map[string]any{"valid": true})
		return nil
	}

	if def, has := e.def.Get(); has {
		encoded, err := e.codec.Encode(def)
		if err != nil {
			return e.fail(ctx, "initialize", err)
		}
		if err := e.store.Save(ctx, e.key, encoded); err != nil {
			return e.fail(ctx, "initialize", err)
		}
		e.rt.mirrorSet(e.key, mirrorEntry{kind: KindValue, val: def})
		e.publish(ctx, signal.NewUpdate(e.store.ID(), e.rt.id, e.key, encoded))
		e.emit(ctx, EventReseed, observability.LevelWarning, "engine.initialize", nil)
		return nil
	}

	if err := e.store.Delete(ctx, e.key); err != nil {
		return e.fail(ctx, "initialize", err)
	}
	e.rt.mirrorSet(e.key, mirrorEntry{kind: KindAbsent})
	e.publish(ctx, signal.NewRemove(e.store.ID(), e.rt.id, e.key))
	e.emit(ctx, EventClear, observability.LevelWarning, "engine.initialize", nil)
	return nil
}

// Snapshot returns the slot's current value. The first read per key
// populates the runtime's mirror cache from the backing store; later reads
// are served from the mirror until a write or an external change signal
// refreshes it. A stored value that fails to decode is repaired away and
// reported as null without an error, regardless of the silent flag.
func (e *Engine[T]) Snapshot(ctx context.Context) (Value[T], error) {
	if entry, ok := e.rt.mirrorGet(e.key); ok {
		if value, usable := e.fromEntry(entry); usable {
			return value, nil
		}
		// Mirror entry was decoded by an engine of another value type;
		// fall through and re-read.
	}

	raw, ok, err := e.store.Load(ctx, e.key)
	if err != nil {
		return Absent[T](), e.fail(ctx, "snapshot", err)
	}
	if !ok || codec.IsAbsentLiteral(raw) {
		e.rt.mirrorSet(e.key, mirrorEntry{kind: KindAbsent})
		return Absent[T](), nil
	}

	value, err := e.codec.Decode(raw)
	if err != nil {
		e.repair(ctx, "snapshot", err)
		return Null[T](), nil
	}

	e.rt.mirrorSet(e.key, mirrorEntry{kind: KindValue, val: value})
	return Of(value), nil
}

// Set encodes value and writes it through to the backing store, then updates
// the mirror cache and notifies this context's listeners. The mirror and
// listeners are updated even when the write fails, so same-context readers
// always observe their own writes; under the default silent policy the
// write failure is reported to the observer and Set returns nil.
func (e *Engine[T]) Set(ctx context.Context, value T) error {
	var failure error

	encoded, err := e.codec.Encode(value)
	if err != nil {
		failure = e.fail(ctx, "set", err)
	} else if err := e.store.Save(ctx, e.key, encoded); err != nil {
		failure = e.fail(ctx, "set", err)
	} else {
		e.publish(ctx, signal.NewUpdate(e.store.ID(), e.rt.id, e.key, encoded))
	}

	e.rt.mirrorSet(e.key, mirrorEntry{kind: KindValue, val: value})
	e.emit(ctx, EventSet, observability.LevelVerbose, "engine.set", nil)
	e.rt.notifyAll(ctx, e.key)
	return failure
}

// Update computes the next value from the current snapshot and stores it via
// Set. The transform receives the tri-state snapshot so callers can
// distinguish absent from null inputs.
func (e *Engine[T]) Update(ctx context.Context, transform func(current Value[T]) T) error {
	current, err := e.Snapshot(ctx)
	if err != nil {
		return err
	}
	return e.Set(ctx, transform(current))
}

// Subscribe registers listener for changes to this slot. When cross-context
// sync is enabled (the default) it also reacts to change signals from other
// contexts by refreshing the mirror from the reported raw value and
// notifying all local listeners. The returned detach function removes both
// registrations; it is idempotent and safe to call multiple times.
func (e *Engine[T]) Subscribe(listener *Listener) (detach func()) {
	if listener != nil {
		e.rt.addListener(e.key, listener)
	}

	var cancel func()
	if e.sync && e.rt.bus != nil {
		cancel = e.rt.bus.Subscribe(e.store.ID(), e.rt.id, func(event signal.Event) {
			if event.Key != e.key {
				return
			}
			e.refresh(context.Background(), event)
		})
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if cancel != nil {
				cancel()
			}
			if listener != nil {
				e.rt.removeListener(e.key, listener)
			}
		})
	}
}

// refresh applies an externally reported change to the mirror and fires
// local listeners. Decode failures degrade to null without repairing the
// store: the write belongs to another context and deleting it here would
// fight the writer.
func (e *Engine[T]) refresh(ctx context.Context, event signal.Event) {
	switch {
	case event.Removed || codec.IsAbsentLiteral(event.Raw):
		e.rt.mirrorSet(e.key, mirrorEntry{kind: KindAbsent})
	default:
		value, err := e.codec.Decode(event.Raw)
		if err != nil {
			e.rt.mirrorSet(e.key, mirrorEntry{kind: KindNull})
			e.emit(ctx, EventDecodeError, observability.LevelWarning, "engine.sync",
				map[string]any{"error": err.Error()})
		} else {
			e.rt.mirrorSet(e.key, mirrorEntry{kind: KindValue, val: value})
		}
	}

	e.emit(ctx, EventSync, observability.LevelVerbose, "engine.sync",
		map[string]any{"removed": event.Removed, "origin": event.Origin})
	e.rt.notifyAll(ctx, e.key)
}

// repair handles a decode failure on the read path: the entry is removed
// from the backing store, the mirror reports null, and the failure is
// observed but never returned.
func (e *Engine[T]) repair(ctx context.Context, op string, decodeErr error) {
	if err := e.store.Delete(ctx, e.key); err != nil {
		e.emit(ctx, EventAccessError, observability.LevelError, "engine."+op,
			map[string]any{"error": err.Error()})
	} else {
		e.publish(ctx, signal.NewRemove(e.store.ID(), e.rt.id, e.key))
	}
	e.rt.mirrorSet(e.key, mirrorEntry{kind: KindNull})
	e.emit(ctx, EventDecodeError, observability.LevelWarning, "engine."+op,
		map[string]any{"error": decodeErr.Error()})
}

// fail applies the silent policy to an access failure: observe it, and
// either swallow it (silent, the default) or return it wrapped.
func (e *Engine[T]) fail(ctx context.Context, op string, err error) error {
	e.emit(ctx, EventAccessError, observability.LevelError, "engine."+op,
		map[string]any{"error": err.Error()})
	if e.silent {
		return nil
	}
	return fmt.Errorf("%s %q: %w", op, e.key, err)
}

// publish reports a successful write to the bus so other contexts can
// refresh. Publication is independent of the sync flag, which only gates
// whether this engine listens.
func (e *Engine[T]) publish(ctx context.Context, event signal.Event) {
	if e.rt.bus != nil {
		e.rt.bus.Publish(ctx, event)
	}
}

func (e *Engine[T]) emit(ctx context.Context, typ observability.EventType, level observability.Level, source string, data map[string]any) {
	e.observer.OnEvent(ctx, observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    source,
		Key:       e.key,
		Data:      data,
	})
}

// fromEntry converts a shared mirror entry to this engine's value type.
// usable is false when the entry holds a value decoded under a different
// type parameter.
func (e *Engine[T]) fromEntry(entry mirrorEntry) (Value[T], bool) {
	switch entry.kind {
	case KindAbsent:
		return Absent[T](), true
	case KindNull:
		return Null[T](), true
	default:
		if value, ok := entry.val.(T); ok {
			return Of(value), true
		}
		return Absent[T](), false
	}
}

package mirror_test

import (
	"context"
	"testing"

	"github.com/tailored-agentic-units/mirror/backing"
	"github.com/tailored-agentic-units/mirror/engine"
	"github.com/tailored-agentic-units/mirror/mirror"
	"github.com/tailored-agentic-units/mirror/signal"
)

type prefs struct {
	Theme string `json:"theme"`
	Count int    `json:"count"`
}

func TestNew_Defaults(t *testing.T) {
	m, err := mirror.New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer m.Close()

	if m.Store() == nil {
		t.Error("Store() = nil, want in-memory store")
	}
	if m.Bus() == nil {
		t.Error("Bus() = nil, want bus with sync enabled")
	}
	if m.Runtime() == nil {
		t.Error("Runtime() = nil")
	}
}

func TestNew_SyncDisabled(t *testing.T) {
	m, err := mirror.New(&mirror.Config{Sync: mirror.SyncConfig{Disabled: true}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer m.Close()

	if m.Bus() != nil {
		t.Error("Bus() != nil with sync disabled")
	}
}

func TestNew_UnknownObserver(t *testing.T) {
	if _, err := mirror.New(&mirror.Config{Observer: "statsd"}); err == nil {
		t.Fatal("New() error = nil for unknown observer")
	}
}

func TestNew_WatchRequiresFileDriver(t *testing.T) {
	cfg := &mirror.Config{Sync: mirror.SyncConfig{Watch: true}}
	if _, err := mirror.New(cfg); err == nil {
		t.Fatal("New() error = nil for watch on memory driver")
	}
}

func TestNew_WatchFileDriver(t *testing.T) {
	cfg := &mirror.Config{
		Backing: backing.Config{Driver: backing.DriverFile, Path: t.TempDir()},
		Sync:    mirror.SyncConfig{Watch: true},
	}
	m, err := mirror.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestSlot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m, err := mirror.New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer m.Close()

	slot, err := mirror.Slot[prefs](ctx, m, "prefs",
		engine.WithDefault(prefs{Theme: "light", Count: 1}))
	if err != nil {
		t.Fatalf("Slot() error = %v", err)
	}

	if err := slot.Set(ctx, prefs{Theme: "dark", Count: 2}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := slot.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if v, ok := got.Get(); !ok || v.Theme != "dark" || v.Count != 2 {
		t.Errorf("Snapshot() = %+v, %v", v, ok)
	}
}

func TestSlot_NoopWhenPersistenceDisabled(t *testing.T) {
	ctx := context.Background()
	m, err := mirror.New(&mirror.Config{Backing: backing.Config{Driver: backing.DriverNone}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer m.Close()

	slot, err := mirror.Slot[prefs](ctx, m, "prefs")
	if err != nil {
		t.Fatalf("Slot() error = %v", err)
	}
	if err := slot.Set(ctx, prefs{Count: 9}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := slot.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if !got.IsAbsent() {
		t.Errorf("Snapshot() kind = %v, want absent from no-op slot", got.Kind())
	}
}

func TestSlot_ConfiguredValidator(t *testing.T) {
	ctx := context.Background()
	store := backing.NewMemoryStore("mem", 0)
	if err := store.Save(ctx, "prefs", `{"theme":"x","count":-3}`); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cfg := &mirror.Config{Validators: map[string]string{"prefs": "value.Count >= 0"}}
	m, err := mirror.New(cfg, mirror.WithStore(store))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer m.Close()

	slot, err := mirror.Slot[prefs](ctx, m, "prefs",
		engine.WithDefault(prefs{Theme: "light", Count: 0}))
	if err != nil {
		t.Fatalf("Slot() error = %v", err)
	}

	got, err := slot.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if v, ok := got.Get(); !ok || v.Count != 0 || v.Theme != "light" {
		t.Errorf("Snapshot() after reseed = %+v, %v", v, ok)
	}
}

func TestSlot_ValidatorCompileError(t *testing.T) {
	ctx := context.Background()
	cfg := &mirror.Config{Validators: map[string]string{"prefs": "value ++"}}
	m, err := mirror.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer m.Close()

	if _, err := mirror.Slot[prefs](ctx, m, "prefs"); err == nil {
		t.Fatal("Slot() error = nil for malformed validator")
	}
}

func TestMirrors_ShareSignals(t *testing.T) {
	ctx := context.Background()
	bus := signal.NewBus(nil)
	store := backing.NewMemoryStore("mem", 0)

	a, err := mirror.New(nil, mirror.WithStore(store), mirror.WithBus(bus))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()
	b, err := mirror.New(nil, mirror.WithStore(store), mirror.WithBus(bus))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Close()

	slotA, err := mirror.Slot[prefs](ctx, a, "prefs")
	if err != nil {
		t.Fatalf("Slot() error = %v", err)
	}
	slotB, err := mirror.Slot[prefs](ctx, b, "prefs")
	if err != nil {
		t.Fatalf("Slot() error = %v", err)
	}

	fired := 0
	detach := slotB.Subscribe(engine.NewListener(func() { fired++ }))
	defer detach()

	if err := slotA.Set(ctx, prefs{Theme: "dark", Count: 7}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if fired != 1 {
		t.Errorf("peer listener fired %d times, want 1", fired)
	}
	got, _ := slotB.Snapshot(ctx)
	if v, ok := got.Get(); !ok || v.Count != 7 {
		t.Errorf("peer Snapshot() = %+v, %v", v, ok)
	}
}

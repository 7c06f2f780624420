package engine

import "context"

// Slot is the read/write/subscribe surface shared by Engine and Noop.
// Callers that may run without a usable backing store hold a Slot and let
// construction decide which implementation backs it.
type Slot[T any] interface {
	Snapshot(ctx context.Context) (Value[T], error)
	Set(ctx context.Context, value T) error
	Update(ctx context.Context, transform func(current Value[T]) T) error
	Subscribe(listener *Listener) (detach func())
	Key() string
}

// Noop is the fallback Slot used when no backing store is available. Reads
// report absent, writes succeed without effect, and subscriptions never
// fire.
type Noop[T any] struct {
	key string
}

// NewNoop returns a no-op slot for key.
func NewNoop[T any](key string) *Noop[T] {
	return &Noop[T]{key: key}
}

func (n *Noop[T]) Snapshot(context.Context) (Value[T], error) {
	return Absent[T](), nil
}

func (n *Noop[T]) Set(context.Context, T) error {
	return nil
}

func (n *Noop[T]) Update(context.Context, func(Value[T]) T) error {
	return nil
}

func (n *Noop[T]) Subscribe(*Listener) (detach func()) {
	return func() {}
}

func (n *Noop[T]) Key() string {
	return n.key
}

var (
	_ Slot[int] = (*Engine[int])(nil)
	_ Slot[int] = (*Noop[int])(nil)
)

package observability

import "context"

// NoOpObserver discards all events with zero overhead. It is the default for
// runtimes constructed without an observer.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(ctx context.Context, event Event) {}

package engine

// Listener is a registered change callback. The registry keys registrations
// by Listener identity, so adding the same Listener to a key twice yields a
// single notification per change. Create one Listener per logical consumer
// and reuse it across re-subscriptions.
type Listener struct {
	fn func()
}

// NewListener wraps fn as a registrable callback identity.
func NewListener(fn func()) *Listener {
	return &Listener{fn: fn}
}

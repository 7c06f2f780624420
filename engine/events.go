package engine

import "github.com/tailored-agentic-units/mirror/observability"

// Engine event types emitted to the configured observer.
const (
	EventSeed          observability.EventType = "engine.seed"
	EventValidate      observability.EventType = "engine.validate"
	EventReseed        observability.EventType = "engine.reseed"
	EventClear         observability.EventType = "engine.clear"
	EventSet           observability.EventType = "engine.set"
	EventDecodeError   observability.EventType = "engine.decode_error"
	EventAccessError   observability.EventType = "engine.access_error"
	EventListenerPanic observability.EventType = "engine.listener_panic"
	EventSync          observability.EventType = "engine.sync"
)

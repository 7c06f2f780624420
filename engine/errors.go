package engine

import "errors"

// Sentinel errors for engine construction.
var (
	ErrNilRuntime = errors.New("runtime is required")
	ErrNilStore   = errors.New("backing store is required")
	ErrEmptyKey   = errors.New("key must not be empty")
)

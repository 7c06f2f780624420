// Package codec defines the serialization boundary between decoded slot
// values and the raw strings held by a backing store.
package codec

// absentLiteral is the raw form some legacy writers persist instead of
// removing a key. It must never be fed to a decoder.
const absentLiteral = "undefined"

// Codec translates one slot value type to and from its raw stored form.
// Implementations must be safe for concurrent use.
type Codec[T any] interface {
	// Encode renders value as the raw string to persist.
	Encode(value T) (string, error)
	// Decode parses a raw stored string back into a value.
	Decode(raw string) (T, error)
}

// IsAbsentLiteral reports whether raw marks an absent value. The engine read
// path treats such raw strings as "never set" without invoking a decoder.
func IsAbsentLiteral(raw string) bool {
	return raw == absentLiteral
}

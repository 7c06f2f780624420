package engine

// Kind discriminates the three observable states of a slot.
type Kind int

const (
	// KindAbsent means no value has ever been stored, or it was removed.
	KindAbsent Kind = iota
	// KindNull means a value is present but was unreadable; the stored form
	// has been repaired away and callers see an explicit null.
	KindNull
	// KindValue means a decoded value is available.
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNull:
		return "null"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

// Value is the tri-state result of reading a slot: absent, null, or a
// decoded value. The zero Value is absent.
type Value[T any] struct {
	kind Kind
	val  T
}

// Absent returns the "never set" Value.
func Absent[T any]() Value[T] {
	return Value[T]{}
}

// Null returns the "present but unreadable" Value.
func Null[T any]() Value[T] {
	return Value[T]{kind: KindNull}
}

// Of wraps a decoded value.
func Of[T any](val T) Value[T] {
	return Value[T]{kind: KindValue, val: val}
}

// Kind returns the value's discriminant.
func (v Value[T]) Kind() Kind {
	return v.kind
}

func (v Value[T]) IsAbsent() bool {
	return v.kind == KindAbsent
}

func (v Value[T]) IsNull() bool {
	return v.kind == KindNull
}

// Get returns the decoded value and whether one is present.
func (v Value[T]) Get() (T, bool) {
	return v.val, v.kind == KindValue
}

// Or returns the decoded value when present, otherwise fallback.
func (v Value[T]) Or(fallback T) T {
	if v.kind == KindValue {
		return v.val
	}
	return fallback
}

package codec

import (
	"encoding/json"
	"fmt"
)

type jsonCodec[T any] struct{}

// JSON returns the default codec: values round-trip through encoding/json.
func JSON[T any]() Codec[T] {
	return jsonCodec[T]{}
}

func (jsonCodec[T]) Encode(value T) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(data), nil
}

func (jsonCodec[T]) Decode(raw string) (T, error) {
	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return value, fmt.Errorf("decode json: %w", err)
	}
	return value, nil
}

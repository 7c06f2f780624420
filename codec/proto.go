package codec

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

type protoCodec[T proto.Message] struct{}

// Proto returns a codec for protobuf message slots stored as protojson text.
func Proto[T proto.Message]() Codec[T] {
	return protoCodec[T]{}
}

func (protoCodec[T]) Encode(value T) (string, error) {
	data, err := protojson.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode protojson: %w", err)
	}
	return string(data), nil
}

func (protoCodec[T]) Decode(raw string) (T, error) {
	var zero T
	msg := zero.ProtoReflect().Type().New().Interface()
	if err := protojson.Unmarshal([]byte(raw), msg); err != nil {
		return zero, fmt.Errorf("decode protojson: %w", err)
	}
	return msg.(T), nil
}

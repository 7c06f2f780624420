package codec

type stringCodec struct{}

// String returns an identity codec for slots that store raw strings as-is.
func String() Codec[string] {
	return stringCodec{}
}

func (stringCodec) Encode(value string) (string, error) {
	return value, nil
}

func (stringCodec) Decode(raw string) (string, error) {
	return raw, nil
}

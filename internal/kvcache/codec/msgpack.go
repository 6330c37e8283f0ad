package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack serializes values with vmihailenco/msgpack/v5, a compact binary
// alternative to the JSON default. The zero value is ready to use.
//
// Schemaless documents round-trip with string-keyed maps; typed values need
// `msgpack:"fieldName"` tags where the JSON tags differ.
type Msgpack[V any] struct{}

func (Msgpack[V]) Encode(v V) ([]byte, error) {
	return msgpack.Marshal(v)
}
func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(b, &v)
	return v, err
}

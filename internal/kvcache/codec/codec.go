// Package codec serializes cached values. The bytes a codec produces are
// stored verbatim by the providers, so switching codecs invalidates existing
// entries.
package codec

// Codec encodes/decodes values V to []byte for cache storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

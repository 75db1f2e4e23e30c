// Package codec provides pluggable (de)serialization of task state for
// taskstore. The store treats payloads as opaque bytes; a Codec is the only
// component that inspects them.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

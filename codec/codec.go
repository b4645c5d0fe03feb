// Package codec defines the pluggable serialization used for cached
// responses. The worker frames codec output with its own wire header, so a
// codec only ever sees the value payload.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

package codec

import "google.golang.org/protobuf/proto"

// Protobuf serializes proto.Message task state. T must be a concrete message
// pointer type; ctor produces a fresh instance to decode into
// (e.g., func() *taskpb.Job { return &taskpb.Job{} }).
type Protobuf[T proto.Message] struct {
	new func() T
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.Marshal(v)
}
func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}

package grpcrpc

import (
	"fmt"

	"google.golang.org/grpc/encoding"
)

// rawCodecName is sent as the gRPC content-subtype so both ends select
// rawCodec instead of the default proto codec, letting the adapter frame
// its own envelope bytes rather than a protobuf schema.
const rawCodecName = "cla-raw"

func init() {
	encoding.RegisterCodec(rawCodec{})
}

// rawMessage is the sole message type ever sent or received over a
// grpcrpc stream: pre-encoded envelope bytes, opaque to grpc itself.
type rawMessage struct {
	data []byte
}

// rawCodec passes already-encoded envelope bytes straight through grpc's
// framing layer, matching SPEC_FULL.md's "grpc supplies only
// framing/multiplexing/flow control" — the payload format is the
// adapter's own codec, not protobuf.
type rawCodec struct{}

func (rawCodec) Name() string { return rawCodecName }

func (rawCodec) Marshal(v any) ([]byte, error) {
	m, ok := v.(*rawMessage)
	if !ok {
		return nil, fmt.Errorf("grpcrpc: rawCodec.Marshal: unexpected type %T", v)
	}
	return m.data, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	m, ok := v.(*rawMessage)
	if !ok {
		return fmt.Errorf("grpcrpc: rawCodec.Unmarshal: unexpected type %T", v)
	}
	m.data = append([]byte(nil), data...)
	return nil
}

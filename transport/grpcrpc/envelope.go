package grpcrpc

import "github.com/distcla/cla/internal/codec"

// envelopeKind selects how a relayed envelope should be interpreted by the
// broker: register a provider, carry a request to it, or carry its
// response back to the originating client stream.
type envelopeKind uint8

const (
	kindRegister envelopeKind = iota
	kindRequest
	kindResponse
)

// envelope is the wire struct multiplexed over a single bidirectional gRPC
// stream per member, keyed by callHandle the same way the core's
// pendingCalls/retryQueue model keys in-flight calls (spec.md §4.F).
// It carries no protobuf schema; framing/multiplexing/flow control is
// grpc's job, encoding is the adapter's own codec (SPEC_FULL.md "RPC
// transport binding").
type envelope struct {
	kind          envelopeKind
	canonicalName string
	callHandle    uint64
	payload       []byte
	unreachable   bool
}

func encodeEnvelope(e envelope) []byte {
	s := codec.NewSerializer()
	s.Begin()
	s.WriteUint(uint64(e.kind), 8)
	s.WriteString(e.canonicalName)
	s.WriteUint(e.callHandle, 64)
	s.WriteBytes(e.payload)
	s.WriteBool(e.unreachable)
	return s.End()
}

func decodeEnvelope(buf []byte) envelope {
	d := codec.NewDeserializer()
	d.Begin(buf)
	defer d.End()
	return envelope{
		kind:          envelopeKind(d.ReadUint(8)),
		canonicalName: d.ReadString(),
		callHandle:    d.ReadUint(64),
		payload:       d.ReadBytes(),
		unreachable:   d.ReadBool(),
	}
}

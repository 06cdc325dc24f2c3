// Package codec implements the typed <-> byte-buffer conversion used by
// every member's wire payload. A Serializer and Deserializer operate over
// a single buffer and expose matching structural tokens (struct, array,
// optional, union) so composite values are self-describing on the wire.
//
// Wire layout: little-endian, SizeType = uint32 for array lengths and
// union indices (spec.md "SizeType = uint32 on the wire" design note).
// BeginArray writes the uint32 element count, BeginOptional a one-byte
// presence flag and BeginUnion the uint32 arm index; BeginStruct and every
// End* token carry no bytes of their own — they exist purely to shape the
// Go API into the same nested-call
// discipline the peer's codec uses, so a Serializer/Deserializer pair can
// be driven by shared encode/decode functions written against the
// interface rather than against a concrete value type.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

// Serializer collects typed writes into an internal buffer.
type Serializer struct {
	mu  sync.Mutex
	buf []byte
}

// NewSerializer returns a Serializer with an empty internal buffer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Begin acquires the reentrancy lock for a fresh encode pass and resets the
// buffer. Must be paired with End.
func (s *Serializer) Begin() {
	s.mu.Lock()
	s.buf = s.buf[:0]
}

// End releases the lock and returns the encoded bytes. The returned slice
// is owned by the caller; subsequent Begin calls do not alias it.
func (s *Serializer) End() []byte {
	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	s.buf = nil
	s.mu.Unlock()
	return out
}

func (s *Serializer) write(b []byte) { s.buf = append(s.buf, b...) }

// BeginStruct/EndStruct bracket a composite value. They write no bytes;
// fields are simply written in order between the calls.
func (s *Serializer) BeginStruct() {}
func (s *Serializer) EndStruct()   {}

// BeginArray writes the element count (uint32) and opens the element list.
func (s *Serializer) BeginArray(n int) {
	s.WriteUint(uint64(n), 32)
}
func (s *Serializer) EndArray() {}

// BeginOptional writes the presence flag; caller writes the payload (if
// present) between Begin/EndOptional.
func (s *Serializer) BeginOptional(present bool) {
	var b byte
	if present {
		b = 1
	}
	s.write([]byte{b})
}
func (s *Serializer) EndOptional() {}

// BeginUnion writes the 1-based type index (uint32) selecting the active
// arm; caller writes that arm's payload between Begin/EndUnion.
func (s *Serializer) BeginUnion(typeIndex1Based int) {
	s.WriteUint(uint64(typeIndex1Based), 32)
}
func (s *Serializer) EndUnion() {}

// WriteInt writes a signed integer truncated/sign-extended to bits
// (8, 16, 32 or 64).
func (s *Serializer) WriteInt(v int64, bits int) {
	s.WriteUint(uint64(v), bits)
}

// WriteUint writes an unsigned integer using the low `bits` bits, caller
// chooses the bit width to match the peer's field width (sub-byte packing
// compatible encodings are the caller's responsibility above the byte
// granularity this implementation supports).
func (s *Serializer) WriteUint(v uint64, bits int) {
	switch bits {
	case 8:
		s.write([]byte{byte(v)})
	case 16:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		s.write(b[:])
	case 32:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v))
		s.write(b[:])
	case 64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		s.write(b[:])
	default:
		panic(fmt.Sprintf("codec: unsupported integer width %d", bits))
	}
}

// WriteBool writes a single byte, 0 or 1.
func (s *Serializer) WriteBool(v bool) {
	var b byte
	if v {
		b = 1
	}
	s.write([]byte{b})
}

// WriteFloat32 writes an IEEE-754 32-bit float.
func (s *Serializer) WriteFloat32(v float32) {
	s.WriteUint(uint64(math.Float32bits(v)), 32)
}

// WriteFloat64 writes an IEEE-754 64-bit float.
func (s *Serializer) WriteFloat64(v float64) {
	s.WriteUint(math.Float64bits(v), 64)
}

// WriteString writes a uint32 byte length followed by the UTF-8 bytes.
func (s *Serializer) WriteString(v string) {
	s.WriteUint(uint64(len(v)), 32)
	s.write([]byte(v))
}

// WriteBytes writes a uint32 byte length followed by the opaque bytes.
func (s *Serializer) WriteBytes(v []byte) {
	s.WriteUint(uint64(len(v)), 32)
	s.write(v)
}

// Deserializer consumes a buffer passed in on Begin.
type Deserializer struct {
	mu  sync.Mutex
	buf []byte
	pos int
}

// NewDeserializer returns an empty Deserializer; call Begin before reading.
func NewDeserializer() *Deserializer {
	return &Deserializer{}
}

// Begin acquires the reentrancy lock and installs buf as the read source.
func (d *Deserializer) Begin(buf []byte) {
	d.mu.Lock()
	d.buf = buf
	d.pos = 0
}

// End releases the lock. Any bytes not consumed are silently discarded —
// callers that need strict framing should track expected vs. consumed
// length themselves.
func (d *Deserializer) End() {
	d.buf = nil
	d.pos = 0
	d.mu.Unlock()
}

func (d *Deserializer) read(n int) []byte {
	if d.pos+n > len(d.buf) {
		panic(fmt.Sprintf("codec: short buffer: need %d bytes at offset %d, have %d", n, d.pos, len(d.buf)))
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b
}

func (d *Deserializer) BeginStruct() {}
func (d *Deserializer) EndStruct()   {}

// BeginArray reads and returns the decoded element count.
func (d *Deserializer) BeginArray() int {
	return int(d.ReadUint(32))
}
func (d *Deserializer) EndArray() {}

// BeginOptional reads and returns the presence flag.
func (d *Deserializer) BeginOptional() bool {
	return d.read(1)[0] != 0
}
func (d *Deserializer) EndOptional() {}

// BeginUnion reads and returns the 1-based active arm index.
func (d *Deserializer) BeginUnion() int {
	return int(d.ReadUint(32))
}
func (d *Deserializer) EndUnion() {}

// ReadInt reads a signed integer of the given bit width, sign-extended.
func (d *Deserializer) ReadInt(bits int) int64 {
	u := d.ReadUint(bits)
	switch bits {
	case 8:
		return int64(int8(u))
	case 16:
		return int64(int16(u))
	case 32:
		return int64(int32(u))
	default:
		return int64(u)
	}
}

// ReadUint reads an unsigned integer of the given bit width.
func (d *Deserializer) ReadUint(bits int) uint64 {
	switch bits {
	case 8:
		return uint64(d.read(1)[0])
	case 16:
		return uint64(binary.LittleEndian.Uint16(d.read(2)))
	case 32:
		return uint64(binary.LittleEndian.Uint32(d.read(4)))
	case 64:
		return binary.LittleEndian.Uint64(d.read(8))
	default:
		panic(fmt.Sprintf("codec: unsupported integer width %d", bits))
	}
}

// ReadBool reads a single byte, nonzero meaning true.
func (d *Deserializer) ReadBool() bool {
	return d.read(1)[0] != 0
}

// ReadFloat32 reads an IEEE-754 32-bit float.
func (d *Deserializer) ReadFloat32() float32 {
	return math.Float32frombits(uint32(d.ReadUint(32)))
}

// ReadFloat64 reads an IEEE-754 64-bit float.
func (d *Deserializer) ReadFloat64() float64 {
	return math.Float64frombits(d.ReadUint(64))
}

// ReadString reads a uint32 byte length followed by UTF-8 bytes.
func (d *Deserializer) ReadString() string {
	n := int(d.ReadUint(32))
	return string(d.read(n))
}

// ReadBytes reads a uint32 byte length followed by opaque bytes, copied
// out so the result doesn't alias the source buffer.
func (d *Deserializer) ReadBytes() []byte {
	n := int(d.ReadUint(32))
	out := make([]byte, n)
	copy(out, d.read(n))
	return out
}

package codec_test

import (
	"bytes"
	"testing"

	"github.com/distcla/cla/internal/codec"
)

func TestScalarRoundTrip(t *testing.T) {
	s := codec.NewSerializer()
	s.Begin()
	s.WriteInt(-42, 32)
	s.WriteUint(7, 8)
	s.WriteBool(true)
	s.WriteFloat32(3.5)
	s.WriteFloat64(2.718281828)
	s.WriteString("hello")
	s.WriteBytes([]byte{1, 2, 3})
	buf := s.End()

	d := codec.NewDeserializer()
	d.Begin(buf)
	defer d.End()

	if got := d.ReadInt(32); got != -42 {
		t.Errorf("ReadInt = %d, want -42", got)
	}
	if got := d.ReadUint(8); got != 7 {
		t.Errorf("ReadUint = %d, want 7", got)
	}
	if got := d.ReadBool(); got != true {
		t.Errorf("ReadBool = %v, want true", got)
	}
	if got := d.ReadFloat32(); got != 3.5 {
		t.Errorf("ReadFloat32 = %v, want 3.5", got)
	}
	if got := d.ReadFloat64(); got != 2.718281828 {
		t.Errorf("ReadFloat64 = %v, want 2.718281828", got)
	}
	if got := d.ReadString(); got != "hello" {
		t.Errorf("ReadString = %q, want %q", got, "hello")
	}
	if got := d.ReadBytes(); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("ReadBytes = %v, want [1 2 3]", got)
	}
}

func TestInt32Literal(t *testing.T) {
	// spec.md S1: payload 0x01 0x00 0x00 0x00 decodes to int32 1.
	s := codec.NewSerializer()
	s.Begin()
	s.WriteInt(1, 32)
	buf := s.End()
	if !bytes.Equal(buf, []byte{0x01, 0x00, 0x00, 0x00}) {
		t.Fatalf("encoded int32(1) = % x, want 01 00 00 00", buf)
	}

	d := codec.NewDeserializer()
	d.Begin(buf)
	defer d.End()
	if got := d.ReadInt(32); got != 1 {
		t.Errorf("decoded = %d, want 1", got)
	}
}

func TestArrayRoundTrip(t *testing.T) {
	values := []int64{10, 20, 30}

	s := codec.NewSerializer()
	s.Begin()
	s.BeginArray(len(values))
	for _, v := range values {
		s.WriteInt(v, 32)
	}
	s.EndArray()
	buf := s.End()

	d := codec.NewDeserializer()
	d.Begin(buf)
	defer d.End()
	n := d.BeginArray()
	if n != len(values) {
		t.Fatalf("BeginArray = %d, want %d", n, len(values))
	}
	for i := 0; i < n; i++ {
		if got := d.ReadInt(32); got != values[i] {
			t.Errorf("element %d = %d, want %d", i, got, values[i])
		}
	}
	d.EndArray()
}

func TestOptionalRoundTrip(t *testing.T) {
	for _, present := range []bool{true, false} {
		s := codec.NewSerializer()
		s.Begin()
		s.BeginOptional(present)
		if present {
			s.WriteInt(99, 32)
		}
		s.EndOptional()
		buf := s.End()

		d := codec.NewDeserializer()
		d.Begin(buf)
		got := d.BeginOptional()
		if got != present {
			t.Fatalf("BeginOptional = %v, want %v", got, present)
		}
		if present {
			if v := d.ReadInt(32); v != 99 {
				t.Errorf("value = %d, want 99", v)
			}
		}
		d.EndOptional()
		d.End()
	}
}

func TestUnionRoundTrip(t *testing.T) {
	s := codec.NewSerializer()
	s.Begin()
	s.BeginUnion(2)
	s.WriteString("arm2")
	s.EndUnion()
	buf := s.End()

	d := codec.NewDeserializer()
	d.Begin(buf)
	defer d.End()
	if idx := d.BeginUnion(); idx != 2 {
		t.Fatalf("BeginUnion = %d, want 2", idx)
	}
	if v := d.ReadString(); v != "arm2" {
		t.Errorf("arm payload = %q, want %q", v, "arm2")
	}
	d.EndUnion()
}

func TestStructRoundTrip(t *testing.T) {
	s := codec.NewSerializer()
	s.Begin()
	s.BeginStruct()
	s.WriteString("name")
	s.WriteInt(5, 16)
	s.EndStruct()
	buf := s.End()

	d := codec.NewDeserializer()
	d.Begin(buf)
	defer d.End()
	d.BeginStruct()
	if v := d.ReadString(); v != "name" {
		t.Errorf("name = %q", v)
	}
	if v := d.ReadInt(16); v != 5 {
		t.Errorf("value = %d", v)
	}
	d.EndStruct()
}

func TestSerializerReusable(t *testing.T) {
	s := codec.NewSerializer()
	s.Begin()
	s.WriteInt(1, 8)
	a := s.End()

	s.Begin()
	s.WriteInt(2, 8)
	b := s.End()

	if a[0] != 1 || b[0] != 2 {
		t.Fatalf("got a=%v b=%v, want independent buffers", a, b)
	}
}

// Copyright (c) 2018, Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tpmutil

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type simplePacked struct {
	A uint32
	B uint16
}

func (s *simplePacked) TPMMarshal(out *Buffer) error {
	return PackBuf(out, s.A, s.B)
}

func (s *simplePacked) TPMUnmarshal(in *Buffer) error {
	return UnpackBuf(in, &s.A, &s.B)
}

type nestedPacked struct {
	SP simplePacked
	C  uint8
	D  U16Bytes
}

func (n *nestedPacked) TPMMarshal(out *Buffer) error {
	return PackBuf(out, &n.SP, n.C, &n.D)
}

func (n *nestedPacked) TPMUnmarshal(in *Buffer) error {
	return UnpackBuf(in, &n.SP, &n.C, &n.D)
}

func TestEncodingPackPrimitives(t *testing.T) {
	tests := []struct {
		in   interface{}
		want []byte
	}{
		{uint8(0xab), []byte{0xab}},
		{uint16(0x0102), []byte{0x01, 0x02}},
		{uint32(0x01020304), []byte{0x01, 0x02, 0x03, 0x04}},
		{uint64(0x0102030405060708), []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{true, []byte{0x01}},
		{false, []byte{0x00}},
		{Handle(0x40000001), []byte{0x40, 0x00, 0x00, 0x01}},
		{Tag(0x8001), []byte{0x80, 0x01}},
		{RawBytes{1, 2, 3}, []byte{1, 2, 3}},
		{U16Bytes{1, 2, 3}, []byte{0, 3, 1, 2, 3}},
		{U32Bytes{9}, []byte{0, 0, 0, 1, 9}},
		{simplePacked{137, 138}, []byte{0, 0, 0, 137, 0, 138}},
		{&simplePacked{1, 2}, []byte{0, 0, 0, 1, 0, 2}},
	}
	for _, tt := range tests {
		got, err := Pack(tt.in)
		if err != nil {
			t.Errorf("Pack(%#v) failed: %v", tt.in, err)
			continue
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("Pack(%#v) = %x, want %x", tt.in, got, tt.want)
		}
	}
}

func TestEncodingPackInvalid(t *testing.T) {
	var nilPacked *simplePacked
	tests := []interface{}{
		[]byte{1, 2, 3},
		[]int{1},
		int32(-1),
		"string",
		struct{ A uint32 }{1},
		nilPacked,
		nil,
	}
	for _, in := range tests {
		if _, err := Pack(in); !errors.Is(err, ErrInputParameter) {
			t.Errorf("Pack(%#v) = %v, want ErrInputParameter", in, err)
		}
	}
}

func TestEncodingRoundTrip(t *testing.T) {
	for _, v := range []uint8{0, 1, 0x7f, 0x80, math.MaxUint8} {
		var got uint8
		roundTrip(t, v, &got)
		if got != v {
			t.Errorf("uint8 round trip: got %v, want %v", got, v)
		}
	}
	for _, v := range []uint16{0, 1, 0x00ff, 0xff00, math.MaxUint16} {
		var got uint16
		roundTrip(t, v, &got)
		if got != v {
			t.Errorf("uint16 round trip: got %v, want %v", got, v)
		}
	}
	for _, v := range []uint32{0, 1, 0xdeadbeef, math.MaxUint32} {
		var got uint32
		roundTrip(t, v, &got)
		if got != v {
			t.Errorf("uint32 round trip: got %v, want %v", got, v)
		}
	}
	for _, v := range []uint64{0, 1, 0x0123456789abcdef, math.MaxUint64} {
		var got uint64
		roundTrip(t, v, &got)
		if got != v {
			t.Errorf("uint64 round trip: got %v, want %v", got, v)
		}
	}

	in := nestedPacked{SP: simplePacked{A: 0xcafe, B: 7}, C: 3, D: U16Bytes("payload")}
	var out nestedPacked
	roundTrip(t, &in, &out)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("nested round trip mismatch (-want +got):\n%s", diff)
	}
}

func roundTrip(t *testing.T, in, out interface{}) {
	t.Helper()
	b, err := Pack(in)
	if err != nil {
		t.Fatalf("Pack(%#v) failed: %v", in, err)
	}
	n, err := Unpack(b, out)
	if err != nil {
		t.Fatalf("Unpack(%x) failed: %v", b, err)
	}
	if n != len(b) {
		t.Errorf("Unpack consumed %d bytes, want %d", n, len(b))
	}
}

func TestEncodingUnpackShort(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		out  interface{}
	}{
		{"uint16 from one byte", []byte{0x01}, new(uint16)},
		{"uint32 from three bytes", []byte{0x01, 0x02, 0x03}, new(uint32)},
		{"uint64 from empty", nil, new(uint64)},
		{"U16Bytes length beyond data", []byte{0x00, 0x05, 0x01}, new(U16Bytes)},
		{"U32Bytes length beyond data", []byte{0xff, 0xff, 0xff, 0xff, 0x01}, new(U32Bytes)},
		{"struct missing last field", []byte{0, 0, 0, 1, 0}, new(simplePacked)},
		{"raw bytes", []byte{1}, &RawBytes{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unpack(tt.in, tt.out)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("Unpack() = %v, want ErrDecode", err)
			}
			if !errors.Is(err, ErrShortBuffer) {
				t.Errorf("Unpack() = %v, want ErrShortBuffer", err)
			}
		})
	}
}

func TestEncodingUnpackInvalidTarget(t *testing.T) {
	var u uint32
	tests := []interface{}{u, nil, (*uint32)(nil), new(int32), new(string)}
	for _, out := range tests {
		if _, err := Unpack([]byte{0, 0, 0, 0}, out); !errors.Is(err, ErrInputParameter) {
			t.Errorf("Unpack(%#v) = %v, want ErrInputParameter", out, err)
		}
	}
}

func TestEncodingUnpackBool(t *testing.T) {
	var b bool
	if _, err := Unpack([]byte{0x02}, &b); !errors.Is(err, ErrDecode) {
		t.Errorf("Unpack(0x02) into bool = %v, want ErrDecode", err)
	}
	if _, err := Unpack([]byte{0x01}, &b); err != nil || !b {
		t.Errorf("Unpack(0x01) into bool = %v, %v; want true, nil", b, err)
	}
}

func TestEncodingUnpackOrder(t *testing.T) {
	var a uint8
	var b uint16
	var c uint32
	n, err := Unpack([]byte{1, 0, 2, 0, 0, 0, 3, 0xff}, &a, &b, &c)
	if err != nil {
		t.Fatal(err)
	}
	if a != 1 || b != 2 || c != 3 {
		t.Errorf("Unpack = %d, %d, %d; want 1, 2, 3", a, b, c)
	}
	if n != 7 {
		t.Errorf("Unpack consumed %d bytes, want 7", n)
	}
}

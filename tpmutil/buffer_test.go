// Copyright (c) 2018, Google LLC All rights reserved.
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
	"testing"
)

func TestBufferWriteRead(t *testing.T) {
	var b Buffer
	b.WriteUint8(0x01)
	b.WriteUint16(0x0203)
	b.WriteUint32(0x04050607)
	b.WriteUint64(0x08090a0b0c0d0e0f)
	b.Write([]byte{0x10})

	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	if !bytes.Equal(b.Bytes(), want) {
		t.Fatalf("Bytes() = %x, want %x", b.Bytes(), want)
	}

	if v, err := b.ReadUint8(); err != nil || v != 0x01 {
		t.Errorf("ReadUint8() = %x, %v", v, err)
	}
	if v, err := b.ReadUint16(); err != nil || v != 0x0203 {
		t.Errorf("ReadUint16() = %x, %v", v, err)
	}
	if v, err := b.ReadUint32(); err != nil || v != 0x04050607 {
		t.Errorf("ReadUint32() = %x, %v", v, err)
	}
	if v, err := b.ReadUint64(); err != nil || v != 0x08090a0b0c0d0e0f {
		t.Errorf("ReadUint64() = %x, %v", v, err)
	}
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}
	if b.Written() != len(want) {
		t.Errorf("Written() = %d, want %d", b.Written(), len(want))
	}
}

func TestBufferShortReadLeavesCursor(t *testing.T) {
	b := NewBuffer([]byte{0xaa})
	if _, err := b.ReadUint16(); !errors.Is(err, ErrDecode) {
		t.Fatalf("ReadUint16() on 1 byte = %v, want ErrDecode", err)
	}
	if b.Len() != 1 {
		t.Errorf("failed read moved the cursor: Len() = %d, want 1", b.Len())
	}
	if v, err := b.ReadUint8(); err != nil || v != 0xaa {
		t.Errorf("ReadUint8() after failed read = %x, %v", v, err)
	}
	if _, err := b.ReadUint8(); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("ReadUint8() on empty buffer = %v, want ErrShortBuffer", err)
	}
	if _, err := b.Next(-1); !errors.Is(err, ErrDecode) {
		t.Errorf("Next(-1) = %v, want ErrDecode", err)
	}
}

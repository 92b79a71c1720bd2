// Copyright (c) 2026, Google LLC All rights reserved.
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

import "encoding/binary"

// Buffer is the byte container every TPM message is encoded into and decoded
// from. Writes append at the end; reads consume from the front and advance a
// cursor that never moves backwards. The zero value is an empty buffer ready
// to use.
//
// A Buffer is scoped to a single command build or response parse and must not
// be shared between goroutines.
type Buffer struct {
	data []byte
	off  int
}

// NewBuffer returns a Buffer whose unread portion is b. The Buffer takes
// ownership of b.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{data: b}
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	return len(b.data) - b.off
}

// Bytes returns the unread portion of the buffer. The slice aliases the
// buffer contents and is only valid until the next write.
func (b *Buffer) Bytes() []byte {
	return b.data[b.off:]
}

// Written returns the total number of bytes ever written to or loaded into
// the buffer, regardless of how many have been read.
func (b *Buffer) Written() int {
	return len(b.data)
}

// Write appends p to the buffer. It never fails; the error is always nil and
// exists so that Buffer satisfies io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// WriteUint8 appends v.
func (b *Buffer) WriteUint8(v uint8) {
	b.data = append(b.data, v)
}

// WriteUint16 appends v in big-endian order.
func (b *Buffer) WriteUint16(v uint16) {
	b.data = binary.BigEndian.AppendUint16(b.data, v)
}

// WriteUint32 appends v in big-endian order.
func (b *Buffer) WriteUint32(v uint32) {
	b.data = binary.BigEndian.AppendUint32(b.data, v)
}

// WriteUint64 appends v in big-endian order.
func (b *Buffer) WriteUint64(v uint64) {
	b.data = binary.BigEndian.AppendUint64(b.data, v)
}

// Next consumes and returns the next n bytes. If fewer than n bytes remain,
// nothing is consumed and an error matching ErrDecode and ErrShortBuffer is
// returned. The returned slice aliases the buffer.
func (b *Buffer) Next(n int) ([]byte, error) {
	if n < 0 || n > b.Len() {
		return nil, &shortBufferError{want: n, have: b.Len()}
	}
	p := b.data[b.off : b.off+n]
	b.off += n
	return p, nil
}

// Read consumes len(p) bytes into p. Unlike io.Reader, a short buffer is an
// error and leaves both p and the cursor untouched.
func (b *Buffer) Read(p []byte) (int, error) {
	src, err := b.Next(len(p))
	if err != nil {
		return 0, err
	}
	return copy(p, src), nil
}

// ReadUint8 consumes one byte.
func (b *Buffer) ReadUint8() (uint8, error) {
	p, err := b.Next(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// ReadUint16 consumes a big-endian uint16.
func (b *Buffer) ReadUint16() (uint16, error) {
	p, err := b.Next(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(p), nil
}

// ReadUint32 consumes a big-endian uint32.
func (b *Buffer) ReadUint32() (uint32, error) {
	p, err := b.Next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(p), nil
}

// ReadUint64 consumes a big-endian uint64.
func (b *Buffer) ReadUint64() (uint64, error) {
	p, err := b.Next(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(p), nil
}

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
	"fmt"
	"math"
)

// MaxListLength bounds the element count accepted by UnmarshalList.
// Chosen based on MAX_DIGEST_BUFFER, the length of the longest reasonable
// list returned by the reference implementation.
const MaxListLength = 1024

// SelfMarshaler is implemented by every composite TPM type. TPMUnmarshal must
// consume fields in exactly the order TPMMarshal writes them.
type SelfMarshaler interface {
	TPMMarshal(out *Buffer) error
	TPMUnmarshal(in *Buffer) error
}

// RawBytes is for Pack and RunCommand arguments that are already encoded.
// Compared to U16Bytes, RawBytes will not be prepended with its length
// during encoding. Unpacking into RawBytes fills exactly len(b) bytes.
type RawBytes []byte

// TPMMarshal packs RawBytes verbatim.
func (b RawBytes) TPMMarshal(out *Buffer) error {
	out.Write(b)
	return nil
}

// TPMUnmarshal reads len(*b) bytes.
func (b *RawBytes) TPMUnmarshal(in *Buffer) error {
	_, err := in.Read(*b)
	return err
}

// U16Bytes is a byte slice with a 16-bit header (the TPM2B_ shape).
type U16Bytes []byte

// TPMMarshal packs U16Bytes
func (b *U16Bytes) TPMMarshal(out *Buffer) error {
	if len(*b) > math.MaxUint16 {
		return fmt.Errorf("%w: %d bytes do not fit a 16-bit size field", ErrInputParameter, len(*b))
	}
	out.WriteUint16(uint16(len(*b)))
	out.Write(*b)
	return nil
}

// TPMUnmarshal unpacks a U16Bytes
func (b *U16Bytes) TPMUnmarshal(in *Buffer) error {
	size, err := in.ReadUint16()
	if err != nil {
		return err
	}
	data, err := in.Next(int(size))
	if err != nil {
		return err
	}
	*b = append((*b)[:0], data...)
	return nil
}

// U32Bytes is a byte slice with a 32-bit header
type U32Bytes []byte

// TPMMarshal packs U32Bytes
func (b *U32Bytes) TPMMarshal(out *Buffer) error {
	if uint64(len(*b)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes do not fit a 32-bit size field", ErrInputParameter, len(*b))
	}
	out.WriteUint32(uint32(len(*b)))
	out.Write(*b)
	return nil
}

// TPMUnmarshal unpacks a U32Bytes
func (b *U32Bytes) TPMUnmarshal(in *Buffer) error {
	size, err := in.ReadUint32()
	if err != nil {
		return err
	}
	if uint64(size) > uint64(in.Len()) {
		return &shortBufferError{want: int(size), have: in.Len()}
	}
	data, err := in.Next(int(size))
	if err != nil {
		return err
	}
	*b = append((*b)[:0], data...)
	return nil
}

// MarshalList writes the counted-list shape: a uint32 element count followed
// by each element in order.
func MarshalList[T any, P interface {
	*T
	SelfMarshaler
}](out *Buffer, items []T) error {
	if uint64(len(items)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d elements do not fit a 32-bit count", ErrInputParameter, len(items))
	}
	out.WriteUint32(uint32(len(items)))
	for i := range items {
		if err := P(&items[i]).TPMMarshal(out); err != nil {
			return fmt.Errorf("marshalling element %d: %w", i, err)
		}
	}
	return nil
}

// UnmarshalList reads a list written by MarshalList. A count larger than
// limit, or larger than the number of bytes left in the buffer (every element
// encodes to at least one byte), is rejected before anything is allocated.
func UnmarshalList[T any, P interface {
	*T
	SelfMarshaler
}](in *Buffer, limit int) ([]T, error) {
	count, err := in.ReadUint32()
	if err != nil {
		return nil, err
	}
	if uint64(count) > uint64(limit) {
		return nil, fmt.Errorf("%w: list of %d elements exceeds limit of %d", ErrDecode, count, limit)
	}
	if int(count) > in.Len() {
		return nil, &shortBufferError{want: int(count), have: in.Len()}
	}
	items := make([]T, count)
	for i := range items {
		if err := P(&items[i]).TPMUnmarshal(in); err != nil {
			return nil, fmt.Errorf("unmarshalling element %d: %w", i, err)
		}
	}
	return items, nil
}

// Tag is a command tag.
type Tag uint16

// Command is an identifier of a TPM command.
type Command uint32

// A commandHeader is the header for a TPM command.
type commandHeader struct {
	Tag  Tag
	Size uint32
	Cmd  Command
}

// commandHeaderSize is the encoded size of a commandHeader.
const commandHeaderSize = 10

// TPMMarshal implements SelfMarshaler.
func (h *commandHeader) TPMMarshal(out *Buffer) error {
	return PackBuf(out, h.Tag, h.Size, h.Cmd)
}

// TPMUnmarshal implements SelfMarshaler.
func (h *commandHeader) TPMUnmarshal(in *Buffer) error {
	return UnpackBuf(in, &h.Tag, &h.Size, &h.Cmd)
}

// ResponseCode is a response code returned by TPM.
type ResponseCode uint32

// RCSuccess is response code for successful command. Identical for TPM 1.2 and
// 2.0.
const RCSuccess ResponseCode = 0x000

// A responseHeader is a header for TPM responses.
type responseHeader struct {
	Tag  Tag
	Size uint32
	Res  ResponseCode
}

// responseHeaderSize is the encoded size of a responseHeader.
const responseHeaderSize = 10

// TPMMarshal implements SelfMarshaler.
func (h *responseHeader) TPMMarshal(out *Buffer) error {
	return PackBuf(out, h.Tag, h.Size, h.Res)
}

// TPMUnmarshal implements SelfMarshaler.
func (h *responseHeader) TPMUnmarshal(in *Buffer) error {
	return UnpackBuf(in, &h.Tag, &h.Size, &h.Res)
}

// A Handle is a reference to a TPM object.
type Handle uint32

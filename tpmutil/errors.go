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

import (
	"errors"
	"fmt"
)

// Error kinds returned by this module. Every error produced by the codec, the
// framing pipeline or the commands built on top of them matches exactly one
// of these with errors.Is.
var (
	// ErrDecode indicates that a value could not be decoded: the buffer ran
	// out of bytes, or a closed enumeration carried an unknown code.
	ErrDecode = errors.New("decode error")
	// ErrInputParameter indicates a caller-supplied value that violates a
	// precondition checked before any I/O is performed.
	ErrInputParameter = errors.New("invalid input parameter")
	// ErrStructuralFormat indicates a well-formed response that violates a
	// protocol invariant, such as fewer digests than selected registers.
	ErrStructuralFormat = errors.New("malformed TPM response")
	// ErrCommand indicates that the TPM returned a non-success response code.
	ErrCommand = errors.New("TPM command failed")
	// ErrTransport indicates that the exchange with the device failed.
	ErrTransport = errors.New("TPM transport error")
)

// ErrShortBuffer is returned (wrapped in ErrDecode) when a read asks for
// more bytes than remain in a Buffer.
var ErrShortBuffer = errors.New("not enough bytes in buffer")

// shortBufferError reports an attempt to read want bytes with only have left.
type shortBufferError struct {
	want, have int
}

func (e *shortBufferError) Error() string {
	return fmt.Sprintf("%v: need %d bytes, %d remaining", ErrDecode, e.want, e.have)
}

func (e *shortBufferError) Is(target error) bool {
	return target == ErrDecode || target == ErrShortBuffer
}

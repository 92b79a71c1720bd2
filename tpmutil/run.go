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

// Package tpmutil provides the wire-level building blocks shared by TPM 2.0
// commands: a byte buffer, a big-endian codec for fixed-width integers and
// composite types, the sized-buffer and counted-list shapes, and the
// command/response framing that drives a single exchange with a TPM.
package tpmutil

import "fmt"

// Transport is a logical connection to a TPM. Send transmits one complete
// command and blocks until the complete response has been received. An
// implementation is used by one exchange at a time unless it documents its
// own serialization.
type Transport interface {
	Send(cmd []byte) ([]byte, error)
}

// RunCommand executes cmd with given tag and arguments. Returns TPM response
// body (without response header) and response code from the header. Returned
// error may be nil if response code is not RCSuccess, caller should check
// both; in that case the body is always nil and is never inspected.
//
// All arguments are packed before anything is sent: a packing error means the
// TPM was never contacted. Exactly one Send is performed otherwise.
func RunCommand(t Transport, tag Tag, cmd Command, in ...interface{}) ([]byte, ResponseCode, error) {
	if t == nil {
		return nil, 0, fmt.Errorf("%w: nil TPM transport", ErrInputParameter)
	}

	inb, err := packWithHeader(commandHeader{tag, 0, cmd}, in...)
	if err != nil {
		return nil, 0, err
	}

	outb, err := t.Send(inb)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	buf := NewBuffer(outb)
	var rh responseHeader
	if err := rh.TPMUnmarshal(buf); err != nil {
		return nil, 0, fmt.Errorf("unpacking response header: %w", err)
	}
	// The body of an error response is never parsed, so its size is not
	// checked either.
	if rh.Res != RCSuccess {
		return nil, rh.Res, nil
	}
	if int64(rh.Size) != int64(len(outb)) {
		return nil, rh.Res, fmt.Errorf("%w: responseSize is %d but %d bytes were received", ErrStructuralFormat, rh.Size, len(outb))
	}

	return buf.Bytes(), rh.Res, nil
}

// packWithHeader takes a header and a sequence of elements and packs them
// into a single byte array. It updates the header to have the right length,
// which is only known once the body has been encoded.
func packWithHeader(ch commandHeader, cmd ...interface{}) ([]byte, error) {
	body, err := Pack(cmd...)
	if err != nil {
		return nil, fmt.Errorf("couldn't pack message body: %w", err)
	}
	ch.Size = uint32(commandHeaderSize + len(body))
	out := &Buffer{data: make([]byte, 0, int(ch.Size))}
	if err := ch.TPMMarshal(out); err != nil {
		return nil, fmt.Errorf("couldn't pack message header: %w", err)
	}
	out.Write(body)
	return out.Bytes(), nil
}

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
	"fmt"
	"io"
	"os"
)

// maxTPMResponse is the size of the read buffer used by FromReadWriter.
const maxTPMResponse = 4096

// FromReadWriter adapts a command/response oriented io.ReadWriter, such as an
// open /dev/tpmrm0 or a simulator connection, into a Transport. Every Send
// writes the full command and then performs a single Read for the response.
func FromReadWriter(rw io.ReadWriter) Transport {
	return &rwTransport{rw: rw}
}

type rwTransport struct {
	rw io.ReadWriter
}

// Send implements the Transport interface.
func (t *rwTransport) Send(cmd []byte) ([]byte, error) {
	return RunCommandRaw(t.rw, cmd)
}

// RunCommandRaw sends the already framed command inb and returns the raw
// response, header included.
func RunCommandRaw(rw io.ReadWriter, inb []byte) ([]byte, error) {
	if rw == nil {
		return nil, fmt.Errorf("%w: nil TPM handle", ErrInputParameter)
	}
	if _, err := rw.Write(inb); err != nil {
		return nil, err
	}

	// A character device may not have the response ready right after the
	// write returns. Wait until the descriptor is readable.
	if f, ok := rw.(*os.File); ok {
		if err := poll(f); err != nil {
			return nil, err
		}
	}

	outb := make([]byte, maxTPMResponse)
	outlen, err := rw.Read(outb)
	if err != nil {
		return nil, err
	}
	// Resize the buffer to match the amount read from the TPM.
	return outb[:outlen], nil
}

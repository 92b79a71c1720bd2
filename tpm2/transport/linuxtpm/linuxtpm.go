// Copyright (c) 2022, Google LLC All rights reserved.
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

//go:build !windows

// Package linuxtpm opens TPMs exposed through the filesystem: character
// devices such as /dev/tpmrm0, and Unix domain sockets served by emulators.
package linuxtpm

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/go-tpm-wire/tpm2/transport"
	"github.com/google/go-tpm-wire/tpmutil"
)

// ErrUnsupportedFile indicates that the TPM path is neither a device nor a
// socket.
var ErrUnsupportedFile = errors.New("TPM path is neither a device nor a socket")

// Open opens the TPM at path. Errors match tpmutil.ErrTransport.
func Open(path string) (transport.TPMCloser, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tpmutil.ErrTransport, err)
	}

	switch mode := fi.Mode(); {
	case mode&os.ModeDevice != 0:
		f, err := os.OpenFile(path, os.O_RDWR, 0600)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", tpmutil.ErrTransport, err)
		}
		return transport.FromReadWriteCloser(f), nil
	case mode&os.ModeSocket != 0:
		return transport.FromReadWriteCloser(newSocketConn(path)), nil
	default:
		return nil, fmt.Errorf("%w: %w: %s (%s)", tpmutil.ErrTransport, ErrUnsupportedFile, mode, path)
	}
}

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

// Package transport opens connections to TPM devices for use with tpm2.
package transport

import (
	"io"

	"github.com/google/go-tpm-wire/tpmutil"
)

// TPMCloser is a tpmutil.Transport that must be closed when no longer needed.
type TPMCloser interface {
	tpmutil.Transport
	io.Closer
}

type wrappedRWC struct {
	tpmutil.Transport
	io.Closer
}

// FromReadWriteCloser wraps a command/response oriented stream, such as a
// TPM character device, into a TPMCloser. Closing the result closes rwc.
func FromReadWriteCloser(rwc io.ReadWriteCloser) TPMCloser {
	return &wrappedRWC{
		Transport: tpmutil.FromReadWriter(rwc),
		Closer:    rwc,
	}
}

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

// Package simulator provides access to a local simulator for TPM testing.
package simulator

import (
	"github.com/google/go-tpm-tools/simulator"
	"github.com/google/go-tpm-wire/tpm2/transport"
)

// OpenSimulator starts a fresh, manufactured and started-up reference TPM
// simulator. Only one simulator can be open at a time.
func OpenSimulator() (transport.TPMCloser, error) {
	sim, err := simulator.Get()
	if err != nil {
		return nil, err
	}
	return transport.FromReadWriteCloser(sim), nil
}

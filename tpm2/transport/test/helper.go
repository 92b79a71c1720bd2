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

// Package testhelper provides some helper code for TPM transport tests.
package testhelper

import (
	"errors"
	"testing"

	"github.com/google/go-tpm-wire/tpm2"
	"github.com/google/go-tpm-wire/tpm2/transport"
)

// RunTest checks that the connection to the given TPM seems to be working.
// Errors matching one of skipErrs, from opening or from the first command,
// skip the test.
func RunTest(t *testing.T, skipErrs []error, tpmOpener func() (transport.TPMCloser, error)) {
	t.Helper()
	skipIf := func(err error) {
		for _, skipErr := range skipErrs {
			if errors.Is(err, skipErr) {
				t.Skipf("%v", err)
			}
		}
	}

	tpm, err := tpmOpener()
	skipIf(err)
	if err != nil {
		t.Fatalf("Failed to open TPM: %v", err)
	}
	defer func() {
		if err := tpm.Close(); err != nil {
			t.Fatalf("tpm.Close() = %v", err)
		}
	}()

	// Every TPM implements the SHA-256 bank, and PCR 0 is always readable.
	counter, vals, err := tpm2.PCRRead(tpm, tpm2.PCRSelection{Hash: tpm2.AlgSHA256, PCRs: []int{0}})
	skipIf(err)
	if err != nil {
		t.Fatalf("PCRRead() = %v", err)
	}
	digest, ok := vals.Get(tpm2.AlgSHA256, 0)
	if !ok {
		t.Fatal("PCRRead() returned no value for PCR 0")
	}
	t.Logf("PCR update counter %d, PCR 0: %x", counter, digest)
}

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


package tpm2_test

import (
	"errors"
	"testing"

	. "github.com/google/go-tpm-wire/tpm2"
	"github.com/google/go-tpm-wire/tpm2/transport/simulator"
	"github.com/google/go-tpm-wire/tpmutil"
)

// FuzzReadPCRs reads arbitrary selections from the simulator. Valid
// selections must come back complete; invalid ones must be refused before
// reaching the TPM.
func FuzzReadPCRs(f *testing.F) {
	// Set up a simulated TPM transport
	thetpm, err := simulator.OpenSimulator()
	if err != nil {
		f.Fatalf("could not connect to TPM simulator: %v", err)
	}
	defer thetpm.Close() // Close the simulator after the test

	f.Add(uint16(AlgSHA256), uint32(0x3ff))
	f.Add(uint16(AlgSHA1), uint32(0xffffff))
	f.Add(uint16(AlgRSA), uint32(1))

	f.Fuzz(func(t *testing.T, alg uint16, mask uint32) {
		var pcrs []int
		for i := 0; i < 32; i++ {
			if mask&(1<<i) != 0 {
				pcrs = append(pcrs, i)
			}
		}
		sel := PCRSelection{Hash: Algorithm(alg), PCRs: pcrs}
		vals, err := ReadPCRs(thetpm, sel)

		valid := Algorithm(alg).IsHash() && mask < 1<<(MaxPCRIndex+1)
		if !valid {
			if !errors.Is(err, tpmutil.ErrInputParameter) {
				t.Fatalf("ReadPCRs(%+v) = %v, want ErrInputParameter", sel, err)
			}
			return
		}
		if err != nil {
			// The simulator may not implement every hash bank.
			t.Skip("ReadPCRs resulted in error:", err)
		}
		if vals.Len() != len(pcrs) {
			t.Errorf("ReadPCRs(%+v) returned %d values", sel, vals.Len())
		}
	})
}

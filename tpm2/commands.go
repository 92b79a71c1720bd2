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

package tpm2

import (
	"bytes"
	"fmt"

	"github.com/google/go-tpm-wire/tpmutil"
)

// PCRRead issues a single TPM2_PCR_Read for sel and returns the PCR update
// counter along with the digests. sel may name at most 8 distinct PCRs; use
// ReadPCRs for larger selections.
func PCRRead(t tpmutil.Transport, sel PCRSelection) (uint32, PCRValues, error) {
	if err := validateSelections([]PCRSelection{sel}); err != nil {
		return 0, nil, err
	}
	bitmap, err := PCClientCompatible.PCRs(sel.PCRs...)
	if err != nil {
		return 0, nil, err
	}
	if n := bitmap.Count(); n > maxDigestsPerResponse {
		return 0, nil, fmt.Errorf("%w: %d PCRs selected, a single read returns at most %d", tpmutil.ErrInputParameter, n, maxDigestsPerResponse)
	}
	return pcrRead(t, sel.Hash, bitmap)
}

// pcrRead reads the PCRs set in bitmap. bitmap must be pcrSelectSize bytes
// with at most maxDigestsPerResponse bits set.
func pcrRead(t tpmutil.Transport, alg Algorithm, bitmap PCRSelect) (uint32, PCRValues, error) {
	req := pcrSelectionList{{Hash: alg, Select: bitmap}}
	resp, err := runCommand(t, CmdPCRRead, nil, nil, &req)
	if err != nil {
		return 0, nil, fmt.Errorf("PCR_Read: %w", err)
	}
	counter, vals, err := decodePCRRead(resp, alg, bitmap)
	if err != nil {
		return 0, nil, fmt.Errorf("PCR_Read: %w", err)
	}
	return counter, vals, nil
}

// decodePCRRead parses a PCR_Read response to a request for bitmap in bank
// alg. Digests are assigned to the set bits of bitmap in ascending order.
func decodePCRRead(resp []byte, alg Algorithm, bitmap PCRSelect) (uint32, PCRValues, error) {
	var (
		counter uint32
		sels    pcrSelectionList
		digests DigestList
	)
	if _, err := tpmutil.Unpack(resp, &counter, &sels, &digests); err != nil {
		return 0, nil, err
	}
	if len(sels) != 1 || sels[0].Hash != alg || !bytes.Equal(sels[0].Select, bitmap) {
		return 0, nil, fmt.Errorf("%w: TPM answered for selection %v, requested %v %x", tpmutil.ErrStructuralFormat, sels, alg, []byte(bitmap))
	}

	pcrs := bitmap.PCRs()
	if len(digests) != len(pcrs) {
		return 0, nil, fmt.Errorf("%w: %d digests returned for %d selected PCRs", tpmutil.ErrStructuralFormat, len(digests), len(pcrs))
	}
	size := alg.DigestSize()
	vals := make(PCRValues)
	for i, pcr := range pcrs {
		if len(digests[i]) != size {
			return 0, nil, fmt.Errorf("%w: PCR %d digest is %d bytes, %v digests are %d", tpmutil.ErrStructuralFormat, pcr, len(digests[i]), alg, size)
		}
		vals.set(alg, pcr, digests[i])
	}
	return counter, vals, nil
}

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
	"fmt"
	"sort"

	"github.com/google/go-tpm-wire/tpmutil"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

const (
	// MaxPCRIndex is the highest PCR index addressable by a selection.
	MaxPCRIndex = pcClientMinimumPCRCount - 1
	// pcrSelectSize is the size of every bitmap put on the wire.
	pcrSelectSize = pcClientMinimumPCRCount / 8
	// maxDigestsPerResponse is the capacity of a TPML_DIGEST.
	maxDigestsPerResponse = 8
)

// pcrSelectionFormatter is a Platform TPM Profile-specific interface for
// formatting TPM PCR selections.
type pcrSelectionFormatter interface {
	// PCRs returns the TPM PCR selection bitmask associated with the given
	// PCR indices. Negative indices are an error.
	PCRs(pcrs ...int) (PCRSelect, error)
}

// PCClientCompatible is a pcrSelectionFormatter that formats PCR selections
// suitable for use in PC Client PTP-compatible TPMs (the vast majority):
// https://trustedcomputinggroup.org/resource/pc-client-platform-tpm-profile-ptp-specification/
// PC Client mandates at least 24 PCRs but does not provide an upper limit.
var PCClientCompatible pcrSelectionFormatter = pcClient{}

type pcClient struct{}

// The TPM requires all PCR selections to be at least big enough to select all
// the PCRs in the minimum PCR allocation.
const pcClientMinimumPCRCount = 24

func (pcClient) PCRs(pcrs ...int) (PCRSelect, error) {
	// Find the biggest PCR we selected.
	maxPCR := 0
	for _, pcr := range pcrs {
		if pcr < 0 {
			return nil, fmt.Errorf("%w: invalid PCR index %d selected", tpmutil.ErrInputParameter, pcr)
		}
		if pcr > maxPCR {
			maxPCR = pcr
		}
	}
	selectionSize := maxPCR/8 + 1

	// Enforce the minimum PCR selection size.
	if selectionSize < pcrSelectSize {
		selectionSize = pcrSelectSize
	}

	// The PCR selection mask is byte-wise little-endian and bit-wise
	// big-endian: bit 0 of select[0] is PCR 0, bit 0 of select[1] is PCR 8.
	selection := make(PCRSelect, selectionSize)
	for _, pcr := range pcrs {
		selection.Set(pcr)
	}
	return selection, nil
}

// PCRValues holds PCR digests by bank and index.
type PCRValues map[Algorithm]map[int][]byte

func (v PCRValues) set(alg Algorithm, pcr int, digest []byte) {
	bank, ok := v[alg]
	if !ok {
		bank = make(map[int][]byte)
		v[alg] = bank
	}
	bank[pcr] = digest
}

// merge copies every digest in o into v.
func (v PCRValues) merge(o PCRValues) {
	for alg, bank := range o {
		for pcr, d := range bank {
			v.set(alg, pcr, d)
		}
	}
}

// Get returns the digest of PCR pcr in bank alg.
func (v PCRValues) Get(alg Algorithm, pcr int) ([]byte, bool) {
	d, ok := v[alg][pcr]
	return d, ok
}

// Len returns the number of digests held across all banks.
func (v PCRValues) Len() int {
	n := 0
	for _, bank := range v {
		n += len(bank)
	}
	return n
}

// Keys returns one selection per bank, ordered by algorithm ID, listing the
// PCRs held in ascending order.
func (v PCRValues) Keys() []PCRSelection {
	keys := make([]PCRSelection, 0, len(v))
	for alg, bank := range v {
		sel := PCRSelection{Hash: alg, PCRs: make([]int, 0, len(bank))}
		for pcr := range bank {
			sel.PCRs = append(sel.PCRs, pcr)
		}
		sort.Ints(sel.PCRs)
		keys = append(keys, sel)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Hash < keys[j].Hash })
	return keys
}

// validateSelections reports every invalid bank and PCR index across sels.
func validateSelections(sels []PCRSelection) error {
	var result *multierror.Error
	for i, sel := range sels {
		if !sel.Hash.IsHash() {
			result = multierror.Append(result, fmt.Errorf("%w: selection %d: %v is not a hash algorithm", tpmutil.ErrInputParameter, i, sel.Hash))
		}
		for _, pcr := range sel.PCRs {
			if pcr < 0 || pcr > MaxPCRIndex {
				result = multierror.Append(result, fmt.Errorf("%w: selection %d: PCR index %d outside [0, %d]", tpmutil.ErrInputParameter, i, pcr, MaxPCRIndex))
			}
		}
	}
	return result.ErrorOrNil()
}

// mergeSelections folds selections of the same bank together, keeping banks
// in order of first appearance and PCRs in caller order.
func mergeSelections(sels []PCRSelection) []PCRSelection {
	var merged []PCRSelection
	pos := make(map[Algorithm]int)
	for _, sel := range sels {
		i, ok := pos[sel.Hash]
		if !ok {
			i = len(merged)
			pos[sel.Hash] = i
			merged = append(merged, PCRSelection{Hash: sel.Hash})
		}
		merged[i].PCRs = append(merged[i].PCRs, sel.PCRs...)
	}
	return merged
}

// chunkPCRs partitions pcrs, in the order given, into bitmaps of at most
// maxDigestsPerResponse PCRs each. Repeated indices are dropped. Every index
// must be within [0, MaxPCRIndex].
func chunkPCRs(pcrs []int) []PCRSelect {
	var (
		chunks []PCRSelect
		cur    PCRSelect
		n      int
	)
	seen := newPCRSelect()
	for _, pcr := range pcrs {
		if seen.IsSet(pcr) {
			continue
		}
		seen.Set(pcr)
		if cur == nil {
			cur = newPCRSelect()
		}
		cur.Set(pcr)
		if n++; n == maxDigestsPerResponse {
			chunks = append(chunks, cur)
			cur, n = nil, 0
		}
	}
	if cur != nil {
		chunks = append(chunks, cur)
	}
	return chunks
}

// ReadPCRs reads every PCR named in sels, issuing as many PCR_Read commands
// as needed: each exchange returns at most 8 digests. Exchanges are made one
// at a time, bank by bank, in the order the PCRs were given.
//
// Every selection is validated before the TPM is contacted. The read is
// atomic: if any exchange fails, no values are returned.
func ReadPCRs(t tpmutil.Transport, sels ...PCRSelection) (PCRValues, error) {
	if err := validateSelections(sels); err != nil {
		return nil, err
	}
	vals := make(PCRValues)
	for _, sel := range mergeSelections(sels) {
		for _, chunk := range chunkPCRs(sel.PCRs) {
			logger.WithFields(logrus.Fields{
				"alg":    sel.Hash,
				"bitmap": fmt.Sprintf("%x", []byte(chunk)),
			}).Debug("reading PCR chunk")
			_, chunkVals, err := pcrRead(t, sel.Hash, chunk)
			if err != nil {
				return nil, fmt.Errorf("reading %v PCRs %v: %w", sel.Hash, chunk.PCRs(), err)
			}
			vals.merge(chunkVals)
		}
	}
	return vals, nil
}

// ReadAllPCRs reads PCRs 0 through MaxPCRIndex of every bank in algs.
func ReadAllPCRs(t tpmutil.Transport, algs ...Algorithm) (PCRValues, error) {
	if len(algs) == 0 {
		return nil, fmt.Errorf("%w: no PCR bank requested", tpmutil.ErrInputParameter)
	}
	all := make([]int, MaxPCRIndex+1)
	for i := range all {
		all[i] = i
	}
	sels := make([]PCRSelection, len(algs))
	for i, alg := range algs {
		sels[i] = PCRSelection{Hash: alg, PCRs: all}
	}
	return ReadPCRs(t, sels...)
}

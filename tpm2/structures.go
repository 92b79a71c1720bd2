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

package tpm2

import (
	"fmt"
	"math"

	"github.com/google/go-tpm-wire/tpmutil"
)

// PCRSelection contains a slice of PCR indexes and a hash algorithm used in
// them.
type PCRSelection struct {
	Hash Algorithm
	PCRs []int
}

// Digest is a TPM2B_DIGEST.
type Digest []byte

// TPMMarshal implements tpmutil.SelfMarshaler.
func (d *Digest) TPMMarshal(out *tpmutil.Buffer) error {
	return (*tpmutil.U16Bytes)(d).TPMMarshal(out)
}

// TPMUnmarshal implements tpmutil.SelfMarshaler.
func (d *Digest) TPMUnmarshal(in *tpmutil.Buffer) error {
	return (*tpmutil.U16Bytes)(d).TPMUnmarshal(in)
}

// DigestList is a TPML_DIGEST. A TPM never returns more than
// maxDigestsPerResponse entries in one list.
type DigestList []Digest

// TPMMarshal implements tpmutil.SelfMarshaler.
func (l *DigestList) TPMMarshal(out *tpmutil.Buffer) error {
	return tpmutil.MarshalList[Digest](out, *l)
}

// TPMUnmarshal implements tpmutil.SelfMarshaler.
func (l *DigestList) TPMUnmarshal(in *tpmutil.Buffer) error {
	items, err := tpmutil.UnmarshalList[Digest](in, maxDigestsPerResponse)
	if err != nil {
		return fmt.Errorf("TPML_DIGEST: %w", err)
	}
	*l = items
	return nil
}

// PCRSelect is the bitmap of a TPMS_PCR_SELECTION. Bit n of byte i selects
// PCR 8*i+n. On the wire it is preceded by its one-byte size.
type PCRSelect []byte

// newPCRSelect returns an empty bitmap wide enough for MaxPCRIndex.
func newPCRSelect() PCRSelect {
	return make(PCRSelect, pcrSelectSize)
}

// Set selects pcr. pcr must be in range for the bitmap.
func (s PCRSelect) Set(pcr int) {
	s[pcr/8] |= 1 << (pcr % 8)
}

// IsSet reports whether pcr is selected. Out of range indices are never set.
func (s PCRSelect) IsSet(pcr int) bool {
	if pcr < 0 || pcr/8 >= len(s) {
		return false
	}
	return s[pcr/8]&(1<<(pcr%8)) != 0
}

// Count returns the number of selected PCRs.
func (s PCRSelect) Count() int {
	n := 0
	for _, b := range s {
		for ; b != 0; b &= b - 1 {
			n++
		}
	}
	return n
}

// PCRs returns the selected indices in ascending order, which is the order a
// TPM lists their digests in.
func (s PCRSelect) PCRs() []int {
	var pcrs []int
	for i, b := range s {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) != 0 {
				pcrs = append(pcrs, 8*i+bit)
			}
		}
	}
	return pcrs
}

// TPMMarshal implements tpmutil.SelfMarshaler.
func (s *PCRSelect) TPMMarshal(out *tpmutil.Buffer) error {
	if len(*s) > math.MaxUint8 {
		return fmt.Errorf("%w: PCR bitmap of %d bytes", tpmutil.ErrInputParameter, len(*s))
	}
	out.WriteUint8(uint8(len(*s)))
	out.Write(*s)
	return nil
}

// TPMUnmarshal implements tpmutil.SelfMarshaler.
func (s *PCRSelect) TPMUnmarshal(in *tpmutil.Buffer) error {
	size, err := in.ReadUint8()
	if err != nil {
		return err
	}
	data, err := in.Next(int(size))
	if err != nil {
		return err
	}
	*s = append((*s)[:0], data...)
	return nil
}

// pcrSelection is a TPMS_PCR_SELECTION.
type pcrSelection struct {
	Hash   Algorithm
	Select PCRSelect
}

func (s *pcrSelection) TPMMarshal(out *tpmutil.Buffer) error {
	return tpmutil.PackBuf(out, s.Hash, &s.Select)
}

func (s *pcrSelection) TPMUnmarshal(in *tpmutil.Buffer) error {
	return tpmutil.UnpackBuf(in, &s.Hash, &s.Select)
}

// maxPCRSelections bounds a decoded TPML_PCR_SELECTION (HASH_COUNT in the
// reference implementation is well below this).
const maxPCRSelections = 16

// pcrSelectionList is a TPML_PCR_SELECTION.
type pcrSelectionList []pcrSelection

func (l *pcrSelectionList) TPMMarshal(out *tpmutil.Buffer) error {
	return tpmutil.MarshalList[pcrSelection](out, *l)
}

func (l *pcrSelectionList) TPMUnmarshal(in *tpmutil.Buffer) error {
	items, err := tpmutil.UnmarshalList[pcrSelection](in, maxPCRSelections)
	if err != nil {
		return fmt.Errorf("TPML_PCR_SELECTION: %w", err)
	}
	*l = items
	return nil
}

// AuthCommand is a TPMS_AUTH_COMMAND, one entry of a command's authorization
// area.
type AuthCommand struct {
	Session    tpmutil.Handle
	Nonce      tpmutil.U16Bytes
	Attributes SessionAttributes
	HMAC       tpmutil.U16Bytes
}

// TPMMarshal implements tpmutil.SelfMarshaler.
func (a *AuthCommand) TPMMarshal(out *tpmutil.Buffer) error {
	return tpmutil.PackBuf(out, a.Session, &a.Nonce, a.Attributes, &a.HMAC)
}

// TPMUnmarshal implements tpmutil.SelfMarshaler.
func (a *AuthCommand) TPMUnmarshal(in *tpmutil.Buffer) error {
	return tpmutil.UnpackBuf(in, &a.Session, &a.Nonce, &a.Attributes, &a.HMAC)
}

// PasswordAuth returns a password authorization (TPM_RS_PW) carrying pw in
// the clear. An empty password authorizes objects without an auth value.
func PasswordAuth(pw []byte) AuthCommand {
	return AuthCommand{
		Session:    HandlePasswordSession,
		Attributes: AttrContinueSession,
		HMAC:       tpmutil.U16Bytes(pw),
	}
}

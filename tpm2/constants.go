// Copyright (c) 2014, Google Inc. All rights reserved.
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
	"crypto"
	"fmt"
	"strings"

	"github.com/google/go-tpm-wire/tpmutil"
)

// Algorithm represents a TPM_ALG_ID value.
type Algorithm uint16

// Supported Algorithms.
const (
	AlgError         Algorithm = 0x0000
	AlgRSA           Algorithm = 0x0001
	AlgTDES          Algorithm = 0x0003
	AlgSHA1          Algorithm = 0x0004
	AlgHMAC          Algorithm = 0x0005
	AlgAES           Algorithm = 0x0006
	AlgMGF1          Algorithm = 0x0007
	AlgKeyedHash     Algorithm = 0x0008
	AlgXOR           Algorithm = 0x000A
	AlgSHA256        Algorithm = 0x000B
	AlgSHA384        Algorithm = 0x000C
	AlgSHA512        Algorithm = 0x000D
	AlgNull          Algorithm = 0x0010
	AlgSM3_256       Algorithm = 0x0012
	AlgSM4           Algorithm = 0x0013
	AlgRSASSA        Algorithm = 0x0014
	AlgRSAES         Algorithm = 0x0015
	AlgRSAPSS        Algorithm = 0x0016
	AlgOAEP          Algorithm = 0x0017
	AlgECDSA         Algorithm = 0x0018
	AlgECDH          Algorithm = 0x0019
	AlgECDAA         Algorithm = 0x001A
	AlgSM2           Algorithm = 0x001B
	AlgECSchnorr     Algorithm = 0x001C
	AlgECMQV         Algorithm = 0x001D
	AlgKDF1SP800_56A Algorithm = 0x0020
	AlgKDF2          Algorithm = 0x0021
	AlgKDF1SP800_108 Algorithm = 0x0022
	AlgECC           Algorithm = 0x0023
	AlgSymCipher     Algorithm = 0x0025
	AlgCamellia      Algorithm = 0x0026
	AlgSHA3_256      Algorithm = 0x0027
	AlgSHA3_384      Algorithm = 0x0028
	AlgSHA3_512      Algorithm = 0x0029
	AlgCTR           Algorithm = 0x0040
	AlgOFB           Algorithm = 0x0041
	AlgCBC           Algorithm = 0x0042
	AlgCFB           Algorithm = 0x0043
	AlgECB           Algorithm = 0x0044
)

type algInfo struct {
	name string
	// hash is the digest algorithm for hash algorithms, zero otherwise.
	hash crypto.Hash
	// digestSize is set for hash algorithms crypto has no identifier for.
	digestSize int
}

// algInfos is the closed code table for Algorithm. A code missing here does
// not decode.
var algInfos = map[Algorithm]algInfo{
	AlgError:         {name: "ERROR"},
	AlgRSA:           {name: "RSA"},
	AlgTDES:          {name: "TDES"},
	AlgSHA1:          {name: "SHA1", hash: crypto.SHA1},
	AlgHMAC:          {name: "HMAC"},
	AlgAES:           {name: "AES"},
	AlgMGF1:          {name: "MGF1"},
	AlgKeyedHash:     {name: "KEYEDHASH"},
	AlgXOR:           {name: "XOR"},
	AlgSHA256:        {name: "SHA256", hash: crypto.SHA256},
	AlgSHA384:        {name: "SHA384", hash: crypto.SHA384},
	AlgSHA512:        {name: "SHA512", hash: crypto.SHA512},
	AlgNull:          {name: "NULL"},
	AlgSM3_256:       {name: "SM3_256", digestSize: 32},
	AlgSM4:           {name: "SM4"},
	AlgRSASSA:        {name: "RSASSA"},
	AlgRSAES:         {name: "RSAES"},
	AlgRSAPSS:        {name: "RSAPSS"},
	AlgOAEP:          {name: "OAEP"},
	AlgECDSA:         {name: "ECDSA"},
	AlgECDH:          {name: "ECDH"},
	AlgECDAA:         {name: "ECDAA"},
	AlgSM2:           {name: "SM2"},
	AlgECSchnorr:     {name: "ECSCHNORR"},
	AlgECMQV:         {name: "ECMQV"},
	AlgKDF1SP800_56A: {name: "KDF1_SP800_56A"},
	AlgKDF2:          {name: "KDF2"},
	AlgKDF1SP800_108: {name: "KDF1_SP800_108"},
	AlgECC:           {name: "ECC"},
	AlgSymCipher:     {name: "SYMCIPHER"},
	AlgCamellia:      {name: "CAMELLIA"},
	AlgSHA3_256:      {name: "SHA3_256", hash: crypto.SHA3_256},
	AlgSHA3_384:      {name: "SHA3_384", hash: crypto.SHA3_384},
	AlgSHA3_512:      {name: "SHA3_512", hash: crypto.SHA3_512},
	AlgCTR:           {name: "CTR"},
	AlgOFB:           {name: "OFB"},
	AlgCBC:           {name: "CBC"},
	AlgCFB:           {name: "CFB"},
	AlgECB:           {name: "ECB"},
}

// algsByName is the reverse of algInfos, keyed by lower-case name.
var algsByName = func() map[string]Algorithm {
	m := make(map[string]Algorithm, len(algInfos))
	for a, info := range algInfos {
		m[strings.ToLower(info.name)] = a
	}
	return m
}()

// ParseAlgorithm returns the Algorithm called name ("sha256", "SHA256", ...).
func ParseAlgorithm(name string) (Algorithm, error) {
	a, ok := algsByName[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown algorithm %q", tpmutil.ErrInputParameter, name)
	}
	return a, nil
}

// Valid reports whether a is a code in the algorithm table.
func (a Algorithm) Valid() bool {
	_, ok := algInfos[a]
	return ok
}

// String returns the TPM name of the algorithm, without the TPM_ALG_ prefix.
func (a Algorithm) String() string {
	if info, ok := algInfos[a]; ok {
		return info.name
	}
	return fmt.Sprintf("Algorithm(0x%04x)", uint16(a))
}

// IsHash reports whether a names a digest algorithm that can back a PCR bank.
func (a Algorithm) IsHash() bool {
	return a.DigestSize() != 0
}

// Hash returns the crypto.Hash corresponding to a hash algorithm. SM3_256 has
// no crypto.Hash and returns an error.
func (a Algorithm) Hash() (crypto.Hash, error) {
	h := algInfos[a].hash
	if h == 0 {
		return 0, fmt.Errorf("%w: %v is not a hash algorithm", tpmutil.ErrInputParameter, a)
	}
	return h, nil
}

// DigestSize returns the size in bytes of a digest produced by a, or 0 when a
// is not a hash algorithm.
func (a Algorithm) DigestSize() int {
	info := algInfos[a]
	if info.hash == 0 {
		return info.digestSize
	}
	return info.hash.Size()
}

// TPMMarshal implements tpmutil.SelfMarshaler.
func (a Algorithm) TPMMarshal(out *tpmutil.Buffer) error {
	out.WriteUint16(uint16(a))
	return nil
}

// TPMUnmarshal implements tpmutil.SelfMarshaler. Codes outside the table are
// rejected.
func (a *Algorithm) TPMUnmarshal(in *tpmutil.Buffer) error {
	v, err := in.ReadUint16()
	if err != nil {
		return err
	}
	if !Algorithm(v).Valid() {
		return fmt.Errorf("%w: unknown algorithm ID 0x%04x", tpmutil.ErrDecode, v)
	}
	*a = Algorithm(v)
	return nil
}

// SessionTag represents a TPM_ST value.
type SessionTag uint16

// Structure tags.
const (
	TagRspCommand         SessionTag = 0x00C4
	TagNull               SessionTag = 0x8000
	TagNoSessions         SessionTag = 0x8001
	TagSessions           SessionTag = 0x8002
	TagAttestNV           SessionTag = 0x8014
	TagAttestCommandAudit SessionTag = 0x8015
	TagAttestSessionAudit SessionTag = 0x8016
	TagAttestCertify      SessionTag = 0x8017
	TagAttestQuote        SessionTag = 0x8018
	TagAttestTime         SessionTag = 0x8019
	TagAttestCreation     SessionTag = 0x801A
	TagAttestNVDigest     SessionTag = 0x801C
	TagCreation           SessionTag = 0x8021
	TagVerified           SessionTag = 0x8022
	TagAuthSecret         SessionTag = 0x8023
	TagHashCheck          SessionTag = 0x8024
	TagAuthSigned         SessionTag = 0x8025
	TagFUManifest         SessionTag = 0x8029
)

var tagNames = map[SessionTag]string{
	TagRspCommand:         "RSP_COMMAND",
	TagNull:               "NULL",
	TagNoSessions:         "NO_SESSIONS",
	TagSessions:           "SESSIONS",
	TagAttestNV:           "ATTEST_NV",
	TagAttestCommandAudit: "ATTEST_COMMAND_AUDIT",
	TagAttestSessionAudit: "ATTEST_SESSION_AUDIT",
	TagAttestCertify:      "ATTEST_CERTIFY",
	TagAttestQuote:        "ATTEST_QUOTE",
	TagAttestTime:         "ATTEST_TIME",
	TagAttestCreation:     "ATTEST_CREATION",
	TagAttestNVDigest:     "ATTEST_NV_DIGEST",
	TagCreation:           "CREATION",
	TagVerified:           "VERIFIED",
	TagAuthSecret:         "AUTH_SECRET",
	TagHashCheck:          "HASHCHECK",
	TagAuthSigned:         "AUTH_SIGNED",
	TagFUManifest:         "FU_MANIFEST",
}

func (t SessionTag) String() string {
	if n, ok := tagNames[t]; ok {
		return n
	}
	return fmt.Sprintf("SessionTag(0x%04x)", uint16(t))
}

// TPMMarshal implements tpmutil.SelfMarshaler.
func (t SessionTag) TPMMarshal(out *tpmutil.Buffer) error {
	out.WriteUint16(uint16(t))
	return nil
}

// TPMUnmarshal implements tpmutil.SelfMarshaler. Tags outside the table are
// rejected.
func (t *SessionTag) TPMUnmarshal(in *tpmutil.Buffer) error {
	v, err := in.ReadUint16()
	if err != nil {
		return err
	}
	if _, ok := tagNames[SessionTag(v)]; !ok {
		return fmt.Errorf("%w: unknown structure tag 0x%04x", tpmutil.ErrDecode, v)
	}
	*t = SessionTag(v)
	return nil
}

// Command codes.
const (
	CmdEvictControl     tpmutil.Command = 0x00000120
	CmdPCRAllocate      tpmutil.Command = 0x0000012B
	CmdPolicySecret     tpmutil.Command = 0x00000151
	CmdCreate           tpmutil.Command = 0x00000153
	CmdImport           tpmutil.Command = 0x00000156
	CmdLoad             tpmutil.Command = 0x00000157
	CmdUnseal           tpmutil.Command = 0x0000015E
	CmdFlushContext     tpmutil.Command = 0x00000165
	CmdStartAuthSession tpmutil.Command = 0x00000176
	CmdGetCapability    tpmutil.Command = 0x0000017A
	CmdGetRandom        tpmutil.Command = 0x0000017B
	CmdPCRRead          tpmutil.Command = 0x0000017E
	CmdPCRExtend        tpmutil.Command = 0x00000182
)

// Reserved handles.
const (
	HandleOwner           tpmutil.Handle = 0x40000001
	HandleNull            tpmutil.Handle = 0x40000007
	HandlePasswordSession tpmutil.Handle = 0x40000009
	HandleLockout         tpmutil.Handle = 0x4000000A
	HandleEndorsement     tpmutil.Handle = 0x4000000B
	HandlePlatform        tpmutil.Handle = 0x4000000C
)

// SessionAttributes is a TPMA_SESSION bitmask.
type SessionAttributes uint8

// Session attributes.
const (
	AttrContinueSession SessionAttributes = 1 << iota
	AttrAuditExclusive
	AttrAuditReset
	_
	_
	AttrDecrypt
	AttrEncrypt
	AttrAudit
)

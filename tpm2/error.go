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

	"github.com/google/go-tpm-wire/tpmutil"
)

type (
	RcFmt0  uint8 // Format 0 error codes
	RcFmt1  uint8 // Format 1 error codes
	RcWarn  uint8 // Warning codes
	RcIndex uint8 // Indexes for arguments, handles and sessions in errors
)

// Format 0 error codes.
const (
	RcInitialize      RcFmt0 = 0x00
	RcFailure         RcFmt0 = 0x01
	RcSequence        RcFmt0 = 0x03
	RcPrivate         RcFmt0 = 0x0B
	RcHMAC            RcFmt0 = 0x19
	RcDisabled        RcFmt0 = 0x20
	RcExclusive       RcFmt0 = 0x21
	RcAuthType        RcFmt0 = 0x24
	RcAuthMissing     RcFmt0 = 0x25
	RcPolicy          RcFmt0 = 0x26
	RcPCR             RcFmt0 = 0x27
	RcPCRChanged      RcFmt0 = 0x28
	RcUpgrade         RcFmt0 = 0x2D
	RcTooManyContexts RcFmt0 = 0x2E
	RcAuthUnavailable RcFmt0 = 0x2F
	RcReboot          RcFmt0 = 0x30
	RcUnbalanced      RcFmt0 = 0x31
	RcCommandSize     RcFmt0 = 0x42
	RcCommandCode     RcFmt0 = 0x43
	RcAuthSize        RcFmt0 = 0x44
	RcAuthContext     RcFmt0 = 0x45
	RcNVRange         RcFmt0 = 0x46
	RcNVSize          RcFmt0 = 0x47
	RcNVLocked        RcFmt0 = 0x48
	RcNVAuthorization RcFmt0 = 0x49
	RcNVUninitialized RcFmt0 = 0x4A
	RcNVSpace         RcFmt0 = 0x4B
	RcNVDefined       RcFmt0 = 0x4C
	RcBadContext      RcFmt0 = 0x50
	RcCPHash          RcFmt0 = 0x51
	RcParent          RcFmt0 = 0x52
	RcNeedsTest       RcFmt0 = 0x53
	RcNoResult        RcFmt0 = 0x54
	RcSensitive       RcFmt0 = 0x55
)

var fmt0Msg = map[RcFmt0]string{
	RcInitialize:      "TPM not initialized by TPM2_Startup or already initialized",
	RcFailure:         "commands not being accepted because of a TPM failure",
	RcSequence:        "improper use of a sequence handle",
	RcPrivate:         "not currently used",
	RcHMAC:            "not currently used",
	RcDisabled:        "the command is disabled",
	RcExclusive:       "command failed because audit sequence required exclusivity",
	RcAuthType:        "authorization handle is not correct for command",
	RcAuthMissing:     "command requires an authorization session for handle and it is not present.",
	RcPolicy:          "policy failure in math operation or an invalid authPolicy value",
	RcPCR:             "PCR check fail",
	RcPCRChanged:      "PCR have changed since checked",
	RcUpgrade:         "TPM is in field upgrade mode unless called via TPM2_FieldUpgradeData(), then it is not in field upgrade mode",
	RcTooManyContexts: "context ID counter is at maximum",
	RcAuthUnavailable: "authValue or authPolicy is not available for selected entity",
	RcReboot:          "a _TPM_Init and Startup(CLEAR) is required before the TPM can resume operation",
	RcUnbalanced:      "the protection algorithms (hash and symmetric) are not reasonably balanced. The digest size of the hash must be larger than the key size of the symmetric algorithm.",
	RcCommandSize:     "command commandSize value is inconsistent with contents of the command buffer; either the size is not the same as the octets loaded by the hardware interface layer or the value is not large enough to hold a command header",
	RcCommandCode:     "command code not supported",
	RcAuthSize:        "the value of authorizationSize is out of range or the number of octets in the Authorization Area is greater than required",
	RcAuthContext:     "use of an authorization session with a context command or another command that cannot have an authorization session",
	RcNVRange:         "NV offset+size is out of range",
	RcNVSize:          "Requested allocation size is larger than allowed",
	RcNVLocked:        "NV access locked",
	RcNVAuthorization: "NV access authorization fails in command actions",
	RcNVUninitialized: "an NV Index is used before being initialized or the state saved by TPM2_Shutdown(STATE) could not be restored",
	RcNVSpace:         "insufficient space for NV allocation",
	RcNVDefined:       "NV Index or persistent object already defined",
	RcBadContext:      "context in TPM2_ContextLoad() is not valid",
	RcCPHash:          "cpHash value already set or not correct for use",
	RcParent:          "handle for parent is not a valid parent",
	RcNeedsTest:       "some function needs testing",
	RcNoResult:        "returned when an internal function cannot process a request due to an unspecified problem. This code is usually related to invalid parameters that are not properly filtered by the input unmarshaling code",
	RcSensitive:       "the sensitive area did not unmarshal correctly after decryption",
}

// Format 1 error codes.
const (
	RcAsymmetric   RcFmt1 = 0x01
	RcAttributes   RcFmt1 = 0x02
	RcHash         RcFmt1 = 0x03
	RcValue        RcFmt1 = 0x04
	RcHierarchy    RcFmt1 = 0x05
	RcKeySize      RcFmt1 = 0x07
	RcMGF          RcFmt1 = 0x08
	RcMode         RcFmt1 = 0x09
	RcType         RcFmt1 = 0x0A
	RcHandle       RcFmt1 = 0x0B
	RcKDF          RcFmt1 = 0x0C
	RcRange        RcFmt1 = 0x0D
	RcAuthFail     RcFmt1 = 0x0E
	RcNonce        RcFmt1 = 0x0F
	RcPP           RcFmt1 = 0x10
	RcScheme       RcFmt1 = 0x12
	RcSize         RcFmt1 = 0x15
	RcSymmetric    RcFmt1 = 0x16
	RcTag          RcFmt1 = 0x17
	RcSelector     RcFmt1 = 0x18
	RcInsufficient RcFmt1 = 0x1A
	RcSignature    RcFmt1 = 0x1B
	RcKey          RcFmt1 = 0x1C
	RcPolicyFail   RcFmt1 = 0x1D
	RcIntegrity    RcFmt1 = 0x1F
	RcTicket       RcFmt1 = 0x20
	RcReservedBits RcFmt1 = 0x21
	RcBadAuth      RcFmt1 = 0x22
	RcExpired      RcFmt1 = 0x23
	RcPolicyCC     RcFmt1 = 0x24
	RcBinding      RcFmt1 = 0x25
	RcCurve        RcFmt1 = 0x26
	RcECCPoint     RcFmt1 = 0x27
)

var fmt1Msg = map[RcFmt1]string{
	RcAsymmetric:   "asymmetric algorithm not supported or not correct",
	RcAttributes:   "inconsistent attributes",
	RcHash:         "hash algorithm not supported or not appropriate",
	RcValue:        "value is out of range or is not correct for the context",
	RcHierarchy:    "hierarchy is not enabled or is not correct for the use",
	RcKeySize:      "key size is not supported",
	RcMGF:          "mask generation function not supported",
	RcMode:         "mode of operation not supported",
	RcType:         "the type of the value is not appropriate for the use",
	RcHandle:       "the handle is not correct for the use",
	RcKDF:          "unsupported key derivation function or function not appropriate for use",
	RcRange:        "value was out of allowed range",
	RcAuthFail:     "the authorization HMAC check failed and DA counter incremented",
	RcNonce:        "invalid nonce size or nonce value mismatch",
	RcPP:           "authorization requires assertion of PP",
	RcScheme:       "unsupported or incompatible scheme",
	RcSize:         "structure is the wrong size",
	RcSymmetric:    "unsupported symmetric algorithm or key size, or not appropriate for instance",
	RcTag:          "incorrect structure tag",
	RcSelector:     "union selector is incorrect",
	RcInsufficient: "the TPM was unable to unmarshal a value because there were not enough octets in the input buffer",
	RcSignature:    "the signature is not valid",
	RcKey:          "key fields are not compatible with the selected use",
	RcPolicyFail:   "a policy check failed",
	RcIntegrity:    "integrity check failed",
	RcTicket:       "invalid ticket",
	RcReservedBits: "reserved bits not set to zero as required",
	RcBadAuth:      "authorization failure without DA implications",
	RcExpired:      "the policy has expired",
	RcPolicyCC:     "the commandCode in the policy is not the commandCode of the command or the command code in a policy command references a command that is not implemented",
	RcBinding:      "public and sensitive portions of an object are not cryptographically bound",
	RcCurve:        "curve not supported",
	RcECCPoint:     "point is not on the required curve",
}

// Warning codes.
const (
	RcContextGap     RcWarn = 0x01
	RcObjectMemory   RcWarn = 0x02
	RcSessionMemory  RcWarn = 0x03
	RcMemory         RcWarn = 0x04
	RcSessionHandles RcWarn = 0x05
	RcObjectHandles  RcWarn = 0x06
	RcLocality       RcWarn = 0x07
	RcYielded        RcWarn = 0x08
	RcCanceled       RcWarn = 0x09
	RcTesting        RcWarn = 0x0A
	RcReferenceH0    RcWarn = 0x10
	RcReferenceH1    RcWarn = 0x11
	RcReferenceH2    RcWarn = 0x12
	RcReferenceH3    RcWarn = 0x13
	RcReferenceH4    RcWarn = 0x14
	RcReferenceH5    RcWarn = 0x15
	RcReferenceH6    RcWarn = 0x16
	RcReferenceS0    RcWarn = 0x18
	RcReferenceS1    RcWarn = 0x19
	RcReferenceS2    RcWarn = 0x1A
	RcReferenceS3    RcWarn = 0x1B
	RcReferenceS4    RcWarn = 0x1C
	RcReferenceS5    RcWarn = 0x1D
	RcReferenceS6    RcWarn = 0x1E
	RcNVRate         RcWarn = 0x20
	RcLockout        RcWarn = 0x21
	RcRetry          RcWarn = 0x22
	RcNVUnavailable  RcWarn = 0x23
)

var warnMgs = map[RcWarn]string{
	RcContextGap:     "gap for context ID is too large",
	RcObjectMemory:   "out of memory for object contexts",
	RcSessionMemory:  "out of memory for session contexts",
	RcMemory:         "out of shared object/session memory or need space for internal operations",
	RcSessionHandles: "out of session handles",
	RcObjectHandles:  "out of object handles",
	RcLocality:       "bad locality",
	RcYielded:        "the TPM has suspended operation on the command; forward progress was made and the command may be retried",
	RcCanceled:       "the command was canceled",
	RcTesting:        "TPM is performing self-tests",
	RcReferenceH0:    "the 1st handle in the handle area references a transient object or session that is not loaded",
	RcReferenceH1:    "the 2nd handle in the handle area references a transient object or session that is not loaded",
	RcReferenceH2:    "the 3rd handle in the handle area references a transient object or session that is not loaded",
	RcReferenceH3:    "the 4th handle in the handle area references a transient object or session that is not loaded",
	RcReferenceH4:    "the 5th handle in the handle area references a transient object or session that is not loaded",
	RcReferenceH5:    "the 6th handle in the handle area references a transient object or session that is not loaded",
	RcReferenceH6:    "the 7th handle in the handle area references a transient object or session that is not loaded",
	RcReferenceS0:    "the 1st authorization session handle references a session that is not loaded",
	RcReferenceS1:    "the 2nd authorization session handle references a session that is not loaded",
	RcReferenceS2:    "the 3rd authorization session handle references a session that is not loaded",
	RcReferenceS3:    "the 4th authorization session handle references a session that is not loaded",
	RcReferenceS4:    "the 5th authorization session handle references a session that is not loaded",
	RcReferenceS5:    "the 6th authorization session handle references a session that is not loaded",
	RcReferenceS6:    "the 7th authorization session handle references a session that is not loaded",
	RcNVRate:         "the TPM is rate-limiting accesses to prevent wearout of NV",
	RcLockout:        "authorizations for objects subject to DA protection are not allowed at this time because the TPM is in DA lockout mode",
	RcRetry:          "the TPM was not able to start the command",
	RcNVUnavailable:  "the command may require writing of NV and NV is not current accessible",
}

// Indexes for arguments, handles and sessions.
const (
	Rc1 RcIndex = 0x01
	Rc2 RcIndex = 0x02
	Rc3 RcIndex = 0x03
	Rc4 RcIndex = 0x04
	Rc5 RcIndex = 0x05
	Rc6 RcIndex = 0x06
	Rc7 RcIndex = 0x07
	Rc8 RcIndex = 0x08
	Rc9 RcIndex = 0x09
	RcA RcIndex = 0x0A
	RcB RcIndex = 0x0B
	RcC RcIndex = 0x0C
	RcD RcIndex = 0x0D
	RcE RcIndex = 0x0E
	RcF RcIndex = 0x0F
)

func (c RcFmt0) String() string { return codeMessage(fmt0Msg, c) }
func (c RcFmt1) String() string { return codeMessage(fmt1Msg, c) }
func (c RcWarn) String() string { return codeMessage(warnMgs, c) }

// codeMessage returns the description of c, or a placeholder naming the code
// when the table has no entry for it.
func codeMessage[C ~uint8](msgs map[C]string, c C) string {
	if m, ok := msgs[c]; ok {
		return m
	}
	return fmt.Sprintf("unknown code 0x%02x", uint8(c))
}

// CommandError is implemented by every error decoded from a non-success TPM
// response code. All of them match tpmutil.ErrCommand with errors.Is.
type CommandError interface {
	error
	// ResponseCode returns the response code exactly as the TPM sent it.
	ResponseCode() tpmutil.ResponseCode
}

// Error is a format-zero error code.
type Error struct {
	Code RcFmt0
	rc   tpmutil.ResponseCode
}

func (e Error) Error() string {
	return fmt.Sprintf("error code 0x%x : %v", uint8(e.Code), e.Code)
}

// ResponseCode implements CommandError.
func (e Error) ResponseCode() tpmutil.ResponseCode { return e.rc }

func (e Error) Is(target error) bool { return target == tpmutil.ErrCommand }

// VendorError is a TPM vendor specific response code.
type VendorError struct {
	Code uint32
}

func (e VendorError) Error() string {
	return fmt.Sprintf("vendor error code 0x%x", e.Code)
}

// ResponseCode implements CommandError.
func (e VendorError) ResponseCode() tpmutil.ResponseCode {
	return tpmutil.ResponseCode(e.Code)
}

func (e VendorError) Is(target error) bool { return target == tpmutil.ErrCommand }

// Warning is a format-zero warning code. Retrying the command later may
// succeed.
type Warning struct {
	Code RcWarn
	rc   tpmutil.ResponseCode
}

func (w Warning) Error() string {
	return fmt.Sprintf("warning code 0x%x : %v", uint8(w.Code), w.Code)
}

// ResponseCode implements CommandError.
func (w Warning) ResponseCode() tpmutil.ResponseCode { return w.rc }

func (w Warning) Is(target error) bool { return target == tpmutil.ErrCommand }

// ParameterError is a format-one error attributed to a command parameter.
type ParameterError struct {
	Code      RcFmt1
	Parameter RcIndex
	rc        tpmutil.ResponseCode
}

func (e ParameterError) Error() string {
	return fmt.Sprintf("parameter %d, error code 0x%x : %v", e.Parameter, uint8(e.Code), e.Code)
}

// ResponseCode implements CommandError.
func (e ParameterError) ResponseCode() tpmutil.ResponseCode { return e.rc }

func (e ParameterError) Is(target error) bool { return target == tpmutil.ErrCommand }

// HandleError is a format-one error attributed to a command handle.
type HandleError struct {
	Code   RcFmt1
	Handle RcIndex
	rc     tpmutil.ResponseCode
}

func (e HandleError) Error() string {
	return fmt.Sprintf("handle %d, error code 0x%x : %v", e.Handle, uint8(e.Code), e.Code)
}

// ResponseCode implements CommandError.
func (e HandleError) ResponseCode() tpmutil.ResponseCode { return e.rc }

func (e HandleError) Is(target error) bool { return target == tpmutil.ErrCommand }

// SessionError is a format-one error attributed to an authorization session.
type SessionError struct {
	Code    RcFmt1
	Session RcIndex
	rc      tpmutil.ResponseCode
}

func (e SessionError) Error() string {
	return fmt.Sprintf("session %d, error code 0x%x : %v", e.Session, uint8(e.Code), e.Code)
}

// ResponseCode implements CommandError.
func (e SessionError) ResponseCode() tpmutil.ResponseCode { return e.rc }

func (e SessionError) Is(target error) bool { return target == tpmutil.ErrCommand }

// LegacyError is a response code in the TPM 1.2 format.
type LegacyError struct {
	Code tpmutil.ResponseCode
}

func (e LegacyError) Error() string {
	return fmt.Sprintf("response status 0x%x", uint32(e.Code))
}

// ResponseCode implements CommandError.
func (e LegacyError) ResponseCode() tpmutil.ResponseCode {
	return e.Code
}

func (e LegacyError) Is(target error) bool { return target == tpmutil.ErrCommand }

// Decode a TPM2 response code and return the appropriate error. Logic
// according to the "Response Code Evaluation" chart in Part 1 of the TPM 2.0
// Library specification. Only bits 0:11 are evaluated; every returned error
// keeps code unmodified, layer bits included.
func decodeResponse(code tpmutil.ResponseCode) error {
	if code == tpmutil.RCSuccess {
		return nil
	}
	if code&0x180 == 0 { // Bits 7:8 == 0 is a TPM1 error
		return LegacyError{code}
	}
	if code&0x80 == 0 { // Bit 7 unset
		if code&0x400 > 0 { // Bit 10 set, vendor specific code
			return VendorError{uint32(code)}
		}
		if code&0x800 > 0 { // Bit 11 set, warning with code in bit 0:6
			return Warning{Code: RcWarn(code & 0x7f), rc: code}
		}
		// error with code in bit 0:6
		return Error{Code: RcFmt0(code & 0x7f), rc: code}
	}
	if code&0x40 > 0 { // Bit 6 set, parameter number in 8:11, code in 0:5
		return ParameterError{Code: RcFmt1(code & 0x3f), Parameter: RcIndex((code & 0xf00) >> 8), rc: code}
	}
	if code&0x800 == 0 { // Bit 11 unset, handle in 8:10, code in 0:5
		return HandleError{Code: RcFmt1(code & 0x3f), Handle: RcIndex((code & 0x700) >> 8), rc: code}
	}
	// Session in 8:10, code in 0:5
	return SessionError{Code: RcFmt1(code & 0x3f), Session: RcIndex((code & 0x700) >> 8), rc: code}
}

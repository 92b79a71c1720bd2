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

// Package tpm2 issues TPM 2.0 commands over a tpmutil.Transport, including a
// PCR read that splits arbitrarily large selections into exchanges the TPM
// can answer.
package tpm2

import (
	"fmt"

	"github.com/google/go-tpm-wire/tpmutil"
	"github.com/sirupsen/logrus"
)

var logger = logrus.StandardLogger()

// SetLogger replaces the logger used for per-exchange debug output. Passing
// nil restores logrus' standard logger. It must not be called concurrently
// with commands.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = logrus.StandardLogger()
	}
	logger = l
}

// encodeAuthArea packs auths into the {u32 authSize}{TPMS_AUTH_COMMAND...}
// authorization area.
func encodeAuthArea(auths []AuthCommand) (tpmutil.U32Bytes, error) {
	buf := new(tpmutil.Buffer)
	for i := range auths {
		if err := auths[i].TPMMarshal(buf); err != nil {
			return nil, fmt.Errorf("encoding authorization %d: %w", i, err)
		}
	}
	return tpmutil.U32Bytes(buf.Bytes()), nil
}

// runCommand frames and executes cc. The command body is the handle area, the
// authorization area when auths is non-empty, then params. On success the
// response parameters are returned; for session commands the
// {u32 parameterSize} prefix and the trailing response authorizations are
// stripped. Commands that return handles are not supported.
//
// A non-success response code is returned as one of the CommandError types.
func runCommand(t tpmutil.Transport, cc tpmutil.Command, handles []tpmutil.Handle, auths []AuthCommand, params ...interface{}) ([]byte, error) {
	tag := TagNoSessions
	in := make([]interface{}, 0, len(handles)+1+len(params))
	for _, h := range handles {
		in = append(in, h)
	}
	if len(auths) > 0 {
		tag = TagSessions
		area, err := encodeAuthArea(auths)
		if err != nil {
			return nil, err
		}
		in = append(in, &area)
	}
	in = append(in, params...)

	body, err := tpmutil.Pack(in...)
	if err != nil {
		return nil, fmt.Errorf("encoding command 0x%x: %w", uint32(cc), err)
	}
	entry := logger.WithFields(logrus.Fields{
		"cc":          fmt.Sprintf("0x%x", uint32(cc)),
		"commandSize": 10 + len(body),
		"sessions":    len(auths),
	})

	resp, rc, err := tpmutil.RunCommand(t, tpmutil.Tag(tag), cc, tpmutil.RawBytes(body))
	if err != nil {
		entry.WithError(err).Debug("TPM exchange failed")
		return nil, err
	}
	entry = entry.WithField("rc", fmt.Sprintf("0x%x", uint32(rc)))
	if err := decodeResponse(rc); err != nil {
		entry.Debug("TPM returned an error")
		return nil, err
	}
	entry.WithField("responseSize", 10+len(resp)).Debug("TPM exchange complete")

	if tag == TagSessions {
		return parametersArea(resp)
	}
	return resp, nil
}

// parametersArea returns the parameters of a session response, which are
// prefixed with their size and followed by the response authorizations.
func parametersArea(resp []byte) ([]byte, error) {
	buf := tpmutil.NewBuffer(resp)
	size, err := buf.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("reading parameterSize: %w", err)
	}
	if uint64(size) > uint64(buf.Len()) {
		return nil, fmt.Errorf("%w: parameterSize %d exceeds the %d bytes remaining", tpmutil.ErrStructuralFormat, size, buf.Len())
	}
	return buf.Next(int(size))
}

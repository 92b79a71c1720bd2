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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-tpm-wire/tpmutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func sessionResponse(params []byte) []byte {
	body := append([]byte{0, 0, 0, byte(len(params))}, params...)
	// TPMS_AUTH_RESPONSE: empty nonce, continueSession, empty HMAC.
	body = append(body, 0x00, 0x00, 0x01, 0x00, 0x00)
	rsp := rawResponse(tpmutil.RCSuccess, body)
	rsp[0], rsp[1] = 0x80, 0x02
	return rsp
}

func TestRunCommandWithPasswordAuth(t *testing.T) {
	f := &fakeTPM{override: map[int][]byte{0: sessionResponse([]byte{0xaa, 0xbb})}}
	params, err := runCommand(f, CmdUnseal, []tpmutil.Handle{0x81000001}, []AuthCommand{PasswordAuth([]byte("pw"))}, uint16(5))
	if err != nil {
		t.Fatalf("runCommand() failed: %v", err)
	}
	if diff := cmp.Diff([]byte{0xaa, 0xbb}, params); diff != "" {
		t.Errorf("runCommand() parameters mismatch (-want +got):\n%s", diff)
	}

	want := [][]byte{{
		0x80, 0x02, // TPM_ST_SESSIONS
		0x00, 0x00, 0x00, 0x1f,
		0x00, 0x00, 0x01, 0x5e,
		0x81, 0x00, 0x00, 0x01, // handle area
		0x00, 0x00, 0x00, 0x0b, // authSize
		0x40, 0x00, 0x00, 0x09, // TPM_RS_PW
		0x00, 0x00, // nonce
		0x01,                   // continueSession
		0x00, 0x02, 0x70, 0x77, // hmac
		0x00, 0x05, // parameters
	}}
	if diff := cmp.Diff(want, f.cmds); diff != "" {
		t.Errorf("runCommand() sent mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCommandNoSessions(t *testing.T) {
	f := &fakeTPM{override: map[int][]byte{0: rawResponse(tpmutil.RCSuccess, []byte{1, 2, 3})}}
	params, err := runCommand(f, CmdGetRandom, nil, nil, uint16(3))
	if err != nil {
		t.Fatalf("runCommand() failed: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, params); diff != "" {
		t.Errorf("runCommand() parameters mismatch (-want +got):\n%s", diff)
	}
	if tag := f.cmds[0][:2]; tag[0] != 0x80 || tag[1] != 0x01 {
		t.Errorf("runCommand() tag = %x, want 8001", tag)
	}
}

func TestRunCommandResponseCode(t *testing.T) {
	f := &fakeTPM{override: map[int][]byte{0: rawResponse(0x9a2, nil)}}
	_, err := runCommand(f, CmdUnseal, []tpmutil.Handle{0x81000001}, []AuthCommand{PasswordAuth(nil)})
	var se SessionError
	if !errors.As(err, &se) {
		t.Fatalf("runCommand() = %v, want SessionError", err)
	}
	if se.Code != RcBadAuth || se.Session != Rc1 {
		t.Errorf("runCommand() = %+v, want bad auth on session 1", se)
	}
	if !errors.Is(err, tpmutil.ErrCommand) {
		t.Errorf("runCommand() = %v, does not match ErrCommand", err)
	}
}

func TestRunCommandBadAuthSize(t *testing.T) {
	f := &fakeTPM{}
	auth := AuthCommand{Session: HandlePasswordSession, HMAC: make(tpmutil.U16Bytes, 0x10000)}
	if _, err := runCommand(f, CmdUnseal, nil, []AuthCommand{auth}); !errors.Is(err, tpmutil.ErrInputParameter) {
		t.Errorf("runCommand() = %v, want ErrInputParameter", err)
	}
	if len(f.cmds) != 0 {
		t.Errorf("runCommand() made %d exchanges, want none", len(f.cmds))
	}
}

func TestParametersArea(t *testing.T) {
	tests := []struct {
		name    string
		resp    []byte
		want    []byte
		wantErr error
	}{
		{"params and auth", []byte{0, 0, 0, 2, 0xaa, 0xbb, 0, 0, 1, 0, 0}, []byte{0xaa, 0xbb}, nil},
		{"empty", []byte{0, 0, 0, 0}, []byte{}, nil},
		{"no size", []byte{0, 0}, nil, tpmutil.ErrDecode},
		{"size too large", []byte{0, 0, 0, 9, 0xaa}, nil, tpmutil.ErrStructuralFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parametersArea(tt.resp)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("parametersArea() = %v, want %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parametersArea() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunCommandLogs(t *testing.T) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	SetLogger(l)
	t.Cleanup(func() { SetLogger(nil) })

	f := &fakeTPM{}
	if _, err := ReadPCRs(f, PCRSelection{Hash: AlgSHA256, PCRs: []int{0}}); err != nil {
		t.Fatalf("ReadPCRs() failed: %v", err)
	}
	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("no log entry written")
	}
	want := logrus.Fields{
		"cc":           "0x17e",
		"commandSize":  20,
		"sessions":     0,
		"rc":           "0x0",
		"responseSize": 62,
	}
	if diff := cmp.Diff(want, entry.Data); diff != "" {
		t.Errorf("log fields mismatch (-want +got):\n%s", diff)
	}
}

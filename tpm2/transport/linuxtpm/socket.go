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

//go:build !windows

package linuxtpm

import (
	"errors"
	"net"
)

// ErrMustCallWriteThenRead indicates that the socket was not written and read
// in alternation.
var ErrMustCallWriteThenRead = errors.New("must call Write then Read in an alternating sequence")

// socketConn talks to an emulator that expects one connection per command:
// Write dials and sends the command, Read receives the response and hangs up.
// It is not safe for concurrent use.
type socketConn struct {
	path string
	conn net.Conn
	dial func(network, address string) (net.Conn, error)
}

func newSocketConn(path string) *socketConn {
	return &socketConn{path: path, dial: net.Dial}
}

func (s *socketConn) Write(p []byte) (int, error) {
	if s.conn != nil {
		return 0, ErrMustCallWriteThenRead
	}
	conn, err := s.dial("unix", s.path)
	if err != nil {
		return 0, err
	}
	s.conn = conn
	return conn.Write(p)
}

func (s *socketConn) Read(p []byte) (int, error) {
	if s.conn == nil {
		return 0, ErrMustCallWriteThenRead
	}
	n, err := s.conn.Read(p)
	s.conn.Close()
	s.conn = nil
	return n, err
}

// Close drops a connection left open by a Write without a matching Read.
func (s *socketConn) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

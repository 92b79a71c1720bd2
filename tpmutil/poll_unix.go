//go:build linux || darwin

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

package tpmutil

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// poll blocks until the file descriptor is ready for reading or an error occurs.
func poll(f *os.File) error {
	const (
		events  = unix.POLLIN
		timeout = -1 // TSS2_TCTI_TIMEOUT_BLOCK; block indefinitely until data is available
	)
	pollFds := []unix.PollFd{
		{Fd: int32(f.Fd()), Events: events},
	}
	for {
		_, err := unix.Poll(pollFds, timeout)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return err
		}
		if pollFds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 && pollFds[0].Revents&unix.POLLIN == 0 {
			return errors.New("TPM file descriptor is not readable")
		}
		return nil
	}
}

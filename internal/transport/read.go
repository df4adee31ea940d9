// go-busdev
// Copyright (c) 2026 The go-busdev Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-busdev.
//
// go-busdev is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-busdev is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-busdev; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package transport provides the deadline-bounded read loops shared by the
// UART and I2C ports
package transport

import (
	"time"

	busdev "github.com/spacebus/go-busdev"
)

// Source is a byte stream that can wait a bounded time for input.
// ReadChunk returns (0, nil) when wait elapses without data.
type Source interface {
	ReadChunk(p []byte, wait time.Duration) (int, error)
}

// Deadlines bounds one read call. Overall runs from the start of the call;
// InterByte, when set, restarts after every byte received.
type Deadlines struct {
	Overall   time.Duration
	InterByte time.Duration
}

type deadline struct {
	start    time.Time
	last     time.Time
	op       string
	port     string
	limits   Deadlines
	received bool
}

func newDeadline(op, port string, d Deadlines) *deadline {
	now := time.Now()
	return &deadline{start: now, last: now, op: op, port: port, limits: d}
}

// wait returns how long the next chunk read may block, or a timeout error
// when either deadline has passed
func (d *deadline) wait() (time.Duration, error) {
	remaining := d.limits.Overall - time.Since(d.start)
	if d.received && d.limits.InterByte > 0 {
		if gap := d.limits.InterByte - time.Since(d.last); gap < remaining {
			remaining = gap
		}
	}
	if remaining <= 0 {
		return 0, busdev.NewTimeoutError(d.op, d.port)
	}
	return remaining, nil
}

func (d *deadline) progress() {
	d.received = true
	d.last = time.Now()
}

// ReadFull reads exactly n bytes from src
func ReadFull(src Source, port string, n int, d Deadlines) ([]byte, error) {
	if n <= 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	dl := newDeadline("read", port, d)
	got := 0
	for got < n {
		wait, err := dl.wait()
		if err != nil {
			busdev.Debugf("%s: timeout after %d/%d bytes: % x", port, got, n, buf[:got])
			return nil, err
		}
		k, err := src.ReadChunk(buf[got:], wait)
		if err != nil {
			return nil, err
		}
		if k > 0 {
			got += k
			dl.progress()
		}
	}
	busdev.Debugf("%s RX % x", port, buf)
	return buf, nil
}

// ReadUntil reads one byte at a time until delim has been read or maxLen
// bytes have arrived. Reading stops exactly at the delimiter so nothing
// that follows it is consumed.
func ReadUntil(src Source, port string, delim byte, maxLen int, d Deadlines) ([]byte, error) {
	out := make([]byte, 0, 64)
	one := make([]byte, 1)
	dl := newDeadline("read", port, d)
	for maxLen <= 0 || len(out) < maxLen {
		wait, err := dl.wait()
		if err != nil {
			busdev.Debugf("%s: timeout waiting for 0x%02x after % x", port, delim, out)
			return nil, err
		}
		k, err := src.ReadChunk(one, wait)
		if err != nil {
			return nil, err
		}
		if k == 0 {
			continue
		}
		dl.progress()
		out = append(out, one[0])
		if one[0] == delim {
			break
		}
	}
	busdev.Debugf("%s RX % x", port, out)
	return out, nil
}

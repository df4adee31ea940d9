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

package busdev

import (
	"bytes"
	"sync"
	"time"
)

// MockPort is a scripted Port. Bytes queued with Feed, or produced by a
// responder for each write, are served to reads. A read that cannot be
// satisfied from queued bytes consumes them and times out immediately.
type MockPort struct {
	readErr   error
	responder func(written []byte) []byte
	path      string
	rx        []byte
	writes    [][]byte
	timeout   time.Duration
	mu        sync.Mutex
	closed    bool
}

// NewMockPort creates an open mock port
func NewMockPort(path string) *MockPort {
	return &MockPort{path: path, timeout: 100 * time.Millisecond}
}

// Feed queues bytes for subsequent reads
func (m *MockPort) Feed(b ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rx = append(m.rx, b...)
}

// SetResponder installs fn; whatever it returns for a write is queued
func (m *MockPort) SetResponder(fn func(written []byte) []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
}

// SetReadError makes every read fail with err
func (m *MockPort) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// Writes returns a copy of every write made so far
func (m *MockPort) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	for i, w := range m.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// WriteCount returns the number of writes made so far
func (m *MockPort) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

// Write records p and queues the responder output
func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, NewWriteError(m.path, ErrClosed)
	}
	m.writes = append(m.writes, append([]byte(nil), p...))
	if m.responder != nil {
		m.rx = append(m.rx, m.responder(p)...)
	}
	return len(p), nil
}

// ReadExact serves n queued bytes
func (m *MockPort) ReadExact(n int, _ time.Duration) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.readable(); err != nil {
		return nil, err
	}
	if len(m.rx) < n {
		m.rx = nil
		return nil, NewTimeoutError("read", m.path)
	}
	out := append([]byte(nil), m.rx[:n]...)
	m.rx = m.rx[n:]
	return out, nil
}

// ReadUntil serves queued bytes up to and including delim
func (m *MockPort) ReadUntil(delim byte, maxLen int, _ time.Duration) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.readable(); err != nil {
		return nil, err
	}
	limit := len(m.rx)
	if maxLen > 0 && maxLen < limit {
		limit = maxLen
	}
	if i := bytes.IndexByte(m.rx[:limit], delim); i >= 0 {
		limit = i + 1
	} else if maxLen <= 0 || len(m.rx) < maxLen {
		m.rx = nil
		return nil, NewTimeoutError("read", m.path)
	}
	out := append([]byte(nil), m.rx[:limit]...)
	m.rx = m.rx[limit:]
	return out, nil
}

func (m *MockPort) readable() error {
	if m.closed {
		return NewTransportError("read", m.path, ErrClosed, ErrorTypePermanent)
	}
	return m.readErr
}

// Flush drops queued input
func (m *MockPort) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rx = nil
	return nil
}

// SetTimeout records the timeout
func (m *MockPort) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// Timeout returns the last timeout set
func (m *MockPort) Timeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// Close marks the port closed
func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected returns true until Close
func (m *MockPort) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns PortMock
func (*MockPort) Type() PortType {
	return PortMock
}

// Path returns the mock device path
func (m *MockPort) Path() string {
	return m.path
}

// BlockingMockPort is a Port whose reads block until bytes are fed, the
// timeout expires, or the port is closed. Used to test that Close
// unblocks a pending read.
type BlockingMockPort struct {
	notify  chan struct{}
	path    string
	buf     []byte
	timeout time.Duration
	mu      sync.Mutex
	closed  bool
}

// NewBlockingMockPort creates a new blocking mock port
func NewBlockingMockPort(path string) *BlockingMockPort {
	return &BlockingMockPort{
		path:    path,
		notify:  make(chan struct{}),
		timeout: 5 * time.Second,
	}
}

// Feed makes bytes available to blocked readers
func (m *BlockingMockPort) Feed(b ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf = append(m.buf, b...)
	m.wake()
}

func (m *BlockingMockPort) wake() {
	close(m.notify)
	m.notify = make(chan struct{})
}

// Write discards p
func (m *BlockingMockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, NewWriteError(m.path, ErrClosed)
	}
	return len(p), nil
}

// ReadExact blocks until n bytes are available
func (m *BlockingMockPort) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	return m.wait(timeout, func() int {
		if len(m.buf) >= n {
			return n
		}
		return -1
	})
}

// ReadUntil blocks until delim or maxLen bytes are available
func (m *BlockingMockPort) ReadUntil(delim byte, maxLen int, timeout time.Duration) ([]byte, error) {
	return m.wait(timeout, func() int {
		if i := bytes.IndexByte(m.buf, delim); i >= 0 && (maxLen <= 0 || i < maxLen) {
			return i + 1
		}
		if maxLen > 0 && len(m.buf) >= maxLen {
			return maxLen
		}
		return -1
	})
}

func (m *BlockingMockPort) wait(timeout time.Duration, ready func() int) ([]byte, error) {
	m.mu.Lock()
	if timeout <= 0 {
		timeout = m.timeout
	}
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, NewTransportError("read", m.path, ErrClosed, ErrorTypePermanent)
		}
		if n := ready(); n >= 0 {
			out := append([]byte(nil), m.buf[:n]...)
			m.buf = m.buf[n:]
			m.mu.Unlock()
			return out, nil
		}
		ch := m.notify
		m.mu.Unlock()

		select {
		case <-ch:
		case <-timer.C:
			return nil, NewTimeoutError("read", m.path)
		}
	}
}

// Flush drops buffered input
func (m *BlockingMockPort) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf = nil
	return nil
}

// SetTimeout sets the default read timeout
func (m *BlockingMockPort) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// Close unblocks all pending reads and marks the port closed
func (m *BlockingMockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		m.wake()
	}
	return nil
}

// IsConnected returns true until Close
func (m *BlockingMockPort) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns PortMock
func (*BlockingMockPort) Type() PortType {
	return PortMock
}

// Path returns the mock device path
func (m *BlockingMockPort) Path() string {
	return m.path
}

var (
	_ Port = (*MockPort)(nil)
	_ Port = (*BlockingMockPort)(nil)
)

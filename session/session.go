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

// Package session runs command exchanges with one device over one port:
// write a frame, check the echo, read and validate the response, and retry
// within a fixed bound.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/internal/frame"
	"github.com/spacebus/go-busdev/transport/uart"
)

// State is the phase of the most recent exchange
type State int32

const (
	StateDisconnected State = iota
	StateConnected
	StateAwaitingEcho
	StateAwaitingResponse
	StateStable
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateAwaitingEcho:
		return "awaiting-echo"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateStable:
		return "stable"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// repeatRecord is the last unforced request and its response
type repeatRecord struct {
	frame []byte
	resp  []byte
}

// Opener opens a port for a line configuration
type Opener func(cfg busdev.PortConfig) (busdev.Port, error)

// Session owns one port and runs exchanges on it one at a time. Close may
// be called from any goroutine and unblocks an exchange in progress.
type Session struct {
	port    busdev.Port
	preset  busdev.Port
	driver  *Driver
	opener  Opener
	clock   busdev.Clock
	retry   *busdev.RetryConfig
	lastReq []byte
	repeat  *repeatRecord
	timeout time.Duration
	baud    int
	seq     atomic.Uint64
	state   atomic.Int32
	mu      sync.Mutex
	portMu  sync.Mutex
}

// New creates a disconnected session for driver
func New(driver *Driver, opts ...Option) (*Session, error) {
	if driver == nil {
		return nil, fmt.Errorf("%w: nil driver", busdev.ErrInvalidParameter)
	}
	s := &Session{
		driver: driver,
		opener: uart.Opener,
		clock:  busdev.SystemClock(),
		retry:  driver.RetryConfig(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if port := s.preset; port != nil {
		s.preset = nil
		if err := s.Attach(port); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Connect opens a port with cfg. Fails with ErrAlreadyConnected when the
// session already owns a port.
func (s *Session) Connect(cfg busdev.PortConfig) error {
	s.portMu.Lock()
	defer s.portMu.Unlock()
	if s.port != nil {
		return fmt.Errorf("%s: %w", s.driver.name, busdev.ErrAlreadyConnected)
	}
	if s.baud > 0 {
		cfg.BaudRate = s.baud
	}
	port, err := s.opener(cfg)
	if err != nil {
		return err
	}
	s.attachLocked(port)
	busdev.Debugf("%s: connected on %s", s.driver.name, cfg)
	return nil
}

// Attach hands an already open port to the session
func (s *Session) Attach(port busdev.Port) error {
	if port == nil {
		return fmt.Errorf("%w: nil port", busdev.ErrInvalidParameter)
	}
	s.portMu.Lock()
	defer s.portMu.Unlock()
	if s.port != nil {
		return fmt.Errorf("%s: %w", s.driver.name, busdev.ErrAlreadyConnected)
	}
	s.attachLocked(port)
	return nil
}

func (s *Session) attachLocked(port busdev.Port) {
	s.port = port
	if s.timeout > 0 {
		_ = port.SetTimeout(s.timeout)
	}
	s.state.Store(int32(StateConnected))
}

// Close releases the port. An exchange blocked on a read returns ErrClosed.
func (s *Session) Close() error {
	s.portMu.Lock()
	port := s.port
	s.port = nil
	s.portMu.Unlock()

	s.state.Store(int32(StateDisconnected))
	if port == nil {
		return nil
	}
	if err := port.Close(); err != nil {
		return fmt.Errorf("%s: %w", s.driver.name, err)
	}
	return nil
}

// State returns the phase of the current or most recent exchange
func (s *Session) State() State {
	return State(s.state.Load())
}

// IsConnected reports whether the session owns an open port
func (s *Session) IsConnected() bool {
	s.portMu.Lock()
	defer s.portMu.Unlock()
	return s.port != nil && s.port.IsConnected()
}

// Seq returns the number of successful exchanges
func (s *Session) Seq() uint64 {
	return s.seq.Load()
}

// Driver returns the session's driver
func (s *Session) Driver() *Driver {
	return s.driver
}

// Clock returns the session's time source
func (s *Session) Clock() busdev.Clock {
	return s.clock
}

// Path returns the device path, or "" when disconnected
func (s *Session) Path() string {
	s.portMu.Lock()
	defer s.portMu.Unlock()
	if s.port == nil {
		return ""
	}
	return s.port.Path()
}

// LastFrame returns a copy of the last frame written
func (s *Session) LastFrame() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.lastReq...)
}

func (s *Session) currentPort() (busdev.Port, error) {
	s.portMu.Lock()
	defer s.portMu.Unlock()
	if s.port == nil {
		return nil, fmt.Errorf("%s: %w", s.driver.name, busdev.ErrNotConnected)
	}
	return s.port, nil
}

// Reader reads one response from port within timeout
type Reader func(port busdev.Port, timeout time.Duration) ([]byte, error)

// ReadExact returns a Reader for a fixed-size response
func ReadExact(n int) Reader {
	return func(port busdev.Port, timeout time.Duration) ([]byte, error) {
		return port.ReadExact(n, timeout)
	}
}

// ReadUntil returns a Reader for a delimited response
func ReadUntil(delim byte, maxLen int) Reader {
	return func(port busdev.Port, timeout time.Duration) ([]byte, error) {
		return port.ReadUntil(delim, maxLen, timeout)
	}
}

// Request describes one exchange. An empty Frame skips the write, which
// turns the exchange into a receive.
type Request struct {
	// Validate checks the response; its error decides whether to retry
	Validate func(resp []byte) error
	Read     Reader
	Op       string
	Frame    []byte
	// Echo is the byte sequence the device repeats before responding
	Echo []byte
	// Attempts overrides the retry policy's attempt count when > 0
	Attempts int
	// Timeout overrides the per-attempt read timeout when > 0
	Timeout time.Duration
	// Force bypasses redundant-send suppression and leaves the record of
	// the last suppressible request untouched
	Force bool
}

// Exchange runs req with the session's retry policy. Timeouts, echo
// mismatches and checksum failures are retried; once the attempts are
// spent the last error is returned with its kind intact.
func (s *Session) Exchange(ctx context.Context, req Request) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.driver.suppress && !req.Force && len(req.Frame) > 0 &&
		s.repeat != nil && bytes.Equal(req.Frame, s.repeat.frame) {
		busdev.Debugf("%s: %s suppressed, repeating last response", s.driver.name, req.Op)
		return append([]byte(nil), s.repeat.resp...), nil
	}

	cfg := s.retry.Copy()
	if req.Attempts > 0 {
		cfg.MaxAttempts = req.Attempts
	}

	var resp []byte
	err := busdev.RetryWithConfig(ctx, cfg, func(attempt int) error {
		var attemptErr error
		resp, attemptErr = s.attempt(ctx, req, attempt)
		return attemptErr
	})
	if err != nil {
		s.state.Store(int32(StateFailed))
		if errors.Is(err, busdev.ErrClosed) || errors.Is(err, busdev.ErrNotConnected) {
			s.state.Store(int32(StateDisconnected))
		}
		if !req.Force {
			s.repeat = nil
		}
		return nil, err
	}

	s.state.Store(int32(StateStable))
	s.seq.Add(1)
	if len(req.Frame) > 0 && !req.Force {
		s.repeat = &repeatRecord{
			frame: append([]byte(nil), req.Frame...),
			resp:  append([]byte(nil), resp...),
		}
	}
	return resp, nil
}

func (s *Session) attempt(ctx context.Context, req Request, attempt int) ([]byte, error) {
	port, err := s.currentPort()
	if err != nil {
		return nil, err
	}
	timeout := s.attemptTimeout(ctx, req.Timeout)

	if attempt > 1 {
		_ = port.Flush()
	}

	s.state.Store(int32(StateAwaitingEcho))
	if len(req.Frame) > 0 {
		if _, err := port.Write(req.Frame); err != nil {
			return nil, err
		}
		s.lastReq = append(s.lastReq[:0], req.Frame...)
	}

	if len(req.Echo) > 0 {
		echo, err := port.ReadExact(len(req.Echo), timeout)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(echo, req.Echo) {
			return nil, busdev.NewNackError(req.Op, port.Path(),
				fmt.Sprintf("echo % x, want % x", echo, req.Echo))
		}
	}

	s.state.Store(int32(StateAwaitingResponse))
	var resp []byte
	if req.Read != nil {
		resp, err = req.Read(port, timeout)
		if err != nil {
			return nil, err
		}
	}
	if req.Validate != nil {
		if err := req.Validate(resp); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// attemptTimeout is the per-attempt read timeout, shortened to the
// context deadline
func (s *Session) attemptTimeout(ctx context.Context, override time.Duration) time.Duration {
	timeout := s.retry.AttemptTimeout
	if override > 0 {
		timeout = override
	}
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			remaining = time.Millisecond
		}
		if timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

// Send runs a declared fixed-frame command and decodes its response
func (s *Session) Send(ctx context.Context, opcode byte, payload []byte) (*Snapshot, error) {
	return s.SendTimeout(ctx, opcode, payload, 0)
}

// SendTimeout is Send with a per-attempt read timeout for commands the
// device takes longer to answer
func (s *Session) SendTimeout(ctx context.Context, opcode byte, payload []byte, timeout time.Duration) (*Snapshot, error) {
	cmd, ok := s.driver.commands[opcode]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no opcode 0x%02x", busdev.ErrInvalidParameter, s.driver.name, opcode)
	}
	frm, err := frame.EncodeFixed(opcode, payload, cmd.RequestSize, cmd.RequestChecksum)
	if err != nil {
		return nil, err
	}

	req := Request{
		Op:      cmd.Name,
		Frame:   frm,
		Echo:    frm[:cmd.EchoSize],
		Timeout: timeout,
	}
	if cmd.ResponseSize > 0 {
		req.Read = ReadExact(cmd.ResponseSize)
		req.Validate = func(block []byte) error {
			if cmd.EchoInBlock && block[0] != opcode {
				return busdev.NewNackError(cmd.Name, s.Path(),
					fmt.Sprintf("echo 0x%02x, want 0x%02x", block[0], opcode))
			}
			return frame.VerifyFixed(block, cmd.ResponseSize, cmd.ResponseChecksum)
		}
	}

	block, err := s.Exchange(ctx, req)
	if err != nil {
		return nil, err
	}
	return newSnapshot(cmd, s.Seq(), block)
}

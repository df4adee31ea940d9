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

// Package uart provides a busdev.Port over a serial line
package uart

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/internal/transport"
)

// Transport is a serial line opened with go.bug.st/serial
type Transport struct {
	port    serial.Port
	config  busdev.PortConfig
	timeout time.Duration
	writeMu sync.Mutex
	closed  atomic.Bool
}

// Open validates cfg and opens the line. The config is copied; later
// changes to cfg have no effect on the transport.
func Open(cfg busdev.PortConfig) (*Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := modeFor(cfg)
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(cfg.Path, mode)
	if err != nil {
		return nil, openError(cfg.Path, err)
	}
	busdev.Debugf("opened %s", cfg)
	return newTransport(port, cfg), nil
}

// Opener adapts Open to the session opener signature
func Opener(cfg busdev.PortConfig) (busdev.Port, error) {
	t, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func newTransport(port serial.Port, cfg busdev.PortConfig) *Transport {
	return &Transport{port: port, config: cfg, timeout: cfg.ReadTimeout}
}

func modeFor(cfg busdev.PortConfig) (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
	}
	switch cfg.Parity {
	case busdev.ParityNone, "":
		mode.Parity = serial.NoParity
	case busdev.ParityOdd:
		mode.Parity = serial.OddParity
	case busdev.ParityEven:
		mode.Parity = serial.EvenParity
	default:
		return nil, fmt.Errorf("%w: parity %q", busdev.ErrOutOfRange, cfg.Parity)
	}
	switch cfg.StopBits {
	case 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, busdev.NewRangeError("stop_bits", cfg.StopBits, 1, 2)
	}
	return mode, nil
}

// openError classifies an OS refusal. Every variant is ErrOpen.
func openError(path string, err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortBusy:
			return busdev.NewOpenError(path, fmt.Errorf("busy: %w", err))
		case serial.PortNotFound:
			return busdev.NewOpenError(path, fmt.Errorf("not found: %w", err))
		case serial.PermissionDenied:
			return busdev.NewOpenError(path, fmt.Errorf("permission denied: %w", err))
		default:
		}
	}
	return busdev.NewOpenError(path, err)
}

// ReadChunk performs one read bounded by wait. A read interrupted by Close
// reports ErrClosed.
func (t *Transport) ReadChunk(p []byte, wait time.Duration) (int, error) {
	if t.port == nil || t.closed.Load() {
		return 0, t.closedError()
	}
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	if err := t.port.SetReadTimeout(wait); err != nil {
		return 0, busdev.NewReadError(t.config.Path, err)
	}
	n, err := t.port.Read(p)
	if err != nil {
		var portErr *serial.PortError
		if t.closed.Load() || (errors.As(err, &portErr) && portErr.Code() == serial.PortClosed) {
			return 0, t.closedError()
		}
		return 0, busdev.NewReadError(t.config.Path, err)
	}
	return n, nil
}

func (t *Transport) closedError() error {
	return busdev.NewTransportError("read", t.config.Path, busdev.ErrClosed, busdev.ErrorTypePermanent)
}

func (t *Transport) deadlines(timeout time.Duration) transport.Deadlines {
	if timeout <= 0 {
		timeout = t.timeout
	}
	return transport.Deadlines{Overall: timeout, InterByte: t.config.InterByteTimeout}
}

// Write sends p in full
func (t *Transport) Write(p []byte) (int, error) {
	if t.port == nil || t.closed.Load() {
		return 0, busdev.NewWriteError(t.config.Path, busdev.ErrClosed)
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	busdev.Debugf("%s TX % x", t.config.Path, p)
	written := 0
	for written < len(p) {
		n, err := t.port.Write(p[written:])
		if err != nil {
			return written, busdev.NewWriteError(t.config.Path, err)
		}
		written += n
	}
	return written, nil
}

// ReadExact reads exactly n bytes within timeout
func (t *Transport) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	return transport.ReadFull(t, t.config.Path, n, t.deadlines(timeout))
}

// ReadUntil reads through delim, or maxLen bytes
func (t *Transport) ReadUntil(delim byte, maxLen int, timeout time.Duration) ([]byte, error) {
	return transport.ReadUntil(t, t.config.Path, delim, maxLen, t.deadlines(timeout))
}

// Flush discards unread input
func (t *Transport) Flush() error {
	if t.port == nil || t.closed.Load() {
		return t.closedError()
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		return busdev.NewReadError(t.config.Path, err)
	}
	return nil
}

// SetTimeout sets the default overall read timeout
func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout %v", busdev.ErrInvalidParameter, timeout)
	}
	t.timeout = timeout
	return nil
}

// Close releases the line. A read blocked in another goroutine returns
// ErrClosed. Safe to call more than once.
func (t *Transport) Close() error {
	if t.port == nil || !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("close %s: %w", t.config.Path, err)
	}
	busdev.Debugf("closed %s", t.config.Path)
	return nil
}

// IsConnected returns true while the line is open
func (t *Transport) IsConnected() bool {
	return t.port != nil && !t.closed.Load()
}

// Type returns PortUART
func (*Transport) Type() busdev.PortType {
	return busdev.PortUART
}

// Path returns the device path
func (t *Transport) Path() string {
	return t.config.Path
}

// Config returns the line settings the transport was opened with
func (t *Transport) Config() busdev.PortConfig {
	return t.config
}

var (
	_ busdev.Port      = (*Transport)(nil)
	_ transport.Source = (*Transport)(nil)
)

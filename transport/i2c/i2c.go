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

// Package i2c exposes an I2C slave that streams bytes (a bridge or a
// sensor with a FIFO) as a busdev.Port
package i2c

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/internal/transport"
)

const (
	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz

	defaultTimeout = 100 * time.Millisecond
	pollInterval   = time.Millisecond
)

// Option configures a Transport
type Option func(*Transport)

// WithIdleByte treats b as "no data". Bridges that clock out a filler
// byte while their FIFO is empty need this.
func WithIdleByte(b byte) Option {
	return func(t *Transport) {
		t.idle = b
		t.hasIdle = true
	}
}

// WithTimeout sets the default overall read timeout
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		t.timeout = d
	}
}

// Transport is a byte stream over one I2C slave address
type Transport struct {
	dev     conn.Conn
	bus     i2c.BusCloser
	name    string
	mu      sync.Mutex
	timeout time.Duration
	closed  atomic.Bool
	idle    byte
	hasIdle bool
}

// Open initialises the host drivers, opens busName ("" picks the first
// bus) and binds addr
func Open(busName string, addr uint16, opts ...Option) (*Transport, error) {
	if addr > 0x7F {
		return nil, busdev.NewRangeError("i2c address", addr, 0, 0x7F)
	}
	if _, err := host.Init(); err != nil {
		return nil, busdev.NewOpenError(busName, fmt.Errorf("periph host init: %w", err))
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, busdev.NewOpenError(busName, err)
	}
	_ = bus.SetSpeed(maxClockFreq) // Ignore error, continue with default speed

	dev := &i2c.Dev{Addr: addr, Bus: bus}
	t := newTransport(dev, fmt.Sprintf("%s@0x%02x", busName, addr), opts...)
	t.bus = bus
	return t, nil
}

func newTransport(dev conn.Conn, name string, opts ...Option) *Transport {
	t := &Transport{dev: dev, name: name, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ReadChunk clocks out one byte. An idle byte counts as no data and costs
// one poll interval.
func (t *Transport) ReadChunk(p []byte, wait time.Duration) (int, error) {
	if t.dev == nil || t.closed.Load() {
		return 0, busdev.NewTransportError("read", t.name, busdev.ErrClosed, busdev.ErrorTypePermanent)
	}
	if len(p) == 0 {
		return 0, nil
	}
	t.mu.Lock()
	err := t.dev.Tx(nil, p[:1])
	t.mu.Unlock()
	if err != nil {
		return 0, busdev.NewReadError(t.name, err)
	}
	if t.hasIdle && p[0] == t.idle {
		time.Sleep(min(wait, pollInterval))
		return 0, nil
	}
	return 1, nil
}

// Write sends p as one I2C write transaction
func (t *Transport) Write(p []byte) (int, error) {
	if t.dev == nil || t.closed.Load() {
		return 0, busdev.NewWriteError(t.name, busdev.ErrClosed)
	}
	busdev.Debugf("%s TX % x", t.name, p)
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.dev.Tx(p, nil); err != nil {
		return 0, busdev.NewWriteError(t.name, err)
	}
	return len(p), nil
}

func (t *Transport) deadlines(timeout time.Duration) transport.Deadlines {
	if timeout <= 0 {
		timeout = t.timeout
	}
	return transport.Deadlines{Overall: timeout}
}

// ReadExact reads exactly n bytes
func (t *Transport) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	return transport.ReadFull(t, t.name, n, t.deadlines(timeout))
}

// ReadUntil reads through delim, or maxLen bytes
func (t *Transport) ReadUntil(delim byte, maxLen int, timeout time.Duration) ([]byte, error) {
	return transport.ReadUntil(t, t.name, delim, maxLen, t.deadlines(timeout))
}

// Flush drains the slave until it reports idle. Without an idle byte there
// is nothing to drain.
func (t *Transport) Flush() error {
	if !t.hasIdle {
		return nil
	}
	buf := make([]byte, 1)
	for i := 0; i < 256; i++ {
		n, err := t.ReadChunk(buf, 0)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
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

// Close releases the bus
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if t.bus != nil {
		if err := t.bus.Close(); err != nil {
			return fmt.Errorf("close %s: %w", t.name, err)
		}
	}
	return nil
}

// IsConnected returns true while the bus is open
func (t *Transport) IsConnected() bool {
	return t.dev != nil && !t.closed.Load()
}

// Type returns PortI2C
func (*Transport) Type() busdev.PortType {
	return busdev.PortI2C
}

// Path returns bus@address
func (t *Transport) Path() string {
	return t.name
}

var (
	_ busdev.Port      = (*Transport)(nil)
	_ transport.Source = (*Transport)(nil)
)

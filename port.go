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
	"fmt"
	"time"
)

// Port is a blocking, byte-level serial line. Implementations exist for
// UART (go.bug.st/serial) and I2C (periph.io) backends.
type Port interface {
	// Write sends p to the device
	Write(p []byte) (int, error)

	// ReadExact reads exactly n bytes. A zero timeout uses the port default.
	ReadExact(n int, timeout time.Duration) ([]byte, error)

	// ReadUntil reads up to and including delim, or the first max bytes
	// when delim has not appeared.
	ReadUntil(delim byte, maxLen int, timeout time.Duration) ([]byte, error)

	// Flush discards any unread input
	Flush() error

	// SetTimeout sets the default overall read timeout
	SetTimeout(timeout time.Duration) error

	// Close releases the line and unblocks any outstanding read
	Close() error

	// IsConnected returns true while the port is open
	IsConnected() bool

	// Type returns the port type
	Type() PortType

	// Path returns the device path the port was opened on
	Path() string
}

// PortType represents the type of port
type PortType string

const (
	// PortUART represents a UART/serial line.
	PortUART PortType = "uart"
	// PortI2C represents an I2C slave used as a byte stream.
	PortI2C PortType = "i2c"
	// PortMock represents a mock port for testing
	PortMock PortType = "mock"
)

// Parity mode of a serial line
type Parity string

const (
	ParityNone Parity = "none"
	ParityOdd  Parity = "odd"
	ParityEven Parity = "even"
)

// PortConfig describes a serial line. It is copied when a port is opened
// and never changes afterwards.
type PortConfig struct {
	Path             string        `yaml:"path"`
	Parity           Parity        `yaml:"parity"`
	BaudRate         int           `yaml:"baud"`
	DataBits         int           `yaml:"data_bits"`
	StopBits         int           `yaml:"stop_bits"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	InterByteTimeout time.Duration `yaml:"inter_byte_timeout"`
}

// Limits observed across the supported hardware.
const (
	MinBaudRate = 300
	MaxBaudRate = 115200
)

// DefaultPortConfig returns an 8N1 line at 9600 baud with a 500ms timeout
func DefaultPortConfig(path string) PortConfig {
	return PortConfig{
		Path:        path,
		BaudRate:    9600,
		DataBits:    8,
		Parity:      ParityNone,
		StopBits:    1,
		ReadTimeout: 500 * time.Millisecond,
	}
}

// WithPath returns a copy of c opened on path
func (c PortConfig) WithPath(path string) PortConfig {
	c.Path = path
	return c
}

// Validate checks the line parameters against the supported ranges
func (c PortConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: empty device path", ErrInvalidParameter)
	}
	if c.BaudRate < MinBaudRate || c.BaudRate > MaxBaudRate {
		return NewRangeError("baud", c.BaudRate, MinBaudRate, MaxBaudRate)
	}
	if c.DataBits != 7 && c.DataBits != 8 {
		return NewRangeError("data_bits", c.DataBits, 7, 8)
	}
	switch c.Parity {
	case ParityNone, ParityOdd, ParityEven:
	default:
		return fmt.Errorf("%w: parity %q", ErrOutOfRange, c.Parity)
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return NewRangeError("stop_bits", c.StopBits, 1, 2)
	}
	if c.ReadTimeout < 0 || c.InterByteTimeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidParameter)
	}
	return nil
}

// String renders the line settings in the usual 9600/8N1 notation
func (c PortConfig) String() string {
	p := "N"
	switch c.Parity {
	case ParityOdd:
		p = "O"
	case ParityEven:
		p = "E"
	case ParityNone:
	}
	return fmt.Sprintf("%s %d/%d%s%d", c.Path, c.BaudRate, c.DataBits, p, c.StopBits)
}

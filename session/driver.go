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

package session

import (
	"fmt"
	"sort"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/codec"
	"github.com/spacebus/go-busdev/internal/frame"
)

// Framing identifies how a device delimits its messages
type Framing int

const (
	// FramingFixed is a fixed-size frame with an additive trailer
	FramingFixed Framing = iota
	// FramingSLIP is SLIP with a CRC-16 trailer
	FramingSLIP
	// FramingKISS is KISS carrying AX.25 UI frames
	FramingKISS
	// FramingCIV is Icom CI-V
	FramingCIV
	// FramingASCII is terminated ASCII text
	FramingASCII
)

func (f Framing) String() string {
	switch f {
	case FramingFixed:
		return "fixed"
	case FramingSLIP:
		return "slip"
	case FramingKISS:
		return "kiss"
	case FramingCIV:
		return "civ"
	case FramingASCII:
		return "ascii"
	default:
		return fmt.Sprintf("framing(%d)", int(f))
	}
}

// FieldKind selects how a telemetry field is unpacked
type FieldKind int

const (
	FieldUint FieldKind = iota
	FieldInt
	FieldFloat32
)

// Field locates one named value inside a response block
type Field struct {
	Name   string
	Offset int
	Width  int
	Kind   FieldKind
	Order  codec.Order
	// Scale multiplies the raw value; zero means 1
	Scale float64
}

func (f Field) validate(blockSize int) error {
	if f.Name == "" {
		return fmt.Errorf("%w: unnamed field", busdev.ErrInvalidParameter)
	}
	if f.Kind == FieldFloat32 && f.Width != 4 {
		return fmt.Errorf("%w: field %s: float32 needs width 4", busdev.ErrInvalidParameter, f.Name)
	}
	if f.Width < 1 || f.Width > 8 {
		return fmt.Errorf("%w: field %s: width %d", busdev.ErrInvalidParameter, f.Name, f.Width)
	}
	if f.Offset < 0 || f.Offset+f.Width > blockSize {
		return fmt.Errorf("%w: field %s: [%d, %d) outside %d-byte block",
			busdev.ErrInvalidParameter, f.Name, f.Offset, f.Offset+f.Width, blockSize)
	}
	return nil
}

func (f Field) decode(block []byte) (float64, error) {
	src := block[f.Offset:]
	var v float64
	switch f.Kind {
	case FieldInt:
		n, err := codec.Int(src, f.Width, f.Order)
		if err != nil {
			return 0, err
		}
		v = float64(n)
	case FieldFloat32:
		n, err := codec.Float32(src, f.Order)
		if err != nil {
			return 0, err
		}
		v = float64(n)
	default:
		n, err := codec.Uint(src, f.Width, f.Order)
		if err != nil {
			return 0, err
		}
		v = float64(n)
	}
	if f.Scale != 0 {
		v *= f.Scale
	}
	return v, nil
}

// Command declares the wire layout of one opcode. A request is RequestSize
// bytes starting with Opcode. The device then echoes the first EchoSize
// request bytes and sends a ResponseSize block. With EchoInBlock the echo
// is instead the first byte of the block and covered by its checksum.
type Command struct {
	Name             string
	Fields           []Field
	RequestChecksum  frame.Checksum
	ResponseChecksum frame.Checksum
	RequestSize      int
	EchoSize         int
	ResponseSize     int
	Opcode           byte
	EchoInBlock      bool
}

func (c Command) clone() Command {
	c.Fields = append([]Field(nil), c.Fields...)
	return c
}

func (c Command) validate() error {
	if c.RequestSize < 1 {
		return fmt.Errorf("%w: %s: request size %d", busdev.ErrInvalidParameter, c.Name, c.RequestSize)
	}
	if err := c.RequestChecksum.Validate(c.RequestSize); err != nil {
		return fmt.Errorf("%s request: %w", c.Name, err)
	}
	if c.EchoSize < 0 || c.EchoSize > c.RequestSize {
		return fmt.Errorf("%w: %s: echo size %d", busdev.ErrInvalidParameter, c.Name, c.EchoSize)
	}
	if c.EchoInBlock && (c.EchoSize != 0 || c.ResponseSize < 1) {
		return fmt.Errorf("%w: %s: in-block echo needs a response and no separate echo",
			busdev.ErrInvalidParameter, c.Name)
	}
	if c.ResponseSize < 0 {
		return fmt.Errorf("%w: %s: response size %d", busdev.ErrInvalidParameter, c.Name, c.ResponseSize)
	}
	if c.ResponseSize > 0 {
		if err := c.ResponseChecksum.Validate(c.ResponseSize); err != nil {
			return fmt.Errorf("%s response: %w", c.Name, err)
		}
	}
	for _, f := range c.Fields {
		if err := f.validate(c.ResponseSize); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	}
	return nil
}

// DriverConfig is the input to NewDriver
type DriverConfig struct {
	Retry           *busdev.RetryConfig
	Name            string
	Commands        []Command
	Port            busdev.PortConfig
	Framing         Framing
	SuppressRepeats bool
}

// Driver is an immutable device declaration: line defaults, retry policy
// and the command table. Safe to share between sessions.
type Driver struct {
	retry    *busdev.RetryConfig
	commands map[byte]Command
	name     string
	port     busdev.PortConfig
	framing  Framing
	suppress bool
}

// NewDriver validates cfg and copies everything it references
func NewDriver(cfg DriverConfig) (*Driver, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: driver name", busdev.ErrInvalidParameter)
	}
	d := &Driver{
		name:     cfg.Name,
		framing:  cfg.Framing,
		port:     cfg.Port,
		retry:    cfg.Retry.Copy(),
		suppress: cfg.SuppressRepeats,
		commands: make(map[byte]Command, len(cfg.Commands)),
	}
	for _, c := range cfg.Commands {
		if _, dup := d.commands[c.Opcode]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate opcode 0x%02x", busdev.ErrInvalidParameter, cfg.Name, c.Opcode)
		}
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Name, err)
		}
		d.commands[c.Opcode] = c.clone()
	}
	return d, nil
}

// MustDriver is NewDriver for package-level declarations
func MustDriver(cfg DriverConfig) *Driver {
	d, err := NewDriver(cfg)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the driver name
func (d *Driver) Name() string { return d.name }

// Framing returns the wire framing
func (d *Driver) Framing() Framing { return d.framing }

// PortConfig returns the default line settings. Path is empty unless the
// driver pins one.
func (d *Driver) PortConfig() busdev.PortConfig { return d.port }

// RetryConfig returns a copy of the retry policy
func (d *Driver) RetryConfig() *busdev.RetryConfig { return d.retry.Copy() }

// SuppressRepeats reports whether identical consecutive requests are
// answered from the last response
func (d *Driver) SuppressRepeats() bool { return d.suppress }

// Command looks up an opcode
func (d *Driver) Command(opcode byte) (Command, bool) {
	c, ok := d.commands[opcode]
	if !ok {
		return Command{}, false
	}
	return c.clone(), true
}

// Commands returns every declared command ordered by opcode
func (d *Driver) Commands() []Command {
	out := make([]Command, 0, len(d.commands))
	for _, c := range d.commands {
		out = append(out, c.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Opcode < out[j].Opcode })
	return out
}

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

// Package torquerod drives a three-channel magnetic torque rod controller
// over its additive-checksum serial protocol.
package torquerod

import (
	"time"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/codec"
	"github.com/spacebus/go-busdev/internal/frame"
	"github.com/spacebus/go-busdev/session"
)

// Opcodes
const (
	OpReset       = 0x00
	OpSetVoltage  = 0xa0
	OpSetCurrent  = 0xa1
	OpEnable      = 0xa2
	OpDisable     = 0xa3
	OpReverse     = 0xa4
	OpGetVoltage  = 0xa5
	OpGetCurrent  = 0xa6
	OpSetAmps     = 0xc0 // plus channel
	OpTelemetry   = 0xd1
	OpLegacyAmps  = 0xda // plus channel
	Channels      = 3
	TelemetrySize = 32
)

// Current limits, in amps
const (
	MaxAmps       = 0.1
	CalibratedMax = 0.0999
	MaxLegacyAmps = 0.2
	legacyScale   = 0.18
	// MaxMoment is the largest commanded moment in A·m²; larger requests
	// are scaled down together
	MaxMoment = 32.0
	// Tolerance is the largest accepted difference between commanded and
	// reported current
	Tolerance = 0.0005
)

var (
	cmdSum       = frame.Checksum{Algorithm: frame.Sum8Complement, Start: 0, End: 4, Offset: 4}
	telemetrySum = frame.Checksum{Algorithm: frame.Sum8Complement, Start: 0, End: 29, Offset: 29}
)

func command(name string, op byte, responseSize int, fields ...session.Field) session.Command {
	return session.Command{
		Name:            name,
		Opcode:          op,
		RequestSize:     5,
		RequestChecksum: cmdSum,
		EchoSize:        1,
		ResponseSize:    responseSize,
		Fields:          fields,
	}
}

func u16(name string, off int) session.Field {
	return session.Field{Name: name, Offset: off, Width: 2, Kind: session.FieldUint, Order: codec.BigEndian}
}

func declare() session.DriverConfig {
	cmds := []session.Command{
		command("reset", OpReset, 0),
		command("set voltage", OpSetVoltage, 0),
		command("set current", OpSetCurrent, 0),
		command("enable", OpEnable, 0),
		command("disable", OpDisable, 0),
		command("reverse", OpReverse, 0),
		command("get voltage", OpGetVoltage, 2, u16("voltage", 0)),
		command("get current", OpGetCurrent, 2,
			session.Field{Name: "current", Offset: 0, Width: 2, Kind: session.FieldInt, Order: codec.BigEndian}),
		{
			Name:             "telemetry",
			Opcode:           OpTelemetry,
			RequestSize:      5,
			RequestChecksum:  cmdSum,
			EchoSize:         1,
			ResponseSize:     TelemetrySize,
			ResponseChecksum: telemetrySum,
			Fields: []session.Field{
				u16("status", 0),
				u16("count", 2),
				u16("invalid", 4),
				{Name: "dac0", Offset: 6, Width: 4, Kind: session.FieldInt, Order: codec.BigEndian},
				{Name: "dac1", Offset: 10, Width: 4, Kind: session.FieldInt, Order: codec.BigEndian},
				{Name: "dac2", Offset: 14, Width: 4, Kind: session.FieldInt, Order: codec.BigEndian},
				u16("temperature", 18),
				u16("voltage", 20),
				{Name: "resets", Offset: 28, Width: 1, Kind: session.FieldUint},
			},
		},
	}
	for ch := byte(0); ch < Channels; ch++ {
		cmds = append(cmds,
			command("set amps", OpSetAmps+ch, 0),
			session.Command{
				Name:        "legacy set current",
				Opcode:      OpLegacyAmps + ch,
				RequestSize: 3,
				EchoSize:    1,
			},
		)
	}

	port := busdev.DefaultPortConfig("")
	port.BaudRate = 115200
	port.ReadTimeout = 100 * time.Millisecond

	retry := busdev.DefaultRetryConfig()
	retry.AttemptTimeout = 100 * time.Millisecond

	return session.DriverConfig{
		Name:     "torquerod",
		Framing:  session.FramingFixed,
		Port:     port,
		Retry:    retry,
		Commands: cmds,
	}
}

// Driver is the torque rod controller declaration
var Driver = session.MustDriver(declare())

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

// Package imu drives MicroStrain 3DM-GX inertial measurement units. Each
// command is a single opcode byte answered by a fixed-size block that
// starts with the opcode and ends in a 16-bit additive checksum.
package imu

import (
	"fmt"
	"time"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/codec"
	"github.com/spacebus/go-busdev/internal/frame"
	"github.com/spacebus/go-busdev/session"
)

// Opcodes
const (
	OpRawAccelRate            = 0xc1
	OpAccelRate               = 0xc2
	OpDeltaAngleVelocity      = 0xc3
	OpOrientation             = 0xc5
	OpOrientationUpdate       = 0xc6
	OpMagnetometer            = 0xc7
	OpAccelRateMag            = 0xcb
	OpAccelRateMagOrientation = 0xcc
	OpCaptureGyroBias         = 0xcd
	OpEuler                   = 0xce
	OpEulerRates              = 0xcf
	OpTemperature             = 0xd1
	OpStabilisedAccelRateMag  = 0xd2
	OpFirmware                = 0xe9
	OpDeviceID                = 0xea
	OpStopContinuous          = 0xfa
)

// MaxDevices is the number of units that may be open at once
const MaxDevices = 4

// Unit conversions
const (
	Gravity  = 9.80665
	rawScale = 5.0 / 65535
	adcScale = 3.3 / 4096
)

type layout struct {
	name    string
	request int
	size    int
	floats  int
	op      byte
	timed   bool
}

var layouts = []layout{
	{name: "raw accel rate", op: OpRawAccelRate, request: 1, size: 31, floats: 6, timed: true},
	{name: "accel rate", op: OpAccelRate, request: 1, size: 31, floats: 6, timed: true},
	{name: "delta angle velocity", op: OpDeltaAngleVelocity, request: 1, size: 31, floats: 6, timed: true},
	{name: "orientation", op: OpOrientation, request: 1, size: 43, floats: 9, timed: true},
	{name: "orientation update", op: OpOrientationUpdate, request: 1, size: 43, floats: 9, timed: true},
	{name: "magnetometer", op: OpMagnetometer, request: 1, size: 19, floats: 3, timed: true},
	{name: "accel rate mag", op: OpAccelRateMag, request: 1, size: 43, floats: 9, timed: true},
	{name: "accel rate mag orientation", op: OpAccelRateMagOrientation, request: 1, size: 79, floats: 18, timed: true},
	{name: "capture gyro bias", op: OpCaptureGyroBias, request: 5, size: 19, floats: 3, timed: true},
	{name: "euler", op: OpEuler, request: 1, size: 19, floats: 3, timed: true},
	{name: "euler rates", op: OpEulerRates, request: 1, size: 31, floats: 6, timed: true},
	{name: "temperature", op: OpTemperature, request: 1, size: 15, timed: true},
	{name: "stabilised accel rate mag", op: OpStabilisedAccelRateMag, request: 1, size: 43, floats: 9, timed: true},
	{name: "firmware", op: OpFirmware, request: 1, size: 7},
	{name: "device id", op: OpDeviceID, request: 2, size: 20},
	{name: "stop continuous", op: OpStopContinuous, request: 1},
}

func valueName(i int) string {
	return fmt.Sprintf("v%d", i)
}

func (l layout) command() session.Command {
	cmd := session.Command{
		Name:        l.name,
		Opcode:      l.op,
		RequestSize: l.request,
	}
	if l.size == 0 {
		return cmd
	}
	cmd.ResponseSize = l.size
	cmd.EchoInBlock = true
	cmd.ResponseChecksum = frame.Checksum{Algorithm: frame.Sum16, Start: 0, End: l.size - 2, Offset: l.size - 2}
	for i := 0; i < l.floats; i++ {
		cmd.Fields = append(cmd.Fields, session.Field{
			Name: valueName(i), Offset: 1 + 4*i, Width: 4, Kind: session.FieldFloat32, Order: codec.BigEndian,
		})
	}
	if l.timed {
		cmd.Fields = append(cmd.Fields, session.Field{
			Name: "timer", Offset: l.size - 6, Width: 4, Kind: session.FieldUint, Order: codec.BigEndian,
		})
	}
	switch l.op {
	case OpTemperature:
		for i, name := range []string{"accel", "gyro_x", "gyro_y", "gyro_z"} {
			cmd.Fields = append(cmd.Fields, session.Field{
				Name: name, Offset: 1 + 2*i, Width: 2, Kind: session.FieldUint, Order: codec.BigEndian, Scale: adcScale,
			})
		}
	case OpFirmware:
		cmd.Fields = append(cmd.Fields, session.Field{
			Name: "version", Offset: 1, Width: 4, Kind: session.FieldUint, Order: codec.BigEndian,
		})
	}
	return cmd
}

func declare() session.DriverConfig {
	cmds := make([]session.Command, 0, len(layouts))
	for _, l := range layouts {
		cmds = append(cmds, l.command())
	}

	port := busdev.DefaultPortConfig("")
	port.BaudRate = 115200
	port.ReadTimeout = 500 * time.Millisecond

	retry := busdev.DefaultRetryConfig()
	retry.AttemptTimeout = 500 * time.Millisecond

	return session.DriverConfig{
		Name:     "imu",
		Framing:  session.FramingFixed,
		Port:     port,
		Retry:    retry,
		Commands: cmds,
	}
}

// Driver is the IMU declaration
var Driver = session.MustDriver(declare())

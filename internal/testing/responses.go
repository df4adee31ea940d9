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

// Package testing holds wire-level builders and virtual devices for tests.
// Virtual devices answer writes the way the hardware does; plug their
// Respond method into busdev.MockPort.SetResponder.
package testing

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/spacebus/go-busdev/internal/frame"
)

// TorqueRodTelemetry is the content of a torque rod telemetry block
type TorqueRodTelemetry struct {
	DAC         [3]int32
	Status      uint16
	Count       uint16
	Invalid     uint16
	Temperature uint16
	Voltage     uint16
	Resets      uint8
}

// BuildTorqueRodTelemetry creates the 32-byte block that follows the 0xd1
// echo, with the additive checksum over bytes 0..28 at byte 29
func BuildTorqueRodTelemetry(t TorqueRodTelemetry) []byte {
	block := make([]byte, 32)
	binary.BigEndian.PutUint16(block[0:], t.Status)
	binary.BigEndian.PutUint16(block[2:], t.Count)
	binary.BigEndian.PutUint16(block[4:], t.Invalid)
	for i, d := range t.DAC {
		binary.BigEndian.PutUint32(block[6+4*i:], uint32(d))
	}
	binary.BigEndian.PutUint16(block[18:], t.Temperature)
	binary.BigEndian.PutUint16(block[20:], t.Voltage)
	block[28] = t.Resets
	block[29] = frame.CalculateSum8Complement(block[:29])
	return block
}

// BuildIMUBlock creates an IMU response of size bytes: opcode, big-endian
// floats from offset 1, the timer at size-6 when timed, and the 16-bit sum
// trailer
func BuildIMUBlock(opcode byte, size int, values []float32, timer uint32, timed bool) []byte {
	block := make([]byte, size)
	block[0] = opcode
	for i, v := range values {
		off := 1 + 4*i
		if off+4 > size-2 {
			break
		}
		binary.BigEndian.PutUint32(block[off:], math.Float32bits(v))
	}
	if timed && size >= 7 {
		binary.BigEndian.PutUint32(block[size-6:], timer)
	}
	return sealIMU(block)
}

// BuildIMUTemperature creates the 15-byte temperature response from four
// raw 12-bit sensor readings: accelerometer then gyro x, y, z
func BuildIMUTemperature(raw [4]uint16, timer uint32) []byte {
	block := make([]byte, 15)
	block[0] = 0xd1
	for i, r := range raw {
		binary.BigEndian.PutUint16(block[1+2*i:], r)
	}
	binary.BigEndian.PutUint32(block[9:], timer)
	return sealIMU(block)
}

// BuildIMUFirmware creates the 7-byte firmware version response
func BuildIMUFirmware(version uint32) []byte {
	block := make([]byte, 7)
	block[0] = 0xe9
	binary.BigEndian.PutUint32(block[1:], version)
	return sealIMU(block)
}

// BuildIMUDeviceID creates the 20-byte identifier response
func BuildIMUDeviceID(selector byte, id string) []byte {
	block := make([]byte, 20)
	block[0] = 0xea
	block[1] = selector
	copy(block[2:18], fmt.Sprintf("%-16s", id))
	return sealIMU(block)
}

func sealIMU(block []byte) []byte {
	n := len(block)
	binary.BigEndian.PutUint16(block[n-2:], frame.CalculateSum16(block[:n-2]))
	return block
}

// BuildCIVReply creates a CI-V frame from the radio at addr to the
// controller
func BuildCIVReply(addr, cmd byte, data ...byte) []byte {
	out := []byte{frame.CIVPreamble, frame.CIVPreamble, frame.CIVController, addr, cmd}
	out = append(out, data...)
	return append(out, frame.CIVTerminator)
}

// BuildCIVOK creates the acknowledgement a radio sends for a set command
func BuildCIVOK(addr byte) []byte {
	return BuildCIVReply(addr, frame.CIVOK)
}

// BuildCIVNG creates the rejection a radio sends for a bad command
func BuildCIVNG(addr byte) []byte {
	return BuildCIVReply(addr, frame.CIVNG)
}

// BuildGS232Position creates the reply to a C2 query
func BuildGS232Position(az, el int) []byte {
	return []byte(fmt.Sprintf("AZ=%03d  EL=%03d\r\n", az, el))
}

// BuildPRKStatus creates the reply to a BIn status query
func BuildPRKStatus(id, status byte, angle float64) []byte {
	return []byte(fmt.Sprintf("%c%c%05.1f;", id, status, angle))
}

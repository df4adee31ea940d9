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

package testing

import "sync"

type imuReply struct {
	request int
	size    int
	timed   bool
}

var imuReplies = map[byte]imuReply{
	0xc1: {1, 31, true},
	0xc2: {1, 31, true},
	0xc3: {1, 31, true},
	0xc5: {1, 43, true},
	0xc6: {1, 43, true},
	0xc7: {1, 19, true},
	0xcb: {1, 43, true},
	0xcc: {1, 79, true},
	0xcd: {5, 19, true},
	0xce: {1, 19, true},
	0xcf: {1, 31, true},
	0xd1: {1, 15, true},
	0xd2: {1, 43, true},
	0xe9: {1, 7, false},
	0xea: {2, 20, false},
	0xfa: {1, 0, false},
}

// VirtualIMU simulates a MicroStrain inertial unit. Each reply advances
// the timer by one tick.
type VirtualIMU struct {
	values map[byte][]float32

	ID          string
	Temperature [4]uint16
	Firmware    uint32
	Timer       uint32
	// BiasWindow is the capture time requested by the last 0xcd command
	BiasWindow uint16

	NackNext    int
	CorruptNext int
	Silent      bool
	StopCount   int

	mu sync.Mutex
}

// NewVirtualIMU creates an IMU reporting zeros
func NewVirtualIMU() *VirtualIMU {
	return &VirtualIMU{
		values:      make(map[byte][]float32),
		ID:          "6225-4220",
		Temperature: [4]uint16{931, 3103, 3103, 3103},
		Firmware:    1106,
	}
}

// SetValues sets the floats returned for opcode
func (v *VirtualIMU) SetValues(opcode byte, values ...float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.values[opcode] = append([]float32(nil), values...)
}

// Respond answers one written command
func (v *VirtualIMU) Respond(w []byte) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(w) == 0 || v.Silent {
		return nil
	}
	op := w[0]
	layout, ok := imuReplies[op]
	if !ok || len(w) != layout.request {
		return nil
	}
	if op == 0xcd {
		if w[1] != 0xc1 || w[2] != 0x29 {
			return nil
		}
		v.BiasWindow = uint16(w[3])<<8 | uint16(w[4])
	}
	if layout.size == 0 {
		v.StopCount++
		return nil
	}

	v.Timer++
	var block []byte
	switch op {
	case 0xd1:
		block = BuildIMUTemperature(v.Temperature, v.Timer)
	case 0xe9:
		block = BuildIMUFirmware(v.Firmware)
	case 0xea:
		block = BuildIMUDeviceID(w[1], v.ID)
	default:
		block = BuildIMUBlock(op, layout.size, v.values[op], v.Timer, layout.timed)
	}

	if v.NackNext > 0 {
		v.NackNext--
		block[0] = ^op
		block = sealIMU(block)
	} else if v.CorruptNext > 0 {
		v.CorruptNext--
		block[len(block)-1] ^= 0xFF
	}
	return block
}

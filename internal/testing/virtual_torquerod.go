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

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/spacebus/go-busdev/internal/frame"
)

// VirtualTorqueRod simulates a three-channel torque rod controller.
// Configure the exported fields before the first exchange and read them
// back once exchanges are done.
type VirtualTorqueRod struct {
	target  [3]float64
	lag     [3]int
	pending [3]bool

	// Amps is the current each channel reports in telemetry
	Amps [3]float64
	// Reading is the raw current returned by the 0xa6 query
	Reading    [3]int32
	Voltage    [3]uint16
	CurrentDAC [3]uint16
	Legacy     [3]int16
	Reversed   [3]bool

	// LagPolls is the number of telemetry polls a new setpoint takes to
	// show up
	LagPolls int
	// NackNext makes that many replies carry a wrong echo
	NackNext int

	Status      uint16
	Count       uint16
	Temperature uint16
	BusVoltage  uint16
	Resets      uint8
	Enabled     bool
	// Stuck freezes the reported currents
	Stuck bool

	mu sync.Mutex
}

// NewVirtualTorqueRod creates an idle controller
func NewVirtualTorqueRod() *VirtualTorqueRod {
	return &VirtualTorqueRod{Temperature: 25, BusVoltage: 3300}
}

// Target returns the last current setpoint of ch
func (v *VirtualTorqueRod) Target(ch int) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.target[ch]
}

// Respond answers one written frame
func (v *VirtualTorqueRod) Respond(w []byte) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(w) == 0 {
		return nil
	}
	op := w[0]
	if v.NackNext > 0 {
		v.NackNext--
		return []byte{^op}
	}

	if op >= 0xda && op <= 0xdc {
		if len(w) != 3 {
			return nil
		}
		ch := op - 0xda
		raw := int16(binary.BigEndian.Uint16(w[1:3]))
		v.Legacy[ch] = raw
		v.target[ch] = float64(raw) * 0.18 / 4095
		v.Amps[ch] = v.target[ch]
		return []byte{op}
	}

	if len(w) != 5 || frame.CalculateSum8Complement(w[:4]) != w[4] {
		return nil
	}
	ch := w[1]
	switch {
	case op == 0x00:
		if w[1] != 0xab || w[2] != 0xcd || w[3] != 0xef {
			return nil
		}
		v.reset()
	case op == 0xa0 && ch < 3:
		v.Voltage[ch] = binary.BigEndian.Uint16(w[2:4])
	case op == 0xa1 && ch < 3:
		v.CurrentDAC[ch] = binary.BigEndian.Uint16(w[2:4])
	case op == 0xa2:
		v.Enabled = true
	case op == 0xa3:
		v.Enabled = false
	case op == 0xa4 && ch < 3:
		v.Reversed[ch] = !v.Reversed[ch]
	case op == 0xa5 && ch < 3:
		out := []byte{op, 0, 0}
		binary.BigEndian.PutUint16(out[1:], v.Voltage[ch])
		return out
	case op == 0xa6 && ch < 3:
		c := v.Reading[ch]
		if c < 0 {
			c = -c - 32768
		}
		out := []byte{op, 0, 0}
		binary.BigEndian.PutUint16(out[1:], uint16(int16(c)))
		return out
	case op >= 0xc0 && op <= 0xc2:
		c := op - 0xc0
		raw := int32(uint32(w[1])<<24|uint32(w[2])<<16|uint32(w[3])<<8) >> 8
		target := float64(raw) / 1e6
		// repeating a pending setpoint does not restart its lag
		if !v.pending[c] || v.target[c] != target {
			v.lag[c] = v.LagPolls
		}
		v.target[c] = target
		v.pending[c] = true
	case op == 0xd1:
		v.step()
		return append([]byte{op}, BuildTorqueRodTelemetry(v.telemetry())...)
	default:
		return nil
	}
	return []byte{op}
}

func (v *VirtualTorqueRod) reset() {
	v.Resets++
	v.target = [3]float64{}
	v.lag = [3]int{}
	v.pending = [3]bool{}
	v.Amps = [3]float64{}
	v.Enabled = false
}

func (v *VirtualTorqueRod) step() {
	v.Count++
	if v.Stuck {
		return
	}
	for ch := range v.target {
		if !v.pending[ch] {
			continue
		}
		if v.lag[ch] > 0 {
			v.lag[ch]--
			continue
		}
		v.Amps[ch] = v.target[ch]
		v.pending[ch] = false
	}
}

func (v *VirtualTorqueRod) telemetry() TorqueRodTelemetry {
	t := TorqueRodTelemetry{
		Status:      v.Status,
		Count:       v.Count,
		Temperature: v.Temperature,
		Voltage:     v.BusVoltage,
		Resets:      v.Resets,
	}
	for ch, a := range v.Amps {
		t.DAC[ch] = int32(math.Round(a * 1e6))
	}
	return t
}

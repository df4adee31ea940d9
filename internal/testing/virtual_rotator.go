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
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// VirtualGS232B simulates a Yaesu GS-232B controller. Goto commands move
// the rotator instantly.
type VirtualGS232B struct {
	// Commands lists every command except the bare prompt probe
	Commands    []string
	Azimuth     int
	Elevation   int
	Speed       int
	Calibrating string
	Probes      int
	// Mute suppresses the prompt, as a disconnected controller would
	Mute bool

	mu sync.Mutex
}

// NewVirtualGS232B creates a controller parked at az, el
func NewVirtualGS232B(az, el int) *VirtualGS232B {
	return &VirtualGS232B{Azimuth: az, Elevation: el, Speed: 2}
}

// Sent returns a copy of the recorded commands
func (v *VirtualGS232B) Sent() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.Commands...)
}

// Respond answers one written command
func (v *VirtualGS232B) Respond(w []byte) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	cmd := string(w)
	if cmd == "\r" {
		v.Probes++
		if v.Mute {
			return nil
		}
		return []byte("?>")
	}
	v.Commands = append(v.Commands, strings.TrimSuffix(cmd, "\r"))

	switch {
	case cmd == "C2\r":
		return BuildGS232Position(v.Azimuth, v.Elevation)
	case cmd == "C\r":
		return []byte(fmt.Sprintf("AZ=%03d\r\n", v.Azimuth))
	case cmd == "B\r":
		return []byte(fmt.Sprintf("EL=%03d\r\n", v.Elevation))
	case strings.HasPrefix(cmd, "X"):
		if n, err := strconv.Atoi(strings.TrimSuffix(cmd[1:], "\r")); err == nil {
			v.Speed = n
		}
	case strings.HasPrefix(cmd, "W"):
		var az, el int
		if _, err := fmt.Sscanf(cmd, "W%d %d\r", &az, &el); err == nil {
			v.Azimuth, v.Elevation = az, el
		}
	case cmd == "O\r":
		v.Calibrating = "azimuth"
	case cmd == "O2\r":
		v.Calibrating = "elevation"
	case cmd == "y":
		v.Calibrating = ""
	}
	return nil
}

// VirtualPRKX2SU simulates one axis controller of a PRK-X2SU rotator
type VirtualPRKX2SU struct {
	Commands    []string
	Angle       float64
	Min         float64
	Max         float64
	Speeds      map[byte]int
	Calibration float64
	ID          byte
	Status      byte
	Mute        bool

	mu sync.Mutex
}

// NewVirtualPRKX2SU creates an axis at angle with limits [min, max]
func NewVirtualPRKX2SU(angle, minAngle, maxAngle float64) *VirtualPRKX2SU {
	return &VirtualPRKX2SU{
		Angle:  angle,
		Min:    minAngle,
		Max:    maxAngle,
		Speeds: make(map[byte]int),
		ID:     'A',
		Status: '0',
	}
}

// Sent returns a copy of the recorded commands
func (v *VirtualPRKX2SU) Sent() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.Commands...)
}

// Respond answers one written command
func (v *VirtualPRKX2SU) Respond(w []byte) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	cmd := string(w)
	if cmd == "R10;" {
		if v.Mute {
			return nil
		}
		return []byte{'1', 0x01, ';'}
	}
	v.Commands = append(v.Commands, cmd)

	switch {
	case cmd == "BIn;":
		return BuildPRKStatus(v.ID, v.Status, v.Angle)
	case cmd == "RH0;":
		return []byte(fmt.Sprintf("H%05.1f;", v.Min))
	case cmd == "RI0;":
		return []byte(fmt.Sprintf("H%05.1f;", v.Max))
	case len(cmd) == 7 && cmd[0] == 'W' && cmd[2] == 'n':
		if n, err := strconv.Atoi(cmd[3:6]); err == nil {
			v.Speeds[cmd[1]] = n
		}
	case strings.HasPrefix(cmd, "APn"):
		if a, err := strconv.ParseFloat(strings.TrimRight(cmd[3:], "\r;"), 64); err == nil {
			v.Angle = a
		}
	case strings.HasPrefix(cmd, "Awn"):
		if a, err := strconv.ParseFloat(strings.TrimRight(cmd[3:], ";"), 64); err == nil {
			v.Calibration = a
			v.Angle = a
		}
	}
	return nil
}

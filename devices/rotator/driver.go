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

// Package rotator drives antenna rotator controllers over their ASCII
// command protocols: the Yaesu GS-232B and the two-port PRK-X2SU. Angles
// in this package are degrees.
package rotator

import (
	"bytes"
	"time"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/session"
)

// Line terminators
const (
	GS232BTerminator  = '\r'
	PRKX2SUTerminator = ';'
)

// DefaultSensitivity is the smallest separation in degrees that makes
// Goto move the rotator
const DefaultSensitivity = 1.0

// maxLine bounds one reply line
const maxLine = 64

func asciiDriver(name string, suppress bool) *session.Driver {
	port := busdev.DefaultPortConfig("")
	port.ReadTimeout = 500 * time.Millisecond

	retry := busdev.DefaultRetryConfig()
	retry.AttemptTimeout = 500 * time.Millisecond

	return session.MustDriver(session.DriverConfig{
		Name:            name,
		Framing:         session.FramingASCII,
		Port:            port,
		Retry:           retry,
		SuppressRepeats: suppress,
	})
}

// GS232BDriver is the GS-232B declaration. Identical consecutive commands
// are suppressed, so repeating a goto to the same target costs nothing.
var GS232BDriver = asciiDriver("gs232b", true)

// PRKX2SUDriver is the declaration of one PRK-X2SU axis port
var PRKX2SUDriver = asciiDriver("prkx2su", false)

// readLine reads the next non-blank line ending in '\n'. The controller
// answers some queries with an empty line first.
func readLine(port busdev.Port, timeout time.Duration) ([]byte, error) {
	for i := 0; i < 3; i++ {
		line, err := port.ReadUntil('\n', maxLine, timeout)
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(line)) > 0 {
			return line, nil
		}
	}
	return nil, busdev.NewFrameCorruptedError("read line", port.Path(), "only blank lines")
}

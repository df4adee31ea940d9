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

// Package radio drives transceivers: the Icom IC-9100 over its CI-V bus
// and the Kenwood TS-2000 over its ASCII CAT protocol.
package radio

import (
	"time"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/session"
)

// VFO selects one of the two receivers
type VFO byte

const (
	VFOA VFO = iota
	VFOB
)

func (v VFO) String() string {
	if v == VFOB {
		return "B"
	}
	return "A"
}

func checkVFO(v VFO) error {
	if v != VFOA && v != VFOB {
		return busdev.NewRangeError("vfo", int(v), int(VFOA), int(VFOB))
	}
	return nil
}

// BandOther is the band index of frequencies outside every amateur band
const BandOther = 14

type band struct {
	lo, hi float64
	index  int
	// closed includes hi in the band
	closed bool
}

var bands = []band{
	{lo: 1.8e6, hi: 2.0e6, index: 1},
	{lo: 3.4e6, hi: 4.1e6, index: 2},
	{lo: 6.9e6, hi: 7.5e6, index: 3},
	{lo: 9.9e6, hi: 10.5e6, index: 4},
	{lo: 13.9e6, hi: 14.5e6, index: 5},
	{lo: 17.9e6, hi: 18.5e6, index: 6},
	{lo: 20.9e6, hi: 21.5e6, index: 7},
	{lo: 24.4e6, hi: 25.1e6, index: 8},
	{lo: 28.0e6, hi: 30.0e6, index: 9},
	{lo: 50.0e6, hi: 54.0e6, index: 10, closed: true},
	{lo: 108.0e6, hi: 174.0e6, index: 11, closed: true},
	{lo: 420.0e6, hi: 480.0e6, index: 12, closed: true},
	{lo: 1240.0e6, hi: 1320.0e6, index: 13},
}

// FrequencyBand maps hz onto the radio's band index, 1 to 13, or
// BandOther
func FrequencyBand(hz float64) int {
	for _, b := range bands {
		if hz >= b.lo && (hz < b.hi || (b.closed && hz == b.hi)) {
			return b.index
		}
	}
	return BandOther
}

func lineDriver(name string, framing session.Framing, baud int) *session.Driver {
	port := busdev.DefaultPortConfig("")
	port.BaudRate = baud
	port.ReadTimeout = 500 * time.Millisecond

	retry := busdev.DefaultRetryConfig()
	retry.AttemptTimeout = 500 * time.Millisecond

	return session.MustDriver(session.DriverConfig{
		Name:    name,
		Framing: framing,
		Port:    port,
		Retry:   retry,
	})
}

// IC9100Driver is the CI-V line declaration
var IC9100Driver = lineDriver("ic9100", session.FramingCIV, 19200)

// TS2000Driver is the CAT line declaration
var TS2000Driver = lineDriver("ts2000", session.FramingASCII, 9600)

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

package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/sigurn/crc16"

	busdev "github.com/spacebus/go-busdev"
)

// Algorithm selects how a trailer is computed
type Algorithm int

const (
	// None means the frame carries no trailer
	None Algorithm = iota
	// Sum8Complement is 0xFF minus the byte sum, one byte
	Sum8Complement
	// Sum16 is the 16-bit byte sum, big-endian
	Sum16
	// CRC16MCRF4XX is CRC-16/MCRF4XX, little-endian
	CRC16MCRF4XX
	// CRC16X25 is the AX.25 frame check sequence, little-endian
	CRC16X25
)

var (
	mcrf4xxTable = crc16.MakeTable(crc16.CRC16_MCRF4XX)
	x25Table     = crc16.MakeTable(crc16.CRC16_X_25)
)

// String returns the algorithm name
func (a Algorithm) String() string {
	switch a {
	case Sum8Complement:
		return "sum8-complement"
	case Sum16:
		return "sum16"
	case CRC16MCRF4XX:
		return "crc16-mcrf4xx"
	case CRC16X25:
		return "crc16-x25"
	default:
		return "none"
	}
}

// Width returns the trailer size in bytes
func (a Algorithm) Width() int {
	switch a {
	case Sum8Complement:
		return 1
	case Sum16, CRC16MCRF4XX, CRC16X25:
		return 2
	default:
		return 0
	}
}

// Compute returns the checksum of data
func (a Algorithm) Compute(data []byte) uint16 {
	switch a {
	case Sum8Complement:
		return uint16(CalculateSum8Complement(data))
	case Sum16:
		return CalculateSum16(data)
	case CRC16MCRF4XX:
		return crc16.Checksum(data, mcrf4xxTable)
	case CRC16X25:
		return crc16.Checksum(data, x25Table)
	default:
		return 0
	}
}

// Put writes sum into dst using the algorithm's width and byte order
func (a Algorithm) Put(dst []byte, sum uint16) {
	switch a {
	case Sum8Complement:
		dst[0] = byte(sum)
	case Sum16:
		binary.BigEndian.PutUint16(dst, sum)
	case CRC16MCRF4XX, CRC16X25:
		binary.LittleEndian.PutUint16(dst, sum)
	case None:
	}
}

// Read extracts a stored trailer from src
func (a Algorithm) Read(src []byte) uint16 {
	switch a {
	case Sum8Complement:
		return uint16(src[0])
	case Sum16:
		return binary.BigEndian.Uint16(src)
	case CRC16MCRF4XX, CRC16X25:
		return binary.LittleEndian.Uint16(src)
	default:
		return 0
	}
}

// CalculateSum8Complement returns 0xFF - (sum(data) mod 256)
func CalculateSum8Complement(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return 0xFF - sum
}

// CalculateSum16 returns the 16-bit additive sum of data
func CalculateSum16(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}

// Checksum declares where a trailer lives in a fixed-size frame: the
// algorithm, the byte span [Start, End) it covers, and the offset it is
// stored at. Different device families checksum different spans, so the
// span is always explicit.
type Checksum struct {
	Algorithm Algorithm
	Start     int
	End       int
	Offset    int
}

// Validate checks the declaration against a frame of frameLen bytes
func (c Checksum) Validate(frameLen int) error {
	if c.Algorithm == None {
		return nil
	}
	if c.Start < 0 || c.Start > c.End || c.End > frameLen {
		return fmt.Errorf("%w: %s span [%d,%d) outside %d-byte frame",
			busdev.ErrInvalidParameter, c.Algorithm, c.Start, c.End, frameLen)
	}
	w := c.Algorithm.Width()
	if c.Offset < 0 || c.Offset+w > frameLen {
		return fmt.Errorf("%w: %s trailer at %d outside %d-byte frame",
			busdev.ErrInvalidParameter, c.Algorithm, c.Offset, frameLen)
	}
	if c.Offset < c.End && c.Offset+w > c.Start {
		return fmt.Errorf("%w: %s trailer at %d overlaps span [%d,%d)",
			busdev.ErrInvalidParameter, c.Algorithm, c.Offset, c.Start, c.End)
	}
	return nil
}

// Apply computes the trailer over the declared span and stores it
func (c Checksum) Apply(frm []byte) {
	if c.Algorithm == None {
		return
	}
	c.Algorithm.Put(frm[c.Offset:], c.Algorithm.Compute(frm[c.Start:c.End]))
}

// Verify recomputes the trailer and compares it with the stored one
func (c Checksum) Verify(frm []byte) error {
	if c.Algorithm == None {
		return nil
	}
	if err := c.Validate(len(frm)); err != nil {
		return busdev.NewFrameCorruptedError("verify", "", fmt.Sprintf("%d-byte frame", len(frm)))
	}
	want := c.Algorithm.Compute(frm[c.Start:c.End])
	got := c.Algorithm.Read(frm[c.Offset:])
	if want != got {
		return busdev.NewChecksumError("verify", "", want, got)
	}
	return nil
}

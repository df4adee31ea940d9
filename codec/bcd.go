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

package codec

import (
	"fmt"

	busdev "github.com/spacebus/go-busdev"
)

// DigitOrder selects which end of a BCD field holds the least significant
// digit pair
type DigitOrder int

const (
	// LeastSignificantFirst stores the ones/tens pair in the first byte
	LeastSignificantFirst DigitOrder = iota
	// MostSignificantFirst stores the ones/tens pair in the last byte
	MostSignificantFirst
)

// PackBCD decomposes value by repeated mod 10 and packs each pair of
// digits into one byte as ones + 16*tens, over n bytes.
func PackBCD(value uint64, n int, order DigitOrder) ([]byte, error) {
	if n < 1 || n > 9 {
		return nil, fmt.Errorf("%w: bcd width %d", busdev.ErrInvalidParameter, n)
	}
	out := make([]byte, n)
	v := value
	for i := 0; i < n; i++ {
		ones := byte(v % 10)
		v /= 10
		tens := byte(v % 10)
		v /= 10

		idx := i
		if order == MostSignificantFirst {
			idx = n - 1 - i
		}
		out[idx] = ones + 16*tens
	}
	if v != 0 {
		return nil, busdev.NewRangeError("bcd value", value, 0, maxBCD(n))
	}
	return out, nil
}

// UnpackBCD is the inverse of PackBCD. Nibbles above 9 corrupt the field.
func UnpackBCD(b []byte, order DigitOrder) (uint64, error) {
	var v uint64
	for i := range b {
		idx := len(b) - 1 - i
		if order == MostSignificantFirst {
			idx = i
		}
		hi, lo := b[idx]>>4, b[idx]&0x0F
		if hi > 9 || lo > 9 {
			return 0, busdev.NewFrameCorruptedError("bcd decode", "", fmt.Sprintf("byte 0x%02x", b[idx]))
		}
		v = v*100 + uint64(hi)*10 + uint64(lo)
	}
	return v, nil
}

func maxBCD(n int) uint64 {
	var m uint64 = 1
	for i := 0; i < 2*n; i++ {
		m *= 10
	}
	return m - 1
}

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

// Package codec converts engineering values to and from device-native
// encodings: DAC counts, packed integers, BCD digits and polynomial
// calibration curves. Everything here is pure.
package codec

import (
	"fmt"
	"math"

	busdev "github.com/spacebus/go-busdev"
)

// DAC12FullScale is the largest code of a 12-bit DAC
const DAC12FullScale = 4095

// PercentToRaw scales percent of full scale to a DAC code, dividing in
// floating point before rounding: 50% of 4095 is 2048.
func PercentToRaw(percent float64, fullScale uint32) (uint32, error) {
	if math.IsNaN(percent) || percent < 0 || percent > 100 {
		return 0, busdev.NewRangeError("percent", percent, 0, 100)
	}
	return uint32(math.Round(percent / 100 * float64(fullScale))), nil
}

// RawToPercent is the inverse of PercentToRaw
func RawToPercent(raw, fullScale uint32) float64 {
	if fullScale == 0 {
		return 0
	}
	return float64(raw) / float64(fullScale) * 100
}

// CheckRaw rejects codes above fullScale
func CheckRaw(param string, raw, fullScale uint32) error {
	if raw > fullScale {
		return busdev.NewRangeError(param, raw, 0, fullScale)
	}
	return nil
}

// LinearToRaw maps value in [-span, span] onto a signed code where span
// corresponds to fullScale. The result is truncated toward zero.
func LinearToRaw(value, span float64, fullScale int64) (int64, error) {
	if span <= 0 {
		return 0, fmt.Errorf("%w: span %v", busdev.ErrInvalidParameter, span)
	}
	if math.IsNaN(value) || value < -span || value > span {
		return 0, busdev.NewRangeError("value", value, -span, span)
	}
	return int64(float64(fullScale) * value / span), nil
}

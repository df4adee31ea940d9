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
	"encoding/binary"
	"fmt"
	"math"

	busdev "github.com/spacebus/go-busdev"
)

// Order is the byte order of a packed register
type Order int

const (
	BigEndian Order = iota
	LittleEndian
)

func (o Order) shift(i, width int) uint {
	if o == LittleEndian {
		return uint(8 * i)
	}
	return uint(8 * (width - 1 - i))
}

func checkWidth(buf []byte, width int) error {
	if width < 1 || width > 8 {
		return fmt.Errorf("%w: width %d", busdev.ErrInvalidParameter, width)
	}
	if len(buf) < width {
		return fmt.Errorf("%w: %d-byte buffer for width %d", busdev.ErrInvalidParameter, len(buf), width)
	}
	return nil
}

// PutUint packs v into the first width bytes of dst
func PutUint(dst []byte, v uint64, width int, order Order) error {
	if err := checkWidth(dst, width); err != nil {
		return err
	}
	if width < 8 && v>>(8*uint(width)) != 0 {
		return busdev.NewRangeError("value", v, 0, uint64(1)<<(8*uint(width))-1)
	}
	for i := 0; i < width; i++ {
		dst[i] = byte(v >> order.shift(i, width))
	}
	return nil
}

// Uint unpacks an unsigned value from the first width bytes of src
func Uint(src []byte, width int, order Order) (uint64, error) {
	if err := checkWidth(src, width); err != nil {
		return 0, err
	}
	var v uint64
	for i := 0; i < width; i++ {
		v |= uint64(src[i]) << order.shift(i, width)
	}
	return v, nil
}

// PutInt packs a two's complement value into width bytes
func PutInt(dst []byte, v int64, width int, order Order) error {
	if err := checkWidth(dst, width); err != nil {
		return err
	}
	if width < 8 {
		lo := -(int64(1) << (8*uint(width) - 1))
		hi := int64(1)<<(8*uint(width)-1) - 1
		if v < lo || v > hi {
			return busdev.NewRangeError("value", v, lo, hi)
		}
	}
	for i := 0; i < width; i++ {
		dst[i] = byte(uint64(v) >> order.shift(i, width))
	}
	return nil
}

// Int unpacks a sign-extended value from width bytes
func Int(src []byte, width int, order Order) (int64, error) {
	u, err := Uint(src, width, order)
	if err != nil {
		return 0, err
	}
	shift := 64 - 8*uint(width)
	return int64(u<<shift) >> shift, nil
}

// Float32 unpacks an IEEE-754 single from four bytes
func Float32(src []byte, order Order) (float32, error) {
	u, err := Uint(src, 4, order)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(u)), nil
}

// PutFloat32 packs an IEEE-754 single into four bytes
func PutFloat32(dst []byte, v float32, order Order) error {
	if len(dst) < 4 {
		return fmt.Errorf("%w: %d-byte buffer for float32", busdev.ErrInvalidParameter, len(dst))
	}
	if order == LittleEndian {
		binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
	} else {
		binary.BigEndian.PutUint32(dst, math.Float32bits(v))
	}
	return nil
}

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
	"fmt"

	busdev "github.com/spacebus/go-busdev"
)

// EncodeFixed builds a size-byte frame [opcode, payload..., zero pad,
// trailer] and applies sum. The payload must fit between the opcode and
// the trailer.
func EncodeFixed(opcode byte, payload []byte, size int, sum Checksum) ([]byte, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: frame size %d", busdev.ErrInvalidParameter, size)
	}
	if err := sum.Validate(size); err != nil {
		return nil, err
	}

	room := size - 1
	if sum.Algorithm != None && sum.Offset >= 1 {
		room = sum.Offset - 1
	}
	if len(payload) > room {
		return nil, busdev.NewRangeError("payload length", len(payload), 0, room)
	}

	frm := make([]byte, size)
	frm[0] = opcode
	copy(frm[1:], payload)
	sum.Apply(frm)
	return frm, nil
}

// VerifyFixed checks the length and trailer of a received fixed-size block
func VerifyFixed(block []byte, size int, sum Checksum) error {
	if len(block) != size {
		return busdev.NewFrameCorruptedError("verify", "",
			fmt.Sprintf("got %d bytes, want %d", len(block), size))
	}
	return sum.Verify(block)
}

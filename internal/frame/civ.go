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
	"bytes"
	"fmt"

	busdev "github.com/spacebus/go-busdev"
)

// CIVFrame is one Icom CI-V message
type CIVFrame struct {
	Data []byte
	To   byte
	From byte
	Cmd  byte
}

// EncodeCIV builds FE FE to from cmd data... FD. data holds the optional
// sub-command followed by the payload.
func EncodeCIV(to, from, cmd byte, data []byte) ([]byte, error) {
	if i := bytes.IndexByte(data, CIVTerminator); i >= 0 {
		return nil, fmt.Errorf("%w: terminator byte in CI-V payload at %d", busdev.ErrInvalidParameter, i)
	}
	out := make([]byte, 0, 6+len(data))
	out = append(out, CIVPreamble, CIVPreamble, to, from, cmd)
	out = append(out, data...)
	return append(out, CIVTerminator), nil
}

// DecodeCIV parses a frame read up to and including the terminator.
// Stray bytes before the preamble are skipped.
func DecodeCIV(frm []byte) (CIVFrame, error) {
	start := bytes.Index(frm, []byte{CIVPreamble, CIVPreamble})
	if start < 0 {
		return CIVFrame{}, busdev.NewFrameCorruptedError("civ decode", "", "missing preamble")
	}
	frm = frm[start:]
	for len(frm) > 2 && frm[2] == CIVPreamble {
		frm = frm[1:]
	}
	if len(frm) < 6 {
		return CIVFrame{}, busdev.NewTransportError("civ decode", "", busdev.ErrShortFrame, busdev.ErrorTypeTransient)
	}
	if frm[len(frm)-1] != CIVTerminator {
		return CIVFrame{}, busdev.NewFrameCorruptedError("civ decode", "", "missing terminator")
	}
	return CIVFrame{
		To:   frm[2],
		From: frm[3],
		Cmd:  frm[4],
		Data: append([]byte(nil), frm[5:len(frm)-1]...),
	}, nil
}

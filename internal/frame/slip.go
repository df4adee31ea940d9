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

// Stuff escapes FEND and FESC in data. The result never contains a bare
// FEND.
func Stuff(data []byte) []byte {
	out := make([]byte, 0, len(data)+len(data)/8+2)
	for _, b := range data {
		switch b {
		case FEND:
			out = append(out, FESC, TFEND)
		case FESC:
			out = append(out, FESC, TFESC)
		default:
			out = append(out, b)
		}
	}
	return out
}

// Unstuff reverses Stuff. A bare FEND, a dangling FESC, or FESC followed by
// anything other than TFEND/TFESC corrupts the frame.
func Unstuff(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		switch b {
		case FEND:
			return nil, busdev.NewFrameCorruptedError("unstuff", "", fmt.Sprintf("bare FEND at %d", i))
		case FESC:
			i++
			if i == len(data) {
				return nil, busdev.NewFrameCorruptedError("unstuff", "", "dangling escape")
			}
			switch data[i] {
			case TFEND:
				out = append(out, FEND)
			case TFESC:
				out = append(out, FESC)
			default:
				return nil, busdev.NewFrameCorruptedError("unstuff", "",
					fmt.Sprintf("invalid escape 0x%02x at %d", data[i], i))
			}
		default:
			out = append(out, b)
		}
	}
	return out, nil
}

// EncodeSLIP appends a CRC-16/MCRF4XX trailer to payload, stuffs the
// result and wraps it in FEND delimiters.
func EncodeSLIP(payload []byte) ([]byte, error) {
	if len(payload) > MaxSLIPPayload {
		return nil, busdev.NewRangeError("slip payload", len(payload), 0, MaxSLIPPayload)
	}
	raw := make([]byte, len(payload)+SLIPCRCSize)
	copy(raw, payload)
	CRC16MCRF4XX.Put(raw[len(payload):], CRC16MCRF4XX.Compute(payload))

	stuffed := Stuff(raw)
	out := make([]byte, 0, len(stuffed)+2)
	out = append(out, FEND)
	out = append(out, stuffed...)
	return append(out, FEND), nil
}

// DecodeSLIP strips delimiters, unstuffs, and validates the CRC trailer.
// Leading FENDs (inter-frame fill) are tolerated.
func DecodeSLIP(frm []byte) ([]byte, error) {
	body := trimDelimiters(frm)
	raw, err := Unstuff(body)
	if err != nil {
		return nil, err
	}
	if len(raw) < SLIPCRCSize {
		return nil, busdev.NewTransportError("slip decode", "", busdev.ErrShortFrame, busdev.ErrorTypeTransient)
	}
	n := len(raw) - SLIPCRCSize
	want := CRC16MCRF4XX.Compute(raw[:n])
	got := CRC16MCRF4XX.Read(raw[n:])
	if want != got {
		return nil, busdev.NewChecksumError("slip decode", "", want, got)
	}
	return raw[:n], nil
}

func trimDelimiters(frm []byte) []byte {
	for len(frm) > 0 && frm[0] == FEND {
		frm = frm[1:]
	}
	for len(frm) > 0 && frm[len(frm)-1] == FEND {
		frm = frm[:len(frm)-1]
	}
	return frm
}

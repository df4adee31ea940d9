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
	"strings"

	busdev "github.com/spacebus/go-busdev"
)

// Address is an AX.25 station address
type Address struct {
	Callsign string
	SSID     byte
}

// String renders the address as CALL-SSID
func (a Address) String() string {
	if a.SSID == 0 {
		return a.Callsign
	}
	return fmt.Sprintf("%s-%d", a.Callsign, a.SSID)
}

// ParseAddress parses CALL or CALL-SSID
func ParseAddress(s string) (Address, error) {
	call, ssid, found := strings.Cut(strings.ToUpper(strings.TrimSpace(s)), "-")
	addr := Address{Callsign: call}
	if found {
		var n int
		if _, err := fmt.Sscanf(ssid, "%d", &n); err != nil {
			return Address{}, fmt.Errorf("%w: ssid %q", busdev.ErrInvalidParameter, ssid)
		}
		if n < 0 || n > 15 {
			return Address{}, busdev.NewRangeError("ssid", n, 0, 15)
		}
		addr.SSID = byte(n)
	}
	return addr, addr.validate()
}

func (a Address) validate() error {
	if a.Callsign == "" || len(a.Callsign) > 6 {
		return fmt.Errorf("%w: callsign %q must be 1-6 characters", busdev.ErrInvalidParameter, a.Callsign)
	}
	for _, r := range a.Callsign {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return fmt.Errorf("%w: callsign %q", busdev.ErrInvalidParameter, a.Callsign)
		}
	}
	if a.SSID > 15 {
		return busdev.NewRangeError("ssid", a.SSID, 0, 15)
	}
	return nil
}

// encode writes the 7-byte shifted form; last sets the end-of-address bit
func (a Address) encode(dst []byte, last bool) {
	for i := 0; i < 6; i++ {
		c := byte(' ')
		if i < len(a.Callsign) {
			c = a.Callsign[i]
		}
		dst[i] = c << 1
	}
	dst[6] = 0x60 | (a.SSID&0x0F)<<1
	if last {
		dst[6] |= 0x01
	}
}

func decodeAddress(src []byte) Address {
	var sb strings.Builder
	for _, b := range src[:6] {
		_ = sb.WriteByte(b >> 1)
	}
	return Address{
		Callsign: strings.TrimRight(sb.String(), " "),
		SSID:     (src[6] >> 1) & 0x0F,
	}
}

// KISSFrame is one addressed AX.25 frame carried over KISS
type KISSFrame struct {
	Dest    Address
	Source  Address
	Payload []byte
	// Port is the TNC port, carried in the high nibble of the command byte
	Port    byte
	Control byte
	PID     byte
}

// EncodeKISS builds FEND, command byte, destination, source, control, PID,
// payload, FCS (CRC-16/X-25 over destination through payload), FEND with
// everything between the delimiters stuffed. Payloads over KISSMTU bytes
// are rejected.
func EncodeKISS(f KISSFrame) ([]byte, error) {
	if len(f.Payload) > KISSMTU {
		return nil, busdev.NewRangeError("kiss payload", len(f.Payload), 0, KISSMTU)
	}
	if f.Port > 0x0F {
		return nil, busdev.NewRangeError("kiss port", f.Port, 0, 15)
	}
	if err := f.Dest.validate(); err != nil {
		return nil, err
	}
	if err := f.Source.validate(); err != nil {
		return nil, err
	}

	raw := make([]byte, KISSHeaderSize+len(f.Payload)+AX25FCSSize)
	raw[0] = f.Port << 4
	f.Dest.encode(raw[1:8], false)
	f.Source.encode(raw[8:15], true)
	raw[15] = f.Control
	raw[16] = f.PID
	copy(raw[KISSHeaderSize:], f.Payload)

	fcsAt := KISSHeaderSize + len(f.Payload)
	CRC16X25.Put(raw[fcsAt:], CRC16X25.Compute(raw[1:fcsAt]))

	stuffed := Stuff(raw)
	out := make([]byte, 0, len(stuffed)+2)
	out = append(out, FEND)
	out = append(out, stuffed...)
	return append(out, FEND), nil
}

// DecodeKISS reverses EncodeKISS and validates the FCS. Only data frames
// are accepted.
func DecodeKISS(frm []byte) (KISSFrame, error) {
	raw, err := Unstuff(trimDelimiters(frm))
	if err != nil {
		return KISSFrame{}, err
	}
	if len(raw) < KISSHeaderSize+AX25FCSSize {
		return KISSFrame{}, busdev.NewTransportError("kiss decode", "", busdev.ErrShortFrame, busdev.ErrorTypeTransient)
	}
	if raw[0]&0x0F != 0 {
		return KISSFrame{}, busdev.NewFrameCorruptedError("kiss decode", "",
			fmt.Sprintf("command 0x%02x is not a data frame", raw[0]))
	}

	fcsAt := len(raw) - AX25FCSSize
	want := CRC16X25.Compute(raw[1:fcsAt])
	got := CRC16X25.Read(raw[fcsAt:])
	if want != got {
		return KISSFrame{}, busdev.NewChecksumError("kiss decode", "", want, got)
	}

	payload := raw[KISSHeaderSize:fcsAt]
	if len(payload) > KISSMTU {
		return KISSFrame{}, busdev.NewRangeError("kiss payload", len(payload), 0, KISSMTU)
	}
	return KISSFrame{
		Port:    raw[0] >> 4,
		Dest:    decodeAddress(raw[1:8]),
		Source:  decodeAddress(raw[8:15]),
		Control: raw[15],
		PID:     raw[16],
		Payload: bytes.Clone(payload),
	}, nil
}

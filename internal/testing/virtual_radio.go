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

package testing

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/spacebus/go-busdev/codec"
	"github.com/spacebus/go-busdev/internal/frame"
)

// VirtualIC9100 simulates an Icom IC-9100 on a CI-V bus. With BusEcho set
// every written frame is read back before the radio's answer, as on a
// shared single-wire bus.
type VirtualIC9100 struct {
	Levels map[byte]uint64
	// Meters holds the 0 to 255 reading of each meter sub-command
	Meters    map[byte]uint64
	Frequency [2]uint64
	Mode      [2]byte
	Filter    [2]byte
	// Bandpass is the IF filter width index of each receiver
	Bandpass [2]byte
	DataMode [2]bool
	Address  byte
	VFO      byte
	NGNext   int
	BusEcho  bool

	mu sync.Mutex
}

// NewVirtualIC9100 creates a radio at addr with the bus echo enabled
func NewVirtualIC9100(addr byte) *VirtualIC9100 {
	return &VirtualIC9100{
		Address: addr,
		BusEcho: true,
		Levels:  make(map[byte]uint64),
		Meters:  make(map[byte]uint64),
		Filter:  [2]byte{1, 1},
	}
}

// Respond answers one written frame
func (v *VirtualIC9100) Respond(w []byte) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	var out []byte
	if v.BusEcho {
		out = append(out, w...)
	}
	f, err := frame.DecodeCIV(w)
	if err != nil || f.To != v.Address {
		return out
	}
	return append(out, v.handle(f)...)
}

func (v *VirtualIC9100) handle(f frame.CIVFrame) []byte {
	if v.NGNext > 0 {
		v.NGNext--
		return BuildCIVNG(v.Address)
	}
	switch f.Cmd {
	case 0x07:
		if len(f.Data) == 1 && f.Data[0] == 0xB0 {
			v.exchange()
			break
		}
		if len(f.Data) != 1 || f.Data[0] > 1 {
			return BuildCIVNG(v.Address)
		}
		v.VFO = f.Data[0]
	case 0x05:
		hz, err := codec.UnpackBCD(f.Data, codec.LeastSignificantFirst)
		if err != nil || len(f.Data) != 5 {
			return BuildCIVNG(v.Address)
		}
		v.Frequency[v.VFO] = hz
	case 0x03:
		bcd, _ := codec.PackBCD(v.Frequency[v.VFO], 5, codec.LeastSignificantFirst)
		return BuildCIVReply(v.Address, 0x03, bcd...)
	case 0x06:
		if len(f.Data) < 1 || len(f.Data) > 2 {
			return BuildCIVNG(v.Address)
		}
		v.Mode[v.VFO] = f.Data[0]
		if len(f.Data) == 2 {
			if f.Data[1] < 1 || f.Data[1] > 3 {
				return BuildCIVNG(v.Address)
			}
			v.Filter[v.VFO] = f.Data[1]
		}
	case 0x04:
		return BuildCIVReply(v.Address, 0x04, v.Mode[v.VFO], v.Filter[v.VFO])
	case 0x15:
		if len(f.Data) != 1 {
			return BuildCIVNG(v.Address)
		}
		bcd, _ := codec.PackBCD(v.Meters[f.Data[0]], 2, codec.MostSignificantFirst)
		return BuildCIVReply(v.Address, 0x15, append([]byte{f.Data[0]}, bcd...)...)
	case 0x1A:
		return v.extended(f.Data)
	case 0x14:
		if len(f.Data) == 1 {
			bcd, _ := codec.PackBCD(v.Levels[f.Data[0]], 2, codec.MostSignificantFirst)
			return BuildCIVReply(v.Address, 0x14, append([]byte{f.Data[0]}, bcd...)...)
		}
		if len(f.Data) != 3 {
			return BuildCIVNG(v.Address)
		}
		level, err := codec.UnpackBCD(f.Data[1:], codec.MostSignificantFirst)
		if err != nil || level > 255 {
			return BuildCIVNG(v.Address)
		}
		v.Levels[f.Data[0]] = level
	default:
		return BuildCIVNG(v.Address)
	}
	return BuildCIVOK(v.Address)
}

func (v *VirtualIC9100) exchange() {
	v.Frequency[0], v.Frequency[1] = v.Frequency[1], v.Frequency[0]
	v.Mode[0], v.Mode[1] = v.Mode[1], v.Mode[0]
	v.Filter[0], v.Filter[1] = v.Filter[1], v.Filter[0]
	v.Bandpass[0], v.Bandpass[1] = v.Bandpass[1], v.Bandpass[0]
	v.DataMode[0], v.DataMode[1] = v.DataMode[1], v.DataMode[0]
}

func (v *VirtualIC9100) extended(d []byte) []byte {
	if len(d) == 0 {
		return BuildCIVNG(v.Address)
	}
	switch {
	case d[0] == 0x03 && len(d) == 1:
		bcd, _ := codec.PackBCD(uint64(v.Bandpass[v.VFO]), 1, codec.MostSignificantFirst)
		return BuildCIVReply(v.Address, 0x1A, 0x03, bcd[0])
	case d[0] == 0x03 && len(d) == 2:
		idx, err := codec.UnpackBCD(d[1:], codec.MostSignificantFirst)
		if err != nil || idx > 40 {
			return BuildCIVNG(v.Address)
		}
		v.Bandpass[v.VFO] = byte(idx)
	case d[0] == 0x06 && len(d) == 1:
		var b byte
		if v.DataMode[v.VFO] {
			b = 1
		}
		return BuildCIVReply(v.Address, 0x1A, 0x06, b)
	case d[0] == 0x06 && len(d) == 2 && d[1] <= 1:
		v.DataMode[v.VFO] = d[1] == 1
	default:
		return BuildCIVNG(v.Address)
	}
	return BuildCIVOK(v.Address)
}

// VirtualTS2000 simulates the Kenwood TS-2000 CAT protocol
type VirtualTS2000 struct {
	Frequency [2]int64
	mu        sync.Mutex
}

// Respond answers one written command
func (v *VirtualTS2000) Respond(w []byte) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	cmd := string(w)
	if len(cmd) < 3 || cmd[0] != 'F' || (cmd[1] != 'A' && cmd[1] != 'B') {
		return []byte("?;")
	}
	vfo := int(cmd[1] - 'A')
	if cmd[2:] == ";" {
		return []byte(fmt.Sprintf("F%c%011d;", cmd[1], v.Frequency[vfo]))
	}
	hz, err := strconv.ParseInt(cmd[2:len(cmd)-1], 10, 64)
	if err != nil {
		return []byte("?;")
	}
	v.Frequency[vfo] = hz
	return nil
}

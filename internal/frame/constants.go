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

// Package frame provides the wire framings used by the supported devices:
// additive-checksum fixed frames, SLIP with a CRC16 trailer, KISS/AX.25
// addressed frames, Icom CI-V frames and terminated ASCII commands.
package frame

// SLIP and KISS share the same delimiter and escape bytes
const (
	FEND  = 0xC0 // Frame end
	FESC  = 0xDB // Frame escape
	TFEND = 0xDC // Transposed frame end
	TFESC = 0xDD // Transposed frame escape
)

// KISS/AX.25 layout
const (
	KISSMTU        = 254  // Maximum payload carried by one frame
	KISSDataFrame  = 0x10 // Command byte: data frame on TNC port 1
	KISSHeaderSize = 17   // Command byte, two addresses, control, PID
	AX25AddrSize   = 7    // Six shifted callsign bytes and an SSID byte
	AX25ControlUI  = 0x03 // Unnumbered information frame
	AX25PIDNoL3    = 0xF0 // No layer 3 protocol
	AX25FCSSize    = 2
)

// Icom CI-V framing
const (
	CIVPreamble   = 0xFE
	CIVTerminator = 0xFD
	CIVOK         = 0xFB
	CIVNG         = 0xFA
	CIVController = 0xE0 // Default controller address
)

// Frame size limits
const (
	MaxSLIPPayload = 1024 // Largest payload EncodeSLIP will frame
	SLIPCRCSize    = 2
)

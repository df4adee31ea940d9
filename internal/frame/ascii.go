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

import "strings"

// EncodeASCII returns cmd with term appended unless it already ends in it
func EncodeASCII(cmd string, term byte) []byte {
	if len(cmd) > 0 && cmd[len(cmd)-1] == term {
		return []byte(cmd)
	}
	return append([]byte(cmd), term)
}

// TrimASCII strips the terminator and surrounding line noise from a reply
func TrimASCII(reply []byte, term byte) string {
	return strings.Trim(string(reply), string([]byte{term})+"\r\n\x00 ")
}

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

package detection

import (
	"path/filepath"
	"strings"
)

// KnownAdapters maps USB VID:PID pairs of common USB-serial bridges to a
// display name. Ports behind these bridges are the usual home of rotators,
// radios and TNCs.
var KnownAdapters = map[string]string{
	"0403:6001": "FTDI FT232R",
	"0403:6015": "FTDI FT231X",
	"067B:2303": "Prolific PL2303",
	"10C4:EA60": "Silicon Labs CP210x",
	"1A86:7523": "WCH CH340",
}

// AdapterName returns the display name for a known bridge or ""
func AdapterName(vidpid string) string {
	return KnownAdapters[normalizeVIDPID(vidpid)]
}

// DefaultBlocklist returns USB devices that must not be opened during
// detection. Format is VID:PID in hexadecimal, case-insensitive.
func DefaultBlocklist() []string {
	return []string{
		"2341:0043", // Arduino Uno, resets on open
		"1366:0105", // SEGGER J-Link CDC, debug probe
	}
}

// IsBlocked reports whether vidpid is on the blocklist
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = normalizeVIDPID(vidpid)
	for _, blocked := range blocklist {
		if vidpid == normalizeVIDPID(blocked) {
			return true
		}
	}
	return false
}

func normalizeVIDPID(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// FormatVIDPID joins enumerator vendor and product ids. Either part empty
// yields "".
func FormatVIDPID(vid, pid string) string {
	vid, pid = strings.TrimSpace(vid), strings.TrimSpace(pid)
	if vid == "" || pid == "" || !isHex(vid) || !isHex(pid) {
		return ""
	}
	return strings.ToUpper(vid + ":" + pid)
}

// ParseVIDPID extracts VID:PID from descriptor strings such as
// "VID:1234 PID:5678", "vendor=1234 product=5678" or "1234:5678".
func ParseVIDPID(descriptor string) string {
	descriptor = strings.ToUpper(descriptor)

	vid := hexAfter(descriptor, "VID:", "VENDOR=", "VID=", "VID_")
	pid := hexAfter(descriptor, "PID:", "PRODUCT=", "PID=", "PID_")
	if vid != "" && pid != "" {
		return vid + ":" + pid
	}

	if a, b, ok := strings.Cut(descriptor, ":"); ok && isHex(a) && isHex(b) {
		return descriptor
	}
	return ""
}

func hexAfter(s string, keys ...string) string {
	for _, k := range keys {
		if idx := strings.Index(s, k); idx >= 0 {
			return extractHex(s[idx+len(k):])
		}
	}
	return ""
}

// extractHex returns the first run of hex digits in s
func extractHex(s string) string {
	var result strings.Builder
	found := false
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') {
			_, _ = result.WriteRune(r)
			found = true
		} else if found {
			break
		}
	}
	return result.String()
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// IsPathIgnored reports whether devicePath matches one of ignorePaths after
// cleaning. Comparison is case-insensitive so COM ports match on Windows.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" || len(ignorePaths) == 0 {
		return false
	}
	device := normalizedPath(devicePath)
	for _, ignore := range ignorePaths {
		if ignore == "" {
			continue
		}
		if ignore == devicePath || normalizedPath(ignore) == device {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}

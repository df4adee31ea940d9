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

package busdev

import (
	"fmt"
	"sync/atomic"

	"github.com/golang/glog"
)

var debugEnabled atomic.Bool

// SetDebugEnabled turns frame-level trace logging on or off. Traces go to
// glog at verbosity 2, so they also require -v=2 or higher.
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether trace logging is on
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// Debugf logs a formatted trace line when debugging is enabled
func Debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	glog.V(2).Infof(format, args...)
}

// Debugln logs a trace line when debugging is enabled
func Debugln(args ...any) {
	if !debugEnabled.Load() {
		return
	}
	glog.V(2).Info(fmt.Sprintln(args...))
}

// Warnf logs a warning regardless of the debug setting
func Warnf(format string, args ...any) {
	glog.Warningf(format, args...)
}

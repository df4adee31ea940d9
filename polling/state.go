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

package polling

import (
	"time"
)

// LinkState is the health of a monitored device link
type LinkState int

const (
	// StateDown means no probe has succeeded since start or since loss
	StateDown LinkState = iota
	// StateUp means the last probe succeeded
	StateUp
	// StateStale means probes are failing but the loss timeout has not run out
	StateStale
)

func (s LinkState) String() string {
	switch s {
	case StateDown:
		return "down"
	case StateUp:
		return "up"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

// LinkStatus tracks one monitored link
type LinkStatus struct {
	LastSeen  time.Time
	LastError error
	Samples   uint64
	Failures  int
	State     LinkState
}

// TransitionToUp records a good sample. It reports whether the link was
// not up before.
func (ls *LinkStatus) TransitionToUp(now time.Time) bool {
	wasUp := ls.State == StateUp || ls.State == StateStale
	ls.State = StateUp
	ls.LastSeen = now
	ls.LastError = nil
	ls.Failures = 0
	ls.Samples++
	return !wasUp
}

// TransitionOnFailure records a failed probe. It reports whether the link
// has just been declared lost.
func (ls *LinkStatus) TransitionOnFailure(now time.Time, err error, lossTimeout time.Duration) bool {
	ls.LastError = err
	ls.Failures++
	switch ls.State {
	case StateUp, StateStale:
		if now.Sub(ls.LastSeen) >= lossTimeout {
			ls.State = StateDown
			return true
		}
		ls.State = StateStale
	}
	return false
}

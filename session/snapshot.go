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

package session

import (
	"sort"

	busdev "github.com/spacebus/go-busdev"
)

// Snapshot is one decoded response block
type Snapshot struct {
	values map[string]float64
	Block  []byte
	Seq    uint64
	Opcode byte
}

func newSnapshot(cmd Command, seq uint64, block []byte) (*Snapshot, error) {
	snap := &Snapshot{
		Opcode: cmd.Opcode,
		Seq:    seq,
		Block:  append([]byte(nil), block...),
		values: make(map[string]float64, len(cmd.Fields)),
	}
	for _, f := range cmd.Fields {
		if f.Offset+f.Width > len(block) {
			return nil, busdev.NewTransportError(cmd.Name, "", busdev.ErrShortFrame, busdev.ErrorTypeTransient)
		}
		v, err := f.decode(block)
		if err != nil {
			return nil, err
		}
		snap.values[f.Name] = v
	}
	return snap, nil
}

// Value returns a decoded field
func (s *Snapshot) Value(name string) (float64, bool) {
	v, ok := s.values[name]
	return v, ok
}

// MustValue returns a decoded field or zero
func (s *Snapshot) MustValue(name string) float64 {
	return s.values[name]
}

// Names returns the decoded field names, sorted
func (s *Snapshot) Names() []string {
	names := make([]string, 0, len(s.values))
	for n := range s.values {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

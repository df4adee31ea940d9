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
	"sync"
)

// Handle identifies an entry in a Registry. A handle becomes stale once its
// entry is removed, even if the slot is later reused.
type Handle struct {
	slot int
	gen  uint32
}

// Slot returns the arena index of the handle
func (h Handle) Slot() int {
	return h.slot
}

type registrySlot[T any] struct {
	value   T
	key     string
	gen     uint32
	used    bool
	pending bool
}

// Registry is a fixed-capacity table of open devices of one family, keyed
// by device path. Safe for concurrent use.
type Registry[T any] struct {
	index  map[string]int
	family string
	slots  []registrySlot[T]
	mu     sync.Mutex
}

// NewRegistry creates a registry holding at most capacity entries
func NewRegistry[T any](family string, capacity int) *Registry[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Registry[T]{
		family: family,
		slots:  make([]registrySlot[T], capacity),
		index:  make(map[string]int, capacity),
	}
}

// Add reserves a slot for key and fills it with the result of open. The
// slot is released again when open fails. open runs without the registry
// lock held.
func (r *Registry[T]) Add(key string, open func() (T, error)) (Handle, T, error) {
	var zero T

	r.mu.Lock()
	if _, exists := r.index[key]; exists {
		r.mu.Unlock()
		return Handle{}, zero, NewTransportError("register", key, ErrAlreadyOpen, ErrorTypePermanent)
	}
	slot := -1
	for i := range r.slots {
		if !r.slots[i].used {
			slot = i
			break
		}
	}
	if slot < 0 {
		r.mu.Unlock()
		return Handle{}, zero, fmt.Errorf("%s: %w (capacity %d)", r.family, ErrTooManyDevices, len(r.slots))
	}
	s := &r.slots[slot]
	s.used = true
	s.pending = true
	s.key = key
	s.gen++
	h := Handle{slot: slot, gen: s.gen}
	r.index[key] = slot
	r.mu.Unlock()

	value, err := open()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.release(slot)
		return Handle{}, zero, err
	}
	s.value = value
	s.pending = false
	return h, value, nil
}

// Get returns the value behind h
func (r *Registry[T]) Get(h Handle) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if !r.valid(h) {
		return zero, false
	}
	return r.slots[h.slot].value, true
}

// Lookup finds the handle registered for key
func (r *Registry[T]) Lookup(key string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.index[key]
	if !ok || r.slots[slot].pending {
		return Handle{}, false
	}
	return Handle{slot: slot, gen: r.slots[slot].gen}, true
}

// Remove frees the slot behind h and returns its value
func (r *Registry[T]) Remove(h Handle) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if !r.valid(h) {
		return zero, fmt.Errorf("%s: %w: stale handle", r.family, ErrInvalidParameter)
	}
	value := r.slots[h.slot].value
	r.release(h.slot)
	return value, nil
}

// Len returns the number of occupied slots
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.index)
}

// Cap returns the registry capacity
func (r *Registry[T]) Cap() int {
	return len(r.slots)
}

func (r *Registry[T]) valid(h Handle) bool {
	if h.slot < 0 || h.slot >= len(r.slots) {
		return false
	}
	s := r.slots[h.slot]
	return s.used && !s.pending && s.gen == h.gen
}

func (r *Registry[T]) release(slot int) {
	var zero T
	s := &r.slots[slot]
	delete(r.index, s.key)
	s.value = zero
	s.key = ""
	s.used = false
	s.pending = false
}

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
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openValue(v string) func() (string, error) {
	return func() (string, error) { return v, nil }
}

func TestRegistryCapacity(t *testing.T) {
	t.Parallel()
	reg := NewRegistry[string]("imu", 2)
	assert.Equal(t, 2, reg.Cap())

	h0, v, err := reg.Add("/dev/ttyUSB0", openValue("a"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	_, _, err = reg.Add("/dev/ttyUSB1", openValue("b"))
	require.NoError(t, err)

	called := false
	_, _, err = reg.Add("/dev/ttyUSB2", func() (string, error) {
		called = true
		return "c", nil
	})
	require.ErrorIs(t, err, ErrTooManyDevices)
	assert.False(t, called, "open must not run when the table is full")

	_, _, err = reg.Add("/dev/ttyUSB0", openValue("dup"))
	require.ErrorIs(t, err, ErrAlreadyOpen)

	got, err := reg.Remove(h0)
	require.NoError(t, err)
	assert.Equal(t, "a", got)
	assert.Equal(t, 1, reg.Len())

	_, err = reg.Remove(h0)
	require.ErrorIs(t, err, ErrInvalidParameter)

	h2, _, err := reg.Add("/dev/ttyUSB2", openValue("c"))
	require.NoError(t, err)
	assert.Equal(t, h0.Slot(), h2.Slot())
	_, ok := reg.Get(h0)
	assert.False(t, ok, "stale handle must not see the reused slot")
	v, ok = reg.Get(h2)
	assert.True(t, ok)
	assert.Equal(t, "c", v)
}

func TestRegistryOpenFailureReleasesSlot(t *testing.T) {
	t.Parallel()
	reg := NewRegistry[int]("rotator", 1)
	errProbe := errors.New("no reply")

	_, _, err := reg.Add("COM3", func() (int, error) { return 0, errProbe })
	require.ErrorIs(t, err, errProbe)
	assert.Zero(t, reg.Len())
	_, ok := reg.Lookup("COM3")
	assert.False(t, ok)

	h, _, err := reg.Add("COM3", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	found, ok := reg.Lookup("COM3")
	require.True(t, ok)
	assert.Equal(t, h, found)
}

func TestRegistryMinimumCapacity(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1, NewRegistry[int]("x", 0).Cap())
}

func TestRegistryConcurrentAdd(t *testing.T) {
	t.Parallel()
	reg := NewRegistry[int]("imu", 4)
	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := reg.Add(fmt.Sprintf("/dev/ttyUSB%d", i), func() (int, error) { return i, nil })
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	ok, full := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrTooManyDevices):
			full++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 4, ok)
	assert.Equal(t, 6, full)
	assert.Equal(t, 4, reg.Len())
}

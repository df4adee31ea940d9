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

package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	busdev "github.com/spacebus/go-busdev"
)

func TestPutUint(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		want  []byte
		value uint64
		width int
		order Order
	}{
		{name: "u16 big endian", value: 0x1234, width: 2, order: BigEndian, want: []byte{0x12, 0x34}},
		{name: "u16 little endian", value: 0x1234, width: 2, order: LittleEndian, want: []byte{0x34, 0x12}},
		{name: "u24 big endian", value: 0xC350, width: 3, order: BigEndian, want: []byte{0x00, 0xC3, 0x50}},
		{name: "u32 little endian", value: 0xDEADBEEF, width: 4, order: LittleEndian, want: []byte{0xEF, 0xBE, 0xAD, 0xDE}},
		{name: "single byte", value: 0x7F, width: 1, order: BigEndian, want: []byte{0x7F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := make([]byte, tt.width)
			require.NoError(t, PutUint(buf, tt.value, tt.width, tt.order))
			assert.Equal(t, tt.want, buf)

			back, err := Uint(buf, tt.width, tt.order)
			require.NoError(t, err)
			assert.Equal(t, tt.value, back)
		})
	}
}

func TestPutUintRejectsOverflow(t *testing.T) {
	t.Parallel()
	err := PutUint(make([]byte, 1), 256, 1, BigEndian)
	assert.ErrorIs(t, err, busdev.ErrOutOfRange)

	err = PutUint(make([]byte, 1), 1, 2, BigEndian)
	assert.ErrorIs(t, err, busdev.ErrInvalidParameter)

	err = PutUint(make([]byte, 9), 1, 9, BigEndian)
	assert.ErrorIs(t, err, busdev.ErrInvalidParameter)
}

func TestIntSignExtension(t *testing.T) {
	t.Parallel()
	v, err := Int([]byte{0xFF, 0xFE}, 2, BigEndian)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), v)

	v, err = Int([]byte{0x00, 0x80}, 2, LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, int64(-32768), v)

	buf := make([]byte, 3)
	require.NoError(t, PutInt(buf, -1, 3, BigEndian))
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF}, buf)

	assert.ErrorIs(t, PutInt(buf, 1<<23, 3, BigEndian), busdev.ErrOutOfRange)
}

func TestFloat32(t *testing.T) {
	t.Parallel()
	for _, order := range []Order{BigEndian, LittleEndian} {
		buf := make([]byte, 4)
		require.NoError(t, PutFloat32(buf, -9.80665, order))
		got, err := Float32(buf, order)
		require.NoError(t, err)
		assert.InDelta(t, -9.80665, got, 1e-6)
	}

	buf := make([]byte, 4)
	require.NoError(t, PutFloat32(buf, 1, BigEndian))
	assert.Equal(t, []byte{0x3F, 0x80, 0x00, 0x00}, buf)
}

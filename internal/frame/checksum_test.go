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

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	busdev "github.com/spacebus/go-busdev"
)

func TestCalculateSum8Complement(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{
			name: "empty data",
			data: []byte{},
			want: 0xFF,
		},
		{
			name: "set amps 0.05A on channel 0",
			data: []byte{0xc0, 0x00, 0x00, 0xc3, 0x50},
			want: 0x2C,
		},
		{
			name: "reset command",
			data: []byte{0x00, 0xab, 0xcd, 0xef},
			want: 0x98,
		},
		{
			name: "overflow handling",
			data: []byte{0xFF, 0x01},
			want: 0xFF, // 256 mod 256 = 0
		},
		{
			name: "telemetry request",
			data: []byte{0xd1, 0x00, 0x00, 0x00},
			want: 0x2E,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CalculateSum8Complement(tt.data); got != tt.want {
				t.Errorf("CalculateSum8Complement() = 0x%02x, want 0x%02x", got, tt.want)
			}
		})
	}
}

func TestCalculateSum16(t *testing.T) {
	t.Parallel()
	assert.Equal(t, uint16(0), CalculateSum16(nil))
	assert.Equal(t, uint16(0x01FE), CalculateSum16([]byte{0xFF, 0xFF}))
	assert.Equal(t, uint16(0x00D1), CalculateSum16([]byte{0xD1}))
}

func TestCRCCheckValues(t *testing.T) {
	t.Parallel()
	check := []byte("123456789")

	assert.Equal(t, uint16(0x6F91), CRC16MCRF4XX.Compute(check))
	assert.Equal(t, uint16(0x906E), CRC16X25.Compute(check))
}

func TestAlgorithmPutRead(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		alg  Algorithm
		sum  uint16
		want []byte
	}{
		{name: "sum8", alg: Sum8Complement, sum: 0x2C, want: []byte{0x2C}},
		{name: "sum16 big endian", alg: Sum16, sum: 0x1234, want: []byte{0x12, 0x34}},
		{name: "mcrf4xx little endian", alg: CRC16MCRF4XX, sum: 0x1234, want: []byte{0x34, 0x12}},
		{name: "x25 little endian", alg: CRC16X25, sum: 0xBEEF, want: []byte{0xEF, 0xBE}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := make([]byte, tt.alg.Width())
			tt.alg.Put(buf, tt.sum)
			assert.Equal(t, tt.want, buf)
			assert.Equal(t, tt.sum, tt.alg.Read(buf))
		})
	}
}

func TestChecksumValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		sum     Checksum
		size    int
		wantErr bool
	}{
		{
			name: "no trailer",
			sum:  Checksum{Algorithm: None},
			size: 1,
		},
		{
			name: "torque rod command",
			sum:  Checksum{Algorithm: Sum8Complement, Start: 0, End: 4, Offset: 4},
			size: 5,
		},
		{
			name: "torque rod telemetry",
			sum:  Checksum{Algorithm: Sum8Complement, Start: 0, End: 29, Offset: 29},
			size: 32,
		},
		{
			name:    "span past end",
			sum:     Checksum{Algorithm: Sum8Complement, Start: 0, End: 6, Offset: 4},
			size:    5,
			wantErr: true,
		},
		{
			name:    "trailer past end",
			sum:     Checksum{Algorithm: Sum16, Start: 0, End: 4, Offset: 4},
			size:    5,
			wantErr: true,
		},
		{
			name:    "trailer inside span",
			sum:     Checksum{Algorithm: Sum8Complement, Start: 0, End: 5, Offset: 2},
			size:    5,
			wantErr: true,
		},
		{
			name:    "inverted span",
			sum:     Checksum{Algorithm: Sum8Complement, Start: 3, End: 1, Offset: 4},
			size:    5,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.sum.Validate(tt.size)
			if tt.wantErr {
				assert.ErrorIs(t, err, busdev.ErrInvalidParameter)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChecksumVerify(t *testing.T) {
	t.Parallel()
	// Leading sync bytes excluded from the span
	sum := Checksum{Algorithm: Sum16, Start: 2, End: 4, Offset: 4}
	frm := []byte{0xAA, 0x55, 0x01, 0x02, 0x00, 0x00}
	sum.Apply(frm)
	assert.Equal(t, []byte{0x00, 0x03}, frm[4:])
	require.NoError(t, sum.Verify(frm))

	frm[0] = 0x00 // outside the span: still valid
	require.NoError(t, sum.Verify(frm))

	frm[3] = 0x03
	err := sum.Verify(frm)
	require.Error(t, err)
	assert.True(t, errors.Is(err, busdev.ErrChecksum))
	assert.True(t, busdev.IsRetryable(err))
}

func TestChecksumVerifyShortFrame(t *testing.T) {
	t.Parallel()
	sum := Checksum{Algorithm: Sum8Complement, Start: 0, End: 29, Offset: 29}
	err := sum.Verify(make([]byte, 10))
	assert.ErrorIs(t, err, busdev.ErrChecksum)
}

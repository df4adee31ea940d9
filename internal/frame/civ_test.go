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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	busdev "github.com/spacebus/go-busdev"
)

func TestEncodeCIV(t *testing.T) {
	t.Parallel()
	got, err := EncodeCIV(0x7C, CIVController, 0x05, []byte{0x00, 0x00, 0x00, 0x45, 0x01})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFE, 0xFE, 0x7C, 0xE0, 0x05, 0x00, 0x00, 0x00, 0x45, 0x01, 0xFD}, got)

	_, err = EncodeCIV(0x7C, CIVController, 0x05, []byte{CIVTerminator})
	assert.ErrorIs(t, err, busdev.ErrInvalidParameter)
}

func TestDecodeCIV(t *testing.T) {
	t.Parallel()
	tests := []struct {
		want    CIVFrame
		wantErr error
		name    string
		in      []byte
	}{
		{
			name: "ok reply",
			in:   []byte{0xFE, 0xFE, 0xE0, 0x7C, 0xFB, 0xFD},
			want: CIVFrame{To: 0xE0, From: 0x7C, Cmd: CIVOK},
		},
		{
			name: "frequency reply with noise",
			in:   []byte{0x00, 0xFE, 0xFE, 0xFE, 0xE0, 0x7C, 0x03, 0x00, 0x00, 0x00, 0x45, 0x01, 0xFD},
			want: CIVFrame{To: 0xE0, From: 0x7C, Cmd: 0x03, Data: []byte{0x00, 0x00, 0x00, 0x45, 0x01}},
		},
		{
			name:    "no preamble",
			in:      []byte{0xE0, 0x7C, 0xFB, 0xFD},
			wantErr: busdev.ErrFrameCorrupted,
		},
		{
			name:    "short",
			in:      []byte{0xFE, 0xFE, 0xE0, 0xFD},
			wantErr: busdev.ErrShortFrame,
		},
		{
			name:    "unterminated",
			in:      []byte{0xFE, 0xFE, 0xE0, 0x7C, 0xFB, 0x00},
			wantErr: busdev.ErrFrameCorrupted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DecodeCIV(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestASCII(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []byte("C2\r"), EncodeASCII("C2", '\r'))
	assert.Equal(t, []byte("BIn;"), EncodeASCII("BIn;", ';'))
	assert.Equal(t, "AZ=123  EL=045", TrimASCII([]byte("AZ=123  EL=045\r\n"), '\r'))
	assert.Equal(t, "FA00145000000", TrimASCII([]byte("FA00145000000;"), ';'))
}

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

package sliplink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/internal/frame"
	"github.com/spacebus/go-busdev/session"
)

func newTestLink(t *testing.T) (*Link, *busdev.MockPort) {
	t.Helper()
	port := busdev.NewMockPort("/dev/ttySLIP0")
	link, err := Connect("/dev/ttySLIP0", session.WithOpener(func(busdev.PortConfig) (busdev.Port, error) {
		return port, nil
	}))
	require.NoError(t, err)
	return link, port
}

func TestSendFrames(t *testing.T) {
	t.Parallel()
	link, port := newTestLink(t)

	payload := []byte{0x01, frame.FEND, 0x02, frame.FESC}
	require.NoError(t, link.Send(context.Background(), payload))

	written := port.Writes()[0]
	assert.Equal(t, byte(frame.FEND), written[0])
	assert.Equal(t, byte(frame.FEND), written[len(written)-1])
	assert.Equal(t, []byte{0x01, frame.FESC, frame.TFEND, 0x02, frame.FESC, frame.TFESC}, written[1:7])

	got, err := frame.DecodeSLIP(written)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSendTooLarge(t *testing.T) {
	t.Parallel()
	link, port := newTestLink(t)
	err := link.Send(context.Background(), make([]byte, MaxPayload+1))
	require.ErrorIs(t, err, busdev.ErrOutOfRange)
	assert.Zero(t, port.WriteCount())
}

func TestReceive(t *testing.T) {
	t.Parallel()
	good, err := frame.EncodeSLIP([]byte("telemetry"))
	require.NoError(t, err)
	bad := append([]byte(nil), good...)
	bad[1] ^= 0x01

	tests := []struct {
		wantErr error
		name    string
		feed    []byte
		want    string
	}{
		{name: "one frame", feed: good, want: "telemetry"},
		{name: "damaged frame", feed: bad, wantErr: busdev.ErrChecksum},
		{name: "silence", wantErr: busdev.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			link, port := newTestLink(t)
			port.Feed(tt.feed...)
			got, err := link.Receive(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestTransactRetriesDamagedReply(t *testing.T) {
	t.Parallel()
	link, port := newTestLink(t)

	reply, err := frame.EncodeSLIP([]byte("pong"))
	require.NoError(t, err)
	damaged := append([]byte(nil), reply...)
	damaged[2] ^= 0x01

	calls := 0
	port.SetResponder(func([]byte) []byte {
		calls++
		if calls == 1 {
			return damaged
		}
		return reply
	})

	got, err := link.Transact(context.Background(), []byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, "pong", string(got))
	assert.Equal(t, 2, port.WriteCount())
}

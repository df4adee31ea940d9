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

package tnc

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/internal/frame"
	"github.com/spacebus/go-busdev/session"
)

func newTestTNC(t *testing.T) (*TNC, *busdev.MockPort) {
	t.Helper()
	cfg, err := NewConfig("CQ", "KH6SAT-1")
	require.NoError(t, err)
	port := busdev.NewMockPort("/dev/ttyTNC0")
	tnc, err := Connect("/dev/ttyTNC0", cfg, session.WithOpener(func(busdev.PortConfig) (busdev.Port, error) {
		return port, nil
	}))
	require.NoError(t, err)
	return tnc, port
}

func TestNewConfig(t *testing.T) {
	t.Parallel()
	cfg, err := NewConfig("cq", "kh6sat-1")
	require.NoError(t, err)
	assert.Equal(t, frame.Address{Callsign: "CQ"}, cfg.Dest)
	assert.Equal(t, frame.Address{Callsign: "KH6SAT", SSID: 1}, cfg.Source)
	assert.Equal(t, byte(1), cfg.Port)

	_, err = NewConfig("TOOLONGCALL", "KH6SAT")
	require.ErrorIs(t, err, busdev.ErrInvalidParameter)
	_, err = NewConfig("CQ", "KH6SAT-16")
	require.ErrorIs(t, err, busdev.ErrOutOfRange)
}

func TestNewRejectsBadStations(t *testing.T) {
	t.Parallel()
	sess, err := session.New(Driver)
	require.NoError(t, err)
	_, err = New(sess, Config{Dest: frame.Address{Callsign: "CQ"}})
	require.ErrorIs(t, err, busdev.ErrInvalidParameter)
}

func TestSendMTU(t *testing.T) {
	t.Parallel()
	tests := []struct {
		wantErr error
		name    string
		size    int
		writes  int
	}{
		{name: "empty", size: 0, writes: 1},
		{name: "exactly the MTU", size: MTU, writes: 1},
		{name: "one over the MTU", size: MTU + 1, wantErr: busdev.ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tnc, port := newTestTNC(t)
			payload := bytes.Repeat([]byte{0x42}, tt.size)

			err := tnc.Send(context.Background(), payload)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.writes, port.WriteCount())
			if tt.writes == 0 {
				return
			}

			written := port.Writes()[0]
			assert.Equal(t, byte(frame.FEND), written[0])
			assert.Equal(t, byte(frame.KISSDataFrame), written[1])
			got, err := frame.DecodeKISS(written)
			require.NoError(t, err)
			assert.Equal(t, payload, append([]byte{}, got.Payload...))
			assert.Equal(t, "KH6SAT-1", got.Source.String())
			assert.Equal(t, byte(frame.AX25ControlUI), got.Control)
			assert.Equal(t, byte(frame.AX25PIDNoL3), got.PID)
		})
	}
}

func TestLoopback(t *testing.T) {
	t.Parallel()
	tnc, port := newTestTNC(t)
	port.SetResponder(func(w []byte) []byte { return w })
	ctx := context.Background()

	// Delimiter and escape bytes inside the payload survive stuffing
	payload := []byte{0x01, frame.FEND, frame.FESC, 0x02, frame.FEND}
	require.NoError(t, tnc.Send(ctx, payload))

	got, err := tnc.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, payload, got.Payload)
	assert.Equal(t, "CQ", got.Dest.String())
}

func TestReceive(t *testing.T) {
	t.Parallel()
	ground, err := frame.EncodeKISS(frame.KISSFrame{
		Dest:    frame.Address{Callsign: "KH6SAT", SSID: 1},
		Source:  frame.Address{Callsign: "WH6GS"},
		Port:    1,
		Control: frame.AX25ControlUI,
		PID:     frame.AX25PIDNoL3,
		Payload: []byte("uplink"),
	})
	require.NoError(t, err)

	// First payload byte: FEND, command byte, two addresses, control, PID
	corrupt := append([]byte(nil), ground...)
	corrupt[18] ^= 0x01

	tests := []struct {
		wantErr error
		name    string
		feed    []byte
		want    string
	}{
		{name: "one frame", feed: ground, want: "uplink"},
		{name: "after fill", feed: append([]byte{frame.FEND, frame.FEND}, ground...), want: "uplink"},
		{name: "damaged frame", feed: corrupt, wantErr: busdev.ErrChecksum},
		{name: "silence", wantErr: busdev.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tnc, port := newTestTNC(t)
			port.Feed(tt.feed...)

			got, err := tnc.Receive(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got.Payload))
			assert.Equal(t, "WH6GS", got.Source.String())
			assert.Zero(t, port.WriteCount())
		})
	}
}

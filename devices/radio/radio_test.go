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

package radio

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	busdev "github.com/spacebus/go-busdev"
	testutil "github.com/spacebus/go-busdev/internal/testing"
	"github.com/spacebus/go-busdev/session"
)

func portOpener(port *busdev.MockPort) session.Option {
	return session.WithOpener(func(busdev.PortConfig) (busdev.Port, error) {
		return port, nil
	})
}

func newTestIC9100(t *testing.T) (*IC9100, *testutil.VirtualIC9100, *busdev.MockPort) {
	t.Helper()
	dev := testutil.NewVirtualIC9100(DefaultIC9100Address)
	port := busdev.NewMockPort("/dev/ttyCIV0")
	port.SetResponder(dev.Respond)
	r, err := ConnectIC9100("/dev/ttyCIV0", DefaultIC9100Address, portOpener(port))
	require.NoError(t, err)
	return r, dev, port
}

func getFrequencyBandTestCases() []struct {
	hz   float64
	want int
} {
	return []struct {
		hz   float64
		want int
	}{
		{1.7e6, BandOther},
		{1.8e6, 1},
		{1.999e6, 1},
		{2.0e6, BandOther},
		{3.4e6, 2},
		{7.0e6, 3},
		{10.1e6, 4},
		{14.2e6, 5},
		{18.1e6, 6},
		{21.0e6, 7},
		{24.9e6, 8},
		{28.0e6, 9},
		{30.0e6, BandOther},
		{50.0e6, 10},
		{54.0e6, 10},
		{54.1e6, BandOther},
		{145.8e6, 11},
		{174.0e6, 11},
		{437.0e6, 12},
		{480.0e6, 12},
		{1240.0e6, 13},
		{1320.0e6, BandOther},
		{2.4e9, BandOther},
	}
}

func TestFrequencyBand(t *testing.T) {
	t.Parallel()
	// thirteen amateur bands, then the catch-all
	require.Equal(t, 14, BandOther)
	assert.Equal(t, 13, FrequencyBand(1_296_000_000))
	for _, tt := range getFrequencyBandTestCases() {
		t.Run(fmt.Sprintf("%.0f", tt.hz), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FrequencyBand(tt.hz))
		})
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	m, err := ParseMode("CW-R")
	require.NoError(t, err)
	assert.Equal(t, ModeCWR, m)
	assert.Equal(t, "DV", ModeDV.String())
	assert.Equal(t, "mode(0x06)", Mode(0x06).String())

	_, err = ParseMode("SSTV")
	require.ErrorIs(t, err, busdev.ErrOutOfRange)
}

func TestIC9100Frames(t *testing.T) {
	t.Parallel()
	r, dev, port := newTestIC9100(t)

	require.NoError(t, r.SetFrequency(context.Background(), VFOA, 145_000_000))
	writes := port.Writes()
	require.Len(t, writes, 3)
	assert.Equal(t, []byte{0xFE, 0xFE, 0x7C, 0xE0, 0x03, 0xFD}, writes[0], "probe")
	assert.Equal(t, []byte{0xFE, 0xFE, 0x7C, 0xE0, 0x07, 0x00, 0xFD}, writes[1])
	assert.Equal(t, []byte{0xFE, 0xFE, 0x7C, 0xE0, 0x05, 0x00, 0x00, 0x00, 0x45, 0x01, 0xFD}, writes[2])
	assert.Equal(t, uint64(145_000_000), dev.Frequency[0])
}

func TestIC9100Frequency(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		echo   bool
		vfo    VFO
		hz     uint64
		wantIx int
	}{
		{name: "vfo a with bus echo", echo: true, vfo: VFOA, hz: 145_825_000, wantIx: 0},
		{name: "vfo b with bus echo", echo: true, vfo: VFOB, hz: 437_500_000, wantIx: 1},
		{name: "vfo b without echo", vfo: VFOB, hz: 1_296_000_000, wantIx: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, dev, _ := newTestIC9100(t)
			dev.BusEcho = tt.echo
			ctx := context.Background()

			require.NoError(t, r.SetFrequency(ctx, tt.vfo, tt.hz))
			assert.Equal(t, tt.hz, dev.Frequency[tt.wantIx])
			got, err := r.Frequency(ctx, tt.vfo)
			require.NoError(t, err)
			assert.Equal(t, tt.hz, got)
		})
	}
}

func TestIC9100ValueDomains(t *testing.T) {
	t.Parallel()
	r, _, port := newTestIC9100(t)
	ctx := context.Background()

	require.ErrorIs(t, r.SetFrequency(ctx, VFOA, 10_000_000_000), busdev.ErrOutOfRange)
	require.ErrorIs(t, r.SetMode(ctx, VFOA, Mode(0x06)), busdev.ErrOutOfRange)
	require.ErrorIs(t, r.SetRFGain(ctx, VFOA, 256), busdev.ErrOutOfRange)
	require.ErrorIs(t, r.SetSquelch(ctx, VFOA, -1), busdev.ErrOutOfRange)
	require.ErrorIs(t, r.SelectVFO(ctx, VFO(2)), busdev.ErrOutOfRange)
	assert.Equal(t, 1, port.WriteCount(), "only the probe reached the wire")
}

func TestIC9100Mode(t *testing.T) {
	t.Parallel()
	r, dev, _ := newTestIC9100(t)
	ctx := context.Background()

	require.NoError(t, r.SetMode(ctx, VFOB, ModeFM))
	assert.Equal(t, byte(ModeFM), dev.Mode[1])
	assert.Equal(t, byte(VFOB), dev.VFO)

	m, err := r.Mode(ctx, VFOB)
	require.NoError(t, err)
	assert.Equal(t, ModeFM, m)

	m, err = r.Mode(ctx, VFOA)
	require.NoError(t, err)
	assert.Equal(t, ModeLSB, m)
}

func TestIC9100Levels(t *testing.T) {
	t.Parallel()
	r, dev, port := newTestIC9100(t)
	ctx := context.Background()

	require.NoError(t, r.SetRFGain(ctx, VFOA, 128))
	writes := port.Writes()
	assert.Equal(t, []byte{0xFE, 0xFE, 0x7C, 0xE0, 0x14, 0x02, 0x01, 0x28, 0xFD}, writes[len(writes)-1])
	require.NoError(t, r.SetSquelch(ctx, VFOA, 7))
	require.NoError(t, r.SetRFPower(ctx, VFOA, 255))
	assert.Equal(t, uint64(128), dev.Levels[LevelRFGain])

	tests := []struct {
		read func(context.Context, VFO) (int, error)
		name string
		want int
	}{
		{name: "rf gain", read: r.RFGain, want: 128},
		{name: "squelch", read: r.Squelch, want: 7},
		{name: "rf power", read: r.RFPower, want: 255},
	}
	for _, tt := range tests {
		got, err := tt.read(ctx, VFOA)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestIC9100ExchangeVFO(t *testing.T) {
	t.Parallel()
	r, dev, port := newTestIC9100(t)
	ctx := context.Background()

	require.NoError(t, r.SetFrequency(ctx, VFOA, 145_825_000))
	require.NoError(t, r.SetFrequency(ctx, VFOB, 437_500_000))
	require.NoError(t, r.ExchangeVFO(ctx))
	writes := port.Writes()
	assert.Equal(t, []byte{0xFE, 0xFE, 0x7C, 0xE0, 0x07, 0xB0, 0xFD}, writes[len(writes)-1])
	assert.Equal(t, [2]uint64{437_500_000, 145_825_000}, dev.Frequency)

	got, err := r.Frequency(ctx, VFOA)
	require.NoError(t, err)
	assert.Equal(t, uint64(437_500_000), got)
}

func TestIC9100Filter(t *testing.T) {
	t.Parallel()
	r, dev, port := newTestIC9100(t)
	ctx := context.Background()

	require.NoError(t, r.SetModeFilter(ctx, VFOB, ModeUSB, Filter2))
	writes := port.Writes()
	assert.Equal(t, []byte{0xFE, 0xFE, 0x7C, 0xE0, 0x06, 0x01, 0x02, 0xFD}, writes[len(writes)-1])
	assert.Equal(t, byte(ModeUSB), dev.Mode[1])
	assert.Equal(t, byte(Filter2), dev.Filter[1])

	f, err := r.Filter(ctx, VFOB)
	require.NoError(t, err)
	assert.Equal(t, Filter2, f)
	f, err = r.Filter(ctx, VFOA)
	require.NoError(t, err)
	assert.Equal(t, Filter1, f)

	before := port.WriteCount()
	require.ErrorIs(t, r.SetModeFilter(ctx, VFOA, ModeUSB, Filter(4)), busdev.ErrOutOfRange)
	assert.Equal(t, before, port.WriteCount())
}

func getBandpassTestCases() []struct {
	wantErr error
	name    string
	hz      float64
	wantHz  float64
	wantIdx byte
} {
	return []struct {
		wantErr error
		name    string
		hz      float64
		wantHz  float64
		wantIdx byte
	}{
		{name: "narrowest", hz: 50, wantIdx: 0, wantHz: 50},
		{name: "top of fine steps", hz: 500, wantIdx: 9, wantHz: 500},
		{name: "rounds to fine step", hz: 520, wantIdx: 9, wantHz: 500},
		{name: "ssb", hz: 2400, wantIdx: 28, wantHz: 2400},
		{name: "rounds to coarse step", hz: 2440, wantIdx: 28, wantHz: 2400},
		{name: "widest", hz: 3600, wantIdx: 40, wantHz: 3600},
		{name: "too narrow", hz: 40, wantErr: busdev.ErrOutOfRange},
		{name: "too wide", hz: 3700, wantErr: busdev.ErrOutOfRange},
	}
}

func TestIC9100Bandpass(t *testing.T) {
	t.Parallel()
	for _, tt := range getBandpassTestCases() {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, dev, port := newTestIC9100(t)
			ctx := context.Background()
			before := port.WriteCount()

			err := r.SetBandpass(ctx, VFOB, tt.hz)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, port.WriteCount())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIdx, dev.Bandpass[1])

			got, err := r.Bandpass(ctx, VFOB)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantHz, got, 1e-9)
		})
	}
}

func TestIC9100DataMode(t *testing.T) {
	t.Parallel()
	r, dev, _ := newTestIC9100(t)
	ctx := context.Background()

	require.NoError(t, r.SetDataMode(ctx, VFOA, true))
	assert.True(t, dev.DataMode[0])

	on, err := r.DataMode(ctx, VFOA)
	require.NoError(t, err)
	assert.True(t, on)
	on, err = r.DataMode(ctx, VFOB)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestIC9100Meters(t *testing.T) {
	t.Parallel()
	r, dev, port := newTestIC9100(t)
	ctx := context.Background()
	dev.Meters[MeterS] = 120
	dev.Meters[MeterRF] = 213
	dev.Meters[MeterSWR] = 48
	dev.Meters[MeterALC] = 7
	dev.Meters[MeterComp] = 0

	got, err := r.SMeter(ctx)
	require.NoError(t, err)
	assert.Equal(t, 120, got)
	writes := port.Writes()
	assert.Equal(t, []byte{0xFE, 0xFE, 0x7C, 0xE0, 0x15, 0x02, 0xFD}, writes[len(writes)-1])

	tests := []struct {
		read func(context.Context) (int, error)
		name string
		want int
	}{
		{name: "rf", read: r.RFMeter, want: 213},
		{name: "swr", read: r.SWRMeter, want: 48},
		{name: "alc", read: r.ALCMeter, want: 7},
		{name: "comp", read: r.CompMeter, want: 0},
	}
	for _, tt := range tests {
		got, err := tt.read(ctx)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestIC9100Rejections(t *testing.T) {
	t.Parallel()
	tests := []struct {
		wantErr error
		name    string
		ng      int
		writes  int
	}{
		{name: "one NG is retried", ng: 1, writes: 3},
		{name: "persistent NG", ng: 3, wantErr: busdev.ErrNack, writes: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, dev, port := newTestIC9100(t)
			before := port.WriteCount()
			dev.NGNext = tt.ng

			err := r.SetMode(context.Background(), VFOA, ModeUSB)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, byte(ModeUSB), dev.Mode[0])
			}
			assert.Equal(t, tt.writes, port.WriteCount()-before)
		})
	}
}

func TestIC9100WrongAddress(t *testing.T) {
	t.Parallel()
	dev := testutil.NewVirtualIC9100(DefaultIC9100Address)
	port := busdev.NewMockPort("/dev/ttyCIV0")
	port.SetResponder(dev.Respond)

	_, err := ConnectIC9100("/dev/ttyCIV0", 0x7D, portOpener(port))
	require.ErrorIs(t, err, busdev.ErrTimeout)
	assert.False(t, port.IsConnected())
}

func newTestTS2000(t *testing.T) (*TS2000, *testutil.VirtualTS2000, *busdev.MockPort) {
	t.Helper()
	dev := &testutil.VirtualTS2000{Frequency: [2]int64{14_074_000, 7_040_000}}
	port := busdev.NewMockPort("/dev/ttyCAT0")
	port.SetResponder(dev.Respond)
	r, err := ConnectTS2000("/dev/ttyCAT0", portOpener(port))
	require.NoError(t, err)
	return r, dev, port
}

func TestTS2000Frequency(t *testing.T) {
	t.Parallel()
	r, dev, port := newTestTS2000(t)
	ctx := context.Background()

	hz, err := r.Frequency(ctx, VFOB)
	require.NoError(t, err)
	assert.Equal(t, int64(7_040_000), hz)

	require.NoError(t, r.SetFrequency(ctx, VFOA, 145_800_000))
	assert.Equal(t, int64(145_800_000), dev.Frequency[0])
	writes := port.Writes()
	assert.Equal(t, []byte("FA00145800000;"), writes[len(writes)-2])
	assert.Equal(t, []byte("FA;"), writes[len(writes)-1])
}

func TestTS2000ValueDomains(t *testing.T) {
	t.Parallel()
	r, _, port := newTestTS2000(t)
	ctx := context.Background()

	require.ErrorIs(t, r.SetFrequency(ctx, VFOA, -1), busdev.ErrOutOfRange)
	require.ErrorIs(t, r.SetFrequency(ctx, VFOA, 100_000_000_000), busdev.ErrOutOfRange)
	_, err := r.Frequency(ctx, VFO(3))
	require.ErrorIs(t, err, busdev.ErrOutOfRange)
	assert.Equal(t, 1, port.WriteCount())
}

func TestTS2000Rejected(t *testing.T) {
	t.Parallel()
	r, _, port := newTestTS2000(t)
	port.SetResponder(func([]byte) []byte { return []byte("?;") })
	before := port.WriteCount()

	_, err := r.Frequency(context.Background(), VFOA)
	require.ErrorIs(t, err, busdev.ErrNack)
	assert.Equal(t, 3, port.WriteCount()-before)
}

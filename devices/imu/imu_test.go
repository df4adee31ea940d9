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

package imu

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	busdev "github.com/spacebus/go-busdev"
	testutil "github.com/spacebus/go-busdev/internal/testing"
	"github.com/spacebus/go-busdev/session"
)

func mockOpener(dev *testutil.VirtualIMU, port **busdev.MockPort) session.Option {
	return session.WithOpener(func(cfg busdev.PortConfig) (busdev.Port, error) {
		p := busdev.NewMockPort(cfg.Path)
		p.SetResponder(dev.Respond)
		*port = p
		return p, nil
	})
}

func newTestUnit(t *testing.T, reg *busdev.Registry[*IMU], path string) (*IMU, *testutil.VirtualIMU, *busdev.MockPort) {
	t.Helper()
	dev := testutil.NewVirtualIMU()
	var port *busdev.MockPort
	m, err := ConnectWith(reg, path, mockOpener(dev, &port))
	require.NoError(t, err)
	return m, dev, port
}

func TestDriverLayouts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		op      byte
		request int
		size    int
	}{
		{OpRawAccelRate, 1, 31},
		{OpAccelRate, 1, 31},
		{OpDeltaAngleVelocity, 1, 31},
		{OpOrientation, 1, 43},
		{OpOrientationUpdate, 1, 43},
		{OpMagnetometer, 1, 19},
		{OpAccelRateMag, 1, 43},
		{OpAccelRateMagOrientation, 1, 79},
		{OpCaptureGyroBias, 5, 19},
		{OpEuler, 1, 19},
		{OpEulerRates, 1, 31},
		{OpTemperature, 1, 15},
		{OpStabilisedAccelRateMag, 1, 43},
		{OpFirmware, 1, 7},
		{OpDeviceID, 2, 20},
		{OpStopContinuous, 1, 0},
	}

	require.Len(t, Driver.Commands(), len(tests))
	for _, tt := range tests {
		t.Run(fmt.Sprintf("0x%02x", tt.op), func(t *testing.T) {
			t.Parallel()
			cmd, ok := Driver.Command(tt.op)
			require.True(t, ok)
			assert.Equal(t, tt.request, cmd.RequestSize)
			assert.Equal(t, tt.size, cmd.ResponseSize)
			if tt.size > 0 {
				assert.True(t, cmd.EchoInBlock)
				assert.Equal(t, tt.size-2, cmd.ResponseChecksum.Offset)
			}
		})
	}
}

func TestConnectProbesTemperature(t *testing.T) {
	t.Parallel()
	m, _, port := newTestUnit(t, NewRegistry(), "/dev/ttyIMU0")
	writes := port.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, []byte{OpTemperature}, writes[0])
	assert.Equal(t, "/dev/ttyIMU0", m.Path())
	assert.Equal(t, 115200, Driver.PortConfig().BaudRate)
}

func TestRegistryBounds(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	units := make([]*IMU, 0, MaxDevices)
	for i := 0; i < MaxDevices; i++ {
		m, _, _ := newTestUnit(t, reg, fmt.Sprintf("/dev/ttyIMU%d", i))
		units = append(units, m)
	}
	assert.Equal(t, MaxDevices, reg.Len())

	dev := testutil.NewVirtualIMU()
	var port *busdev.MockPort
	_, err := ConnectWith(reg, "/dev/ttyIMU9", mockOpener(dev, &port))
	require.ErrorIs(t, err, busdev.ErrTooManyDevices)
	assert.Nil(t, port, "no port is opened once the table is full")

	_, err = ConnectWith(reg, "/dev/ttyIMU1", mockOpener(dev, &port))
	require.ErrorIs(t, err, busdev.ErrAlreadyOpen)

	require.NoError(t, units[1].Close())
	assert.Equal(t, MaxDevices-1, reg.Len())
	require.ErrorIs(t, units[1].Close(), busdev.ErrInvalidParameter)

	m, _, _ := newTestUnit(t, reg, "/dev/ttyIMU9")
	assert.Equal(t, MaxDevices, reg.Len())
	require.NoError(t, m.Close())
}

func TestConnectSilentUnitReleasesSlot(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	dev := testutil.NewVirtualIMU()
	dev.Silent = true
	var port *busdev.MockPort
	_, err := ConnectWith(reg, "/dev/ttyIMU0", mockOpener(dev, &port))
	require.ErrorIs(t, err, busdev.ErrTimeout)
	assert.Zero(t, reg.Len())
	assert.False(t, port.IsConnected())
}

func TestAccelRate(t *testing.T) {
	t.Parallel()
	m, dev, _ := newTestUnit(t, NewRegistry(), "/dev/ttyIMU0")
	dev.SetValues(OpAccelRate, 1, 0, -1, 0.1, 0.2, 0.3)

	got, err := m.AccelRate(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, Gravity, got.Accel[0], 1e-5)
	assert.InDelta(t, -Gravity, got.Accel[2], 1e-5)
	assert.InDelta(t, 0.2, got.Rate[1], 1e-6)
	assert.Equal(t, uint32(2), got.Timer)
}

func TestRawAccelRate(t *testing.T) {
	t.Parallel()
	m, dev, _ := newTestUnit(t, NewRegistry(), "/dev/ttyIMU0")
	dev.SetValues(OpRawAccelRate, 65535, 32767.5, 0, 0, 0, 13107)

	got, err := m.RawAccelRate(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 5, got.Accel[0], 1e-6)
	assert.InDelta(t, 2.5, got.Accel[1], 1e-6)
	assert.InDelta(t, 1, got.Rate[2], 1e-6)
}

func TestOrientationAndMotion(t *testing.T) {
	t.Parallel()
	m, dev, _ := newTestUnit(t, NewRegistry(), "/dev/ttyIMU0")
	ctx := context.Background()

	dev.SetValues(OpOrientation, 1, 0, 0, 0, 1, 0, 0, 0, 1)
	mat, _, err := m.Orientation(ctx)
	require.NoError(t, err)
	assert.Equal(t, Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, mat)

	values := make([]float32, 18)
	for i := range values {
		values[i] = float32(i)
	}
	dev.SetValues(OpAccelRateMagOrientation, values...)
	motion, err := m.AccelRateMagOrientation(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2*Gravity, motion.Accel[2], 1e-5)
	assert.Equal(t, 5.0, motion.Rate[2])
	assert.Equal(t, 6.0, motion.Mag[0])
	assert.Equal(t, 9.0, motion.Orientation[0][0])
	assert.Equal(t, 17.0, motion.Orientation[2][2])

	dev.SetValues(OpMagnetometer, 0.25, -0.5, 0.125)
	mag, _, err := m.Magnetometer(ctx)
	require.NoError(t, err)
	assert.Equal(t, Vector{0.25, -0.5, 0.125}, mag)

	dev.SetValues(OpStabilisedAccelRateMag, 0, 0, 1)
	stab, err := m.StabilisedAccelRateMag(ctx)
	require.NoError(t, err)
	assert.InDelta(t, Gravity, stab.Accel[2], 1e-5)
}

func TestEuler(t *testing.T) {
	t.Parallel()
	m, dev, _ := newTestUnit(t, NewRegistry(), "/dev/ttyIMU0")
	dev.SetValues(OpEuler, 0.5, -0.25, 3)
	dev.SetValues(OpEulerRates, 0.5, -0.25, 3, 0.01, 0.02, 0.03)

	e, err := m.Euler(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.5, e.Roll)
	assert.Equal(t, -0.25, e.Pitch)
	assert.Equal(t, 3.0, e.Yaw)

	e, err = m.EulerRates(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.03, e.Rates[2], 1e-6)
}

func TestTemperatureFirmwareID(t *testing.T) {
	t.Parallel()
	m, _, _ := newTestUnit(t, NewRegistry(), "/dev/ttyIMU0")
	ctx := context.Background()

	temp, err := m.Temperature(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 25, temp.Accel, 0.1)
	for _, g := range temp.Gyro {
		assert.InDelta(t, 25, g, 0.1)
	}

	fw, err := m.Firmware(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1106), fw)

	id, err := m.DeviceID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "6225-4220", id)
}

func TestCaptureGyroBias(t *testing.T) {
	t.Parallel()
	m, dev, port := newTestUnit(t, NewRegistry(), "/dev/ttyIMU0")
	dev.SetValues(OpCaptureGyroBias, 0.001, -0.002, 0.003)

	bias, err := m.CaptureGyroBias(context.Background(), 10*time.Second)
	require.NoError(t, err)
	assert.InDelta(t, -0.002, bias[1], 1e-9)
	assert.Equal(t, uint16(10000), dev.BiasWindow)
	writes := port.Writes()
	assert.Equal(t, []byte{0xcd, 0xc1, 0x29, 0x27, 0x10}, writes[len(writes)-1])

	_, err = m.CaptureGyroBias(context.Background(), 70*time.Second)
	require.ErrorIs(t, err, busdev.ErrOutOfRange)
}

func TestFaultsAreRetried(t *testing.T) {
	t.Parallel()
	tests := []struct {
		inject  func(dev *testutil.VirtualIMU)
		wantErr error
		name    string
		writes  int
	}{
		{
			name:   "one corrupt block",
			inject: func(dev *testutil.VirtualIMU) { dev.CorruptNext = 1 },
			writes: 2,
		},
		{
			name:    "corrupt until attempts run out",
			inject:  func(dev *testutil.VirtualIMU) { dev.CorruptNext = 3 },
			wantErr: busdev.ErrChecksum,
			writes:  3,
		},
		{
			name:    "wrong echo byte",
			inject:  func(dev *testutil.VirtualIMU) { dev.NackNext = 3 },
			wantErr: busdev.ErrNack,
			writes:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, dev, port := newTestUnit(t, NewRegistry(), "/dev/ttyIMU0")
			before := port.WriteCount()
			tt.inject(dev)
			_, err := m.Euler(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.writes, port.WriteCount()-before)
		})
	}
}

func TestStopContinuous(t *testing.T) {
	t.Parallel()
	m, dev, _ := newTestUnit(t, NewRegistry(), "/dev/ttyIMU0")
	require.NoError(t, m.StopContinuous(context.Background()))
	assert.Equal(t, 1, dev.StopCount)
}

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

package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDetector struct {
	err       error
	transport string
	devices   []DeviceInfo
}

func (s stubDetector) Transport() string { return s.transport }

func (s stubDetector) Detect(context.Context, *Options) ([]DeviceInfo, error) {
	return s.devices, s.err
}

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		expected    bool
	}{
		{name: "empty ignore list", devicePath: "/dev/ttyUSB0", ignorePaths: []string{}},
		{name: "empty device path", devicePath: "", ignorePaths: []string{"/dev/ttyUSB0"}},
		{name: "exact match", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"/dev/ttyUSB0"}, expected: true},
		{name: "windows com port", devicePath: "COM3", ignorePaths: []string{"COM3"}, expected: true},
		{name: "case insensitive", devicePath: "com3", ignorePaths: []string{"COM3"}, expected: true},
		{name: "no match", devicePath: "/dev/ttyUSB1", ignorePaths: []string{"/dev/ttyUSB0"}},
		{
			name:        "multiple paths with match",
			devicePath:  "/dev/ttyACM1",
			ignorePaths: []string{"/dev/ttyUSB0", "/dev/ttyACM1", "COM2"},
			expected:    true,
		},
		{name: "i2c bus", devicePath: "/dev/i2c-1", ignorePaths: []string{"/dev/i2c-1"}, expected: true},
		{
			name:        "relative components",
			devicePath:  "/dev/../dev/ttyUSB0",
			ignorePaths: []string{"/dev/ttyUSB0"},
			expected:    true,
		},
		{
			name:        "empty strings in ignore list",
			devicePath:  "/dev/ttyUSB0",
			ignorePaths: []string{"", "/dev/ttyUSB0", ""},
			expected:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsPathIgnored(tt.devicePath, tt.ignorePaths))
		})
	}
}

func TestParseVIDPID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		descriptor string
		want       string
	}{
		{descriptor: "VID:0403 PID:6001", want: "0403:6001"},
		{descriptor: "vendor=10c4 product=ea60", want: "10C4:EA60"},
		{descriptor: `USB\VID_1A86&PID_7523\5&1234`, want: "1A86:7523"},
		{descriptor: "067b:2303", want: "067B:2303"},
		{descriptor: "ttyS0", want: ""},
		{descriptor: "ab:cd:ef", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.descriptor, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseVIDPID(tt.descriptor))
		})
	}
}

func TestBlocklistAndAdapters(t *testing.T) {
	t.Parallel()
	assert.True(t, IsBlocked("2341:0043", DefaultBlocklist()))
	assert.True(t, IsBlocked(" 1366:0105 ", []string{"1366:0105"}))
	assert.False(t, IsBlocked("0403:6001", DefaultBlocklist()))

	assert.Equal(t, "FTDI FT232R", AdapterName("0403:6001"))
	assert.Equal(t, "Silicon Labs CP210x", AdapterName("10c4:ea60"))
	assert.Empty(t, AdapterName("FFFF:0000"))

	assert.Equal(t, "10C4:EA60", FormatVIDPID("10c4", "ea60"))
	assert.Empty(t, FormatVIDPID("", "ea60"))
	assert.Empty(t, FormatVIDPID("zz", "ea60"))
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()
	opts := DefaultOptions()
	assert.Nil(t, opts.IgnorePaths)
	assert.NotEmpty(t, opts.Blocklist)
	assert.Positive(t, opts.Timeout)
}

func TestDeviceInfoString(t *testing.T) {
	t.Parallel()
	d := DeviceInfo{Transport: "uart", Path: "/dev/ttyUSB0", VIDPID: "0403:6001"}
	assert.Equal(t, "uart /dev/ttyUSB0 [0403:6001] FTDI FT232R", d.String())
	assert.Equal(t, "i2c /dev/i2c-1", DeviceInfo{Transport: "i2c", Path: "/dev/i2c-1"}.String())
}

func TestDetectWith(t *testing.T) {
	t.Parallel()
	errBus := errors.New("bus fault")
	tests := []struct {
		wantErr   error
		name      string
		detectors []Detector
		wantPaths []string
	}{
		{
			name: "filters blocked and ignored",
			detectors: []Detector{stubDetector{transport: "uart", devices: []DeviceInfo{
				{Transport: "uart", Path: "/dev/ttyUSB0", VIDPID: "0403:6001"},
				{Transport: "uart", Path: "/dev/ttyACM0", VIDPID: "2341:0043"},
				{Transport: "uart", Path: "/dev/ttyS0"},
			}}},
			wantPaths: []string{"/dev/ttyUSB0"},
		},
		{
			name: "unsupported platform skipped",
			detectors: []Detector{
				stubDetector{transport: "i2c", err: ErrUnsupportedPlatform},
				stubDetector{transport: "uart", devices: []DeviceInfo{{Transport: "uart", Path: "COM4"}}},
			},
			wantPaths: []string{"COM4"},
		},
		{
			name:      "nothing found",
			detectors: []Detector{stubDetector{transport: "uart", err: ErrNoDevicesFound}},
			wantErr:   ErrNoDevicesFound,
		},
		{
			name:      "detector failure reported",
			detectors: []Detector{stubDetector{transport: "i2c", err: errBus}},
			wantErr:   errBus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := DefaultOptions()
			opts.IgnorePaths = []string{"/dev/ttyS0"}
			found, err := detectWith(context.Background(), opts, tt.detectors)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			var paths []string
			for _, d := range found {
				paths = append(paths, d.Path)
			}
			assert.Equal(t, tt.wantPaths, paths)
		})
	}
}

func TestDetectWithCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := detectWith(ctx, &Options{}, []Detector{stubDetector{transport: "uart"}})
	assert.ErrorIs(t, err, ErrDetectionTimeout)
}

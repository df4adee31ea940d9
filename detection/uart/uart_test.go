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

package uart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"

	"github.com/spacebus/go-busdev/detection"
)

// Tests swap the package-level lister, so none of them run in parallel.

func withPorts(t *testing.T, ports []*enumerator.PortDetails, err error) {
	t.Helper()
	saved := listPorts
	listPorts = func() ([]*enumerator.PortDetails, error) { return ports, err }
	t.Cleanup(func() { listPorts = saved })
}

func TestDetectUSBBridges(t *testing.T) {
	withPorts(t, []*enumerator.PortDetails{
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001", SerialNumber: "A10K4XYZ", Product: "FT232R USB UART"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "2341", PID: "0043"},
		{Name: "/dev/ttyS0"},
	}, nil)

	found, err := New().Detect(context.Background(), detection.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, found, 2)

	usb := found[0]
	assert.Equal(t, "uart", usb.Transport)
	assert.Equal(t, "/dev/ttyUSB0", usb.Path)
	assert.Equal(t, "0403:6001", usb.VIDPID)
	assert.Equal(t, "FT232R USB UART", usb.Name)
	assert.Equal(t, "A10K4XYZ", usb.Metadata["serial"])
	assert.Equal(t, "FTDI FT232R", usb.Metadata["adapter"])

	assert.Equal(t, "/dev/ttyS0", found[1].Path)
	assert.Empty(t, found[1].VIDPID)
}

func TestDetectIgnoredPath(t *testing.T) {
	withPorts(t, []*enumerator.PortDetails{{Name: "COM3"}, {Name: "COM4"}}, nil)

	opts := detection.DefaultOptions()
	opts.IgnorePaths = []string{"com3"}
	found, err := New().Detect(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "COM4", found[0].Path)
}

func TestDetectNoPorts(t *testing.T) {
	withPorts(t, nil, nil)
	_, err := New().Detect(context.Background(), detection.DefaultOptions())
	assert.ErrorIs(t, err, detection.ErrNoDevicesFound)
}

func TestDetectListFailure(t *testing.T) {
	errList := errors.New("udev unavailable")
	withPorts(t, nil, errList)
	_, err := New().Detect(context.Background(), detection.DefaultOptions())
	assert.ErrorIs(t, err, errList)
}

func TestDetectorRegistered(t *testing.T) {
	var names []string
	for _, d := range detection.Detectors() {
		names = append(names, d.Transport())
	}
	assert.Contains(t, names, "uart")
}

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

// Package i2c detects I2C buses through the periph host drivers.
// Importing it registers the detector.
package i2c

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/spacebus/go-busdev/detection"
)

// hostInit and listBuses are replaced in tests
var (
	hostInit = func() error {
		_, err := host.Init()
		return err
	}
	listBuses = i2creg.All
)

type detector struct{}

// New creates an I2C bus detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "i2c"
}

// Detect lists the I2C buses periph knows about. Slave addresses are not
// probed; a bus path is paired with an address when a device is opened.
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if runtime.GOOS != "linux" {
		return nil, detection.ErrUnsupportedPlatform
	}
	if err := ctx.Err(); err != nil {
		return nil, detection.ErrDetectionTimeout
	}
	if err := hostInit(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}

	refs := listBuses()
	if len(refs) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	devices := make([]detection.DeviceInfo, 0, len(refs))
	for _, ref := range refs {
		info := detection.DeviceInfo{
			Transport: "i2c",
			Path:      busPath(ref),
			Name:      ref.Name,
			Metadata:  map[string]string{},
		}
		if ref.Number >= 0 {
			info.Metadata["bus"] = strconv.Itoa(ref.Number)
		}
		if len(ref.Aliases) > 0 {
			info.Metadata["aliases"] = strings.Join(ref.Aliases, ",")
		}
		devices = append(devices, info)
	}
	return detection.Filter(devices, opts), nil
}

// busPath prefers the /dev node name so paths match what users configure
func busPath(ref *i2creg.Ref) string {
	if ref.Number >= 0 {
		return "/dev/i2c-" + strconv.Itoa(ref.Number)
	}
	return ref.Name
}

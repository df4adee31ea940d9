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

// Package uart detects serial ports. Importing it registers the detector.
package uart

import (
	"context"
	"fmt"

	"go.bug.st/serial/enumerator"

	"github.com/spacebus/go-busdev/detection"
)

// listPorts is replaced in tests
var listPorts = enumerator.GetDetailedPortsList

type detector struct{}

// New creates a serial port detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "uart"
}

// Detect lists serial ports. USB bridges carry VID:PID and the enumerator's
// product and serial strings as metadata.
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, detection.ErrDetectionTimeout
	}
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	if len(ports) == 0 {
		return nil, detection.ErrNoDevicesFound
	}

	devices := make([]detection.DeviceInfo, 0, len(ports))
	for _, p := range ports {
		info := detection.DeviceInfo{
			Transport: "uart",
			Path:      p.Name,
			Name:      p.Name,
			Metadata:  map[string]string{},
		}
		if p.IsUSB {
			info.VIDPID = detection.FormatVIDPID(p.VID, p.PID)
			if p.Product != "" {
				info.Name = p.Product
				info.Metadata["product"] = p.Product
			}
			if p.SerialNumber != "" {
				info.Metadata["serial"] = p.SerialNumber
			}
			if adapter := detection.AdapterName(info.VIDPID); adapter != "" {
				info.Metadata["adapter"] = adapter
			}
		}
		devices = append(devices, info)
	}
	return detection.Filter(devices, opts), nil
}

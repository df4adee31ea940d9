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

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spacebus/go-busdev/devices/imu"
	"github.com/spacebus/go-busdev/devices/radio"
	"github.com/spacebus/go-busdev/devices/rotator"
	"github.com/spacebus/go-busdev/devices/sliplink"
	"github.com/spacebus/go-busdev/devices/tnc"
	"github.com/spacebus/go-busdev/devices/torquerod"
	"github.com/spacebus/go-busdev/internal/config"
	"github.com/spacebus/go-busdev/session"
)

var errNoDevice = errors.New("no device path; pass -device or set BUSDEV_DEVICE")

// device is one connected instrument of any family
type device struct {
	handle io.Closer
	name   string
	family string
	path   string
}

func (d *device) String() string {
	return fmt.Sprintf("%s (%s on %s)", d.name, d.family, d.path)
}

// connectProfile opens the device a profile describes
func connectProfile(name string, p config.Profile, open session.Opener) (*device, error) {
	if p.Device == "" {
		return nil, errNoDevice
	}
	opts := append(p.SessionOptions(), session.WithOpener(open))

	var (
		handle io.Closer
		err    error
	)
	switch p.Family {
	case config.FamilyTorqueRod:
		handle, err = torquerod.Connect(p.Device, opts...)
	case config.FamilyIMU:
		handle, err = imu.Connect(p.Device, opts...)
	case config.FamilyGS232B:
		handle, err = rotator.ConnectGS232B(p.Device, opts...)
	case config.FamilyPRKX2SU:
		handle, err = rotator.ConnectPRKX2SU(p.Device, opts...)
	case config.FamilyIC9100:
		addr := byte(radio.DefaultIC9100Address)
		if p.Address != 0 {
			addr = byte(p.Address)
		}
		handle, err = radio.ConnectIC9100(p.Device, addr, opts...)
	case config.FamilyTS2000:
		handle, err = radio.ConnectTS2000(p.Device, opts...)
	case config.FamilyTNC:
		var cfg tnc.Config
		if cfg, err = tnc.NewConfig(p.Dest, p.Source); err == nil {
			handle, err = tnc.Connect(p.Device, cfg, opts...)
		}
	case config.FamilySLIP:
		handle, err = sliplink.Connect(p.Device, opts...)
	default:
		return nil, fmt.Errorf("unknown family %q", p.Family)
	}
	if err != nil {
		return nil, err
	}
	return &device{handle: handle, name: name, family: p.Family, path: p.Device}, nil
}

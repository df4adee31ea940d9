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

/*
Package busdev is the device-protocol layer between a spacecraft control
computer and its bus hardware: torque-rod controllers, inertial measurement
units, antenna rotators, radios and packet-radio TNCs, each reached over a
point-to-point serial line.

The root package holds the contracts every layer shares:

  - Port, the blocking byte-level line implemented by transport/uart and
    transport/i2c
  - PortConfig, the immutable line settings
  - the error kinds (ErrOpen, ErrTimeout, ErrChecksum, ErrNack,
    ErrOutOfRange, ErrTooManyDevices) and TransportError
  - RetryConfig and RetryWithConfig, the bounded I/O retry loop
  - Clock, the injectable time source for convergence polling
  - Registry, a fixed-capacity table of open devices of one family

Framing lives in internal/frame, value encodings in codec, the
request/response state machine in session, and the hardware families in
devices/*.

Basic Usage:

	import (
	    "github.com/spacebus/go-busdev/devices/torquerod"
	)

	rod, err := torquerod.Connect("/dev/ttyUSB0")
	if err != nil {
	    return err
	}
	defer rod.Close()

	if err := rod.SetAmps(ctx, 0, 0.05); err != nil {
	    return err
	}

Every blocking call is bounded by a timeout. Closing a session or port
makes an outstanding read return promptly with ErrClosed.
*/
package busdev

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

package rotator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/internal/frame"
	"github.com/spacebus/go-busdev/session"
)

// PRK-X2SU speed range
const (
	PRKMinSpeed = 1
	PRKMaxSpeed = 10
)

// Axis port suffixes appended to the base path by ConnectPRKX2SU
const (
	AzimuthSuffix   = "_az"
	ElevationSuffix = "_el"
)

// AxisStatus is one decoded status reply
type AxisStatus struct {
	Angle  float64
	ID     byte
	Status byte
}

// Limits of one axis, in degrees
type Limits struct {
	Min float64
	Max float64
}

// PRKX2SU is a connected PRK-X2SU rotator: one controller per axis, each
// on its own port
type PRKX2SU struct {
	axes        [2]*session.Session
	limits      [2]Limits
	target      [2]float64
	sensitivity float64
	aimed       bool
	mu          sync.Mutex
}

// NewPRKX2SU wraps the azimuth and elevation sessions. Limits default to
// a full turn and a quarter turn until ReadLimits is called.
func NewPRKX2SU(az, el *session.Session) *PRKX2SU {
	return &PRKX2SU{
		axes:        [2]*session.Session{az, el},
		limits:      [2]Limits{{0, 360}, {0, 90}},
		sensitivity: DefaultSensitivity,
	}
}

// ConnectPRKX2SU opens path+"_az" and path+"_el", tests both links and
// reads the travel limits
func ConnectPRKX2SU(path string, opts ...session.Option) (*PRKX2SU, error) {
	var sessions [2]*session.Session
	closeAll := func() {
		for _, s := range sessions {
			if s != nil {
				_ = s.Close()
			}
		}
	}
	for i, suffix := range []string{AzimuthSuffix, ElevationSuffix} {
		s, err := session.New(PRKX2SUDriver, opts...)
		if err != nil {
			closeAll()
			return nil, err
		}
		if err := s.Connect(PRKX2SUDriver.PortConfig().WithPath(path + suffix)); err != nil {
			closeAll()
			return nil, err
		}
		sessions[i] = s
	}

	r := NewPRKX2SU(sessions[Azimuth], sessions[Elevation])
	for _, axis := range []Axis{Azimuth, Elevation} {
		if _, err := r.ReadLimits(context.Background(), axis); err != nil {
			closeAll()
			return nil, fmt.Errorf("prkx2su %s: %s: %w", path, axis, err)
		}
	}
	return r, nil
}

// Close releases both ports
func (r *PRKX2SU) Close() error {
	var errs []error
	for _, s := range r.axes {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Session returns the session of axis
func (r *PRKX2SU) Session(axis Axis) *session.Session {
	return r.axes[axis]
}

// SetSensitivity sets the separation in degrees from the previous target
// below which Goto does nothing
func (r *PRKX2SU) SetSensitivity(deg float64) error {
	if math.IsNaN(deg) || deg < 0 {
		return busdev.NewRangeError("sensitivity", deg, 0, 360)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensitivity = deg
	return nil
}

func checkAxis(axis Axis) error {
	if axis != Azimuth && axis != Elevation {
		return busdev.NewRangeError("axis", int(axis), int(Azimuth), int(Elevation))
	}
	return nil
}

// Test runs the link test on axis: "R10;" answered by '1', 0x01 ... ';'
func (r *PRKX2SU) Test(ctx context.Context, axis Axis) error {
	if err := checkAxis(axis); err != nil {
		return err
	}
	sess := r.axes[axis]
	_, err := sess.Exchange(ctx, session.Request{
		Op:    "link test",
		Frame: []byte("R10;"),
		Force: true,
		Read:  session.ReadUntil(PRKX2SUTerminator, maxLine),
		Validate: func(resp []byte) error {
			if len(resp) < 3 || resp[0] != '1' || resp[1] != 0x01 || resp[len(resp)-1] != PRKX2SUTerminator {
				return busdev.NewNackError("link test", sess.Path(), fmt.Sprintf("reply % x", resp))
			}
			return nil
		},
	})
	return err
}

// send runs the link test and then writes cmd. A reply is read up to the
// terminator when reply is set.
func (r *PRKX2SU) send(ctx context.Context, axis Axis, op, cmd string, reply bool) (string, error) {
	if err := r.Test(ctx, axis); err != nil {
		return "", err
	}
	req := session.Request{
		Op:    op,
		Frame: frame.EncodeASCII(cmd, PRKX2SUTerminator),
		Force: true,
	}
	if reply {
		req.Read = session.ReadUntil(PRKX2SUTerminator, maxLine)
	}
	resp, err := r.axes[axis].Exchange(ctx, req)
	if err != nil {
		return "", err
	}
	return frame.TrimASCII(resp, PRKX2SUTerminator), nil
}

// parseAngle parses the number that follows the reply's letter prefix
func parseAngle(op, path, reply string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimLeft(reply, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"), 64)
	if err != nil {
		return 0, busdev.NewFrameCorruptedError(op, path, fmt.Sprintf("reply %q", reply))
	}
	return v, nil
}

// Status reads the controller id, status character and angle of axis
func (r *PRKX2SU) Status(ctx context.Context, axis Axis) (AxisStatus, error) {
	if err := checkAxis(axis); err != nil {
		return AxisStatus{}, err
	}
	reply, err := r.send(ctx, axis, "status", "BIn;", true)
	if err != nil {
		return AxisStatus{}, err
	}
	if len(reply) < 3 {
		return AxisStatus{}, busdev.NewFrameCorruptedError("status", r.axes[axis].Path(), fmt.Sprintf("reply %q", reply))
	}
	angle, err := strconv.ParseFloat(strings.TrimSpace(reply[2:]), 64)
	if err != nil {
		return AxisStatus{}, busdev.NewFrameCorruptedError("status", r.axes[axis].Path(), fmt.Sprintf("angle %q", reply[2:]))
	}
	return AxisStatus{ID: reply[0], Status: reply[1], Angle: angle}, nil
}

// Position reads both axis angles
func (r *PRKX2SU) Position(ctx context.Context) (az, el float64, err error) {
	st, err := r.Status(ctx, Azimuth)
	if err != nil {
		return 0, 0, err
	}
	az = st.Angle
	if st, err = r.Status(ctx, Elevation); err != nil {
		return 0, 0, err
	}
	return az, st.Angle, nil
}

// ReadLimits reads the travel limits of axis and keeps them for Goto. An
// azimuth minimum above zero is taken as counter-clockwise of north.
func (r *PRKX2SU) ReadLimits(ctx context.Context, axis Axis) (Limits, error) {
	if err := checkAxis(axis); err != nil {
		return Limits{}, err
	}
	path := r.axes[axis].Path()
	reply, err := r.send(ctx, axis, "read limits", "RH0;", true)
	if err != nil {
		return Limits{}, err
	}
	lo, err := parseAngle("read limits", path, reply)
	if err != nil {
		return Limits{}, err
	}
	if reply, err = r.send(ctx, axis, "read limits", "RI0;", true); err != nil {
		return Limits{}, err
	}
	hi, err := parseAngle("read limits", path, reply)
	if err != nil {
		return Limits{}, err
	}
	if axis == Azimuth {
		if lo > 0 {
			lo -= 360
		}
		if hi < 0 {
			hi += 360
		}
	}

	lim := Limits{Min: lo, Max: hi}
	r.mu.Lock()
	r.limits[axis] = lim
	r.mu.Unlock()
	return lim, nil
}

// Limits returns the travel limits in use for axis
func (r *PRKX2SU) Limits(axis Axis) Limits {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limits[axis]
}

func (r *PRKX2SU) speed(ctx context.Context, axis Axis, op string, letter byte, speed int) error {
	if err := checkAxis(axis); err != nil {
		return err
	}
	if speed < PRKMinSpeed || speed > PRKMaxSpeed {
		return busdev.NewRangeError("speed", speed, PRKMinSpeed, PRKMaxSpeed)
	}
	_, err := r.send(ctx, axis, op, fmt.Sprintf("W%cn%03d;", letter, speed), false)
	return err
}

// SetRamp sets the acceleration ramp of axis, 1 to 10
func (r *PRKX2SU) SetRamp(ctx context.Context, axis Axis, speed int) error {
	return r.speed(ctx, axis, "set ramp", 'N', speed)
}

// SetMinimumSpeed sets the starting speed of axis, 1 to 10
func (r *PRKX2SU) SetMinimumSpeed(ctx context.Context, axis Axis, speed int) error {
	return r.speed(ctx, axis, "set minimum speed", 'F', speed)
}

// SetMaximumSpeed sets the top speed of axis, 1 to 10
func (r *PRKX2SU) SetMaximumSpeed(ctx context.Context, axis Axis, speed int) error {
	return r.speed(ctx, axis, "set maximum speed", 'G', speed)
}

// tenths renders deg as %03d.%1d, truncating
func tenths(deg float64) string {
	whole := int(deg)
	return fmt.Sprintf("%03d.%1d", whole, int(10*math.Abs(deg-float64(whole))))
}

func clamp(v float64, lim Limits) float64 {
	return math.Max(lim.Min, math.Min(v, lim.Max))
}

// Goto points the antenna at az, el within the travel limits. Nothing is
// sent when the target is within the sensitivity of the previous target.
// Reports whether a move was commanded.
func (r *PRKX2SU) Goto(ctx context.Context, az, el float64) (bool, error) {
	if math.IsNaN(az) || math.IsNaN(el) {
		return false, fmt.Errorf("%w: goto NaN", busdev.ErrInvalidParameter)
	}

	r.mu.Lock()
	az = clamp(math.Mod(az, 360), r.limits[Azimuth])
	el = clamp(math.Mod(el, 180), r.limits[Elevation])
	if r.aimed && math.Hypot(az-r.target[Azimuth], el-r.target[Elevation]) <= r.sensitivity {
		r.mu.Unlock()
		return false, nil
	}
	r.mu.Unlock()

	if _, err := r.send(ctx, Azimuth, "goto", "APn"+tenths(az)+"\r", false); err != nil {
		return false, err
	}
	if _, err := r.send(ctx, Elevation, "goto", "APn"+tenths(el)+"\r", false); err != nil {
		return false, err
	}

	r.mu.Lock()
	r.target = [2]float64{az, el}
	r.aimed = true
	r.mu.Unlock()
	return true, nil
}

// Target returns the last commanded position
func (r *PRKX2SU) Target() (az, el float64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target[Azimuth], r.target[Elevation], r.aimed
}

// Calibrate tells axis that it currently points at deg. The value is
// clamped to a full turn for azimuth and a half turn for elevation.
func (r *PRKX2SU) Calibrate(ctx context.Context, axis Axis, deg float64) error {
	if err := checkAxis(axis); err != nil {
		return err
	}
	hi := 360.0
	if axis == Elevation {
		hi = 180
	}
	deg = math.Max(0, math.Min(deg, hi))
	_, err := r.send(ctx, axis, "calibrate", "Awn"+tenths(deg)+";", false)
	return err
}

// Stop cancels whatever axis is doing
func (r *PRKX2SU) Stop(ctx context.Context, axis Axis) error {
	if err := checkAxis(axis); err != nil {
		return err
	}
	_, err := r.send(ctx, axis, "stop", ";", false)
	return err
}

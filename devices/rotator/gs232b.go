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
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/internal/frame"
	"github.com/spacebus/go-busdev/session"
)

// Axis selects a rotator axis
type Axis int

const (
	Azimuth Axis = iota
	Elevation
)

func (a Axis) String() string {
	if a == Elevation {
		return "elevation"
	}
	return "azimuth"
}

// GS-232B travel limits, in degrees
const (
	GS232BMaxAzimuth   = 450.0
	GS232BMaxElevation = 180.0
	GS232BMaxSpeed     = 4
)

// GS232B is a connected Yaesu GS-232B controller
type GS232B struct {
	sess        *session.Session
	sensitivity float64
	speed       int
	mu          sync.Mutex
}

// NewGS232B wraps a session built on GS232BDriver
func NewGS232B(sess *session.Session) *GS232B {
	return &GS232B{sess: sess, sensitivity: DefaultSensitivity}
}

// ConnectGS232B opens the controller on path and waits for its prompt
func ConnectGS232B(path string, opts ...session.Option) (*GS232B, error) {
	sess, err := session.New(GS232BDriver, opts...)
	if err != nil {
		return nil, err
	}
	if err := sess.Connect(GS232BDriver.PortConfig().WithPath(path)); err != nil {
		return nil, err
	}
	r := NewGS232B(sess)
	if err := r.Probe(context.Background()); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("gs232b %s: probe: %w", path, err)
	}
	return r, nil
}

// Close releases the port
func (r *GS232B) Close() error {
	return r.sess.Close()
}

// Session returns the underlying session
func (r *GS232B) Session() *session.Session {
	return r.sess
}

// SetSensitivity sets the separation in degrees below which Goto leaves
// the rotator where it is
func (r *GS232B) SetSensitivity(deg float64) error {
	if math.IsNaN(deg) || deg < 0 {
		return busdev.NewRangeError("sensitivity", deg, 0, GS232BMaxAzimuth)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensitivity = deg
	return nil
}

// Probe sends a bare return and expects the "?>" prompt
func (r *GS232B) Probe(ctx context.Context) error {
	_, err := r.sess.Exchange(ctx, session.Request{
		Op:    "probe",
		Frame: []byte{GS232BTerminator},
		Force: true,
		Read:  session.ReadUntil('>', maxLine),
		Validate: func(resp []byte) error {
			if !strings.Contains(string(resp), "?>") {
				return busdev.NewNackError("probe", r.sess.Path(), fmt.Sprintf("prompt %q", resp))
			}
			return nil
		},
	})
	return err
}

func (r *GS232B) send(ctx context.Context, op, cmd string, force bool) error {
	_, err := r.sess.Exchange(ctx, session.Request{
		Op:    op,
		Frame: frame.EncodeASCII(cmd, GS232BTerminator),
		Force: force,
	})
	return err
}

func (r *GS232B) query(ctx context.Context, op, cmd string, keys ...string) ([]float64, error) {
	out := make([]float64, len(keys))
	_, err := r.sess.Exchange(ctx, session.Request{
		Op:    op,
		Frame: frame.EncodeASCII(cmd, GS232BTerminator),
		Force: true,
		Read:  readLine,
		Validate: func(resp []byte) error {
			line := frame.TrimASCII(resp, GS232BTerminator)
			for i, key := range keys {
				v, ok := parseField(line, key)
				if !ok {
					return busdev.NewFrameCorruptedError(op, r.sess.Path(), fmt.Sprintf("no %s in %q", key, line))
				}
				out[i] = v
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// parseField finds key in line and parses the number that follows it.
// Spacing around the value varies between firmware revisions.
func parseField(line, key string) (float64, bool) {
	i := strings.Index(line, key)
	if i < 0 {
		return 0, false
	}
	rest := strings.TrimLeft(line[i+len(key):], " ")
	end := strings.IndexFunc(rest, func(c rune) bool {
		return (c < '0' || c > '9') && c != '+' && c != '-' && c != '.'
	})
	if end < 0 {
		end = len(rest)
	}
	v, err := strconv.ParseFloat(rest[:end], 64)
	return v, err == nil
}

// Position reads the current azimuth and elevation
func (r *GS232B) Position(ctx context.Context) (az, el float64, err error) {
	v, err := r.query(ctx, "position", "C2", "AZ=", "EL=")
	if err != nil {
		return 0, 0, err
	}
	return v[0], v[1], nil
}

// Azimuth reads the current azimuth alone
func (r *GS232B) Azimuth(ctx context.Context) (float64, error) {
	v, err := r.query(ctx, "azimuth", "C", "AZ=")
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// Elevation reads the current elevation alone
func (r *GS232B) Elevation(ctx context.Context) (float64, error) {
	v, err := r.query(ctx, "elevation", "B", "EL=")
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// SetSpeed selects one of the four azimuth speeds
func (r *GS232B) SetSpeed(ctx context.Context, speed int) error {
	if speed < 1 || speed > GS232BMaxSpeed {
		return busdev.NewRangeError("speed", speed, 1, GS232BMaxSpeed)
	}
	if err := r.send(ctx, "set speed", fmt.Sprintf("X%1d", speed), true); err != nil {
		return err
	}
	r.mu.Lock()
	r.speed = speed
	r.mu.Unlock()
	return nil
}

// fixAngle folds deg into [0, 360)
func fixAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Goto points the antenna at az, el. Nothing is sent when the target is
// within the sensitivity of the current position. The speed grows with
// the separation, one step per 40 degrees. Reports whether a move was
// commanded.
func (r *GS232B) Goto(ctx context.Context, az, el float64) (bool, error) {
	if math.IsNaN(az) || math.IsNaN(el) {
		return false, fmt.Errorf("%w: goto NaN", busdev.ErrInvalidParameter)
	}
	if az < 0 || az > GS232BMaxAzimuth {
		az = fixAngle(az)
	}
	el = math.Max(0, math.Min(el, GS232BMaxElevation))

	curAz, curEl, err := r.Position(ctx)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	sep := math.Hypot(az-curAz, el-curEl)
	if sep <= r.sensitivity {
		return false, nil
	}

	if speed := min(int(sep/40), GS232BMaxSpeed); speed > 0 && speed != r.speed {
		if err := r.send(ctx, "set speed", fmt.Sprintf("X%1d", speed), false); err != nil {
			return false, err
		}
		r.speed = speed
	}
	cmd := fmt.Sprintf("W%03d %03d", int(math.Round(az)), int(math.Round(el)))
	if err := r.send(ctx, "goto", cmd, false); err != nil {
		return false, err
	}
	return true, nil
}

// Stop halts both axes
func (r *GS232B) Stop(ctx context.Context) error {
	return r.send(ctx, "stop", "S", true)
}

// OffsetWait starts offset calibration of axis
func (r *GS232B) OffsetWait(ctx context.Context, axis Axis) error {
	switch axis {
	case Azimuth:
		return r.send(ctx, "offset wait", "O", true)
	case Elevation:
		return r.send(ctx, "offset wait", "O2", true)
	default:
		return busdev.NewRangeError("axis", int(axis), int(Azimuth), int(Elevation))
	}
}

// OffsetAccept accepts the offset of the axis being calibrated. The
// controller takes a bare 'y' with no terminator.
func (r *GS232B) OffsetAccept(ctx context.Context) error {
	_, err := r.sess.Exchange(ctx, session.Request{Op: "offset accept", Frame: []byte{'y'}, Force: true})
	return err
}

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
	"strings"
	"time"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/session"
)

// Vector is an x, y, z triple
type Vector [3]float64

// Matrix is a row-major 3x3 orientation matrix
type Matrix [3][3]float64

// AccelRate is acceleration in m/s² and angular rate in rad/s. Raw
// readings are in sensor volts instead.
type AccelRate struct {
	Accel Vector
	Rate  Vector
	Timer uint32
}

// Delta is the change in angle (rad) and velocity (m/s) since the last
// request
type Delta struct {
	Angle    Vector
	Velocity Vector
	Timer    uint32
}

// Motion is a combined inertial and magnetic sample. Orientation is only
// filled by AccelRateMagOrientation.
type Motion struct {
	Accel       Vector
	Rate        Vector
	Mag         Vector
	Orientation Matrix
	Timer       uint32
}

// Euler holds roll, pitch and yaw in radians, and their rates in rad/s
// when requested
type Euler struct {
	Roll, Pitch, Yaw float64
	Rates            Vector
	Timer            uint32
}

// Temperatures of the accelerometer and the three gyros, in °C
type Temperatures struct {
	Gyro  [3]float64
	Accel float64
	Timer uint32
}

// NewRegistry creates a table holding up to MaxDevices open units
func NewRegistry() *busdev.Registry[*IMU] {
	return busdev.NewRegistry[*IMU]("imu", MaxDevices)
}

// Devices is the process-wide table used by Connect
var Devices = NewRegistry()

// IMU is one open unit
type IMU struct {
	sess   *session.Session
	reg    *busdev.Registry[*IMU]
	path   string
	handle busdev.Handle
}

// Connect opens the unit on path and registers it in Devices
func Connect(path string, opts ...session.Option) (*IMU, error) {
	return ConnectWith(Devices, path, opts...)
}

// ConnectWith opens the unit on path and registers it in reg. A path that
// is already open fails with ErrAlreadyOpen and a full table with
// ErrTooManyDevices. The unit is probed with a temperature request.
func ConnectWith(reg *busdev.Registry[*IMU], path string, opts ...session.Option) (*IMU, error) {
	h, m, err := reg.Add(path, func() (*IMU, error) {
		sess, err := session.New(Driver, opts...)
		if err != nil {
			return nil, err
		}
		if err := sess.Connect(Driver.PortConfig().WithPath(path)); err != nil {
			return nil, err
		}
		m := &IMU{sess: sess, reg: reg, path: path}
		if _, err := m.Temperature(context.Background()); err != nil {
			_ = sess.Close()
			return nil, fmt.Errorf("imu %s: probe: %w", path, err)
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	m.handle = h
	return m, nil
}

// Close releases the port and the registry slot
func (m *IMU) Close() error {
	if _, err := m.reg.Remove(m.handle); err != nil {
		return err
	}
	return m.sess.Close()
}

// Path returns the device path
func (m *IMU) Path() string {
	return m.path
}

// Session returns the underlying session
func (m *IMU) Session() *session.Session {
	return m.sess
}

func (m *IMU) values(ctx context.Context, op byte, n int) ([]float64, uint32, error) {
	snap, err := m.sess.Send(ctx, op, nil)
	if err != nil {
		return nil, 0, err
	}
	return unpack(snap, n), uint32(snap.MustValue("timer")), nil
}

func unpack(snap *session.Snapshot, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = snap.MustValue(valueName(i))
	}
	return out
}

func vector(v []float64, scale float64) Vector {
	return Vector{v[0] * scale, v[1] * scale, v[2] * scale}
}

func matrix(v []float64) Matrix {
	var out Matrix
	for i := 0; i < 9; i++ {
		out[i/3][i%3] = v[i]
	}
	return out
}

// RawAccelRate reads the unconditioned sensor outputs, in volts
func (m *IMU) RawAccelRate(ctx context.Context) (AccelRate, error) {
	v, timer, err := m.values(ctx, OpRawAccelRate, 6)
	if err != nil {
		return AccelRate{}, err
	}
	return AccelRate{Accel: vector(v, rawScale), Rate: vector(v[3:], rawScale), Timer: timer}, nil
}

// AccelRate reads calibrated acceleration and angular rate
func (m *IMU) AccelRate(ctx context.Context) (AccelRate, error) {
	v, timer, err := m.values(ctx, OpAccelRate, 6)
	if err != nil {
		return AccelRate{}, err
	}
	return AccelRate{Accel: vector(v, Gravity), Rate: vector(v[3:], 1), Timer: timer}, nil
}

// DeltaAngleVelocity reads the integrated angle and velocity
func (m *IMU) DeltaAngleVelocity(ctx context.Context) (Delta, error) {
	v, timer, err := m.values(ctx, OpDeltaAngleVelocity, 6)
	if err != nil {
		return Delta{}, err
	}
	return Delta{Angle: vector(v, 1), Velocity: vector(v[3:], Gravity), Timer: timer}, nil
}

// Orientation reads the orientation matrix
func (m *IMU) Orientation(ctx context.Context) (Matrix, uint32, error) {
	v, timer, err := m.values(ctx, OpOrientation, 9)
	if err != nil {
		return Matrix{}, 0, err
	}
	return matrix(v), timer, nil
}

// OrientationUpdate reads the change in orientation since the last
// request
func (m *IMU) OrientationUpdate(ctx context.Context) (Matrix, uint32, error) {
	v, timer, err := m.values(ctx, OpOrientationUpdate, 9)
	if err != nil {
		return Matrix{}, 0, err
	}
	return matrix(v), timer, nil
}

// Magnetometer reads the magnetic field in gauss
func (m *IMU) Magnetometer(ctx context.Context) (Vector, uint32, error) {
	v, timer, err := m.values(ctx, OpMagnetometer, 3)
	if err != nil {
		return Vector{}, 0, err
	}
	return vector(v, 1), timer, nil
}

// AccelRateMag reads acceleration, angular rate and magnetic field
func (m *IMU) AccelRateMag(ctx context.Context) (Motion, error) {
	return m.motion(ctx, OpAccelRateMag)
}

// StabilisedAccelRateMag is AccelRateMag with gyro-stabilised
// acceleration and field vectors
func (m *IMU) StabilisedAccelRateMag(ctx context.Context) (Motion, error) {
	return m.motion(ctx, OpStabilisedAccelRateMag)
}

func (m *IMU) motion(ctx context.Context, op byte) (Motion, error) {
	v, timer, err := m.values(ctx, op, 9)
	if err != nil {
		return Motion{}, err
	}
	return Motion{
		Accel: vector(v, Gravity),
		Rate:  vector(v[3:], 1),
		Mag:   vector(v[6:], 1),
		Timer: timer,
	}, nil
}

// AccelRateMagOrientation reads a Motion including the orientation matrix
func (m *IMU) AccelRateMagOrientation(ctx context.Context) (Motion, error) {
	v, timer, err := m.values(ctx, OpAccelRateMagOrientation, 18)
	if err != nil {
		return Motion{}, err
	}
	return Motion{
		Accel:       vector(v, Gravity),
		Rate:        vector(v[3:], 1),
		Mag:         vector(v[6:], 1),
		Orientation: matrix(v[9:]),
		Timer:       timer,
	}, nil
}

// CaptureGyroBias holds the unit still for window and returns the
// measured gyro bias. The read timeout is stretched to cover the window.
func (m *IMU) CaptureGyroBias(ctx context.Context, window time.Duration) (Vector, error) {
	ms := window.Milliseconds()
	if ms < 0 || ms > 0xFFFF {
		return Vector{}, busdev.NewRangeError("bias window ms", ms, 0, 0xFFFF)
	}
	payload := []byte{0xc1, 0x29, byte(ms >> 8), byte(ms)}
	snap, err := m.sess.SendTimeout(ctx, OpCaptureGyroBias, payload, window+5*time.Second)
	if err != nil {
		return Vector{}, err
	}
	return vector(unpack(snap, 3), 1), nil
}

// Euler reads roll, pitch and yaw
func (m *IMU) Euler(ctx context.Context) (Euler, error) {
	v, timer, err := m.values(ctx, OpEuler, 3)
	if err != nil {
		return Euler{}, err
	}
	return Euler{Roll: v[0], Pitch: v[1], Yaw: v[2], Timer: timer}, nil
}

// EulerRates reads roll, pitch, yaw and the body angular rates
func (m *IMU) EulerRates(ctx context.Context) (Euler, error) {
	v, timer, err := m.values(ctx, OpEulerRates, 6)
	if err != nil {
		return Euler{}, err
	}
	return Euler{Roll: v[0], Pitch: v[1], Yaw: v[2], Rates: vector(v[3:], 1), Timer: timer}, nil
}

// Temperature reads the sensor temperatures
func (m *IMU) Temperature(ctx context.Context) (Temperatures, error) {
	snap, err := m.sess.Send(ctx, OpTemperature, nil)
	if err != nil {
		return Temperatures{}, err
	}
	t := Temperatures{
		Accel: 100 * (snap.MustValue("accel") - 0.5),
		Timer: uint32(snap.MustValue("timer")),
	}
	for i, name := range []string{"gyro_x", "gyro_y", "gyro_z"} {
		t.Gyro[i] = (snap.MustValue(name)-2.5)/0.009 + 25
	}
	return t, nil
}

// Firmware reads the firmware version number
func (m *IMU) Firmware(ctx context.Context) (uint32, error) {
	snap, err := m.sess.Send(ctx, OpFirmware, nil)
	if err != nil {
		return 0, err
	}
	return uint32(snap.MustValue("version")), nil
}

// DeviceID reads one of the identifier strings
func (m *IMU) DeviceID(ctx context.Context, selector byte) (string, error) {
	snap, err := m.sess.Send(ctx, OpDeviceID, []byte{selector})
	if err != nil {
		return "", err
	}
	if snap.Block[1] != selector {
		return "", busdev.NewFrameCorruptedError("device id", m.path,
			fmt.Sprintf("selector %d, want %d", snap.Block[1], selector))
	}
	return strings.TrimSpace(string(snap.Block[2:18])), nil
}

// StopContinuous ends continuous output mode
func (m *IMU) StopContinuous(ctx context.Context) error {
	_, err := m.sess.Send(ctx, OpStopContinuous, nil)
	return err
}

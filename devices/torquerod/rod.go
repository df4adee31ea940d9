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

package torquerod

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/codec"
	"github.com/spacebus/go-busdev/session"
)

// Telemetry is one decoded telemetry block
type Telemetry struct {
	// DAC is the current each channel reports, in microamps
	DAC         [Channels]int32
	Seq         uint64
	Status      uint16
	Count       uint16
	Invalid     uint16
	Temperature uint16
	Voltage     uint16
	Resets      uint8
}

// Amps returns the reported current of ch
func (t Telemetry) Amps(ch int) float64 {
	return float64(t.DAC[ch]) / 1e6
}

// DefaultCurve maps ±32 A·m² linearly onto ±0.0999 A
func DefaultCurve() codec.Curve {
	p := codec.Polynomial{0, CalibratedMax / MaxMoment}
	return codec.Curve{Negative: p, Positive: p, Min: -CalibratedMax, Max: CalibratedMax}
}

// DefaultPollConfig is the settling bound used by SetMoment and SetMoments
func DefaultPollConfig() session.PollConfig {
	cfg := session.DefaultPollConfig()
	cfg.Tolerance = Tolerance
	cfg.Interval = 10 * time.Millisecond
	return cfg
}

// Rod is a connected torque rod controller
type Rod struct {
	sess   *session.Session
	curves [Channels]codec.Curve
	poll   session.PollConfig
	mu     sync.RWMutex
}

// New wraps a session built on Driver
func New(sess *session.Session) *Rod {
	r := &Rod{sess: sess, poll: DefaultPollConfig()}
	for ch := range r.curves {
		r.curves[ch] = DefaultCurve()
	}
	return r
}

// Connect opens the controller on path and probes it with a telemetry
// request
func Connect(path string, opts ...session.Option) (*Rod, error) {
	sess, err := session.New(Driver, opts...)
	if err != nil {
		return nil, err
	}
	if err := sess.Connect(Driver.PortConfig().WithPath(path)); err != nil {
		return nil, err
	}
	r := New(sess)
	if _, err := r.Telemetry(context.Background()); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("torquerod %s: probe: %w", path, err)
	}
	return r, nil
}

// Close releases the port
func (r *Rod) Close() error {
	return r.sess.Close()
}

// Session returns the underlying session
func (r *Rod) Session() *session.Session {
	return r.sess
}

// SetCurve replaces the calibration of ch
func (r *Rod) SetCurve(ch int, c codec.Curve) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.curves[ch] = c
	return nil
}

// Curve returns the calibration of ch
func (r *Rod) Curve(ch int) codec.Curve {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.curves[ch]
}

// SetPollConfig replaces the settling bound used by SetMoment and
// SetMoments
func (r *Rod) SetPollConfig(cfg session.PollConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.poll = cfg
}

func checkChannel(ch int) error {
	if ch < 0 || ch >= Channels {
		return busdev.NewRangeError("channel", ch, 0, Channels-1)
	}
	return nil
}

// Reset restarts the controller
func (r *Rod) Reset(ctx context.Context) error {
	_, err := r.sess.Send(ctx, OpReset, []byte{0xab, 0xcd, 0xef})
	return err
}

// Enable turns the drivers on
func (r *Rod) Enable(ctx context.Context) error {
	_, err := r.sess.Send(ctx, OpEnable, nil)
	return err
}

// Disable turns the drivers off
func (r *Rod) Disable(ctx context.Context) error {
	_, err := r.sess.Send(ctx, OpDisable, nil)
	return err
}

// Reverse flips the polarity of ch
func (r *Rod) Reverse(ctx context.Context, ch int) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	_, err := r.sess.Send(ctx, OpReverse, []byte{byte(ch)})
	return err
}

// SetVoltage writes a raw voltage DAC code
func (r *Rod) SetVoltage(ctx context.Context, ch int, raw uint16) error {
	return r.setDAC(ctx, OpSetVoltage, "voltage", ch, raw)
}

// SetPercentVoltage writes the voltage DAC as a percentage of full scale
func (r *Rod) SetPercentVoltage(ctx context.Context, ch int, percent float64) error {
	raw, err := codec.PercentToRaw(percent, codec.DAC12FullScale)
	if err != nil {
		return err
	}
	return r.SetVoltage(ctx, ch, uint16(raw))
}

// SetCurrentDAC writes a raw current DAC code
func (r *Rod) SetCurrentDAC(ctx context.Context, ch int, raw uint16) error {
	return r.setDAC(ctx, OpSetCurrent, "current", ch, raw)
}

func (r *Rod) setDAC(ctx context.Context, op byte, param string, ch int, raw uint16) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if err := codec.CheckRaw(param, uint32(raw), codec.DAC12FullScale); err != nil {
		return err
	}
	payload := make([]byte, 3)
	payload[0] = byte(ch)
	if err := codec.PutUint(payload[1:], uint64(raw), 2, codec.BigEndian); err != nil {
		return err
	}
	_, err := r.sess.Send(ctx, op, payload)
	return err
}

// Voltage reads the voltage DAC of ch
func (r *Rod) Voltage(ctx context.Context, ch int) (uint16, error) {
	if err := checkChannel(ch); err != nil {
		return 0, err
	}
	snap, err := r.sess.Send(ctx, OpGetVoltage, []byte{byte(ch)})
	if err != nil {
		return 0, err
	}
	return uint16(snap.MustValue("voltage")), nil
}

// Current reads the measured current of ch. The controller reports
// negative values in sign-magnitude form.
func (r *Rod) Current(ctx context.Context, ch int) (int32, error) {
	if err := checkChannel(ch); err != nil {
		return 0, err
	}
	snap, err := r.sess.Send(ctx, OpGetCurrent, []byte{byte(ch)})
	if err != nil {
		return 0, err
	}
	x := int32(snap.MustValue("current"))
	if x < 0 {
		x = -x - 32768
	}
	return x, nil
}

// SetAmps commands a current on ch. The value travels as the low three
// bytes of microamps.
func (r *Rod) SetAmps(ctx context.Context, ch int, amps float64) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if math.IsNaN(amps) || amps < -MaxAmps || amps > MaxAmps {
		return busdev.NewRangeError("amps", amps, -MaxAmps, MaxAmps)
	}
	raw := int32(amps * 1e6)
	_, err := r.sess.Send(ctx, OpSetAmps+byte(ch), []byte{byte(raw >> 16), byte(raw >> 8), byte(raw)})
	return err
}

// SetCurrent commands a current with the older unchecked frame, scaled so
// 0.18 A is a full 12-bit count
func (r *Rod) SetCurrent(ctx context.Context, ch int, amps float64) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if math.IsNaN(amps) || amps < -MaxLegacyAmps || amps > MaxLegacyAmps {
		return busdev.NewRangeError("amps", amps, -MaxLegacyAmps, MaxLegacyAmps)
	}
	raw := int16(codec.DAC12FullScale * amps / legacyScale)
	_, err := r.sess.Send(ctx, OpLegacyAmps+byte(ch), []byte{byte(uint16(raw) >> 8), byte(raw)})
	return err
}

// Telemetry reads the status block
func (r *Rod) Telemetry(ctx context.Context) (Telemetry, error) {
	snap, err := r.sess.Send(ctx, OpTelemetry, nil)
	if err != nil {
		return Telemetry{}, err
	}
	t := Telemetry{
		Seq:         snap.Seq,
		Status:      uint16(snap.MustValue("status")),
		Count:       uint16(snap.MustValue("count")),
		Invalid:     uint16(snap.MustValue("invalid")),
		Temperature: uint16(snap.MustValue("temperature")),
		Voltage:     uint16(snap.MustValue("voltage")),
		Resets:      uint8(snap.MustValue("resets")),
	}
	for ch := range t.DAC {
		t.DAC[ch] = int32(snap.MustValue(fmt.Sprintf("dac%d", ch)))
	}
	return t, nil
}

// SetMoment commands a magnetic moment on ch and polls telemetry until the
// reported current settles on the calibrated target
func (r *Rod) SetMoment(ctx context.Context, ch int, moment float64) (session.Result, error) {
	if err := checkChannel(ch); err != nil {
		return session.Result{}, err
	}
	r.mu.RLock()
	amps := r.curves[ch].Eval(moment)
	cfg := r.poll
	r.mu.RUnlock()

	if err := r.SetAmps(ctx, ch, amps); err != nil {
		return session.Result{}, err
	}
	res, err := r.sess.Converge(ctx, cfg, func(ctx context.Context) (float64, error) {
		t, err := r.Telemetry(ctx)
		if err != nil {
			return 0, err
		}
		return math.Abs(amps - t.Amps(ch)), nil
	})
	if err != nil {
		return res, fmt.Errorf("torquerod channel %d: %w", ch, err)
	}
	return res, nil
}

// SetMoments commands all three channels at once. When any moment exceeds
// MaxMoment the vector is scaled down to keep its direction. Channels whose
// reported current is off target are re-sent and telemetry re-read until
// the summed residual settles within Tolerance or the poll bound expires.
// The returned residual is the last one measured.
func (r *Rod) SetMoments(ctx context.Context, moments [Channels]float64) (float64, error) {
	peak := 0.0
	for _, m := range moments {
		if math.IsNaN(m) {
			return 0, busdev.NewRangeError("moment", m, -MaxMoment, MaxMoment)
		}
		peak = math.Max(peak, math.Abs(m))
	}
	if peak > MaxMoment {
		for ch := range moments {
			moments[ch] *= MaxMoment / peak
		}
	}

	var targets [Channels]float64
	r.mu.RLock()
	for ch, m := range moments {
		targets[ch] = r.curves[ch].Eval(m)
	}
	cfg := r.poll
	r.mu.RUnlock()

	t, err := r.Telemetry(ctx)
	if err != nil {
		return 0, err
	}
	if residual(targets, t) <= Tolerance {
		return residual(targets, t), nil
	}

	res, err := r.sess.Converge(ctx, cfg, func(ctx context.Context) (float64, error) {
		for ch, amps := range targets {
			if math.Abs(amps-t.Amps(ch)) <= Tolerance {
				continue
			}
			if err := r.SetAmps(ctx, ch, amps); err != nil {
				return 0, err
			}
		}
		next, err := r.Telemetry(ctx)
		if err != nil {
			return 0, err
		}
		t = next
		return residual(targets, t), nil
	})
	if err != nil {
		return res.Residual, fmt.Errorf("torquerod moments: %w", err)
	}
	return res.Residual, nil
}

// residual sums the distance of every channel from its target
func residual(targets [Channels]float64, t Telemetry) float64 {
	sum := 0.0
	for ch, amps := range targets {
		sum += math.Abs(amps - t.Amps(ch))
	}
	return sum
}

// Moment reads the current of ch and converts it back to a moment through
// the channel calibration
func (r *Rod) Moment(ctx context.Context, ch int) (float64, error) {
	if err := checkChannel(ch); err != nil {
		return 0, err
	}
	t, err := r.Telemetry(ctx)
	if err != nil {
		return 0, err
	}
	return r.Curve(ch).Invert(t.Amps(ch))
}

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

package radio

import (
	"context"
	"fmt"
	"math"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/codec"
)

// CI-V commands beyond tuning
const (
	civMeter    = 0x15
	civExtended = 0x1A
)

// civExchange is the civSelectVFO argument that swaps main and sub
const civExchange = 0xB0

// Sub-commands of civExtended
const (
	extBandpass = 0x03
	extDataMode = 0x06
)

// Meter sub-commands of civMeter
const (
	MeterS    = 0x02
	MeterRF   = 0x11
	MeterSWR  = 0x12
	MeterALC  = 0x13
	MeterComp = 0x14
)

// Filter is one of the three IF filter presets sent with a mode
type Filter byte

const (
	Filter1 Filter = 1
	Filter2 Filter = 2
	Filter3 Filter = 3
)

// IF filter width limits. Widths step by 50 Hz up to 500 Hz and by
// 100 Hz above.
const (
	MinBandpass = 50
	MaxBandpass = 3600
)

// bandpassIndex maps hz onto the radio's width index, 0 to 40
func bandpassIndex(hz float64) (uint64, error) {
	if math.IsNaN(hz) || hz < MinBandpass || hz > MaxBandpass {
		return 0, busdev.NewRangeError("bandpass", hz, MinBandpass, MaxBandpass)
	}
	if hz <= 500 {
		return uint64(math.Round(hz/50)) - 1, nil
	}
	return uint64(max(9, 10+int(math.Round((hz-600)/100)))), nil
}

func bandpassHz(idx uint64) float64 {
	if idx < 10 {
		return float64(50 * (idx + 1))
	}
	return float64(600 + 100*(idx-10))
}

// readSub runs a query whose answer repeats sub followed by n data bytes
func (r *IC9100) readSub(ctx context.Context, op string, cmd, sub byte, n int) ([]byte, error) {
	f, err := r.transact(ctx, op, cmd, []byte{sub}, true)
	if err != nil {
		return nil, err
	}
	if len(f.Data) != n+1 || f.Data[0] != sub {
		return nil, busdev.NewFrameCorruptedError(op, r.sess.Path(), fmt.Sprintf("data % x", f.Data))
	}
	return f.Data[1:], nil
}

// ExchangeVFO swaps the main and sub receivers, frequency and mode
// included
func (r *IC9100) ExchangeVFO(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.transact(ctx, "exchange vfo", civSelectVFO, []byte{civExchange}, false)
	return err
}

// SetModeFilter sets the operating mode of vfo together with a filter
// preset
func (r *IC9100) SetModeFilter(ctx context.Context, vfo VFO, mode Mode, filter Filter) error {
	if _, ok := modeNames[mode]; !ok {
		return fmt.Errorf("%w: %s", busdev.ErrOutOfRange, mode)
	}
	if filter < Filter1 || filter > Filter3 {
		return busdev.NewRangeError("filter", int(filter), int(Filter1), int(Filter3))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.selectLocked(ctx, vfo); err != nil {
		return err
	}
	_, err := r.transact(ctx, "set mode", civSetMode, []byte{byte(mode), byte(filter)}, false)
	return err
}

// Filter reads the filter preset of vfo
func (r *IC9100) Filter(ctx context.Context, vfo VFO) (Filter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.selectLocked(ctx, vfo); err != nil {
		return 0, err
	}
	f, err := r.transact(ctx, "read filter", civReadMode, nil, true)
	if err != nil {
		return 0, err
	}
	if len(f.Data) < 2 {
		return 0, busdev.NewFrameCorruptedError("read filter", r.sess.Path(), "no filter byte")
	}
	return Filter(f.Data[1]), nil
}

// SetBandpass sets the IF filter width of vfo to the nearest step of hz
func (r *IC9100) SetBandpass(ctx context.Context, vfo VFO, hz float64) error {
	idx, err := bandpassIndex(hz)
	if err != nil {
		return err
	}
	bcd, err := codec.PackBCD(idx, 1, codec.MostSignificantFirst)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.selectLocked(ctx, vfo); err != nil {
		return err
	}
	_, err = r.transact(ctx, "set bandpass", civExtended, append([]byte{extBandpass}, bcd...), false)
	return err
}

// Bandpass reads the IF filter width of vfo in Hz
func (r *IC9100) Bandpass(ctx context.Context, vfo VFO) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.selectLocked(ctx, vfo); err != nil {
		return 0, err
	}
	data, err := r.readSub(ctx, "read bandpass", civExtended, extBandpass, 1)
	if err != nil {
		return 0, err
	}
	idx, err := codec.UnpackBCD(data, codec.MostSignificantFirst)
	if err != nil {
		return 0, err
	}
	return bandpassHz(idx), nil
}

// SetDataMode switches the data modulation input of vfo
func (r *IC9100) SetDataMode(ctx context.Context, vfo VFO, on bool) error {
	var b byte
	if on {
		b = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.selectLocked(ctx, vfo); err != nil {
		return err
	}
	_, err := r.transact(ctx, "set data mode", civExtended, []byte{extDataMode, b}, false)
	return err
}

// DataMode reports whether vfo is in data mode
func (r *IC9100) DataMode(ctx context.Context, vfo VFO) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.selectLocked(ctx, vfo); err != nil {
		return false, err
	}
	data, err := r.readSub(ctx, "read data mode", civExtended, extDataMode, 1)
	if err != nil {
		return false, err
	}
	return data[0] != 0, nil
}

// Meter reads one of the 0 to 255 meters of the active receiver
func (r *IC9100) Meter(ctx context.Context, sub byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, err := r.readSub(ctx, "read meter", civMeter, sub, 2)
	if err != nil {
		return 0, err
	}
	v, err := codec.UnpackBCD(data, codec.MostSignificantFirst)
	return int(v), err
}

// SMeter reads the received signal strength
func (r *IC9100) SMeter(ctx context.Context) (int, error) {
	return r.Meter(ctx, MeterS)
}

// RFMeter reads the transmitted power
func (r *IC9100) RFMeter(ctx context.Context) (int, error) {
	return r.Meter(ctx, MeterRF)
}

// SWRMeter reads the standing wave ratio meter
func (r *IC9100) SWRMeter(ctx context.Context) (int, error) {
	return r.Meter(ctx, MeterSWR)
}

// ALCMeter reads the automatic level control meter
func (r *IC9100) ALCMeter(ctx context.Context) (int, error) {
	return r.Meter(ctx, MeterALC)
}

// CompMeter reads the speech compressor meter
func (r *IC9100) CompMeter(ctx context.Context) (int, error) {
	return r.Meter(ctx, MeterComp)
}

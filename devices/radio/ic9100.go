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
	"sync"
	"time"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/codec"
	"github.com/spacebus/go-busdev/internal/frame"
	"github.com/spacebus/go-busdev/session"
)

// DefaultIC9100Address is the factory CI-V address
const DefaultIC9100Address = 0x7C

// CI-V commands
const (
	civReadFrequency = 0x03
	civReadMode      = 0x04
	civSetFrequency  = 0x05
	civSetMode       = 0x06
	civSelectVFO     = 0x07
	civLevel         = 0x14
)

// Level sub-commands of civLevel
const (
	LevelRFGain  = 0x02
	LevelSquelch = 0x03
	LevelRFPower = 0x0A
)

// Limits of the CI-V value encodings
const (
	MaxFrequency = 9_999_999_999
	MaxLevel     = 255
)

// maxCIV bounds one CI-V frame; maxEchoes bounds how many of our own
// frames are skipped while waiting for an answer
const (
	maxCIV    = 32
	maxEchoes = 2
)

// Mode is an operating mode code
type Mode byte

const (
	ModeLSB   Mode = 0x00
	ModeUSB   Mode = 0x01
	ModeAM    Mode = 0x02
	ModeCW    Mode = 0x03
	ModeRTTY  Mode = 0x04
	ModeFM    Mode = 0x05
	ModeCWR   Mode = 0x07
	ModeRTTYR Mode = 0x08
	ModeDV    Mode = 0x17
)

var modeNames = map[Mode]string{
	ModeLSB:   "LSB",
	ModeUSB:   "USB",
	ModeAM:    "AM",
	ModeCW:    "CW",
	ModeRTTY:  "RTTY",
	ModeFM:    "FM",
	ModeCWR:   "CW-R",
	ModeRTTYR: "RTTY-R",
	ModeDV:    "DV",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(0x%02x)", byte(m))
}

// ParseMode looks a mode up by name
func ParseMode(name string) (Mode, error) {
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: mode %q", busdev.ErrOutOfRange, name)
}

// IC9100 is a connected Icom IC-9100
type IC9100 struct {
	sess       *session.Session
	address    byte
	controller byte
	// mu pairs a VFO selection with the operation that follows it
	mu sync.Mutex
}

// NewIC9100 wraps a session built on IC9100Driver for the radio at address
func NewIC9100(sess *session.Session, address byte) *IC9100 {
	return &IC9100{sess: sess, address: address, controller: frame.CIVController}
}

// ConnectIC9100 opens the bus on path and probes the radio at address by
// reading its frequency
func ConnectIC9100(path string, address byte, opts ...session.Option) (*IC9100, error) {
	sess, err := session.New(IC9100Driver, opts...)
	if err != nil {
		return nil, err
	}
	if err := sess.Connect(IC9100Driver.PortConfig().WithPath(path)); err != nil {
		return nil, err
	}
	r := NewIC9100(sess, address)
	if _, err := r.transact(context.Background(), "probe", civReadFrequency, nil, true); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("ic9100 %s: probe: %w", path, err)
	}
	return r, nil
}

// Close releases the port
func (r *IC9100) Close() error {
	return r.sess.Close()
}

// Session returns the underlying session
func (r *IC9100) Session() *session.Session {
	return r.sess
}

// Address returns the radio's CI-V address
func (r *IC9100) Address() byte {
	return r.address
}

// readReply reads frames until one that we did not send ourselves. On a
// single-wire bus every frame we write comes back first.
func (r *IC9100) readReply(port busdev.Port, timeout time.Duration) ([]byte, error) {
	for i := 0; i <= maxEchoes; i++ {
		raw, err := port.ReadUntil(frame.CIVTerminator, maxCIV, timeout)
		if err != nil {
			return nil, err
		}
		f, err := frame.DecodeCIV(raw)
		if err != nil {
			return nil, err
		}
		if f.From == r.controller {
			continue
		}
		return raw, nil
	}
	return nil, busdev.NewFrameCorruptedError("civ read", port.Path(), "no reply after own frames")
}

// transact sends cmd and waits for the radio's answer. Commands that set
// something are answered with OK; queries echo cmd followed by data.
func (r *IC9100) transact(ctx context.Context, op string, cmd byte, data []byte, query bool) (frame.CIVFrame, error) {
	frm, err := frame.EncodeCIV(r.address, r.controller, cmd, data)
	if err != nil {
		return frame.CIVFrame{}, err
	}
	var reply frame.CIVFrame
	_, err = r.sess.Exchange(ctx, session.Request{
		Op:    op,
		Frame: frm,
		Read:  r.readReply,
		Validate: func(resp []byte) error {
			f, err := frame.DecodeCIV(resp)
			if err != nil {
				return err
			}
			path := r.sess.Path()
			if f.From != r.address || f.To != r.controller {
				return busdev.NewFrameCorruptedError(op, path,
					fmt.Sprintf("frame 0x%02x -> 0x%02x", f.From, f.To))
			}
			switch {
			case f.Cmd == frame.CIVNG:
				return busdev.NewNackError(op, path, "NG")
			case query && f.Cmd != cmd:
				return busdev.NewFrameCorruptedError(op, path, fmt.Sprintf("answer to 0x%02x", f.Cmd))
			case !query && f.Cmd != frame.CIVOK:
				return busdev.NewFrameCorruptedError(op, path, fmt.Sprintf("reply 0x%02x, want OK", f.Cmd))
			}
			reply = f
			return nil
		},
	})
	return reply, err
}

func (r *IC9100) selectLocked(ctx context.Context, vfo VFO) error {
	if err := checkVFO(vfo); err != nil {
		return err
	}
	_, err := r.transact(ctx, "select vfo", civSelectVFO, []byte{byte(vfo)}, false)
	return err
}

// SelectVFO makes vfo the target of subsequent commands
func (r *IC9100) SelectVFO(ctx context.Context, vfo VFO) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectLocked(ctx, vfo)
}

// SetFrequency tunes vfo to hz
func (r *IC9100) SetFrequency(ctx context.Context, vfo VFO, hz uint64) error {
	if hz > MaxFrequency {
		return busdev.NewRangeError("frequency", hz, 0, uint64(MaxFrequency))
	}
	bcd, err := codec.PackBCD(hz, 5, codec.LeastSignificantFirst)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.selectLocked(ctx, vfo); err != nil {
		return err
	}
	_, err = r.transact(ctx, "set frequency", civSetFrequency, bcd, false)
	return err
}

// Frequency reads the frequency of vfo in Hz
func (r *IC9100) Frequency(ctx context.Context, vfo VFO) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.selectLocked(ctx, vfo); err != nil {
		return 0, err
	}
	f, err := r.transact(ctx, "read frequency", civReadFrequency, nil, true)
	if err != nil {
		return 0, err
	}
	if len(f.Data) != 5 {
		return 0, busdev.NewFrameCorruptedError("read frequency", r.sess.Path(), fmt.Sprintf("%d data bytes", len(f.Data)))
	}
	return codec.UnpackBCD(f.Data, codec.LeastSignificantFirst)
}

// SetMode sets the operating mode of vfo
func (r *IC9100) SetMode(ctx context.Context, vfo VFO, mode Mode) error {
	if _, ok := modeNames[mode]; !ok {
		return fmt.Errorf("%w: %s", busdev.ErrOutOfRange, mode)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.selectLocked(ctx, vfo); err != nil {
		return err
	}
	_, err := r.transact(ctx, "set mode", civSetMode, []byte{byte(mode)}, false)
	return err
}

// Mode reads the operating mode of vfo
func (r *IC9100) Mode(ctx context.Context, vfo VFO) (Mode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.selectLocked(ctx, vfo); err != nil {
		return 0, err
	}
	f, err := r.transact(ctx, "read mode", civReadMode, nil, true)
	if err != nil {
		return 0, err
	}
	if len(f.Data) < 1 {
		return 0, busdev.NewFrameCorruptedError("read mode", r.sess.Path(), "no mode byte")
	}
	return Mode(f.Data[0]), nil
}

// SetLevel sets one of the 0 to 255 levels on vfo
func (r *IC9100) SetLevel(ctx context.Context, vfo VFO, sub byte, level int) error {
	if level < 0 || level > MaxLevel {
		return busdev.NewRangeError("level", level, 0, MaxLevel)
	}
	bcd, err := codec.PackBCD(uint64(level), 2, codec.MostSignificantFirst)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.selectLocked(ctx, vfo); err != nil {
		return err
	}
	_, err = r.transact(ctx, "set level", civLevel, append([]byte{sub}, bcd...), false)
	return err
}

// Level reads one level of vfo
func (r *IC9100) Level(ctx context.Context, vfo VFO, sub byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.selectLocked(ctx, vfo); err != nil {
		return 0, err
	}
	f, err := r.transact(ctx, "read level", civLevel, []byte{sub}, true)
	if err != nil {
		return 0, err
	}
	if len(f.Data) != 3 || f.Data[0] != sub {
		return 0, busdev.NewFrameCorruptedError("read level", r.sess.Path(), fmt.Sprintf("data % x", f.Data))
	}
	v, err := codec.UnpackBCD(f.Data[1:], codec.MostSignificantFirst)
	return int(v), err
}

// SetRFGain sets the receiver RF gain of vfo
func (r *IC9100) SetRFGain(ctx context.Context, vfo VFO, level int) error {
	return r.SetLevel(ctx, vfo, LevelRFGain, level)
}

// RFGain reads the receiver RF gain of vfo
func (r *IC9100) RFGain(ctx context.Context, vfo VFO) (int, error) {
	return r.Level(ctx, vfo, LevelRFGain)
}

// SetSquelch sets the squelch level of vfo
func (r *IC9100) SetSquelch(ctx context.Context, vfo VFO, level int) error {
	return r.SetLevel(ctx, vfo, LevelSquelch, level)
}

// Squelch reads the squelch level of vfo
func (r *IC9100) Squelch(ctx context.Context, vfo VFO) (int, error) {
	return r.Level(ctx, vfo, LevelSquelch)
}

// SetRFPower sets the transmit power of vfo
func (r *IC9100) SetRFPower(ctx context.Context, vfo VFO, level int) error {
	return r.SetLevel(ctx, vfo, LevelRFPower, level)
}

// RFPower reads the transmit power of vfo
func (r *IC9100) RFPower(ctx context.Context, vfo VFO) (int, error) {
	return r.Level(ctx, vfo, LevelRFPower)
}

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
	"strconv"
	"strings"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/internal/frame"
	"github.com/spacebus/go-busdev/session"
)

// TS2000Terminator ends every CAT command and answer
const TS2000Terminator = ';'

// MaxTS2000Frequency is the largest frequency that fits the 11-digit field
const MaxTS2000Frequency = 99_999_999_999

// TS2000 is a connected Kenwood TS-2000
type TS2000 struct {
	sess *session.Session
}

// NewTS2000 wraps a session built on TS2000Driver
func NewTS2000(sess *session.Session) *TS2000 {
	return &TS2000{sess: sess}
}

// ConnectTS2000 opens the radio on path and probes it by reading VFO A
func ConnectTS2000(path string, opts ...session.Option) (*TS2000, error) {
	sess, err := session.New(TS2000Driver, opts...)
	if err != nil {
		return nil, err
	}
	if err := sess.Connect(TS2000Driver.PortConfig().WithPath(path)); err != nil {
		return nil, err
	}
	r := NewTS2000(sess)
	if _, err := r.Frequency(context.Background(), VFOA); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("ts2000 %s: probe: %w", path, err)
	}
	return r, nil
}

// Close releases the port
func (r *TS2000) Close() error {
	return r.sess.Close()
}

// Session returns the underlying session
func (r *TS2000) Session() *session.Session {
	return r.sess
}

func frequencyCommand(vfo VFO) string {
	return "F" + string(rune('A'+byte(vfo)))
}

// Frequency reads the frequency of vfo in Hz
func (r *TS2000) Frequency(ctx context.Context, vfo VFO) (int64, error) {
	if err := checkVFO(vfo); err != nil {
		return 0, err
	}
	cmd := frequencyCommand(vfo)
	var hz int64
	_, err := r.sess.Exchange(ctx, session.Request{
		Op:    "read frequency",
		Frame: frame.EncodeASCII(cmd, TS2000Terminator),
		Read:  session.ReadUntil(TS2000Terminator, 32),
		Validate: func(resp []byte) error {
			reply := frame.TrimASCII(resp, TS2000Terminator)
			if reply == "?" {
				return busdev.NewNackError("read frequency", r.sess.Path(), "command rejected")
			}
			digits, ok := strings.CutPrefix(reply, cmd)
			if !ok || len(digits) != 11 {
				return busdev.NewFrameCorruptedError("read frequency", r.sess.Path(), fmt.Sprintf("reply %q", reply))
			}
			v, err := strconv.ParseInt(digits, 10, 64)
			if err != nil {
				return busdev.NewFrameCorruptedError("read frequency", r.sess.Path(), fmt.Sprintf("digits %q", digits))
			}
			hz = v
			return nil
		},
	})
	return hz, err
}

// SetFrequency tunes vfo to hz. The radio does not answer a set, so the
// frequency is read back to confirm it.
func (r *TS2000) SetFrequency(ctx context.Context, vfo VFO, hz int64) error {
	if err := checkVFO(vfo); err != nil {
		return err
	}
	if hz < 0 || hz > MaxTS2000Frequency {
		return busdev.NewRangeError("frequency", hz, 0, int64(MaxTS2000Frequency))
	}
	cmd := fmt.Sprintf("%s%011d", frequencyCommand(vfo), hz)
	if _, err := r.sess.Exchange(ctx, session.Request{
		Op:    "set frequency",
		Frame: frame.EncodeASCII(cmd, TS2000Terminator),
	}); err != nil {
		return err
	}
	got, err := r.Frequency(ctx, vfo)
	if err != nil {
		return err
	}
	if got != hz {
		return busdev.NewNackError("set frequency", r.sess.Path(), fmt.Sprintf("radio reports %d Hz", got))
	}
	return nil
}

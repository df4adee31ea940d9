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

// Package tnc drives a packet-radio terminal node controller in KISS mode.
// Each payload travels as one AX.25 UI frame between two fixed stations.
package tnc

import (
	"context"
	"fmt"
	"time"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/internal/frame"
	"github.com/spacebus/go-busdev/session"
)

// MTU is the largest payload one frame carries
const MTU = frame.KISSMTU

// maxFrame bounds one stuffed frame on the wire
const maxFrame = 2*(frame.KISSHeaderSize+MTU+frame.AX25FCSSize) + 2

// Driver is the KISS line declaration
var Driver = declare()

func declare() *session.Driver {
	port := busdev.DefaultPortConfig("")
	port.BaudRate = 19200
	port.ReadTimeout = time.Second

	retry := busdev.DefaultRetryConfig()
	retry.AttemptTimeout = time.Second

	return session.MustDriver(session.DriverConfig{
		Name:    "kiss",
		Framing: session.FramingKISS,
		Port:    port,
		Retry:   retry,
	})
}

// Config names the two stations and the TNC port
type Config struct {
	Dest   frame.Address
	Source frame.Address
	// Port is the TNC radio port, 0 to 15
	Port byte
}

// NewConfig parses CALL or CALL-SSID station names for TNC port 1
func NewConfig(dest, source string) (Config, error) {
	d, err := frame.ParseAddress(dest)
	if err != nil {
		return Config{}, fmt.Errorf("destination: %w", err)
	}
	s, err := frame.ParseAddress(source)
	if err != nil {
		return Config{}, fmt.Errorf("source: %w", err)
	}
	return Config{Dest: d, Source: s, Port: 1}, nil
}

func (c Config) kissFrame(payload []byte) frame.KISSFrame {
	return frame.KISSFrame{
		Dest:    c.Dest,
		Source:  c.Source,
		Port:    c.Port,
		Control: frame.AX25ControlUI,
		PID:     frame.AX25PIDNoL3,
		Payload: payload,
	}
}

// TNC is a connected KISS TNC
type TNC struct {
	sess *session.Session
	cfg  Config
}

// New wraps a session built on Driver. The station addresses are checked
// by encoding an empty frame.
func New(sess *session.Session, cfg Config) (*TNC, error) {
	if _, err := frame.EncodeKISS(cfg.kissFrame(nil)); err != nil {
		return nil, err
	}
	return &TNC{sess: sess, cfg: cfg}, nil
}

// Connect opens the TNC on path. The TNC says nothing until a frame
// arrives, so there is no probe.
func Connect(path string, cfg Config, opts ...session.Option) (*TNC, error) {
	sess, err := session.New(Driver, opts...)
	if err != nil {
		return nil, err
	}
	t, err := New(sess, cfg)
	if err != nil {
		return nil, err
	}
	if err := sess.Connect(Driver.PortConfig().WithPath(path)); err != nil {
		return nil, err
	}
	return t, nil
}

// Close releases the port
func (t *TNC) Close() error {
	return t.sess.Close()
}

// Session returns the underlying session
func (t *TNC) Session() *session.Session {
	return t.sess
}

// Config returns the station configuration
func (t *TNC) Config() Config {
	return t.cfg
}

// Send transmits payload as one UI frame. Payloads over MTU bytes fail
// with ErrOutOfRange before anything is written.
func (t *TNC) Send(ctx context.Context, payload []byte) error {
	frm, err := frame.EncodeKISS(t.cfg.kissFrame(payload))
	if err != nil {
		return err
	}
	_, err = t.sess.Exchange(ctx, session.Request{Op: "kiss send", Frame: frm, Force: true})
	return err
}

// readFrame reads up to the closing FEND, skipping the opening one and
// any inter-frame fill
func readFrame(port busdev.Port, timeout time.Duration) ([]byte, error) {
	for i := 0; i < 4; i++ {
		chunk, err := port.ReadUntil(frame.FEND, maxFrame, timeout)
		if err != nil {
			return nil, err
		}
		if len(chunk) > 1 {
			return chunk, nil
		}
	}
	return nil, busdev.NewFrameCorruptedError("kiss read", port.Path(), "only delimiters")
}

// Receive waits for the next frame and decodes it. A damaged frame is
// reported rather than retried, since reading again returns the next one.
func (t *TNC) Receive(ctx context.Context) (frame.KISSFrame, error) {
	var f frame.KISSFrame
	_, err := t.sess.Exchange(ctx, session.Request{
		Op:       "kiss receive",
		Read:     readFrame,
		Attempts: 1,
		Validate: func(resp []byte) error {
			var err error
			f, err = frame.DecodeKISS(resp)
			return err
		},
	})
	return f, err
}

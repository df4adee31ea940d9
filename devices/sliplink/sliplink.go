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

// Package sliplink carries raw packets over a serial line in SLIP frames
// with a CRC-16 trailer.
package sliplink

import (
	"context"
	"time"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/internal/frame"
	"github.com/spacebus/go-busdev/session"
)

// MaxPayload is the largest packet one frame carries
const MaxPayload = frame.MaxSLIPPayload

const maxFrame = 2*(MaxPayload+frame.SLIPCRCSize) + 2

// Driver is the SLIP line declaration
var Driver = declare()

func declare() *session.Driver {
	port := busdev.DefaultPortConfig("")
	port.BaudRate = 115200
	port.ReadTimeout = time.Second

	retry := busdev.DefaultRetryConfig()
	retry.AttemptTimeout = time.Second

	return session.MustDriver(session.DriverConfig{
		Name:    "slip",
		Framing: session.FramingSLIP,
		Port:    port,
		Retry:   retry,
	})
}

// Link is an open SLIP link
type Link struct {
	sess *session.Session
}

// New wraps a session built on Driver
func New(sess *session.Session) *Link {
	return &Link{sess: sess}
}

// Connect opens the link on path
func Connect(path string, opts ...session.Option) (*Link, error) {
	sess, err := session.New(Driver, opts...)
	if err != nil {
		return nil, err
	}
	if err := sess.Connect(Driver.PortConfig().WithPath(path)); err != nil {
		return nil, err
	}
	return New(sess), nil
}

// Close releases the port
func (l *Link) Close() error {
	return l.sess.Close()
}

// Session returns the underlying session
func (l *Link) Session() *session.Session {
	return l.sess
}

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
	return nil, busdev.NewFrameCorruptedError("slip read", port.Path(), "only delimiters")
}

// Send writes payload as one frame
func (l *Link) Send(ctx context.Context, payload []byte) error {
	frm, err := frame.EncodeSLIP(payload)
	if err != nil {
		return err
	}
	_, err = l.sess.Exchange(ctx, session.Request{Op: "slip send", Frame: frm, Force: true})
	return err
}

// Receive waits for the next frame and returns its payload
func (l *Link) Receive(ctx context.Context) ([]byte, error) {
	var payload []byte
	_, err := l.sess.Exchange(ctx, session.Request{
		Op:       "slip receive",
		Read:     readFrame,
		Attempts: 1,
		Validate: func(resp []byte) error {
			var err error
			payload, err = frame.DecodeSLIP(resp)
			return err
		},
	})
	return payload, err
}

// Transact sends request and waits for the peer's reply. A reply that
// fails its CRC or never comes is retried by sending the request again.
func (l *Link) Transact(ctx context.Context, request []byte) ([]byte, error) {
	frm, err := frame.EncodeSLIP(request)
	if err != nil {
		return nil, err
	}
	var reply []byte
	_, err = l.sess.Exchange(ctx, session.Request{
		Op:    "slip transact",
		Frame: frm,
		Force: true,
		Read:  readFrame,
		Validate: func(resp []byte) error {
			var err error
			reply, err = frame.DecodeSLIP(resp)
			return err
		},
	})
	return reply, err
}

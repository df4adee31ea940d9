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

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/session"
	"github.com/spacebus/go-busdev/transport/i2c"
	"github.com/spacebus/go-busdev/transport/uart"
)

// newTranscript opens a rotating transcript file
func newTranscript(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
	}
}

// transcriptPort records every frame crossing the wrapped port
type transcriptPort struct {
	busdev.Port
	w   io.Writer
	now func() time.Time
	mu  *sync.Mutex
}

func newTranscriptPort(p busdev.Port, w io.Writer, mu *sync.Mutex) *transcriptPort {
	return &transcriptPort{Port: p, w: w, now: time.Now, mu: mu}
}

func (t *transcriptPort) record(dir string, data []byte, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	stamp := t.now().UTC().Format("2006-01-02T15:04:05.000Z")
	if err != nil {
		_, _ = fmt.Fprintf(t.w, "%s %s %s %s err=%v\n", stamp, t.Path(), dir, hex.EncodeToString(data), err)
		return
	}
	_, _ = fmt.Fprintf(t.w, "%s %s %s %s\n", stamp, t.Path(), dir, hex.EncodeToString(data))
}

func (t *transcriptPort) Write(p []byte) (int, error) {
	n, err := t.Port.Write(p)
	t.record(">", p[:n], err)
	return n, err
}

func (t *transcriptPort) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	b, err := t.Port.ReadExact(n, timeout)
	t.record("<", b, err)
	return b, err
}

func (t *transcriptPort) ReadUntil(delim byte, maxLen int, timeout time.Duration) ([]byte, error) {
	b, err := t.Port.ReadUntil(delim, maxLen, timeout)
	t.record("<", b, err)
	return b, err
}

// parseI2CPath splits "i2c:BUS:ADDR". BUS may be empty to pick the first
// bus; ADDR accepts 0x prefixed hex.
func parseI2CPath(path string) (bus string, addr uint16, ok bool, err error) {
	rest, found := strings.CutPrefix(path, "i2c:")
	if !found {
		return "", 0, false, nil
	}
	i := strings.LastIndexByte(rest, ':')
	if i < 0 {
		return "", 0, true, fmt.Errorf("%w: i2c path %q needs bus:address", busdev.ErrInvalidParameter, path)
	}
	v, err := strconv.ParseUint(rest[i+1:], 0, 7)
	if err != nil {
		return "", 0, true, fmt.Errorf("%w: i2c address in %q", busdev.ErrInvalidParameter, path)
	}
	return rest[:i], uint16(v), true, nil
}

// opener picks the transport from the path and wraps it with the
// transcript when one is configured
func opener(transcript io.Writer) session.Opener {
	var mu sync.Mutex
	return func(cfg busdev.PortConfig) (busdev.Port, error) {
		var port busdev.Port
		bus, addr, isI2C, err := parseI2CPath(cfg.Path)
		switch {
		case err != nil:
			return nil, err
		case isI2C:
			port, err = i2c.Open(bus, addr, i2c.WithTimeout(cfg.ReadTimeout))
		default:
			port, err = uart.Opener(cfg)
		}
		if err != nil {
			return nil, err
		}
		if transcript == nil {
			return port, nil
		}
		return newTranscriptPort(port, transcript, &mu), nil
	}
}

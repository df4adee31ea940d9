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

// Command busctl drives serial bus instruments from a shell or one-shot
// command line.
//
//	busctl -profile mast rotator goto 120 30
//	busctl -family gs232b -device /dev/ttyUSB0
//
// Logging goes through glog; pass -logtostderr -v=2 -debug to trace frames.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"

	busdev "github.com/spacebus/go-busdev"
	// Register detectors for the ports command
	_ "github.com/spacebus/go-busdev/detection/i2c"
	_ "github.com/spacebus/go-busdev/detection/uart"
	"github.com/spacebus/go-busdev/internal/config"
)

type options struct {
	configPath string
	profile    string
	family     string
	device     string
	dest       string
	source     string
	transcript string
	debug      bool
	evalOnly   bool
}

func parseFlags() *options {
	o := &options{}
	flag.StringVar(&o.configPath, "config", "", "Profile file (default $BUSDEV_CONFIG)")
	flag.StringVar(&o.profile, "profile", "", "Profile to connect at startup")
	flag.StringVar(&o.family, "family", "", "Device family to connect at startup when no profile is given")
	flag.StringVar(&o.device, "device", "", "Device path, e.g. /dev/ttyUSB0, COM3 or i2c:1:0x24")
	flag.StringVar(&o.dest, "dest", "CQ", "TNC destination callsign")
	flag.StringVar(&o.source, "source", "", "TNC source callsign")
	flag.StringVar(&o.transcript, "transcript", "", "Append a hex transcript of all frames to this file")
	flag.BoolVar(&o.debug, "debug", false, "Enable frame-level debug logging")
	flag.BoolVar(&o.evalOnly, "e", false, "Evaluation only, no interactive shell")
	flag.Parse()
	return o
}

func run(o *options) error {
	busdev.SetDebugEnabled(o.debug)

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.device != "" {
		cfg.Defaults.Device = o.device
	}

	var transcript io.Writer
	if o.transcript != "" {
		logger := newTranscript(o.transcript)
		defer func() { _ = logger.Close() }()
		transcript = logger
	}

	s := newShell(cfg, opener(transcript), !o.evalOnly)
	defer s.Disconnect()

	switch {
	case o.profile != "":
		p, err := cfg.Profile(o.profile)
		if err != nil {
			return err
		}
		if err := s.Connect(o.profile, p); err != nil {
			return fmt.Errorf("connect %s: %w", o.profile, err)
		}
	case o.family != "":
		p, err := cfg.Adhoc(config.Profile{Family: o.family, Dest: o.dest, Source: o.source})
		if err != nil {
			return err
		}
		if err := s.Connect(o.family, p); err != nil {
			return fmt.Errorf("connect %s: %w", o.family, err)
		}
	}
	return s.Run(flag.Args()...)
}

func main() {
	o := parseFlags()
	err := run(o)
	glog.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, "busctl:", err)
		os.Exit(1)
	}
}

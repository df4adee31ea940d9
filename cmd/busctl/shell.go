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
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/spacebus/go-busdev/detection"
	"github.com/spacebus/go-busdev/devices/imu"
	"github.com/spacebus/go-busdev/devices/radio"
	"github.com/spacebus/go-busdev/devices/rotator"
	"github.com/spacebus/go-busdev/devices/sliplink"
	"github.com/spacebus/go-busdev/devices/tnc"
	"github.com/spacebus/go-busdev/devices/torquerod"
	"github.com/spacebus/go-busdev/internal/config"
	"github.com/spacebus/go-busdev/polling"
	"github.com/spacebus/go-busdev/session"
)

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
	commandTimeout    = 30 * time.Second
)

var errNotConnected = errors.New("not connected")

// Shell is the busctl command interpreter
type Shell struct {
	Shell       *ishell.Shell
	Config      *config.Config
	Device      *device
	open        session.Opener
	Interactive bool
}

func newShell(cfg *config.Config, open session.Opener, interactive bool) *Shell {
	s := &Shell{
		Shell:       ishell.New(),
		Config:      cfg,
		open:        open,
		Interactive: interactive,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands() {
		s.Shell.AddCmd(cmd)
	}
	return s
}

func shellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Connect replaces the current device with the one p describes
func (s *Shell) Connect(name string, p config.Profile) error {
	d, err := connectProfile(name, p, s.open)
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Device = d
	glog.Infof("connected %s", d)
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", d.name))
	return nil
}

// Disconnect closes the current device
func (s *Shell) Disconnect() {
	if s.Device == nil {
		return
	}
	if err := s.Device.handle.Close(); err != nil {
		glog.Warningf("close %s: %v", s.Device, err)
	}
	s.Device = nil
	s.Shell.SetPrompt(unconnectedPrompt)
}

// Run processes args as one command, or starts the interactive loop
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if !s.Interactive {
		return errors.New("command expected")
	}
	s.Shell.Run()
	return nil
}

// on wraps a command that needs a connected device of type T
func on[T any](fn func(c *ishell.Context, ctx context.Context, dev T) error) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := shellFrom(c)
		if s.Device == nil {
			c.Err(errNotConnected)
			return
		}
		dev, ok := s.Device.handle.(T)
		if !ok {
			c.Err(fmt.Errorf("%s does not support %s", s.Device, c.Cmd.Name))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		if err := fn(c, ctx, dev); err != nil {
			glog.Errorf("%s: %v", c.Cmd.Name, err)
			c.Err(err)
		}
	}
}

func argFloat(c *ishell.Context, i int, name string) (float64, error) {
	if len(c.Args) <= i {
		return 0, fmt.Errorf("%s required", name)
	}
	v, err := strconv.ParseFloat(c.Args[i], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func argInt(c *ishell.Context, i int, name string) (int, error) {
	if len(c.Args) <= i {
		return 0, fmt.Errorf("%s required", name)
	}
	v, err := strconv.Atoi(c.Args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func argVFO(c *ishell.Context, i int) (radio.VFO, error) {
	if len(c.Args) <= i {
		return radio.VFOA, nil
	}
	switch strings.ToUpper(c.Args[i]) {
	case "A":
		return radio.VFOA, nil
	case "B":
		return radio.VFOB, nil
	}
	return 0, fmt.Errorf("invalid VFO %q", c.Args[i])
}

func argAxis(c *ishell.Context, i int) (rotator.Axis, error) {
	if len(c.Args) <= i {
		return rotator.Azimuth, nil
	}
	switch strings.ToLower(c.Args[i]) {
	case "az", "azimuth":
		return rotator.Azimuth, nil
	case "el", "elevation":
		return rotator.Elevation, nil
	}
	return 0, fmt.Errorf("invalid axis %q", c.Args[i])
}

// pointer is implemented by both rotator controllers
type pointer interface {
	Position(ctx context.Context) (az, el float64, err error)
	Goto(ctx context.Context, az, el float64) (bool, error)
}

func commands() []*ishell.Cmd {
	return []*ishell.Cmd{
		portsCmd(),
		profilesCmd(),
		connectCmd(),
		{
			Name: "close",
			Help: "close the connected device",
			Func: func(c *ishell.Context) { shellFrom(c).Disconnect() },
		},
		{
			Name: "status",
			Help: "show the connected device",
			Func: func(c *ishell.Context) {
				s := shellFrom(c)
				if s.Device == nil {
					c.Println("not connected")
					return
				}
				c.Println(s.Device.String())
			},
		},
		torqueCmd(),
		imuCmd(),
		rotatorCmd(),
		radioCmd(),
		tncCmd(),
		slipCmd(),
		watchCmd(),
	}
}

func portsCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Help:    "list candidate ports",
		Func: func(c *ishell.Context) {
			found, err := detection.DetectAll(context.Background(), detection.DefaultOptions())
			if errors.Is(err, detection.ErrNoDevicesFound) {
				c.Println("No ports found")
				return
			}
			for _, d := range found {
				c.Println(d.String())
			}
			if err != nil {
				c.Err(err)
			}
		},
	}
}

func profilesCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "profiles",
		Help: "list configured profiles",
		Func: func(c *ishell.Context) {
			cfg := shellFrom(c).Config
			for _, name := range cfg.Names() {
				p, _ := cfg.Profile(name)
				c.Printf("%-12s %-10s %s\n", name, p.Family, p.Device)
			}
		},
	}
}

func connectCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "PROFILE | FAMILY PATH",
		Func: func(c *ishell.Context) {
			s := shellFrom(c)
			var (
				p    config.Profile
				name string
				err  error
			)
			switch len(c.Args) {
			case 1:
				name = c.Args[0]
				p, err = s.Config.Profile(name)
			case 2:
				name = c.Args[0]
				p, err = s.Config.Adhoc(config.Profile{Family: c.Args[0], Device: c.Args[1]})
			default:
				err = errors.New("PROFILE or FAMILY PATH required")
			}
			if err == nil {
				err = s.Connect(name, p)
			}
			if err != nil {
				c.Err(err)
			}
		},
	}
}

func torqueCmd() *ishell.Cmd {
	cmd := &ishell.Cmd{Name: "torque", Help: "torque rod controller"}
	cmd.AddCmd(&ishell.Cmd{
		Name: "telemetry",
		Func: on(func(c *ishell.Context, ctx context.Context, r *torquerod.Rod) error {
			t, err := r.Telemetry(ctx)
			if err != nil {
				return err
			}
			c.Printf("status=0x%04x count=%d invalid=%d resets=%d temp=%d volt=%d\n",
				t.Status, t.Count, t.Invalid, t.Resets, t.Temperature, t.Voltage)
			for ch := 0; ch < torquerod.Channels; ch++ {
				c.Printf("  ch%d %.6f A\n", ch, t.Amps(ch))
			}
			return nil
		}),
	})
	for _, simple := range []struct {
		name string
		fn   func(*torquerod.Rod, context.Context) error
	}{
		{"reset", (*torquerod.Rod).Reset},
		{"enable", (*torquerod.Rod).Enable},
		{"disable", (*torquerod.Rod).Disable},
	} {
		fn := simple.fn
		cmd.AddCmd(&ishell.Cmd{
			Name: simple.name,
			Func: on(func(c *ishell.Context, ctx context.Context, r *torquerod.Rod) error {
				if err := fn(r, ctx); err != nil {
					return err
				}
				c.Println("OK")
				return nil
			}),
		})
	}
	cmd.AddCmd(&ishell.Cmd{
		Name: "moment",
		Help: "CHANNEL A·m²",
		Func: on(func(c *ishell.Context, ctx context.Context, r *torquerod.Rod) error {
			ch, err := argInt(c, 0, "CHANNEL")
			if err != nil {
				return err
			}
			m, err := argFloat(c, 1, "MOMENT")
			if err != nil {
				return err
			}
			res, err := r.SetMoment(ctx, ch, m)
			if err != nil {
				return err
			}
			c.Printf("converged=%v polls=%d residual=%g\n", res.Converged, res.Polls, res.Residual)
			return nil
		}),
	})
	cmd.AddCmd(&ishell.Cmd{
		Name: "moments",
		Help: "X Y Z (A·m²)",
		Func: on(func(c *ishell.Context, ctx context.Context, r *torquerod.Rod) error {
			var m [torquerod.Channels]float64
			for i := range m {
				v, err := argFloat(c, i, "MOMENT")
				if err != nil {
					return err
				}
				m[i] = v
			}
			residual, err := r.SetMoments(ctx, m)
			if err != nil {
				return err
			}
			c.Printf("residual=%g\n", residual)
			return nil
		}),
	})
	cmd.AddCmd(&ishell.Cmd{
		Name: "amps",
		Help: "CHANNEL AMPS",
		Func: on(func(c *ishell.Context, ctx context.Context, r *torquerod.Rod) error {
			ch, err := argInt(c, 0, "CHANNEL")
			if err != nil {
				return err
			}
			a, err := argFloat(c, 1, "AMPS")
			if err != nil {
				return err
			}
			return r.SetAmps(ctx, ch, a)
		}),
	})
	return cmd
}

func imuCmd() *ishell.Cmd {
	cmd := &ishell.Cmd{Name: "imu", Help: "inertial measurement unit"}
	cmd.AddCmd(&ishell.Cmd{
		Name: "euler",
		Func: on(func(c *ishell.Context, ctx context.Context, m *imu.IMU) error {
			e, err := m.Euler(ctx)
			if err != nil {
				return err
			}
			c.Printf("roll=%.4f pitch=%.4f yaw=%.4f timer=%d\n", e.Roll, e.Pitch, e.Yaw, e.Timer)
			return nil
		}),
	})
	cmd.AddCmd(&ishell.Cmd{
		Name: "accel",
		Func: on(func(c *ishell.Context, ctx context.Context, m *imu.IMU) error {
			a, err := m.AccelRate(ctx)
			if err != nil {
				return err
			}
			c.Printf("accel=%v rate=%v timer=%d\n", a.Accel, a.Rate, a.Timer)
			return nil
		}),
	})
	cmd.AddCmd(&ishell.Cmd{
		Name: "temp",
		Func: on(func(c *ishell.Context, ctx context.Context, m *imu.IMU) error {
			t, err := m.Temperature(ctx)
			if err != nil {
				return err
			}
			c.Printf("accel=%.2f gyro=%v\n", t.Accel, t.Gyro)
			return nil
		}),
	})
	cmd.AddCmd(&ishell.Cmd{
		Name: "firmware",
		Func: on(func(c *ishell.Context, ctx context.Context, m *imu.IMU) error {
			fw, err := m.Firmware(ctx)
			if err != nil {
				return err
			}
			c.Printf("firmware %d\n", fw)
			return nil
		}),
	})
	cmd.AddCmd(&ishell.Cmd{
		Name: "bias",
		Help: "SECONDS",
		Func: on(func(c *ishell.Context, ctx context.Context, m *imu.IMU) error {
			secs, err := argFloat(c, 0, "SECONDS")
			if err != nil {
				return err
			}
			bias, err := m.CaptureGyroBias(ctx, time.Duration(secs*float64(time.Second)))
			if err != nil {
				return err
			}
			c.Printf("bias=%v\n", bias)
			return nil
		}),
	})
	return cmd
}

func rotatorCmd() *ishell.Cmd {
	cmd := &ishell.Cmd{Name: "rotator", Help: "antenna rotator"}
	cmd.AddCmd(&ishell.Cmd{
		Name: "pos",
		Func: on(func(c *ishell.Context, ctx context.Context, r pointer) error {
			az, el, err := r.Position(ctx)
			if err != nil {
				return err
			}
			c.Printf("az=%.1f el=%.1f\n", az, el)
			return nil
		}),
	})
	cmd.AddCmd(&ishell.Cmd{
		Name: "goto",
		Help: "AZ EL (degrees)",
		Func: on(func(c *ishell.Context, ctx context.Context, r pointer) error {
			az, err := argFloat(c, 0, "AZ")
			if err != nil {
				return err
			}
			el, err := argFloat(c, 1, "EL")
			if err != nil {
				return err
			}
			moved, err := r.Goto(ctx, az, el)
			if err != nil {
				return err
			}
			if !moved {
				c.Println("already within sensitivity")
			}
			return nil
		}),
	})
	cmd.AddCmd(&ishell.Cmd{
		Name: "stop",
		Help: "[AXIS]",
		Func: on(func(c *ishell.Context, ctx context.Context, r pointer) error {
			switch r := r.(type) {
			case *rotator.GS232B:
				return r.Stop(ctx)
			case *rotator.PRKX2SU:
				axis, err := argAxis(c, 0)
				if err != nil {
					return err
				}
				return r.Stop(ctx, axis)
			}
			return fmt.Errorf("stop unsupported for %T", r)
		}),
	})
	return cmd
}

func radioCmd() *ishell.Cmd {
	cmd := &ishell.Cmd{Name: "radio", Help: "transceiver"}
	cmd.AddCmd(&ishell.Cmd{
		Name: "freq",
		Help: "[A|B]",
		Func: on(func(c *ishell.Context, ctx context.Context, r io.Closer) error {
			vfo, err := argVFO(c, 0)
			if err != nil {
				return err
			}
			var hz float64
			switch r := r.(type) {
			case *radio.IC9100:
				v, err := r.Frequency(ctx, vfo)
				if err != nil {
					return err
				}
				hz = float64(v)
			case *radio.TS2000:
				v, err := r.Frequency(ctx, vfo)
				if err != nil {
					return err
				}
				hz = float64(v)
			default:
				return fmt.Errorf("not a radio: %T", r)
			}
			c.Printf("%s %.0f Hz band %d\n", vfo, hz, radio.FrequencyBand(hz))
			return nil
		}),
	})
	cmd.AddCmd(&ishell.Cmd{
		Name: "setfreq",
		Help: "A|B HZ",
		Func: on(func(c *ishell.Context, ctx context.Context, r io.Closer) error {
			vfo, err := argVFO(c, 0)
			if err != nil {
				return err
			}
			if len(c.Args) < 2 {
				return errors.New("HZ required")
			}
			hz, err := strconv.ParseUint(c.Args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid HZ: %w", err)
			}
			switch r := r.(type) {
			case *radio.IC9100:
				return r.SetFrequency(ctx, vfo, hz)
			case *radio.TS2000:
				return r.SetFrequency(ctx, vfo, int64(hz))
			}
			return fmt.Errorf("not a radio: %T", r)
		}),
	})
	cmd.AddCmd(&ishell.Cmd{
		Name: "mode",
		Help: "A|B [MODE]",
		Func: on(func(c *ishell.Context, ctx context.Context, r *radio.IC9100) error {
			vfo, err := argVFO(c, 0)
			if err != nil {
				return err
			}
			if len(c.Args) < 2 {
				m, err := r.Mode(ctx, vfo)
				if err != nil {
					return err
				}
				c.Println(m.String())
				return nil
			}
			m, err := radio.ParseMode(c.Args[1])
			if err != nil {
				return err
			}
			return r.SetMode(ctx, vfo, m)
		}),
	})
	cmd.AddCmd(&ishell.Cmd{
		Name: "swap",
		Help: "exchange main and sub",
		Func: on(func(c *ishell.Context, ctx context.Context, r *radio.IC9100) error {
			return r.ExchangeVFO(ctx)
		}),
	})
	cmd.AddCmd(&ishell.Cmd{
		Name: "bandpass",
		Help: "A|B [HZ]",
		Func: on(func(c *ishell.Context, ctx context.Context, r *radio.IC9100) error {
			vfo, err := argVFO(c, 0)
			if err != nil {
				return err
			}
			if len(c.Args) < 2 {
				hz, err := r.Bandpass(ctx, vfo)
				if err != nil {
					return err
				}
				c.Printf("%s %.0f Hz\n", vfo, hz)
				return nil
			}
			hz, err := argFloat(c, 1, "HZ")
			if err != nil {
				return err
			}
			return r.SetBandpass(ctx, vfo, hz)
		}),
	})
	cmd.AddCmd(&ishell.Cmd{
		Name: "meters",
		Help: "S, RF, SWR, ALC and COMP readings",
		Func: on(func(c *ishell.Context, ctx context.Context, r *radio.IC9100) error {
			for _, m := range []struct {
				name string
				sub  byte
			}{
				{"S", radio.MeterS},
				{"RF", radio.MeterRF},
				{"SWR", radio.MeterSWR},
				{"ALC", radio.MeterALC},
				{"COMP", radio.MeterComp},
			} {
				v, err := r.Meter(ctx, m.sub)
				if err != nil {
					return fmt.Errorf("%s meter: %w", m.name, err)
				}
				c.Printf("%-4s %3d\n", m.name, v)
			}
			return nil
		}),
	})
	return cmd
}

func tncCmd() *ishell.Cmd {
	cmd := &ishell.Cmd{Name: "tnc", Help: "KISS terminal node controller"}
	cmd.AddCmd(&ishell.Cmd{
		Name: "send",
		Help: "TEXT...",
		Func: on(func(c *ishell.Context, ctx context.Context, t *tnc.TNC) error {
			return t.Send(ctx, []byte(strings.Join(c.Args, " ")))
		}),
	})
	cmd.AddCmd(&ishell.Cmd{
		Name: "recv",
		Func: on(func(c *ishell.Context, ctx context.Context, t *tnc.TNC) error {
			f, err := t.Receive(ctx)
			if err != nil {
				return err
			}
			c.Printf("%s>%s: %q\n", f.Source, f.Dest, f.Payload)
			return nil
		}),
	})
	return cmd
}

func slipCmd() *ishell.Cmd {
	cmd := &ishell.Cmd{Name: "slip", Help: "SLIP framed link"}
	hexArg := func(c *ishell.Context) ([]byte, error) {
		if len(c.Args) < 1 {
			return nil, errors.New("HEX required")
		}
		return hex.DecodeString(strings.Join(c.Args, ""))
	}
	cmd.AddCmd(&ishell.Cmd{
		Name: "send",
		Help: "HEX",
		Func: on(func(c *ishell.Context, ctx context.Context, l *sliplink.Link) error {
			b, err := hexArg(c)
			if err != nil {
				return err
			}
			return l.Send(ctx, b)
		}),
	})
	cmd.AddCmd(&ishell.Cmd{
		Name: "recv",
		Func: on(func(c *ishell.Context, ctx context.Context, l *sliplink.Link) error {
			b, err := l.Receive(ctx)
			if err != nil {
				return err
			}
			c.Println(hex.EncodeToString(b))
			return nil
		}),
	})
	cmd.AddCmd(&ishell.Cmd{
		Name: "transact",
		Help: "HEX",
		Func: on(func(c *ishell.Context, ctx context.Context, l *sliplink.Link) error {
			b, err := hexArg(c)
			if err != nil {
				return err
			}
			resp, err := l.Transact(ctx, b)
			if err != nil {
				return err
			}
			c.Println(hex.EncodeToString(resp))
			return nil
		}),
	})
	return cmd
}

// probeFor returns a one-line reading for any connected family
func probeFor(handle io.Closer) (polling.Probe[string], error) {
	switch d := handle.(type) {
	case *torquerod.Rod:
		return func(ctx context.Context) (string, error) {
			t, err := d.Telemetry(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("status=0x%04x %.6f %.6f %.6f A", t.Status, t.Amps(0), t.Amps(1), t.Amps(2)), nil
		}, nil
	case *imu.IMU:
		return func(ctx context.Context) (string, error) {
			e, err := d.Euler(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("roll=%.4f pitch=%.4f yaw=%.4f", e.Roll, e.Pitch, e.Yaw), nil
		}, nil
	case pointer:
		return func(ctx context.Context) (string, error) {
			az, el, err := d.Position(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("az=%.1f el=%.1f", az, el), nil
		}, nil
	case *radio.IC9100:
		return func(ctx context.Context) (string, error) {
			hz, err := d.Frequency(ctx, radio.VFOA)
			return fmt.Sprintf("%d Hz", hz), err
		}, nil
	case *radio.TS2000:
		return func(ctx context.Context) (string, error) {
			hz, err := d.Frequency(ctx, radio.VFOA)
			return fmt.Sprintf("%d Hz", hz), err
		}, nil
	}
	return nil, fmt.Errorf("%T has no reading to watch", handle)
}

func watchCmd() *ishell.Cmd {
	return &ishell.Cmd{
		Name: "watch",
		Help: "[COUNT] [INTERVAL] poll the device and print each reading",
		Func: func(c *ishell.Context) {
			s := shellFrom(c)
			if s.Device == nil {
				c.Err(errNotConnected)
				return
			}
			count := 10
			if len(c.Args) > 0 {
				n, err := argInt(c, 0, "COUNT")
				if err != nil {
					c.Err(err)
					return
				}
				count = n
			}
			cfg := polling.DefaultConfig()
			if len(c.Args) > 1 {
				d, err := time.ParseDuration(c.Args[1])
				if err != nil {
					c.Err(fmt.Errorf("invalid INTERVAL: %w", err))
					return
				}
				cfg.PollInterval = d
				cfg.LossTimeout = max(cfg.LossTimeout, 4*d)
			}
			probe, err := probeFor(s.Device.handle)
			if err != nil {
				c.Err(err)
				return
			}
			m, err := polling.NewMonitor(probe, cfg)
			if err != nil {
				c.Err(err)
				return
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			seen := 0
			m.OnUp = func(string) { c.Println("link up") }
			m.OnLost = func(err error) { c.Printf("link lost: %v\n", err) }
			m.OnSample = func(sample string) {
				c.Println(sample)
				if seen++; seen >= count {
					cancel()
				}
			}
			_ = m.Start(ctx)
			st := m.Status()
			c.Printf("%d samples, link %s\n", st.Samples, st.State)
		},
	}
}

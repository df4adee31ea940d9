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

// Package config loads busctl device profiles from YAML. Values are
// layered: built-in defaults, then the file, then BUSDEV_* environment
// variables, and the result is validated before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	busdev "github.com/spacebus/go-busdev"
	"github.com/spacebus/go-busdev/session"
)

// Environment overrides
const (
	EnvDevice  = "BUSDEV_DEVICE"
	EnvBaud    = "BUSDEV_BAUD"
	EnvTimeout = "BUSDEV_TIMEOUT"
	EnvConfig  = "BUSDEV_CONFIG"
)

// Device families a profile may name
const (
	FamilyTorqueRod = "torquerod"
	FamilyIMU       = "imu"
	FamilyGS232B    = "gs232b"
	FamilyPRKX2SU   = "prkx2su"
	FamilyIC9100    = "ic9100"
	FamilyTS2000    = "ts2000"
	FamilyTNC       = "tnc"
	FamilySLIP      = "slip"
)

var families = map[string]bool{
	FamilyTorqueRod: true,
	FamilyIMU:       true,
	FamilyGS232B:    true,
	FamilyPRKX2SU:   true,
	FamilyIC9100:    true,
	FamilyTS2000:    true,
	FamilyTNC:       true,
	FamilySLIP:      true,
}

// ErrUnknownProfile is returned by Profile for a name not in the file
var ErrUnknownProfile = errors.New("unknown profile")

// Config is the whole profile file
type Config struct {
	Profiles map[string]Profile `yaml:"profiles"`
	Defaults Defaults           `yaml:"defaults"`
}

// Defaults fill fields a profile leaves empty
type Defaults struct {
	Device  string        `yaml:"device"`
	Baud    int           `yaml:"baud"`
	Timeout time.Duration `yaml:"timeout"`
	Backoff time.Duration `yaml:"backoff"`
	Retries int           `yaml:"retries"`
}

// Profile names one device and how to reach it
type Profile struct {
	Family  string        `yaml:"family"`
	Device  string        `yaml:"device"`
	Dest    string        `yaml:"dest"`
	Source  string        `yaml:"source"`
	Baud    int           `yaml:"baud"`
	Timeout time.Duration `yaml:"timeout"`
	Backoff time.Duration `yaml:"backoff"`
	Retries int           `yaml:"retries"`
	// Address is the CI-V address of an Icom radio
	Address int `yaml:"address"`
}

// Default returns the built-in configuration
func Default() *Config {
	retry := busdev.DefaultRetryConfig()
	return &Config{
		Defaults: Defaults{
			Timeout: 500 * time.Millisecond,
			Backoff: retry.InitialBackoff,
			Retries: retry.MaxAttempts,
		},
		Profiles: map[string]Profile{},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result. BUSDEV_CONFIG names the file when path is empty.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path == "" {
		path, _ = lookup(EnvConfig)
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnvOverrides(cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(cfg, data)
}

// Parse merges YAML data into cfg
func Parse(cfg *Config, data []byte) error {
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	return nil
}

func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDevice); ok && v != "" {
		cfg.Defaults.Device = v
	}
	if v, ok := lookup(EnvBaud); ok && v != "" {
		baud, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", busdev.ErrInvalidParameter, EnvBaud, v)
		}
		cfg.Defaults.Baud = baud
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", busdev.ErrInvalidParameter, EnvTimeout, v)
		}
		cfg.Defaults.Timeout = d
	}
	return nil
}

// Validate checks defaults and every profile
func (c *Config) Validate() error {
	if c.Defaults.Baud < 0 {
		return fmt.Errorf("%w: default baud %d", busdev.ErrInvalidParameter, c.Defaults.Baud)
	}
	if c.Defaults.Timeout <= 0 {
		return fmt.Errorf("%w: default timeout %v", busdev.ErrInvalidParameter, c.Defaults.Timeout)
	}
	if c.Defaults.Retries < 1 {
		return fmt.Errorf("%w: default retries %d", busdev.ErrInvalidParameter, c.Defaults.Retries)
	}
	var errs []error
	for _, name := range c.Names() {
		if err := c.Profiles[name].validate(); err != nil {
			errs = append(errs, fmt.Errorf("profile %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (p Profile) validate() error {
	if !families[p.Family] {
		return fmt.Errorf("%w: family %q", busdev.ErrInvalidParameter, p.Family)
	}
	switch {
	case p.Baud < 0:
		return fmt.Errorf("%w: baud %d", busdev.ErrInvalidParameter, p.Baud)
	case p.Timeout < 0:
		return fmt.Errorf("%w: timeout %v", busdev.ErrInvalidParameter, p.Timeout)
	case p.Retries < 0:
		return fmt.Errorf("%w: retries %d", busdev.ErrInvalidParameter, p.Retries)
	case p.Address < 0 || p.Address > 0xFF:
		return busdev.NewRangeError("address", p.Address, 0, 0xFF)
	case p.Family == FamilyTNC && (p.Dest == "" || p.Source == ""):
		return fmt.Errorf("%w: tnc profile needs dest and source", busdev.ErrInvalidParameter)
	}
	return nil
}

// Names returns the profile names in order
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profile returns name with empty fields filled from the defaults
func (c *Config) Profile(name string) (Profile, error) {
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return c.resolve(p), nil
}

// Adhoc completes a profile assembled from command line flags
func (c *Config) Adhoc(p Profile) (Profile, error) {
	p.Family = strings.ToLower(p.Family)
	p = c.resolve(p)
	if err := p.validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (c *Config) resolve(p Profile) Profile {
	d := c.Defaults
	if p.Device == "" {
		p.Device = d.Device
	}
	if p.Baud == 0 {
		p.Baud = d.Baud
	}
	if p.Timeout == 0 {
		p.Timeout = d.Timeout
	}
	if p.Backoff == 0 {
		p.Backoff = d.Backoff
	}
	if p.Retries == 0 {
		p.Retries = d.Retries
	}
	return p
}

// SessionOptions turns the line and retry settings into session options.
// A zero baud keeps the driver's own rate.
func (p Profile) SessionOptions() []session.Option {
	opts := []session.Option{
		session.WithTimeout(p.Timeout),
		session.WithMaxAttempts(p.Retries),
		session.WithRetryBackoff(p.Backoff),
	}
	if p.Baud > 0 {
		opts = append(opts, session.WithBaudRate(p.Baud))
	}
	return opts
}

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

// Package detection finds candidate device ports. Detectors for each
// transport register themselves on import; DetectAll runs them and drops
// blocked adapters and ignored paths.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Detection errors
var (
	ErrNoDevicesFound      = errors.New("no devices found")
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
	ErrDetectionTimeout    = errors.New("detection timed out")
)

// DeviceInfo describes one candidate port
type DeviceInfo struct {
	Metadata  map[string]string
	Transport string
	Path      string
	Name      string
	// VIDPID is the USB vendor and product id as VVVV:PPPP, or "" when the
	// port is not a USB adapter
	VIDPID string
}

// String renders the device for listings
func (d DeviceInfo) String() string {
	s := fmt.Sprintf("%s %s", d.Transport, d.Path)
	if d.VIDPID != "" {
		s += " [" + d.VIDPID + "]"
	}
	if adapter := AdapterName(d.VIDPID); adapter != "" {
		s += " " + adapter
	}
	return s
}

// Options controls a detection run
type Options struct {
	Blocklist   []string
	IgnorePaths []string
	Timeout     time.Duration
}

// DefaultOptions returns the default blocklist and a 5s timeout
func DefaultOptions() *Options {
	return &Options{
		Blocklist: DefaultBlocklist(),
		Timeout:   5 * time.Second,
	}
}

// Detector finds devices on one transport
type Detector interface {
	Transport() string
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	detectors   = make(map[string]Detector)
	detectorsMu sync.RWMutex
)

// RegisterDetector makes d available to DetectAll. A later registration
// for the same transport replaces the earlier one.
func RegisterDetector(d Detector) {
	detectorsMu.Lock()
	defer detectorsMu.Unlock()
	detectors[d.Transport()] = d
}

// Detectors returns the registered detectors ordered by transport name
func Detectors() []Detector {
	detectorsMu.RLock()
	defer detectorsMu.RUnlock()
	out := make([]Detector, 0, len(detectors))
	for _, d := range detectors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Transport() < out[j].Transport() })
	return out
}

// DetectAll runs every registered detector. Detectors that are not
// supported on this platform or find nothing are skipped; other errors are
// joined and returned alongside whatever was found.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	return detectWith(ctx, opts, Detectors())
}

func detectWith(ctx context.Context, opts *Options, ds []Detector) ([]DeviceInfo, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var (
		found []DeviceInfo
		errs  []error
	)
	for _, d := range ds {
		if ctx.Err() != nil {
			errs = append(errs, ErrDetectionTimeout)
			break
		}
		devices, err := d.Detect(ctx, opts)
		switch {
		case errors.Is(err, ErrUnsupportedPlatform), errors.Is(err, ErrNoDevicesFound):
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
		}
		found = append(found, Filter(devices, opts)...)
	}
	if len(found) == 0 && len(errs) == 0 {
		return nil, ErrNoDevicesFound
	}
	return found, errors.Join(errs...)
}

// Filter drops devices on the blocklist or under an ignored path
func Filter(devices []DeviceInfo, opts *Options) []DeviceInfo {
	if opts == nil {
		return devices
	}
	out := devices[:0:0]
	for _, d := range devices {
		if d.VIDPID != "" && IsBlocked(d.VIDPID, opts.Blocklist) {
			continue
		}
		if IsPathIgnored(d.Path, opts.IgnorePaths) {
			continue
		}
		out = append(out, d)
	}
	return out
}

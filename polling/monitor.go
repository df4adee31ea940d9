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

// Package polling watches a device link by probing it on an interval.
// A Monitor reports each sample, the moment the link comes up, and the
// moment it is lost after probes have failed for a full loss timeout.
package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	busdev "github.com/spacebus/go-busdev"
)

// Config controls a Monitor
type Config struct {
	// Clock paces the loop. Nil uses timers that stop early on cancel.
	Clock        busdev.Clock
	PollInterval time.Duration
	LossTimeout  time.Duration
}

// DefaultConfig polls every 250ms and declares loss after 2s of failures
func DefaultConfig() *Config {
	return &Config{
		PollInterval: 250 * time.Millisecond,
		LossTimeout:  2 * time.Second,
	}
}

// Validate rejects non-positive intervals
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval %v", busdev.ErrInvalidParameter, c.PollInterval)
	}
	if c.LossTimeout < c.PollInterval {
		return fmt.Errorf("%w: loss timeout %v shorter than poll interval %v",
			busdev.ErrInvalidParameter, c.LossTimeout, c.PollInterval)
	}
	return nil
}

// Probe reads one sample from the device
type Probe[T any] func(ctx context.Context) (T, error)

// Monitor runs a Probe until its context ends
type Monitor[T any] struct {
	probe    Probe[T]
	config   *Config
	OnUp     func(sample T)
	OnSample func(sample T)
	OnLost   func(err error)
	status   LinkStatus
	mu       sync.Mutex
}

// NewMonitor creates a monitor. A nil config uses DefaultConfig.
func NewMonitor[T any](probe Probe[T], config *Config) (*Monitor[T], error) {
	if probe == nil {
		return nil, fmt.Errorf("%w: nil probe", busdev.ErrInvalidParameter)
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Monitor[T]{probe: probe, config: config}, nil
}

// Status returns a copy of the link status
func (m *Monitor[T]) Status() LinkStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Start polls until ctx is cancelled and returns ctx's error
func (m *Monitor[T]) Start(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.pollOnce(ctx)
		if err := m.wait(ctx); err != nil {
			return err
		}
	}
}

func (m *Monitor[T]) now() time.Time {
	if m.config.Clock != nil {
		return m.config.Clock.Now()
	}
	return time.Now()
}

func (m *Monitor[T]) wait(ctx context.Context) error {
	if m.config.Clock != nil {
		m.config.Clock.Sleep(m.config.PollInterval)
		return ctx.Err()
	}
	timer := time.NewTimer(m.config.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *Monitor[T]) pollOnce(ctx context.Context) {
	sample, err := m.probe(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		m.mu.Lock()
		lost := m.status.TransitionOnFailure(m.now(), err, m.config.LossTimeout)
		m.mu.Unlock()
		busdev.Debugf("monitor: probe failed: %v", err)
		if lost {
			busdev.Warnf("monitor: link lost: %v", err)
			if m.OnLost != nil {
				m.OnLost(err)
			}
		}
		return
	}

	m.mu.Lock()
	up := m.status.TransitionToUp(m.now())
	m.mu.Unlock()
	if up && m.OnUp != nil {
		m.OnUp(sample)
	}
	if m.OnSample != nil {
		m.OnSample(sample)
	}
}

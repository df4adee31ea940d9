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

package session

import (
	"context"
	"fmt"
	"math"
	"time"

	busdev "github.com/spacebus/go-busdev"
)

// PollConfig bounds a convergence loop
type PollConfig struct {
	// Tolerance is the largest residual counted as converged
	Tolerance float64
	// Deadline is measured on the poll clock from the first poll
	Deadline time.Duration
	// Interval is slept between polls
	Interval time.Duration
	// MaxPolls caps the number of polls; DefaultMaxPolls when <= 0
	MaxPolls int
}

// DefaultMaxPolls bounds a convergence loop whose clock does not move
const DefaultMaxPolls = 1000

// DefaultPollConfig returns the torque rod settling bounds: 0.0005 within
// one second
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Tolerance: 0.0005,
		Deadline:  time.Second,
		MaxPolls:  DefaultMaxPolls,
	}
}

// Result reports how a convergence loop ended
type Result struct {
	Residual  float64
	Polls     int
	Converged bool
}

// Poller performs one command-and-readback cycle and returns the distance
// between the commanded and reported values
type Poller func(ctx context.Context) (residual float64, err error)

// Converge calls poll until the residual is within tolerance, the deadline
// on clock passes, or MaxPolls is reached. Errors from individual polls do
// not end the loop. A loop that ends unconverged returns ErrTimeout.
func Converge(ctx context.Context, clock busdev.Clock, cfg PollConfig, poll Poller) (Result, error) {
	if clock == nil {
		clock = busdev.SystemClock()
	}
	if cfg.Tolerance < 0 || cfg.Deadline <= 0 {
		return Result{}, fmt.Errorf("%w: poll tolerance %v deadline %v",
			busdev.ErrInvalidParameter, cfg.Tolerance, cfg.Deadline)
	}

	maxPolls := cfg.MaxPolls
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}

	start := clock.Now()
	res := Result{Residual: math.Inf(1)}
	var lastErr error
	for res.Polls == 0 || clock.Now().Sub(start) < cfg.Deadline {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Polls++
		residual, err := poll(ctx)
		if err != nil {
			lastErr = err
			busdev.Debugf("poll %d failed: %v", res.Polls, err)
		} else {
			res.Residual = residual
			if residual <= cfg.Tolerance {
				res.Converged = true
				return res, nil
			}
		}
		if res.Polls >= maxPolls {
			break
		}
		if cfg.Interval > 0 {
			clock.Sleep(cfg.Interval)
		}
	}

	err := fmt.Errorf("residual %g after %d polls: %w", res.Residual, res.Polls,
		busdev.NewTimeoutError("converge", ""))
	if lastErr != nil {
		err = fmt.Errorf("%w (last poll error: %v)", err, lastErr)
	}
	return res, err
}

// Converge runs a convergence loop on the session's clock
func (s *Session) Converge(ctx context.Context, cfg PollConfig, poll Poller) (Result, error) {
	return Converge(ctx, s.clock, cfg, poll)
}

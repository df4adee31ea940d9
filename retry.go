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

package busdev

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig bounds how a failed exchange is repeated
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int
	// AttemptTimeout bounds each read within one attempt. Zero keeps the
	// port default.
	AttemptTimeout    time.Duration
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// Jitter spreads backoff by up to this fraction
	Jitter float64
	// RetryTimeout caps the time spent across all attempts. Zero disables it.
	RetryTimeout time.Duration
}

// DefaultRetryConfig returns three attempts with no delay between them,
// matching how the supported controllers re-send after a bad echo.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    0,
		MaxBackoff:        250 * time.Millisecond,
		BackoffMultiplier: 2,
		Jitter:            0,
	}
}

// Copy returns a copy of c, or the defaults when c is nil
func (c *RetryConfig) Copy() *RetryConfig {
	if c == nil {
		return DefaultRetryConfig()
	}
	cp := *c
	return &cp
}

// RetryWithConfig calls fn until it succeeds, returns a non-retryable
// error, or MaxAttempts calls have been made. The error from the last
// attempt is returned unchanged so callers can match its kind.
func RetryWithConfig(ctx context.Context, config *RetryConfig, fn func(attempt int) error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	if config.RetryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.RetryTimeout)
		defer cancel()
	}

	backoff := config.InitialBackoff
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}

		err = fn(attempt)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt == attempts {
			return err
		}

		Warnf("attempt %d/%d failed: %v", attempt, attempts, err)

		if backoff > 0 {
			if sleepErr := sleepContext(ctx, withJitter(backoff, config.Jitter)); sleepErr != nil {
				return err
			}
			backoff = nextBackoff(backoff, config)
		}
	}
	return err
}

func nextBackoff(current time.Duration, config *RetryConfig) time.Duration {
	mult := config.BackoffMultiplier
	if mult < 1 {
		mult = 1
	}
	next := time.Duration(float64(current) * mult)
	if config.MaxBackoff > 0 && next > config.MaxBackoff {
		next = config.MaxBackoff
	}
	return next
}

func withJitter(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return d
	}
	//nolint:gosec // jitter does not need a secure source
	delta := (rand.Float64()*2 - 1) * jitter * float64(d)
	return d + time.Duration(delta)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

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
	"fmt"
	"time"

	busdev "github.com/spacebus/go-busdev"
)

// Option is a functional option for configuring a Session
type Option func(*Session) error

// WithRetryConfig replaces the driver's retry policy
func WithRetryConfig(config *busdev.RetryConfig) Option {
	return func(s *Session) error {
		s.retry = config.Copy()
		return nil
	}
}

// WithMaxAttempts sets the total number of attempts per exchange
func WithMaxAttempts(maxAttempts int) Option {
	return func(s *Session) error {
		if maxAttempts < 1 {
			return fmt.Errorf("%w: max attempts %d", busdev.ErrInvalidParameter, maxAttempts)
		}
		s.retry.MaxAttempts = maxAttempts
		return nil
	}
}

// WithRetryBackoff sets the initial backoff between attempts
func WithRetryBackoff(initialBackoff time.Duration) Option {
	return func(s *Session) error {
		s.retry.InitialBackoff = initialBackoff
		return nil
	}
}

// WithTimeout sets the port's default read timeout once connected
func WithTimeout(timeout time.Duration) Option {
	return func(s *Session) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: timeout %v", busdev.ErrInvalidParameter, timeout)
		}
		s.timeout = timeout
		return nil
	}
}

// WithBaudRate overrides the driver's line speed on Connect
func WithBaudRate(baud int) Option {
	return func(s *Session) error {
		if baud <= 0 {
			return fmt.Errorf("%w: baud rate %d", busdev.ErrInvalidParameter, baud)
		}
		s.baud = baud
		return nil
	}
}

// WithClock sets the time source used by convergence polling
func WithClock(clock busdev.Clock) Option {
	return func(s *Session) error {
		if clock == nil {
			return fmt.Errorf("%w: nil clock", busdev.ErrInvalidParameter)
		}
		s.clock = clock
		return nil
	}
}

// WithOpener replaces the port opener used by Connect
func WithOpener(opener Opener) Option {
	return func(s *Session) error {
		if opener == nil {
			return fmt.Errorf("%w: nil opener", busdev.ErrInvalidParameter)
		}
		s.opener = opener
		return nil
	}
}

// WithPort attaches an open port at construction, once every other
// option has been applied
func WithPort(port busdev.Port) Option {
	return func(s *Session) error {
		if port == nil {
			return fmt.Errorf("%w: nil port", busdev.ErrInvalidParameter)
		}
		if s.preset != nil {
			return fmt.Errorf("%s: %w", s.driver.name, busdev.ErrAlreadyConnected)
		}
		s.preset = port
		return nil
	}
}

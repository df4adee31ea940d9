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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	busdev "github.com/spacebus/go-busdev"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestConvergeAfterThreePolls(t *testing.T) {
	t.Parallel()
	clock := busdev.NewManualClock(epoch)
	residuals := []float64{0.01, 0.002, 0.0001}
	polls := 0

	res, err := Converge(context.Background(), clock, DefaultPollConfig(), func(context.Context) (float64, error) {
		r := residuals[polls]
		polls++
		clock.Advance(100 * time.Millisecond)
		return r, nil
	})
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, 3, res.Polls)
	assert.InDelta(t, 0.0001, res.Residual, 1e-12)
}

func TestConvergeTimesOutAtDeadline(t *testing.T) {
	t.Parallel()
	clock := busdev.NewManualClock(epoch)
	cfg := DefaultPollConfig()
	cfg.Interval = 100 * time.Millisecond

	res, err := Converge(context.Background(), clock, cfg, func(context.Context) (float64, error) {
		return 0.01, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, busdev.ErrTimeout)
	assert.False(t, res.Converged)
	assert.Equal(t, 10, res.Polls)
	assert.Equal(t, time.Second, clock.Now().Sub(epoch))
}

func TestConvergeSurvivesPollErrors(t *testing.T) {
	t.Parallel()
	clock := busdev.NewManualClock(epoch)
	polls := 0

	res, err := Converge(context.Background(), clock, DefaultPollConfig(), func(context.Context) (float64, error) {
		polls++
		clock.Advance(50 * time.Millisecond)
		if polls == 1 {
			return 0, busdev.NewNackError("set", "/dev/mock0", "")
		}
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Polls)
}

func TestConvergeMaxPolls(t *testing.T) {
	t.Parallel()
	cfg := PollConfig{Tolerance: 0.0005, Deadline: time.Hour, MaxPolls: 4}
	boom := errors.New("boom")

	res, err := Converge(context.Background(), busdev.NewManualClock(epoch), cfg, func(context.Context) (float64, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, busdev.ErrTimeout)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 4, res.Polls)
}

func TestConvergeRejectsBadConfig(t *testing.T) {
	t.Parallel()
	_, err := Converge(context.Background(), nil, PollConfig{}, func(context.Context) (float64, error) {
		return 0, nil
	})
	assert.ErrorIs(t, err, busdev.ErrInvalidParameter)
}

func TestConvergeHonoursContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	clock := busdev.NewManualClock(epoch)

	res, err := Converge(ctx, clock, DefaultPollConfig(), func(context.Context) (float64, error) {
		cancel()
		clock.Advance(time.Millisecond)
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Polls)
}

func TestSessionConvergeUsesInjectedClock(t *testing.T) {
	t.Parallel()
	clock := busdev.NewManualClock(epoch)
	s, err := New(testDriver(t, false), WithClock(clock))
	require.NoError(t, err)
	assert.Same(t, clock, s.Clock())

	cfg := DefaultPollConfig()
	cfg.Interval = 250 * time.Millisecond
	res, err := s.Converge(context.Background(), cfg, func(context.Context) (float64, error) {
		return 1, nil
	})
	assert.ErrorIs(t, err, busdev.ErrTimeout)
	assert.Equal(t, 4, res.Polls)
}

func TestConvergeStopsWhenClockStandsStill(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		maxPolls  int
		wantPolls int
	}{
		{name: "default config", maxPolls: DefaultMaxPolls, wantPolls: DefaultMaxPolls},
		{name: "unset cap", maxPolls: 0, wantPolls: DefaultMaxPolls},
		{name: "explicit cap", maxPolls: 7, wantPolls: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			clock := busdev.NewManualClock(epoch)
			cfg := DefaultPollConfig()
			cfg.MaxPolls = tt.maxPolls

			res, err := Converge(context.Background(), clock, cfg, func(context.Context) (float64, error) {
				return 0.01, nil
			})
			assert.ErrorIs(t, err, busdev.ErrTimeout)
			assert.False(t, res.Converged)
			assert.Equal(t, tt.wantPolls, res.Polls)
			assert.Equal(t, epoch, clock.Now())
		})
	}
}

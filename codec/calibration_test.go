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

package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	busdev "github.com/spacebus/go-busdev"
)

const torqueRodLimit = 0.0999

func TestPolynomialHorner(t *testing.T) {
	t.Parallel()
	p := Polynomial{1, 2, 3} // 1 + 2x + 3x^2
	assert.InDelta(t, 6.0, p.Eval(1), 1e-12)
	assert.InDelta(t, 17.0, p.Eval(2), 1e-12)
	assert.InDelta(t, 8.0, p.Derivative(1), 1e-12)
	assert.InDelta(t, 2.0, p.Derivative(0), 1e-12)
}

func TestCurveEvalClampsAndZero(t *testing.T) {
	t.Parallel()
	c := IdentityCurve(torqueRodLimit)
	assert.Zero(t, c.Eval(0))
	assert.InDelta(t, 0.05, c.Eval(0.05), 1e-12)
	assert.InDelta(t, torqueRodLimit, c.Eval(0.2), 1e-12)
	assert.InDelta(t, -torqueRodLimit, c.Eval(-0.2), 1e-12)
}

func TestCurveSelectsDomainBySign(t *testing.T) {
	t.Parallel()
	c := Curve{
		Negative: Polynomial{0, 2},
		Positive: Polynomial{0, 1},
		Min:      -10,
		Max:      10,
	}
	assert.InDelta(t, 1.0, c.Eval(1), 1e-12)
	assert.InDelta(t, -2.0, c.Eval(-1), 1e-12)
}

func TestIdentityCurveRoundTrip(t *testing.T) {
	t.Parallel()
	c := IdentityCurve(torqueRodLimit)
	for i := -200; i <= 200; i++ {
		m := float64(i) * 0.001
		x, err := c.Invert(c.Eval(m))
		require.NoError(t, err, "m=%v", m)
		want := math.Max(-torqueRodLimit, math.Min(torqueRodLimit, m))
		assert.InDelta(t, want, x, 1e-4, "m=%v", m)
	}
}

func TestCurveInvertNonlinear(t *testing.T) {
	t.Parallel()
	cubic := Polynomial{0, 1, 0, 0.5}
	c := Curve{Negative: cubic, Positive: cubic, Min: -10, Max: 10}

	for _, y := range []float64{-3, -1.5, -0.2, 0.2, 1.5, 3} {
		x, err := c.Invert(y)
		require.NoError(t, err, "y=%v", y)
		assert.InDelta(t, y, c.Eval(x), 1e-4, "y=%v", y)
	}
}

func TestCurveInvertBelowTolerance(t *testing.T) {
	t.Parallel()
	x, err := IdentityCurve(1).Invert(0.00005)
	require.NoError(t, err)
	assert.Zero(t, x)
}

func TestCurveInvertZeroSlope(t *testing.T) {
	t.Parallel()
	square := Polynomial{0, 0, 1}
	c := Curve{Negative: square, Positive: square, Min: -1, Max: 1}
	_, err := c.Invert(0.5)
	assert.ErrorIs(t, err, busdev.ErrNotConverged)
}

func TestCurveInvertIterationCap(t *testing.T) {
	t.Parallel()
	// Output is clamped below the target, so the residual never closes
	c := Curve{
		Negative:      Polynomial{0, 1},
		Positive:      Polynomial{0, 1, 0, 0, 0, 0, -1},
		Min:           -1,
		Max:           1,
		MaxIterations: 5,
	}
	_, err := c.Invert(0.99)
	assert.ErrorIs(t, err, busdev.ErrNotConverged)
}

func TestCurveValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, IdentityCurve(1).Validate())
	assert.ErrorIs(t, Curve{Min: 1, Max: -1}.Validate(), busdev.ErrInvalidParameter)
}

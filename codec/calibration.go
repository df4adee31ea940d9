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
	"fmt"
	"math"

	busdev "github.com/spacebus/go-busdev"
)

// Inversion limits used when a Curve leaves them unset.
const (
	DefaultTolerance     = 0.0001
	DefaultMaxIterations = 100
)

// Polynomial holds coefficients c0..c6 of a degree-6 polynomial
type Polynomial [7]float64

// Eval evaluates the polynomial at x in Horner form
func (p Polynomial) Eval(x float64) float64 {
	y := p[6]
	for i := 5; i >= 0; i-- {
		y = p[i] + x*y
	}
	return y
}

// Derivative evaluates the first derivative at x in Horner form
func (p Polynomial) Derivative(x float64) float64 {
	y := 6 * p[6]
	for i := 5; i >= 1; i-- {
		y = float64(i)*p[i] + x*y
	}
	return y
}

// Curve is a calibration split into a negative and a positive domain,
// each with its own coefficients, and a clamp on the output. Curves are
// read-only and may be shared between sessions.
type Curve struct {
	Negative Polynomial
	Positive Polynomial
	Min      float64
	Max      float64
	// Tolerance and MaxIterations bound Invert; zero means the defaults
	Tolerance     float64
	MaxIterations int
}

// IdentityCurve returns y = x clamped to ±limit
func IdentityCurve(limit float64) Curve {
	id := Polynomial{0, 1}
	return Curve{Negative: id, Positive: id, Min: -limit, Max: limit}
}

// Validate checks the clamp range
func (c Curve) Validate() error {
	if !(c.Min < c.Max) {
		return fmt.Errorf("%w: curve clamp [%v, %v]", busdev.ErrInvalidParameter, c.Min, c.Max)
	}
	return nil
}

func (c Curve) clamp(y float64) float64 {
	return math.Max(c.Min, math.Min(c.Max, y))
}

func (c Curve) domain(sign float64) Polynomial {
	if sign < 0 {
		return c.Negative
	}
	return c.Positive
}

// Eval maps an input (e.g. magnetic moment) to an output (e.g. current).
// Zero maps to zero; the result is clamped to [Min, Max].
func (c Curve) Eval(x float64) float64 {
	if x == 0 {
		return c.clamp(0)
	}
	return c.clamp(c.domain(x).Eval(x))
}

// Invert solves Eval(x) = y for x with damped Newton steps, starting at
// zero. The loop is bounded by MaxIterations. When it stops without the
// residual falling under Tolerance the best estimate is returned together
// with ErrNotConverged.
func (c Curve) Invert(y float64) (float64, error) {
	tol := c.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	limit := c.MaxIterations
	if limit <= 0 {
		limit = DefaultMaxIterations
	}

	if math.Abs(y) < tol {
		return 0, nil
	}
	y = c.clamp(y)
	poly := c.domain(y)

	var x, current float64
	for i := 0; i < limit; i++ {
		d := poly.Derivative(x)
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return x, fmt.Errorf("%w: zero slope at %v after %d iterations", busdev.ErrNotConverged, x, i)
		}
		x += (y - current) / d
		current = c.Eval(x)
		if math.Abs(current-y) <= tol {
			return x, nil
		}
	}
	return x, fmt.Errorf("%w: residual %v after %d iterations", busdev.ErrNotConverged, math.Abs(current-y), limit)
}

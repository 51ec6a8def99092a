// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package merit implements the ℓ1 exact merit function, its linear and
// quadratic models, and the two line-search variants of spec.md §4.6.
package merit

import (
	"math"

	"github.com/sleqp-go/sleqp/sparse"
	"github.com/sleqp-go/sleqp/wset"
)

// Env holds the penalty parameter v (spec.md §3's MeritEnv). v is
// non-decreasing within a phase; package phase is the only writer.
type Env struct {
	V float64
}

// NewEnv allocates a merit environment with initial penalty v0.
func NewEnv(v0 float64) *Env { return &Env{V: v0} }

// Violation returns max(lo-val,0)+max(val-hi,0), the one-sided bound/row
// violation spec.md's ℓ1 merit sums over; exported so callers outside this
// package (the outer loop's feasibility-residual check) share the exact
// same notion of violation the merit value and models are built from.
func Violation(lo, hi, val float64) float64 {
	if val < lo {
		return lo - val
	}
	if val > hi {
		return val - hi
	}
	return 0
}

// sumViolations returns ‖max(lo-val,0)‖₁+‖max(val-hi,0)‖₁ over all rows.
func sumViolations(lo, hi []float64, val sparse.Vector) float64 {
	var s float64
	for i := range val {
		s += Violation(lo[i], hi[i], val[i])
	}
	return s
}

// MaxViolation returns the largest single-row violation (ℓ∞ over rows),
// used by the outer loop's feasibility-residual check where the ℓ1 merit
// value itself (which mixes in the penalty-scaled sum) is the wrong
// quantity to compare against a feasibility tolerance.
func MaxViolation(lo, hi []float64, val sparse.Vector) float64 {
	var m float64
	for i := range val {
		if v := Violation(lo[i], hi[i], val[i]); v > m {
			m = v
		}
	}
	return m
}

// Value computes φ(x;v) = f(x) + v·(total ℓ1 constraint and bound
// violation) — spec.md §4.6.
func (o *Env) Value(f float64, c sparse.Vector, cLo, cHi []float64, x sparse.Vector, xLo, xHi []float64) float64 {
	phi := f
	if c != nil {
		phi += o.V * sumViolations(cLo, cHi, c)
	}
	phi += o.V * sumViolations(xLo, xHi, x)
	return phi
}

// LinearModel computes φ_lin(d) = φ(x;v) + ∇f·d + v·(violation of the
// linearized constraints c(x)+J·d against [cLo,cHi]), from the
// precomputed Jd already carried by a Direction.
func (o *Env) LinearModel(phiX, gTd float64, c sparse.Vector, jd sparse.Vector, cLo, cHi []float64) float64 {
	phi := phiX + gTd
	if c == nil {
		return phi
	}
	lin := sparse.NewVector(len(c))
	for i := range c {
		lin[i] = c[i] + jd[i]
	}
	phi += o.V * sumViolations(cLo, cHi, lin)
	return phi
}

// QuadraticModel computes φ_quad(d) = φ_lin(d) + ½dᵀHd from the
// precomputed Hd carried by a Direction.
func (o *Env) QuadraticModel(linModel float64, dir *wset.Direction) float64 {
	return linModel + 0.5*dir.D.Dot(dir.Hd)
}

// TrialBuilder constructs the trial Direction at a given line-search
// parameter alpha ∈ [0,1] along the segment d_cauchy + alpha*(d_newton -
// d_cauchy), and returns its quadratic model merit value; callers close
// over the current iterate's c(x), J, H so this package stays
// independent of the Function interface.
type TrialBuilder func(alpha float64) (dir *wset.Direction, phiQuad float64)

// ArmijoLineSearch implements spec.md §4.6's approximate/backtracking
// variant: start at alpha=1, enforce sufficient decrease against the
// directional derivative dirDeriv = ⟨∇φ_quad(d_cauchy), d_newton-d_cauchy⟩,
// backtrack by tau, and fall back to alpha=0 (the Cauchy step) if alpha
// drops below cutoff.
func ArmijoLineSearch(build TrialBuilder, phiQuadCauchy, dirDeriv, eta, tau, cutoff float64) (alpha float64, dir *wset.Direction, phiQuad float64) {
	if eta <= 0 || eta >= 0.5 {
		eta = 1e-4
	}
	if tau <= 0 || tau >= 1 {
		tau = 0.5
	}
	alpha = 1
	for {
		dir, phiQuad = build(alpha)
		if phiQuad <= phiQuadCauchy+eta*alpha*dirDeriv {
			return alpha, dir, phiQuad
		}
		alpha *= tau
		if alpha < cutoff {
			dir, phiQuad = build(0)
			return 0, dir, phiQuad
		}
	}
}

// ExactLineSearch implements spec.md §4.6's exact variant: the quadratic
// model along the segment has a closed-form minimizer -b/(2a) (a, b the
// quadratic and linear coefficients of phi_quad(alpha) as a function of
// alpha), clamped to [0,1].
func ExactLineSearch(build TrialBuilder, a, b float64) (alpha float64, dir *wset.Direction, phiQuad float64) {
	if a <= 0 {
		// no strict curvature (or concave): the minimum over [0,1] of a
		// linear/concave function is at an endpoint.
		d0, p0 := build(0)
		d1, p1 := build(1)
		if p0 <= p1 {
			return 0, d0, p0
		}
		return 1, d1, p1
	}
	alpha = -b / (2 * a)
	alpha = math.Max(0, math.Min(1, alpha))
	dir, phiQuad = build(alpha)
	return alpha, dir, phiQuad
}

// MaxStepLength caps alpha so that x + d_cauchy + alpha*(d_newton -
// d_cauchy) stays within [xLo,xHi] for every coordinate (spec.md §4.6's
// "all Directions produced respect the box" clause).
func MaxStepLength(x sparse.Vector, xLo, xHi []float64, dCauchy, dNewton *wset.Direction) float64 {
	maxAlpha := 1.0
	for i := range x {
		delta := dNewton.D[i] - dCauchy.D[i]
		if delta == 0 {
			continue
		}
		// x[i] + dCauchy.D[i] + alpha*delta in [xLo[i], xHi[i]]
		base := x[i] + dCauchy.D[i]
		var bound float64
		if delta > 0 {
			bound = (xHi[i] - base) / delta
		} else {
			bound = (xLo[i] - base) / delta
		}
		if bound < maxAlpha {
			maxAlpha = bound
		}
	}
	if maxAlpha < 0 {
		maxAlpha = 0
	}
	return maxAlpha
}

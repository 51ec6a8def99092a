// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package eqp implements the trust-region EQP (Newton) step of spec.md
// §4.5: the equality-constrained quadratic subproblem whose equalities
// are the active working set, solved in the null-space of the augmented
// Jacobian by a Steihaug-projected CG (the default) or an LSQR variant
// for Function implementations declared Least-Squares.
package eqp

import (
	"math"

	"github.com/sleqp-go/sleqp/sparse"
	"github.com/sleqp-go/sleqp/wset"
)

// Projector is the subset of augjac.AugJac the EQP solvers need: the
// null-space projection every CG/LSQR residual is run through. Declared
// locally so this package need not import augjac's concrete type.
type Projector interface {
	Project(r sparse.Vector) (d sparse.Vector, mu sparse.Vector, err error)
}

// HessApply computes out = H*d for the current Lagrangian Hessian
// (exact or quasi-Newton), matching wset.Direction.Reset's callback shape.
type HessApply func(d, out sparse.Vector)

// Result is the outcome of one EQP solve.
type Result struct {
	Dir         *wset.Direction
	Iterations  int
	HitBoundary bool
	RayleighMin float64 // min over CG directions of pᵀHp/pᵀp
	RayleighMax float64
}

// Solver is the EQPSolver contract of spec.md §4.5: compute_direction.
type Solver interface {
	Solve(proj Projector, g sparse.Vector, hess HessApply, d0 sparse.Vector, deltaRed float64) (*Result, error)
}

func dot(a, b sparse.Vector) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(a sparse.Vector) float64 { return math.Sqrt(dot(a, a)) }

// boundaryTau returns the positive root tau solving ‖u+tau*p‖ = delta, the
// root that continues forward along p (the right choice whenever p is the
// direction already being advanced, as in a positive-curvature trust-region
// crossing or an LSQR boundary crossing).
func boundaryTau(u, p sparse.Vector, delta float64) float64 {
	_, tauPos := boundaryTauRoots(u, p, delta)
	return tauPos
}

// boundaryTauNegCurv returns the root tau solving ‖u+tau*p‖ = delta that
// gives the lower model value along p, per spec.md §4.5's negative-
// curvature rule: with rp = rᵀp (the model's directional derivative at u)
// and pHp <= 0 (the curvature that triggered this branch), the quadratic
// model m(tau) = tau*rp + ½*tau²*pHp is evaluated at both roots and the
// smaller is kept, rather than always taking the positive one.
func boundaryTauNegCurv(u, p sparse.Vector, delta, rp, pHp float64) float64 {
	tauNeg, tauPos := boundaryTauRoots(u, p, delta)
	model := func(tau float64) float64 { return tau*rp + 0.5*tau*tau*pHp }
	if model(tauNeg) < model(tauPos) {
		return tauNeg
	}
	return tauPos
}

// boundaryTauRoots solves pp*tau^2 + 2*up*tau + (uu-delta^2) = 0 for the
// two roots of ‖u+tau*p‖ = delta, returned as (smaller, larger).
func boundaryTauRoots(u, p sparse.Vector, delta float64) (tauNeg, tauPos float64) {
	pp := dot(p, p)
	up := dot(u, p)
	uu := dot(u, u)
	a, b, c := pp, 2*up, uu-delta*delta
	disc := b*b - 4*a*c
	if disc < 0 {
		disc = 0
	}
	sq := math.Sqrt(disc)
	return (-b - sq) / (2 * a), (-b + sq) / (2 * a)
}

// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eqp

import (
	"math"

	"github.com/sleqp-go/sleqp/sparse"
	"github.com/sleqp-go/sleqp/wset"
)

// SteihaugCG is the default EQP solver of spec.md §4.5: a truncated
// projected-CG iteration for
//
//	min_d  gᵀd + ½ dᵀHd,   ‖d − d0‖ ≤ Δ_red
//
// in the null-space of the augmented Jacobian, with the usual Steihaug
// rules for negative curvature and trust-region boundary crossing.
type SteihaugCG struct {
	n, m    int
	maxIter int
	tol     float64
}

// NewSteihaugCG allocates a solver sized for n variables and m general
// constraints (m only sizes the returned Direction's Jd slot). maxIter<=0
// defaults to n (a full CG basis); tol<=0 defaults to 1e-8.
func NewSteihaugCG(n, m, maxIter int, tol float64) *SteihaugCG {
	if maxIter <= 0 {
		maxIter = n
	}
	if tol <= 0 {
		tol = 1e-8
	}
	return &SteihaugCG{n: n, m: m, maxIter: maxIter, tol: tol}
}

// Solve runs the Steihaug-projected CG iteration starting from the
// working-step seed d0, inside the reduced trust radius deltaRed, for
// the quadratic model gᵀd + ½dᵀHd with d constrained to Ad = A d0 (the
// null-space of the augmented Jacobian).
func (o *SteihaugCG) Solve(proj Projector, g sparse.Vector, hess HessApply, d0 sparse.Vector, deltaRed float64) (*Result, error) {
	n := o.n
	u := sparse.NewVector(n) // u = d - d0

	hd0 := sparse.NewVector(n)
	hess(d0, hd0)
	r := sparse.NewVector(n)
	for i := 0; i < n; i++ {
		r[i] = g[i] + hd0[i]
	}
	z, _, err := proj.Project(r)
	if err != nil {
		return nil, err
	}
	p := sparse.NewVector(n)
	p.ScaleInto(-1, z)

	rz0 := dot(r, z)
	rz := rz0

	res := &Result{RayleighMin: math.Inf(1), RayleighMax: math.Inf(-1)}

	for it := 0; it < o.maxIter; it++ {
		res.Iterations = it + 1
		Hp := sparse.NewVector(n)
		hess(p, Hp)
		pHp := dot(p, Hp)
		pp := dot(p, p)
		if pp > 0 {
			rq := pHp / pp
			if rq < res.RayleighMin {
				res.RayleighMin = rq
			}
			if rq > res.RayleighMax {
				res.RayleighMax = rq
			}
		}

		if pHp <= 0 {
			tau := boundaryTauNegCurv(u, p, deltaRed, dot(r, p), pHp)
			u.Axpy(tau, p)
			res.HitBoundary = true
			break
		}

		alpha := rz / pHp
		uNext := sparse.NewVectorFrom(u)
		uNext.Axpy(alpha, p)
		if norm(uNext) >= deltaRed {
			tau := boundaryTau(u, p, deltaRed)
			u.Axpy(tau, p)
			res.HitBoundary = true
			break
		}
		u = uNext

		rNext := sparse.NewVectorFrom(r)
		rNext.Axpy(alpha, Hp)
		zNext, _, err := proj.Project(rNext)
		if err != nil {
			return nil, err
		}
		rzNext := dot(rNext, zNext)
		if math.Abs(rzNext) < o.tol*math.Abs(rz0) || rz0 == 0 {
			r, z = rNext, zNext
			break
		}
		beta := rzNext / rz
		pNext := sparse.NewVector(n)
		pNext.ScaleInto(beta, p)
		for i := 0; i < n; i++ {
			pNext[i] -= zNext[i]
		}
		r, z, p, rz = rNext, zNext, pNext, rzNext
	}

	// GTd/Jd/Hd are left at zero here: the caller owns the actual
	// objective gradient, Jacobian-apply, and Hessian-apply closures for
	// the current iterate and is expected to call Dir.Reset with them.
	d := wset.NewDirection(n, o.m)
	d.D.Axpy(1, d0)
	d.D.Axpy(1, u)
	res.Dir = d
	return res, nil
}

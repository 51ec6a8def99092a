// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eqp

import (
	"math"

	"github.com/sleqp-go/sleqp/sparse"
	"github.com/sleqp-go/sleqp/wset"
)

// LSQForward computes out = J_r * d (the LSQ residual Jacobian applied
// to a primal direction); LSQAdjoint computes out = J_rᵀ * w.
type LSQForward func(d, out sparse.Vector)
type LSQAdjoint func(w, out sparse.Vector)

// LSQR is the EQP variant of spec.md §4.5 used when the Function is
// declared Least-Squares: a Golub-Kahan bidiagonalization with a Givens
// sweep (Paige-Saunders LSQR), each search direction projected into the
// working-set null space the same way the Steihaug-CG residual is. Per
// SPEC_FULL.md §1 this wrapper is a reference implementation, not
// exhaustively tuned against the Steihaug variant's boundary handling.
type LSQR struct {
	n, m, p int // variables, general constraints (Jd sizing), residual dimension
	maxIter int
	tol     float64
}

// NewLSQR allocates an LSQR solver for n variables, m general
// constraints, and a residual vector of dimension p.
func NewLSQR(n, m, p, maxIter int, tol float64) *LSQR {
	if maxIter <= 0 {
		maxIter = n
	}
	if tol <= 0 {
		tol = 1e-8
	}
	return &LSQR{n: n, m: m, p: p, maxIter: maxIter, tol: tol}
}

// Solve runs the bidiagonalization loop for min ‖J_r(d0+u) + residual‖,
// u = d - d0, truncating at convergence or at the reduced trust radius.
func (o *LSQR) Solve(proj Projector, residual sparse.Vector, fwd LSQForward, adj LSQAdjoint, d0 sparse.Vector, deltaRed float64) (*Result, error) {
	n, p := o.n, o.p

	jd0 := sparse.NewVector(p)
	fwd(d0, jd0)
	b := sparse.NewVector(p)
	for i := 0; i < p; i++ {
		b[i] = -(jd0[i] + residual[i])
	}

	beta := norm(b)
	res := &Result{RayleighMin: math.Inf(1), RayleighMax: math.Inf(-1)}
	if beta == 0 {
		d := wset.NewDirection(n, o.m)
		d.D.Axpy(1, d0)
		res.Dir = d
		return res, nil
	}

	uVec := sparse.NewVector(p)
	uVec.ScaleInto(1/beta, b)

	vRaw := sparse.NewVector(n)
	adj(uVec, vRaw)
	vProj, _, err := proj.Project(vRaw)
	if err != nil {
		return nil, err
	}
	alpha := norm(vProj)
	v := sparse.NewVector(n)
	if alpha > 0 {
		v.ScaleInto(1/alpha, vProj)
	}

	w := sparse.NewVectorFrom(v)
	x := sparse.NewVector(n) // accumulates u in the null-space basis
	phibar := beta
	rhobar := alpha

	for it := 0; it < o.maxIter && alpha > 0; it++ {
		res.Iterations = it + 1

		Av := sparse.NewVector(p)
		fwd(v, Av)
		uNext := sparse.NewVector(p)
		for i := 0; i < p; i++ {
			uNext[i] = Av[i] - alpha*uVec[i]
		}
		betaNext := norm(uNext)
		if betaNext > 0 {
			uNext.ScaleInto(1/betaNext, uNext)
		}

		vAdjRaw := sparse.NewVector(n)
		adj(uNext, vAdjRaw)
		vAdjProj, _, err := proj.Project(vAdjRaw)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			vAdjProj[i] -= betaNext * v[i]
		}
		alphaNext := norm(vAdjProj)
		vNext := sparse.NewVector(n)
		if alphaNext > 0 {
			vNext.ScaleInto(1/alphaNext, vAdjProj)
		}

		rho := math.Hypot(rhobar, betaNext)
		if rho == 0 {
			break
		}
		c := rhobar / rho
		s := betaNext / rho
		theta := s * alphaNext
		rhobar = -c * alphaNext
		phi := c * phibar
		phibar = s * phibar

		xNext := sparse.NewVectorFrom(x)
		xNext.Axpy(phi/rho, w)
		if norm(xNext) >= deltaRed {
			tau := boundaryTau(x, w, deltaRed)
			x.Axpy(tau, w)
			res.HitBoundary = true
			break
		}
		x = xNext
		for i := 0; i < n; i++ {
			w[i] = vNext[i] - (theta/rho)*w[i]
		}

		if math.Abs(phibar) < o.tol*beta {
			break
		}
		uVec, v, alpha = uNext, vNext, alphaNext
	}

	d := wset.NewDirection(n, o.m)
	d.D.Axpy(1, d0)
	d.D.Axpy(1, x)
	res.Dir = d
	return res, nil
}

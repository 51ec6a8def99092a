// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package augjac implements the augmented-Jacobian KKT system (C2 of
// spec.md): factor-once-per-working-set-change, solve-many, used both for
// the minimum-norm working step and as the null-space projector the EQP
// Steihaug-CG iteration runs against.
//
// The symmetric indefinite KKT matrix
//
//	[ I   Aᵀ ]
//	[ A    0 ]
//
// is the one external collaborator spec.md names but scopes out (a sparse
// symmetric-indefinite factorization). This package backs it with a dense
// gonum/mat LU factorization instead; see DESIGN.md for the swap-point
// rationale.
package augjac

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/sleqp-go/sleqp/sparse"
	"github.com/sleqp-go/sleqp/wset"
)

// ErrSingular is returned by SolveMinNorm/Project when the active-row
// matrix A is singular beyond PivotTol (spec.md §4.1: "Fails with
// singular_factorization").
var ErrSingular = fmt.Errorf("augjac: singular_factorization")

// AugJac is the factored augmented Jacobian for one working set.
type AugJac struct {
	n, m     int // variables, general constraints
	size     int // working-set size at last SetIterate
	ws       *wset.WorkingSet
	k        *mat.Dense // the (n+size)x(n+size) KKT matrix
	lu       mat.LU
	ok       bool // true once Factorize succeeded
	pivotTol float64
}

// New allocates an AugJac for n variables and m general constraints.
func New(n, m int, pivotTol float64) *AugJac {
	if pivotTol <= 0 {
		pivotTol = 1e-10
	}
	return &AugJac{n: n, m: m, pivotTol: pivotTol}
}

// SetIterate rebuilds A from the constraint Jacobian J (m x n, CSC) and
// the working set, and factors the KKT matrix. Must be called whenever
// the working set changes before SolveMinNorm/Project/ConditionEstimate
// are trusted.
func (o *AugJac) SetIterate(J *sparse.CCMatrix, ws *wset.WorkingSet) error {
	o.ws = ws
	o.size = ws.Size()
	dim := o.n + o.size
	o.k = mat.NewDense(dim, dim, nil)

	for i := 0; i < o.n; i++ {
		o.k.Set(i, i, 1)
	}

	for varIdx := 0; varIdx < ws.NVars; varIdx++ {
		p := ws.VarPos(varIdx)
		if p < 0 {
			continue
		}
		row := o.n + p
		o.k.Set(row, varIdx, 1)
		o.k.Set(varIdx, row, 1)
	}

	if J != nil {
		for conIdx := 0; conIdx < ws.NCons; conIdx++ {
			p := ws.ConPos(conIdx)
			if p < 0 {
				continue
			}
			row := o.n + p
			J.Row(conIdx, func(col int, v float64) {
				o.k.Set(row, col, v)
				o.k.Set(col, row, v)
			})
		}
	}

	o.lu.Factorize(o.k)
	cond := o.lu.Cond()
	o.ok = cond < 1/o.pivotTol
	if !o.ok {
		return ErrSingular
	}
	return nil
}

// SolveMinNorm returns argmin ‖d‖₂ s.t. A d = bw, the minimal-norm
// solution of the active-row system (spec.md §4.1).
func (o *AugJac) SolveMinNorm(bw sparse.Vector) (sparse.Vector, error) {
	if !o.ok {
		return nil, ErrSingular
	}
	dim := o.n + o.size
	rhs := mat.NewVecDense(dim, nil)
	for p := 0; p < o.size; p++ {
		rhs.SetVec(o.n+p, bw[p])
	}
	sol := mat.NewVecDense(dim, nil)
	if err := o.lu.SolveVecTo(sol, false, rhs); err != nil {
		return nil, ErrSingular
	}
	d := sparse.NewVector(o.n)
	for i := 0; i < o.n; i++ {
		d[i] = sol.AtVec(i)
	}
	return d, nil
}

// Project splits r into (d, μ) = (N r, μ) where N is the null-space
// projector of A, so that r = d + Aᵀμ (spec.md §4.1). This is the
// operation the Steihaug-CG loop in package eqp runs every residual
// through.
func (o *AugJac) Project(r sparse.Vector) (d sparse.Vector, mu sparse.Vector, err error) {
	if !o.ok {
		return nil, nil, ErrSingular
	}
	dim := o.n + o.size
	rhs := mat.NewVecDense(dim, nil)
	for i := 0; i < o.n; i++ {
		rhs.SetVec(i, r[i])
	}
	sol := mat.NewVecDense(dim, nil)
	if serr := o.lu.SolveVecTo(sol, false, rhs); serr != nil {
		return nil, nil, ErrSingular
	}
	d = sparse.NewVector(o.n)
	for i := 0; i < o.n; i++ {
		d[i] = sol.AtVec(i)
	}
	mu = sparse.NewVector(o.size)
	for p := 0; p < o.size; p++ {
		mu[p] = sol.AtVec(o.n + p)
	}
	return d, mu, nil
}

// ConditionEstimate reports (true, κ) when the KKT dimension is small
// enough to estimate cheaply (<200), else (false, 0); spec.md §4.1 marks
// this optional. Skipping it above the threshold never changes solver
// correctness, only observability (see SPEC_FULL.md §6.1).
func (o *AugJac) ConditionEstimate() (exact bool, kappa float64) {
	if !o.ok || o.n+o.size >= 200 {
		return false, 0
	}
	return true, o.lu.Cond()
}

// Size returns the working-set size the factorization was built for.
func (o *AugJac) Size() int { return o.size }

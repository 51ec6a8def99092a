// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wset

import (
	"math"

	"github.com/sleqp-go/sleqp/sparse"
)

// AugJacSolver is the subset of augjac.AugJac the working step needs;
// declared locally (rather than importing package augjac) so wset, the
// lowest-level shared package, does not depend upward on it — augjac
// already imports wset for the WorkingSet/Direction types.
type AugJacSolver interface {
	SolveMinNorm(bw sparse.Vector) (sparse.Vector, error)
}

// StepInput is the read-only snapshot a WorkingStep needs to build its
// right-hand side (spec.md §4.4).
type StepInput struct {
	X        sparse.Vector
	C        sparse.Vector // c(x), length m (nil when m=0)
	XLo, XHi []float64
	CLo, CHi []float64
	WS       *WorkingSet
	DeltaEQP float64
}

// StepResult is the outcome of one working-step computation.
type StepResult struct {
	D0           sparse.Vector
	ReducedDelta float64
	InWorkingSet bool // false when D0 was rescaled to fit Δ_EQP
}

// ComputeWorkingStep implements spec.md §4.4: the minimum-norm correction
// d0 onto the current working-set manifold, seeding every subsequent EQP
// iterate.
func ComputeWorkingStep(aj AugJacSolver, in *StepInput) (*StepResult, error) {
	rhs := BuildActiveRHS(in.WS, in.X, in.C, in.XLo, in.XHi, in.CLo, in.CHi)

	d0, err := aj.SolveMinNorm(rhs)
	if err != nil {
		return nil, err
	}

	res := &StepResult{D0: d0, InWorkingSet: true}
	norm := d0.Norm()
	const shrink = 0.8
	if norm > shrink*in.DeltaEQP {
		scale := shrink * in.DeltaEQP / norm
		res.D0 = sparse.NewVector(len(d0))
		res.D0.ScaleInto(scale, d0)
		res.InWorkingSet = false
		res.ReducedDelta = in.DeltaEQP * math.Sqrt(1-shrink*shrink)
	} else {
		res.ReducedDelta = math.Sqrt(math.Max(in.DeltaEQP*in.DeltaEQP-norm*norm, 0))
	}
	return res, nil
}

// BuildActiveRHS assembles the augmented-system right-hand side for the
// current working set evaluated at primal x (and constraint value c,
// nil when m=0): the bound difference for each active variable row, the
// constraint-bound difference for each active constraint row. Shared by
// the working step (C5, at the current iterate) and the second-order
// correction (C8, at the trial iterate).
func BuildActiveRHS(ws *WorkingSet, x, c sparse.Vector, xLo, xHi, cLo, cHi []float64) sparse.Vector {
	rhs := sparse.NewVector(ws.Size())
	for i := 0; i < ws.NVars; i++ {
		p := ws.VarPos(i)
		if p < 0 {
			continue
		}
		rhs[p] = rowTarget(ws.VarState[i], xLo[i]-x[i], xHi[i]-x[i])
	}
	for i := 0; i < ws.NCons; i++ {
		p := ws.ConPos(i)
		if p < 0 {
			continue
		}
		var ci float64
		if c != nil {
			ci = c[i]
		}
		rhs[p] = rowTarget(ws.ConState[i], cLo[i]-ci, cHi[i]-ci)
	}
	return rhs
}

// rowTarget picks the bound difference feeding one active row's RHS,
// per spec.md §4.4: lower difference on ActiveLower, upper on
// ActiveUpper, either (they must agree to within eps) on ActiveBoth.
func rowTarget(state ActiveState, lowerDiff, upperDiff float64) float64 {
	switch state {
	case ActiveUpper:
		return upperDiff
	default: // ActiveLower, ActiveBoth
		return lowerDiff
	}
}

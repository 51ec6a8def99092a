// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package phase

import (
	"math"

	"github.com/sleqp-go/sleqp/sparse"
	"github.com/sleqp-go/sleqp/wset"
)

// polish runs the post-convergence pass of SPEC_FULL.md §6.12 over an
// already-Optimal result, in place. A none setting (the common path) is a
// no-op and costs nothing beyond the switch.
func (o *Loop) polish(eval Evaluator, result *Result) {
	switch o.settings.PolishingType {
	case PolishNone:
		return
	case PolishLowerSlack:
		polishLowerSlack(result, o.settings.ZeroEps)
	case PolishZeroDual:
		o.polishZeroDual(eval, result)
	}
}

// polishLowerSlack nudges any dual estimate within ZeroEps of zero down
// to exactly zero, cleaning up numerically-marginal active bounds/rows
// without touching the primal point at all.
func polishLowerSlack(result *Result, zeroEps float64) {
	for i, lam := range result.LambdaX {
		if math.Abs(lam) < zeroEps {
			result.LambdaX[i] = 0
		}
	}
	for i, lam := range result.LambdaC {
		if math.Abs(lam) < zeroEps {
			result.LambdaC[i] = 0
		}
	}
}

// polishZeroDual drops every active row whose dual estimate is within
// ZeroEps of zero from the working set and re-solves the EQP against the
// shrunk working set, trying to move the primal point off a numerically
// marginal active constraint entirely. Left untouched (result unchanged)
// if the re-solve fails or the working set does not actually shrink.
func (o *Loop) polishZeroDual(eval Evaluator, result *Result) {
	if result.WS == nil {
		return
	}
	ws := result.WS.Clone()
	shrunk := false
	for i, lam := range result.LambdaX {
		if ws.VarState[i].IsActive() && math.Abs(lam) < o.settings.ZeroEps {
			ws.SetVar(i, wset.Inactive)
			shrunk = true
		}
	}
	for i, lam := range result.LambdaC {
		if ws.ConState[i].IsActive() && math.Abs(lam) < o.settings.ZeroEps {
			ws.SetCon(i, wset.Inactive)
			shrunk = true
		}
	}
	if !shrunk {
		return
	}
	ws.Finalize()

	var J *sparse.CCMatrix
	if o.m > 0 {
		var err error
		if J, err = eval.ConsJac(); err != nil {
			return
		}
	}
	if err := o.polishAJ.SetIterate(J, ws); err != nil {
		return
	}
	g, err := eval.ObjGrad()
	if err != nil {
		return
	}
	hessApply := o.hessApplyFor(eval, result.LambdaC)
	d0 := sparse.NewVector(o.n)
	eqpRes, err := o.polishCG.Solve(o.polishAJ, g, hessApply, d0, o.deltaEQP)
	if err != nil || eqpRes.Dir == nil {
		return
	}

	xNew := result.X.GetCopy()
	xNew.Axpy(1, eqpRes.Dir.D)
	if reject, err := eval.SetValue(xNew, ReasonChecking); err != nil || reject {
		return
	}
	fNew, err := eval.ObjVal()
	if err != nil {
		return
	}
	var cNew sparse.Vector
	if o.m > 0 {
		if cNew, err = eval.ConsVal(); err != nil {
			return
		}
	}
	if o.feasibility(cNew, xNew) > o.settings.FeasTol {
		// the shrunk working set moved the point out of the feasible
		// region; keep the pre-polish result instead.
		eval.SetValue(result.X, ReasonAccepted)
		return
	}

	if _, err := eval.SetValue(xNew, ReasonAccepted); err != nil {
		return
	}
	result.X, result.F, result.C, result.WS = xNew, fNew, cNew, ws
}

// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trial composes the Cauchy, working-step, EQP, and line-search
// subsystems into the trial-point solver of spec.md §4.11: a pure
// composition layer producing one candidate step per outer iteration.
package trial

import (
	"github.com/sleqp-go/sleqp/augjac"
	"github.com/sleqp-go/sleqp/cauchy"
	"github.com/sleqp-go/sleqp/eqp"
	"github.com/sleqp-go/sleqp/merit"
	"github.com/sleqp-go/sleqp/soc"
	"github.com/sleqp-go/sleqp/sparse"
	"github.com/sleqp-go/sleqp/wset"
)

// Input is the read-only snapshot of the current iterate the
// trial-point solver needs (a superset of cauchy.Input, since the EQP
// and merit stages also need the Hessian product and current objective
// value).
type Input struct {
	X, G     sparse.Vector
	F        float64
	XLo, XHi []float64
	C        sparse.Vector
	J        *sparse.CCMatrix
	CLo, CHi []float64
	HessApply func(d, out sparse.Vector)
	DeltaLP, DeltaEQP float64
}

// Settings bundles the subset of sleqp.Settings the trial-point solver
// reads (spec.md §4.11 plus its line-search/step knobs).
type Settings struct {
	DualEstimation   cauchy.DualEstimation
	CauchyTau        float64
	LinesearchExact  bool
	UseQuadraticModel bool
	PerformNewtonStep bool
	LinesearchEta    float64
	LinesearchTau    float64
	LinesearchCutoff float64
}

// Solver owns the persistent Cauchy LP, augmented Jacobian, and EQP
// solver instances for one Problem's dimensions, reused across outer
// iterations.
type Solver struct {
	n, m int
	cau  *cauchy.Cauchy
	aj   *augjac.AugJac
	cg   eqp.Solver
}

// New allocates a trial-point solver for n variables and m general
// constraints.
func New(n, m int, settings Settings) *Solver {
	return &Solver{
		n: n, m: m,
		cau: cauchy.New(n, m, settings.CauchyTau, settings.DualEstimation),
		aj:  augjac.New(n, m, 1e-10),
		cg:  eqp.NewSteihaugCG(n, m, 0, 1e-8),
	}
}

// Result is the outcome of one trial-point computation.
type Result struct {
	Dir               *wset.Direction
	CauchyDir         *wset.Direction // kept separately so the outer loop's Δ_LP clamp (spec.md §4.9) can read ‖d_cauchy‖_∞ even when Dir != CauchyDir
	WS                *wset.WorkingSet
	LambdaX, LambdaC  []float64
	ModelValue        float64
	FullStep          bool // alpha=1 at the Cauchy step (no Newton refinement applied)
	FailedEQPStep     bool
	CauchyStatus      int // lp.Status of the Cauchy LP solve
	LocallyInfeasible bool
}

// Compute implements spec.md §4.11 steps 1-4 (dynamic-accuracy retries,
// step 5, are the caller's responsibility: Compute is deterministic for
// one accuracy level, so a caller wanting dynamic-accuracy re-evaluates
// Input at a tighter accuracy and calls Compute again).
func (o *Solver) Compute(in *Input, env *merit.Env, settings Settings) (*Result, error) {
	cauRes := o.cau.Solve(&cauchy.Input{
		X: in.X, G: in.G, XLo: in.XLo, XHi: in.XHi,
		C: in.C, J: in.J, CLo: in.CLo, CHi: in.CHi,
		DeltaLP: in.DeltaLP, Penalty: env.V,
	}, "default", false)

	res := &Result{CauchyStatus: int(cauRes.Status), LocallyInfeasible: cauRes.LocallyInfeasible}
	if cauRes.Dir == nil {
		return res, nil
	}
	res.WS, res.LambdaX, res.LambdaC = cauRes.WS, cauRes.LambdaX, cauRes.LambdaC

	dCauchy := cauRes.Dir
	dCauchy.Reset(in.G, jacApplyFn(in.J), in.HessApply)
	res.CauchyDir = dCauchy

	phiX := env.Value(in.F, in.C, in.CLo, in.CHi, in.X, in.XLo, in.XHi)
	linCauchy := env.LinearModel(phiX, dCauchy.GTd, in.C, dCauchy.Jd, in.CLo, in.CHi)
	phiQuadCauchy := env.QuadraticModel(linCauchy, dCauchy)

	if !settings.PerformNewtonStep {
		res.Dir = dCauchy
		res.ModelValue = phiQuadCauchy
		res.FullStep = true
		return res, nil
	}

	if err := o.aj.SetIterate(in.J, res.WS); err != nil {
		res.Dir = dCauchy
		res.ModelValue = phiQuadCauchy
		res.FullStep = true
		res.FailedEQPStep = true
		return res, nil
	}

	step, err := wset.ComputeWorkingStep(o.aj, &wset.StepInput{
		X: in.X, C: in.C, XLo: in.XLo, XHi: in.XHi, CLo: in.CLo, CHi: in.CHi,
		WS: res.WS, DeltaEQP: in.DeltaEQP,
	})
	if err != nil {
		res.Dir = dCauchy
		res.ModelValue = phiQuadCauchy
		res.FullStep = true
		res.FailedEQPStep = true
		return res, nil
	}

	eqpRes, err := o.cg.Solve(o.aj, in.G, in.HessApply, step.D0, step.ReducedDelta)
	if err != nil || eqpRes.Dir == nil {
		res.Dir = dCauchy
		res.ModelValue = phiQuadCauchy
		res.FullStep = true
		res.FailedEQPStep = true
		return res, nil
	}
	dNewton := eqpRes.Dir
	dNewton.Reset(in.G, jacApplyFn(in.J), in.HessApply)

	maxAlpha := merit.MaxStepLength(in.X, in.XLo, in.XHi, dCauchy, dNewton)

	build := func(alpha float64) (*wset.Direction, float64) {
		trial := dCauchy.Clone()
		diff := dNewton.Clone()
		diff.AxpyUpdate(-1, dCauchy)
		trial.AxpyUpdate(alpha, diff)
		lin := env.LinearModel(phiX, trial.GTd, in.C, trial.Jd, in.CLo, in.CHi)
		var quad float64
		if settings.UseQuadraticModel {
			quad = env.QuadraticModel(lin, trial)
		} else {
			quad = lin
		}
		return trial, quad
	}

	var alpha float64
	var trial *wset.Direction
	var phiQuad float64
	if settings.LinesearchExact {
		a, b := quadraticCoeffs(build, maxAlpha)
		alpha, trial, phiQuad = merit.ExactLineSearch(clampedBuild(build, maxAlpha), a, b)
	} else {
		dirDeriv := directionalDerivative(in.G, dCauchy, dNewton, in.HessApply)
		alpha, trial, phiQuad = merit.ArmijoLineSearch(clampedBuild(build, maxAlpha), phiQuadCauchy, dirDeriv,
			settings.LinesearchEta, settings.LinesearchTau, settings.LinesearchCutoff)
	}

	res.Dir = trial
	res.ModelValue = phiQuad
	res.FullStep = alpha >= maxAlpha-1e-12
	return res, nil
}

// PenaltyUpdate runs the Cauchy-LP penalty-increase heuristic of spec.md
// §4.10 against this solver's own Cauchy LP instance,
// so the outer loop never needs a second LP engine just for the penalty
// probe.
func (o *Solver) PenaltyUpdate(in *Input, penalty, feasTol float64) float64 {
	return o.cau.PenaltyUpdate(&cauchy.Input{
		X: in.X, G: in.G, XLo: in.XLo, XHi: in.XHi,
		C: in.C, J: in.J, CLo: in.CLo, CHi: in.CHi,
		DeltaLP: in.DeltaLP, Penalty: penalty,
	}, feasTol)
}

// ComputeSOC runs the second-order correction of spec.md §4.7 against the
// augmented Jacobian this solver already factored for ws during the most
// recent Compute call.
func (o *Solver) ComputeSOC(x sparse.Vector, trialDir *wset.Direction, ws *wset.WorkingSet, xLo, xHi, cLo, cHi []float64) (*wset.Direction, error) {
	return soc.Compute(o.aj, &soc.Input{
		X: x, Trial: trialDir, XLo: xLo, XHi: xHi, CLo: cLo, CHi: cHi, WS: ws,
	})
}

func jacApplyFn(J *sparse.CCMatrix) func(d, out sparse.Vector) {
	if J == nil {
		return nil
	}
	return func(d, out sparse.Vector) { J.MatVecMul(out, 1, d, false) }
}

func clampedBuild(build merit.TrialBuilder, maxAlpha float64) merit.TrialBuilder {
	return func(alpha float64) (*wset.Direction, float64) {
		if alpha > maxAlpha {
			alpha = maxAlpha
		}
		return build(alpha)
	}
}

// quadraticCoeffs estimates the (a,b) coefficients of phiQuad(alpha) =
// a*alpha^2+b*alpha+c by sampling three points, used by the exact
// line-search variant.
func quadraticCoeffs(build merit.TrialBuilder, maxAlpha float64) (a, b float64) {
	_, p0 := build(0)
	mid := maxAlpha / 2
	if mid == 0 {
		return 0, 0
	}
	_, p1 := build(mid)
	_, p2 := build(maxAlpha)
	// fit a*x^2+b*x+c through (0,p0), (mid,p1), (maxAlpha,p2)
	h := mid
	a = (p2 - 2*p1 + p0) / (2 * h * h)
	b = (p1 - p0) / h - a*h
	return a, b
}

// directionalDerivative computes ⟨∇φ_quad(d_cauchy), d_newton-d_cauchy⟩ =
// g·diff + (H·d_cauchy)·diff, the Armijo sufficient-decrease slope at
// alpha=0 along the segment d_cauchy + alpha*diff.
func directionalDerivative(g sparse.Vector, dCauchy, dNewton *wset.Direction, hessApply func(d, out sparse.Vector)) float64 {
	diff := dNewton.D.GetCopy()
	for i := range diff {
		diff[i] -= dCauchy.D[i]
	}
	slope := diff.Dot(g)
	if hessApply != nil {
		hDCauchy := sparse.NewVector(len(diff))
		hessApply(dCauchy.D, hDCauchy)
		slope += diff.Dot(hDCauchy)
	}
	return slope
}

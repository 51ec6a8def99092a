// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package phase implements the single-phase outer trust-region loop of
// spec.md §4.12 (C11): evaluate, compute trial, apply the step rule, and
// on acceptance swap iterates and re-evaluate — plus the trust-radius
// update (§4.9) and the optional polishing pass (SPEC_FULL.md §6.12).
// The two-phase optimization/restoration scheduler of §4.12 is built on
// top of this loop by the root sleqp package, which runs one Loop for
// optimization and a second Loop (with a restoration Evaluator) when the
// first reports locally_infeasible.
package phase

import (
	"time"

	"github.com/sleqp-go/sleqp/augjac"
	"github.com/sleqp-go/sleqp/cauchy"
	"github.com/sleqp-go/sleqp/eqp"
	"github.com/sleqp-go/sleqp/merit"
	"github.com/sleqp-go/sleqp/sparse"
	"github.com/sleqp-go/sleqp/steprule"
	"github.com/sleqp-go/sleqp/trial"
	"github.com/sleqp-go/sleqp/wset"
)

// Reason mirrors spec.md §6's set_value reason enum.
type Reason int

const (
	ReasonInit Reason = iota
	ReasonChecking
	ReasonTrying
	ReasonAccepted
	ReasonRestoration
)

// Evaluator is the subset of spec.md §6's Function callback table the
// outer loop drives directly (C1..C10 only ever see it through Input
// snapshots the loop builds from these calls).
type Evaluator interface {
	SetValue(x sparse.Vector, reason Reason) (reject bool, err error)
	ObjVal() (float64, error)
	ObjGrad() (sparse.Vector, error)
	ConsVal() (sparse.Vector, error)
	ConsJac() (*sparse.CCMatrix, error)
	HessApply(objDual float64, lambda []float64, d, out sparse.Vector) error
}

// Status is the outer loop's termination state (spec.md §4.12).
type Status int

const (
	StatusRunning Status = iota
	StatusOptimal
	StatusUnbounded
	StatusAbortIter
	StatusAbortTime
	StatusAbortDeadpoint
	StatusAbortManual
	StatusLocallyInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusUnbounded:
		return "unbounded"
	case StatusAbortIter:
		return "abort_iter"
	case StatusAbortTime:
		return "abort_time"
	case StatusAbortDeadpoint:
		return "abort_deadpoint"
	case StatusAbortManual:
		return "abort_manual"
	case StatusLocallyInfeasible:
		return "locally_infeasible"
	default:
		return "running"
	}
}

// PolishKind selects the post-convergence polishing pass of
// SPEC_FULL.md §6.12.
type PolishKind int

const (
	PolishNone PolishKind = iota
	PolishZeroDual
	PolishLowerSlack
)

// Settings bundles every knob the outer loop reads.
type Settings struct {
	DeltaLP0, DeltaEQP0 float64
	Penalty0            float64
	StepRuleKind        steprule.Kind
	StepRuleWindow      int
	EtaAccept           float64
	MaxIterations       int // 0 = unbounded
	MaxWallTime         time.Duration
	MinRadius           float64 // dead-point bound
	FeasTol             float64
	StationarityTol     float64
	ObjLower            float64

	DualEstimation    cauchy.DualEstimation
	CauchyTau         float64
	PerformNewtonStep bool
	UseQuadraticModel bool
	LinesearchExact   bool
	LinesearchEta     float64
	LinesearchTau     float64
	LinesearchCutoff  float64

	PolishingType PolishKind
	ZeroEps       float64

	PerformSOC bool
}

// IterationRecord is emitted once per outer-loop iteration (accepted or
// rejected), for a caller (sleqp.Solver) to fold into its History —
// purely observational, never read back by Loop itself.
type IterationRecord struct {
	Iteration              int
	X                      sparse.Vector
	F                      float64
	PhiCurrent, PhiTrial   float64
	ModelValue             float64
	Ratio                  float64
	Accepted               bool
	UsedSOC                bool
	DeltaLP, DeltaEQP      float64
}

// Result is the outcome of Run.
type Result struct {
	X                sparse.Vector
	F                float64
	C                sparse.Vector
	WS               *wset.WorkingSet
	LambdaX, LambdaC []float64
	Status           Status
	Iterations       int
	DeltaLP, DeltaEQP float64
	Penalty          float64
}

// Loop is the stateful outer trust-region driver for one Problem
// dimension; Run executes it to convergence, an abort condition, or
// local infeasibility. A Loop is single-use across one Run call but may
// be reused for a subsequent Run (e.g. the restoration phase reusing the
// optimization-phase Loop's dimensions) since all mutable state is
// re-seeded at the top of Run.
type Loop struct {
	n, m     int
	xLo, xHi []float64
	cLo, cHi []float64
	settings Settings

	trialSolver *trial.Solver
	rule        *steprule.Rule
	env         *merit.Env

	polishAJ *augjac.AugJac
	polishCG eqp.Solver

	deltaLP, deltaEQP float64
	abortNext         bool
}

// NewLoop allocates a Loop for n variables and m general constraints.
func NewLoop(n, m int, xLo, xHi, cLo, cHi []float64, settings Settings) *Loop {
	return &Loop{
		n: n, m: m,
		xLo: xLo, xHi: xHi, cLo: cLo, cHi: cHi,
		settings:    settings,
		trialSolver: trial.New(n, m, trialSettings(settings)),
		rule:        steprule.New(settings.StepRuleKind, settings.StepRuleWindow, settings.EtaAccept),
		env:         merit.NewEnv(settings.Penalty0),
		polishAJ:    augjac.New(n, m, 1e-10),
		polishCG:    eqp.NewSteihaugCG(n, m, 0, 1e-8),
		deltaLP:     settings.DeltaLP0,
		deltaEQP:    settings.DeltaEQP0,
	}
}

func trialSettings(s Settings) trial.Settings {
	return trial.Settings{
		DualEstimation:    s.DualEstimation,
		CauchyTau:         s.CauchyTau,
		LinesearchExact:   s.LinesearchExact,
		UseQuadraticModel: s.UseQuadraticModel,
		PerformNewtonStep: s.PerformNewtonStep,
		LinesearchEta:     s.LinesearchEta,
		LinesearchTau:     s.LinesearchTau,
		LinesearchCutoff:  s.LinesearchCutoff,
	}
}

// RequestAbort sets the abort_next flag spec.md §5 describes; polled at
// the top of the next iteration. Not safe to call concurrently with Run —
// sleqp.Solver.Abort instead stores an atomic flag, which the Solver
// forwards here from the onIteration callback on Run's own goroutine.
func (o *Loop) RequestAbort() { o.abortNext = true }

// Run executes the outer loop of spec.md §4.12 starting from x0 until an
// Optimal/Unbounded/abort/LocallyInfeasible status is reached.
// onIteration, if non-nil, is called once per outer iteration (before the
// accept/reject swap) for history bookkeeping.
func (o *Loop) Run(eval Evaluator, x0 sparse.Vector, onIteration func(*IterationRecord)) (*Result, error) {
	start := time.Now()
	o.deltaLP, o.deltaEQP = o.settings.DeltaLP0, o.settings.DeltaEQP0
	o.env.V = o.settings.Penalty0
	o.abortNext = false

	x := x0.GetCopy()
	if _, err := eval.SetValue(x, ReasonInit); err != nil {
		return nil, err
	}
	f, err := eval.ObjVal()
	if err != nil {
		return nil, err
	}
	g, err := eval.ObjGrad()
	if err != nil {
		return nil, err
	}
	var c sparse.Vector
	var J *sparse.CCMatrix
	if o.m > 0 {
		if c, err = eval.ConsVal(); err != nil {
			return nil, err
		}
		if J, err = eval.ConsJac(); err != nil {
			return nil, err
		}
	}

	var ws *wset.WorkingSet
	var lambdaX, lambdaC []float64

	for iter := 0; ; iter++ {
		if status, done := o.checkBudgets(iter, start); done {
			return o.finish(x, f, c, ws, lambdaX, lambdaC, status, iter), nil
		}

		in := &trial.Input{
			X: x, G: g, F: f, XLo: o.xLo, XHi: o.xHi,
			C: c, J: J, CLo: o.cLo, CHi: o.cHi,
			HessApply: o.hessApplyFor(eval, lambdaC),
			DeltaLP:   o.deltaLP, DeltaEQP: o.deltaEQP,
		}
		o.env.V = o.trialSolver.PenaltyUpdate(in, o.env.V, o.settings.FeasTol)

		res, err := o.trialSolver.Compute(in, o.env, trialSettings(o.settings))
		if err != nil {
			return nil, err
		}
		ws, lambdaX, lambdaC = res.WS, res.LambdaX, res.LambdaC

		if res.LocallyInfeasible {
			return o.finish(x, f, c, ws, lambdaX, lambdaC, StatusLocallyInfeasible, iter), nil
		}
		if res.Dir == nil {
			return o.finish(x, f, c, ws, lambdaX, lambdaC, StatusAbortDeadpoint, iter), nil
		}

		feasResidual := o.feasibility(c, x)
		if res.Dir.D.NormInf() < o.settings.StationarityTol && feasResidual < o.settings.FeasTol {
			result := o.finish(x, f, c, ws, lambdaX, lambdaC, StatusOptimal, iter)
			o.polish(eval, result)
			return result, nil
		}
		if f <= o.settings.ObjLower && feasResidual < o.settings.FeasTol {
			return o.finish(x, f, c, ws, lambdaX, lambdaC, StatusUnbounded, iter), nil
		}

		accepted, err := o.tryStep(eval, iter, x, f, c, res, onIteration)
		if err != nil {
			return nil, err
		}
		if accepted != nil {
			x, f, c = accepted.x, accepted.f, accepted.c
			if o.m > 0 {
				if J, err = eval.ConsJac(); err != nil {
					return nil, err
				}
			}
			if g, err = eval.ObjGrad(); err != nil {
				return nil, err
			}
			o.rule.RecordIteration(accepted.phi)
		}
	}
}

type acceptedStep struct {
	x   sparse.Vector
	f   float64
	c   sparse.Vector
	phi float64
}

// tryStep forms the trial point (and, if rejected, one second-order
// correction attempt per spec.md §4.7), evaluates the step rule, updates
// the trust radii, and reports the accepted point if any.
func (o *Loop) tryStep(eval Evaluator, iter int, x sparse.Vector, f float64, c sparse.Vector, res *trial.Result, onIteration func(*IterationRecord)) (*acceptedStep, error) {
	phiX := o.env.Value(f, c, o.cLo, o.cHi, x, o.xLo, o.xHi)

	dTrial := res.Dir
	xTrial, fTrial, cTrial, err := o.evaluateAt(eval, x, dTrial.D)
	if err != nil {
		return nil, err
	}
	phiTrial := o.env.Value(fTrial, cTrial, o.cLo, o.cHi, xTrial, o.xLo, o.xHi)
	ratio, accept := o.rule.Evaluate(phiX, phiTrial, res.ModelValue)
	usedSOC := false

	// spec.md §4.7: SOC is only meaningful against general constraints
	// (a box-only problem's linearization is exact, so there is nothing
	// for a second-order correction to correct), and only when enabled.
	if !accept && !res.FailedEQPStep && o.settings.PerformSOC && o.m > 0 {
		if socDir, socErr := o.trialSolver.ComputeSOC(x, dTrial, res.WS, o.xLo, o.xHi, o.cLo, o.cHi); socErr == nil {
			xSOC, fSOC, cSOC, evalErr := o.evaluateAt(eval, x, socDir.D)
			if evalErr == nil {
				phiSOC := o.env.Value(fSOC, cSOC, o.cLo, o.cHi, xSOC, o.xLo, o.xHi)
				ratioSOC, acceptSOC := o.rule.Evaluate(phiX, phiSOC, res.ModelValue)
				if acceptSOC {
					dTrial, xTrial, fTrial, cTrial, phiTrial, ratio, accept, usedSOC = socDir, xSOC, fSOC, cSOC, phiSOC, ratioSOC, true, true
				}
			}
		}
	}

	cauchyInf := res.CauchyDir.D.NormInf()
	o.deltaLP, o.deltaEQP = updateRadii(o.deltaLP, o.deltaEQP, dTrial.D.NormInf(), dTrial.D.Norm(), cauchyInf, res.FullStep, accept, ratio)

	if onIteration != nil {
		onIteration(&IterationRecord{
			Iteration: iter, X: xTrial.GetCopy(), F: fTrial,
			PhiCurrent: phiX, PhiTrial: phiTrial, ModelValue: res.ModelValue,
			Ratio: ratio, Accepted: accept, UsedSOC: usedSOC,
			DeltaLP: o.deltaLP, DeltaEQP: o.deltaEQP,
		})
	}

	if !accept {
		return nil, nil
	}
	if _, err := eval.SetValue(xTrial, ReasonAccepted); err != nil {
		return nil, err
	}
	return &acceptedStep{x: xTrial, f: fTrial, c: cTrial, phi: phiTrial}, nil
}

// evaluateAt evaluates the Function at x+d under reason=trying, without
// disturbing the loop's notion of the current iterate.
func (o *Loop) evaluateAt(eval Evaluator, x sparse.Vector, d sparse.Vector) (xNew sparse.Vector, f float64, c sparse.Vector, err error) {
	xNew = x.GetCopy()
	xNew.Axpy(1, d)
	if _, err = eval.SetValue(xNew, ReasonTrying); err != nil {
		return
	}
	if f, err = eval.ObjVal(); err != nil {
		return
	}
	if o.m > 0 {
		c, err = eval.ConsVal()
	}
	return
}

// hessApplyFor adapts the Function's matrix-free Hessian-vector product
// (objDual fixed at 1, the objective's weight in the Lagrangian Hessian)
// to the plain func(d,out) shape the
// EQP solver expects. A callback failure degrades to a zero Hessian
// product rather than aborting the iteration — trial.Solver already
// falls back to the pure Cauchy step whenever the EQP stage misbehaves,
// so a momentarily-broken curvature product costs an iteration, not
// correctness.
func (o *Loop) hessApplyFor(eval Evaluator, lambdaC []float64) func(d, out sparse.Vector) {
	lam := lambdaC
	if lam == nil {
		lam = make([]float64, o.m)
	}
	return func(d, out sparse.Vector) {
		if err := eval.HessApply(1, lam, d, out); err != nil {
			out.Fill(0)
		}
	}
}

// feasibility returns the worst single bound/constraint violation at
// (x,c), the quantity spec.md §4.12's optimal/unbounded tests compare
// against FeasTol (locally_infeasible comes from the Cauchy result) (the ℓ1 merit value itself mixes the
// penalty scale in and is the wrong quantity for this check).
func (o *Loop) feasibility(c, x sparse.Vector) float64 {
	worst := merit.MaxViolation(o.xLo, o.xHi, x)
	if o.m > 0 {
		if v := merit.MaxViolation(o.cLo, o.cHi, c); v > worst {
			worst = v
		}
	}
	return worst
}

func (o *Loop) checkBudgets(iter int, start time.Time) (Status, bool) {
	if o.abortNext {
		return StatusAbortManual, true
	}
	if o.settings.MaxIterations > 0 && iter >= o.settings.MaxIterations {
		return StatusAbortIter, true
	}
	if o.settings.MaxWallTime > 0 && time.Since(start) >= o.settings.MaxWallTime {
		return StatusAbortTime, true
	}
	if o.deltaLP < o.settings.MinRadius && o.deltaEQP < o.settings.MinRadius {
		return StatusAbortDeadpoint, true
	}
	return StatusRunning, false
}

func (o *Loop) finish(x sparse.Vector, f float64, c sparse.Vector, ws *wset.WorkingSet, lambdaX, lambdaC []float64, status Status, iter int) *Result {
	return &Result{
		X: x, F: f, C: c, WS: ws, LambdaX: lambdaX, LambdaC: lambdaC,
		Status: status, Iterations: iter,
		DeltaLP: o.deltaLP, DeltaEQP: o.deltaEQP, Penalty: o.env.V,
	}
}

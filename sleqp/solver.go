// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sleqp implements the Solver surface of spec.md §6 on top of the
// phase package's outer trust-region loop: problem/function/settings
// plumbing, the two-phase optimization/restoration scheduler of §4.12,
// history, the derivative checker, and the preprocessor.
package sleqp

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/sleqp-go/sleqp/merit"
	"github.com/sleqp-go/sleqp/phase"
	"github.com/sleqp-go/sleqp/sparse"
)

// Status is the terminal state of a solve, spec.md §6's status() result.
type Status = phase.Status

const (
	StatusRunning           = phase.StatusRunning
	StatusOptimal           = phase.StatusOptimal
	StatusUnbounded         = phase.StatusUnbounded
	StatusAbortIter         = phase.StatusAbortIter
	StatusAbortTime         = phase.StatusAbortTime
	StatusAbortDeadpoint    = phase.StatusAbortDeadpoint
	StatusAbortManual       = phase.StatusAbortManual
	StatusLocallyInfeasible = phase.StatusLocallyInfeasible
)

// Event is one of the three notifications spec.md §6 names.
type Event int

const (
	EventAcceptedIterate Event = iota
	EventPerformedIteration
	EventFinished
)

// Callback is invoked with the solver and the current iterate; per
// spec.md §6 it must not mutate the solver other than via Abort.
type Callback func(s *Solver, it *Iterate)

type callbackEntry struct {
	id      int
	event   Event
	fn      Callback
	removed bool
}

// maxRestorationCycles bounds the optimization<->restoration ping-pong of
// spec.md §4.12 so a problem that keeps re-entering restoration without
// ever recovering feasibility cannot loop the scheduler forever; hitting
// the bound surfaces as StatusLocallyInfeasible, the same status a single
// failed restoration attempt already produces.
const maxRestorationCycles = 20

// Solver drives one Problem through spec.md §6's create/solve/status/...
// surface. Safe for one goroutine to call Solve while others call
// AddCallback/RemoveCallback/Abort, per SPEC_FULL.md §7.
type Solver struct {
	problem     *Problem // original, caller-facing dimension
	workProblem *Problem // preprocessed (or == problem) dimension the loops run in
	unpre       *Unpreprocess
	settings    Settings
	logger      zerolog.Logger

	mu        sync.Mutex
	callbacks []callbackEntry
	nextCBID  int
	abortFlag atomic.Bool

	restorationDisabled bool

	status     Status
	iterations int
	startTime  time.Time
	elapsed    time.Duration
	result     *phase.Result
	history    *History
}

// NewSolver validates problem and settings and returns a Solver ready for
// Solve, running the preprocessor up front when settings.EnablePreprocessor
// is set (SPEC_FULL.md §6.14).
func NewSolver(problem *Problem, settings Settings) (*Solver, error) {
	if problem == nil {
		return nil, NewError(KindIllegalArgument, "nil problem")
	}
	// SPEC_FULL.md §4.1: silent by default; callers opt into logging via
	// SetLogger.
	logger := zerolog.Nop()

	workProblem := problem
	var unpre *Unpreprocess
	if settings.EnablePreprocessor {
		red, u, err := Preprocess(problem)
		if err != nil {
			return nil, err
		}
		workProblem, unpre = red, u
		logger.Debug().Int("n", problem.N).Int("reduced_n", red.N).Msg("preprocessor reduced variable count")
	}

	return &Solver{
		problem:     problem,
		workProblem: workProblem,
		unpre:       unpre,
		settings:    settings,
		logger:      logger,
		status:      StatusRunning,
	}, nil
}

// SetLogger replaces the Solver's logger (zerolog.Nop() by default, per
// SPEC_FULL.md §4.1); callers that want the Info/Warn events logged on
// restoration-phase transitions observed pass a configured
// zerolog.Logger here before Solve. No per-iteration events are logged.
func (o *Solver) SetLogger(logger zerolog.Logger) { o.logger = logger }

// AddCallback registers fn for event and returns a handle for RemoveCallback.
func (o *Solver) AddCallback(event Event, fn Callback) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.nextCBID
	o.nextCBID++
	o.callbacks = append(o.callbacks, callbackEntry{id: id, event: event, fn: fn})
	return id
}

// RemoveCallback unregisters the callback returned by AddCallback. The
// backing slice stays append-only (per spec.md §5's "callback handlers
// are append-only"); removal just marks the entry inert.
func (o *Solver) RemoveCallback(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.callbacks {
		if o.callbacks[i].id == id {
			o.callbacks[i].removed = true
			return
		}
	}
}

func (o *Solver) fire(event Event, it *Iterate) {
	o.mu.Lock()
	entries := make([]callbackEntry, len(o.callbacks))
	copy(entries, o.callbacks)
	o.mu.Unlock()
	for _, e := range entries {
		if !e.removed && e.event == event {
			e.fn(o, it)
		}
	}
}

// Abort requests that the running Solve return at the next iteration
// boundary (spec.md §5's abort_next flag); safe to call from any goroutine.
func (o *Solver) Abort() { o.abortFlag.Store(true) }

// Solve runs the two-phase scheduler of spec.md §4.12 from x0 (in the
// caller's original, un-preprocessed coordinates) until an Optimal,
// Unbounded, abort, or unrecovered LocallyInfeasible status is reached.
func (o *Solver) Solve(x0 sparse.Vector, maxIters int, timeLimit time.Duration) error {
	o.startTime = time.Now()
	o.abortFlag.Store(false)
	o.iterations = 0

	x := x0.GetCopy()
	if o.unpre != nil {
		x = reduceVector(x0, o.unpre)
	}

	if o.settings.DerivCheck != DerivCheckNone {
		if err := CheckDerivatives(o.workProblem, x, o.settings); err != nil {
			return err
		}
	}

	settings := o.phaseSettings(maxIters, timeLimit)
	fn := o.workProblem.Fn
	if o.settings.HessianEvalType != HessianExact {
		fn = NewQuasiNewtonFunction(fn, o.workProblem.N, o.settings.HessianEvalType)
	}
	eval := &functionEvaluator{fn: fn}
	hist := NewHistory(o.workProblem.N)

	var result *phase.Result
	var err error
	if o.workProblem.N == 0 {
		// The preprocessor consumed every variable (spec.md §8 scenario
		// 4): there is nothing left for the trust-region loop to do, and
		// an empty LP has no meaningful basis to solve. Report the
		// (necessarily feasible, by construction of Preprocess) fixed
		// point directly.
		result, err = o.trivialResult(eval, x)
		if err != nil {
			return err
		}
		o.result = result
		o.status = result.Status
		o.history = hist
		o.elapsed = time.Since(o.startTime)
		o.fire(EventFinished, o.solutionLocked())
		return nil
	}
	for cycle := 0; ; cycle++ {
		loop := phase.NewLoop(o.workProblem.N, o.workProblem.M, o.workProblem.XLo, o.workProblem.XHi, o.workProblem.CLo, o.workProblem.CHi, settings)
		result, err = o.runLoop(loop, eval, x, hist)
		if err != nil {
			return err
		}
		if result.Status != StatusLocallyInfeasible || !o.settings.EnableRestorationPhase ||
			o.restorationDisabled || cycle >= maxRestorationCycles {
			break
		}

		o.logger.Info().Int("iterations", result.Iterations).Msg("locally infeasible, entering restoration phase")
		restEval := newRestorationEvaluator(eval, o.workProblem.CLo, o.workProblem.CHi, o.workProblem.N, o.workProblem.M)
		restLoop := phase.NewLoop(o.workProblem.N, 0, o.workProblem.XLo, o.workProblem.XHi, nil, nil, settings)
		restResult, rerr := o.runLoop(restLoop, restEval, result.X, hist)
		if rerr != nil {
			return rerr
		}

		if _, rerr := eval.SetValue(restResult.X, ReasonChecking); rerr != nil {
			return rerr
		}
		feasResidual, rerr := o.feasibilityAt(eval, restResult.X)
		if rerr != nil {
			return rerr
		}
		if feasResidual < o.settings.FeasTol {
			o.logger.Info().Msg("restoration recovered feasibility, resuming optimization")
			x = restResult.X
			continue
		}
		o.logger.Warn().Msg("restoration failed to recover feasibility, disabling further restoration")
		o.restorationDisabled = true
		x = result.X
	}

	o.result = result
	o.status = result.Status
	o.history = hist
	o.elapsed = time.Since(o.startTime)
	o.fire(EventFinished, o.solutionLocked())
	return nil
}

// trivialResult evaluates eval once at x (necessarily the problem's only
// feasible point, with zero free variables) and reports it as optimal.
func (o *Solver) trivialResult(eval phase.Evaluator, x sparse.Vector) (*phase.Result, error) {
	if _, err := eval.SetValue(x, ReasonInit); err != nil {
		return nil, err
	}
	f, err := eval.ObjVal()
	if err != nil {
		return nil, err
	}
	var c sparse.Vector
	if o.workProblem.M > 0 {
		if c, err = eval.ConsVal(); err != nil {
			return nil, err
		}
	} else {
		c = sparse.NewVector(0)
	}
	return &phase.Result{
		X: x, F: f, C: c,
		LambdaX: make([]float64, 0), LambdaC: make([]float64, 0),
		Status: StatusOptimal,
	}, nil
}

// runLoop executes loop, forwarding its onIteration stream into hist and
// the Performed/AcceptedIterate callbacks, and honoring a pending Abort.
func (o *Solver) runLoop(loop *phase.Loop, eval phase.Evaluator, x sparse.Vector, hist *History) (*phase.Result, error) {
	onIter := func(rec *phase.IterationRecord) {
		o.iterations++
		hist.Append(rec)
		if o.abortFlag.Load() {
			loop.RequestAbort()
		}
		it := &Iterate{X: rec.X, F: rec.F}
		o.fire(EventPerformedIteration, it)
		if rec.Accepted {
			o.fire(EventAcceptedIterate, it)
		}
	}
	return loop.Run(eval, x, onIter)
}

// feasibilityAt returns the worst bound/constraint violation the original
// (not restoration) Function reports at x.
func (o *Solver) feasibilityAt(eval phase.Evaluator, x sparse.Vector) (float64, error) {
	var c sparse.Vector
	var err error
	if o.workProblem.M > 0 {
		if c, err = eval.ConsVal(); err != nil {
			return 0, err
		}
	}
	worst := merit.MaxViolation(o.workProblem.XLo, o.workProblem.XHi, x)
	if o.workProblem.M > 0 {
		if v := merit.MaxViolation(o.workProblem.CLo, o.workProblem.CHi, c); v > worst {
			worst = v
		}
	}
	return worst, nil
}

func (o *Solver) phaseSettings(maxIters int, timeLimit time.Duration) phase.Settings {
	s := o.settings
	return phase.Settings{
		DeltaLP0: s.DeltaLP0, DeltaEQP0: s.DeltaEQP0, Penalty0: s.Penalty0,
		StepRuleKind: s.StepRuleType, StepRuleWindow: s.StepRuleWindow,
		EtaAccept: s.AcceptedReduction,
		MaxIterations: maxIters, MaxWallTime: timeLimit,
		MinRadius: s.DeadpointBound, FeasTol: s.FeasTol, StationarityTol: s.StatTol,
		ObjLower: s.ObjLower,

		DualEstimation: s.DualEstimationType, CauchyTau: s.CauchyTau,
		PerformNewtonStep: s.PerformNewtonStep, UseQuadraticModel: s.UseQuadraticModel,
		LinesearchExact: s.LinesearchType == LinesearchExactKind,
		LinesearchEta:   s.LinesearchEta, LinesearchTau: s.LinesearchTau, LinesearchCutoff: s.LinesearchCutoff,

		PolishingType: s.PolishingType, ZeroEps: s.ZeroEps,

		PerformSOC: s.PerformSOC,
	}
}

// Status reports the outcome of the most recent Solve.
func (o *Solver) Status() Status { return o.status }

// Iterations reports the total outer-loop iteration count across every
// optimization/restoration cycle of the most recent Solve.
func (o *Solver) Iterations() int { return o.iterations }

// ElapsedSeconds reports the wall-clock duration of the most recent Solve.
func (o *Solver) ElapsedSeconds() float64 { return o.elapsed.Seconds() }

// History returns the iteration ledger of the most recent Solve
// (SPEC_FULL.md §6.11 expansion of the spec.md §6 Solver surface).
func (o *Solver) History() *History { return o.history }

// Solution returns the primal-dual point of the most recent Solve,
// expanded back to the caller's original variable count when a
// preprocessor reduction was applied.
func (o *Solver) Solution() *Iterate {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.solutionLocked()
}

func (o *Solver) solutionLocked() *Iterate {
	if o.result == nil {
		return nil
	}
	x := o.result.X
	if o.unpre != nil {
		x = o.unpre.Apply(x)
	}
	return &Iterate{X: x, F: o.result.F, C: o.result.C, LambdaX: o.result.LambdaX, LambdaC: o.result.LambdaC, WS: o.result.WS}
}

// ViolatedConstraints returns the indices (§6's violated_constraints)
// the most recent solution violates beyond tol, against the original
// (un-preprocessed) Problem.
func (o *Solver) ViolatedConstraints(tol float64) []int {
	it := o.Solution()
	if it == nil {
		return nil
	}
	return ViolatedConstraints(o.problem, it, tol)
}

// RealState exposes one floating-point diagnostic by tag (§6's
// real_state), the penalty value and current trust radii.
func (o *Solver) RealState(tag string) (float64, bool) {
	if o.result == nil {
		return 0, false
	}
	switch tag {
	case "penalty":
		return o.result.Penalty, true
	case "delta_lp":
		return o.result.DeltaLP, true
	case "delta_eqp":
		return o.result.DeltaEQP, true
	case "elapsed_seconds":
		return o.elapsed.Seconds(), true
	default:
		return 0, false
	}
}

// IntState exposes one integer diagnostic by tag (§6's int_state).
func (o *Solver) IntState(tag string) (int, bool) {
	switch tag {
	case "iterations":
		return o.iterations, true
	default:
		return 0, false
	}
}

// VecState exposes one sparse-vector diagnostic by tag (§6's vec_state).
func (o *Solver) VecState(tag string) (sparse.Vector, bool) {
	if o.result == nil {
		return nil, false
	}
	switch tag {
	case "x":
		return o.result.X, true
	case "c":
		return o.result.C, true
	default:
		return nil, false
	}
}

// Reset clears solve state so the Solver can be reused for a new Solve
// call (§6's reset()); the Problem, Settings, and registered callbacks
// are kept.
func (o *Solver) Reset() {
	o.status = StatusRunning
	o.iterations = 0
	o.elapsed = 0
	o.result = nil
	o.history = nil
	o.restorationDisabled = false
	o.abortFlag.Store(false)
}

func reduceVector(x0 sparse.Vector, unpre *Unpreprocess) sparse.Vector {
	xRed := sparse.NewVector(len(unpre.freeIdx))
	for k, orig := range unpre.freeIdx {
		xRed[k] = x0[orig]
	}
	return xRed
}

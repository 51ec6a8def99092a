// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cauchy implements the LP-based Cauchy subsystem (C4 of
// spec.md §4.3): assembling and solving the linearized ℓ1-penalty LP,
// reading the working set and a first-order direction out of its basis,
// and estimating KKT-convention duals from either the LP or a
// least-squares projection through the augmented Jacobian.
package cauchy

import (
	"math"

	"github.com/sleqp-go/sleqp/augjac"
	"github.com/sleqp-go/sleqp/lp"
	"github.com/sleqp-go/sleqp/sparse"
	"github.com/sleqp-go/sleqp/wset"
)

// DualEstimation selects the strategy of spec.md §4.3 step 6.
type DualEstimation int

const (
	DualLP DualEstimation = iota
	DualLSQ
	DualMixed
)

// Input is the read-only snapshot of the current iterate the Cauchy
// subsystem needs; it is deliberately independent of the sleqp package
// (a leaf component, per spec.md §2's "leaves first" layering) so that
// sleqp can depend on cauchy rather than the reverse.
type Input struct {
	X, G     sparse.Vector   // current primal and objective gradient
	XLo, XHi []float64       // variable bounds
	C        sparse.Vector   // c(x), length m (nil when m=0)
	J        *sparse.CCMatrix // Jacobian J(x), m x n CSC (nil when m=0)
	CLo, CHi []float64       // constraint bounds, length m
	DeltaLP  float64         // trust-region radius for the LP box, ‖d‖∞ ≤ Δ_LP
	Penalty  float64         // v, the ℓ1 penalty weight on the LP slacks
}

// Result is the outcome of one Cauchy solve: the LP-derived direction,
// the working set it implies, and the estimated duals.
type Result struct {
	Status            lp.Status
	Dir               *wset.Direction
	WS                *wset.WorkingSet
	LambdaX           []float64 // length n
	LambdaC           []float64 // length m
	LocallyInfeasible bool
}

// Cauchy owns the persistent LP instance (reused across solves, one
// cached solution per objective slot) for one Problem's dimensions.
type Cauchy struct {
	n, m    int
	tau     float64 // trust-region-boundary tolerance (cauchy_tau) of the local-infeasibility test
	dualTy  DualEstimation
	problem *lp.Problem
}

// New allocates a Cauchy subsystem for n variables and m general
// constraints. tau is spec.md's cauchy_tau tolerance: a step component
// within tau of ±Δ_LP counts as lying on the trust-region boundary when
// Solve decides local infeasibility.
func New(n, m int, tau float64, dualType DualEstimation) *Cauchy {
	if tau <= 0 {
		tau = 1e-6
	}
	return &Cauchy{
		n: n, m: m, tau: tau, dualTy: dualType,
		problem: lp.NewProblem(n+2*m, m),
	}
}

// Solve runs one Cauchy LP for the given objective slot ("default",
// "feasibility", or "mixed" — spec.md §4.3 steps 1-3) and reads out the
// direction, working set, and duals (steps 4-6). feasibilityOnly drops
// the ∇f term from the objective, used by the penalty-update oracle of
// §4.10.
func (o *Cauchy) Solve(in *Input, slot string, feasibilityOnly bool) *Result {
	o.assemble(in, feasibilityOnly)
	if slot != "default" {
		// per spec.md §9: restart a mixed-objective solve from the
		// default basis to preserve progress.
		if slot == "mixed" {
			o.problem.RestoreBasis("default")
		} else {
			o.problem.RestoreBasis(slot)
		}
	} else {
		o.problem.RestoreBasis(slot)
	}
	sol := o.problem.Solve(slot)
	o.problem.SaveBasis(slot)

	res := &Result{Status: sol.Status}
	if sol.Status != lp.StatusOptimal && sol.Status != lp.StatusUnknown {
		return res
	}

	dir := wset.NewDirection(o.n, o.m)
	for i := 0; i < o.n; i++ {
		dir.D[i] = sol.X[i]
	}
	dir.GTd = in.G.Dot(dir.D)
	if in.J != nil {
		in.J.MatVecMul(dir.Jd, 1, dir.D, false)
	}
	res.Dir = dir

	ws := wset.NewWorkingSet(o.n, o.m)
	atBoundary := false
	for i := 0; i < o.n; i++ {
		if in.XLo[i] == in.XHi[i] {
			ws.SetVar(i, wset.ActiveBoth)
			continue
		}
		di := dir.D[i]
		if math.Abs(math.Abs(di)-in.DeltaLP) < o.tau {
			atBoundary = true
		}
		switch {
		case sol.VarStats[i] == lp.StatusLower && in.X[i]-in.XLo[i] < in.DeltaLP:
			ws.SetVar(i, wset.ActiveLower)
		case sol.VarStats[i] == lp.StatusUpper && in.XHi[i]-in.X[i] < in.DeltaLP:
			ws.SetVar(i, wset.ActiveUpper)
		default:
			ws.SetVar(i, wset.Inactive)
		}
	}

	anySlackNonzero := false
	for i := 0; i < o.m; i++ {
		sp, sm := sol.X[o.n+i], sol.X[o.n+o.m+i]
		const slackEps = 1e-8
		if sp > slackEps || sm > slackEps {
			anySlackNonzero = true
			ws.SetCon(i, wset.Inactive)
			continue
		}
		switch sol.ConsStats[i] {
		case lp.StatusLower:
			ws.SetCon(i, wset.ActiveLower)
		case lp.StatusUpper:
			ws.SetCon(i, wset.ActiveUpper)
		case lp.StatusZero:
			ws.SetCon(i, wset.ActiveBoth)
		default:
			ws.SetCon(i, wset.Inactive)
		}
	}
	ws.Finalize()
	res.WS = ws
	res.LocallyInfeasible = !atBoundary && anySlackNonzero

	res.LambdaX, res.LambdaC = o.estimateDuals(in, ws, sol)
	return res
}

// assemble builds the LP of spec.md §4.2/§4.3 step 1: n columns for d
// plus 2m non-negative slack columns (s+, s-), objective g·d + v·1ᵀ(s+ +
// s-), column bounds the trust-region box intersected with the variable
// bounds translated to the origin, row bounds the linearized constraint
// window translated by c(x).
func (o *Cauchy) assemble(in *Input, feasibilityOnly bool) {
	obj := make([]float64, o.n+2*o.m)
	for i := 0; i < o.n; i++ {
		o.problem.SetColBounds(i, math.Max(in.XLo[i]-in.X[i], -in.DeltaLP), math.Min(in.XHi[i]-in.X[i], in.DeltaLP))
		if !feasibilityOnly {
			obj[i] = in.G[i]
		}
	}
	for i := 0; i < o.m; i++ {
		o.problem.SetColBounds(o.n+i, 0, math.Inf(1))
		o.problem.SetColBounds(o.n+o.m+i, 0, math.Inf(1))
		obj[o.n+i] = in.Penalty
		obj[o.n+o.m+i] = in.Penalty
	}
	o.problem.SetObjective(obj)

	var T sparse.Triplet
	nnzHint := o.n * o.m
	if in.J != nil {
		nnzHint = in.J.NNZ()
	}
	T.Init(o.m, o.n+2*o.m, nnzHint+2*o.m)
	for i := 0; i < o.m; i++ {
		if in.J != nil {
			in.J.Row(i, func(col int, v float64) { T.Put(i, col, v) })
		}
		T.Put(i, o.n+i, 1)
		T.Put(i, o.n+o.m+i, -1)
		o.problem.SetRowBounds(i, in.CLo[i]-in.C[i], in.CHi[i]-in.C[i])
	}
	o.problem.SetCoefficients(&T)
}

// estimateDuals implements spec.md §4.3 step 6: LP duals rescaled to the
// KKT sign convention (λ≥0 active_upper, λ≤0 active_lower, λ=0 inactive),
// a least-squares alternative via augjac.Project(g), or a mix of the two.
func (o *Cauchy) estimateDuals(in *Input, ws *wset.WorkingSet, sol *lp.Solution) (lambdaX, lambdaC []float64) {
	lpX, lpC := dualsFromLP(o.n, o.m, ws, sol)
	switch o.dualTy {
	case DualLP:
		return lpX, lpC
	case DualLSQ:
		return o.dualsFromLSQ(in, ws)
	default: // DualMixed: LSQ for equalities (active_both), LP elsewhere
		lsqX, lsqC := o.dualsFromLSQ(in, ws)
		for i := 0; i < o.n; i++ {
			if ws.VarState[i] == wset.ActiveBoth {
				lpX[i] = lsqX[i]
			}
		}
		for i := 0; i < o.m; i++ {
			if ws.ConState[i] == wset.ActiveBoth {
				lpC[i] = lsqC[i]
			}
		}
		return lpX, lpC
	}
}

func dualsFromLP(n, m int, ws *wset.WorkingSet, sol *lp.Solution) (lambdaX, lambdaC []float64) {
	lambdaX = make([]float64, n)
	lambdaC = make([]float64, m)
	for i := 0; i < n; i++ {
		lambdaX[i] = signedDual(ws.VarState[i], sol.VarDual[i])
	}
	for i := 0; i < m; i++ {
		lambdaC[i] = signedDual(ws.ConState[i], sol.RowDual[i])
	}
	return
}

func signedDual(state wset.ActiveState, raw float64) float64 {
	switch state {
	case wset.Inactive:
		return 0
	case wset.ActiveLower:
		return -math.Abs(raw)
	case wset.ActiveUpper:
		return math.Abs(raw)
	default: // ActiveBoth
		return raw
	}
}

// dualsFromLSQ implements the LSQ branch of spec.md §4.3 step 6: project
// the objective gradient through a temporary augmented Jacobian built
// from the just-finalized working set, and read the multiplier μ back
// into variable/constraint dual arrays keyed by working-set position.
func (o *Cauchy) dualsFromLSQ(in *Input, ws *wset.WorkingSet) (lambdaX, lambdaC []float64) {
	lambdaX = make([]float64, o.n)
	lambdaC = make([]float64, o.m)
	if ws.Size() == 0 {
		return
	}
	aj := augjac.New(o.n, o.m, 1e-10)
	if err := aj.SetIterate(in.J, ws); err != nil {
		return
	}
	_, mu, err := aj.Project(in.G)
	if err != nil {
		return
	}
	for i := 0; i < o.n; i++ {
		if p := ws.VarPos(i); p >= 0 {
			lambdaX[i] = signedDual(ws.VarState[i], -mu[p])
		}
	}
	for i := 0; i < o.m; i++ {
		if p := ws.ConPos(i); p >= 0 {
			lambdaC[i] = signedDual(ws.ConState[i], -mu[p])
		}
	}
	return
}

// PenaltyUpdate implements spec.md §4.10: when the current Cauchy LP
// leaves an infeasibility of at least feasTol, multiply the penalty v by
// 10 (up to 100 times) until that infeasibility drops below feasTol or
// one increase cuts it by at least 0.1 of its gap to the feasibility-only
// bound. Returns the (possibly unchanged) penalty to use from here on.
func (o *Cauchy) PenaltyUpdate(in *Input, feasTol float64) float64 {
	v := in.Penalty
	cur := o.Solve(in, "default", false)
	curInfeas := infeasibility(in, cur)
	if curInfeas < feasTol {
		return v
	}

	feasInput := *in
	best := o.Solve(&feasInput, "feasibility", true)
	bestInfeas := infeasibility(in, best)
	for i := 0; i < 100 && curInfeas >= feasTol; i++ {
		prevInfeas := curInfeas
		v *= 10
		trial := *in
		trial.Penalty = v
		cur = o.Solve(&trial, "default", false)
		curInfeas = infeasibility(in, cur)
		if prevInfeas-curInfeas >= 0.1*(prevInfeas-bestInfeas) {
			break
		}
	}
	return v
}

// infeasibility is the linearized constraint violation at c(x)+Jd against
// the bounds — the same quantity the LP's own slack columns carry — not
// the magnitude of the step's constraint change ‖Jd‖₁: a step that lands
// fully inside [cLo,cHi] is zero infeasibility even if Jd itself is large.
func infeasibility(in *Input, r *Result) float64 {
	if r == nil || r.Dir == nil {
		return math.Inf(1)
	}
	var sum float64
	for i := 0; i < len(in.CLo); i++ {
		act := in.C[i] + r.Dir.Jd[i]
		if v := in.CLo[i] - act; v > 0 {
			sum += v
		}
		if v := act - in.CHi[i]; v > 0 {
			sum += v
		}
	}
	return sum
}

// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sleqp

import (
	"math"

	"github.com/sleqp-go/sleqp/sparse"
)

// QuasiNewton maintains a dense secant approximation B of the objective
// Hessian ∇²f (see QuasiNewtonFunction) via BFGS, SR1, or Powell-damped-BFGS updates (spec.md §6's
// hessian_eval setting), for Problems whose Function does not supply an
// exact hess_prod. Dense rather than limited-memory: the augmented-
// Jacobian null-space projector the EQP solver runs through needs an
// actual forward matrix-vector product, not an implicit inverse
// application, so a two-loop-recursion L-BFGS (which only ever produces
// H⁻¹·v) does not fit this core's contract — per spec.md §9's "dense
// caches inside subsystems: pre-allocate once at construction" note.
type QuasiNewton struct {
	kind HessianEval
	n    int
	b    *sparse.Dense // current approximation, starts at the identity

	prevX, prevG sparse.Vector
	haveHistory  bool
}

// NewQuasiNewton allocates a quasi-Newton Hessian approximation for n
// variables, seeded at the identity.
func NewQuasiNewton(n int, kind HessianEval) *QuasiNewton {
	b := sparse.NewDense(n, n)
	for i := 0; i < n; i++ {
		b.Set(i, i, 1)
	}
	return &QuasiNewton{kind: kind, n: n, b: b}
}

// Apply computes out = B*d, usable directly as a HessApply callback.
func (o *QuasiNewton) Apply(d, out sparse.Vector) { o.b.MatVecMul(out, 1, d, false) }

// Update folds in the secant pair (s,y) = (x−x_prev, g−g_prev) observed
// across one accepted outer iteration; a no-op on the very first call,
// since there is no previous point yet.
func (o *QuasiNewton) Update(x, g sparse.Vector) {
	if !o.haveHistory {
		o.prevX, o.prevG, o.haveHistory = x.GetCopy(), g.GetCopy(), true
		return
	}
	s := x.GetCopy()
	s.Axpy(-1, o.prevX)
	y := g.GetCopy()
	y.Axpy(-1, o.prevG)
	o.prevX, o.prevG = x.GetCopy(), g.GetCopy()

	switch o.kind {
	case HessianSR1:
		o.updateSR1(s, y)
	case HessianDampedBFGS:
		o.updateBFGS(s, o.dampedY(s, y))
	default: // HessianBFGS
		if sy := s.Dot(y); sy <= 1e-10*s.Norm()*y.Norm() {
			return // skip a curvature-violating pair rather than corrupt B
		}
		o.updateBFGS(s, y)
	}
}

// updateBFGS applies B ← B − (Bs)(Bs)ᵀ/sᵀBs + yyᵀ/sᵀy, the standard
// secant update that preserves positive-definiteness when sᵀy>0.
func (o *QuasiNewton) updateBFGS(s, y sparse.Vector) {
	bs := sparse.NewVector(o.n)
	o.b.MatVecMul(bs, 1, s, false)
	sBs := s.Dot(bs)
	sy := s.Dot(y)
	if sBs <= 0 || sy <= 0 {
		return
	}
	for i := 0; i < o.n; i++ {
		for j := 0; j < o.n; j++ {
			o.b.Add(i, j, y[i]*y[j]/sy-bs[i]*bs[j]/sBs)
		}
	}
}

// updateSR1 applies the symmetric-rank-one update, skipped when the
// denominator is near-singular (the standard SR1 safeguard).
func (o *QuasiNewton) updateSR1(s, y sparse.Vector) {
	bs := sparse.NewVector(o.n)
	o.b.MatVecMul(bs, 1, s, false)
	diff := y.GetCopy()
	diff.Axpy(-1, bs)
	denom := diff.Dot(s)
	if math.Abs(denom) <= 1e-8*diff.Norm()*s.Norm() {
		return
	}
	for i := 0; i < o.n; i++ {
		for j := 0; j < o.n; j++ {
			o.b.Add(i, j, diff[i]*diff[j]/denom)
		}
	}
}

// QuasiNewtonFunction wraps a Function so hess_prod answers from the
// running QuasiNewton approximation instead of the inner Function's own
// (possibly absent) Hessian product, activated by Settings.HessianEvalType
// != HessianExact. The secant pairs are built from the *objective*
// gradient only, not the full Lagrangian gradient — B approximates ∇²f,
// not ∇²_xx L — the standard simplification for a quasi-Newton surrogate
// that doesn't also track constraint curvature; accurate when m=0 and a
// reasonable surrogate otherwise, since the active-set/working-set
// machinery already accounts for constraint linearization separately.
// ObjGrad is called by the outer loop at the seed point, once after each
// accepted step, and once more at the final point when zero-dual
// polishing runs (phase.Loop never calls it mid line search), so folding
// Update into ObjGrad observes one secant pair per accepted step with no
// extra hook into phase.Loop; a repeated point gives s=0, which every
// update rule skips.
type QuasiNewtonFunction struct {
	inner Function
	qn    *QuasiNewton
	x     sparse.Vector
}

// NewQuasiNewtonFunction wraps inner, approximating Hessian-vector
// products for an n-variable problem via kind's update rule.
func NewQuasiNewtonFunction(inner Function, n int, kind HessianEval) *QuasiNewtonFunction {
	return &QuasiNewtonFunction{inner: inner, qn: NewQuasiNewton(n, kind)}
}

func (o *QuasiNewtonFunction) SetValue(x sparse.Vector, reason Reason) (bool, int, error) {
	o.x = x.GetCopy()
	return o.inner.SetValue(x, reason)
}

func (o *QuasiNewtonFunction) ObjVal() (float64, error) { return o.inner.ObjVal() }

func (o *QuasiNewtonFunction) ObjGrad() (sparse.Vector, error) {
	g, err := o.inner.ObjGrad()
	if err != nil {
		return nil, err
	}
	o.qn.Update(o.x, g)
	return g, nil
}

func (o *QuasiNewtonFunction) ConsVal() (sparse.Vector, error)    { return o.inner.ConsVal() }
func (o *QuasiNewtonFunction) ConsJac() (*sparse.CCMatrix, error) { return o.inner.ConsJac() }

// HessProd answers from the secant approximation B rather than inner's
// own product, scaled by objDual; constraint curvature (the λ term) is
// not modeled, per the type's doc comment.
func (o *QuasiNewtonFunction) HessProd(objDual float64, d sparse.Vector, _ []float64) (sparse.Vector, error) {
	out := sparse.NewVector(len(d))
	o.qn.Apply(d, out)
	if objDual != 1 {
		for i := range out {
			out[i] *= objDual
		}
	}
	return out, nil
}

// dampedY implements Powell's 1978 damping: when the raw secant pair
// fails the curvature condition badly enough to risk an indefinite
// update, y is replaced by a convex combination of y and Bs that
// guarantees sᵀy_damped > 0.
func (o *QuasiNewton) dampedY(s, y sparse.Vector) sparse.Vector {
	bs := sparse.NewVector(o.n)
	o.b.MatVecMul(bs, 1, s, false)
	sBs := s.Dot(bs)
	sy := s.Dot(y)
	if sy >= 0.2*sBs {
		return y
	}
	theta := 0.8 * sBs / (sBs - sy)
	damped := sparse.NewVector(o.n)
	for i := range damped {
		damped[i] = theta*y[i] + (1-theta)*bs[i]
	}
	return damped
}

// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sleqp

import (
	"github.com/sleqp-go/sleqp/merit"
	"github.com/sleqp-go/sleqp/phase"
	"github.com/sleqp-go/sleqp/sparse"
)

// restorationEvaluator implements the feasibility problem spec.md §4.12's
// two-phase scheduler switches to when the optimization phase reports
// locally_infeasible: objective replaced by the ℓ1 violation of the
// original general constraints, general constraints themselves dropped
// from the subproblem (a restoration phase cannot treat as hard
// constraints the very rows it exists to make less infeasible), box
// bounds kept as the only hard constraints, and the outer loop's own
// trust region serving as the "anchor to the current iterate" the spec
// calls for. hess_prod is the zero operator — restoration runs as a
// steepest-descent trust-region method on the violation measure, the
// standard simplification since the ℓ1 violation is non-smooth at the
// boundary anyway.
type restorationEvaluator struct {
	inner    phase.Evaluator
	cLo, cHi []float64
	n, m     int

	c sparse.Vector
	J *sparse.CCMatrix
}

func newRestorationEvaluator(inner phase.Evaluator, cLo, cHi []float64, n, m int) *restorationEvaluator {
	return &restorationEvaluator{inner: inner, cLo: cLo, cHi: cHi, n: n, m: m}
}

func (o *restorationEvaluator) SetValue(x sparse.Vector, _ phase.Reason) (bool, error) {
	reject, err := o.inner.SetValue(x, phase.ReasonRestoration)
	if err != nil || reject {
		return reject, err
	}
	if o.m > 0 {
		if o.c, err = o.inner.ConsVal(); err != nil {
			return false, err
		}
		if o.J, err = o.inner.ConsJac(); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (o *restorationEvaluator) ObjVal() (float64, error) {
	var sum float64
	for i := 0; i < o.m; i++ {
		sum += merit.Violation(o.cLo[i], o.cHi[i], o.c[i])
	}
	return sum, nil
}

func (o *restorationEvaluator) ObjGrad() (sparse.Vector, error) {
	g := sparse.NewVector(o.n)
	for i := 0; i < o.m; i++ {
		var sign float64
		switch {
		case o.c[i] < o.cLo[i]:
			sign = -1
		case o.c[i] > o.cHi[i]:
			sign = 1
		default:
			continue
		}
		o.J.Row(i, func(j int, v float64) { g[j] += sign * v })
	}
	return g, nil
}

func (o *restorationEvaluator) ConsVal() (sparse.Vector, error) { return sparse.NewVector(0), nil }

func (o *restorationEvaluator) ConsJac() (*sparse.CCMatrix, error) {
	var tri sparse.Triplet
	tri.Init(0, o.n, 0)
	return tri.ToMatrix(nil), nil
}

func (o *restorationEvaluator) HessApply(_ float64, _ []float64, _, out sparse.Vector) error {
	out.Fill(0)
	return nil
}

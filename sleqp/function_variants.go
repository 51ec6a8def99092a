// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sleqp

import (
	"github.com/sleqp-go/sleqp/sparse"
)

// ResidualFunction is implemented by a model whose objective is a sum of
// squared residuals f(x) = ½‖r(x)‖²; LSQFunction wraps one into a plain
// Function by computing obj_val/obj_grad from r and its Jacobian and
// approximating the objective curvature with the Gauss-Newton term
// J_rᵀJ_r (spec.md §4.5's "LSQR for Least-Squares Functions").
type ResidualFunction interface {
	Function
	Residual() (sparse.Vector, error)
	ResidualJac() (*sparse.CCMatrix, error)
}

// LSQFunction adapts a ResidualFunction to the plain Function contract:
// obj_val/obj_grad are derived from the residual, and hess_prod uses the
// Gauss-Newton approximation for the objective part (constraint curvature
// still comes from the inner Function, since only the objective is a
// least-squares form).
type LSQFunction struct {
	inner ResidualFunction
}

// NewLSQFunction wraps inner.
func NewLSQFunction(inner ResidualFunction) *LSQFunction {
	return &LSQFunction{inner: inner}
}

func (o *LSQFunction) SetValue(x sparse.Vector, reason Reason) (bool, int, error) {
	return o.inner.SetValue(x, reason)
}

func (o *LSQFunction) ObjVal() (float64, error) {
	r, err := o.inner.Residual()
	if err != nil {
		return 0, err
	}
	return 0.5 * r.Dot(r), nil
}

func (o *LSQFunction) ObjGrad() (sparse.Vector, error) {
	r, err := o.inner.Residual()
	if err != nil {
		return nil, err
	}
	jr, err := o.inner.ResidualJac()
	if err != nil {
		return nil, err
	}
	_, n := jr.Dims()
	g := sparse.NewVector(n)
	jr.MatTrVecMul(g, 1, r, false)
	return g, nil
}

func (o *LSQFunction) ConsVal() (sparse.Vector, error)         { return o.inner.ConsVal() }
func (o *LSQFunction) ConsJac() (*sparse.CCMatrix, error)      { return o.inner.ConsJac() }

// HessProd approximates the objective curvature with the Gauss-Newton
// term J_rᵀ(J_r d) (dropping the second-order residual-curvature term,
// the standard Gauss-Newton simplification) scaled by objDual, and adds
// the constraint curvature from the inner Function at objDual=0 so the
// two contributions are never double counted.
func (o *LSQFunction) HessProd(objDual float64, d sparse.Vector, lambda []float64) (sparse.Vector, error) {
	out := sparse.NewVector(len(d))
	if objDual != 0 {
		jr, err := o.inner.ResidualJac()
		if err != nil {
			return nil, err
		}
		m, _ := jr.Dims()
		jd := sparse.NewVector(m)
		jr.MatVecMul(jd, 1, d, false)
		jtjd := sparse.NewVector(len(d))
		jr.MatTrVecMul(jtjd, 1, jd, false)
		out.Axpy(objDual, jtjd)
	}
	consPart, err := o.inner.HessProd(0, d, lambda)
	if err != nil {
		return nil, err
	}
	out.Axpy(1, consPart)
	return out, nil
}

// AccuracyControl is implemented by a Function whose evaluations have a
// configurable oracle accuracy (e.g. an adaptive quadrature objective or
// a sampled simulation); DynamicAccuracyFunction drives it per spec.md
// §4.11 step 5.
type AccuracyControl interface {
	SetAccuracy(tol float64)
}

// DynamicAccuracyFunction wraps a Function+AccuracyControl pair and
// exposes the "tighten oracle accuracy and restart" hook the trial-point
// solver's dynamic-accuracy step needs, without trial itself knowing
// anything about accuracy (trial only ever sees the plain Function
// contract through phase.Evaluator).
type DynamicAccuracyFunction struct {
	Function
	control AccuracyControl
	accuracy float64
}

// NewDynamicAccuracyFunction wraps fn, which must also implement
// AccuracyControl, starting at accuracy0.
func NewDynamicAccuracyFunction(fn Function, control AccuracyControl, accuracy0 float64) *DynamicAccuracyFunction {
	control.SetAccuracy(accuracy0)
	return &DynamicAccuracyFunction{Function: fn, control: control, accuracy: accuracy0}
}

// Accuracy returns the oracle's current accuracy level.
func (o *DynamicAccuracyFunction) Accuracy() float64 { return o.accuracy }

// Tighten halves the oracle's accuracy tolerance, the policy spec.md
// §4.11 step 5 invokes when the current accuracy exceeds
// 0.4·η_accept·(model reduction).
func (o *DynamicAccuracyFunction) Tighten() {
	o.accuracy *= 0.5
	o.control.SetAccuracy(o.accuracy)
}

// NeedsTighten reports whether the current oracle accuracy is too coarse
// relative to the model reduction just achieved (spec.md §4.11 step 5).
func (o *DynamicAccuracyFunction) NeedsTighten(etaAccept, modelReduction float64) bool {
	return o.accuracy > 0.4*etaAccept*modelReduction
}

// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sleqp

import (
	"github.com/sleqp-go/sleqp/phase"
	"github.com/sleqp-go/sleqp/sparse"
)

// Reason is the set_value reason spec.md §6 passes to Function at every
// evaluation point.
type Reason = phase.Reason

const (
	ReasonInit        = phase.ReasonInit
	ReasonChecking    = phase.ReasonChecking
	ReasonTrying      = phase.ReasonTrying
	ReasonAccepted    = phase.ReasonAccepted
	ReasonRestoration = phase.ReasonRestoration
)

// Function is the callback table spec.md §6 requires of the caller's
// model, matched operation-for-operation against the spec's table. Every
// Function implementation (including the LSQ/dynamic-accuracy/quasi-
// Newton wrappers in function_variants.go and quasinewton.go) satisfies
// this single interface, per the "polymorphism by callback tables"
// design note of spec.md §9.
type Function interface {
	// SetValue is called before any evaluation at x; may set reject=true
	// to force the driver to treat x as infeasible. nnzHint is an
	// optional hint for the caller's own sparse storage (advisory only —
	// this implementation's sparse.CCMatrix always sizes itself exactly
	// from what ConsJac returns).
	SetValue(x sparse.Vector, reason Reason) (reject bool, nnzHint int, err error)
	ObjVal() (float64, error)
	ObjGrad() (sparse.Vector, error)
	ConsVal() (sparse.Vector, error)
	ConsJac() (*sparse.CCMatrix, error)
	// HessProd returns (objDual*∇²f + Σ λ_i∇²c_i)·d, matrix-free.
	HessProd(objDual float64, d sparse.Vector, lambda []float64) (sparse.Vector, error)
}

// functionEvaluator adapts a Function to the narrower phase.Evaluator
// contract the outer loop actually drives (phase never imports sleqp, so
// it cannot see Function directly; this is the one-way adapter at the
// layer boundary).
type functionEvaluator struct {
	fn Function
}

func (e *functionEvaluator) SetValue(x sparse.Vector, reason phase.Reason) (bool, error) {
	reject, _, err := e.fn.SetValue(x, reason)
	return reject, err
}

func (e *functionEvaluator) ObjVal() (float64, error)  { return e.fn.ObjVal() }
func (e *functionEvaluator) ObjGrad() (sparse.Vector, error) { return e.fn.ObjGrad() }
func (e *functionEvaluator) ConsVal() (sparse.Vector, error) { return e.fn.ConsVal() }
func (e *functionEvaluator) ConsJac() (*sparse.CCMatrix, error) { return e.fn.ConsJac() }

func (e *functionEvaluator) HessApply(objDual float64, lambda []float64, d, out sparse.Vector) error {
	v, err := e.fn.HessProd(objDual, d, lambda)
	if err != nil {
		return err
	}
	copy(out, v)
	return nil
}

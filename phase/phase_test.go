// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleqp-go/sleqp/cauchy"
	"github.com/sleqp-go/sleqp/sparse"
	"github.com/sleqp-go/sleqp/steprule"
)

// quadraticEvaluator implements Evaluator for the unconstrained bowl
// f(x) = x0^2 + x1^2 (g=2x, H=2I), m=0.
type quadraticEvaluator struct {
	x sparse.Vector
}

func (e *quadraticEvaluator) SetValue(x sparse.Vector, reason Reason) (bool, error) {
	e.x = x.GetCopy()
	return false, nil
}
func (e *quadraticEvaluator) ObjVal() (float64, error) {
	return e.x.Dot(e.x), nil
}
func (e *quadraticEvaluator) ObjGrad() (sparse.Vector, error) {
	g := sparse.NewVector(len(e.x))
	g.Axpy(2, e.x)
	return g, nil
}
func (e *quadraticEvaluator) ConsVal() (sparse.Vector, error)      { return nil, nil }
func (e *quadraticEvaluator) ConsJac() (*sparse.CCMatrix, error)   { return nil, nil }
func (e *quadraticEvaluator) HessApply(objDual float64, lambda []float64, d, out sparse.Vector) error {
	out.ScaleInto(2*objDual, d)
	return nil
}

func defaultSettings() Settings {
	return Settings{
		DeltaLP0: 10, DeltaEQP0: 10,
		Penalty0:        10,
		StepRuleKind:    steprule.Direct,
		EtaAccept:       1e-4,
		MaxIterations:   20,
		MinRadius:       1e-12,
		FeasTol:         1e-8,
		StationarityTol: 1e-6,
		ObjLower:        -1e10,

		DualEstimation:    cauchy.DualLP,
		CauchyTau:         1e-6,
		PerformNewtonStep: true,
		UseQuadraticModel: true,
		LinesearchExact:   true,
	}
}

func TestLoopConvergesUnconstrainedQuadratic(tst *testing.T) {
	n := 2
	xLo := []float64{-10, -10}
	xHi := []float64{10, 10}
	loop := NewLoop(n, 0, xLo, xHi, nil, nil, defaultSettings())

	eval := &quadraticEvaluator{}
	res, err := loop.Run(eval, sparse.NewVectorFrom([]float64{3, -2}), nil)
	require.NoError(tst, err)
	assert.Equal(tst, StatusOptimal, res.Status)
	assert.InDelta(tst, 0, res.X[0], 1e-4)
	assert.InDelta(tst, 0, res.X[1], 1e-4)
}

func TestLoopAbortsOnIterationBudget(tst *testing.T) {
	settings := defaultSettings()
	settings.MaxIterations = 1 // one iteration runs; the budget check at the top of the second aborts
	loop := NewLoop(2, 0, []float64{-10, -10}, []float64{10, 10}, nil, nil, settings)

	eval := &quadraticEvaluator{}
	res, err := loop.Run(eval, sparse.NewVectorFrom([]float64{3, -2}), nil)
	require.NoError(tst, err)
	assert.Equal(tst, StatusAbortIter, res.Status)
	assert.Equal(tst, 1, res.Iterations)
}

func TestLoopRecordsIterationHistory(tst *testing.T) {
	loop := NewLoop(2, 0, []float64{-10, -10}, []float64{10, 10}, nil, nil, defaultSettings())
	eval := &quadraticEvaluator{}

	var records []*IterationRecord
	res, err := loop.Run(eval, sparse.NewVectorFrom([]float64{3, -2}), func(r *IterationRecord) {
		records = append(records, r)
	})
	require.NoError(tst, err)
	assert.Equal(tst, StatusOptimal, res.Status)
	require.NotEmpty(tst, records)
	assert.True(tst, records[0].Accepted)
}

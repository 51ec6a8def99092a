// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleqp-go/sleqp/sparse"
)

type fakeAugJac struct {
	d   sparse.Vector
	err error
}

func (f *fakeAugJac) SolveMinNorm(bw sparse.Vector) (sparse.Vector, error) {
	return f.d, f.err
}

func TestWorkingStepWithinRadius(tst *testing.T) {
	aj := &fakeAugJac{d: sparse.NewVectorFrom([]float64{0.1, 0.2})}
	ws := NewWorkingSet(2, 0)
	ws.SetVar(0, ActiveLower)
	ws.Finalize()

	res, err := ComputeWorkingStep(aj, &StepInput{
		X:        sparse.NewVectorFrom([]float64{1, 1}),
		XLo:      []float64{0.9, 0},
		XHi:      []float64{5, 5},
		WS:       ws,
		DeltaEQP: 1.0,
	})
	require.NoError(tst, err)
	assert.True(tst, res.InWorkingSet)
	assert.InDelta(tst, 0.1, res.D0[0], 1e-9)
	assert.InDelta(tst, 0.2, res.D0[1], 1e-9)
	expected := 1.0*1.0 - res.D0.Norm()*res.D0.Norm()
	assert.InDelta(tst, expected, res.ReducedDelta*res.ReducedDelta, 1e-9)
}

func TestWorkingStepRescaled(tst *testing.T) {
	aj := &fakeAugJac{d: sparse.NewVectorFrom([]float64{3, 4})} // norm 5
	ws := NewWorkingSet(2, 0)
	ws.SetVar(0, ActiveLower)
	ws.SetVar(1, ActiveLower)
	ws.Finalize()

	res, err := ComputeWorkingStep(aj, &StepInput{
		X:        sparse.NewVectorFrom([]float64{0, 0}),
		XLo:      []float64{0, 0},
		XHi:      []float64{10, 10},
		WS:       ws,
		DeltaEQP: 1.0,
	})
	require.NoError(tst, err)
	assert.False(tst, res.InWorkingSet)
	assert.InDelta(tst, 0.8, res.D0.Norm(), 1e-9)
	assert.InDelta(tst, 1.0*0.6, res.ReducedDelta, 1e-9)
}

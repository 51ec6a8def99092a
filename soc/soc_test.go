// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package soc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleqp-go/sleqp/sparse"
	"github.com/sleqp-go/sleqp/wset"
)

type fakeAugJac struct {
	d   sparse.Vector
	err error
}

func (f *fakeAugJac) SolveMinNorm(bw sparse.Vector) (sparse.Vector, error) {
	return f.d, f.err
}

func TestSOCCombinesTrialAndCorrection(tst *testing.T) {
	aj := &fakeAugJac{d: sparse.NewVectorFrom([]float64{0.1, -0.1})}
	ws := wset.NewWorkingSet(2, 0)
	ws.SetVar(0, wset.ActiveLower)
	ws.Finalize()

	trial := wset.NewDirection(2, 0)
	trial.D[0], trial.D[1] = 0.5, 0.5

	res, err := Compute(aj, &Input{
		X:     sparse.NewVectorFrom([]float64{0, 0}),
		Trial: trial,
		XLo:   []float64{0, 0},
		XHi:   []float64{10, 10},
		WS:    ws,
	})
	require.NoError(tst, err)
	assert.InDelta(tst, 0.6, res.D[0], 1e-9)
	assert.InDelta(tst, 0.4, res.D[1], 1e-9)
}

func TestSOCClampsToBox(tst *testing.T) {
	aj := &fakeAugJac{d: sparse.NewVectorFrom([]float64{1.0, 0})}
	ws := wset.NewWorkingSet(2, 0)
	ws.SetVar(0, wset.ActiveLower)
	ws.Finalize()

	trial := wset.NewDirection(2, 0)
	trial.D[0] = 0.9 // x+trial = 0.9, xHi=1 -> alphaMax = 0.1

	res, err := Compute(aj, &Input{
		X:     sparse.NewVectorFrom([]float64{0, 0}),
		Trial: trial,
		XLo:   []float64{0, 0},
		XHi:   []float64{1, 1},
		WS:    ws,
	})
	require.NoError(tst, err)
	assert.InDelta(tst, 1.0, res.D[0], 1e-9)
}

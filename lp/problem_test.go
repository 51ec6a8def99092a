// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleqp-go/sleqp/sparse"
)

var negInf = math.Inf(-1)

// min x+y s.t. x+y<=4, 0<=x,y<=10 -> optimum at x=y=0, obj=0.
func TestProblemTrivialBoxMin(tst *testing.T) {
	p := NewProblem(2, 1)
	p.SetColBounds(0, 0, 10)
	p.SetColBounds(1, 0, 10)
	p.SetRowBounds(0, negInf, 4)
	p.SetObjective([]float64{1, 1})
	var T sparse.Triplet
	T.Init(1, 2, 2)
	T.Put(0, 0, 1)
	T.Put(0, 1, 1)
	p.SetCoefficients(&T)

	sol := p.Solve("default")
	require.Equal(tst, StatusOptimal, sol.Status)
	assert.InDelta(tst, 0.0, sol.X[0], 1e-5)
	assert.InDelta(tst, 0.0, sol.X[1], 1e-5)
	assert.InDelta(tst, 0.0, sol.ObjValue, 1e-5)
}

// max x+y (min -x-y) s.t. x+y<=4, 0<=x,y<=10 -> optimum on the row bound.
func TestProblemActiveRowBound(tst *testing.T) {
	p := NewProblem(2, 1)
	p.SetColBounds(0, 0, 10)
	p.SetColBounds(1, 0, 10)
	p.SetRowBounds(0, negInf, 4)
	p.SetObjective([]float64{-1, -1})
	var T sparse.Triplet
	T.Init(1, 2, 2)
	T.Put(0, 0, 1)
	T.Put(0, 1, 1)
	p.SetCoefficients(&T)

	sol := p.Solve("default")
	require.Equal(tst, StatusOptimal, sol.Status)
	assert.InDelta(tst, 4.0, sol.X[0]+sol.X[1], 1e-5)
	assert.InDelta(tst, -4.0, sol.ObjValue, 1e-5)
	assert.Equal(tst, StatusUpper, sol.ConsStats[0])
}

// a shifted column (colLo != 0) exercises the rowValue shift term: min x
// s.t. 2 <= x <= 10, x <= 3 -> optimum x=2, row value classified against
// the *original* row bound [-inf,3], not the shifted standard-form value.
func TestProblemShiftedColumnRowClassification(tst *testing.T) {
	p := NewProblem(1, 1)
	p.SetColBounds(0, 2, 10)
	p.SetRowBounds(0, negInf, 3)
	p.SetObjective([]float64{1})
	var T sparse.Triplet
	T.Init(1, 1, 1)
	T.Put(0, 0, 1)
	p.SetCoefficients(&T)

	sol := p.Solve("default")
	require.Equal(tst, StatusOptimal, sol.Status)
	assert.InDelta(tst, 2.0, sol.X[0], 1e-5)
	// row value is 2, strictly inside (-inf, 3], not pinned to the upper bound
	assert.Equal(tst, StatusBasic, sol.ConsStats[0])
}

// SetCoefficients must invalidate any previously-saved basis slot.
func TestProblemSetCoefficientsInvalidatesSlot(tst *testing.T) {
	p := NewProblem(1, 1)
	p.SetColBounds(0, 0, 5)
	p.SetRowBounds(0, negInf, 5)
	p.SetObjective([]float64{1})
	var T sparse.Triplet
	T.Init(1, 1, 1)
	T.Put(0, 0, 1)
	p.SetCoefficients(&T)
	p.Solve("default")
	p.SaveBasis("default")
	require.True(tst, p.slotFor("default").have)

	p.SetCoefficients(&T)
	assert.False(tst, p.slotFor("default").have)
}

// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package merit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sleqp-go/sleqp/sparse"
	"github.com/sleqp-go/sleqp/wset"
)

func TestValueUnconstrainedIsObjective(tst *testing.T) {
	env := NewEnv(10)
	x := sparse.NewVectorFrom([]float64{0.5, 0.5})
	xLo := []float64{0, 0}
	xHi := []float64{1, 1}
	got := env.Value(3.0, nil, nil, nil, x, xLo, xHi)
	assert.InDelta(tst, 3.0, got, 1e-12)
}

func TestValueWithBoundViolation(tst *testing.T) {
	env := NewEnv(10)
	x := sparse.NewVectorFrom([]float64{-0.2, 0.5})
	xLo := []float64{0, 0}
	xHi := []float64{1, 1}
	got := env.Value(3.0, nil, nil, nil, x, xLo, xHi)
	assert.InDelta(tst, 3.0+10*0.2, got, 1e-12)
}

func TestArmijoAcceptsFullStepWhenModelImproves(tst *testing.T) {
	// phiQuad(alpha) = 10 - alpha (always improving) -> full step accepted.
	build := func(alpha float64) (*wset.Direction, float64) {
		return wset.NewDirection(1, 0), 10 - alpha
	}
	alpha, _, phiQuad := ArmijoLineSearch(build, 10, -1, 1e-4, 0.5, 1e-12)
	assert.Equal(tst, 1.0, alpha)
	assert.InDelta(tst, 9.0, phiQuad, 1e-12)
}

func TestArmijoBacktracksToCauchyWhenModelWorsens(tst *testing.T) {
	// phiQuad(alpha) increases with alpha: no sufficient decrease anywhere.
	build := func(alpha float64) (*wset.Direction, float64) {
		return wset.NewDirection(1, 0), 10 + alpha
	}
	alpha, _, phiQuad := ArmijoLineSearch(build, 10, -1, 1e-4, 0.5, 0.1)
	assert.Equal(tst, 0.0, alpha)
	assert.InDelta(tst, 10.0, phiQuad, 1e-12)
}

func TestExactLineSearchInteriorMinimum(tst *testing.T) {
	// phiQuad(alpha) = (alpha-0.3)^2 -> a=1, b=-0.6 in expanded form
	// alpha^2 - 0.6alpha + 0.09, minimizer at alpha=0.3.
	build := func(alpha float64) (*wset.Direction, float64) {
		d := alpha - 0.3
		return wset.NewDirection(1, 0), d * d
	}
	alpha, _, _ := ExactLineSearch(build, 1, -0.6)
	assert.InDelta(tst, 0.3, alpha, 1e-9)
}

func TestMaxStepLengthClampsToBox(tst *testing.T) {
	x := sparse.NewVectorFrom([]float64{0.5})
	xLo := []float64{0}
	xHi := []float64{1}
	dCauchy := wset.NewDirection(1, 0)
	dCauchy.D[0] = 0.4 // x+dCauchy = 0.9
	dNewton := wset.NewDirection(1, 0)
	dNewton.D[0] = 0.9 // delta = 0.5, would reach 1.4 at alpha=1
	alpha := MaxStepLength(x, xLo, xHi, dCauchy, dNewton)
	assert.InDelta(tst, 0.2, alpha, 1e-9) // (1-0.9)/0.5 = 0.2
}

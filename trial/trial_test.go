// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleqp-go/sleqp/cauchy"
	"github.com/sleqp-go/sleqp/lp"
	"github.com/sleqp-go/sleqp/merit"
	"github.com/sleqp-go/sleqp/sparse"
)

func TestTrialCauchyOnlyWhenNewtonStepDisabled(tst *testing.T) {
	solver := New(2, 0, Settings{DualEstimation: cauchy.DualLP, CauchyTau: 1e-6})
	env := merit.NewEnv(10)
	in := &Input{
		X:        sparse.NewVectorFrom([]float64{1, 1}),
		G:        sparse.NewVectorFrom([]float64{1, -1}),
		F:        0,
		XLo:      []float64{0, 0},
		XHi:      []float64{2, 3},
		DeltaLP:  100,
		DeltaEQP: 1,
	}
	res, err := solver.Compute(in, env, Settings{
		DualEstimation:    cauchy.DualLP,
		CauchyTau:         1e-6,
		PerformNewtonStep: false,
	})
	require.NoError(tst, err)
	assert.Equal(tst, int(lp.StatusOptimal), res.CauchyStatus)
	assert.True(tst, res.FullStep)
	assert.InDelta(tst, -1.0, res.Dir.D[0], 1e-6)
	assert.InDelta(tst, 2.0, res.Dir.D[1], 1e-6)
}

func TestTrialUnconstrainedQuadraticWithNewtonStep(tst *testing.T) {
	// f(x)=x0^2+x1^2, g=2x, H=2I; unconstrained (m=0). Cauchy step along
	// -g clipped to the trust region, Newton step should refine toward
	// the exact unconstrained minimizer -H^-1 g = -x.
	solver := New(2, 0, Settings{DualEstimation: cauchy.DualLP, CauchyTau: 1e-6})
	env := merit.NewEnv(10)
	x := sparse.NewVectorFrom([]float64{1, 1})
	g := sparse.NewVectorFrom([]float64{2, 2})
	hess := func(d, out sparse.Vector) {
		for i := range d {
			out[i] = 2 * d[i]
		}
	}
	in := &Input{
		X: x, G: g, F: 2,
		XLo: []float64{-10, -10}, XHi: []float64{10, 10},
		HessApply: hess,
		DeltaLP:   10, DeltaEQP: 10,
	}
	res, err := solver.Compute(in, env, Settings{
		DualEstimation:    cauchy.DualLP,
		CauchyTau:         1e-6,
		PerformNewtonStep: true,
		UseQuadraticModel: true,
		LinesearchExact:   true,
	})
	require.NoError(tst, err)
	require.NotNil(tst, res.Dir)
	// the Newton step alone solves to d=-x=(-1,-1); since it's strictly
	// better than the Cauchy point, the line search should move all the
	// way to (or very near) alpha=1.
	assert.InDelta(tst, -1.0, res.Dir.D[0], 1e-4)
	assert.InDelta(tst, -1.0, res.Dir.D[1], 1e-4)
}

// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package eqp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleqp-go/sleqp/sparse"
)

type identityProjector struct{}

func (identityProjector) Project(r sparse.Vector) (sparse.Vector, sparse.Vector, error) {
	return r.GetCopy(), sparse.NewVector(0), nil
}

// diagHess applies a fixed positive-definite diagonal Hessian H=diag(h).
func diagHess(h []float64) HessApply {
	return func(d, out sparse.Vector) {
		for i := range d {
			out[i] = h[i] * d[i]
		}
	}
}

func TestSteihaugUnconstrainedInteriorMinimum(tst *testing.T) {
	// min g.d + 1/2 d^T diag(h) d, unconstrained trust region large
	// enough to contain the exact minimizer d* = -h^-1 g.
	g := sparse.NewVectorFrom([]float64{2, 4})
	h := []float64{2, 4}
	solver := NewSteihaugCG(2, 0, 0, 1e-12)
	res, err := solver.Solve(identityProjector{}, g, diagHess(h), sparse.NewVector(2), 100)
	require.NoError(tst, err)
	assert.False(tst, res.HitBoundary)
	assert.InDelta(tst, -1.0, res.Dir.D[0], 1e-6)
	assert.InDelta(tst, -1.0, res.Dir.D[1], 1e-6)
}

func TestSteihaugHitsBoundary(tst *testing.T) {
	g := sparse.NewVectorFrom([]float64{2, 4})
	h := []float64{2, 4}
	solver := NewSteihaugCG(2, 0, 0, 1e-12)
	res, err := solver.Solve(identityProjector{}, g, diagHess(h), sparse.NewVector(2), 0.5)
	require.NoError(tst, err)
	assert.True(tst, res.HitBoundary)
	assert.InDelta(tst, 0.5, res.Dir.D.Norm(), 1e-6)
}

func TestSteihaugNegativeCurvature(tst *testing.T) {
	g := sparse.NewVectorFrom([]float64{1, 0})
	h := []float64{-1, 1}
	solver := NewSteihaugCG(2, 0, 0, 1e-12)
	res, err := solver.Solve(identityProjector{}, g, diagHess(h), sparse.NewVector(2), 1.0)
	require.NoError(tst, err)
	assert.True(tst, res.HitBoundary)
	assert.InDelta(tst, 1.0, res.Dir.D.Norm(), 1e-6)
}

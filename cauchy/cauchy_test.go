// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cauchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleqp-go/sleqp/lp"
	"github.com/sleqp-go/sleqp/sparse"
	"github.com/sleqp-go/sleqp/wset"
)

// spec.md §8 scenario 2: box-constrained Cauchy with a large trust radius.
func TestCauchyBoxLargeTrustRadius(tst *testing.T) {
	c := New(2, 0, 1e-6, DualLP)
	in := &Input{
		X:       sparse.NewVectorFrom([]float64{1, 1}),
		G:       sparse.NewVectorFrom([]float64{1, -1}),
		XLo:     []float64{0, 0},
		XHi:     []float64{2, 3},
		DeltaLP: 100,
	}
	res := c.Solve(in, "default", false)
	require.Equal(tst, lp.StatusOptimal, res.Status)
	assert.InDelta(tst, -1.0, res.Dir.D[0], 1e-6)
	assert.InDelta(tst, 2.0, res.Dir.D[1], 1e-6)
	assert.Equal(tst, wset.ActiveLower, res.WS.VarState[0])
	assert.Equal(tst, wset.ActiveUpper, res.WS.VarState[1])
	assert.InDelta(tst, -1.0, res.LambdaX[0], 1e-6)
	assert.InDelta(tst, 1.0, res.LambdaX[1], 1e-6)
}

// spec.md §8 scenario 3: same problem with a small trust radius.
func TestCauchyBoxSmallTrustRadius(tst *testing.T) {
	c := New(2, 0, 1e-6, DualLP)
	in := &Input{
		X:       sparse.NewVectorFrom([]float64{1, 1}),
		G:       sparse.NewVectorFrom([]float64{1, -1}),
		XLo:     []float64{0, 0},
		XHi:     []float64{2, 3},
		DeltaLP: 0.1,
	}
	res := c.Solve(in, "default", false)
	assert.InDelta(tst, -0.1, res.Dir.D[0], 1e-6)
	assert.InDelta(tst, 0.1, res.Dir.D[1], 1e-6)
	assert.Equal(tst, wset.Inactive, res.WS.VarState[0])
	assert.Equal(tst, wset.Inactive, res.WS.VarState[1])
	assert.InDelta(tst, 0.0, res.LambdaX[0], 1e-6)
	assert.InDelta(tst, 0.0, res.LambdaX[1], 1e-6)
}

// spec.md §8 scenario 6 ("simple-dual test") is an assertion about the
// solver's dual reporting at a prescribed stationary working set, not
// about what the Cauchy LP itself would choose as a descent direction
// from that point; it is exercised at the sleqp-package level instead
// (see sleqp's solver tests), where the working set is the one the outer
// loop actually converges to.

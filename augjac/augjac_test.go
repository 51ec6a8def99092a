// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package augjac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleqp-go/sleqp/sparse"
	"github.com/sleqp-go/sleqp/wset"
)

func TestUnconstrainedIsIdentity(tst *testing.T) {
	// spec.md §8: unconstrained working set is empty, aug-Jacobian
	// degenerates to the identity projector.
	ws := wset.NewWorkingSet(3, 0)
	ws.Finalize()

	aj := New(3, 0, 1e-10)
	require.NoError(tst, aj.SetIterate(nil, ws))

	r := sparse.NewVectorFrom([]float64{1, 2, 3})
	d, mu, err := aj.Project(r)
	require.NoError(tst, err)
	assert.Equal(tst, 0, len(mu))
	for i := range r {
		assert.InDelta(tst, r[i], d[i], 1e-9)
	}
}

func TestActiveVariableBound(tst *testing.T) {
	// one variable pinned at its bound: A = [1, 0]
	ws := wset.NewWorkingSet(2, 0)
	ws.SetVar(0, wset.ActiveLower)
	ws.Finalize()
	require.Equal(tst, 1, ws.Size())

	aj := New(2, 0, 1e-10)
	require.NoError(tst, aj.SetIterate(nil, ws))

	// minimum-norm d with d[0] = 5 exactly, d[1] free -> 0 (min norm)
	d, err := aj.SolveMinNorm(sparse.NewVectorFrom([]float64{5}))
	require.NoError(tst, err)
	assert.InDelta(tst, 5.0, d[0], 1e-9)
	assert.InDelta(tst, 0.0, d[1], 1e-9)
}

func TestActiveConstraintRow(tst *testing.T) {
	// J = [[1, 1]], constraint 0 active -> A = [1 1]
	var T sparse.Triplet
	T.Init(1, 2, 2)
	T.Put(0, 0, 1)
	T.Put(0, 1, 1)
	J := T.ToMatrix(nil)

	ws := wset.NewWorkingSet(2, 1)
	ws.SetCon(0, wset.ActiveLower)
	ws.Finalize()

	aj := New(2, 1, 1e-10)
	require.NoError(tst, aj.SetIterate(J, ws))

	d, err := aj.SolveMinNorm(sparse.NewVectorFrom([]float64{4}))
	require.NoError(tst, err)
	// min-norm solution of x+y=4 is (2,2)
	assert.InDelta(tst, 2.0, d[0], 1e-9)
	assert.InDelta(tst, 2.0, d[1], 1e-9)
}

// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTriplet01(tst *testing.T) {
	// 2x2 matrix [[2,1],[0,3]] with a duplicate entry at (1,1)
	var T Triplet
	T.Init(2, 2, 4)
	T.Put(0, 0, 2.0)
	T.Put(0, 1, 1.0)
	T.Put(1, 1, 1.0)
	T.Put(1, 1, 2.0) // duplicate, should sum to 3.0
	mat := T.ToMatrix(nil)

	m, n := mat.Dims()
	assert.Equal(tst, 2, m)
	assert.Equal(tst, 2, n)
	assert.Equal(tst, 3, mat.NNZ())

	d := mat.ToDense()
	assert.InDelta(tst, 2.0, d.Get(0, 0), 1e-12)
	assert.InDelta(tst, 1.0, d.Get(0, 1), 1e-12)
	assert.InDelta(tst, 0.0, d.Get(1, 0), 1e-12)
	assert.InDelta(tst, 3.0, d.Get(1, 1), 1e-12)
}

func TestTriplet02MatVec(tst *testing.T) {
	var T Triplet
	T.Init(2, 2, 4)
	T.Put(0, 0, 2.0)
	T.Put(0, 1, 1.0)
	T.Put(1, 0, 3.0)
	T.Put(1, 1, 4.0)
	mat := T.ToMatrix(nil)

	x := NewVectorFrom([]float64{1, 1})
	y := NewVector(2)
	mat.MatVecMul(y, 1.0, x, false)
	assert.InDelta(tst, 3.0, y[0], 1e-12)
	assert.InDelta(tst, 7.0, y[1], 1e-12)

	yT := NewVector(2)
	mat.MatTrVecMul(yT, 1.0, x, false)
	assert.InDelta(tst, 5.0, yT[0], 1e-12)
	assert.InDelta(tst, 5.0, yT[1], 1e-12)
}

func TestVectorNorms(tst *testing.T) {
	v := NewVectorFrom([]float64{3, -4})
	assert.InDelta(tst, 5.0, v.Norm(), 1e-12)
	assert.InDelta(tst, 4.0, v.NormInf(), 1e-12)

	w := NewVectorFrom([]float64{1, 2})
	assert.InDelta(tst, 3-8, v.Dot(w), 1e-12)
}

func TestDenseStart(tst *testing.T) {
	var T Triplet
	T.Init(1, 1, 1)
	T.Put(0, 0, 5)
	T.Start()
	T.Put(0, 0, 7)
	m := T.ToMatrix(nil)
	assert.Equal(tst, 1, m.NNZ())
	assert.InDelta(tst, 7.0, m.ToDense().Get(0, 0), 1e-12)
}

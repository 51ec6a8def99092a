// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package steprule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectAcceptsGoodReduction(tst *testing.T) {
	r := New(Direct, 0, 1e-4)
	ratio, accept := r.Evaluate(10, 5, 6) // ref=10, actual reduction 5, model reduction 4
	assert.InDelta(tst, 1.25, ratio, 1e-9)
	assert.True(tst, accept)
}

func TestDirectRejectsPoorReduction(tst *testing.T) {
	r := New(Direct, 0, 1e-4)
	ratio, accept := r.Evaluate(10, 9.99999, 9) // tiny actual reduction (1e-5) vs big model reduction (1)
	assert.Less(tst, ratio, 1e-4)
	assert.False(tst, accept)
}

func TestWindowUsesRecentMaximum(tst *testing.T) {
	r := New(Window, 3, 1e-4)
	r.RecordIteration(10)
	r.RecordIteration(12) // max of the window
	r.RecordIteration(8)
	// current phi is low (5), but window max is 12: a trial merit of 9
	// is still a big improvement against that higher reference.
	ratio, accept := r.Evaluate(5, 9, 10)
	assert.InDelta(tst, (12.0-9)/(12.0-10), ratio, 1e-9)
	assert.True(tst, accept)
}

func TestMinStepUsesRecentMinimum(tst *testing.T) {
	r := New(MinStep, 3, 1e-4)
	r.RecordIteration(10)
	r.RecordIteration(4) // min of the window
	r.RecordIteration(8)
	ratio, _ := r.Evaluate(20, 3.9, 3.5)
	assert.InDelta(tst, (4.0-3.9)/(4.0-3.5), ratio, 1e-9)
}

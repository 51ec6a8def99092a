// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sleqp

import (
	"math"

	"github.com/sleqp-go/sleqp/phase"
	"github.com/sleqp-go/sleqp/sparse"
)

// History is an append-only ledger of one solve's outer-loop iterations,
// fed by phase.Loop's onIteration callback (SPEC_FULL.md §6.11). It keeps
// the data core of the teacher's opt.History — the HistX/HistF/HistI
// trio — and drops every plt-backed Plot* method, since this core has no
// business owning a plotting window; a caller wanting a trajectory plot
// reads History.HistX itself.
type History struct {
	Ndim int

	HistX        []sparse.Vector
	HistF        []float64
	HistPhi      []float64
	HistRatio    []float64
	HistAccepted []bool
	HistDeltaLP  []float64
	HistDeltaEQP []float64
}

// NewHistory allocates an empty History for an n-dimensional problem.
func NewHistory(n int) *History {
	return &History{Ndim: n}
}

// Append records one outer-loop iteration.
func (o *History) Append(rec *phase.IterationRecord) {
	if o.Ndim == 0 {
		o.Ndim = len(rec.X)
	}
	o.HistX = append(o.HistX, rec.X.GetCopy())
	o.HistF = append(o.HistF, rec.F)
	o.HistPhi = append(o.HistPhi, rec.PhiTrial)
	o.HistRatio = append(o.HistRatio, rec.Ratio)
	o.HistAccepted = append(o.HistAccepted, rec.Accepted)
	o.HistDeltaLP = append(o.HistDeltaLP, rec.DeltaLP)
	o.HistDeltaEQP = append(o.HistDeltaEQP, rec.DeltaEQP)
}

// Len returns the number of recorded points, one per recorded iteration
// (the seed point itself is not recorded).
func (o *History) Len() int { return len(o.HistF) }

// Limits computes the per-variable range of X across the whole history,
// kept from the teacher's History.Limits for a caller that wants to frame
// its own plot of the trajectory.
func (o *History) Limits() (xMin, xMax []float64) {
	if len(o.HistX) == 0 {
		return nil, nil
	}
	xMin = make([]float64, o.Ndim)
	xMax = make([]float64, o.Ndim)
	for j := 0; j < o.Ndim; j++ {
		xMin[j] = math.MaxFloat64
		xMax[j] = -math.MaxFloat64
		for _, x := range o.HistX {
			if x[j] < xMin[j] {
				xMin[j] = x[j]
			}
			if x[j] > xMax[j] {
				xMax[j] = x[j]
			}
		}
	}
	return
}

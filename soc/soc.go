// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package soc implements the second-order correction of spec.md §4.7:
// a minimum-norm correction applied to a rejected trial step to fix the
// Maratos effect, tried at most once per outer iteration.
package soc

import (
	"math"

	"github.com/sleqp-go/sleqp/sparse"
	"github.com/sleqp-go/sleqp/wset"
)

// AugJacSolver is the minimum-norm solve the correction needs (see
// wset.AugJacSolver: the same narrow interface, so soc need not import
// package augjac directly).
type AugJacSolver interface {
	SolveMinNorm(bw sparse.Vector) (sparse.Vector, error)
}

// Input bundles the trial iterate's linearized constraint value and the
// working set + bounds the correction is solved against.
type Input struct {
	X        sparse.Vector // base iterate (pre-step)
	Trial    *wset.Direction
	XLo, XHi []float64
	CLo, CHi []float64
	WS       *wset.WorkingSet
}

// Compute implements spec.md §4.7: solve the minimum-norm correction
// Δd against the linearized residual of the active constraints at the
// trial point x+d_trial, then combine as
//
//	d_SOC = d_trial + min(alphaMax, 1)·Δd
//
// where alphaMax is the maximum feasible step keeping x+d_SOC inside
// [xLo,xHi].
func Compute(aj AugJacSolver, in *Input) (*wset.Direction, error) {
	n := len(in.X)
	xTrial := sparse.NewVector(n)
	for i := 0; i < n; i++ {
		xTrial[i] = in.X[i] + in.Trial.D[i]
	}
	rhs := wset.BuildActiveRHS(in.WS, xTrial, in.Trial.Jd, in.XLo, in.XHi, in.CLo, in.CHi)

	delta, err := aj.SolveMinNorm(rhs)
	if err != nil {
		return nil, err
	}

	alphaMax := 1.0
	for i := 0; i < n; i++ {
		if delta[i] == 0 {
			continue
		}
		base := xTrial[i]
		var bound float64
		if delta[i] > 0 {
			bound = (in.XHi[i] - base) / delta[i]
		} else {
			bound = (in.XLo[i] - base) / delta[i]
		}
		if bound < alphaMax {
			alphaMax = bound
		}
	}
	alphaMax = math.Min(alphaMax, 1)
	if alphaMax < 0 {
		alphaMax = 0
	}

	soc := wset.NewDirection(n, len(in.Trial.Jd))
	soc.D.Axpy(1, in.Trial.D)
	soc.D.Axpy(alphaMax, delta)
	return soc, nil
}

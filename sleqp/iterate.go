// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sleqp

import (
	"github.com/sleqp-go/sleqp/merit"
	"github.com/sleqp-go/sleqp/sparse"
	"github.com/sleqp-go/sleqp/wset"
)

// Iterate is the primal-dual snapshot spec.md §6's solution() returns.
type Iterate struct {
	X                sparse.Vector
	F                float64
	C                sparse.Vector
	LambdaX, LambdaC []float64
	WS               *wset.WorkingSet
}

// ViolatedConstraints returns the indices of general constraint rows (and,
// with index offset by m, variable bounds) that it.C/it.X violate beyond
// tol, per spec.md §6's violated_constraints(iterate) → indices.
func ViolatedConstraints(p *Problem, it *Iterate, tol float64) []int {
	var idx []int
	for i := 0; i < p.M; i++ {
		if merit.Violation(p.CLo[i], p.CHi[i], it.C[i]) > tol {
			idx = append(idx, i)
		}
	}
	for i := 0; i < p.N; i++ {
		if merit.Violation(p.XLo[i], p.XHi[i], it.X[i]) > tol {
			idx = append(idx, p.M+i)
		}
	}
	return idx
}

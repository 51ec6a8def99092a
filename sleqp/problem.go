// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sleqp

// Problem bundles a Function with the problem dimensions spec.md §6's
// create(problem, settings, x0, scaling?) takes as its first argument:
// variable count, general-constraint count, and their respective bound
// arrays.
type Problem struct {
	N, M     int
	XLo, XHi []float64
	CLo, CHi []float64
	ObjLower float64
	Fn       Function
}

// NewProblem validates dimensions and returns a Problem wrapping fn.
func NewProblem(n, m int, xLo, xHi, cLo, cHi []float64, objLower float64, fn Function) (*Problem, error) {
	if fn == nil {
		return nil, NewError(KindIllegalArgument, "nil Function")
	}
	if len(xLo) != n || len(xHi) != n {
		return nil, NewError(KindIllegalArgument, "variable bound length mismatch")
	}
	if m > 0 && (len(cLo) != m || len(cHi) != m) {
		return nil, NewError(KindIllegalArgument, "constraint bound length mismatch")
	}
	for i := 0; i < n; i++ {
		if xLo[i] > xHi[i] {
			return nil, NewError(KindIllegalArgument, "inconsistent variable bounds")
		}
	}
	for i := 0; i < m; i++ {
		if cLo[i] > cHi[i] {
			return nil, NewError(KindIllegalArgument, "inconsistent constraint bounds")
		}
	}
	return &Problem{N: n, M: m, XLo: xLo, XHi: xHi, CLo: cLo, CHi: cHi, ObjLower: objLower, Fn: fn}, nil
}

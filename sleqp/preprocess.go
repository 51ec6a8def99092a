// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sleqp

import (
	"math"

	"github.com/sleqp-go/sleqp/sparse"
)

// Unpreprocess maps a reduced-space solution back to the original
// variable count (SPEC_FULL.md §6.14); Solver.Solution applies it before
// returning to the caller.
type Unpreprocess struct {
	n        int
	freeIdx  []int // reduced index -> original index
	fixedVal map[int]float64
}

// Apply expands a reduced-space vector back to the original n variables.
func (u *Unpreprocess) Apply(xRed sparse.Vector) sparse.Vector {
	x := sparse.NewVector(u.n)
	for k, orig := range u.freeIdx {
		x[orig] = xRed[k]
	}
	for orig, v := range u.fixedVal {
		x[orig] = v
	}
	return x
}

// reducedFunction adapts an original Function to the free-variable/active-
// row space Preprocess exposes: it fills in the fixed coordinates before
// forwarding evaluations, and drops rows that Preprocess fully consumed
// (every column in the row is fixed) since those rows no longer carry any
// information the reduced problem's trust-region subproblem needs.
type reducedFunction struct {
	inner      Function
	n, mOrig   int // original dimensions
	freeIdx    []int
	fixedVal   map[int]float64
	activeRows []int // reduced row -> original row
}

func (o *reducedFunction) expand(xRed sparse.Vector) sparse.Vector {
	x := sparse.NewVector(o.n)
	for k, orig := range o.freeIdx {
		x[orig] = xRed[k]
	}
	for orig, v := range o.fixedVal {
		x[orig] = v
	}
	return x
}

func (o *reducedFunction) SetValue(xRed sparse.Vector, reason Reason) (bool, int, error) {
	return o.inner.SetValue(o.expand(xRed), reason)
}

func (o *reducedFunction) ObjVal() (float64, error) { return o.inner.ObjVal() }

func (o *reducedFunction) ObjGrad() (sparse.Vector, error) {
	g, err := o.inner.ObjGrad()
	if err != nil {
		return nil, err
	}
	gRed := sparse.NewVector(len(o.freeIdx))
	for k, orig := range o.freeIdx {
		gRed[k] = g[orig]
	}
	return gRed, nil
}

func (o *reducedFunction) ConsVal() (sparse.Vector, error) {
	if len(o.activeRows) == 0 {
		return sparse.NewVector(0), nil
	}
	c, err := o.inner.ConsVal()
	if err != nil {
		return nil, err
	}
	cRed := sparse.NewVector(len(o.activeRows))
	for k, orig := range o.activeRows {
		cRed[k] = c[orig]
	}
	return cRed, nil
}

func (o *reducedFunction) ConsJac() (*sparse.CCMatrix, error) {
	if len(o.activeRows) == 0 {
		var tri sparse.Triplet
		tri.Init(0, len(o.freeIdx), 0)
		return tri.ToMatrix(nil), nil
	}
	J, err := o.inner.ConsJac()
	if err != nil {
		return nil, err
	}
	rowOf := make(map[int]int, len(o.activeRows))
	for k, orig := range o.activeRows {
		rowOf[orig] = k
	}
	var tri sparse.Triplet
	tri.Init(len(o.activeRows), len(o.freeIdx), J.NNZ())
	for k, orig := range o.freeIdx {
		J.Col(orig, func(row int, v float64) {
			if rk, ok := rowOf[row]; ok {
				tri.Put(rk, k, v)
			}
		})
	}
	return tri.ToMatrix(nil), nil
}

func (o *reducedFunction) HessProd(objDual float64, dRed sparse.Vector, lambda []float64) (sparse.Vector, error) {
	lambdaFull := make([]float64, o.mOrig)
	for k, orig := range o.activeRows {
		if k < len(lambda) {
			lambdaFull[orig] = lambda[k]
		}
	}
	hv, err := o.inner.HessProd(objDual, o.expandDir(dRed), lambdaFull)
	if err != nil {
		return nil, err
	}
	hvRed := sparse.NewVector(len(o.freeIdx))
	for k, orig := range o.freeIdx {
		hvRed[k] = hv[orig]
	}
	return hvRed, nil
}

// expandDir embeds a reduced-space direction into the original space with
// zeros at fixed coordinates (a direction, unlike a point, carries no
// fixed-value offset).
func (o *reducedFunction) expandDir(dRed sparse.Vector) sparse.Vector {
	d := sparse.NewVector(o.n)
	for k, orig := range o.freeIdx {
		d[orig] = dRed[k]
	}
	return d
}

// Preprocess detects variables forced to a single value, substitutes them
// out, and returns the reduced Problem plus the inverse mapping
// (SPEC_FULL.md §6.14). Two detections, applied to a fixed point (a
// variable fixed by one pass may make another row forcing):
//
//   - coincident bounds: x_lo[i]==x_hi[i].
//   - forcing rows (the classic LP-presolve reduction): a row whose
//     worst-case activity, computed from the current variable bounds,
//     exactly meets cLo (for the ">=" side) or cHi (for the "<=" side) —
//     every variable in that row must sit at the bound that attains the
//     worst case, or the row would be violated.
//
// The constraint Jacobian is evaluated once, assuming the rows it
// describes are linear (true of every row this detection can act on: a
// row's worst-case activity is only well-defined for a linear map).
func Preprocess(p *Problem) (*Problem, *Unpreprocess, error) {
	fixedVal := make(map[int]float64, p.N)
	xLo := append([]float64(nil), p.XLo...)
	xHi := append([]float64(nil), p.XHi...)
	for i := 0; i < p.N; i++ {
		if p.XLo[i] == p.XHi[i] {
			fixedVal[i] = p.XLo[i]
		}
	}

	consumedRow := make(map[int]bool, p.M)
	if p.M > 0 {
		x0 := referencePoint(p, fixedVal)
		if _, _, err := p.Fn.SetValue(x0, ReasonInit); err != nil {
			return nil, nil, err
		}
		J, err := p.Fn.ConsJac()
		if err != nil {
			return nil, nil, err
		}

		for pass, changed := 0, true; changed && pass <= p.N; pass++ {
			changed = false
			for i := 0; i < p.M; i++ {
				if forceRow(J, i, p.CLo[i], p.CHi[i], xLo, xHi, fixedVal) {
					changed = true
				}
			}
		}
		for i := 0; i < p.M; i++ {
			consumedRow[i] = rowFullyFixed(J, i, fixedVal)
		}
	}

	freeIdx := make([]int, 0, p.N-len(fixedVal))
	for i := 0; i < p.N; i++ {
		if _, fixed := fixedVal[i]; !fixed {
			freeIdx = append(freeIdx, i)
		}
	}
	activeRows := make([]int, 0, p.M)
	for i := 0; i < p.M; i++ {
		if !consumedRow[i] {
			activeRows = append(activeRows, i)
		}
	}

	xLoRed := make([]float64, len(freeIdx))
	xHiRed := make([]float64, len(freeIdx))
	for k, orig := range freeIdx {
		xLoRed[k], xHiRed[k] = p.XLo[orig], p.XHi[orig]
	}
	cLoRed := make([]float64, len(activeRows))
	cHiRed := make([]float64, len(activeRows))
	for k, orig := range activeRows {
		cLoRed[k], cHiRed[k] = p.CLo[orig], p.CHi[orig]
	}

	reduced := &reducedFunction{inner: p.Fn, n: p.N, mOrig: p.M, freeIdx: freeIdx, fixedVal: fixedVal, activeRows: activeRows}
	redProblem, err := NewProblem(len(freeIdx), len(activeRows), xLoRed, xHiRed, cLoRed, cHiRed, p.ObjLower, reduced)
	if err != nil {
		return nil, nil, err
	}
	return redProblem, &Unpreprocess{n: p.N, freeIdx: freeIdx, fixedVal: fixedVal}, nil
}

// referencePoint builds an evaluation point for the one-time Jacobian read
// Preprocess needs: fixed coordinates at their forced value, free
// coordinates at the midpoint of their bounds (or zero, if unbounded).
func referencePoint(p *Problem, fixedVal map[int]float64) sparse.Vector {
	x0 := sparse.NewVector(p.N)
	for i := range x0 {
		switch {
		case isFixed(fixedVal, i):
			x0[i] = fixedVal[i]
		case math.IsInf(p.XLo[i], -1) || math.IsInf(p.XHi[i], 1):
			x0[i] = 0
		default:
			x0[i] = 0.5 * (p.XLo[i] + p.XHi[i])
		}
	}
	return x0
}

func isFixed(fixedVal map[int]float64, i int) bool {
	_, ok := fixedVal[i]
	return ok
}

// forceRow checks row i for the forcing-constraint condition against the
// current (possibly already-tightened) xLo/xHi, fixing every column it
// touches when triggered. Returns whether it fixed anything new.
func forceRow(J *sparse.CCMatrix, i int, cLo, cHi float64, xLo, xHi []float64, fixedVal map[int]float64) bool {
	type term struct {
		j int
		a float64
	}
	var terms []term
	J.Row(i, func(j int, a float64) {
		if a != 0 {
			terms = append(terms, term{j, a})
		}
	})
	if len(terms) == 0 {
		return false
	}

	var minAct, maxAct float64
	for _, t := range terms {
		if t.a > 0 {
			maxAct += t.a * xHi[t.j]
			minAct += t.a * xLo[t.j]
		} else {
			maxAct += t.a * xLo[t.j]
			minAct += t.a * xHi[t.j]
		}
	}

	const eps = 1e-9
	fix := func(atUpperForPositive bool) bool {
		changed := false
		for _, t := range terms {
			if isFixed(fixedVal, t.j) {
				continue
			}
			v := xHi[t.j]
			if (t.a < 0) == atUpperForPositive {
				v = xLo[t.j]
			}
			fixedVal[t.j] = v
			xLo[t.j], xHi[t.j] = v, v
			changed = true
		}
		return changed
	}

	if !math.IsInf(cLo, -1) && !math.IsInf(maxAct, 1) && maxAct <= cLo+eps {
		return fix(true)
	}
	if !math.IsInf(cHi, 1) && !math.IsInf(minAct, -1) && minAct >= cHi-eps {
		return fix(false)
	}
	return false
}

// rowFullyFixed reports whether every column row i touches is in fixedVal,
// meaning the row carries no information a reduced problem could still
// use (it is either already satisfied by construction or the preprocessor
// would have already reported infeasibility).
func rowFullyFixed(J *sparse.CCMatrix, i int, fixedVal map[int]float64) bool {
	allFixed := true
	J.Row(i, func(j int, v float64) {
		if v != 0 && !isFixed(fixedVal, j) {
			allFixed = false
		}
	})
	return allFixed
}

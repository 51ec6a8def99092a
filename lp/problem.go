// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lp implements the uniform LP contract of spec.md §4.2: a
// bounded-variable, bounded-row linear program, solved and read back out
// as primal/dual solutions and basis statuses, with named save/restore
// slots that cache each slot's last solution (the cached point does not
// warm-start the next solve).
package lp

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/sleqp-go/sleqp/sparse"
)

const bigBound = 1e8

// Problem is a minimization LP in the bounded form spec.md §4.2 requires:
//
//	min   cᵀx
//	s.t.  rowLo ≤ A x ≤ rowHi
//	      colLo ≤   x ≤ colHi
//
// Solve translates this into the equality/non-negative standard form the
// underlying Mehrotra interior-point engine consumes (see ipm.go), via the
// classic "bound as an extra non-negative slack row" reduction: every
// bounded column/row becomes one non-negative variable plus (when the
// bound is two-sided) one extra equality row absorbing the range into a
// second non-negative slack. Infinite bounds are replaced by a large
// finite constant (bigBound, scaled by the data) rather than handled as a
// genuinely free variable, trading a small amount of fidelity at the
// extreme tails for a much simpler, single-code-path reduction; see
// DESIGN.md for why gonum's equality-only lp.Simplex was not used
// directly here.
type Problem struct {
	nCols, nRows int
	colLo, colHi []float64
	rowLo, rowHi []float64
	obj          []float64
	coeff        *sparse.Triplet // nRows x nCols, rebuilt by SetCoefficients

	timeLimit float64 // seconds, stored by SetTimeLimit; not read by Solve

	slots map[string]*basisSlot
}

type basisSlot struct {
	have    bool
	x       []float64 // last primal solution in standard form (cached, not read by compile)
}

// NewProblem allocates an LP with nCols columns and nRows rows, bounds
// initially ±∞ (spec.md §4.2 "create").
func NewProblem(nCols, nRows int) *Problem {
	o := &Problem{
		nCols: nCols,
		nRows: nRows,
		colLo: make([]float64, nCols),
		colHi: make([]float64, nCols),
		rowLo: make([]float64, nRows),
		rowHi: make([]float64, nRows),
		obj:   make([]float64, nCols),
		slots: make(map[string]*basisSlot),
	}
	for i := range o.colLo {
		o.colLo[i], o.colHi[i] = math.Inf(-1), math.Inf(1)
	}
	for i := range o.rowLo {
		o.rowLo[i], o.rowHi[i] = math.Inf(-1), math.Inf(1)
	}
	return o
}

// SetColBounds sets the bounds of column j.
func (o *Problem) SetColBounds(j int, lo, hi float64) { o.colLo[j], o.colHi[j] = lo, hi }

// SetRowBounds sets the bounds of row i.
func (o *Problem) SetRowBounds(i int, lo, hi float64) { o.rowLo[i], o.rowHi[i] = lo, hi }

// SetObjective sets the full cost vector c.
func (o *Problem) SetObjective(c []float64) { copy(o.obj, c) }

// SetCoefficients installs the constraint matrix A (nRows x nCols) and
// invalidates every cached basis slot — per spec.md §9's open-question
// resolution, a coefficient change invalidates warm starts but a bound
// change (SetColBounds/SetRowBounds) does not.
func (o *Problem) SetCoefficients(A *sparse.Triplet) {
	o.coeff = A
	for _, s := range o.slots {
		s.have = false
	}
}

// SetTimeLimit records a wall-clock budget in seconds (spec.md §4.2).
// Solve does not read it: the interior-point run is bounded only by its
// iteration cap, and no solve ends with StatusTimeLimit.
func (o *Problem) SetTimeLimit(seconds float64) { o.timeLimit = seconds }

// Solution is the outcome of one Solve call.
type Solution struct {
	Status    Status
	X         []float64 // length nCols
	RowDual   []float64 // length nRows, dual of the row range constraints
	VarDual   []float64 // length nCols, reduced cost of each column's own bound
	VarStats  []BasisStatus
	ConsStats []BasisStatus
	ObjValue  float64
}

// Solve runs the LP for the named objective slot (spec.md §4.3 step 2:
// "default" | "feasibility" | "mixed"); slot is purely a cache key for
// basis save/restore, it does not change the problem being solved.
func (o *Problem) Solve(slot string) *Solution {
	std := o.compile()
	ipm := newMehrotraIPM(std.A, std.b, std.c, 200, 1e-9)
	res := ipm.solve()

	sl := o.slotFor(slot)
	sol := &Solution{Status: res.status}
	if res.status != StatusOptimal && res.status != StatusUnknown {
		return sol
	}
	sl.have = true
	sl.x = res.x

	sol.X = make([]float64, o.nCols)
	for j := 0; j < o.nCols; j++ {
		sol.X[j] = std.colLo[j] + res.x[std.colIndex[j]]
	}
	sol.RowDual = make([]float64, o.nRows)
	for i := 0; i < o.nRows; i++ {
		if std.rowDualIndex[i] >= 0 {
			sol.RowDual[i] = res.y[std.rowDualIndex[i]]
		}
	}
	sol.VarStats = make([]BasisStatus, o.nCols)
	sol.VarDual = make([]float64, o.nCols)
	for j := 0; j < o.nCols; j++ {
		sol.VarStats[j] = classify(sol.X[j], o.colLo[j], o.colHi[j])
		// reduced cost of x_j = s(p_j) - s(w_j): positive when the lower
		// bound is active, negative when the upper bound (w_j = 0) is.
		if idx, w := std.colIndex[j], o.nCols+j; w < len(res.s) {
			sol.VarDual[j] = res.s[idx] - res.s[w]
		}
	}
	sol.ConsStats = make([]BasisStatus, o.nRows)
	for i := 0; i < o.nRows; i++ {
		// row value = A x, reuse std construction's row evaluation
		v := std.rowValue(i, res.x)
		sol.ConsStats[i] = classify(v, o.rowLo[i], o.rowHi[i])
	}
	var obj float64
	for j := range o.obj {
		obj += o.obj[j] * sol.X[j]
	}
	sol.ObjValue = obj
	return sol
}

func classify(v, lo, hi float64) BasisStatus {
	const eps = 1e-7
	switch {
	case math.Abs(v-lo) < eps && math.Abs(v-hi) < eps:
		return StatusZero
	case math.Abs(v-lo) < eps:
		return StatusLower
	case math.Abs(v-hi) < eps:
		return StatusUpper
	default:
		return StatusBasic
	}
}

// SaveBasis registers the named slot (spec.md §4.2); Solve itself caches
// each slot's last standard-form solution. Our IPM engine does not carry
// a combinatorial basis, and compile() does not read the cached point:
// every Solve starts from the interior-point method's own starting
// point, so SaveBasis/RestoreBasis do not change the next solve.
// Restoring an empty slot is a no-op.
func (o *Problem) SaveBasis(slot string) {
	// solution already cached by Solve; nothing further to capture.
	o.slotFor(slot)
}

// RestoreBasis only registers slot; it never changes the next solve (see
// SaveBasis), and is a no-op when slot has never been solved.
func (o *Problem) RestoreBasis(slot string) {
	o.slotFor(slot)
}

func (o *Problem) slotFor(name string) *basisSlot {
	s, ok := o.slots[name]
	if !ok {
		s = &basisSlot{}
		o.slots[name] = s
	}
	return s
}

type standardForm struct {
	A            *mat.Dense
	b, c         []float64
	colLo        []float64 // original-column shift amount (p_j = x_j - colLo[j])
	colIndex     []int     // original column j -> index of its p_j in standard x
	rowDualIndex []int     // original row i -> index of its defining equality row in A (or -1)
	rowCoeff     map[int]map[int]float64
	rowShift     map[int]float64 // (A colLo)_i, added back to recover (A x)_i from (A p)_i
}

func (o *standardForm) rowValue(i int, stdX []float64) float64 {
	v := o.rowShift[i]
	for j, c := range o.rowCoeff[i] {
		v += c * stdX[j]
	}
	return v
}

// compile reduces the bounded-variable, bounded-row problem to the
// equality/non-negative standard form the Mehrotra engine requires (see
// the Problem doc comment for the reduction it implements).
func (o *Problem) compile() *standardForm {
	finite := func(v, fallback float64) float64 {
		if math.IsInf(v, 0) {
			if v > 0 {
				return fallback
			}
			return -fallback
		}
		return v
	}

	// scale the "big" finite stand-in for ±∞ by the data so it remains
	// numerically well separated from real bounds.
	scale := 1.0
	for _, v := range o.obj {
		if a := math.Abs(v); a > scale {
			scale = a
		}
	}
	big := bigBound * scale

	nStd := 0
	colIndex := make([]int, o.nCols)
	colLo := make([]float64, o.nCols)
	colWidth := make([]float64, o.nCols)
	for j := 0; j < o.nCols; j++ {
		lo := finite(o.colLo[j], big)
		hi := finite(o.colHi[j], big)
		colLo[j] = lo
		colWidth[j] = hi - lo
		colIndex[j] = nStd
		nStd++
	}
	colBoundRowStart := nStd
	nStd += o.nCols // one slack w_j per column's bound row

	// constraint rows: each becomes one equality row defining
	// e_i = (A x)_i, represented via the shifted columns above, plus a
	// non-negative slack z_i and (if two-sided) a second slack for the
	// range width.
	rowDualIndex := make([]int, o.nRows) // filled with the equality-row index below
	rowShift := make(map[int]float64, o.nRows)
	rowZIndex := make([]int, o.nRows)
	rowBoundRowStart := make([]int, o.nRows)
	hasUpperRow := make([]bool, o.nRows)
	for i := 0; i < o.nRows; i++ {
		rowZIndex[i] = nStd
		nStd++ // z_i column
	}
	for i := 0; i < o.nRows; i++ {
		lo, hi := o.rowLo[i], o.rowHi[i]
		if !math.IsInf(lo, -1) && !math.IsInf(hi, 1) {
			hasUpperRow[i] = true
			rowBoundRowStart[i] = nStd
			nStd++ // w2_i column
		}
	}

	nEqRows := o.nCols + o.nRows
	for i := 0; i < o.nRows; i++ {
		if hasUpperRow[i] {
			nEqRows++
		}
	}

	A := mat.NewDense(nEqRows, nStd, nil)
	b := make([]float64, nEqRows)
	c := make([]float64, nStd)
	rowCoeff := make(map[int]map[int]float64, o.nRows)

	for j := 0; j < o.nCols; j++ {
		c[colIndex[j]] = o.obj[j]
	}

	eqRow := 0
	// column bound rows: p_j + w_j = hi-lo
	for j := 0; j < o.nCols; j++ {
		A.Set(eqRow, colIndex[j], 1)
		A.Set(eqRow, colBoundRowStart+j, 1)
		b[eqRow] = math.Max(colWidth[j], 0)
		eqRow++
	}

	// constraint rows
	for i := 0; i < o.nRows; i++ {
		lo, hi := o.rowLo[i], o.rowHi[i]
		rowDualIndex[i] = eqRow // the row carrying this constraint's A coefficients
		rowCoeff[i] = make(map[int]float64)
		o.coeff.EachInRow(i, func(j int, v float64) {
			A.Set(eqRow, colIndex[j], v)
			rowCoeff[i][colIndex[j]] = v
		})
		// shift for the column substitution x_j = colLo[j] + p_j:
		// (A p)_i + (A colLo)_i  must land in [lo,hi].
		var shift float64
		o.coeff.EachInRow(i, func(j int, v float64) { shift += v * colLo[j] })
		rowShift[i] = shift

		switch {
		case !math.IsInf(lo, -1) && !math.IsInf(hi, 1):
			// (Ap)_i - z_i = lo - shift ; z_i + w2_i = hi - lo
			A.Set(eqRow, rowZIndex[i], -1)
			b[eqRow] = lo - shift
			eqRow++
			A.Set(eqRow, rowZIndex[i], 1)
			A.Set(eqRow, rowBoundRowStart[i], 1)
			b[eqRow] = math.Max(hi-lo, 0)
			eqRow++
		case !math.IsInf(lo, -1):
			// only lower bound: (Ap)_i - z_i = lo - shift, z_i >= 0
			A.Set(eqRow, rowZIndex[i], -1)
			b[eqRow] = lo - shift
			eqRow++
		case !math.IsInf(hi, 1):
			// only upper bound: (Ap)_i + z_i = hi - shift, z_i >= 0
			A.Set(eqRow, rowZIndex[i], 1)
			b[eqRow] = hi - shift
			eqRow++
		default:
			// unbounded row: still tie z_i to the row value so readout
			// works uniformly, as (Ap)_i - z_i = -big - shift: the row
			// value gets the same large finite lower stand-in (-big) as
			// an infinite column bound, and no upper bound.
			A.Set(eqRow, rowZIndex[i], -1)
			b[eqRow] = -big - shift
			eqRow++
		}
	}

	return &standardForm{
		A: A, b: b, c: c,
		colLo: colLo, colIndex: colIndex,
		rowDualIndex: rowDualIndex,
		rowCoeff:     rowCoeff,
		rowShift:     rowShift,
	}
}

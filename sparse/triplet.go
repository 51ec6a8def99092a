// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

// Triplet is a coordinate-format sparse-matrix builder: entries are
// appended with Put and later consolidated (duplicates summed) into a
// CCMatrix with ToMatrix. This mirrors the teacher's la.Triplet
// construction contract (Init/Start/Put/ToMatrix) seen throughout
// num/nlsolver.go and the LP examples.
type Triplet struct {
	m, n    int
	i, j    []int
	x       []float64
	pos     int
	nnzMax  int
}

// Init allocates a triplet for an m-by-n matrix with room for nnzMax
// non-zero entries.
func (o *Triplet) Init(m, n, nnzMax int) {
	o.m, o.n, o.nnzMax = m, n, nnzMax
	o.i = make([]int, nnzMax)
	o.j = make([]int, nnzMax)
	o.x = make([]float64, nnzMax)
	o.pos = 0
}

// Start rewinds the write position to zero without reallocating,
// so a Triplet can be refilled with a new Jacobian each iteration.
func (o *Triplet) Start() {
	o.pos = 0
}

// Put appends one entry (i,j,x); duplicate (i,j) pairs are summed on
// conversion, matching COO/triplet convention.
func (o *Triplet) Put(i, j int, x float64) {
	if o.pos >= o.nnzMax {
		// grow rather than panic: callers may slightly under-estimate nnz
		o.i = append(o.i, i)
		o.j = append(o.j, j)
		o.x = append(o.x, x)
		o.nnzMax = len(o.x)
		o.pos++
		return
	}
	o.i[o.pos] = i
	o.j[o.pos] = j
	o.x[o.pos] = x
	o.pos++
}

// EachInRow invokes fn(col, val) for every raw entry stored with row
// index i (no dedup/consolidation — callers that need summed duplicates
// should go through ToMatrix first). Used by the LP compiler to read out
// one constraint row without paying for a full CSC consolidation.
func (o *Triplet) EachInRow(i int, fn func(col int, val float64)) {
	for k := 0; k < o.pos; k++ {
		if o.i[k] == i {
			fn(o.j[k], o.x[k])
		}
	}
}

// Dims returns the logical matrix dimensions.
func (o *Triplet) Dims() (m, n int) { return o.m, o.n }

// Len returns the number of entries written so far.
func (o *Triplet) Len() int { return o.pos }

// ToMatrix consolidates the triplet into a CCMatrix (compressed sparse
// column). If mat is non-nil it is reused (its storage is replaced) as an
// allocation-avoidance hint; a nil argument always allocates a fresh one.
func (o *Triplet) ToMatrix(mat *CCMatrix) *CCMatrix {
	if mat == nil {
		mat = new(CCMatrix)
	}
	mat.init(o.m, o.n, o.i[:o.pos], o.j[:o.pos], o.x[:o.pos])
	return mat
}

// ToDense renders the triplet as a dense row-major matrix, for small
// systems (augmented Jacobian assembly, tests) where CSC overhead isn't
// worth it.
func (o *Triplet) ToDense() *Dense {
	d := NewDense(o.m, o.n)
	for k := 0; k < o.pos; k++ {
		d.Set(o.i[k], o.j[k], d.Get(o.i[k], o.j[k])+o.x[k])
	}
	return d
}

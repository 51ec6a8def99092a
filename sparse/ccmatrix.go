// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import "sort"

// CCMatrix is a compressed-sparse-column matrix, the consolidated form of
// a Triplet. Column pointers, row indices, and values follow the standard
// CSC layout (colPtr has n+1 entries).
type CCMatrix struct {
	m, n    int
	colPtr  []int
	rowIdx  []int
	val     []float64
}

type cooEntry struct {
	i, j int
	x    float64
}

// init consolidates coordinate-format (i,j,x) triples into CSC storage,
// summing duplicate (i,j) pairs.
func (o *CCMatrix) init(m, n int, ti, tj []int, tx []float64) {
	o.m, o.n = m, n
	entries := make([]cooEntry, len(ti))
	for k := range ti {
		entries[k] = cooEntry{ti[k], tj[k], tx[k]}
	}
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].j != entries[b].j {
			return entries[a].j < entries[b].j
		}
		return entries[a].i < entries[b].i
	})

	o.colPtr = make([]int, n+1)
	o.rowIdx = o.rowIdx[:0]
	o.val = o.val[:0]

	k := 0
	for col := 0; col < n; col++ {
		o.colPtr[col] = len(o.val)
		for k < len(entries) && entries[k].j == col {
			row := entries[k].i
			x := entries[k].x
			k++
			for k < len(entries) && entries[k].j == col && entries[k].i == row {
				x += entries[k].x
				k++
			}
			o.rowIdx = append(o.rowIdx, row)
			o.val = append(o.val, x)
		}
	}
	o.colPtr[n] = len(o.val)
}

// Dims returns (rows, cols).
func (o *CCMatrix) Dims() (m, n int) { return o.m, o.n }

// NNZ returns the number of stored (post-dedup) non-zeros.
func (o *CCMatrix) NNZ() int { return len(o.val) }

// Col invokes fn(rowIdx, value) for every stored entry in column j.
func (o *CCMatrix) Col(j int, fn func(row int, val float64)) {
	for k := o.colPtr[j]; k < o.colPtr[j+1]; k++ {
		fn(o.rowIdx[k], o.val[k])
	}
}

// Row invokes fn(col, value) for every stored entry in row i. CSC storage
// makes this an O(nnz) scan rather than O(nnz/n). Callers are augjac's
// dense KKT assembly (which already pays O(n^2) for that matrix), the
// Cauchy LP assembly, the preprocessor, and the restoration gradient.
func (o *CCMatrix) Row(i int, fn func(col int, val float64)) {
	for j := 0; j < o.n; j++ {
		for k := o.colPtr[j]; k < o.colPtr[j+1]; k++ {
			if o.rowIdx[k] == i {
				fn(j, o.val[k])
			}
		}
	}
}

// ToDense expands the matrix into a row-major Dense.
func (o *CCMatrix) ToDense() *Dense {
	d := NewDense(o.m, o.n)
	for j := 0; j < o.n; j++ {
		o.Col(j, func(i int, x float64) { d.Set(i, j, x) })
	}
	return d
}

// MatVecMul computes y = alpha*A*x (+ y if accumulate), the CSC-specific
// analogue of the teacher's la.MatVecMul.
func (o *CCMatrix) MatVecMul(y Vector, alpha float64, x Vector, accumulate bool) {
	if !accumulate {
		y.Fill(0)
	}
	for j := 0; j < o.n; j++ {
		xj := alpha * x[j]
		if xj == 0 {
			continue
		}
		o.Col(j, func(i int, v float64) { y[i] += v * xj })
	}
}

// MatTrVecMul computes y = alpha*Aᵀ*x (+ y if accumulate).
func (o *CCMatrix) MatTrVecMul(y Vector, alpha float64, x Vector, accumulate bool) {
	if !accumulate {
		y.Fill(0)
	}
	for j := 0; j < o.n; j++ {
		var s float64
		o.Col(j, func(i int, v float64) { s += v * x[i] })
		y[j] += alpha * s
	}
}

// Dense is a simple row-major dense matrix used for the augmented-Jacobian
// KKT assembly, where sparsity no longer pays off at the scale a single
// working-set's active rows reach.
type Dense struct {
	m, n int
	data []float64
}

// NewDense allocates a zeroed m-by-n dense matrix.
func NewDense(m, n int) *Dense {
	return &Dense{m: m, n: n, data: make([]float64, m*n)}
}

// Dims returns (rows, cols).
func (o *Dense) Dims() (m, n int) { return o.m, o.n }

// Get returns entry (i,j).
func (o *Dense) Get(i, j int) float64 { return o.data[i*o.n+j] }

// Set assigns entry (i,j).
func (o *Dense) Set(i, j int, v float64) { o.data[i*o.n+j] = v }

// Add accumulates v into entry (i,j).
func (o *Dense) Add(i, j int, v float64) { o.data[i*o.n+j] += v }

// RawRowMajor exposes the backing slice for conversion into gonum's
// mat.Dense without copying.
func (o *Dense) RawRowMajor() []float64 { return o.data }

// MatVecMul computes y = alpha*A*x (+ y if accumulate).
func (o *Dense) MatVecMul(y Vector, alpha float64, x Vector, accumulate bool) {
	if !accumulate {
		y.Fill(0)
	}
	for i := 0; i < o.m; i++ {
		var s float64
		for j := 0; j < o.n; j++ {
			s += o.Get(i, j) * x[j]
		}
		y[i] += alpha * s
	}
}

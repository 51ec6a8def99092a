// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sparse implements the sparse-matrix and dense-vector primitives
// shared by the augmented-Jacobian, LP, and EQP subsystems: a coordinate
// (triplet) builder, a compressed-sparse-column matrix, and a thin Vector
// type with the handful of BLAS-1-style operations the core needs.
package sparse

import "math"

// Vector is a dense real vector; kept as a named slice (rather than a
// struct) so arithmetic can be written with plain indexing, mirroring the
// teacher's la.Vector.
type Vector []float64

// NewVector allocates a zeroed vector of length n.
func NewVector(n int) Vector {
	return make(Vector, n)
}

// NewVectorFrom copies s into a new Vector.
func NewVectorFrom(s []float64) Vector {
	v := make(Vector, len(s))
	copy(v, s)
	return v
}

// GetCopy returns an independent copy of o.
func (o Vector) GetCopy() Vector {
	return NewVectorFrom(o)
}

// Fill sets every entry of o to val.
func (o Vector) Fill(val float64) {
	for i := range o {
		o[i] = val
	}
}

// Norm returns the Euclidean (ℓ2) norm of o.
func (o Vector) Norm() float64 {
	var s float64
	for _, x := range o {
		s += x * x
	}
	return math.Sqrt(s)
}

// NormInf returns the ℓ∞ norm of o.
func (o Vector) NormInf() float64 {
	var m float64
	for _, x := range o {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

// Dot returns the inner product o·w.
func (o Vector) Dot(w Vector) float64 {
	var s float64
	for i := range o {
		s += o[i] * w[i]
	}
	return s
}

// Axpy performs o += a*w.
func (o Vector) Axpy(a float64, w Vector) {
	for i := range o {
		o[i] += a * w[i]
	}
}

// ScaleInto sets o = a*w.
func (o Vector) ScaleInto(a float64, w Vector) {
	for i := range o {
		o[i] = a * w[i]
	}
}

// Largest returns the largest |o[i]|/den-normalized entry of o, den≥tiny.
func (o Vector) Largest(den float64) float64 {
	var m float64
	for _, x := range o {
		a := math.Abs(x) / den
		if a > m {
			m = a
		}
	}
	return m
}

// VecScaleAbs sets scal[i] = atol + rtol*abs(x[i]); used to build a
// convergence scaling vector, matching the teacher's num package helper
// of the same purpose.
func VecScaleAbs(scal Vector, atol, rtol float64, x Vector) {
	for i := range x {
		scal[i] = atol + rtol*math.Abs(x[i])
	}
}

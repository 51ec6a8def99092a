// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wset

import "github.com/sleqp-go/sleqp/sparse"

// Direction bundles a primal step d with the three derived quantities the
// rest of the core needs on every evaluation: ∇f·d, J·d, and H·d (spec.md
// §3). Whenever d is mutated the three derived quantities must be kept in
// sync via Reset (recompute from scratch) or AxpyUpdate (linear update),
// mirroring the teacher's pattern of precomputed scratch (φ, dφdx) tied to
// a candidate point in num.NlSolver.
type Direction struct {
	D   sparse.Vector // primal step
	GTd float64       // ∇f·d
	Jd  sparse.Vector // J·d, length m
	Hd  sparse.Vector // H·d, length n
}

// NewDirection allocates a zero direction sized for n variables and m
// general constraints.
func NewDirection(n, m int) *Direction {
	return &Direction{
		D:  sparse.NewVector(n),
		Jd: sparse.NewVector(m),
		Hd: sparse.NewVector(n),
	}
}

// Reset recomputes GTd, Jd, Hd from the current D using the supplied
// gradient, Jacobian-apply, and Hessian-apply callbacks. Callers hold the
// callbacks (they close over the current iterate) so Direction itself has
// no dependency on the Function interface.
func (o *Direction) Reset(grad sparse.Vector, jacApply func(d, out sparse.Vector), hessApply func(d, out sparse.Vector)) {
	o.GTd = grad.Dot(o.D)
	if jacApply != nil {
		jacApply(o.D, o.Jd)
	}
	if hessApply != nil {
		hessApply(o.D, o.Hd)
	}
}

// AxpyUpdate performs D += a*other.D (and linearly updates the derived
// quantities the same way, since all three are linear in D): a cheaper
// alternative to Reset when the update is a simple scaled combination of
// two already-consistent directions (used by the line search).
func (o *Direction) AxpyUpdate(a float64, other *Direction) {
	o.D.Axpy(a, other.D)
	o.GTd += a * other.GTd
	o.Jd.Axpy(a, other.Jd)
	o.Hd.Axpy(a, other.Hd)
}

// ScaleInto sets o = a*other for every component (primal and derived).
func (o *Direction) ScaleInto(a float64, other *Direction) {
	o.D.ScaleInto(a, other.D)
	o.GTd = a * other.GTd
	o.Jd.ScaleInto(a, other.Jd)
	o.Hd.ScaleInto(a, other.Hd)
}

// Clone returns an independent copy.
func (o *Direction) Clone() *Direction {
	c := &Direction{
		D:  o.D.GetCopy(),
		Jd: o.Jd.GetCopy(),
		Hd: o.Hd.GetCopy(),
	}
	c.GTd = o.GTd
	return c
}

// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package steprule implements the step-acceptance policies of spec.md
// §4.8: direct, window(k) (non-monotone against a recent-maximum
// reference), and minstep(k) (anchored to a recent-minimum reference).
package steprule

// Kind selects the acceptance policy.
type Kind int

const (
	Direct Kind = iota
	Window
	MinStep
)

// Rule tracks the merit-value history a window/minstep policy needs and
// computes the reduction ratio ρ and accept/reject decision of spec.md
// §4.8 for one trial step.
type Rule struct {
	kind      Kind
	k         int
	etaAccept float64
	history   []float64 // φ(x;v) of accepted iterates, oldest first
}

// New allocates a step rule. k is ignored for Direct. etaAccept<=0
// defaults to 1e-4 (spec.md's default η_accept).
func New(kind Kind, k int, etaAccept float64) *Rule {
	if etaAccept <= 0 {
		etaAccept = 1e-4
	}
	if k <= 0 {
		k = 1
	}
	return &Rule{kind: kind, k: k, etaAccept: etaAccept}
}

// Evaluate computes ρ = (ref − φ(x_trial;v)) / (ref − φ_quad(trial)) and
// the accept decision ρ ≥ η_accept, where ref is φ(x;v) for Direct, the
// maximum recent merit for Window, or the minimum recent merit for
// MinStep.
func (o *Rule) Evaluate(phiCurrent, phiTrial, phiQuadTrial float64) (ratio float64, accept bool) {
	ref := o.reference(phiCurrent)
	denom := ref - phiQuadTrial
	if denom <= 0 {
		// no predicted model reduction against the reference: only
		// accept if the trial merit itself improves on it directly.
		if phiTrial < ref {
			return 1, true
		}
		return 0, false
	}
	ratio = (ref - phiTrial) / denom
	accept = ratio >= o.etaAccept
	return
}

func (o *Rule) reference(phiCurrent float64) float64 {
	switch o.kind {
	case Window:
		return o.extremum(phiCurrent, func(a, b float64) bool { return a > b })
	case MinStep:
		return o.extremum(phiCurrent, func(a, b float64) bool { return a < b })
	default:
		return phiCurrent
	}
}

func (o *Rule) extremum(current float64, better func(a, b float64) bool) float64 {
	ref := current
	start := 0
	if len(o.history) > o.k {
		start = len(o.history) - o.k
	}
	for _, v := range o.history[start:] {
		if better(v, ref) {
			ref = v
		}
	}
	return ref
}

// RecordIteration appends the merit value of the (accepted) iterate this
// outer iteration produced, for use as future window/minstep reference.
func (o *Rule) RecordIteration(phi float64) {
	o.history = append(o.history, phi)
}

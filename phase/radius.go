// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package phase

import "math"

// updateRadii implements spec.md §4.9's decoupled trust-radius update:
// Δ_EQP evolves on the 2-norm of the accepted/rejected trial step, Δ_LP
// on the ∞-norm of both the trial step and the Cauchy step alone (so a
// Newton refinement that shrinks the final step never starves the LP
// radius that bounds the Cauchy step's own box).
func updateRadii(deltaLP, deltaEQP float64, dTrialInf, dTrialNorm, dCauchyInf float64, fullStep, accept bool, rho float64) (newDeltaLP, newDeltaEQP float64) {
	switch {
	case !accept:
		newDeltaEQP = math.Min(0.5*deltaEQP, 0.5*dTrialNorm)
	case rho >= 0.9:
		newDeltaEQP = math.Max(deltaEQP, 7*dTrialNorm)
	case rho >= 0.3:
		newDeltaEQP = math.Max(deltaEQP, 2*dTrialNorm)
	default:
		newDeltaEQP = deltaEQP
	}

	if !accept {
		newDeltaLP = math.Max(0.5*dTrialInf, 0.1*deltaLP)
		return
	}
	newDeltaLP = deltaLP
	if fullStep {
		newDeltaLP = 7 * deltaLP
	}
	floor := math.Max(dTrialInf, dCauchyInf)
	floor = math.Max(floor, 0.1*deltaLP)
	if newDeltaLP < floor {
		newDeltaLP = floor
	}
	return
}

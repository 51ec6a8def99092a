// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wset holds the WorkingSet and Direction types shared by the
// Cauchy, augmented-Jacobian, EQP, merit, and trial-point packages, and
// the working-step (minimum-norm feasibility correction) operation C5.
package wset

// ActiveState classifies one variable or constraint row with respect to
// the current working set.
type ActiveState int

const (
	// Inactive means the bound/constraint is not currently binding.
	Inactive ActiveState = iota
	// ActiveLower means the row is pinned to its lower bound.
	ActiveLower
	// ActiveUpper means the row is pinned to its upper bound.
	ActiveUpper
	// ActiveBoth means lower and upper bound coincide (a fixed variable
	// or an equality constraint); always active regardless of duals.
	ActiveBoth
)

// IsActive reports whether s is anything other than Inactive.
func (s ActiveState) IsActive() bool { return s != Inactive }

// WorkingSet is the current guess of which variable bounds and general
// constraints are active, plus the dense map from an active row to its
// position in the augmented system. Size must equal the number of
// non-Inactive entries and Pos must be a bijection onto 0..Size-1 (the
// invariant from spec.md §3).
type WorkingSet struct {
	NVars, NCons int
	VarState     []ActiveState
	ConState     []ActiveState
	varPos       []int // -1 when inactive
	conPos       []int // -1 when inactive
	size         int
}

// NewWorkingSet allocates an all-inactive working set for nVars variables
// and nCons general constraints.
func NewWorkingSet(nVars, nCons int) *WorkingSet {
	o := &WorkingSet{
		NVars:    nVars,
		NCons:    nCons,
		VarState: make([]ActiveState, nVars),
		ConState: make([]ActiveState, nCons),
		varPos:   make([]int, nVars),
		conPos:   make([]int, nCons),
	}
	o.Reset()
	return o
}

// Reset clears every entry back to Inactive.
func (o *WorkingSet) Reset() {
	for i := range o.VarState {
		o.VarState[i] = Inactive
		o.varPos[i] = -1
	}
	for i := range o.ConState {
		o.ConState[i] = Inactive
		o.conPos[i] = -1
	}
	o.size = 0
}

// SetVar assigns the active state of variable i.
func (o *WorkingSet) SetVar(i int, s ActiveState) {
	o.VarState[i] = s
}

// SetCon assigns the active state of constraint i.
func (o *WorkingSet) SetCon(i int, s ActiveState) {
	o.ConState[i] = s
}

// Finalize recomputes the position map after VarState/ConState have been
// written directly (e.g. by the Cauchy readout); must be called before
// Size/VarPos/ConPos are trusted.
func (o *WorkingSet) Finalize() {
	pos := 0
	for i, s := range o.VarState {
		if s.IsActive() {
			o.varPos[i] = pos
			pos++
		} else {
			o.varPos[i] = -1
		}
	}
	for i, s := range o.ConState {
		if s.IsActive() {
			o.conPos[i] = pos
			pos++
		} else {
			o.conPos[i] = -1
		}
	}
	o.size = pos
}

// Size returns the total number of active rows (variables + constraints).
func (o *WorkingSet) Size() int { return o.size }

// VarPos returns the row index of variable i in the augmented system, or
// -1 if inactive.
func (o *WorkingSet) VarPos(i int) int { return o.varPos[i] }

// ConPos returns the row index of constraint i in the augmented system,
// or -1 if inactive.
func (o *WorkingSet) ConPos(i int) int { return o.conPos[i] }

// ActiveVars returns the sorted list of active variable indices.
func (o *WorkingSet) ActiveVars() []int {
	out := make([]int, 0, len(o.VarState))
	for i, s := range o.VarState {
		if s.IsActive() {
			out = append(out, i)
		}
	}
	return out
}

// ActiveCons returns the sorted list of active constraint indices.
func (o *WorkingSet) ActiveCons() []int {
	out := make([]int, 0, len(o.ConState))
	for i, s := range o.ConState {
		if s.IsActive() {
			out = append(out, i)
		}
	}
	return out
}

// Equal reports whether two working sets have identical active states.
func (o *WorkingSet) Equal(other *WorkingSet) bool {
	if o.NVars != other.NVars || o.NCons != other.NCons {
		return false
	}
	for i := range o.VarState {
		if o.VarState[i] != other.VarState[i] {
			return false
		}
	}
	for i := range o.ConState {
		if o.ConState[i] != other.ConState[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (o *WorkingSet) Clone() *WorkingSet {
	c := NewWorkingSet(o.NVars, o.NCons)
	copy(c.VarState, o.VarState)
	copy(c.ConState, o.ConState)
	c.Finalize()
	return c
}

// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sleqp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sleqp-go/sleqp/sparse"
)

// emptyJac returns the (0 x n) constraint Jacobian an unconstrained
// Function reports; never read by the outer loop when m=0, but kept
// non-nil so a stray call doesn't panic.
func emptyJac(n int) *sparse.CCMatrix {
	var tri sparse.Triplet
	tri.Init(0, n, 0)
	return tri.ToMatrix(nil)
}

// rosenbrockFn is the textbook f=(a-x)²+b(y-x²)², unconstrained (m=0),
// with an exact analytical Hessian-vector product (spec.md §8 scenario 1).
type rosenbrockFn struct {
	a, b float64
	x, y float64
}

func (o *rosenbrockFn) SetValue(x sparse.Vector, _ Reason) (bool, int, error) {
	o.x, o.y = x[0], x[1]
	return false, 0, nil
}

func (o *rosenbrockFn) ObjVal() (float64, error) {
	d1 := o.a - o.x
	d2 := o.y - o.x*o.x
	return d1*d1 + o.b*d2*d2, nil
}

func (o *rosenbrockFn) ObjGrad() (sparse.Vector, error) {
	d2 := o.y - o.x*o.x
	gx := -2*(o.a-o.x) - 4*o.b*o.x*d2
	gy := 2 * o.b * d2
	return sparse.NewVectorFrom([]float64{gx, gy}), nil
}

func (o *rosenbrockFn) ConsVal() (sparse.Vector, error) { return sparse.NewVector(0), nil }
func (o *rosenbrockFn) ConsJac() (*sparse.CCMatrix, error) { return emptyJac(2), nil }

func (o *rosenbrockFn) HessProd(objDual float64, d sparse.Vector, _ []float64) (sparse.Vector, error) {
	d2 := o.y - o.x*o.x
	hxx := 2 - 4*o.b*d2 + 8*o.b*o.x*o.x
	hxy := -4 * o.b * o.x
	hyy := 2 * o.b
	return sparse.NewVectorFrom([]float64{
		objDual * (hxx*d[0] + hxy*d[1]),
		objDual * (hxy*d[0] + hyy*d[1]),
	}), nil
}

// spec.md §8 scenario 1: unconstrained Rosenbrock, n=2, a=1, b=100,
// x0=(0,0); expect optimal within 1e-6 of (1,1) in <=100 iterations.
func TestSolverRosenbrockUnconstrained(tst *testing.T) {
	fn := &rosenbrockFn{a: 1, b: 100}
	bound := 1e20
	problem, err := NewProblem(2, 0, []float64{-bound, -bound}, []float64{bound, bound}, nil, nil, -bound, fn)
	require.NoError(tst, err)

	solver, err := NewSolver(problem, DefaultSettings())
	require.NoError(tst, err)

	err = solver.Solve(sparse.NewVectorFrom([]float64{0, 0}), 100, time.Minute)
	require.NoError(tst, err)

	require.Equal(tst, StatusOptimal, solver.Status())
	require.LessOrEqual(tst, solver.Iterations(), 100)
	sol := solver.Solution()
	require.NotNil(tst, sol)
	assert.InDelta(tst, 1.0, sol.X[0], 1e-6)
	assert.InDelta(tst, 1.0, sol.X[1], 1e-6)
}

// quadraticFn is f(x,y) = -2x - 4y + x² + y², unconstrained save for
// variable bounds; its gradient at the origin is exactly (-2,-4), the
// value spec.md §8 scenario 6 names.
type quadraticFn struct{ x, y float64 }

func (o *quadraticFn) SetValue(x sparse.Vector, _ Reason) (bool, int, error) {
	o.x, o.y = x[0], x[1]
	return false, 0, nil
}

func (o *quadraticFn) ObjVal() (float64, error) {
	return -2*o.x - 4*o.y + o.x*o.x + o.y*o.y, nil
}

func (o *quadraticFn) ObjGrad() (sparse.Vector, error) {
	return sparse.NewVectorFrom([]float64{-2 + 2*o.x, -4 + 2*o.y}), nil
}

func (o *quadraticFn) ConsVal() (sparse.Vector, error)    { return sparse.NewVector(0), nil }
func (o *quadraticFn) ConsJac() (*sparse.CCMatrix, error) { return emptyJac(2), nil }

func (o *quadraticFn) HessProd(objDual float64, d sparse.Vector, _ []float64) (sparse.Vector, error) {
	return sparse.NewVectorFrom([]float64{objDual * 2 * d[0], objDual * 2 * d[1]}), nil
}

// spec.md §8 scenario 6 ("simple-dual test"): both variables pinned to
// x=(0,0) by coincident bounds, so the working set is active_both for
// each — the one case where the Cauchy dual-estimation sign convention
// (cauchy.signedDual's ActiveBoth branch returns the raw multiplier
// unmodified, per cauchy.go) reports the gradient itself rather than its
// negation. Since x=(0,0) is the LP's only feasible point regardless of
// g's sign, the solver reports optimal immediately.
func TestSolverSimpleDual(tst *testing.T) {
	fn := &quadraticFn{}
	problem, err := NewProblem(2, 0, []float64{0, 0}, []float64{0, 0}, nil, nil, -1e20, fn)
	require.NoError(tst, err)

	solver, err := NewSolver(problem, DefaultSettings())
	require.NoError(tst, err)

	err = solver.Solve(sparse.NewVectorFrom([]float64{0, 0}), 10, time.Minute)
	require.NoError(tst, err)

	require.Equal(tst, StatusOptimal, solver.Status())
	sol := solver.Solution()
	require.NotNil(tst, sol)
	assert.InDelta(tst, -2.0, sol.LambdaX[0], 1e-8)
	assert.InDelta(tst, -4.0, sol.LambdaX[1], 1e-8)
}

// linearRowFn is the single linear row x+y of spec.md §8 scenario 4;
// objective is irrelevant to the preprocessor check, so it is a constant.
type linearRowFn struct{}

func (o *linearRowFn) SetValue(sparse.Vector, Reason) (bool, int, error) { return false, 0, nil }
func (o *linearRowFn) ObjVal() (float64, error)                         { return 0, nil }
func (o *linearRowFn) ObjGrad() (sparse.Vector, error)                  { return sparse.NewVector(2), nil }
func (o *linearRowFn) ConsVal() (sparse.Vector, error)                  { return sparse.NewVector(1), nil }

func (o *linearRowFn) ConsJac() (*sparse.CCMatrix, error) {
	var tri sparse.Triplet
	tri.Init(1, 2, 2)
	tri.Put(0, 0, 1)
	tri.Put(0, 1, 1)
	return tri.ToMatrix(nil), nil
}

func (o *linearRowFn) HessProd(_ float64, d sparse.Vector, _ []float64) (sparse.Vector, error) {
	return sparse.NewVector(len(d)), nil
}

// spec.md §8 scenario 4: single linear row x+y>=1 with x<=1, y<=0.
// Preprocess must fix x=1, y=0 and drop the now-fully-consumed row,
// leaving a reduced problem with 0 variables and 0 linear rows.
func TestPreprocessForcingConstraint(tst *testing.T) {
	const unbounded = -1e20
	problem, err := NewProblem(2, 1, []float64{unbounded, unbounded}, []float64{1, 0},
		[]float64{1}, []float64{1e20}, unbounded, &linearRowFn{})
	require.NoError(tst, err)

	reduced, unpre, err := Preprocess(problem)
	require.NoError(tst, err)
	require.NotNil(tst, unpre)

	assert.Equal(tst, 0, reduced.N)
	assert.Equal(tst, 0, reduced.M)

	x := unpre.Apply(sparse.NewVector(0))
	assert.InDelta(tst, 1.0, x[0], 1e-12)
	assert.InDelta(tst, 0.0, x[1], 1e-12)
}

// spec.md §8 scenario 4, exercised end to end through the Solver: with
// enable_preprocessor set, Solve must still report optimal trivially
// (the reduced problem has nothing left to iterate on) and the expanded
// solution must match the forced values.
func TestSolverPreprocessorForcingConstraint(tst *testing.T) {
	const unbounded = -1e20
	problem, err := NewProblem(2, 1, []float64{unbounded, unbounded}, []float64{1, 0},
		[]float64{1}, []float64{1e20}, unbounded, &linearRowFn{})
	require.NoError(tst, err)

	settings := DefaultSettings()
	settings.EnablePreprocessor = true
	solver, err := NewSolver(problem, settings)
	require.NoError(tst, err)

	err = solver.Solve(sparse.NewVectorFrom([]float64{0, 0}), 10, time.Minute)
	require.NoError(tst, err)

	require.Equal(tst, StatusOptimal, solver.Status())
	sol := solver.Solution()
	require.NotNil(tst, sol)
	assert.InDelta(tst, 1.0, sol.X[0], 1e-9)
	assert.InDelta(tst, 0.0, sol.X[1], 1e-9)
}

// circleFn models c(x,y) = x²+y², required to equal 1 (the unit circle),
// with objective f(x,y) = x so the unique minimizer is (-1,0). At the
// origin the constraint's Jacobian vanishes (J=(2x,2y)=(0,0)), so no
// linearized step reduces the violation there, and the gradient-only
// restoration evaluator (see restoration.go's doc comment) has a zero
// gradient there as well (spec.md §8 scenario 5's flavor of a
// restoration-related instance).
type circleFn struct{ x, y float64 }

func (o *circleFn) SetValue(x sparse.Vector, _ Reason) (bool, int, error) {
	o.x, o.y = x[0], x[1]
	return false, 0, nil
}

func (o *circleFn) ObjVal() (float64, error) { return o.x, nil }
func (o *circleFn) ObjGrad() (sparse.Vector, error) {
	return sparse.NewVectorFrom([]float64{1, 0}), nil
}

func (o *circleFn) ConsVal() (sparse.Vector, error) {
	return sparse.NewVectorFrom([]float64{o.x*o.x + o.y*o.y}), nil
}

func (o *circleFn) ConsJac() (*sparse.CCMatrix, error) {
	var tri sparse.Triplet
	tri.Init(1, 2, 2)
	tri.Put(0, 0, 2*o.x)
	tri.Put(0, 1, 2*o.y)
	return tri.ToMatrix(nil), nil
}

func (o *circleFn) HessProd(objDual float64, d sparse.Vector, lambda []float64) (sparse.Vector, error) {
	// f is linear (zero Hessian); c's Hessian is 2*I, scaled by lambda[0].
	l := 0.0
	if len(lambda) > 0 {
		l = lambda[0]
	}
	_ = objDual
	return sparse.NewVectorFrom([]float64{2 * l * d[0], 2 * l * d[1]}), nil
}

// spec.md §8 scenario 5's restoration-scheduler flavor: the optimization
// phase starts at a point where the constraint Jacobian vanishes; with
// restoration enabled the two-phase scheduler
// must run to completion (no panic, no infinite ping-pong) and leave the
// solver in a terminal status.
func TestSolverRestorationRuns(tst *testing.T) {
	fn := &circleFn{}
	bound := 10.0
	problem, err := NewProblem(2, 1, []float64{-bound, -bound}, []float64{bound, bound},
		[]float64{1}, []float64{1}, -1e20, fn)
	require.NoError(tst, err)

	settings := DefaultSettings()
	settings.EnableRestorationPhase = true
	solver, err := NewSolver(problem, settings)
	require.NoError(tst, err)

	err = solver.Solve(sparse.NewVectorFrom([]float64{0, 0}), 50, time.Minute)
	require.NoError(tst, err)

	status := solver.Status()
	assert.True(tst, status == StatusOptimal || status == StatusLocallyInfeasible,
		"expected a terminal status from the two-phase scheduler, got %v", status)
	assert.GreaterOrEqual(tst, solver.Iterations(), 0)
	assert.GreaterOrEqual(tst, solver.ElapsedSeconds(), 0.0)
}

// TestSolverCallbacksAndAbort exercises AddCallback/RemoveCallback/Abort
// (spec.md §6's callback surface and §5's abort_next flag) against the
// Rosenbrock instance: a performed_iteration callback aborts after the
// first iteration it observes, and a removed callback must not fire.
func TestSolverCallbacksAndAbort(tst *testing.T) {
	fn := &rosenbrockFn{a: 1, b: 100}
	bound := 1e20
	problem, err := NewProblem(2, 0, []float64{-bound, -bound}, []float64{bound, bound}, nil, nil, -bound, fn)
	require.NoError(tst, err)

	solver, err := NewSolver(problem, DefaultSettings())
	require.NoError(tst, err)

	var performed int
	solver.AddCallback(EventPerformedIteration, func(s *Solver, _ *Iterate) {
		performed++
		s.Abort()
	})

	var removedFired bool
	id := solver.AddCallback(EventFinished, func(*Solver, *Iterate) { removedFired = true })
	solver.RemoveCallback(id)

	err = solver.Solve(sparse.NewVectorFrom([]float64{0, 0}), 100, time.Minute)
	require.NoError(tst, err)

	assert.GreaterOrEqual(tst, performed, 1)
	assert.False(tst, removedFired)
	assert.NotEqual(tst, StatusOptimal, solver.Status())
}

// TestSolverQuasiNewtonBFGS exercises HessianEvalType != HessianExact end to
// end: it drives the unconstrained Rosenbrock instance through the BFGS
// secant approximation and only checks that the solver still converges to
// the minimizer (1,1), possibly in more iterations than the exact-Hessian
// path.
func TestSolverQuasiNewtonBFGS(tst *testing.T) {
	fn := &rosenbrockFn{a: 1, b: 100}
	bound := 1e20
	problem, err := NewProblem(2, 0, []float64{-bound, -bound}, []float64{bound, bound}, nil, nil, -bound, fn)
	require.NoError(tst, err)

	settings := DefaultSettings()
	settings.HessianEvalType = HessianBFGS
	solver, err := NewSolver(problem, settings)
	require.NoError(tst, err)

	err = solver.Solve(sparse.NewVectorFrom([]float64{0, 0}), 500, time.Minute)
	require.NoError(tst, err)

	require.Equal(tst, StatusOptimal, solver.Status())
	sol := solver.Solution()
	require.NotNil(tst, sol)
	assert.InDelta(tst, 1.0, sol.X[0], 1e-4)
	assert.InDelta(tst, 1.0, sol.X[1], 1e-4)
}

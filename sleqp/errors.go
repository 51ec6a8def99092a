// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sleqp

import "github.com/pkg/errors"

// Kind classifies a failure the core can report, per spec.md §7.
type Kind int

const (
	// KindIllegalArgument is a structurally invalid call (mismatched
	// dimensions, an out-of-range setting).
	KindIllegalArgument Kind = iota
	// KindInvalidDerivative is raised by CheckDerivatives when a
	// supplied gradient/Jacobian/Hessian product disagrees with its
	// finite-difference approximation beyond deriv_tol.
	KindInvalidDerivative
	// KindMathError is a floating-point exception (NaN/Inf) surfacing
	// from a Function callback or an internal numerical kernel.
	KindMathError
	// KindInternalError is an invariant violation inside the core
	// itself (e.g. a working-set position-map bijection broken).
	KindInternalError
	// KindNoMem is an allocation failure.
	KindNoMem
	// KindAbortTime is raised when the wall-clock time_limit elapses
	// mid-solve (distinct from the outer loop's graceful AbortTime
	// status: this kind is for a callback or factorization that itself
	// exceeds a deadline).
	KindAbortTime
)

func (k Kind) String() string {
	switch k {
	case KindIllegalArgument:
		return "illegal_argument"
	case KindInvalidDerivative:
		return "invalid_derivative"
	case KindMathError:
		return "math_error"
	case KindInternalError:
		return "internal_error"
	case KindNoMem:
		return "nomem"
	case KindAbortTime:
		return "abort_time"
	default:
		return "unknown"
	}
}

// Error wraps a Kind with its underlying cause. Constructors (NewProblem,
// NewSolver) return a KindIllegalArgument *Error on structurally invalid
// input rather than panicking; everything data-dependent is an *Error
// value as well.
type Error struct {
	Kind  Kind
	cause error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.cause.Error()
}

// Unwrap exposes the wrapped cause to errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// NewError wraps msg into an *Error of the given kind via
// github.com/pkg/errors, so Cause()/the %+v verb still recover a stack
// trace from the original failure site.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, cause: errors.New(msg)}
}

// WrapError wraps an existing error into an *Error of the given kind,
// preserving it as the Cause.
func WrapError(kind Kind, err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, cause: errors.Wrap(err, msg)}
}

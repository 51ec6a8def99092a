// Copyright 2016 The Gosl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sleqp

import (
	"gopkg.in/yaml.v3"

	"github.com/sleqp-go/sleqp/cauchy"
	"github.com/sleqp-go/sleqp/phase"
	"github.com/sleqp-go/sleqp/steprule"
)

// HessianEval selects how the Lagrangian Hessian-vector product is
// produced (spec.md §6 hessian_eval).
type HessianEval int

const (
	HessianExact HessianEval = iota
	HessianSR1
	HessianBFGS
	HessianDampedBFGS
)

// DerivCheckFlag is a bitmask selecting CheckDerivatives' scope
// (SPEC_FULL.md §6.13).
type DerivCheckFlag int

const (
	DerivCheckNone             DerivCheckFlag = 0
	DerivCheckFirstOrder       DerivCheckFlag = 1 << 0
	DerivCheckSecondExhaustive DerivCheckFlag = 1 << 1
	DerivCheckSecondSimple     DerivCheckFlag = 1 << 2
)

// TRSolver records the tr_solver choice for YAML round-tripping; the
// solver does not read it, and the EQP step always runs Steihaug-CG
// (eqp.LSQR is not reachable from a Solver).
type TRSolver int

const (
	TRSteihaugCG TRSolver = iota
	TRLSQR
)

// ParametricCauchy names the fidelity of a parametric-Cauchy line search
// along the LP's optimal face; no such search exists in this repo, so
// `disabled` is the only behavior, and the value is stored only so
// Settings round-trips through YAML.
type ParametricCauchy int

const (
	ParametricCauchyDisabled ParametricCauchy = iota
	ParametricCauchyCoarse
	ParametricCauchyFine
)

// Linesearch selects the line-search variant of spec.md §4.6.
type Linesearch int

const (
	LinesearchApprox Linesearch = iota
	LinesearchExactKind
)

// Settings mirrors every recognized key of spec.md §6's settings table.
// Constructed via DefaultSettings and mutated with With* functional
// options (SPEC_FULL.md §4.3); (un)marshalable via yaml so an embedding
// CLI can load it from a config file, though the core itself never reads
// one.
type Settings struct {
	DerivCheck             DerivCheckFlag       `yaml:"deriv_check"`
	HessianEvalType        HessianEval          `yaml:"hessian_eval"`
	DualEstimationType     cauchy.DualEstimation `yaml:"dual_estimation_type"`
	QuasiNewtonNumIterates int                  `yaml:"quasi_newton_num_iterates"`
	TRSolverType           TRSolver             `yaml:"tr_solver"`
	ParametricCauchyType   ParametricCauchy     `yaml:"parametric_cauchy"`
	StepRuleType           steprule.Kind        `yaml:"step_rule"`
	StepRuleWindow         int                  `yaml:"step_rule_window"`
	LinesearchType         Linesearch           `yaml:"linesearch"`
	PolishingType          phase.PolishKind     `yaml:"polishing_type"`
	EnablePreprocessor     bool                 `yaml:"enable_preprocessor"`
	EnableRestorationPhase bool                 `yaml:"enable_restoration_phase"`
	UseQuadraticModel      bool                 `yaml:"use_quadratic_model"`
	PerformNewtonStep      bool                 `yaml:"perform_newton_step"`
	PerformSOC             bool                 `yaml:"perform_soc"`
	AlwaysWarmStartLP      bool                 `yaml:"always_warm_start_lp"`
	NumThreads             *int                 `yaml:"num_threads,omitempty"`

	Eps               float64 `yaml:"eps"`
	ZeroEps           float64 `yaml:"zero_eps"`
	StatTol           float64 `yaml:"stat_tol"`
	FeasTol           float64 `yaml:"feas_tol"`
	SlackTol          float64 `yaml:"slack_tol"`
	DerivTol          float64 `yaml:"deriv_tol"`
	CauchyTau         float64 `yaml:"cauchy_tau"`
	CauchyEta         float64 `yaml:"cauchy_eta"`
	LinesearchTau     float64 `yaml:"linesearch_tau"`
	LinesearchEta     float64 `yaml:"linesearch_eta"`
	LinesearchCutoff  float64 `yaml:"linesearch_cutoff"`
	AcceptedReduction float64 `yaml:"accepted_reduction"`
	DeadpointBound    float64 `yaml:"deadpoint_bound"`
	ObjLower          float64 `yaml:"obj_lower"`

	Penalty0 float64 `yaml:"penalty0"`
	DeltaLP0 float64 `yaml:"delta_lp0"`
	DeltaEQP0 float64 `yaml:"delta_eqp0"`
}

// DefaultSettings returns the settings this package's tests build on top
// of with With* options.
func DefaultSettings() Settings {
	return Settings{
		HessianEvalType:    HessianExact,
		DualEstimationType: cauchy.DualLP,
		TRSolverType:       TRSteihaugCG,
		StepRuleType:       steprule.Direct,
		StepRuleWindow:     1,
		LinesearchType:     LinesearchExactKind,
		PolishingType:      phase.PolishNone,
		UseQuadraticModel:  true,
		PerformNewtonStep:  true,
		PerformSOC:         true,

		Eps:               1e-12,
		ZeroEps:           1e-8,
		StatTol:           1e-6,
		FeasTol:           1e-8,
		SlackTol:          1e-8,
		DerivTol:          1e-4,
		CauchyTau:         1e-6,
		CauchyEta:         1e-2,
		LinesearchTau:     0.5,
		LinesearchEta:     1e-4,
		LinesearchCutoff:  1e-10,
		AcceptedReduction: 1e-4,
		DeadpointBound:    1e-10,
		ObjLower:          -1e20,

		Penalty0:  10,
		DeltaLP0:  1,
		DeltaEQP0: 1,
	}
}

// Option mutates a Settings value; With* constructors compose via
// ApplyOptions.
type Option func(*Settings)

// ApplyOptions applies opts to s in order and returns s.
func ApplyOptions(s Settings, opts ...Option) Settings {
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func WithHessianEval(h HessianEval) Option { return func(s *Settings) { s.HessianEvalType = h } }
func WithDerivCheck(flags DerivCheckFlag) Option {
	return func(s *Settings) { s.DerivCheck = flags }
}
func WithDualEstimation(d cauchy.DualEstimation) Option {
	return func(s *Settings) { s.DualEstimationType = d }
}
func WithTRSolver(t TRSolver) Option           { return func(s *Settings) { s.TRSolverType = t } }
func WithStepRule(k steprule.Kind, window int) Option {
	return func(s *Settings) { s.StepRuleType, s.StepRuleWindow = k, window }
}
func WithLinesearch(l Linesearch) Option { return func(s *Settings) { s.LinesearchType = l } }
func WithPolishing(p phase.PolishKind) Option {
	return func(s *Settings) { s.PolishingType = p }
}
func WithPreprocessor(enable bool) Option {
	return func(s *Settings) { s.EnablePreprocessor = enable }
}
func WithRestorationPhase(enable bool) Option {
	return func(s *Settings) { s.EnableRestorationPhase = enable }
}
func WithPenalty0(v float64) Option { return func(s *Settings) { s.Penalty0 = v } }
func WithTrustRegion0(deltaLP, deltaEQP float64) Option {
	return func(s *Settings) { s.DeltaLP0, s.DeltaEQP0 = deltaLP, deltaEQP }
}

// MarshalYAML/UnmarshalYAML are satisfied by the struct tags above via
// gopkg.in/yaml.v3's default reflection-based codec; Marshal/Unmarshal
// are thin wrappers kept here so callers never need to import yaml.v3
// themselves just to persist Settings.

// Marshal serializes s to YAML.
func (s Settings) Marshal() ([]byte, error) { return yaml.Marshal(s) }

// UnmarshalSettings parses YAML produced by Marshal.
func UnmarshalSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	err := yaml.Unmarshal(data, &s)
	return s, err
}

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package qss

import "time"

// simOptions holds the resolved, validated configuration for a Simulation.
// Per-variable rTol/aTol (spec §2) are supplied through VariableConfig at
// AddVariable time; simOptions only carries the simulation-wide defaults and
// numerical-policy knobs that apply across every variable.
type simOptions struct {
	relTol          float64
	absTol          float64
	dtMin           float64
	dtMax           float64
	zTol            float64
	dtND            float64 // finite-difference step for nQSS/nLIQSS coefficients and the LIQSS2/3 bracket
	inflectionSteps bool
	refine          bool
	logger          Logger
	warnRateLimits  map[time.Duration]int
}

// Option configures a Simulation.
type Option interface {
	applySim(*simOptions) error
}

// optionFunc implements Option.
type optionFunc struct {
	apply func(*simOptions) error
}

func (o *optionFunc) applySim(opts *simOptions) error {
	return o.apply(opts)
}

// WithRelTol sets the default relative tolerance used to derive qTol for
// variables added without an explicit rTol (spec §2: qTol = max(rTol·|q0|,
// aTol)). relTol must be > 0.
func WithRelTol(relTol float64) Option {
	return &optionFunc{func(opts *simOptions) error {
		if !(relTol > 0) {
			return &ConfigError{Field: "RelTol", Message: "must be > 0"}
		}
		opts.relTol = relTol
		return nil
	}}
}

// WithAbsTol sets the default absolute tolerance used to derive qTol for
// variables added without an explicit aTol. absTol must be > 0.
func WithAbsTol(absTol float64) Option {
	return &optionFunc{func(opts *simOptions) error {
		if !(absTol > 0) {
			return &ConfigError{Field: "AbsTol", Message: "must be > 0"}
		}
		opts.absTol = absTol
		return nil
	}}
}

// WithDtMin sets the floor clamp on a variable's next-event time: tE is
// never scheduled closer than tQ+dtMin (spec §3).
func WithDtMin(dtMin float64) Option {
	return &optionFunc{func(opts *simOptions) error {
		if !(dtMin >= 0) {
			return &ConfigError{Field: "DtMin", Message: "must be >= 0"}
		}
		opts.dtMin = dtMin
		return nil
	}}
}

// WithDtMax sets the ceiling clamp on a variable's next-event time: tE is
// clipped to tQ+dtMax if dtMax is finite and positive (spec §3).
func WithDtMax(dtMax float64) Option {
	return &optionFunc{func(opts *simOptions) error {
		if !(dtMax > 0) {
			return &ConfigError{Field: "DtMax", Message: "must be > 0"}
		}
		opts.dtMax = dtMax
		return nil
	}}
}

// WithInflectionSteps enables the policy (spec §3) that clips tE to a
// polynomial's inflection time whenever the sign of its next-lower
// derivative differs, guaranteeing at least one requantization per monotone
// segment.
func WithInflectionSteps(enabled bool) Option {
	return &optionFunc{func(opts *simOptions) error {
		opts.inflectionSteps = enabled
		return nil
	}}
}

// WithRefine enables Newton refinement of zero-crossing roots (spec §4.3):
// iterate t ← t − m·z(t)/z'(t), halving the step m whenever |z(t)| stops
// decreasing, accepting the refined root only if it improves on the
// closed-form one.
func WithRefine(enabled bool) Option {
	return &optionFunc{func(opts *simOptions) error {
		opts.refine = enabled
		return nil
	}}
}

// WithZTol sets the default zero-crossing flat-band tolerance: crossings
// with |z| below zTol during refinement are treated as Flat (spec §4.3).
// zTol must be > 0.
func WithZTol(zTol float64) Option {
	return &optionFunc{func(opts *simOptions) error {
		if !(zTol > 0) {
			return &ConfigError{Field: "ZTol", Message: "must be > 0"}
		}
		opts.zTol = zTol
		return nil
	}}
}

// WithDtND sets the finite-difference step used to estimate derivatives
// numerically: by nQSS/nLIQSS variables for their higher-order
// coefficients, and by LIQSS2/3 variables for their hysteretic bracket.
// dtND must be > 0.
func WithDtND(dtND float64) Option {
	return &optionFunc{func(opts *simOptions) error {
		if !(dtND > 0) {
			return &ConfigError{Field: "DtND", Message: "must be > 0"}
		}
		opts.dtND = dtND
		return nil
	}}
}

// WithLogger installs a Logger for the Simulation's diagnostic output
// (lifecycle and zero-crossing messages, ModelFailure context). The
// default is a no-op logger.
func WithLogger(logger Logger) Option {
	return &optionFunc{func(opts *simOptions) error {
		if logger == nil {
			return &ConfigError{Field: "Logger", Message: "must not be nil"}
		}
		opts.logger = logger
		return nil
	}}
}

// WithWarnRateLimits configures the rate limits (category -> max count per
// duration) that logging.go's diagnostics.warn applies to repeated
// LevelWarn diagnostics. No code path in the kernel calls warn: Newton
// refinement does not log, and ModelFailure is logged without a limit.
func WithWarnRateLimits(rates map[time.Duration]int) Option {
	return &optionFunc{func(opts *simOptions) error {
		opts.warnRateLimits = rates
		return nil
	}}
}

// resolveOptions applies defaults then opts, in order, surfacing the first
// validation failure as a ConfigError.
func resolveOptions(opts []Option) (*simOptions, error) {
	cfg := &simOptions{
		relTol:          1e-6,
		absTol:          1e-6,
		dtMin:           1e-12,
		dtMax:           0, // 0 means unbounded
		zTol:            1e-9,
		dtND:            1e-9,
		inflectionSteps: true,
		refine:          true,
		logger:          NewNoOpLogger(),
		warnRateLimits:  map[time.Duration]int{time.Second: 1, time.Minute: 20},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applySim(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

package qss

import "math"

// SmoothInputFunc is the callable an Inp1/2/3 variable wraps (spec §4.4):
// given absolute time t, it returns a SmoothToken carrying the value and
// up to 3 derivatives, plus the next discrete-event time (+Inf if none
// pending).
type SmoothInputFunc func(t float64) SmoothToken

// DiscreteInputFunc is the callable an InpB/InpD/InpI variable wraps: given
// absolute time t, it returns the current value and the next time at
// which the value may change (+Inf if none pending).
type DiscreteInputFunc func(t float64) (value float64, tD float64)

// inputState is the input-variable-specific state a Kind-Input* Variable
// carries in addition to its common trajectory fields.
type inputState struct {
	smoothFn   SmoothInputFunc
	discreteFn DiscreteInputFunc
}

// initSmoothInput performs the stage-F initialization of an Inp1/2/3
// variable (spec §4.4): read the token at t0 and copy its coefficients
// into the continuous polynomial and, up to the second-order term, into
// the quantized one (q carries no cubic term; there is no model to
// re-derive either from), then set tE and tD. The caller schedules the QSS
// event at tE and, if the token carries one, the Discrete event at tD.
func (v *Variable) initSmoothInput(t0 float64) {
	v.tQ, v.tX = t0, t0
	tok := v.input.smoothFn(t0)
	coeffs := tok.Coefficients()
	v.x = coeffs
	v.q[0], v.q[1], v.q[2] = coeffs[0], coeffs[1], coeffs[2]
	v.recomputeQTol()
	v.tD = tok.TD
	v.tE = v.computeInputTE(math.Inf(1), 0, 0)
}

// advanceDiscreteInput re-reads the input function's token at the current
// discrete time, which may reset every coefficient, then recomputes tE
// (spec §4.4: "When the Discrete event fires, it reads a fresh token, may
// reset all coefficients, then recomputes tE").
func (v *Variable) advanceDiscreteInput(t float64, dtMin, dtMax float64) {
	v.tQ, v.tX = t, t
	tok := v.input.smoothFn(t)
	coeffs := tok.Coefficients()
	v.x = coeffs
	v.q[0], v.q[1], v.q[2] = coeffs[0], coeffs[1], coeffs[2]
	v.recomputeQTol()
	v.tD = tok.TD
	v.tE = v.computeInputTE(math.Inf(1), dtMin, dtMax)
}

// computeInputTE derives tE for a smooth input variable from its own
// coefficients, the same closed forms QSS variables use, clamped by
// dtMin/dtMax (spec §4.2/§4.4).
func (v *Variable) computeInputTE(_ float64, dtMin, dtMax float64) float64 {
	order := v.kind.order()
	var leading float64
	switch order {
	case 3:
		leading = v.x[3]
	case 2:
		leading = v.x[2]
	default:
		leading = v.x[1]
	}
	tE := v.tQ + tEndQSS(order, leading, v.qTol)
	return clampTE(tE, v.tQ, dtMin, dtMax)
}

// initDiscreteInput performs the one-time setup of an InpB/InpD/InpI
// order-0 variable: only x0 and tD are meaningful (spec §4.4).
func (v *Variable) initDiscreteInput(t0 float64) {
	v.tQ, v.tX = t0, t0
	val, tD := v.input.discreteFn(t0)
	v.x[0] = val
	v.q[0] = val
	v.setDiscreteValueFromRaw(val)
	v.tD = tD
	v.tE = math.Inf(1)
}

// advanceDiscreteInputValue re-reads the discrete input function; if the
// value changed, the caller (dispatcher) must trigger advance_observers on
// v's observer set (spec §4.4). It reports whether the value changed.
func (v *Variable) advanceDiscreteInputValue(t float64) bool {
	old := v.x[0]
	val, tD := v.input.discreteFn(t)
	v.tQ, v.tX = t, t
	v.x[0] = val
	v.q[0] = val
	v.setDiscreteValueFromRaw(val)
	v.tD = tD
	return val != old
}

// setDiscreteValueFromRaw projects a raw float64 onto this variable's
// typed discrete storage (boolValue for InpB/B, intValue for InpI/I),
// keeping x[0] as the canonical float representation used by Value/
// sampling probes regardless of kind.
func (v *Variable) setDiscreteValueFromRaw(raw float64) {
	switch v.kind {
	case KindInputB, KindDiscreteB:
		v.boolValue = raw != 0
	case KindInputI, KindDiscreteI:
		v.intValue = int64(raw)
	}
}

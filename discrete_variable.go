package qss

import "math"

// initDiscreteAlgebraic performs the one-time setup of a B/I/D/R
// variable: its value is read once from the Model and it never gets its
// own queue entry, since it has no continuous dynamics of its own — it is
// only ever mutated by a Handler event fired from a zero-crossing (spec
// §4.4).
func (v *Variable) initDiscreteAlgebraic(t0 float64) {
	v.tQ, v.tX, v.tE, v.tD = t0, t0, math.Inf(1), math.Inf(1)
	val := v.model.getValue()
	v.x[0] = val
	v.q[0] = val
	v.setDiscreteValueFromRaw(val)
}

// advanceHandler applies a Handler event: the dispatcher already ran the
// model's EnterEventMode/HandleEvents sequence (spec §6), so this just
// re-reads the (possibly model-snapped) value and records it. It reports
// whether the value changed, so the caller knows whether to ripple to
// observers.
func (v *Variable) advanceHandler(t float64) bool {
	old := v.x[0]
	val := v.model.getValue()
	v.tQ, v.tX = t, t
	v.x[0] = val
	v.q[0] = val
	v.setDiscreteValueFromRaw(val)
	return val != old
}

// Bool reports the current value of a KindInputB/KindDiscreteB variable.
func (v *Variable) Bool() bool { return v.boolValue }

// Int reports the current value of a KindInputI/KindDiscreteI variable.
func (v *Variable) Int() int64 { return v.intValue }

// Float reports the current value of a KindDiscreteD/KindDiscreteR
// variable (equivalently, any variable's raw x0).
func (v *Variable) Float() float64 { return v.x[0] }

package qss

import (
	"math"

	"github.com/joeycumines/go-qss/internal/numeric"
)

// LIQSS (self-observer) variables evaluate their own derivative twice,
// bracketing the quantized value at q_c ± qTol, to pick whichever
// hysteretic quantized value keeps the derivative's sign constant across
// the quantum — this is what lets a self-observing variable avoid
// chattering between two adjacent quantization levels (spec §4.2).
//
// During a simultaneous batch, the new q0 is written to the deferred l0
// field (not q[0] itself) until the batch's publish stage, and the model
// value the bracket probes overwrite is restored afterwards, so a pair of
// mutually self-observing variables never see each other's half-updated
// state mid-batch (spec §4.2: "a deferred l_0 field so that its q_0 is
// visible to sibling triggers only after all stage-0 reads complete").

// initLIQSS performs the one-time setup of a LIQSS variable: identical to
// initQSS's value/time bookkeeping, but the derivative/quantization step
// runs the hysteretic bracket instead of a single GetDerivative call.
func (v *Variable) initLIQSS(t0 float64, dtMin, dtMax, dtND float64, inflection bool) {
	v.tQ, v.tX = t0, t0
	v.selfObserver = true
	v.model.setTime(t0)
	xIni := v.model.getValue()
	v.x[0] = xIni
	v.q[0] = xIni
	v.recomputeQTol()

	v.liqssQuantize(dtND)
	v.tD = math.Inf(1)
	v.tE = v.computeQSSTE(dtMin, dtMax, inflection)
}

// liqssQuantize runs the hysteretic bracket for the variable's order and
// writes the result directly into q[0]/x[1..] (used outside a
// simultaneous batch — init and single-step advance). It returns whether
// the implicit (locked) branch was taken and whether the comparison ratio
// was infinite, for the caller to record in Stats.
func (v *Variable) liqssQuantize(dtND float64) (implicit, infinite bool) {
	q0, x1, implicit, infinite := v.liqssBracket(dtND)
	v.q[0] = q0
	v.x[0] = q0
	v.x[1] = numeric.FlushDenormal(x1)
	order := v.kind.order()
	if order >= 2 {
		v.q[1] = v.x[1]
		v.x[2] = numeric.FlushDenormal(v.directionalCoefficient(2))
	}
	if order >= 3 {
		v.q[2] = v.x[2]
		v.x[3] = numeric.FlushDenormal(v.directionalCoefficient(3))
	}
	return implicit, infinite
}

// liqssBracket implements the order-1 hysteretic rule of spec §4.2 (order
// 2/3 branch on the sign of the second/third derivative instead, obtained
// by forward finite differences of GetDerivative at step dtND). It returns the chosen q0, the
// resulting x1, whether the hysteretic (locked, non-interpolated) branch
// was taken, and whether the QSS-step comparison ratio is infinite
// (Variable_QSS1.cc's advance_LIQSS_QSS_step_ratio: the plain-QSS
// derivative at q_c is exactly 0, so an ordinary QSS variable with this
// state would never retrigger).
func (v *Variable) liqssBracket(dtND float64) (q0, x1 float64, implicit, infinite bool) {
	qc := v.q[0]
	qTol := v.qTol
	ql, qu := qc-qTol, qc+qTol

	order := v.kind.order()
	deriv := func(q float64) float64 {
		v.model.setValue(q)
		return v.model.getDerivative()
	}

	var fl, fu float64
	switch order {
	case 1:
		fl, fu = deriv(ql), deriv(qu)
	default:
		// order >= 2: branch on the sign of the (order-1)-th derivative
		// of f, estimated by numeric differentiation of GetDerivative
		// around ql/qu.
		if order == 2 {
			fl = (deriv(ql+dtND) - deriv(ql)) / dtND
			fu = (deriv(qu+dtND) - deriv(qu)) / dtND
		} else {
			fl = (deriv(ql+2*dtND) - 2*deriv(ql+dtND) + deriv(ql)) / (dtND * dtND)
			fu = (deriv(qu+2*dtND) - 2*deriv(qu+dtND) + deriv(qu)) / (dtND * dtND)
		}
	}

	fc := deriv(qc)
	infinite = fc == 0

	switch {
	case fl < 0 && fu < 0:
		q0 = ql
		implicit = true
	case fl > 0 && fu > 0:
		q0 = qu
		implicit = true
	case fl == 0 && fu == 0:
		q0 = qc
		implicit = true
	default:
		q0 = (ql*fu - qu*fl) / (fu - fl)
		if q0 < ql {
			q0 = ql
		}
		if q0 > qu {
			q0 = qu
		}
		implicit = false
	}

	v.model.setValue(q0)
	x1 = v.model.getDerivative()
	return q0, x1, implicit, infinite
}

// advanceLIQSS is the single-step (non-simultaneous) dispatch of a LIQSS
// requantization event: same tQ/tX bookkeeping as advanceQSS, but the new
// quantized value comes from liqssQuantize's hysteretic bracket instead of
// a plain copy of the continuous value.
func (v *Variable) advanceLIQSS(t float64, dtMin, dtMax, dtND float64, inflection bool) (dt float64, implicit, infinite bool) {
	dt = t - v.tQ
	v.x[0] = v.Value(t)
	v.q[0] = v.x[0]
	v.tQ = t
	v.tX = t
	v.recomputeQTol()
	v.model.setTime(t)

	implicit, infinite = v.liqssQuantize(dtND)

	v.tE = v.computeQSSTE(dtMin, dtMax, inflection)
	v.tS = dt
	return dt, implicit, infinite
}

// liqssStage0 runs the read-only half of a simultaneous-batch LIQSS
// advance: it re-centers q[0] on x(t) and computes the hysteretic bracket
// there, but defers the result into l0 rather than publishing it, and
// restores the model value the bracket probes overwrote, so sibling
// triggers in the same batch (including a mutual self-observer pair)
// still read the pre-batch value through the model when they run their
// own stage 0 (spec §4.2).
func (v *Variable) liqssStage0(t float64, dtND float64) {
	prev := v.model.getValue()
	v.x[0] = v.Value(t)
	v.q[0] = v.x[0] // bracket must center on the newly-advanced value, mirroring advanceLIQSS
	q0, _, implicit, infinite := v.liqssBracket(dtND)
	v.model.setValue(prev)
	v.l0 = q0
	v.l0set = true
	v.l0Implicit = implicit
	v.l0Infinite = infinite
}

// liqssPublish commits the deferred l0 (written by liqssStage0) into q[0]
// and finishes the coefficient update — the batch's final stage (spec
// §4.5's "stage F": publish coefficients, set tE, reinsert into queue").
func (v *Variable) liqssPublish(t float64, dtMin, dtMax, dtND float64, inflection bool) (dt float64, implicit, infinite bool) {
	dt = t - v.tQ
	v.tQ = t
	v.tX = t
	v.recomputeQTol()
	v.model.setTime(t)

	qc := v.l0
	v.l0set = false
	implicit, infinite = v.l0Implicit, v.l0Infinite
	v.model.setValue(qc)
	x1 := numeric.FlushDenormal(v.model.getDerivative())
	v.q[0] = qc
	v.x[0] = qc
	v.x[1] = x1
	order := v.kind.order()
	if order >= 2 {
		v.q[1] = x1
		v.x[2] = numeric.FlushDenormal(v.directionalCoefficient(2))
	}
	if order >= 3 {
		v.q[2] = v.x[2]
		v.x[3] = numeric.FlushDenormal(v.directionalCoefficient(3))
	}

	v.tE = v.computeQSSTE(dtMin, dtMax, inflection)
	v.tS = dt
	return dt, implicit, infinite
}

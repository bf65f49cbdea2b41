package qss

import (
	"math"

	"github.com/joeycumines/go-qss/internal/numeric"
)

// QSS variables (standard, non-self-observer kinds) derive their
// higher-order Taylor coefficients from the model via directional
// derivatives seeded with their observees' own quantized slopes — the
// same chain-rule construction VariableQSS2/3 use in the original source
// (x2 = (1/2)*d/dt[f(q)], evaluated along the observees' trajectories;
// x3 = (1/6) of the next chain-rule term). GetDerivative alone only ever
// gives the first-order term; GetDirectionalDerivative is how the kernel
// asks the model for the rest without the model exposing raw partials.

// initQSS performs stage 0..F of a standard QSS variable's one-time setup
// (spec §3 "Lifecycle"): x0=q0=xIni, then read derivatives from the model
// up to the variable's order, then schedule the first requantization.
func (v *Variable) initQSS(t0 float64, dtMin, dtMax float64, inflection bool) {
	v.tQ, v.tX = t0, t0
	v.model.setTime(t0)
	xIni := v.model.getValue()
	v.x[0] = xIni
	v.q[0] = xIni
	v.recomputeQTol()

	order := v.kind.order()
	v.model.setValue(v.q[0])
	v.x[1] = numeric.FlushDenormal(v.stage1Derivative())
	if order >= 2 {
		v.q[1] = v.x[1]
	}
	if order >= 2 {
		v.x[2] = numeric.FlushDenormal(v.directionalCoefficient(2))
	}
	if order >= 3 {
		v.q[2] = v.x[2]
		v.x[3] = numeric.FlushDenormal(v.directionalCoefficient(3))
	}

	v.tD = math.Inf(1)
	v.tE = v.computeQSSTE(dtMin, dtMax, inflection)
}

// stage1Derivative evaluates the variable's first-order coefficient: a
// plain model derivative call for standard QSS, or, for the fQSS variant,
// the same call routed through GetDirectionalDerivative's fused entry
// point instead of GetDerivative (spec §4.2's fQSS: "a single
// directional-derivative evaluation of the model rather than a plain
// get_derivative call").
func (v *Variable) stage1Derivative() float64 {
	if v.variant.has(VariantF) {
		return v.model.getDirectionalDerivative([]int{v.ref}, []float64{1})
	}
	return v.model.getDerivative()
}

// directionalCoefficient evaluates the order-th Taylor coefficient via a
// directional derivative seeded with the observees' (order-1)-th
// quantized coefficients, divided by the corresponding factorial. With no
// observees (an isolated/autonomous variable), the model is not called and
// the coefficient is 0, whether or not the variable's derivative depends
// on its own value.
func (v *Variable) directionalCoefficient(order int) float64 {
	if v.variant.has(VariantN) {
		return v.numericDirectionalCoefficient(order)
	}
	if len(v.observees) == 0 {
		return 0
	}
	refs := make([]int, len(v.observees))
	seeds := make([]float64, len(v.observees))
	for i, o := range v.observees {
		if o.variant.has(VariantX) {
			// xQSS observees broadcast their continuous trajectory, not
			// the quantized one; push the continuous value into the
			// model before seeding so it sees the same thing the
			// observee's own advance path would publish.
			o.model.setValue(o.broadcastValue(o.tX))
		}
		refs[i] = o.ref
		switch order {
		case 2:
			seeds[i] = o.q[1]
		default:
			seeds[i] = o.q[2]
		}
	}
	dd := v.model.getDirectionalDerivative(refs, seeds)
	switch order {
	case 2:
		return dd / 2
	default:
		return dd / 6
	}
}

// numericDirectionalCoefficient estimates the order-th Taylor coefficient
// for an nQSS/nLIQSS variable by centered finite differences of the
// model's plain GetDerivative around the variable's own current value,
// at step dtND, instead of a GetDirectionalDerivative call — for models
// that only expose first-order derivatives (spec §9).
func (v *Variable) numericDirectionalCoefficient(order int) float64 {
	x0 := v.x[0]
	deriv := func(x float64) float64 {
		v.model.setValue(x)
		return v.model.getDerivative()
	}
	switch order {
	case 2:
		d := numericDerivative1(deriv, x0, v.dtND)
		v.model.setValue(x0)
		return d * v.x[1] / 2
	default:
		// x''' = f''(x)*x'^2 + f'(x)*x'', with x' = x1 and x'' = 2*x2.
		d1 := numericDerivative1(deriv, x0, v.dtND)
		d2 := numericDerivative2(deriv, x0, v.dtND)
		v.model.setValue(x0)
		return (d2*v.x[1]*v.x[1] + d1*2*v.x[2]) / 6
	}
}

// computeQSSTE derives tE from the variable's own leading continuous
// coefficient, per the closed forms of spec §4.2, applying the
// inflection-steps policy and the dt_min/dt_max clamp.
func (v *Variable) computeQSSTE(dtMin, dtMax float64, inflection bool) float64 {
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
	if v.variant.has(VariantR) {
		leading = v.applyRelaxation(leading)
	}
	dt := tEndQSS(order, leading, v.qTol)
	tE := v.tQ + dt
	if inflection && order >= 2 {
		if it, ok := inflectionTime(order, v.x, v.tX); ok && it > v.tQ && it < tE {
			tE = it
		}
	}
	return clampTE(tE, v.tQ, dtMin, dtMax)
}

// applyRelaxation implements the rQSS damping rule: if the leading
// coefficient's sign flipped from the previous requantization, the
// variable is oscillating around a near-zero derivative, so halve its
// magnitude before solving for tE — trading a larger transient error for
// fewer chattering requantizations (spec §4.2's rQSS). The sign used for
// the next comparison is updated as a side effect.
func (v *Variable) applyRelaxation(leading float64) float64 {
	sign := int8(0)
	switch {
	case leading > 0:
		sign = 1
	case leading < 0:
		sign = -1
	}
	flipped := v.rPrevSign != 0 && sign != 0 && sign != v.rPrevSign
	v.rPrevSign = sign
	if flipped {
		return leading / 2
	}
	return leading
}

// inflectionTime returns the absolute time tX+s at which the sign of the
// next-lower derivative flips, so each monotone segment of the polynomial
// gets at least one requantization (spec §4.2). s may be negative; the
// caller keeps only times after tQ. For order 2: the derivative x1+2*x2*s changes sign at
// s=-x1/(2*x2). For order 3: the second derivative 2*x2+6*x3*s changes
// sign at s=-x2/(3*x3).
func inflectionTime(order int, x [4]float64, tX float64) (float64, bool) {
	switch order {
	case 2:
		if x[2] == 0 {
			return 0, false
		}
		s := -x[1] / (2 * x[2])
		return tX + s, true
	case 3:
		if x[3] == 0 {
			return 0, false
		}
		s := -x[2] / (3 * x[3])
		return tX + s, true
	default:
		return 0, false
	}
}

// advanceQSS is the single-step (non-simultaneous) dispatch of a QSS
// requantization event (spec §4.5 "single-step dispatch by type"): it runs
// every stage inline, publishes the new coefficients, recomputes tE, and
// returns the new Δt since the previous requantization (for Stats). A
// smooth input variable re-reads its input function's token instead of
// calling the model.
func (v *Variable) advanceQSS(t float64, dtMin, dtMax float64, inflection bool) float64 {
	dt := t - v.tQ
	if v.input.smoothFn != nil {
		v.advanceDiscreteInput(t, dtMin, dtMax)
		v.tS = dt
		return dt
	}
	v.q[0] = v.Value(t) // the continuous value at the trigger instant becomes the new quantized value
	v.tQ = t
	v.tX = t
	v.recomputeQTol()

	order := v.kind.order()
	v.model.setTime(t)
	v.model.setValue(v.q[0])
	v.x[0] = v.q[0]
	v.x[1] = numeric.FlushDenormal(v.stage1Derivative())
	if order >= 2 {
		v.q[1] = v.x[1]
		v.x[2] = numeric.FlushDenormal(v.directionalCoefficient(2))
	}
	if order >= 3 {
		v.q[2] = v.x[2]
		v.x[3] = numeric.FlushDenormal(v.directionalCoefficient(3))
	}

	v.tE = v.computeQSSTE(dtMin, dtMax, inflection)
	v.tS = dt
	return dt
}

// advanceObserverQSS is the "observer-driven update" of spec §4.2: called
// at time t (tX <= t <= tE) when an observee requantized. It re-evaluates
// the continuous polynomial at t, shifts tX forward, refreshes the
// higher-order coefficients, and recomputes tE via the unaligned formula
// (tQ stays behind tX, since the variable itself did not requantize).
func (v *Variable) advanceObserverQSS(t float64, dtMin, dtMax float64, inflection bool) {
	newX0 := v.Value(t)
	v.x[0] = newX0
	v.tX = t

	order := v.kind.order()
	v.model.setTime(t)
	v.model.setValue(newX0)
	v.x[1] = numeric.FlushDenormal(v.stage1Derivative())
	if order >= 2 {
		v.x[2] = numeric.FlushDenormal(v.directionalCoefficient(2))
	}
	if order >= 3 {
		v.x[3] = numeric.FlushDenormal(v.directionalCoefficient(3))
	}

	// Unaligned tE: smallest t' > tX with |x(t')-q(t')| = qTol. Since q is
	// still referenced at the old tQ, evaluate directly rather than via
	// the tQ-aligned closed form.
	v.tE = v.computeUnalignedTE(t, dtMin, dtMax, inflection)
}

// computeUnalignedTE solves |x(t')-q(t')| = qTol for t' > tX when tQ < tX,
// by evaluating the deviation polynomial e(s) = x(tX+s) - q(tX+s) and
// finding its smallest positive root via the same closed-form machinery
// zero-crossing variables use, since e(s) is itself a polynomial of the
// same order.
func (v *Variable) computeUnalignedTE(tX, dtMin, dtMax float64, inflection bool) float64 {
	order := v.kind.order()
	// e(s) coefficients, s measured from tX: e = (x - q) evaluated with x
	// referenced at tX (so x-part is just v.x) and q referenced at tQ
	// (re-expand q around tX first).
	qAtTX := [3]float64{}
	dq := tX - v.tQ
	qAtTX[0] = v.q[0] + dq*(v.q[1]+dq*v.q[2])
	if order >= 2 {
		qAtTX[1] = v.q[1] + 2*dq*v.q[2]
	}
	if order >= 3 {
		qAtTX[2] = v.q[2]
	}

	var e [4]float64
	e[0] = v.x[0] - qAtTX[0]
	e[1] = v.x[1] - qAtTX[1]
	if order >= 3 {
		e[2] = v.x[2] - qAtTX[2]
		e[3] = v.x[3]
	} else if order == 2 {
		e[2] = v.x[2]
	}

	// Solve e(s) = +-qTol for the smallest positive s; try both targets
	// and keep the smaller valid root.
	best := math.Inf(1)
	for _, target := range [2]float64{v.qTol, -v.qTol} {
		shifted := e
		shifted[0] -= target
		if root, ok := closedFormRoot(order, shifted, tX, tX, math.Inf(1)); ok {
			if root < best {
				best = root
			}
		}
	}
	if math.IsInf(best, 1) {
		return clampTE(math.Inf(1), tX, dtMin, dtMax)
	}
	_ = inflection // unaligned updates keep the plain root; inflection clipping applies at self-trigger time only
	return clampTE(best, tX, dtMin, dtMax)
}

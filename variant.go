package qss

// Variant is a bitmask of the QSS sibling-family modifiers from spec
// §4.2 ("Extensions and sibling families"): xQSS, fQSS, rQSS, nQSS/nLIQSS.
// Spec's original source models these as distinct template instantiations
// per family; since they only change a handful of stage formulas (not the
// overall stage protocol), composing them as flags over the common
// QSS/LIQSS Kind avoids a combinatorial explosion of Kind values while
// still letting advance code special-case each modifier independently.
type Variant uint8

const (
	// VariantStandard is the base QSS/LIQSS behavior: no modifiers.
	VariantStandard Variant = 0

	// VariantX (xQSS) propagates the observer-visible trajectory using
	// the continuous polynomial (x) rather than the quantized one (q).
	// Standard QSS broadcasts q; xQSS broadcasts x, trading a slightly
	// larger worst-case error bound for fewer required requantizations
	// in some systems.
	VariantX Variant = 1 << iota

	// VariantF (fQSS) is the fused variant: its stage-1 coefficient
	// comes from a single directional-derivative evaluation of the
	// model rather than a plain get_derivative call, letting the model
	// fuse several partials in one call.
	VariantF

	// VariantR (rQSS) is the relaxation variant: when the leading
	// coefficient's sign has flipped since the previous requantization,
	// it halves that coefficient before tE is solved (the requantization
	// itself still happens), reducing chatter around near-zero
	// derivatives at the cost of a slightly larger transient error.
	VariantR

	// VariantN (nQSS/nLIQSS) is the numeric-differentiation variant: the
	// model only exposes get_derivative (first order), so second- and
	// third-order coefficients are estimated via centered finite
	// differences at step dtND (spec §9) instead of direct model calls.
	VariantN
)

func (v Variant) has(flag Variant) bool { return v&flag != 0 }

// String renders the set modifiers, for diagnostics.
func (v Variant) String() string {
	if v == VariantStandard {
		return "standard"
	}
	s := ""
	if v.has(VariantX) {
		s += "x"
	}
	if v.has(VariantF) {
		s += "f"
	}
	if v.has(VariantR) {
		s += "r"
	}
	if v.has(VariantN) {
		s += "n"
	}
	return s
}

// broadcastValue returns the value an observer sees for v at time t: the
// quantized polynomial ordinarily, or the continuous one under xQSS.
func (v *Variable) broadcastValue(t float64) float64 {
	if v.variant.has(VariantX) {
		return v.Value(t)
	}
	return v.Quantized(t)
}

// numericDerivative1 estimates f'(x0) by centered finite difference at
// step dtND, for nQSS/nLIQSS variants whose model exposes only
// get_derivative (the first time derivative of the state) rather than
// analytic higher derivatives. f evaluates the model's derivative as a
// function of the probe value.
func numericDerivative1(f func(x float64) float64, x0, dtND float64) float64 {
	return (f(x0+dtND) - f(x0-dtND)) / (2 * dtND)
}

// numericDerivative2 estimates f''(x0) by a centered second difference at
// step dtND.
func numericDerivative2(f func(x float64) float64, x0, dtND float64) float64 {
	return (f(x0+dtND) - 2*f(x0) + f(x0-dtND)) / (dtND * dtND)
}

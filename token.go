package qss

import "math"

// SmoothToken is a value-carrying record exchanged between input
// functions and input variables: a polynomial of up to order 3 plus an
// optional next discrete-event time. Coefficients above Order are unused
// and left at zero.
type SmoothToken struct {
	Order      int // highest derivative order set, in [0,3]
	X0, X1, X2, X3 float64
	TD         float64 // next discrete-event time, +Inf if none pending
}

// NewToken0 builds an order-0 token (value only), with no pending
// discrete event.
func NewToken0(x0 float64) SmoothToken {
	return SmoothToken{Order: 0, X0: x0, TD: math.Inf(1)}
}

// NewToken1 builds an order-1 token.
func NewToken1(x0, x1 float64) SmoothToken {
	return SmoothToken{Order: 1, X0: x0, X1: x1, TD: math.Inf(1)}
}

// NewToken2 builds an order-2 token.
func NewToken2(x0, x1, x2 float64) SmoothToken {
	return SmoothToken{Order: 2, X0: x0, X1: x1, X2: x2, TD: math.Inf(1)}
}

// NewToken3 builds an order-3 token.
func NewToken3(x0, x1, x2, x3 float64) SmoothToken {
	return SmoothToken{Order: 3, X0: x0, X1: x1, X2: x2, X3: x3, TD: math.Inf(1)}
}

// WithDiscrete returns a copy of the token with TD set.
func (s SmoothToken) WithDiscrete(tD float64) SmoothToken {
	s.TD = tD
	return s
}

// HasDiscrete reports whether the token carries a pending discrete
// transition.
func (s SmoothToken) HasDiscrete() bool {
	return s.TD < math.Inf(1)
}

// Value evaluates the token's polynomial at offset dt from its reference
// time.
func (s SmoothToken) Value(dt float64) float64 {
	switch s.Order {
	case 0:
		return s.X0
	case 1:
		return s.X0 + s.X1*dt
	case 2:
		return s.X0 + dt*(s.X1+dt*s.X2)
	default:
		return s.X0 + dt*(s.X1+dt*(s.X2+dt*s.X3))
	}
}

// Coefficients reports the stored coefficients up to Order as a fixed
// array, so callers can copy them into a Variable's own polynomial
// fields without a per-order switch.
func (s SmoothToken) Coefficients() [4]float64 {
	return [4]float64{s.X0, s.X1, s.X2, s.X3}
}

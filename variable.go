package qss

import (
	"math"
	"strings"
)

// Kind tags which concrete variable behavior a Variable record carries.
// Per spec §9's design note, the kernel models variables as a tagged
// union over kind rather than deep inheritance: a single Variable struct
// holds every kind's fields, and advance/tE dispatch switches on Kind.
type Kind int

const (
	KindQSS1 Kind = iota
	KindQSS2
	KindQSS3
	KindLIQSS1
	KindLIQSS2
	KindLIQSS3
	KindInputSmooth1
	KindInputSmooth2
	KindInputSmooth3
	KindInputB
	KindInputD
	KindInputI
	KindZC1
	KindZC2
	KindZC3
	KindDiscreteB
	KindDiscreteI
	KindDiscreteD
	KindDiscreteR
)

// String names a Kind, for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindQSS1:
		return "QSS1"
	case KindQSS2:
		return "QSS2"
	case KindQSS3:
		return "QSS3"
	case KindLIQSS1:
		return "LIQSS1"
	case KindLIQSS2:
		return "LIQSS2"
	case KindLIQSS3:
		return "LIQSS3"
	case KindInputSmooth1:
		return "Inp1"
	case KindInputSmooth2:
		return "Inp2"
	case KindInputSmooth3:
		return "Inp3"
	case KindInputB:
		return "InpB"
	case KindInputD:
		return "InpD"
	case KindInputI:
		return "InpI"
	case KindZC1:
		return "ZC1"
	case KindZC2:
		return "ZC2"
	case KindZC3:
		return "ZC3"
	case KindDiscreteB:
		return "B"
	case KindDiscreteI:
		return "I"
	case KindDiscreteD:
		return "D"
	case KindDiscreteR:
		return "R"
	default:
		return "Kind(?)"
	}
}

// order returns the trajectory order (number of continuous derivatives
// tracked) that this Kind's QSS/LIQSS/input/ZC family uses.
func (k Kind) order() int {
	switch k {
	case KindQSS1, KindLIQSS1, KindInputSmooth1, KindZC1:
		return 1
	case KindQSS2, KindLIQSS2, KindInputSmooth2, KindZC2:
		return 2
	case KindQSS3, KindLIQSS3, KindInputSmooth3, KindZC3:
		return 3
	default:
		return 0
	}
}

func (k Kind) isLIQSS() bool {
	return k == KindLIQSS1 || k == KindLIQSS2 || k == KindLIQSS3
}

func (k Kind) isQSSFamily() bool {
	return k == KindQSS1 || k == KindQSS2 || k == KindQSS3 ||
		k == KindLIQSS1 || k == KindLIQSS2 || k == KindLIQSS3
}

func (k Kind) isInput() bool {
	switch k {
	case KindInputSmooth1, KindInputSmooth2, KindInputSmooth3, KindInputB, KindInputD, KindInputI:
		return true
	default:
		return false
	}
}

func (k Kind) isZC() bool {
	return k == KindZC1 || k == KindZC2 || k == KindZC3
}

func (k Kind) isDiscrete() bool {
	switch k {
	case KindDiscreteB, KindDiscreteI, KindDiscreteD, KindDiscreteR, KindInputB, KindInputD, KindInputI:
		return true
	default:
		return false
	}
}

// Variable is the common trajectory carrier for every kind the kernel
// supports (spec §3). Not every field is meaningful for every Kind; the
// kind-specific files (qss_variable.go, liqss_variable.go,
// zerocrossing.go, discrete_variable.go, input_variable.go) document which
// fields they read and write.
type Variable struct {
	Name    string
	kind    Kind
	variant Variant
	index   int // stable handle into Simulation.vars
	ref     int // external Model reference id

	rTol, aTol, qTol float64
	zTol             float64 // ZC-family flat-band tolerance
	dtND             float64 // numeric-differentiation step, for nQSS/nLIQSS

	tQ, tX, tE, tD, tS float64

	rPrevSign int8 // rQSS: sign of the leading coefficient at the previous requantization

	x [4]float64 // continuous coefficients x0..x3, referenced at tX
	q [3]float64 // quantized coefficients q0..q2, referenced at tQ

	selfObserver bool    // true if v is in its own observees (LIQSS trigger)
	l0           float64 // deferred q0 during a simultaneous batch (LIQSS)
	l0set        bool
	l0Implicit   bool // whether liqssStage0's bracket took the locked (non-interpolated) branch
	l0Infinite   bool // whether liqssStage0's QSS-step comparison ratio was infinite

	observees []*Variable
	observers []*Variable

	handle *Handle

	connectedOutput         bool
	connectedOutputObserver bool

	model *boundModel

	// ZC-family
	zc zcState

	// Input-family
	input inputState

	// Discrete-family (B/I/D/R) value storage, distinct from x/q since
	// these variables have no continuous dynamics of their own.
	discreteValue float64
	boolValue     bool
	intValue      int64

	// zero-crossing "reverse-dependency" set: variables that receive a
	// Handler event when this ZC variable crosses.
	handlerTargets []*Variable
}

// boundModel pairs a Variable's external reference id with the
// Simulation's Model, so kind-specific code can call SetValue/GetValue/
// GetDerivative without threading the Model through every function.
type boundModel struct {
	model Model
	ref   int
}

func (b *boundModel) setTime(t float64)      { b.model.SetTime(t) }
func (b *boundModel) setValue(v float64)     { b.model.SetValue(b.ref, v) }
func (b *boundModel) getValue() float64      { return b.model.GetValue(b.ref) }
func (b *boundModel) getDerivative() float64 { return b.model.GetDerivative(b.ref) }
func (b *boundModel) getDirectionalDerivative(refs []int, seeds []float64) float64 {
	return b.model.GetDirectionalDerivative(refs, seeds)
}

// DecoratedName returns the variable's name suffixed with a short tag for
// its Kind (e.g. "x.qss2", "h.zc1"), for diagnostics only — never read by
// dispatch logic. Mirrors the original source's variable name decoration,
// used there to tell a variable's quantized/continuous/zero-crossing
// trace lines apart in a shared log stream.
func (v *Variable) DecoratedName() string {
	return v.Name + "." + strings.ToLower(v.kind.String())
}

// Value evaluates the variable's continuous polynomial at absolute time t,
// valid for tX <= t <= tE.
func (v *Variable) Value(t float64) float64 {
	dt := t - v.tX
	switch {
	case v.x[3] != 0:
		return v.x[0] + dt*(v.x[1]+dt*(v.x[2]+dt*v.x[3]))
	case v.x[2] != 0:
		return v.x[0] + dt*(v.x[1]+dt*v.x[2])
	default:
		return v.x[0] + dt*v.x[1]
	}
}

// Quantized evaluates the variable's quantized polynomial at absolute time t,
// valid for tQ <= t.
func (v *Variable) Quantized(t float64) float64 {
	dt := t - v.tQ
	return v.q[0] + dt*(v.q[1]+dt*v.q[2])
}

// recomputeQTol recomputes qTol = max(rTol*|q0|, aTol), per spec §3/§8
// invariant 1.
func (v *Variable) recomputeQTol() {
	v.qTol = math.Max(v.rTol*math.Abs(v.q[0]), v.aTol)
	if v.qTol <= 0 {
		panic("qss: qTol must be > 0")
	}
}

// clampTE applies the dt_min/dt_max policy from spec §4.2: tE is clamped
// to at least tQ+dtMin and, if dtMax is finite and positive, clipped to at
// most tQ+dtMax.
func clampTE(tE, tQ, dtMin, dtMax float64) float64 {
	if tE < tQ+dtMin {
		tE = tQ + dtMin
	}
	if dtMax > 0 && tE > tQ+dtMax {
		tE = tQ + dtMax
	}
	return tE
}

// tEndQSS computes the smallest t > tQ with |x(t)-q(t)| = qTol for an
// order-N polynomial pair, via the closed forms of spec §4.2's table.
// leading is the order-th continuous coefficient (the term that
// dominates the deviation once lower-order terms are quantized away
// exactly at tQ==tX); if it is zero, tE is +Inf.
func tEndQSS(order int, leading, qTol float64) float64 {
	if leading == 0 {
		return math.Inf(1)
	}
	a := math.Abs(leading)
	switch order {
	case 1:
		return qTol / a
	case 2:
		return math.Sqrt(qTol / a)
	default:
		return math.Cbrt(qTol / a)
	}
}

package qss

// linearDecayModel implements Model for a single autonomous variable
// obeying dx/dt = -k*x, used to exercise QSS1/2/3 self-observer
// trajectories end to end (scenario: exponential decay).
type linearDecayModel struct {
	k     float64
	value float64
}

func (m *linearDecayModel) SetTime(float64)         {}
func (m *linearDecayModel) SetValue(_ int, v float64) { m.value = v }
func (m *linearDecayModel) GetValue(int) float64      { return m.value }
func (m *linearDecayModel) GetDerivative(int) float64 { return -m.k * m.value }
func (m *linearDecayModel) GetDirectionalDerivative(_ []int, seeds []float64) float64 {
	if len(seeds) == 0 {
		return 0
	}
	return -m.k * seeds[0]
}
func (m *linearDecayModel) EventIndicators() []float64 { return nil }
func (m *linearDecayModel) EnterEventMode()             {}
func (m *linearDecayModel) HandleEvents()               {}
func (m *linearDecayModel) EnterContinuousMode()        {}

// bouncingBallModel implements Model for two coupled variables (height,
// velocity) under constant gravity, with a restitution bounce applied
// whenever HandleEvents runs (triggered by the height ZC variable
// crossing zero going down).
type bouncingBallModel struct {
	refH, refV   int
	g, restitution float64
	values       map[int]float64
	bounces      int
}

func newBouncingBallModel(refH, refV int, h0, v0, g, restitution float64) *bouncingBallModel {
	return &bouncingBallModel{
		refH: refH, refV: refV,
		g: g, restitution: restitution,
		values: map[int]float64{refH: h0, refV: v0},
	}
}

func (m *bouncingBallModel) SetTime(float64) {}

func (m *bouncingBallModel) SetValue(ref int, v float64) { m.values[ref] = v }

func (m *bouncingBallModel) GetValue(ref int) float64 { return m.values[ref] }

func (m *bouncingBallModel) GetDerivative(ref int) float64 {
	switch ref {
	case m.refH:
		return m.values[m.refV]
	case m.refV:
		return -m.g
	default:
		return 0
	}
}

func (m *bouncingBallModel) GetDirectionalDerivative(refs []int, seeds []float64) float64 {
	// height's 2nd derivative w.r.t. time is velocity's 1st derivative
	// (-g), seeded directly; velocity has no curvature (constant gravity).
	for i, r := range refs {
		if r == m.refV {
			return seeds[i] * 0 // d(-g)/d(v) is 0: gravity doesn't depend on v
		}
	}
	return 0
}

func (m *bouncingBallModel) EventIndicators() []float64 { return []float64{m.values[m.refH]} }

func (m *bouncingBallModel) EnterEventMode() {}

func (m *bouncingBallModel) HandleEvents() {
	if m.values[m.refH] <= 0 {
		m.values[m.refH] = 0
		m.values[m.refV] = -m.restitution * m.values[m.refV]
		m.bounces++
	}
}

func (m *bouncingBallModel) EnterContinuousMode() {}

// coupledPairModel implements Model for two mutually self-observing
// LIQSS variables (scenario: simultaneous-trigger determinism), each
// whose derivative depends on the other's current quantized value with
// a symmetric, sign-flipping coupling designed to hysteretically lock.
type coupledPairModel struct {
	values map[int]float64
	a, b   int
}

func newCoupledPairModel(refA, refB int, a0, b0 float64) *coupledPairModel {
	return &coupledPairModel{a: refA, b: refB, values: map[int]float64{refA: a0, refB: b0}}
}

func (m *coupledPairModel) SetTime(float64)           {}
func (m *coupledPairModel) SetValue(ref int, v float64) { m.values[ref] = v }
func (m *coupledPairModel) GetValue(ref int) float64    { return m.values[ref] }
func (m *coupledPairModel) GetDerivative(ref int) float64 {
	switch ref {
	case m.a:
		return -m.values[m.a] + 0.5*m.values[m.b]
	case m.b:
		return -m.values[m.b] + 0.5*m.values[m.a]
	default:
		return 0
	}
}
func (m *coupledPairModel) GetDirectionalDerivative(refs []int, seeds []float64) float64 {
	var total float64
	for i, r := range refs {
		switch r {
		case m.a:
			total += -seeds[i]
		case m.b:
			total += 0.5 * seeds[i]
		}
	}
	return total
}
func (m *coupledPairModel) EventIndicators() []float64 { return nil }
func (m *coupledPairModel) EnterEventMode()             {}
func (m *coupledPairModel) HandleEvents()               {}
func (m *coupledPairModel) EnterContinuousMode()        {}

// achillesTortoiseModel implements Model for the two-variable linear system
// ẋ1 = -0.5x1 + 1.5x2, ẋ2 = -x1 (a damped oscillation with complex
// eigenvalues), used to exercise a pair of mutually observing (but not
// self-observing) QSS2 variables.
type achillesTortoiseModel struct {
	values map[int]float64
	r1, r2 int
}

func newAchillesTortoiseModel(r1, r2 int, x1_0, x2_0 float64) *achillesTortoiseModel {
	return &achillesTortoiseModel{r1: r1, r2: r2, values: map[int]float64{r1: x1_0, r2: x2_0}}
}

func (m *achillesTortoiseModel) SetTime(float64) {}

func (m *achillesTortoiseModel) SetValue(ref int, v float64) { m.values[ref] = v }

func (m *achillesTortoiseModel) GetValue(ref int) float64 { return m.values[ref] }

func (m *achillesTortoiseModel) GetDerivative(ref int) float64 {
	switch ref {
	case m.r1:
		return -0.5*m.values[m.r1] + 1.5*m.values[m.r2]
	case m.r2:
		return -m.values[m.r1]
	default:
		return 0
	}
}

func (m *achillesTortoiseModel) GetDirectionalDerivative(refs []int, seeds []float64) float64 {
	// x1 observes only x2 (∂f1/∂x2 = 1.5); x2 observes only x1 (∂f2/∂x1 =
	// -1): the incoming ref alone picks the right partial since neither
	// variable observes itself here.
	var total float64
	for i, r := range refs {
		switch r {
		case m.r1:
			total += -1 * seeds[i]
		case m.r2:
			total += 1.5 * seeds[i]
		}
	}
	return total
}

func (m *achillesTortoiseModel) EventIndicators() []float64 { return nil }
func (m *achillesTortoiseModel) EnterEventMode()             {}
func (m *achillesTortoiseModel) HandleEvents()               {}
func (m *achillesTortoiseModel) EnterContinuousMode()        {}

// inputDrivenModel implements Model for ẋ = -x + u(t), where u is wired as
// a separate smooth-input Variable (set on the model after it is added, via
// its input field) rather than computed from raw time — exercising an
// Input variable as a genuine observee feeding a QSS2 self-observer's
// second-order coefficient through the chain rule.
type inputDrivenModel struct {
	xRef, uRef int
	value      float64
	t          float64
	input      *Variable
}

func (m *inputDrivenModel) SetTime(t float64) { m.t = t }

func (m *inputDrivenModel) SetValue(ref int, v float64) {
	if ref == m.xRef {
		m.value = v
	}
}

func (m *inputDrivenModel) GetValue(ref int) float64 {
	if ref == m.xRef {
		return m.value
	}
	return 0
}

func (m *inputDrivenModel) GetDerivative(ref int) float64 {
	if ref != m.xRef {
		return 0
	}
	var u float64
	if m.input != nil {
		u = m.input.Value(m.t)
	}
	return -m.value + u
}

func (m *inputDrivenModel) GetDirectionalDerivative(refs []int, seeds []float64) float64 {
	var total float64
	for i, r := range refs {
		switch r {
		case m.xRef:
			total += -seeds[i]
		case m.uRef:
			total += seeds[i]
		}
	}
	return total
}

func (m *inputDrivenModel) EventIndicators() []float64 { return nil }
func (m *inputDrivenModel) EnterEventMode()             {}
func (m *inputDrivenModel) HandleEvents()               {}
func (m *inputDrivenModel) EnterContinuousMode()        {}

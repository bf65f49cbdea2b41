package qss

// Model is the external derivative-evaluating collaborator the kernel
// delegates to (spec §6) — a stand-in for the FMI Model Exchange bridge
// the original system talks to. The kernel never computes a derivative
// itself; every Variable holds a reference id into this Model and asks it
// to evaluate derivatives, event indicators, and handler transitions at
// the currently-set state.
//
// Implementations must be deterministic: identical SetTime/SetValue calls
// followed by a GetDerivative/GetValue/EventIndicators call must return
// identical results, since the kernel may re-evaluate the same state more
// than once (e.g. LIQSS's bracketing evaluations, Newton refinement).
type Model interface {
	// SetTime tells the model the current simulation time.
	SetTime(t float64)

	// SetValue writes a scalar by reference id.
	SetValue(ref int, value float64)

	// GetValue reads a scalar by reference id.
	GetValue(ref int) float64

	// GetDerivative evaluates dx/dt for the variable identified by ref,
	// at the model's currently-set state.
	GetDerivative(ref int) float64

	// GetDirectionalDerivative evaluates a directional (seeded) derivative:
	// the model computes d(outputs)/d(seeds·inputs) in one call. Used by
	// the fQSS variant's fused stage-1 evaluation.
	GetDirectionalDerivative(refs []int, seeds []float64) float64

	// EventIndicators returns the current values of every zero-crossing
	// indicator the model tracks, in a model-defined stable order.
	EventIndicators() []float64

	// EnterEventMode, HandleEvents, and EnterContinuousMode are invoked as
	// a fixed three-call sequence whenever a Handler event fires (spec
	// §6): the model is told to prepare for a discontinuity, apply it
	// (which may change SetValue-visible state out of band), and resume
	// continuous evaluation.
	EnterEventMode()
	HandleEvents()
	EnterContinuousMode()
}

// callModel wraps a Model method invocation so Simulation can turn an
// error returned by fn into a ModelFailure, per spec §7 ("External model
// failures surface upward ... the core aborts the loop"). A panic inside
// fn is not recovered.
func callModel(variable, op string, fn func() error) error {
	if fn == nil {
		return nil
	}
	if err := fn(); err != nil {
		return &ModelFailure{Variable: variable, Op: op, Cause: err}
	}
	return nil
}

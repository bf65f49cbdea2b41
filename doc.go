// Package qss implements the core of a Quantized State System (QSS)
// discrete-event ODE integration kernel: variables that re-quantize
// independently when their continuous trajectory departs from its
// quantized approximation by more than a tolerance, a superdense-time
// event queue that orders the resulting events, and the simultaneous-
// trigger stepping protocol that advances multiple variables in lock-step
// when their events coincide.
//
// # Architecture
//
// A [Simulation] owns an [EventQueue] and a set of [Variable] values. Each
// Variable carries a polynomial trajectory (continuous, referenced at tX,
// and quantized, referenced at tQ) plus the superdense times tQ, tX, tE,
// tD that bound it; see [SuperdenseTime] for the (t, pass, phase) event
// key and [SmoothToken] for the polynomial value carrier exchanged with
// input functions.
//
// Derivative evaluation is delegated to an external collaborator
// implementing [Model] — the FMI Model Exchange bridge in a full system,
// a stub in tests. The kernel never evaluates a derivative itself.
//
// # Execution model
//
// The kernel is single-threaded and cooperative: [Simulation.Step] runs
// to completion synchronously, and there is no internal concurrency.
// Running multiple independent simulations concurrently is supported only
// if each owns its own Simulation, EventQueue, and Model; nothing here is
// safe for concurrent access by more than one goroutine at a time.
//
// # Usage
//
//	sim, err := qss.NewSimulation(model)
//	_, err = sim.AddVariable(qss.VariableConfig{Name: "x", Kind: qss.KindQSS2, Ref: 0})
//	err = sim.PreSimulate()
//	err = sim.Init(0)
//	err = sim.Run(tEnd)
//
// # Error types
//
// The package surfaces external model failures as [ModelFailure],
// configuration mistakes as [ConfigError], and queue misuse as
// [QueueError]; all support [errors.Is]/[errors.As]. Numerical corner
// cases (zero leading coefficient, no real root, non-converging Newton
// refinement) are never errors — they resolve to well-defined sentinel
// behavior (+Inf next-event time, Flat crossing, closed-form root kept)
// per the package's degenerate-case contract.
package qss

package qss

import (
	"errors"
	"fmt"
	"math"
)

// VariableConfig describes one variable to add to a Simulation. Which
// fields matter depends on Kind: see the comments on each field.
type VariableConfig struct {
	Name    string
	Kind    Kind
	Variant Variant
	Ref     int // external Model reference id (QSS/LIQSS/ZC/discrete-algebraic kinds)

	// RTol/ATol override the Simulation's default tolerances for this
	// variable (0 means "use the default"). Meaningful for QSS/LIQSS/
	// input kinds.
	RTol, ATol float64

	// ZTol overrides the default zero-crossing flat-band tolerance (0
	// means "use the default"). Meaningful for ZC kinds.
	ZTol float64

	// HandledClasses declares which crossing classes a ZC variable acts
	// on (spec §4.3 step 3). Meaningful for ZC kinds.
	HandledClasses []CrossingClass

	// HandlerTargets names the variables that receive a Handler event
	// when a ZC variable crosses (spec §4.3's "reverse-dependency set").
	// Resolved to pointers at PreSimulate time, so targets may be added
	// after the ZC variable itself. Meaningful for ZC kinds.
	HandlerTargets []string

	// SmoothInput is the callable wrapped by an Inp1/2/3 variable.
	SmoothInput SmoothInputFunc

	// DiscreteInput is the callable wrapped by an InpB/InpD/InpI variable.
	DiscreteInput DiscreteInputFunc
}

// Simulation owns one event queue, one variable set, and the Model they
// all delegate derivative evaluation to (spec §5: each simulation is an
// independent single-threaded unit; parallelism, if any, lives strictly
// at the level of independent Simulations).
type Simulation struct {
	model Model
	opts  *simOptions
	diag  *diagnostics
	stats *Stats

	queue *EventQueue
	graph *ObserverGraph

	vars   []*Variable
	byName map[string]*Variable

	pass uint64  // superdense "pass" counter, advanced by the dispatcher (spec §4.1)
	now  float64 // the queue's active timestamp, cached on top-pop (spec §3)

	preSimulated bool
	initialized  bool
}

// NewSimulation constructs a Simulation around model, applying opts over
// the default configuration.
func NewSimulation(model Model, opts ...Option) (*Simulation, error) {
	if model == nil {
		return nil, &ConfigError{Field: "Model", Message: "must not be nil"}
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	s := &Simulation{
		model:  model,
		opts:   cfg,
		diag:   newDiagnostics(cfg.logger, cfg.warnRateLimits),
		stats:  newStats(),
		queue:  NewEventQueue(),
		byName: make(map[string]*Variable),
	}
	s.graph = newObserverGraph(s.vars)
	return s, nil
}

// Stats returns the Simulation's runtime counters.
func (s *Simulation) Stats() StatsSnapshot { return s.stats.Snapshot() }

// Variable looks up a previously added variable by name.
func (s *Simulation) Variable(name string) (*Variable, bool) {
	v, ok := s.byName[name]
	return v, ok
}

// AddVariable constructs and registers a Variable from cfg. It must be
// called before PreSimulate.
func (s *Simulation) AddVariable(cfg VariableConfig) (*Variable, error) {
	if s.preSimulated {
		return nil, &ConfigError{Field: "Name", Message: "cannot add a variable after PreSimulate"}
	}
	if cfg.Name == "" {
		return nil, &ConfigError{Field: "Name", Message: "must not be empty"}
	}
	if _, exists := s.byName[cfg.Name]; exists {
		return nil, &ConfigError{Field: "Name", Message: fmt.Sprintf("duplicate variable name %q", cfg.Name)}
	}

	rTol, aTol := cfg.RTol, cfg.ATol
	if rTol == 0 {
		rTol = s.opts.relTol
	}
	if aTol == 0 {
		aTol = s.opts.absTol
	}
	zTol := cfg.ZTol
	if zTol == 0 {
		zTol = s.opts.zTol
	}

	v := &Variable{
		Name:    cfg.Name,
		kind:    cfg.Kind,
		variant: cfg.Variant,
		index:   len(s.vars),
		ref:     cfg.Ref,
		rTol:    rTol,
		aTol:    aTol,
		zTol:    zTol,
		dtND:    s.opts.dtND,
		model:   &boundModel{model: s.model, ref: cfg.Ref},
	}
	if cfg.Kind.isZC() {
		v.SetHandledClasses(cfg.HandledClasses...)
		v.zc.handlerTargetNames = append([]string(nil), cfg.HandlerTargets...)
	}
	switch cfg.Kind {
	case KindInputSmooth1, KindInputSmooth2, KindInputSmooth3:
		if cfg.SmoothInput == nil {
			return nil, &ConfigError{Field: "SmoothInput", Message: "must not be nil for a smooth input variable"}
		}
		v.input.smoothFn = cfg.SmoothInput
	case KindInputB, KindInputD, KindInputI:
		if cfg.DiscreteInput == nil {
			return nil, &ConfigError{Field: "DiscreteInput", Message: "must not be nil for a discrete input variable"}
		}
		v.input.discreteFn = cfg.DiscreteInput
	}

	s.vars = append(s.vars, v)
	s.byName[v.Name] = v
	s.graph.vars = s.vars
	return v, nil
}

// Connect wires an observer/observee edge: observer depends on observee's
// value to evaluate its own derivative (spec §3). A variable may connect
// to itself (self_observer); PreSimulate records this in the variable's
// selfObserver flag. The quantization rule is chosen by Kind alone: a
// self-connected QSS kind still requantizes as plain QSS, and only LIQSS
// kinds use the hysteretic bracket.
func (s *Simulation) Connect(observer, observee *Variable) {
	s.graph.AddEdge(observer, observee)
}

// PreSimulate resolves cross-references established by name (ZC handler
// targets) into pointers, and marks self-observer variables. Must be
// called exactly once, after every AddVariable/Connect call and before
// Init.
func (s *Simulation) PreSimulate() error {
	if s.preSimulated {
		return &ConfigError{Field: "PreSimulate", Message: "already called"}
	}
	for _, v := range s.vars {
		if !v.kind.isZC() {
			continue
		}
		for _, name := range v.zc.handlerTargetNames {
			target, ok := s.byName[name]
			if !ok {
				return &ConfigError{Field: "HandlerTargets", Message: fmt.Sprintf("%s: unknown variable %q", v.Name, name)}
			}
			v.handlerTargets = append(v.handlerTargets, target)
		}
	}
	for _, v := range s.vars {
		for _, o := range v.observees {
			if o == v {
				v.selfObserver = true
			}
		}
	}
	s.preSimulated = true
	s.diag.info("lifecycle", 0, "pre-simulate complete")
	return nil
}

// Init runs every variable's stage 0..F initialization at t0 and populates
// the event queue with the first event for each variable that owns one
// (spec §3 "Lifecycle", §4.4). Must be called exactly once, after
// PreSimulate.
func (s *Simulation) Init(t0 float64) error {
	if !s.preSimulated {
		return &ConfigError{Field: "Init", Message: "PreSimulate must be called first"}
	}
	if s.initialized {
		return &ConfigError{Field: "Init", Message: "already called"}
	}
	s.now = t0

	for _, v := range s.vars {
		if err := s.initVariable(v, t0); err != nil {
			return err
		}
	}
	s.initialized = true
	s.diag.info("lifecycle", t0, "init complete")
	return nil
}

func (s *Simulation) initVariable(v *Variable, t0 float64) error {
	switch {
	case v.kind.isLIQSS():
		v.initLIQSS(t0, s.opts.dtMin, s.opts.dtMax, s.opts.dtND, s.opts.inflectionSteps)
		s.scheduleQSS(v)
	case v.kind == KindQSS1 || v.kind == KindQSS2 || v.kind == KindQSS3:
		v.initQSS(t0, s.opts.dtMin, s.opts.dtMax, s.opts.inflectionSteps)
		s.scheduleQSS(v)
	case v.kind == KindInputSmooth1 || v.kind == KindInputSmooth2 || v.kind == KindInputSmooth3:
		v.initSmoothInput(t0)
		s.scheduleQSS(v)
		s.scheduleDiscrete(v)
	case v.kind == KindInputB || v.kind == KindInputD || v.kind == KindInputI:
		v.initDiscreteInput(t0)
		s.scheduleDiscrete(v)
	case v.kind.isZC():
		v.initQSS(t0, s.opts.dtMin, s.opts.dtMax, s.opts.inflectionSteps)
		v.rescheduleZC(math.Inf(1), s.opts.refine)
		s.scheduleQSS(v)
		s.scheduleZC(v)
	case v.kind.isDiscrete():
		v.initDiscreteAlgebraic(t0)
		// No queue entry (spec §8 boundary case 9): mutated only by
		// Handler events fired from a ZC variable's handlerTargets.
	default:
		return &ConfigError{Field: "Kind", Message: fmt.Sprintf("unknown kind %v", v.kind)}
	}
	return nil
}

func (s *Simulation) key(t float64, phase Phase) SuperdenseTime {
	return SuperdenseTime{Time: t, Pass: s.pass, Phase: phase}
}

func (s *Simulation) scheduleQSS(v *Variable) {
	if math.IsInf(v.tE, 1) {
		v.handle = nil
		return
	}
	v.handle = s.queue.Add(s.key(v.tE, PhaseQSS), Event{Kind: EventQSS, Target: v})
}

func (s *Simulation) scheduleDiscrete(v *Variable) {
	if math.IsInf(v.tD, 1) {
		return
	}
	s.queue.Add(s.key(v.tD, PhaseDiscrete), Event{Kind: EventDiscrete, Target: v})
}

func (s *Simulation) scheduleZC(v *Variable) {
	if math.IsInf(v.zc.tZ, 1) {
		return
	}
	s.queue.Add(s.key(v.zc.tZ, PhaseZC), Event{Kind: EventZC, Target: v})
}

// Step pops (or drains, if simultaneous) the event queue's top key and
// dispatches it, per the simultaneous-trigger protocol of spec §4.5. It
// reports whether an event was dispatched; it returns false (with a nil
// error) once the queue is empty.
func (s *Simulation) Step(tEnd float64) (bool, error) {
	if !s.initialized {
		return false, &ConfigError{Field: "Step", Message: "Init must be called first"}
	}
	if s.queue.Len() == 0 {
		return false, nil
	}
	top := s.queue.TopTime()
	if top.Time > tEnd {
		return false, nil
	}
	s.now = top.Time
	s.pass = top.Pass

	if !s.queue.Simultaneous() {
		_, ev := s.queue.Pop()
		if err := s.dispatchSingle(ev, tEnd); err != nil {
			return false, err
		}
		return true, nil
	}

	_, batch := s.queue.Drain()
	if err := s.dispatchBatch(batch, tEnd); err != nil {
		return false, err
	}
	return true, nil
}

// Run drives Step until the queue empties or its top time exceeds tEnd.
func (s *Simulation) Run(tEnd float64) error {
	for {
		ok, err := s.Step(tEnd)
		if err != nil {
			var mf *ModelFailure
			if errors.As(err, &mf) {
				s.diag.errorf("model", mf.Variable, s.now, mf)
			}
			return err
		}
		if !ok {
			break
		}
	}
	s.diag.info("lifecycle", s.now, "run complete")
	return nil
}

// dispatchSingle handles a non-simultaneous top event (spec §4.5
// "single-step dispatch by type").
func (s *Simulation) dispatchSingle(ev Event, tEnd float64) error {
	v := ev.Target
	s.stats.recordEvent(ev.Kind)
	switch ev.Kind {
	case EventQSS:
		return s.advanceOne(v, tEnd)
	case EventDiscrete:
		return s.advanceDiscreteEvent(v, tEnd)
	case EventZC:
		return s.advanceZCEvent(v, tEnd)
	case EventHandler:
		return s.advanceHandlerEvent(v, ev.Value, tEnd)
	default:
		return &QueueError{Op: "dispatchSingle", Message: fmt.Sprintf("unhandled event kind %v", ev.Kind)}
	}
}

// advanceOne runs a single QSS/LIQSS variable's requantization (outside a
// simultaneous batch) and propagates to its observers.
func (s *Simulation) advanceOne(v *Variable, tEnd float64) error {
	var dt float64
	var err error
	if v.kind.isLIQSS() {
		var implicit, infinite bool
		dt, implicit, infinite = v.advanceLIQSS(s.now, s.opts.dtMin, s.opts.dtMax, s.opts.dtND, s.opts.inflectionSteps)
		s.stats.recordLIQSSStep(implicit, infinite)
	} else {
		dt = v.advanceQSS(s.now, s.opts.dtMin, s.opts.dtMax, s.opts.inflectionSteps)
	}
	s.stats.recordRequantize()
	s.stats.recordStep(dt)
	if v.kind.isZC() {
		v.rescheduleZC(tEnd, s.opts.refine)
		s.scheduleZC(v)
	}
	s.scheduleQSS(v)

	s.pass++
	for _, obs := range v.observers {
		if err = s.advanceObserver(obs, tEnd); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) advanceObserver(v *Variable, tEnd float64) error {
	if v.handle != nil {
		s.queue.Erase(v.handle)
		v.handle = nil
	}
	v.advanceObserverQSS(s.now, s.opts.dtMin, s.opts.dtMax, s.opts.inflectionSteps)
	if v.kind.isZC() {
		v.rescheduleZC(tEnd, s.opts.refine)
		s.scheduleZC(v)
	}
	s.scheduleQSS(v)
	return nil
}

func (s *Simulation) advanceDiscreteEvent(v *Variable, tEnd float64) error {
	switch {
	case v.kind == KindInputSmooth1 || v.kind == KindInputSmooth2 || v.kind == KindInputSmooth3:
		if v.handle != nil {
			s.queue.Erase(v.handle)
			v.handle = nil
		}
		v.advanceDiscreteInput(s.now, s.opts.dtMin, s.opts.dtMax)
		s.scheduleQSS(v)
		s.scheduleDiscrete(v)
		return nil
	case v.kind == KindInputB || v.kind == KindInputD || v.kind == KindInputI:
		changed := v.advanceDiscreteInputValue(s.now)
		s.scheduleDiscrete(v)
		if changed {
			s.pass++
			for _, obs := range v.observers {
				if err := s.advanceObserver(obs, tEnd); err != nil {
					return err
				}
			}
		}
		return nil
	default:
		return &QueueError{Op: "advanceDiscreteEvent", Message: fmt.Sprintf("variable %s is not a discrete-input kind", v.Name)}
	}
}

func (s *Simulation) advanceZCEvent(v *Variable, tEnd float64) error {
	class, handled := v.classifyCrossing()
	s.diag.info("zc", s.now, fmt.Sprintf("%s crossed %s (handled=%v)", v.DecoratedName(), class, handled))

	if handled && class != Flat {
		s.pass++
		for _, target := range v.handlerTargets {
			s.queue.Add(s.key(s.now, PhaseHandler), Event{Kind: EventHandler, Target: target, Value: v.x[0]})
		}
		if err := callModel(v.DecoratedName(), "HandleEvents", func() error {
			s.model.EnterEventMode()
			s.model.HandleEvents()
			s.model.EnterContinuousMode()
			return nil
		}); err != nil {
			return err
		}
		s.stats.recordModelCall()
	}

	if v.handle != nil {
		s.queue.Erase(v.handle)
		v.handle = nil
	}
	v.advanceObserverQSS(s.now, s.opts.dtMin, s.opts.dtMax, s.opts.inflectionSteps)
	v.rescheduleZC(tEnd, s.opts.refine)
	s.scheduleZC(v)
	s.scheduleQSS(v)
	return nil
}

func (s *Simulation) advanceHandlerEvent(v *Variable, value float64, tEnd float64) error {
	_ = value
	changed := v.advanceHandler(s.now)
	if !changed {
		return nil
	}
	s.pass++
	for _, obs := range v.observers {
		if err := s.advanceObserver(obs, tEnd); err != nil {
			return err
		}
	}
	return nil
}

// dispatchBatch runs a drained batch sharing one SuperdenseTime key: LIQSS
// triggers first compute their brackets into the deferred l0 (stage 0);
// then every trigger is published and rescheduled in drain order; then the
// union of the triggers' observers is updated once. Stages 1..order are
// not run as separate barriered passes: a standard QSS trigger computes
// all of its coefficients in one advanceQSS call, which sees the values
// already published by triggers earlier in the batch.
func (s *Simulation) dispatchBatch(batch []Event, tEnd float64) error {
	for _, ev := range batch {
		s.stats.recordEvent(ev.Kind)
	}

	// Partition by kind: only QSS/LIQSS requantizations use the staged
	// protocol; other kinds sharing a key (rare, but possible at t=0) just
	// dispatch independently in drain order, preserving determinism.
	var triggers []*Variable
	var rest []Event
	for _, ev := range batch {
		if ev.Kind == EventQSS {
			triggers = append(triggers, ev.Target)
		} else {
			rest = append(rest, ev)
		}
	}

	if len(triggers) > 0 {
		if err := s.dispatchSimultaneousQSS(triggers, tEnd); err != nil {
			return err
		}
	}
	for _, ev := range rest {
		if err := s.dispatchSingle(ev, tEnd); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) dispatchSimultaneousQSS(triggers []*Variable, tEnd float64) error {
	maxOrder := 1
	for _, v := range triggers {
		if o := v.kind.order(); o > maxOrder {
			maxOrder = o
		}
	}

	// Stage 0: read-only. LIQSS triggers compute their bracket into the
	// deferred l0 field; standard QSS triggers have no separate stage-0
	// read beyond what advanceQSS already folds into its single call, so
	// nothing to do here for them.
	for _, v := range triggers {
		if v.kind.isLIQSS() {
			v.liqssStage0(s.now, s.opts.dtND)
		}
	}

	// Publish: each trigger runs its full update in drain order. LIQSS
	// triggers commit the l0 bracketed at stage 0; standard QSS triggers
	// run advanceQSS, which computes every coefficient in one call against
	// the model's current state, including values published by triggers
	// earlier in this loop. No observer is updated until every trigger has
	// published.
	type result struct {
		dt                 float64
		implicit, infinite bool
	}
	results := make([]result, len(triggers))
	for i, v := range triggers {
		var r result
		if v.kind.isLIQSS() {
			r.dt, r.implicit, r.infinite = v.liqssPublish(s.now, s.opts.dtMin, s.opts.dtMax, s.opts.dtND, s.opts.inflectionSteps)
		} else {
			r.dt = v.advanceQSS(s.now, s.opts.dtMin, s.opts.dtMax, s.opts.inflectionSteps)
		}
		results[i] = r
	}
	for i, v := range triggers {
		s.stats.recordRequantize()
		s.stats.recordStep(results[i].dt)
		if v.kind.isLIQSS() {
			s.stats.recordLIQSSStep(results[i].implicit, results[i].infinite)
		}
		if v.kind.isZC() {
			v.rescheduleZC(tEnd, s.opts.refine)
			s.scheduleZC(v)
		}
		s.scheduleQSS(v)
	}

	s.pass++
	observers := ObserverUnion(triggers)
	for _, obs := range observers {
		if err := s.advanceObserver(obs, tEnd); err != nil {
			return err
		}
	}
	return nil
}

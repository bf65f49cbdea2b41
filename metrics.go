package qss

import (
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-qss/internal/pquantile"
)

// Stats tracks runtime statistics for a Simulation. Stats are designed to
// be low-overhead: all counters are atomic, and the step-size distribution
// uses the P² streaming quantile estimator (internal/pquantile) rather than
// retaining every step, since an integration run can dispatch millions of
// events.
//
// A Stats is safe for concurrent reads via Snapshot even though the
// Simulation that owns it is single-threaded (spec §5); this only matters
// for a driver polling Snapshot from outside the dispatch goroutine (e.g. a
// monitoring goroutine), which never mutates simulation state.
type Stats struct {
	eventsByKind [6]atomic.Int64 // indexed by EventKind
	requantizes  atomic.Int64
	modelCalls   atomic.Int64

	mu       sync.Mutex
	stepSize *pquantile.Set // dispatched-batch inter-event Δt distribution

	liqssSteps atomic.Int64 // LIQSS advance() calls that took the implicit (hysteretic) branch
	qssSteps   atomic.Int64 // LIQSS advance() calls that took the interpolated (non-locked) branch
	infRatio   atomic.Int64 // LIQSS advance() calls whose plain-QSS derivative at q_c was 0 (ratio +Inf)
}

// newStats returns a ready-to-use Stats.
func newStats() *Stats {
	return &Stats{
		stepSize: pquantile.NewSet(0.50, 0.90, 0.99),
	}
}

// recordEvent increments the per-kind dispatch counter.
func (s *Stats) recordEvent(kind EventKind) {
	s.eventsByKind[kind].Add(1)
}

// recordRequantize increments the total requantization counter.
func (s *Stats) recordRequantize() {
	s.requantizes.Add(1)
}

// recordModelCall increments the external-Model-call counter.
func (s *Stats) recordModelCall() {
	s.modelCalls.Add(1)
}

// recordStep adds an observed inter-event Δt to the step-size distribution.
func (s *Stats) recordStep(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepSize.Update(dt)
}

// recordLIQSSStep tallies one LIQSS advance() call, and whether its
// QSS-step-length ratio (Variable_QSS1.cc's advance_LIQSS_QSS_step_ratio)
// was infinite, i.e. the plain-QSS derivative at the centre value q_c was
// 0, so the comparison QSS step would be infinite.
func (s *Stats) recordLIQSSStep(implicit, infinite bool) {
	if implicit {
		s.liqssSteps.Add(1)
	} else {
		s.qssSteps.Add(1)
	}
	if infinite {
		s.infRatio.Add(1)
	}
}

// StatsSnapshot is an immutable copy of a Stats, safe to read freely.
type StatsSnapshot struct {
	EventsByKind  [6]int64
	Requantizes   int64
	ModelCalls    int64
	StepP50       float64
	StepP90       float64
	StepP99       float64
	StepMax       float64
	StepMean      float64
	LIQSSSteps    int64
	QSSSteps      int64
	// RatioInfPercent (scenario E6) is the count of LIQSS advance() calls
	// whose QSS-step-length comparison ratio was +Inf, as a percentage of
	// LIQSSSteps; calls counted in QSSSteps are not in the denominator.
	RatioInfPercent float64
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	var out StatsSnapshot
	for i := range s.eventsByKind {
		out.EventsByKind[i] = s.eventsByKind[i].Load()
	}
	out.Requantizes = s.requantizes.Load()
	out.ModelCalls = s.modelCalls.Load()

	s.mu.Lock()
	out.StepP50 = s.stepSize.Value(0)
	out.StepP90 = s.stepSize.Value(1)
	out.StepP99 = s.stepSize.Value(2)
	out.StepMax = s.stepSize.Max()
	out.StepMean = s.stepSize.Mean()
	s.mu.Unlock()

	out.LIQSSSteps = s.liqssSteps.Load()
	out.QSSSteps = s.qssSteps.Load()
	total := out.LIQSSSteps
	if total > 0 {
		out.RatioInfPercent = 100 * float64(s.infRatio.Load()) / float64(total)
	}
	return out
}

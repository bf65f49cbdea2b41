package qss

// Phase disambiguates the sub-priority of events that share the same
// (Time, Pass): discrete-input events fire before zero-crossings, which
// fire before conditionals, which fire before handlers, which fire
// before requantizations. Order here is load-bearing: PhaseDiscrete must
// sort before PhaseZC, and so on, per spec.
type Phase int

const (
	PhaseDiscrete Phase = iota
	PhaseZC
	PhaseConditional
	PhaseHandler
	PhaseQSS
	PhaseQSSZC
)

// String names a Phase, for diagnostics.
func (p Phase) String() string {
	switch p {
	case PhaseDiscrete:
		return "Discrete"
	case PhaseZC:
		return "ZC"
	case PhaseConditional:
		return "Conditional"
	case PhaseHandler:
		return "Handler"
	case PhaseQSS:
		return "QSS"
	case PhaseQSSZC:
		return "QSS_ZC"
	default:
		return "Phase(?)"
	}
}

// SuperdenseTime is the totally ordered event key (t, pass, phase). Two
// keys with equal Time and Pass but different Phase are still ordered;
// with all three equal they compare equal (simultaneous), which is what
// lets the dispatcher batch them into one simultaneous-trigger stage
// sequence.
type SuperdenseTime struct {
	Time  float64
	Pass  uint64
	Phase Phase
}

// Compare returns -1, 0, or +1 as a orders before, equal to, or after b,
// lexicographically on (Time, Pass, Phase).
func (a SuperdenseTime) Compare(b SuperdenseTime) int {
	switch {
	case a.Time < b.Time:
		return -1
	case a.Time > b.Time:
		return 1
	}
	switch {
	case a.Pass < b.Pass:
		return -1
	case a.Pass > b.Pass:
		return 1
	}
	switch {
	case a.Phase < b.Phase:
		return -1
	case a.Phase > b.Phase:
		return 1
	}
	return 0
}

// Less reports whether a sorts strictly before b.
func (a SuperdenseTime) Less(b SuperdenseTime) bool {
	return a.Compare(b) < 0
}

// Equal reports whether a and b are simultaneous.
func (a SuperdenseTime) Equal(b SuperdenseTime) bool {
	return a.Compare(b) == 0
}

// NextPass returns the key for a zero-time cascade scheduled after a
// batch dispatched at this key: same Time, Pass+1, the given Phase.
func (a SuperdenseTime) NextPass(phase Phase) SuperdenseTime {
	return SuperdenseTime{Time: a.Time, Pass: a.Pass + 1, Phase: phase}
}

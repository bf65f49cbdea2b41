package qss

// EventKind tags what kind of action an Event represents when the
// dispatcher pops or batches it. It mirrors Phase 1:1 except that a
// Phase only orders events; an EventKind additionally selects which
// Variable method the dispatcher calls.
type EventKind int

const (
	EventDiscrete EventKind = iota
	EventZC
	EventConditional
	EventHandler
	EventQSS
	EventQSSZC
)

// Phase returns the sub-priority Phase this EventKind sorts under.
func (k EventKind) Phase() Phase {
	return Phase(k)
}

// String names an EventKind, for diagnostics.
func (k EventKind) String() string {
	return Phase(k).String()
}

// Event is the tagged record stored in the EventQueue. Value is set only
// on EventHandler entries, where it carries the crossing ZC variable's
// indicator value at the crossing; the handler re-reads its target's
// value from the Model and does not apply Value. EventQueue.Shift and
// Erase address an entry by its Handle, not by its contents.
type Event struct {
	Kind   EventKind
	Target *Variable
	Value  float64
}

// sameEntry reports whether e and other identify the same queue entry
// (same kind and target), ignoring Value. EventQueue does not call it;
// Shift and Erase rely on the Handle alone.
func (e Event) sameEntry(other Event) bool {
	return e.Kind == other.Kind && e.Target == other.Target
}

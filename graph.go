package qss

// ObserverGraph tracks the observer/observee relationship between
// variables. Edges are stored as *Variable pointers in each Variable's
// observers/observees lists; vars is the Simulation's variable slice,
// whose entries carry a stable Variable.index. A variable may be its own
// observee (self_observer, for LIQSS), and
// removing a variable is a rare setup-time operation that must erase its
// back-edges from every peer.
//
// ObserverGraph does not own the Variables; a Simulation's variable slice
// does. Edges are symmetric by construction: w is in v.observers iff v is
// in w.observees (spec §8 invariant 5).
type ObserverGraph struct {
	vars []*Variable
}

// newObserverGraph returns an ObserverGraph over vars. vars must already
// be populated with stable indices (Variable.index).
func newObserverGraph(vars []*Variable) *ObserverGraph {
	return &ObserverGraph{vars: vars}
}

// AddEdge records that v observes observee: when observee requantizes, v
// must be re-evaluated. Adding an edge that already exists is a no-op.
func (g *ObserverGraph) AddEdge(v, observee *Variable) {
	if v == nil || observee == nil {
		return
	}
	for _, o := range v.observees {
		if o == observee {
			return
		}
	}
	v.observees = append(v.observees, observee)
	observee.observers = append(observee.observers, v)
}

// RemoveEdge undoes AddEdge. Removing an edge that doesn't exist is a
// no-op.
func (g *ObserverGraph) RemoveEdge(v, observee *Variable) {
	if v == nil || observee == nil {
		return
	}
	v.observees = removeVariable(v.observees, observee)
	observee.observers = removeVariable(observee.observers, v)
}

// RemoveVariable erases every edge touching v, in both directions, from
// all of v's current peers. v itself is left with empty observer/observee
// lists. This is a setup-time operation (spec §9): it walks v's own peer
// lists, which is O(degree(v)), not the whole graph.
func (g *ObserverGraph) RemoveVariable(v *Variable) {
	if v == nil {
		return
	}
	for _, observee := range v.observees {
		if observee != v {
			observee.observers = removeVariable(observee.observers, v)
		}
	}
	for _, observer := range v.observers {
		if observer != v {
			observer.observees = removeVariable(observer.observees, v)
		}
	}
	v.observees = nil
	v.observers = nil
}

// ObserverUnion returns the set union of every trigger's observers, minus
// the triggers themselves — the "propagate to observers" step of spec
// §4.5's simultaneous-trigger protocol. Order follows first-occurrence
// across triggers, for deterministic dispatch (spec §8 scenario E5).
func ObserverUnion(triggers []*Variable) []*Variable {
	isTrigger := make(map[*Variable]bool, len(triggers))
	for _, t := range triggers {
		isTrigger[t] = true
	}
	seen := make(map[*Variable]bool)
	var out []*Variable
	for _, t := range triggers {
		for _, obs := range t.observers {
			if isTrigger[obs] || seen[obs] {
				continue
			}
			seen[obs] = true
			out = append(out, obs)
		}
	}
	return out
}

func removeVariable(list []*Variable, v *Variable) []*Variable {
	for i, e := range list {
		if e == v {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

package solve

import (
	"sort"

	"github.com/spkdev/spk/pkg/pkgmodel"
)

// state is the search's mutable position: the resolved set, the
// pending requirements list, and the variable assignment (
// "State of the search"). A state is cloned before a candidate
// is tried and discarded on backtrack, so no undo log is needed.
type state struct {
	resolved   map[pkgmodel.PkgName]pkgmodel.SolvedRequest
	pending    *pkgmodel.RequirementsList
	assignment *pkgmodel.OptionMap
	order      []pkgmodel.PkgName // decision order, for Solution.Resolved
}

func newState(given *pkgmodel.OptionMap) *state {
	assignment := pkgmodel.NewOptionMap()
	if given != nil {
		for _, k := range given.Keys() {
			v, _ := given.Get(k)
			assignment.Set(k, v)
		}
	}
	return &state{
		resolved:   make(map[pkgmodel.PkgName]pkgmodel.SolvedRequest),
		pending:    pkgmodel.NewRequirementsList(),
		assignment: assignment,
	}
}

// clone deep-copies everything a trial decision can mutate.
func (st *state) clone() *state {
	resolved := make(map[pkgmodel.PkgName]pkgmodel.SolvedRequest, len(st.resolved))
	for k, v := range st.resolved {
		resolved[k] = v
	}
	pending := pkgmodel.NewRequirementsList()
	for _, r := range st.pending.All() {
		// Every entry here already survived a prior InsertOrMerge, so
		// re-inserting into a fresh list cannot fail.
		_ = pending.InsertOrMerge(r)
	}
	assignment := pkgmodel.NewOptionMap()
	for _, k := range st.assignment.Keys() {
		v, _ := st.assignment.Get(k)
		assignment.Set(k, v)
	}
	order := make([]pkgmodel.PkgName, len(st.order))
	copy(order, st.order)

	return &state{resolved: resolved, pending: pending, assignment: assignment, order: order}
}

// nextPending picks the next unresolved Always request, deterministic
// tie-break lexicographic by name. A request
// with InclusionIfAlreadyPresent never itself drives a decision: it
// is only checked once some other request has already resolved its
// package (see mergeRequirement).
func (st *state) nextPending() (pkgmodel.PkgName, pkgmodel.PkgRequest, bool) {
	var names []pkgmodel.PkgName
	byName := make(map[pkgmodel.PkgName]pkgmodel.PkgRequest)

	for _, r := range st.pending.All() {
		name := r.Pkg.Name
		if _, done := st.resolved[name]; done {
			continue
		}
		if r.InclusionPolicy != pkgmodel.InclusionAlways {
			continue
		}
		names = append(names, name)
		byName[name] = r
	}
	if len(names) == 0 {
		return "", pkgmodel.PkgRequest{}, false
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	n := names[0]
	return n, byName[n], true
}

func (st *state) toSolution() *pkgmodel.Solution {
	resolved := make([]pkgmodel.SolvedRequest, 0, len(st.order))
	for _, name := range st.order {
		resolved = append(resolved, st.resolved[name])
	}
	return &pkgmodel.Solution{Options: st.assignment, Resolved: resolved}
}

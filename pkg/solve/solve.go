// Package solve implements the C11 backtracking decision solver:
// given a set of top-level requests and a way to iterate a package
// name's candidate builds, it produces a pkgmodel.Solution or one of
// the solver's typed failure modes.
package solve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/spkmetrics"
)

// Solver runs decision-step searches against a caller-supplied
// candidate source.
type Solver struct {
	// Iterators returns the candidate builds for a package name,
	// typically backed by NewRepositoryIterator.
	Iterators IteratorFactory

	// Components selects which of a candidate's install components
	// (by uses-closure) contribute requirements to the pending list.
	// Defaults to pkgmodel.ComponentAll. The build pipeline's source
	// resolver and build resolver solves pass distinct component sets
	// here.
	Components pkgmodel.ComponentName

	// BuildingPackage, when set, names the package whose own build
	// this solve is resolving dependencies for; a candidate for that
	// same name resolving to a source build is recursion and is
	// denied.
	BuildingPackage *pkgmodel.PkgName
}

// NewSolver returns a Solver using iterators as its candidate source.
func NewSolver(iterators IteratorFactory) *Solver {
	return &Solver{Iterators: iterators, Components: pkgmodel.ComponentAll}
}

// Solve resolves requests against given (the top-level option
// assignment), returning the decisions in the order they were made —
// the build order for any recursive source builds the caller triggers
// from the result.
func (s *Solver) Solve(ctx context.Context, requests []pkgmodel.PkgRequest, given *pkgmodel.OptionMap) (*pkgmodel.Solution, error) {
	start := time.Now()
	defer spkmetrics.SolveDuration.UpdateSince(start)

	st := newState(given)
	for _, r := range requests {
		if err := st.pending.InsertOrMerge(r); err != nil {
			return nil, err
		}
	}
	if err := s.step(ctx, st); err != nil {
		return nil, err
	}
	return st.toSolution(), nil
}

func (s *Solver) components() pkgmodel.ComponentName {
	if s.Components == "" {
		return pkgmodel.ComponentAll
	}
	return s.Components
}

// step resolves one more pending request, recursing into the
// remainder on success. Every candidate is tried against a throwaway
// clone of st so a failed branch leaves st untouched — the search
// never revisits a decision with a larger candidate set than it
// started with, since PackageIterator only moves forward, which is
// why the search is guaranteed to terminate (
// "Termination").
func (s *Solver) step(ctx context.Context, st *state) error {
	select {
	case <-ctx.Done():
		return Interrupted{}
	default:
	}

	name, req, ok := st.nextPending()
	if !ok {
		return nil
	}

	it, err := s.Iterators(name)
	if err != nil {
		return err
	}

	var lastErr error = NoVersionMatches{Name: name, Range: req.Pkg.Range}
	for {
		select {
		case <-ctx.Done():
			return Interrupted{}
		default:
		}

		cand, has, err := it.Next()
		if err != nil {
			return err
		}
		if !has {
			break
		}

		if ok, reason := s.checkCandidate(st, req, cand); !ok {
			lastErr = reason
			spkmetrics.Backtracks.Inc(1)
			continue
		}

		trial := st.clone()
		if err := s.applyCandidate(trial, name, req, cand); err != nil {
			lastErr = err
			spkmetrics.Backtracks.Inc(1)
			continue
		}
		if err := s.step(ctx, trial); err != nil {
			lastErr = err
			spkmetrics.Backtracks.Inc(1)
			continue
		}
		*st = *trial
		spkmetrics.Decisions.Inc(1)
		return nil
	}
	return lastErr
}

// checkCandidate evaluates step 2.a-2.c against cand, returning the
// failure mode that would be reported if every remaining candidate
// also failed.
func (s *Solver) checkCandidate(st *state, req pkgmodel.PkgRequest, cand Candidate) (bool, error) {
	name := req.Pkg.Name
	version := cand.Ident.Version

	if s.BuildingPackage != nil && *s.BuildingPackage == name && cand.Ident.Build.Kind == pkgmodel.BuildSource {
		return false, RecursiveBuildDenied{Name: name}
	}

	if req.PreReleasePolicy == pkgmodel.PreReleaseExcludeAll && len(version.Pre) > 0 {
		return false, NoVersionMatches{Name: name, Range: req.Pkg.Range}
	}
	if !req.Pkg.Range.Contains(version) {
		return false, NoVersionMatches{Name: name, Range: req.Pkg.Range}
	}
	if req.RequiredCompat != nil && req.Pkg.Range.Lower != nil {
		if !cand.Recipe.Compat.IsCompatible(*req.Pkg.Range.Lower, version, *req.RequiredCompat) {
			return false, NoVersionMatches{Name: name, Range: req.Pkg.Range}
		}
	}

	for _, opt := range cand.Recipe.Build.Options {
		if ok, reason := s.checkBuildOption(st, name, opt, cand); !ok {
			return false, reason
		}
	}

	return true, nil
}

// checkBuildOption implements step 2.b.
func (s *Solver) checkBuildOption(st *state, pkg pkgmodel.PkgName, opt pkgmodel.BuildOption, cand Candidate) (bool, error) {
	switch opt.Kind {
	case pkgmodel.OptionPkg:
		return s.checkPkgOption(st, cand, opt)
	case pkgmodel.OptionVar:
		scopedKey := pkgmodel.OptName(fmt.Sprintf("%s.%s", pkg, opt.Name))
		if scopedVal, ok := st.assignment.Get(scopedKey); ok {
			return checkVarValue(opt, scopedVal, string(pkg))
		}
		if opt.Required {
			// A required var option must be satisfied by an explicit
			// namespaced request; a plain global value does not count
			//.
			return false, MissingRequiredVar{Var: opt.Name}
		}
		if globalVal, ok := st.assignment.Get(opt.Name); ok {
			return checkVarValue(opt, globalVal, "")
		}
		return true, nil
	default:
		return true, nil
	}
}

// checkVarValue accepts the option's default outright, otherwise
// checks declared choices, falling back to compat-relaxed version
// matching when the option carries a compat rule ( step
// 2.b: "Var options with compat: rules use version-compat semantics
// for non-exact matches").
func checkVarValue(opt pkgmodel.BuildOption, value, context string) (bool, error) {
	if value == opt.Default || value == "" {
		return true, nil
	}
	if len(opt.Choices) > 0 {
		for _, c := range opt.Choices {
			if c == value {
				return true, nil
			}
		}
		return false, VarOptionMismatch{Var: opt.Name, Want: strings.Join(opt.Choices, ","), Got: value, Context: context}
	}
	if opt.Compat != nil {
		wantV, err1 := pkgmodel.ParseVersion(opt.Default)
		gotV, err2 := pkgmodel.ParseVersion(value)
		if err1 == nil && err2 == nil && opt.Compat.IsCompatible(wantV, gotV, pkgmodel.CompatAPI) {
			return true, nil
		}
		return false, VarOptionMismatch{Var: opt.Name, Want: opt.Default, Got: value, Context: context}
	}
	// No choices and no compat rule declared: any namespaced value is
	// accepted, since there is nothing to validate it against.
	return true, nil
}

// checkPkgOption cross-checks a pkg-kind build option against the
// candidate's embedded packages: if the assignment pins a version for
// this option and the candidate embeds a package by that name, the
// pinned version must match what's embedded ( step 2.b:
// "Pkg options cross-check the embedded package constraint").
func (s *Solver) checkPkgOption(st *state, cand Candidate, opt pkgmodel.BuildOption) (bool, error) {
	scopedKey := pkgmodel.OptName(fmt.Sprintf("%s.%s", cand.Ident.Name, opt.Name))
	val, ok := st.assignment.Get(scopedKey)
	if !ok {
		val, ok = st.assignment.Get(opt.Name)
	}
	if !ok {
		return true, nil
	}
	wantV, err := pkgmodel.ParseVersion(val)
	if err != nil {
		return true, nil
	}
	for _, emb := range cand.Recipe.Install.Embedded {
		if emb.Name != pkgmodel.PkgName(opt.Name) {
			continue
		}
		if emb.Version.Compare(wantV) != 0 {
			return false, VarOptionMismatch{Var: opt.Name, Want: val, Got: emb.Version.String(), Context: string(cand.Ident.Name)}
		}
	}
	return true, nil
}

// applyCandidate implements step 2.d: records the decision, folds the
// build's resolved option values into the assignment, and merges its
// runtime requirements (plus embedded-package stubs) into the pending
// list.
func (s *Solver) applyCandidate(st *state, name pkgmodel.PkgName, req pkgmodel.PkgRequest, cand Candidate) error {
	for _, opt := range cand.Recipe.Build.Options {
		if opt.Kind != pkgmodel.OptionVar {
			continue
		}
		key := pkgmodel.OptName(fmt.Sprintf("%s.%s", name, opt.Name))
		if _, already := st.assignment.Get(key); already {
			continue
		}
		if val, ok := st.assignment.Get(opt.Name); ok {
			st.assignment.Set(key, val)
			continue
		}
		st.assignment.Set(key, opt.Default)
	}

	components := pkgmodel.NewComponentSet(cand.Recipe.Install.Components)
	closure, err := components.Closure(s.components())
	if err != nil {
		return err
	}

	st.resolved[name] = pkgmodel.SolvedRequest{
		Request: req,
		Spec:    cand.Package,
		Source: pkgmodel.SolvedSource{
			Kind:       pkgmodel.SourceRepository,
			Recipe:     &cand.Recipe,
			Components: closure,
		},
	}
	st.order = append(st.order, name)
	st.pending.Remove(name)
	wanted := make(map[pkgmodel.ComponentName]bool, len(closure))
	for _, c := range closure {
		wanted[c] = true
	}
	for _, c := range cand.Recipe.Install.Components {
		if !wanted[c.Name] {
			continue
		}
		for _, r := range c.Requirements {
			if err := s.mergeRequirement(st, r); err != nil {
				return err
			}
		}
	}
	for _, r := range cand.Recipe.Install.Requirements {
		if err := s.mergeRequirement(st, r); err != nil {
			return err
		}
	}

	for _, emb := range cand.Recipe.Install.Embedded {
		if err := s.injectEmbedded(st, cand.Ident, emb); err != nil {
			return err
		}
	}
	return nil
}

// mergeRequirement folds r into the pending list. If r's package is
// already resolved, the already-chosen build must still satisfy the
// newly merged range — this is how a requirement discovered late
// (e.g. from a sibling dependency) can still invalidate an earlier
// decision and force a backtrack.
func (s *Solver) mergeRequirement(st *state, r pkgmodel.PkgRequest) error {
	if err := st.pending.InsertOrMerge(r); err != nil {
		return err
	}
	sr, resolved := st.resolved[r.Pkg.Name]
	if !resolved {
		return nil
	}
	merged, _ := st.pending.Get(r.Pkg.Name)
	if !merged.Pkg.Range.Contains(sr.Spec.Ident.Version) {
		return NoVersionMatches{Name: r.Pkg.Name, Range: merged.Pkg.Range}
	}
	return nil
}

// injectEmbedded resolves an embedded package declaration into a
// synthetic stub SolvedRequest.
func (s *Solver) injectEmbedded(st *state, parent pkgmodel.BuildIdent, emb pkgmodel.VersionIdent) error {
	existing, ok := st.resolved[emb.Name]
	if ok {
		if existing.Source.Kind == pkgmodel.SourceEmbeddedParent && existing.Spec.Ident.Version.Compare(emb.Version) == 0 {
			return nil
		}
		// Either a concrete, non-embedded build already occupies this
		// name, or a different embedded version already does — neither
		// can be superseded by this embedding.
		return pkgmodel.ErrImpossibleMerge{
			A: pkgmodel.PkgRequest{Pkg: pkgmodel.RangeIdent{Name: emb.Name}, RequestedBy: string(parent.Name)},
			B: existing.Request,
		}
	}

	parentCopy := parent
	stub := pkgmodel.SolvedRequest{
		Request: pkgmodel.PkgRequest{
			Pkg:             pkgmodel.RangeIdent{Name: emb.Name},
			InclusionPolicy: pkgmodel.InclusionAlways,
			RequestedBy:     string(parent.Name),
		},
		Spec: pkgmodel.Package{
			Ident: pkgmodel.BuildIdent{VersionIdent: emb, Build: pkgmodel.EmbeddedBuild(parent)},
		},
		Source: pkgmodel.SolvedSource{Kind: pkgmodel.SourceEmbeddedParent, Parent: &parentCopy},
	}
	st.resolved[emb.Name] = stub
	st.order = append(st.order, emb.Name)
	st.pending.Remove(emb.Name)
	return nil
}

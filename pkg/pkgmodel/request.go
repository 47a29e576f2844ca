package pkgmodel

import "fmt"

// InclusionPolicy controls whether a request must always be resolved
// or only when the package is already present in the resolved set.
type InclusionPolicy int

const (
	InclusionAlways InclusionPolicy = iota
	InclusionIfAlreadyPresent
)

// PinPolicy controls whether a pinned request must be satisfiable or
// only applies when present in the build environment.
type PinPolicy int

const (
	PinAlways PinPolicy = iota
	PinIfPresentInBuildEnv
)

// PreReleasePolicy controls whether pre-release versions are eligible
// candidates.
type PreReleasePolicy int

const (
	PreReleaseExcludeAll PreReleasePolicy = iota
	PreReleaseIncludeAll
)

// PinnableValue is the value carried by a VarRequest: either an
// explicit pinned string, or a directive to resolve from the current
// build environment.
type PinnableValue struct {
	Pinned              string
	FromBuildEnv        bool
	FromBuildEnvIfPresent bool
}

// VarRequest requests a specific value (or build-env derivation) for a
// named option.
type VarRequest struct {
	Var         OptName
	Value       PinnableValue
	Description string
}

// RangeIdent names a package together with an acceptable version
// range expression (e.g. "1.2.*", ">=1.0,<2.0"); range syntax is not
// interpreted here beyond intersection, which Intersect implements
// for the subset this module needs.
type RangeIdent struct {
	Name  PkgName
	Range VersionRange
}

// PkgPin names how a request should be pinned after a solve completes
//.
type PkgPin struct {
	Exact  bool // "x.x.x"
	Approx bool // "~x.x.x"
	API    bool
	Binary bool
	True   bool // unqualified "true" -> default Binary
}

// PkgRequest requests a package within a version range, with inclusion,
// pin, and pre-release policies.
type PkgRequest struct {
	Pkg              RangeIdent
	PreReleasePolicy PreReleasePolicy
	InclusionPolicy  InclusionPolicy
	PinPolicy        PinPolicy
	Pin              *PkgPin
	RequiredCompat   *CompatLevel
	RequestedBy      string
}

// ErrImpossibleMerge is returned when two requests cannot be combined
//.
type ErrImpossibleMerge struct {
	A, B PkgRequest
}

func (e ErrImpossibleMerge) Error() string {
	return fmt.Sprintf("pkgmodel: impossible merge of requests for %s", e.A.Pkg.Name)
}

// Restrict merges b into a, intersecting version ranges and narrowing
// policies (Always dominates IfAlreadyPresent for inclusion,
// ExcludeAll dominates IncludeAll for pre-release). An empty
// intersection is an ErrImpossibleMerge unless BOTH requests are
// InclusionIfAlreadyPresent ( Open Question (b) resolution,
// recorded in DESIGN.md).
func Restrict(a, b PkgRequest) (PkgRequest, error) {
	if a.Pkg.Name != b.Pkg.Name {
		return PkgRequest{}, fmt.Errorf("pkgmodel: cannot merge requests for different packages %s and %s", a.Pkg.Name, b.Pkg.Name)
	}

	merged := a
	intersection, ok := a.Pkg.Range.Intersect(b.Pkg.Range)
	if !ok {
		bothIfPresent := a.InclusionPolicy == InclusionIfAlreadyPresent && b.InclusionPolicy == InclusionIfAlreadyPresent
		if !bothIfPresent {
			return PkgRequest{}, ErrImpossibleMerge{A: a, B: b}
		}
		// Both optional: the merge survives with an empty range; it
		// simply can never be satisfied by InclusionAlways pressure
		// from elsewhere, but is not itself fatal.
		merged.Pkg.Range = intersection
		merged.InclusionPolicy = InclusionIfAlreadyPresent
		return merged, nil
	}
	merged.Pkg.Range = intersection

	if a.InclusionPolicy == InclusionAlways || b.InclusionPolicy == InclusionAlways {
		merged.InclusionPolicy = InclusionAlways
	} else {
		merged.InclusionPolicy = InclusionIfAlreadyPresent
	}

	if a.PreReleasePolicy == PreReleaseExcludeAll || b.PreReleasePolicy == PreReleaseExcludeAll {
		merged.PreReleasePolicy = PreReleaseExcludeAll
	} else {
		merged.PreReleasePolicy = PreReleaseIncludeAll
	}

	if a.PinPolicy == PinAlways || b.PinPolicy == PinAlways {
		merged.PinPolicy = PinAlways
	} else {
		merged.PinPolicy = PinIfPresentInBuildEnv
	}

	return merged, nil
}

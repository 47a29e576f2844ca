package build

import "github.com/spkdev/spk/pkg/pkgmodel"

// matchFunc is the glob predicate ValidationSpec.Evaluate requires.
type matchFunc func(subject, path string) bool

// defaultDeny is the implicit rule each of the three built-in
// validation kinds carries unless the recipe declares a more specific
// override: deny for every path, at the lowest possible locality, so
// any recipe-declared Allow rule with a real subject naturally takes
// precedence ( step 8: "more-specific Allowed rules
// override less-specific Denied rules regardless of ordering").
func defaultDeny(kind pkgmodel.ValidationRuleKind) pkgmodel.ValidationRule {
	return pkgmodel.ValidationRule{Kind: kind, Verdict: pkgmodel.Denied, Subject: "**", Locality: 0}
}

func evaluateKind(spec pkgmodel.ValidationSpec, kind pkgmodel.ValidationRuleKind, path string, matches matchFunc) pkgmodel.ValidationVerdict {
	filtered := pkgmodel.ValidationSpec{Rules: []pkgmodel.ValidationRule{defaultDeny(kind)}}
	for _, r := range spec.Rules {
		if r.Kind == kind {
			filtered.Rules = append(filtered.Rules, r)
		}
	}
	return filtered.Evaluate(path, matches)
}

// Validate checks a build's bucketed output against spec's
// ValidationSpec:
//   - MustInstallSomething: the build must have collected at least one
//     file into some component.
//   - MustNotAlterExistingFiles: no path already present in the base
//     layer stack may have been modified, unless explicitly allowed.
//   - MustCollectAllFiles: every changed path must land in some
//     component, unless explicitly allowed to be left uncollected.
func Validate(spec pkgmodel.ValidationSpec, installedCount int, alteredExisting, uncollected []string, matches matchFunc) error {
	if matches == nil {
		matches = GlobMatcher
	}

	if installedCount == 0 && evaluateKind(spec, pkgmodel.MustInstallSomething, "", matches) == pkgmodel.Denied {
		return ErrValidationDenied{Rule: pkgmodel.MustInstallSomething}
	}
	for _, p := range alteredExisting {
		if evaluateKind(spec, pkgmodel.MustNotAlterExistingFiles, p, matches) == pkgmodel.Denied {
			return ErrValidationDenied{Rule: pkgmodel.MustNotAlterExistingFiles, Path: p}
		}
	}
	for _, p := range uncollected {
		if evaluateKind(spec, pkgmodel.MustCollectAllFiles, p, matches) == pkgmodel.Denied {
			return ErrValidationDenied{Rule: pkgmodel.MustCollectAllFiles, Path: p}
		}
	}
	return nil
}

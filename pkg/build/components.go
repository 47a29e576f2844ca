package build

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/spkdev/spk/pkg/pkgmodel"
)

// BucketComponents assigns each changed path to every declared
// component whose Files globs match it, walking components in
// declaration order. A FileMatchRemaining component only claims paths
// no earlier component has already claimed, carving a disjoint slice
// out of the pool; FileMatchAll leaves a path available to later
// components too ( step 7: "bucket changed paths into
// components by matching their files globs in declaration order,
// respecting file_match_mode"). The second return value lists paths no
// component claimed.
func BucketComponents(components []pkgmodel.Component, changes []ChangedPath) (map[pkgmodel.ComponentName][]ChangedPath, []ChangedPath, error) {
	buckets := make(map[pkgmodel.ComponentName][]ChangedPath, len(components))
	remaining := changes
	claimedAny := make(map[string]bool)

	for _, c := range components {
		var claimed, stillRemaining []ChangedPath
		for _, ch := range remaining {
			matched, err := matchesAny(c.Files, ch.Path)
			if err != nil {
				return nil, nil, err
			}
			if !matched {
				stillRemaining = append(stillRemaining, ch)
				continue
			}
			claimed = append(claimed, ch)
			claimedAny[ch.Path] = true
			if c.FileMatchMode == pkgmodel.FileMatchAll {
				stillRemaining = append(stillRemaining, ch)
			}
		}
		buckets[c.Name] = claimed
		remaining = stillRemaining
	}

	var uncollected []ChangedPath
	for _, ch := range changes {
		if !claimedAny[ch.Path] {
			uncollected = append(uncollected, ch)
		}
	}
	return buckets, uncollected, nil
}

func matchesAny(globs []string, path string) (bool, error) {
	for _, g := range globs {
		ok, err := doublestar.Match(g, path)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// GlobMatcher adapts doublestar.Match to the matches callback
// pkgmodel.ValidationSpec.Evaluate expects, where subject is a glob
// and path the candidate.
func GlobMatcher(subject, path string) bool {
	ok, err := doublestar.Match(subject, path)
	return err == nil && ok
}

package solve

import (
	"sort"

	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/repository"
)

// Candidate is one concrete build offered by a PackageIterator: the
// recipe it was built from (needed for compat checks and component
// closures) plus the published package record.
type Candidate struct {
	Ident   pkgmodel.BuildIdent
	Recipe  pkgmodel.Recipe
	Package pkgmodel.Package
}

// PackageIterator yields a single package name's candidate builds in
// version-descending, then build-ordering order (
// "Input"). Next returns (zero, false, nil) once exhausted.
type PackageIterator interface {
	Next() (Candidate, bool, error)
}

// IteratorFactory produces a fresh PackageIterator for name, lazily —
// the search only ever materializes the candidate space for a package
// name it actually needs to decide on.
type IteratorFactory func(name pkgmodel.PkgName) (PackageIterator, error)

// RepositoryIterator is the standard PackageIterator, backed by one or
// more repositories searched in order. Builds are grouped by version,
// versions taken version-descending; within a version, binary builds
// are offered before the source build, so a solve prefers an existing
// build over recursively compiling one (a deliberate ordering choice,
// recorded in DESIGN.md, since leaves "build ordering" as
// surface detail). Deprecated packages are skipped.
type RepositoryIterator struct {
	name  pkgmodel.PkgName
	repos []repository.Repository

	loaded     bool
	candidates []Candidate
	idx        int
}

// NewRepositoryIterator returns an iterator for name, searching repos
// in the given order.
func NewRepositoryIterator(name pkgmodel.PkgName, repos []repository.Repository) *RepositoryIterator {
	return &RepositoryIterator{name: name, repos: repos}
}

func (it *RepositoryIterator) ensureLoaded() error {
	if it.loaded {
		return nil
	}
	it.loaded = true

	for _, repo := range it.repos {
		versions, err := repo.ListPackageVersions(it.name)
		if err != nil {
			continue
		}
		sort.Slice(versions, func(i, j int) bool { return versions[i].Compare(versions[j]) > 0 })

		for _, v := range versions {
			ident := pkgmodel.VersionIdent{Name: it.name, Version: v}
			recipe, err := repo.ReadRecipe(ident)
			if err != nil {
				continue
			}
			builds, err := repo.ListPackageBuilds(ident)
			if err != nil {
				continue
			}
			sort.SliceStable(builds, func(i, j int) bool {
				return buildRank(builds[i]) < buildRank(builds[j])
			})
			for _, b := range builds {
				buildIdent := pkgmodel.BuildIdent{VersionIdent: ident, Build: b}
				pkg, err := repo.ReadPackage(buildIdent)
				if err != nil || pkg.Deprecated {
					continue
				}
				it.candidates = append(it.candidates, Candidate{Ident: buildIdent, Recipe: recipe, Package: pkg})
			}
		}
	}
	return nil
}

// buildRank orders digest builds ahead of the source build within a
// version.
func buildRank(b pkgmodel.Build) int {
	switch b.Kind {
	case pkgmodel.BuildDigest:
		return 0
	case pkgmodel.BuildEmbedded:
		return 1
	default:
		return 2
	}
}

func (it *RepositoryIterator) Next() (Candidate, bool, error) {
	if err := it.ensureLoaded(); err != nil {
		return Candidate{}, false, err
	}
	if it.idx >= len(it.candidates) {
		return Candidate{}, false, nil
	}
	c := it.candidates[it.idx]
	it.idx++
	return c, true, nil
}

package publish

import (
	"fmt"

	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/repository"
)

// Deprecate marks an already-published build as deprecated in place:
// pkg/solve's RepositoryIterator skips deprecated candidates, so
// future solves stop picking it, while anyone already pinned to its
// exact BuildIdent can keep reading it.
func Deprecate(repo repository.Repository, ident pkgmodel.BuildIdent) error {
	return setDeprecated(repo, ident, true)
}

// Undeprecate reverses Deprecate.
func Undeprecate(repo repository.Repository, ident pkgmodel.BuildIdent) error {
	return setDeprecated(repo, ident, false)
}

func setDeprecated(repo repository.Repository, ident pkgmodel.BuildIdent, deprecated bool) error {
	pkg, err := repo.ReadPackage(ident)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	components, err := repo.ReadComponents(ident)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	pkg.Deprecated = deprecated
	if err := repo.PublishPackage(pkg, components); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Package repository composes the object graph (pkg/graph), the
// payload store (pkg/payload), and recipe/package metadata behind a
// single interface with several backing variants.
package repository

import (
	"fmt"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/payload"
	"github.com/spkdev/spk/pkg/pkgmodel"
)

// CachePolicy controls whether a repository may answer listing calls
// from a recent cache or must always read through (
// "Caching").
type CachePolicy int

const (
	CacheOk CachePolicy = iota
	BypassCache
)

// PublishPolicy controls whether publishing a recipe may overwrite an
// existing one.
type PublishPolicy int

const (
	Overwrite PublishPolicy = iota
	NoOverwrite
)

// ErrUnknownRecipe is returned when a VersionIdent has no published
// recipe.
type ErrUnknownRecipe struct {
	Ident pkgmodel.VersionIdent
}

func (e ErrUnknownRecipe) Error() string {
	return fmt.Sprintf("repository: unknown recipe %s", e.Ident)
}

// ErrUnknownBuild is returned when a BuildIdent has no published package.
type ErrUnknownBuild struct {
	Ident pkgmodel.BuildIdent
}

func (e ErrUnknownBuild) Error() string {
	return fmt.Sprintf("repository: unknown build %s", e.Ident)
}

// ErrRecipeExists is returned by PublishRecipe under NoOverwrite when a
// recipe is already present.
type ErrRecipeExists struct {
	Ident pkgmodel.VersionIdent
}

func (e ErrRecipeExists) Error() string {
	return fmt.Sprintf("repository: recipe already exists %s", e.Ident)
}

// ErrObjectMissingPayload is returned when a Blob object resolves but
// its payload is absent from the backing payload store — the trigger
// for the payload-fallback repository's self-heal path (
// "Payload-fallback repository").
type ErrObjectMissingPayload struct {
	Payload digest.Digest
}

func (e ErrObjectMissingPayload) Error() string {
	return fmt.Sprintf("repository: object references missing payload %s", e.Payload)
}

// Repository is the uniform interface every variant implements (
// ).
type Repository interface {
	Name() string

	// Objects and Payloads expose the underlying C2/C3 stores, used by
	// the Sync Engine, Garbage Collector, and Renderer.
	Objects() graph.Store
	Payloads() *payload.Store

	PublishRecipe(r pkgmodel.Recipe, policy PublishPolicy) error
	ReadRecipe(ident pkgmodel.VersionIdent) (pkgmodel.Recipe, error)
	RemoveRecipe(ident pkgmodel.VersionIdent) error

	PublishPackage(p pkgmodel.Package, components map[pkgmodel.ComponentName]digest.Digest) error
	ReadPackage(ident pkgmodel.BuildIdent) (pkgmodel.Package, error)
	ReadComponents(ident pkgmodel.BuildIdent) (map[pkgmodel.ComponentName]digest.Digest, error)
	RemovePackage(ident pkgmodel.BuildIdent) error

	ListPackages() ([]pkgmodel.PkgName, error)
	ListPackageVersions(name pkgmodel.PkgName) ([]pkgmodel.Version, error)
	ListPackageBuilds(ident pkgmodel.VersionIdent) ([]pkgmodel.Build, error)

	SetCachePolicy(p CachePolicy)
}

package repository

import (
	"sort"
	"sync"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/payload"
	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/storagedriver/inmemory"
)

type buildKey struct {
	name    pkgmodel.PkgName
	version string
	build   string
}

// MemoryRepository is an in-memory Repository, used in tests and as
// the in-memory Sync Engine/Solver destination (
// "In-memory repository"). Its address is simply the pointer identity
// of the backing maps: distinct MemoryRepository values never share
// state.
type MemoryRepository struct {
	name string

	mu         sync.RWMutex
	objects    *graph.MemoryStore
	payloads   *payload.Store
	recipes    map[pkgmodel.PkgName]map[string]pkgmodel.Recipe
	packages   map[buildKey]pkgmodel.Package
	components map[buildKey]map[pkgmodel.ComponentName]digest.Digest

	cachePolicy CachePolicy
}

// NewMemoryRepository returns an empty repository named name.
func NewMemoryRepository(name string) *MemoryRepository {
	return &MemoryRepository{
		name:       name,
		objects:    graph.NewMemoryStore(),
		payloads:   payload.New(inmemory.New()),
		recipes:    make(map[pkgmodel.PkgName]map[string]pkgmodel.Recipe),
		packages:   make(map[buildKey]pkgmodel.Package),
		components: make(map[buildKey]map[pkgmodel.ComponentName]digest.Digest),
	}
}

func (r *MemoryRepository) Name() string            { return r.name }
func (r *MemoryRepository) Objects() graph.Store     { return r.objects }
func (r *MemoryRepository) Payloads() *payload.Store { return r.payloads }
func (r *MemoryRepository) SetCachePolicy(p CachePolicy) { r.cachePolicy = p }

func (r *MemoryRepository) PublishRecipe(rec pkgmodel.Recipe, policy PublishPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	versions, ok := r.recipes[rec.Ident.Name]
	if !ok {
		versions = make(map[string]pkgmodel.Recipe)
		r.recipes[rec.Ident.Name] = versions
	}
	key := rec.Ident.Version.String()
	if _, exists := versions[key]; exists && policy == NoOverwrite {
		return ErrRecipeExists{Ident: rec.Ident}
	}
	versions[key] = rec
	return nil
}

func (r *MemoryRepository) ReadRecipe(ident pkgmodel.VersionIdent) (pkgmodel.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions, ok := r.recipes[ident.Name]
	if !ok {
		return pkgmodel.Recipe{}, ErrUnknownRecipe{Ident: ident}
	}
	rec, ok := versions[ident.Version.String()]
	if !ok {
		return pkgmodel.Recipe{}, ErrUnknownRecipe{Ident: ident}
	}
	return rec, nil
}

func (r *MemoryRepository) RemoveRecipe(ident pkgmodel.VersionIdent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	versions, ok := r.recipes[ident.Name]
	if !ok {
		return ErrUnknownRecipe{Ident: ident}
	}
	key := ident.Version.String()
	if _, ok := versions[key]; !ok {
		return ErrUnknownRecipe{Ident: ident}
	}
	delete(versions, key)
	return nil
}

func keyOf(ident pkgmodel.BuildIdent) buildKey {
	return buildKey{name: ident.Name, version: ident.Version.String(), build: ident.Build.String()}
}

func (r *MemoryRepository) PublishPackage(p pkgmodel.Package, components map[pkgmodel.ComponentName]digest.Digest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := keyOf(p.Ident)
	r.packages[k] = p
	stored := make(map[pkgmodel.ComponentName]digest.Digest, len(components))
	for name, d := range components {
		stored[name] = d
	}
	r.components[k] = stored

	for _, embedded := range p.Embedded {
		stubIdent := pkgmodel.BuildIdent{
			VersionIdent: embedded,
			Build:        pkgmodel.EmbeddedBuild(p.Ident),
		}
		r.packages[keyOf(stubIdent)] = pkgmodel.Package{Ident: stubIdent}
	}
	return nil
}

func (r *MemoryRepository) ReadPackage(ident pkgmodel.BuildIdent) (pkgmodel.Package, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.packages[keyOf(ident)]
	if !ok {
		return pkgmodel.Package{}, ErrUnknownBuild{Ident: ident}
	}
	return p, nil
}

func (r *MemoryRepository) ReadComponents(ident pkgmodel.BuildIdent) (map[pkgmodel.ComponentName]digest.Digest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[keyOf(ident)]
	if !ok {
		return nil, ErrUnknownBuild{Ident: ident}
	}
	out := make(map[pkgmodel.ComponentName]digest.Digest, len(c))
	for name, d := range c {
		out[name] = d
	}
	return out, nil
}

func (r *MemoryRepository) RemovePackage(ident pkgmodel.BuildIdent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := keyOf(ident)
	if _, ok := r.packages[k]; !ok {
		return ErrUnknownBuild{Ident: ident}
	}
	delete(r.packages, k)
	delete(r.components, k)
	return nil
}

func (r *MemoryRepository) ListPackages() ([]pkgmodel.PkgName, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]pkgmodel.PkgName, 0, len(r.recipes))
	for name := range r.recipes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names, nil
}

func (r *MemoryRepository) ListPackageVersions(name pkgmodel.PkgName) ([]pkgmodel.Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	versions, ok := r.recipes[name]
	if !ok {
		return nil, nil
	}
	out := make([]pkgmodel.Version, 0, len(versions))
	for _, rec := range versions {
		out = append(out, rec.Ident.Version)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) > 0 })
	return out, nil
}

func (r *MemoryRepository) ListPackageBuilds(ident pkgmodel.VersionIdent) ([]pkgmodel.Build, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []pkgmodel.Build
	for k, p := range r.packages {
		if k.name == ident.Name && k.version == ident.Version.String() {
			out = append(out, p.Ident.Build)
		}
	}
	return out, nil
}

var _ Repository = (*MemoryRepository)(nil)

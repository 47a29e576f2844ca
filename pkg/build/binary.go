package build

import (
	"context"
	"errors"
	"fmt"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/repository"
	"github.com/spkdev/spk/pkg/solve"
)

// BinaryPackageBuilder runs the nine-step binary build sequence
//. It depends only on narrow interfaces (Environment,
// graph.Store, repository.Repository) so the pipeline can be driven
// against a MemoryRepository and a fake Environment in tests, with the
// real OverlayEnvironment and on-disk repository substituted in
// production.
type BinaryPackageBuilder struct {
	Repo   repository.Repository
	Env    Environment
	Solver *solve.Solver // build-resolver: resolves the runtime the script executes in
	Source *solve.Solver // source-resolver: resolves the source-only component set
	NoHost bool
}

// BuildRequest is the caller-assembled input a single Build call needs
// beyond the recipe itself: the top-level options given on the command
// line and the package requests the build-resolver and source-resolver
// solves should each satisfy. Deriving these automatically from a
// recipe's OptionPkg build options is left to the caller (see
// DESIGN.md "pkg/build"): pkg/solve already validates a candidate's
// pinned pkg-option values against its embedded packages once a
// request exists, but nothing in the recipe format names which
// packages become requests in the first place.
type BuildRequest struct {
	Options        *pkgmodel.OptionMap
	BuildRequests  []pkgmodel.PkgRequest
	SourceRequests []pkgmodel.PkgRequest
}

// Build runs every deduplicated variant of recipe through the full
// binary build sequence, returning one published Package per variant.
func (b *BinaryPackageBuilder) Build(ctx context.Context, recipe pkgmodel.Recipe, req BuildRequest) ([]pkgmodel.Package, error) {
	given := req.Options
	if !b.NoHost {
		given = mergeOptions(HostOptions(), given)
	}

	variants := recipe.Build.Variants
	if len(variants) == 0 {
		variants = []pkgmodel.Variant{{}}
	}
	variants = DedupVariants(recipe.Build.Options, variants, given)

	if err := b.Repo.PublishRecipe(recipe, repository.NoOverwrite); err != nil {
		var exists repository.ErrRecipeExists
		if !errors.As(err, &exists) {
			return nil, fmt.Errorf("build: publish recipe: %w", err)
		}
	}

	var out []pkgmodel.Package
	for _, variant := range variants {
		pkg, err := b.buildVariant(ctx, recipe, variant, given, req)
		if err != nil {
			return out, fmt.Errorf("build: variant %q: %w", variant.Name, err)
		}
		out = append(out, pkg)
	}
	return out, nil
}

func (b *BinaryPackageBuilder) buildVariant(ctx context.Context, recipe pkgmodel.Recipe, variant pkgmodel.Variant, given *pkgmodel.OptionMap, req BuildRequest) (pkgmodel.Package, error) {
	resolved := ResolveVariant(recipe.Build.Options, variant, given)
	buildIdent := pkgmodel.BuildIdent{VersionIdent: recipe.Ident, Build: pkgmodel.DigestBuild(resolved.Digest())}

	if _, err := b.Source.Solve(ctx, req.SourceRequests, resolved); err != nil {
		return pkgmodel.Package{}, fmt.Errorf("source resolve: %w", err)
	}
	buildSolution, err := b.Solver.Solve(ctx, req.BuildRequests, resolved)
	if err != nil {
		return pkgmodel.Package{}, fmt.Errorf("build resolve: %w", err)
	}

	stack, err := stackOf(b.Repo, buildSolution)
	if err != nil {
		return pkgmodel.Package{}, fmt.Errorf("resolve platform stack: %w", err)
	}

	mount, err := b.Env.Enter(stack)
	if err != nil {
		return pkgmodel.Package{}, fmt.Errorf("enter runtime: %w", err)
	}
	defer b.Env.Exit()

	baseManifest, err := mergedManifest(b.Repo.Objects(), stack)
	if err != nil {
		return pkgmodel.Package{}, fmt.Errorf("read base manifest: %w", err)
	}

	env := EnvFromOptions(resolved)
	if err := RunScript(ctx, "build", mount.MergedDir, recipe.Build.Script, env); err != nil {
		return pkgmodel.Package{}, err
	}

	changes, err := DiffUpper(mount.UpperDir, baseManifest, b.Repo.Payloads())
	if err != nil {
		return pkgmodel.Package{}, fmt.Errorf("diff build output: %w", err)
	}

	buckets, uncollected, err := BucketComponents(recipe.Install.Components, changes)
	if err != nil {
		return pkgmodel.Package{}, err
	}

	var alteredExisting, uncollectedPaths []string
	installed := 0
	for _, c := range changes {
		if c.Kind == Modified && c.Existed {
			alteredExisting = append(alteredExisting, c.Path)
		}
		if c.Kind != Removed {
			installed++
		}
	}
	for _, c := range uncollected {
		uncollectedPaths = append(uncollectedPaths, c.Path)
	}
	if err := Validate(recipe.Build.Validation, installed, alteredExisting, uncollectedPaths, GlobMatcher); err != nil {
		return pkgmodel.Package{}, fmt.Errorf("%s: %w", buildIdent, err)
	}

	componentDigests := make(map[pkgmodel.ComponentName]digest.Digest)
	for name, claimed := range buckets {
		if len(claimed) == 0 {
			continue
		}
		layerDigest, err := CommitChanges(claimed, b.Repo.Objects())
		if err != nil {
			return pkgmodel.Package{}, fmt.Errorf("publish component %s: %w", name, err)
		}
		componentDigests[name] = layerDigest
	}

	platformStack := make([]digest.Digest, 0, len(componentDigests))
	for _, d := range componentDigests {
		platformStack = append(platformStack, d)
	}
	platform := graph.Platform{Stack: platformStack}
	if _, err := b.Repo.Objects().WriteObject(platform); err != nil {
		return pkgmodel.Package{}, fmt.Errorf("publish platform: %w", err)
	}

	pkg := pkgmodel.Package{
		Ident:    buildIdent,
		Options:  resolved,
		Install:  recipe.Install,
		Embedded: recipe.Install.Embedded,
	}
	if err := b.Repo.PublishPackage(pkg, componentDigests); err != nil {
		return pkgmodel.Package{}, fmt.Errorf("publish package: %w", err)
	}
	return pkg, nil
}

func mergeOptions(base, overlay *pkgmodel.OptionMap) *pkgmodel.OptionMap {
	merged := pkgmodel.NewOptionMap()
	if base != nil {
		for _, k := range base.Keys() {
			v, _ := base.Get(k)
			merged.Set(k, v)
		}
	}
	if overlay != nil {
		for _, k := range overlay.Keys() {
			v, _ := overlay.Get(k)
			merged.Set(k, v)
		}
	}
	return merged
}

// stackOf builds the platform stack a build's runtime is entered with,
// from a build-resolver Solution: each resolved repository package
// contributes the layers of its resolved component closure, in
// reverse decision order so a dependency (decided after the package
// that pulled it in) ends up lower in the stack and the decision's own
// package — applied later, decided earlier — shadows it (
// "layer application order is the stored vector order, lowest first").
// Embedded stubs contribute no layer of their own.
func stackOf(repo repository.Repository, sol *pkgmodel.Solution) ([]digest.Digest, error) {
	var stack []digest.Digest
	for i := len(sol.Resolved) - 1; i >= 0; i-- {
		r := sol.Resolved[i]
		if r.Source.Kind != pkgmodel.SourceRepository {
			continue
		}
		comps, err := repo.ReadComponents(r.Spec.Ident)
		if err != nil {
			return nil, err
		}
		wanted := r.Source.Components
		if len(wanted) == 0 {
			wanted = []pkgmodel.ComponentName{pkgmodel.ComponentRun}
		}
		for _, name := range wanted {
			if d, ok := comps[name]; ok {
				stack = append(stack, d)
			}
		}
	}
	return stack, nil
}

// mergedManifest reads every layer in stack and flattens their root
// entries into one Manifest for DiffUpper's base-path lookups. Later
// (higher, later-in-stack) layers shadow earlier ones entry-for-entry,
// mirroring overlay semantics; this is a shallow (root-level) merge,
// matching how the build's output paths are almost always newly
// created top-level install trees rather than edits nested deep inside
// an existing dependency's tree.
func mergedManifest(objects graph.Store, stack []digest.Digest) (graph.Manifest, error) {
	merged := graph.Manifest{Trees: make(map[digest.Digest]graph.Tree)}
	rootEntries := make(map[string]graph.Entry)

	for _, layerDigest := range stack {
		obj, err := objects.ReadObject(layerDigest)
		if err != nil {
			return graph.Manifest{}, err
		}
		layer, ok := obj.(graph.Layer)
		if !ok {
			continue
		}
		mObj, err := objects.ReadObject(layer.Manifest)
		if err != nil {
			return graph.Manifest{}, err
		}
		m, ok := mObj.(graph.Manifest)
		if !ok {
			continue
		}
		for d, t := range m.Trees {
			merged.Trees[d] = t
		}
		root, ok := m.RootTree()
		if !ok {
			continue
		}
		for _, e := range root.Entries {
			rootEntries[e.Name] = e
		}
	}

	var entries []graph.Entry
	for _, e := range rootEntries {
		entries = append(entries, e)
	}
	tree, err := graph.NewTree(entries)
	if err != nil {
		return graph.Manifest{}, err
	}
	d := graph.Digest(tree)
	merged.Trees[d] = tree
	merged.Root = d
	return merged, nil
}

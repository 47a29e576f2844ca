package repository

import (
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/payload"
	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/storagedriver/inmemory"
)

// templateFront is the subset of a recipe template's front matter a
// workspace needs to discover it without fully building the recipe
// it can render.
type templateFront struct {
	Pkg      string   `yaml:"pkg"`
	Versions []string `yaml:"versions"`
}

// WorkspaceRepository is the read-only variant that enumerates recipes
// by discovering template files on a local directory tree; every
// build it reports is synthesized on demand as a source build (
// "Workspace repository", ).
type WorkspaceRepository struct {
	root     string
	globDir  func(pattern string) ([]string, error)
	readFile func(path string) ([]byte, error)

	// objects/payloads are present only so WorkspaceRepository satisfies
	// Repository; a workspace recipe has no built object graph until
	// something actually builds it.
	objects  *graph.MemoryStore
	payloads *payload.Store
}

// NewWorkspaceRepository discovers recipe templates under root via
// glob and readFile (injectable for testing without real disk access).
func NewWorkspaceRepository(root string, glob func(string) ([]string, error), readFile func(string) ([]byte, error)) *WorkspaceRepository {
	return &WorkspaceRepository{
		root:     root,
		globDir:  glob,
		readFile: readFile,
		objects:  graph.NewMemoryStore(),
		payloads: payload.New(inmemory.New()),
	}
}

func (w *WorkspaceRepository) Name() string                    { return "workspace:" + w.root }
func (w *WorkspaceRepository) Objects() graph.Store             { return w.objects }
func (w *WorkspaceRepository) Payloads() *payload.Store          { return w.payloads }
func (w *WorkspaceRepository) SetCachePolicy(CachePolicy)        {}

// templates returns every discovered template path paired with its
// parsed front matter, skipping files that fail to parse.
func (w *WorkspaceRepository) templates() (map[string]templateFront, error) {
	paths, err := w.globDir(filepath.Join(w.root, "*", "*.spk.yaml"))
	if err != nil {
		return nil, err
	}
	out := make(map[string]templateFront)
	for _, p := range paths {
		raw, err := w.readFile(p)
		if err != nil {
			continue
		}
		var front templateFront
		if err := yaml.Unmarshal(raw, &front); err != nil {
			continue
		}
		if front.Pkg == "" {
			continue
		}
		out[p] = front
	}
	return out, nil
}

// findTemplate resolves name to a single template path: an exact
// basename match wins on ambiguity, otherwise the first match in
// sorted order is chosen.
func (w *WorkspaceRepository) findTemplate(name pkgmodel.PkgName) (string, templateFront, bool, error) {
	all, err := w.templates()
	if err != nil {
		return "", templateFront{}, false, err
	}
	var matches []string
	for p, front := range all {
		if front.Pkg == string(name) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return "", templateFront{}, false, nil
	}
	sort.Strings(matches)
	for _, p := range matches {
		if strings.TrimSuffix(filepath.Base(p), ".spk.yaml") == string(name) {
			return p, all[p], len(matches) > 1, nil
		}
	}
	return matches[0], all[matches[0]], len(matches) > 1, nil
}

func (w *WorkspaceRepository) PublishRecipe(pkgmodel.Recipe, PublishPolicy) error { return errReadOnly }
func (w *WorkspaceRepository) RemoveRecipe(pkgmodel.VersionIdent) error           { return errReadOnly }
func (w *WorkspaceRepository) PublishPackage(pkgmodel.Package, map[pkgmodel.ComponentName]digest.Digest) error {
	return errReadOnly
}
func (w *WorkspaceRepository) RemovePackage(pkgmodel.BuildIdent) error { return errReadOnly }

func (w *WorkspaceRepository) ReadRecipe(ident pkgmodel.VersionIdent) (pkgmodel.Recipe, error) {
	_, front, _, err := w.findTemplate(ident.Name)
	if err != nil {
		return pkgmodel.Recipe{}, err
	}
	if front.Pkg == "" {
		return pkgmodel.Recipe{}, ErrUnknownRecipe{Ident: ident}
	}
	for _, v := range front.Versions {
		parsed, err := pkgmodel.ParseVersion(v)
		if err == nil && parsed.Compare(ident.Version) == 0 {
			return pkgmodel.Recipe{Ident: ident}, nil
		}
	}
	return pkgmodel.Recipe{}, ErrUnknownRecipe{Ident: ident}
}

func (w *WorkspaceRepository) ListPackages() ([]pkgmodel.PkgName, error) {
	all, err := w.templates()
	if err != nil {
		return nil, err
	}
	seen := make(map[pkgmodel.PkgName]bool)
	var names []pkgmodel.PkgName
	for _, front := range all {
		name := pkgmodel.PkgName(front.Pkg)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names, nil
}

func (w *WorkspaceRepository) ListPackageVersions(name pkgmodel.PkgName) ([]pkgmodel.Version, error) {
	_, front, _, err := w.findTemplate(name)
	if err != nil || front.Pkg == "" {
		return nil, err
	}
	var out []pkgmodel.Version
	for _, v := range front.Versions {
		if parsed, err := pkgmodel.ParseVersion(v); err == nil {
			out = append(out, parsed)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) > 0 })
	return out, nil
}

// ListPackageBuilds always reports a single synthesized source build:
// a workspace recipe is built on demand, never stored pre-built.
func (w *WorkspaceRepository) ListPackageBuilds(ident pkgmodel.VersionIdent) ([]pkgmodel.Build, error) {
	if _, err := w.ReadRecipe(ident); err != nil {
		return nil, nil
	}
	return []pkgmodel.Build{pkgmodel.SourceBuild}, nil
}

func (w *WorkspaceRepository) ReadPackage(ident pkgmodel.BuildIdent) (pkgmodel.Package, error) {
	if _, err := w.ReadRecipe(ident.VersionIdent); err != nil {
		return pkgmodel.Package{}, ErrUnknownBuild{Ident: ident}
	}
	if ident.Build.Kind != pkgmodel.BuildSource {
		return pkgmodel.Package{}, ErrUnknownBuild{Ident: ident}
	}
	return pkgmodel.Package{Ident: ident}, nil
}

func (w *WorkspaceRepository) ReadComponents(pkgmodel.BuildIdent) (map[pkgmodel.ComponentName]digest.Digest, error) {
	return nil, errReadOnly
}

var _ Repository = (*WorkspaceRepository)(nil)

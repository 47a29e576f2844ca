package repository

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/payload"
	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/storagedriver"
)

// recipeDoc and packageDoc are the on-disk YAML shapes for recipes and
// packages, stored as canonical YAML. Identity and listing fields are
// flattened out beside Raw, which holds the full pkgmodel value
// marshaled to YAML; reads decode Raw to restore every field.
type recipeDoc struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Raw     []byte `yaml:"raw"`
}

type packageDoc struct {
	Name       string   `yaml:"name"`
	Version    string   `yaml:"version"`
	Build      string   `yaml:"build"`
	Deprecated bool     `yaml:"deprecated"`
	Embedded   []string `yaml:"embedded"`
	Raw        []byte   `yaml:"raw"`
}

// FSRepository is the persistent, on-disk Repository variant (
// "Local FS repository"). Recipes and packages are YAML
// documents; components are small files naming the layer digest they
// point to, grounded on the Tag Store's "small record, one concern"
// shape without that store's append-only history (a component's layer
// either exists or doesn't — there is nothing to chain).
type FSRepository struct {
	name     string
	driver   storagedriver.StorageDriver
	objects  *graph.FSStore
	payloads *payload.Store

	readOnly    bool
	cachePolicy CachePolicy
}

// NewFSRepository wraps driver as a persistent repository rooted at
// its top level: recipes under /recipes, packages under /packages,
// objects under /objects, payloads under /payloads.
func NewFSRepository(name string, driver storagedriver.StorageDriver) *FSRepository {
	return &FSRepository{
		name:     name,
		driver:   driver,
		objects:  graph.NewFSStore(driver, "/objects"),
		payloads: payload.New(subpathDriver{driver: driver, prefix: "/payloads"}),
	}
}

// NewReadOnlyFSRepository wraps driver read-only, for the Runtime
// repository variant.
func NewReadOnlyFSRepository(name string, driver storagedriver.StorageDriver) *FSRepository {
	r := NewFSRepository(name, driver)
	r.readOnly = true
	return r
}

func (r *FSRepository) Name() string                    { return r.name }
func (r *FSRepository) Objects() graph.Store             { return r.objects }
func (r *FSRepository) Payloads() *payload.Store          { return r.payloads }
func (r *FSRepository) SetCachePolicy(p CachePolicy)      { r.cachePolicy = p }

func recipePath(ident pkgmodel.VersionIdent) string {
	return fmt.Sprintf("/recipes/%s/%s/recipe.yaml", ident.Name, ident.Version)
}

func packageDir(ident pkgmodel.BuildIdent) string {
	return fmt.Sprintf("/packages/%s/%s/%s", ident.Name, ident.Version, ident.Build)
}

func packagePath(ident pkgmodel.BuildIdent) string {
	return packageDir(ident) + "/package.yaml"
}

func componentPath(ident pkgmodel.BuildIdent, name pkgmodel.ComponentName) string {
	return packageDir(ident) + "/" + string(name) + ".cmpt"
}

var errReadOnly = fmt.Errorf("repository: repository is read-only")

func (r *FSRepository) PublishRecipe(rec pkgmodel.Recipe, policy PublishPolicy) error {
	if r.readOnly {
		return errReadOnly
	}
	path := recipePath(rec.Ident)
	if policy == NoOverwrite {
		if _, err := r.driver.Stat(path); err == nil {
			return ErrRecipeExists{Ident: rec.Ident}
		}
	}
	raw, err := yaml.Marshal(rec)
	if err != nil {
		return err
	}
	doc := recipeDoc{Name: string(rec.Ident.Name), Version: rec.Ident.Version.String(), Raw: raw}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return r.driver.PutContent(path, out)
}

func (r *FSRepository) ReadRecipe(ident pkgmodel.VersionIdent) (pkgmodel.Recipe, error) {
	raw, err := r.driver.GetContent(recipePath(ident))
	if err != nil {
		if _, ok := err.(storagedriver.PathNotFoundError); ok {
			return pkgmodel.Recipe{}, ErrUnknownRecipe{Ident: ident}
		}
		return pkgmodel.Recipe{}, err
	}
	var doc recipeDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return pkgmodel.Recipe{}, err
	}
	var rec pkgmodel.Recipe
	if err := yaml.Unmarshal(doc.Raw, &rec); err != nil {
		return pkgmodel.Recipe{}, err
	}
	return rec, nil
}

func (r *FSRepository) RemoveRecipe(ident pkgmodel.VersionIdent) error {
	if r.readOnly {
		return errReadOnly
	}
	path := recipePath(ident)
	if _, err := r.driver.Stat(path); err != nil {
		if _, ok := err.(storagedriver.PathNotFoundError); ok {
			return ErrUnknownRecipe{Ident: ident}
		}
		return err
	}
	return r.driver.Delete(path)
}

func (r *FSRepository) PublishPackage(p pkgmodel.Package, components map[pkgmodel.ComponentName]digest.Digest) error {
	if r.readOnly {
		return errReadOnly
	}
	raw, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	embedded := make([]string, 0, len(p.Embedded))
	for _, e := range p.Embedded {
		embedded = append(embedded, e.String())
	}
	doc := packageDoc{
		Name:       string(p.Ident.Name),
		Version:    p.Ident.Version.String(),
		Build:      p.Ident.Build.String(),
		Deprecated: p.Deprecated,
		Embedded:   embedded,
		Raw:        raw,
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if err := r.driver.PutContent(packagePath(p.Ident), out); err != nil {
		return err
	}
	for name, d := range components {
		if err := r.driver.PutContent(componentPath(p.Ident, name), []byte(d.String())); err != nil {
			return err
		}
	}
	for _, e := range p.Embedded {
		stubIdent := pkgmodel.BuildIdent{VersionIdent: e, Build: pkgmodel.EmbeddedBuild(p.Ident)}
		stub := pkgmodel.Package{Ident: stubIdent}
		stubRaw, err := yaml.Marshal(stub)
		if err != nil {
			return err
		}
		stubDoc := packageDoc{
			Name:    string(stubIdent.Name),
			Version: stubIdent.Version.String(),
			Build:   stubIdent.Build.String(),
			Raw:     stubRaw,
		}
		out, err := yaml.Marshal(stubDoc)
		if err != nil {
			return err
		}
		if err := r.driver.PutContent(packagePath(stubIdent), out); err != nil {
			return err
		}
	}
	return nil
}

func (r *FSRepository) ReadPackage(ident pkgmodel.BuildIdent) (pkgmodel.Package, error) {
	raw, err := r.driver.GetContent(packagePath(ident))
	if err != nil {
		if _, ok := err.(storagedriver.PathNotFoundError); ok {
			return pkgmodel.Package{}, ErrUnknownBuild{Ident: ident}
		}
		return pkgmodel.Package{}, err
	}
	var doc packageDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return pkgmodel.Package{}, err
	}
	var p pkgmodel.Package
	if err := yaml.Unmarshal(doc.Raw, &p); err != nil {
		return pkgmodel.Package{}, err
	}
	return p, nil
}

func (r *FSRepository) ReadComponents(ident pkgmodel.BuildIdent) (map[pkgmodel.ComponentName]digest.Digest, error) {
	entries, err := r.driver.List(packageDir(ident))
	if err != nil {
		if _, ok := err.(storagedriver.PathNotFoundError); ok {
			return nil, ErrUnknownBuild{Ident: ident}
		}
		return nil, err
	}
	out := make(map[pkgmodel.ComponentName]digest.Digest)
	for _, entry := range entries {
		base := entry[strings.LastIndex(entry, "/")+1:]
		name, ok := strings.CutSuffix(base, ".cmpt")
		if !ok {
			continue
		}
		raw, err := r.driver.GetContent(entry)
		if err != nil {
			continue
		}
		d, err := digest.Parse(string(raw))
		if err != nil {
			continue
		}
		out[pkgmodel.ComponentName(name)] = d
	}
	return out, nil
}

func (r *FSRepository) RemovePackage(ident pkgmodel.BuildIdent) error {
	if r.readOnly {
		return errReadOnly
	}
	if _, err := r.driver.Stat(packagePath(ident)); err != nil {
		if _, ok := err.(storagedriver.PathNotFoundError); ok {
			return ErrUnknownBuild{Ident: ident}
		}
		return err
	}
	return r.driver.Delete(packageDir(ident))
}

func (r *FSRepository) ListPackages() ([]pkgmodel.PkgName, error) {
	entries, err := r.driver.List("/recipes")
	if err != nil {
		if _, ok := err.(storagedriver.PathNotFoundError); ok {
			return nil, nil
		}
		return nil, err
	}
	names := make([]pkgmodel.PkgName, 0, len(entries))
	for _, e := range entries {
		names = append(names, pkgmodel.PkgName(e[strings.LastIndex(e, "/")+1:]))
	}
	return names, nil
}

func (r *FSRepository) ListPackageVersions(name pkgmodel.PkgName) ([]pkgmodel.Version, error) {
	entries, err := r.driver.List("/recipes/" + string(name))
	if err != nil {
		if _, ok := err.(storagedriver.PathNotFoundError); ok {
			return nil, nil
		}
		return nil, err
	}
	out := make([]pkgmodel.Version, 0, len(entries))
	for _, e := range entries {
		v, err := pkgmodel.ParseVersion(e[strings.LastIndex(e, "/")+1:])
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *FSRepository) ListPackageBuilds(ident pkgmodel.VersionIdent) ([]pkgmodel.Build, error) {
	entries, err := r.driver.List(fmt.Sprintf("/packages/%s/%s", ident.Name, ident.Version))
	if err != nil {
		if _, ok := err.(storagedriver.PathNotFoundError); ok {
			return nil, nil
		}
		return nil, err
	}
	var out []pkgmodel.Build
	for _, e := range entries {
		buildStr := e[strings.LastIndex(e, "/")+1:]
		p, err := r.ReadPackage(pkgmodel.BuildIdent{VersionIdent: ident, Build: buildFromString(buildStr)})
		if err != nil {
			continue
		}
		out = append(out, p.Ident.Build)
	}
	return out, nil
}

// buildFromString reconstructs a Build good enough to address the
// on-disk layout from its String() form ("src", an 8-char digest, or
// "embedded(...)"). Embedded stubs are not addressable this way since
// their parent identity does not round-trip through the directory
// name alone; ListPackageBuilds skips any entry it cannot resolve.
func buildFromString(s string) pkgmodel.Build {
	switch {
	case s == "src":
		return pkgmodel.SourceBuild
	case strings.HasPrefix(s, "embedded("):
		return pkgmodel.Build{}
	default:
		return pkgmodel.DigestBuild(s)
	}
}

// subpathDriver rebases every call onto a fixed prefix, letting one
// backing storagedriver serve both the object store and the payload
// store of an FSRepository under distinct namespaces.
type subpathDriver struct {
	driver storagedriver.StorageDriver
	prefix string
}

func (d subpathDriver) Name() string { return d.driver.Name() }
func (d subpathDriver) path(p string) string { return d.prefix + p }

func (d subpathDriver) GetContent(p string) ([]byte, error) { return d.driver.GetContent(d.path(p)) }
func (d subpathDriver) PutContent(p string, content []byte) error {
	return d.driver.PutContent(d.path(p), content)
}
func (d subpathDriver) ReadStream(p string, offset int64) (io.ReadCloser, error) {
	return d.driver.ReadStream(d.path(p), offset)
}
func (d subpathDriver) WriteStream(p string, reader io.Reader) (int64, error) {
	return d.driver.WriteStream(d.path(p), reader)
}
func (d subpathDriver) Stat(p string) (storagedriver.FileInfo, error) { return d.driver.Stat(d.path(p)) }
func (d subpathDriver) List(p string) ([]string, error)               { return d.driver.List(d.path(p)) }
func (d subpathDriver) Move(src, dst string) error {
	return d.driver.Move(d.path(src), d.path(dst))
}
func (d subpathDriver) Delete(p string) error { return d.driver.Delete(d.path(p)) }

var _ Repository = (*FSRepository)(nil)

package repository

import (
	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/payload"
	"github.com/spkdev/spk/pkg/pkgmodel"
)

// ProxyRepository reads through primary first, falling through to
// each secondary in order on UnknownObject/UnknownReference-shaped
// misses; all writes go only to primary.
type ProxyRepository struct {
	name       string
	primary    Repository
	secondary  []Repository
}

// NewProxyRepository returns a ProxyRepository reading through primary
// then each of secondary in order.
func NewProxyRepository(name string, primary Repository, secondary ...Repository) *ProxyRepository {
	return &ProxyRepository{name: name, primary: primary, secondary: secondary}
}

func (p *ProxyRepository) Name() string            { return p.name }
func (p *ProxyRepository) Objects() graph.Store     { return p.primary.Objects() }
func (p *ProxyRepository) Payloads() *payload.Store { return p.primary.Payloads() }
func (p *ProxyRepository) SetCachePolicy(c CachePolicy) {
	p.primary.SetCachePolicy(c)
	for _, s := range p.secondary {
		s.SetCachePolicy(c)
	}
}

func isUnknown(err error) bool {
	switch err.(type) {
	case ErrUnknownRecipe, ErrUnknownBuild:
		return true
	}
	if _, ok := err.(graph.ErrUnknownObject); ok {
		return true
	}
	return false
}

func (p *ProxyRepository) PublishRecipe(r pkgmodel.Recipe, policy PublishPolicy) error {
	return p.primary.PublishRecipe(r, policy)
}

func (p *ProxyRepository) ReadRecipe(ident pkgmodel.VersionIdent) (pkgmodel.Recipe, error) {
	rec, err := p.primary.ReadRecipe(ident)
	if err == nil || !isUnknown(err) {
		return rec, err
	}
	for _, s := range p.secondary {
		rec, serr := s.ReadRecipe(ident)
		if serr == nil {
			return rec, nil
		}
		if !isUnknown(serr) {
			return pkgmodel.Recipe{}, serr
		}
	}
	return pkgmodel.Recipe{}, err
}

func (p *ProxyRepository) RemoveRecipe(ident pkgmodel.VersionIdent) error {
	return p.primary.RemoveRecipe(ident)
}

func (p *ProxyRepository) PublishPackage(pkg pkgmodel.Package, components map[pkgmodel.ComponentName]digest.Digest) error {
	return p.primary.PublishPackage(pkg, components)
}

func (p *ProxyRepository) ReadPackage(ident pkgmodel.BuildIdent) (pkgmodel.Package, error) {
	pkg, err := p.primary.ReadPackage(ident)
	if err == nil || !isUnknown(err) {
		return pkg, err
	}
	for _, s := range p.secondary {
		pkg, serr := s.ReadPackage(ident)
		if serr == nil {
			return pkg, nil
		}
		if !isUnknown(serr) {
			return pkgmodel.Package{}, serr
		}
	}
	return pkgmodel.Package{}, err
}

func (p *ProxyRepository) ReadComponents(ident pkgmodel.BuildIdent) (map[pkgmodel.ComponentName]digest.Digest, error) {
	c, err := p.primary.ReadComponents(ident)
	if err == nil || !isUnknown(err) {
		return c, err
	}
	for _, s := range p.secondary {
		c, serr := s.ReadComponents(ident)
		if serr == nil {
			return c, nil
		}
		if !isUnknown(serr) {
			return nil, serr
		}
	}
	return nil, err
}

func (p *ProxyRepository) RemovePackage(ident pkgmodel.BuildIdent) error {
	return p.primary.RemovePackage(ident)
}

func (p *ProxyRepository) ListPackages() ([]pkgmodel.PkgName, error) {
	return p.primary.ListPackages()
}

func (p *ProxyRepository) ListPackageVersions(name pkgmodel.PkgName) ([]pkgmodel.Version, error) {
	return p.primary.ListPackageVersions(name)
}

func (p *ProxyRepository) ListPackageBuilds(ident pkgmodel.VersionIdent) ([]pkgmodel.Build, error) {
	return p.primary.ListPackageBuilds(ident)
}

var _ Repository = (*ProxyRepository)(nil)

package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/storagedriver/inmemory"
)

func TestFSRepositoryRecipeRoundTrip(t *testing.T) {
	r := NewFSRepository("local", inmemory.New())
	ident := pkgmodel.VersionIdent{Name: "openssl", Version: mustVersion(t, "1.0.0")}
	rec := pkgmodel.Recipe{Ident: ident}

	require.NoError(t, r.PublishRecipe(rec, Overwrite))

	got, err := r.ReadRecipe(ident)
	require.NoError(t, err)
	assert.Equal(t, ident, got.Ident)

	versions, err := r.ListPackageVersions("openssl")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "1.0.0", versions[0].String())

	names, err := r.ListPackages()
	require.NoError(t, err)
	assert.Contains(t, names, pkgmodel.PkgName("openssl"))
}

func TestFSRepositoryPublishRecipeNoOverwriteRejectsExisting(t *testing.T) {
	r := NewFSRepository("local", inmemory.New())
	ident := pkgmodel.VersionIdent{Name: "openssl", Version: mustVersion(t, "1.0.0")}
	rec := pkgmodel.Recipe{Ident: ident}

	require.NoError(t, r.PublishRecipe(rec, Overwrite))
	err := r.PublishRecipe(rec, NoOverwrite)
	assert.IsType(t, ErrRecipeExists{}, err)
}

func TestFSRepositoryPackageAndComponentsRoundTrip(t *testing.T) {
	r := NewFSRepository("local", inmemory.New())
	ident := pkgmodel.BuildIdent{
		VersionIdent: pkgmodel.VersionIdent{Name: "openssl", Version: mustVersion(t, "1.0.0")},
		Build:        pkgmodel.DigestBuild("ABCD1234"),
	}
	pkg := pkgmodel.Package{Ident: ident}
	layer := digest.FromBytes([]byte("layer"))
	components := map[pkgmodel.ComponentName]digest.Digest{"run": layer}

	require.NoError(t, r.PublishPackage(pkg, components))

	got, err := r.ReadPackage(ident)
	require.NoError(t, err)
	assert.Equal(t, ident, got.Ident)

	gotComponents, err := r.ReadComponents(ident)
	require.NoError(t, err)
	assert.Equal(t, layer, gotComponents["run"])

	builds, err := r.ListPackageBuilds(ident.VersionIdent)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, "ABCD1234", builds[0].Digest)

	require.NoError(t, r.RemovePackage(ident))
	_, err = r.ReadPackage(ident)
	assert.IsType(t, ErrUnknownBuild{}, err)
}

func TestFSRepositoryReadOnlyRejectsWrites(t *testing.T) {
	r := NewReadOnlyFSRepository("runtime", inmemory.New())
	ident := pkgmodel.VersionIdent{Name: "openssl", Version: mustVersion(t, "1.0.0")}
	err := r.PublishRecipe(pkgmodel.Recipe{Ident: ident}, Overwrite)
	assert.Equal(t, errReadOnly, err)
}

func TestFSRepositoryObjectsAndPayloadsShareDriverWithoutCollision(t *testing.T) {
	driver := inmemory.New()
	r := NewFSRepository("local", driver)

	payloadDigest, err := r.Payloads().Write(strings.NewReader("hello world"))
	require.NoError(t, err)

	has, err := r.Payloads().Has(payloadDigest)
	require.NoError(t, err)
	assert.True(t, has)

	_, err = r.Objects().ReadObject(payloadDigest)
	assert.Error(t, err)
}

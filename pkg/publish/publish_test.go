package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/repository"
)

func mustVersion(t *testing.T, s string) pkgmodel.Version {
	t.Helper()
	v, err := pkgmodel.ParseVersion(s)
	require.NoError(t, err)
	return v
}

func publishedPackage(t *testing.T, r repository.Repository) pkgmodel.BuildIdent {
	t.Helper()
	ident := pkgmodel.BuildIdent{
		VersionIdent: pkgmodel.VersionIdent{Name: "openssl", Version: mustVersion(t, "1.0.0")},
		Build:        pkgmodel.DigestBuild("ABCD1234"),
	}
	pkg := pkgmodel.Package{Ident: ident}
	components := map[pkgmodel.ComponentName]digest.Digest{
		pkgmodel.ComponentRun: digest.FromBytes([]byte("run layer")),
	}
	require.NoError(t, r.PublishPackage(pkg, components))
	return ident
}

func TestDeprecateMarksPackageDeprecated(t *testing.T) {
	r := repository.NewMemoryRepository("mem")
	ident := publishedPackage(t, r)

	require.NoError(t, Deprecate(r, ident))

	got, err := r.ReadPackage(ident)
	require.NoError(t, err)
	assert.True(t, got.Deprecated)

	components, err := r.ReadComponents(ident)
	require.NoError(t, err)
	assert.Len(t, components, 1)
}

func TestUndeprecateReversesDeprecate(t *testing.T) {
	r := repository.NewMemoryRepository("mem")
	ident := publishedPackage(t, r)

	require.NoError(t, Deprecate(r, ident))
	require.NoError(t, Undeprecate(r, ident))

	got, err := r.ReadPackage(ident)
	require.NoError(t, err)
	assert.False(t, got.Deprecated)
}

func TestDeprecateUnknownBuildFails(t *testing.T) {
	r := repository.NewMemoryRepository("mem")
	ident := pkgmodel.BuildIdent{
		VersionIdent: pkgmodel.VersionIdent{Name: "missing", Version: mustVersion(t, "1.0.0")},
		Build:        pkgmodel.DigestBuild("0000"),
	}

	err := Deprecate(r, ident)
	assert.Error(t, err)
}

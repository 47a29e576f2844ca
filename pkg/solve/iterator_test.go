package solve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/repository"
)

func drain(t *testing.T, it PackageIterator) []Candidate {
	t.Helper()
	var out []Candidate
	for {
		c, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out
}

func TestRepositoryIteratorOrdersVersionsDescendingAndBuildsBinaryFirst(t *testing.T) {
	repo := repository.NewMemoryRepository("test")

	for _, v := range []string{"1.0.0", "2.0.0"} {
		rec := pkgmodel.Recipe{Ident: pkgmodel.VersionIdent{Name: "foo", Version: mustVersion(t, v)}, Compat: pkgmodel.DefaultCompat()}
		require.NoError(t, repo.PublishRecipe(rec, repository.Overwrite))
		require.NoError(t, repo.PublishPackage(pkgmodel.Package{Ident: pkgmodel.BuildIdent{VersionIdent: rec.Ident, Build: pkgmodel.SourceBuild}}, nil))
		require.NoError(t, repo.PublishPackage(pkgmodel.Package{Ident: pkgmodel.BuildIdent{VersionIdent: rec.Ident, Build: pkgmodel.DigestBuild("b1")}}, nil))
	}

	it := NewRepositoryIterator("foo", []repository.Repository{repo})
	candidates := drain(t, it)
	require.Len(t, candidates, 4)

	assert.Equal(t, "2.0.0", candidates[0].Ident.Version.String())
	assert.Equal(t, pkgmodel.BuildDigest, candidates[0].Ident.Build.Kind)
	assert.Equal(t, "2.0.0", candidates[1].Ident.Version.String())
	assert.Equal(t, pkgmodel.BuildSource, candidates[1].Ident.Build.Kind)
	assert.Equal(t, "1.0.0", candidates[2].Ident.Version.String())
	assert.Equal(t, "1.0.0", candidates[3].Ident.Version.String())
}

func TestRepositoryIteratorSkipsDeprecatedBuilds(t *testing.T) {
	repo := repository.NewMemoryRepository("test")
	rec := pkgmodel.Recipe{Ident: pkgmodel.VersionIdent{Name: "foo", Version: mustVersion(t, "1.0.0")}, Compat: pkgmodel.DefaultCompat()}
	require.NoError(t, repo.PublishRecipe(rec, repository.Overwrite))
	require.NoError(t, repo.PublishPackage(pkgmodel.Package{
		Ident:      pkgmodel.BuildIdent{VersionIdent: rec.Ident, Build: pkgmodel.DigestBuild("dead")},
		Deprecated: true,
	}, nil))

	it := NewRepositoryIterator("foo", []repository.Repository{repo})
	candidates := drain(t, it)
	assert.Empty(t, candidates)
}

func TestRepositoryIteratorSearchesRepositoriesInOrder(t *testing.T) {
	primary := repository.NewMemoryRepository("primary")
	fallback := repository.NewMemoryRepository("fallback")

	recFallback := pkgmodel.Recipe{Ident: pkgmodel.VersionIdent{Name: "foo", Version: mustVersion(t, "1.0.0")}, Compat: pkgmodel.DefaultCompat()}
	require.NoError(t, fallback.PublishRecipe(recFallback, repository.Overwrite))
	require.NoError(t, fallback.PublishPackage(pkgmodel.Package{Ident: pkgmodel.BuildIdent{VersionIdent: recFallback.Ident, Build: pkgmodel.DigestBuild("f")}}, nil))

	it := NewRepositoryIterator("foo", []repository.Repository{primary, fallback})
	candidates := drain(t, it)
	require.Len(t, candidates, 1)
	assert.Equal(t, "1.0.0", candidates[0].Ident.Version.String())
}

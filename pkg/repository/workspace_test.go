package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spkdev/spk/pkg/pkgmodel"
)

// fakeWorkspace builds glob/readFile closures over an in-memory file set,
// for exercising WorkspaceRepository without touching real disk.
func fakeWorkspace(files map[string]string) (func(string) ([]string, error), func(string) ([]byte, error)) {
	glob := func(pattern string) ([]string, error) {
		var matches []string
		for path := range files {
			if ok, _ := matchGlob(pattern, path); ok {
				matches = append(matches, path)
			}
		}
		return matches, nil
	}
	readFile := func(path string) ([]byte, error) {
		content, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("no such file %s", path)
		}
		return []byte(content), nil
	}
	return glob, readFile
}

// matchGlob is a minimal "<root>/*/*.spk.yaml"-shaped matcher sufficient
// for these tests; it is not a general glob implementation.
func matchGlob(pattern, path string) (bool, error) {
	return globSuffixMatches(pattern, path), nil
}

func globSuffixMatches(pattern, path string) bool {
	return len(path) > len(".spk.yaml") && path[len(path)-len(".spk.yaml"):] == ".spk.yaml"
}

func TestWorkspaceRepositoryDiscoversTemplateVersions(t *testing.T) {
	files := map[string]string{
		"/ws/openssl/openssl.spk.yaml": "pkg: openssl\nversions: [\"1.0.0\", \"1.1.0\"]\n",
	}
	glob, readFile := fakeWorkspace(files)
	r := NewWorkspaceRepository("/ws", glob, readFile)

	names, err := r.ListPackages()
	require.NoError(t, err)
	assert.Equal(t, []pkgmodel.PkgName{"openssl"}, names)

	versions, err := r.ListPackageVersions("openssl")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "1.1.0", versions[0].String())
}

func TestWorkspaceRepositoryReadRecipeRequiresListedVersion(t *testing.T) {
	files := map[string]string{
		"/ws/openssl/openssl.spk.yaml": "pkg: openssl\nversions: [\"1.0.0\"]\n",
	}
	glob, readFile := fakeWorkspace(files)
	r := NewWorkspaceRepository("/ws", glob, readFile)

	ident := pkgmodel.VersionIdent{Name: "openssl", Version: mustVersion(t, "1.0.0")}
	_, err := r.ReadRecipe(ident)
	require.NoError(t, err)

	missing := pkgmodel.VersionIdent{Name: "openssl", Version: mustVersion(t, "9.9.9")}
	_, err = r.ReadRecipe(missing)
	assert.IsType(t, ErrUnknownRecipe{}, err)
}

func TestWorkspaceRepositoryIsReadOnly(t *testing.T) {
	glob, readFile := fakeWorkspace(nil)
	r := NewWorkspaceRepository("/ws", glob, readFile)

	err := r.PublishRecipe(pkgmodel.Recipe{}, Overwrite)
	assert.Equal(t, errReadOnly, err)
}

func TestWorkspaceRepositoryAmbiguousTemplatesPreferExactBasenameMatch(t *testing.T) {
	files := map[string]string{
		"/ws/openssl-fips/openssl-fips.spk.yaml": "pkg: openssl\nversions: [\"1.0.0\"]\n",
		"/ws/openssl/openssl.spk.yaml":           "pkg: openssl\nversions: [\"1.0.0\"]\n",
	}
	glob, readFile := fakeWorkspace(files)
	r := NewWorkspaceRepository("/ws", glob, readFile)

	path, _, ambiguous, err := r.findTemplate("openssl")
	require.NoError(t, err)
	assert.True(t, ambiguous)
	assert.Equal(t, "/ws/openssl/openssl.spk.yaml", path)
}

func TestWorkspaceRepositoryListPackageBuildsReportsSingleSourceBuild(t *testing.T) {
	files := map[string]string{
		"/ws/openssl/openssl.spk.yaml": "pkg: openssl\nversions: [\"1.0.0\"]\n",
	}
	glob, readFile := fakeWorkspace(files)
	r := NewWorkspaceRepository("/ws", glob, readFile)

	ident := pkgmodel.VersionIdent{Name: "openssl", Version: mustVersion(t, "1.0.0")}
	builds, err := r.ListPackageBuilds(ident)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, pkgmodel.SourceBuild, builds[0])
}

package gc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/repository"
)

// publishedFixture publishes a recipe, a package build, and a single
// component pointing at a small Blob/Manifest/Layer/Platform stack,
// returning the platform digest the build's "run" component names.
func publishedFixture(t *testing.T, repo repository.Repository, name string, content string) digest.Digest {
	t.Helper()
	ver := mustVersion(t, "1.0.0")
	ident := pkgmodel.VersionIdent{Name: pkgmodel.PkgName(name), Version: ver}
	require.NoError(t, repo.PublishRecipe(pkgmodel.Recipe{Ident: ident}, repository.Overwrite))

	payloadDigest, err := repo.Payloads().Write(strings.NewReader(content))
	require.NoError(t, err)
	blob := graph.Blob{Payload: payloadDigest, Size: uint64(len(content))}
	_, err = repo.Objects().WriteObject(blob)
	require.NoError(t, err)

	tree, err := graph.NewTree([]graph.Entry{
		{Name: "file", Kind: graph.EntryBlob, Mode: 0o644, Size: uint64(len(content)), Object: payloadDigest},
	})
	require.NoError(t, err)
	treeDigest := tree.Digest()
	manifest := graph.Manifest{Root: treeDigest, Trees: map[digest.Digest]graph.Tree{treeDigest: tree}}
	manifestDigest, err := repo.Objects().WriteObject(manifest)
	require.NoError(t, err)
	layerDigest, err := repo.Objects().WriteObject(graph.Layer{Manifest: manifestDigest})
	require.NoError(t, err)
	platformDigest, err := repo.Objects().WriteObject(graph.Platform{Stack: []digest.Digest{layerDigest}})
	require.NoError(t, err)

	buildIdent := pkgmodel.BuildIdent{VersionIdent: ident, Build: pkgmodel.DigestBuild("ABCD1234")}
	pkg := pkgmodel.Package{Ident: buildIdent}
	require.NoError(t, repo.PublishPackage(pkg, map[pkgmodel.ComponentName]digest.Digest{"run": platformDigest}))

	return platformDigest
}

func mustVersion(t *testing.T, s string) pkgmodel.Version {
	t.Helper()
	v, err := pkgmodel.ParseVersion(s)
	require.NoError(t, err)
	return v
}

func TestComputeMarksPublishedStackAttached(t *testing.T) {
	repo := repository.NewMemoryRepository("mem")
	platformDigest := publishedFixture(t, repo, "openssl", "hello world")

	report, err := New(repo, Options{}).Compute()
	require.NoError(t, err)

	assert.Empty(t, report.Unattached)
	assert.Empty(t, report.OrphanPayloads)
	assert.True(t, report.AttachedCount > 0)

	_, err = repo.Objects().ReadObject(platformDigest)
	require.NoError(t, err)
}

func TestComputeFindsUnattachedObjectAfterBuildRemoved(t *testing.T) {
	repo := repository.NewMemoryRepository("mem")
	platformDigest := publishedFixture(t, repo, "openssl", "hello world")

	ident := pkgmodel.VersionIdent{Name: "openssl", Version: mustVersion(t, "1.0.0")}
	require.NoError(t, repo.RemovePackage(pkgmodel.BuildIdent{VersionIdent: ident, Build: pkgmodel.DigestBuild("ABCD1234")}))

	report, err := New(repo, Options{}).Compute()
	require.NoError(t, err)

	assert.Contains(t, report.Unattached, platformDigest)
}

func TestComputeFindsOrphanPayloadWithNoBlobObject(t *testing.T) {
	repo := repository.NewMemoryRepository("mem")
	publishedFixture(t, repo, "openssl", "hello world")

	orphanDigest, err := repo.Payloads().Write(strings.NewReader("nobody references me"))
	require.NoError(t, err)

	report, err := New(repo, Options{}).Compute()
	require.NoError(t, err)

	assert.Contains(t, report.OrphanPayloads, orphanDigest)
	assert.Contains(t, report.Unattached, orphanDigest)
}

func TestPurgeRemovesUnattachedObjectAndPayload(t *testing.T) {
	repo := repository.NewMemoryRepository("mem")
	platformDigest := publishedFixture(t, repo, "openssl", "hello world")

	ident := pkgmodel.VersionIdent{Name: "openssl", Version: mustVersion(t, "1.0.0")}
	require.NoError(t, repo.RemovePackage(pkgmodel.BuildIdent{VersionIdent: ident, Build: pkgmodel.DigestBuild("ABCD1234")}))

	res, err := New(repo, Options{}).Purge()
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.True(t, res.ObjectsRemoved > 0)

	_, err = repo.Objects().ReadObject(platformDigest)
	assert.IsType(t, graph.ErrUnknownObject{}, err)
}

func TestPurgeLeavesAttachedStackIntact(t *testing.T) {
	repo := repository.NewMemoryRepository("mem")
	platformDigest := publishedFixture(t, repo, "openssl", "hello world")

	res, err := New(repo, Options{}).Purge()
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 0, res.ObjectsRemoved)
	assert.Equal(t, 0, res.PayloadsRemoved)

	_, err = repo.Objects().ReadObject(platformDigest)
	require.NoError(t, err)
}

func TestPurgeSwallowsUnknownObjectFromConcurrentRemoval(t *testing.T) {
	repo := repository.NewMemoryRepository("mem")
	platformDigest := publishedFixture(t, repo, "openssl", "hello world")

	ident := pkgmodel.VersionIdent{Name: "openssl", Version: mustVersion(t, "1.0.0")}
	require.NoError(t, repo.RemovePackage(pkgmodel.BuildIdent{VersionIdent: ident, Build: pkgmodel.DigestBuild("ABCD1234")}))

	// Simulate another collector run racing ahead and removing the
	// platform object before this Purge call gets to it.
	require.NoError(t, repo.Objects().RemoveObject(platformDigest))

	res, err := New(repo, Options{}).Purge()
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
}

type fakeRenderRemover struct {
	removed map[digest.Digest]bool
}

func (f *fakeRenderRemover) RemoveRender(d digest.Digest) (bool, error) {
	if f.removed == nil {
		return false, nil
	}
	if f.removed[d] {
		delete(f.removed, d)
		return true, nil
	}
	return false, nil
}

func TestPurgeCountsRenderTaskIndependently(t *testing.T) {
	repo := repository.NewMemoryRepository("mem")
	platformDigest := publishedFixture(t, repo, "openssl", "hello world")

	ident := pkgmodel.VersionIdent{Name: "openssl", Version: mustVersion(t, "1.0.0")}
	require.NoError(t, repo.RemovePackage(pkgmodel.BuildIdent{VersionIdent: ident, Build: pkgmodel.DigestBuild("ABCD1234")}))

	renders := &fakeRenderRemover{removed: map[digest.Digest]bool{platformDigest: true}}
	res, err := New(repo, Options{Renders: renders}).Purge()
	require.NoError(t, err)
	assert.Equal(t, 1, res.RendersRemoved)
}

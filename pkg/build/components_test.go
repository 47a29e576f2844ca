package build

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spkdev/spk/pkg/pkgmodel"
)

func TestBucketComponentsFileMatchRemainingCarvesDisjointSets(t *testing.T) {
	components := []pkgmodel.Component{
		{Name: "bin", Files: []string{"bin/**"}, FileMatchMode: pkgmodel.FileMatchRemaining},
		{Name: "run", Files: []string{"**"}, FileMatchMode: pkgmodel.FileMatchRemaining},
	}
	changes := []ChangedPath{
		{Path: "bin/tool", Kind: Added},
		{Path: "lib/libfoo.so", Kind: Added},
		{Path: "share/doc.txt", Kind: Added},
	}

	buckets, uncollected, err := BucketComponents(components, changes)
	require.NoError(t, err)
	assert.Empty(t, uncollected)

	assert.Len(t, buckets["bin"], 1)
	assert.Equal(t, "bin/tool", buckets["bin"][0].Path)

	assert.Len(t, buckets["run"], 2)
}

func TestBucketComponentsFileMatchAllAllowsOverlap(t *testing.T) {
	components := []pkgmodel.Component{
		{Name: "bin", Files: []string{"bin/**"}, FileMatchMode: pkgmodel.FileMatchAll},
		{Name: "all-files", Files: []string{"**"}, FileMatchMode: pkgmodel.FileMatchAll},
	}
	changes := []ChangedPath{{Path: "bin/tool", Kind: Added}}

	buckets, uncollected, err := BucketComponents(components, changes)
	require.NoError(t, err)
	assert.Empty(t, uncollected)
	assert.Len(t, buckets["bin"], 1)
	assert.Len(t, buckets["all-files"], 1)
}

func TestBucketComponentsReportsUncollectedPaths(t *testing.T) {
	components := []pkgmodel.Component{
		{Name: "bin", Files: []string{"bin/**"}, FileMatchMode: pkgmodel.FileMatchRemaining},
	}
	changes := []ChangedPath{
		{Path: "bin/tool", Kind: Added},
		{Path: "etc/config.conf", Kind: Added},
	}

	buckets, uncollected, err := BucketComponents(components, changes)
	require.NoError(t, err)
	assert.Len(t, buckets["bin"], 1)
	require.Len(t, uncollected, 1)
	assert.Equal(t, "etc/config.conf", uncollected[0].Path)
}

func TestGlobMatcher(t *testing.T) {
	assert.True(t, GlobMatcher("bin/**", "bin/tool"))
	assert.False(t, GlobMatcher("bin/**", "lib/tool"))
	assert.True(t, GlobMatcher("**/*.so", "lib/deep/libfoo.so"))
}

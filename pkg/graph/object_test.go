package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spkdev/spk/pkg/digest"
)

func TestDigestStability(t *testing.T) {
	// scenario 1: digest stability.
	hello := digest.FromBytes([]byte("hello"))
	tree, err := NewTree([]Entry{
		{Name: "a.txt", Kind: EntryBlob, Mode: 0o644, Size: 5, Object: hello},
	})
	require.NoError(t, err)

	m := Manifest{Root: tree.Digest(), Trees: map[digest.Digest]Tree{tree.Digest(): tree}}

	d1 := Digest(m)
	d2 := Digest(m)
	assert.Equal(t, d1, d2)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	hello := digest.FromBytes([]byte("hello"))
	tree, err := NewTree([]Entry{
		{Name: "a.txt", Kind: EntryBlob, Mode: 0o644, Size: 5, Object: hello},
	})
	require.NoError(t, err)

	cases := []Object{
		Blob{Payload: hello, Size: 5},
		tree,
		Manifest{Root: tree.Digest(), Trees: map[digest.Digest]Tree{tree.Digest(): tree}},
		Layer{Manifest: tree.Digest()},
		Platform{Stack: []digest.Digest{tree.Digest(), hello}},
		Mask{},
	}

	for _, o := range cases {
		encoded := EncodeBytes(o)
		decoded, err := DecodeBytes(encoded)
		require.NoError(t, err)
		assert.Equal(t, Digest(o), Digest(decoded))
		assert.Equal(t, encoded, EncodeBytes(decoded))
	}
}

func TestTreeRejectsDuplicateNames(t *testing.T) {
	_, err := NewTree([]Entry{
		{Name: "a", Kind: EntryBlob},
		{Name: "a", Kind: EntryBlob},
	})
	assert.Error(t, err)
}

func TestBlobDigestIsPayloadDigest(t *testing.T) {
	payload := digest.FromBytes([]byte("payload"))
	b := Blob{Payload: payload, Size: 7}
	assert.Equal(t, payload, Digest(b))
}

func TestManifestChildrenIncludesBlobsAndSubtrees(t *testing.T) {
	leafBlob := digest.FromBytes([]byte("leaf"))
	leafTree, err := NewTree([]Entry{{Name: "f", Kind: EntryBlob, Object: leafBlob}})
	require.NoError(t, err)

	rootTree, err := NewTree([]Entry{{Name: "sub", Kind: EntryTree, Object: leafTree.Digest()}})
	require.NoError(t, err)

	m := Manifest{
		Root: rootTree.Digest(),
		Trees: map[digest.Digest]Tree{
			rootTree.Digest(): rootTree,
			leafTree.Digest(): leafTree,
		},
	}

	children := m.Children()
	assert.Contains(t, children, rootTree.Digest())
	assert.Contains(t, children, leafTree.Digest())
	assert.Contains(t, children, leafBlob)
}

func TestWalkObjectsVisitsOnce(t *testing.T) {
	store := NewMemoryStore()

	leafBlob := digest.FromBytes([]byte("leaf"))
	leafTree, err := NewTree([]Entry{{Name: "f", Kind: EntryBlob, Object: leafBlob}})
	require.NoError(t, err)
	rootTree, err := NewTree([]Entry{
		{Name: "a", Kind: EntryTree, Object: leafTree.Digest()},
		{Name: "b", Kind: EntryTree, Object: leafTree.Digest()}, // shared subtree
	})
	require.NoError(t, err)

	m := Manifest{
		Root: rootTree.Digest(),
		Trees: map[digest.Digest]Tree{
			rootTree.Digest(): rootTree,
			leafTree.Digest(): leafTree,
		},
	}
	layer := Layer{Manifest: Digest(m)}

	_, err = store.WriteObject(m)
	require.NoError(t, err)
	_, err = store.WriteObject(layer)
	require.NoError(t, err)

	var visited []digest.Digest
	err = WalkObjects(store, Digest(layer), func(d digest.Digest, o Object) error {
		visited = append(visited, d)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, visited, 2) // layer, manifest (no object stored per-subtree)
}

func TestFindDigestsPartial(t *testing.T) {
	store := NewMemoryStore()
	b := Blob{Payload: digest.FromBytes([]byte("x")), Size: 1}
	d, err := store.WriteObject(b)
	require.NoError(t, err)

	p, err := digest.ParsePartial(d.String()[:4])
	require.NoError(t, err)

	matches, err := store.FindDigests(p)
	require.NoError(t, err)
	assert.Equal(t, []digest.Digest{d}, matches)
}

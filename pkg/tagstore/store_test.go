package tagstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spkdev/spk/pkg/digest"
)

func TestAppendAndReadLatest(t *testing.T) {
	s := New(t.TempDir())
	sp := Spec{Org: "spi", Name: "main"}

	d1 := digest.FromBytes([]byte("v1"))
	_, err := s.Append(sp, d1, "alice")
	require.NoError(t, err)

	d2 := digest.FromBytes([]byte("v2"))
	_, err = s.Append(sp, d2, "alice")
	require.NoError(t, err)

	latest, err := s.Read(sp)
	require.NoError(t, err)
	assert.Equal(t, d2, latest.Target)

	prior, err := s.Read(Spec{Org: "spi", Name: "main", Version: 1})
	require.NoError(t, err)
	assert.Equal(t, d1, prior.Target)
}

func TestReadUnknownReference(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Read(Spec{Name: "nope"})
	assert.IsType(t, ErrUnknownReference{}, err)
}

func TestParentChainLinks(t *testing.T) {
	s := New(t.TempDir())
	sp := Spec{Name: "chain"}

	first, err := s.Append(sp, digest.FromBytes([]byte("a")), "bob")
	require.NoError(t, err)
	assert.True(t, first.Parent.IsNil())

	second, err := s.Append(sp, digest.FromBytes([]byte("b")), "bob")
	require.NoError(t, err)
	assert.Equal(t, Digest(first), second.Parent)
}

func TestRemoveVersionReplaysRemaining(t *testing.T) {
	s := New(t.TempDir())
	sp := Spec{Name: "prune"}

	s.Append(sp, digest.FromBytes([]byte("1")), "u")
	s.Append(sp, digest.FromBytes([]byte("2")), "u")
	s.Append(sp, digest.FromBytes([]byte("3")), "u")

	err := s.RemoveVersion(Spec{Name: "prune", Version: 1}) // remove the middle entry
	require.NoError(t, err)

	history, err := s.History(sp)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, digest.FromBytes([]byte("3")), history[0].Target)
	assert.Equal(t, digest.FromBytes([]byte("1")), history[1].Target)
}

func TestRemoveStreamPrunesEmptyDirs(t *testing.T) {
	s := New(t.TempDir())
	sp := Spec{Org: "a/b", Name: "c"}
	s.Append(sp, digest.FromBytes([]byte("x")), "u")

	err := s.RemoveStream(sp)
	require.NoError(t, err)

	_, err = s.Read(sp)
	assert.IsType(t, ErrUnknownReference{}, err)
}

func TestListAndFindTags(t *testing.T) {
	s := New(t.TempDir())
	d := digest.FromBytes([]byte("shared"))
	s.Append(Spec{Org: "spi", Name: "main"}, d, "u")
	s.Append(Spec{Org: "spi", Name: "dev"}, d, "u")
	s.Append(Spec{Org: "spi", Name: "other"}, digest.FromBytes([]byte("x")), "u")

	all, err := s.ListTags("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	matches, err := s.FindTags(d)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"spi/main", "spi/dev"}, matches)
}

func TestInvalidTagName(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Append(Spec{Name: "-bad"}, digest.Nil, "u")
	assert.Error(t, err)
}

func TestParseSpecRoundTrip(t *testing.T) {
	sp, err := ParseSpec("spi/main~2")
	require.NoError(t, err)
	assert.Equal(t, Spec{Org: "spi", Name: "main", Version: 2}, sp)
	assert.Equal(t, "spi/main~2", sp.String())

	sp2, err := ParseSpec("main")
	require.NoError(t, err)
	assert.Equal(t, Spec{Name: "main"}, sp2)
	assert.Equal(t, "main", sp2.String())
}

package digest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	d := FromBytes([]byte("hello"))
	s := d.String()

	got, err := Parse(s)
	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("not-a-digest!!")
	require.Error(t, err)
	var invalid ErrInvalidDigest
	assert.ErrorAs(t, err, &invalid)
}

func TestHasherForwardsAndDigests(t *testing.T) {
	var buf bytes.Buffer
	hs := NewHasher(&buf)

	_, err := hs.Write([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, "hello", buf.String())
	assert.Equal(t, FromBytes([]byte("hello")), hs.Digest())
}

func TestResolvePartial(t *testing.T) {
	d1 := FromBytes([]byte("a"))
	d2 := FromBytes([]byte("b"))
	all := []Digest{d1, d2}

	p, err := ParsePartial(d1.String()[:4])
	require.NoError(t, err)

	got, res := Resolve(p, all)
	require.Equal(t, ResolveOne, res)
	assert.Equal(t, d1, got)
}

func TestEmptyPartialIsUnknownAndRejected(t *testing.T) {
	d1 := FromBytes([]byte("a"))

	_, res := Resolve(Partial{raw: ""}, []Digest{d1})
	assert.Equal(t, ResolveUnknown, res)

	_, err := ParsePartial("")
	require.Error(t, err)
}

func TestResolveOrErrorReturnsTheSoleMatch(t *testing.T) {
	d1 := FromBytes([]byte("a"))
	d2 := FromBytes([]byte("b"))

	p, err := ParsePartial(d1.String()[:4])
	require.NoError(t, err)

	got, err := ResolveOrError(p, []Digest{d1, d2})
	require.NoError(t, err)
	assert.Equal(t, d1, got)
}

func TestResolveOrErrorReportsAmbiguity(t *testing.T) {
	// Share the same leading byte (and so the same leading base32
	// characters) but differ further in, guaranteeing one shared
	// prefix resolves to both.
	var d1, d2 Digest
	d1[0], d2[0] = 0xAB, 0xAB
	d1[Size-1], d2[Size-1] = 0x01, 0x02

	prefix := d1.String()[:4]
	require.Equal(t, prefix, d2.String()[:4])

	p, err := ParsePartial(prefix)
	require.NoError(t, err)

	_, err = ResolveOrError(p, []Digest{d1, d2})
	require.Error(t, err)
	var ambiguous ErrAmbiguousReference
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.Candidates, 2)
}

func TestResolveOrErrorReportsUnknown(t *testing.T) {
	d1 := FromBytes([]byte("a"))

	p, err := ParsePartial("ZZZZZZZZ")
	require.NoError(t, err)

	_, err = ResolveOrError(p, []Digest{d1})
	require.Error(t, err)
	var invalid ErrInvalidDigest
	assert.ErrorAs(t, err, &invalid)
}

package payload

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/storagedriver/inmemory"
)

func TestWriteThenOpenRoundTrip(t *testing.T) {
	s := New(inmemory.New())

	want := []byte("hello payload store")
	d, err := s.Write(bytes.NewReader(want))
	require.NoError(t, err)
	assert.Equal(t, digest.FromBytes(want), d)

	ok, err := s.Has(d)
	require.NoError(t, err)
	assert.True(t, ok)

	r, err := s.Open(d)
	require.NoError(t, err)
	defer r.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	assert.Equal(t, want, buf.Bytes())
}

func TestOpenUnknownDigest(t *testing.T) {
	s := New(inmemory.New())
	_, err := s.Open(digest.FromBytes([]byte("never written")))
	assert.IsType(t, ErrUnknownPayload{}, err)
}

func TestWriteIsIdempotentUnderConcurrentDigest(t *testing.T) {
	s := New(inmemory.New())
	content := []byte(strings.Repeat("x", 4096))

	d1, err := s.Write(bytes.NewReader(content))
	require.NoError(t, err)
	d2, err := s.Write(bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, d1, d2)

	ok, err := s.Has(d1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWriteKnownDigestMismatch(t *testing.T) {
	s := New(inmemory.New())
	err := s.WriteKnownDigest(bytes.NewReader([]byte("actual")), digest.FromBytes([]byte("expected")))
	assert.Error(t, err)
}

func TestRemoveAbsentIsNotError(t *testing.T) {
	s := New(inmemory.New())
	err := s.Remove(digest.FromBytes([]byte("nothing here")))
	assert.NoError(t, err)
}

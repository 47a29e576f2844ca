package repository

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/payload"
)

func TestPayloadFallbackRepositoryOpenPayloadHealsFromSecondary(t *testing.T) {
	primary := NewMemoryRepository("primary")
	secondary := NewMemoryRepository("secondary")

	d, err := secondary.Payloads().Write(strings.NewReader("hello world"))
	require.NoError(t, err)

	fb := NewPayloadFallbackRepository(primary, secondary)

	has, err := primary.Payloads().Has(d)
	require.NoError(t, err)
	assert.False(t, has)

	r, err := fb.OpenPayload(d)
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	r.Close()
	assert.Equal(t, "hello world", string(body))

	has, err = primary.Payloads().Has(d)
	require.NoError(t, err)
	assert.True(t, has, "heal should have copied the payload into primary")
}

func TestPayloadFallbackRepositoryOpenPayloadFailsWhenNoSecondaryHasIt(t *testing.T) {
	primary := NewMemoryRepository("primary")
	fb := NewPayloadFallbackRepository(primary)

	d, err := NewMemoryRepository("scratch").Payloads().Write(strings.NewReader("nope"))
	require.NoError(t, err)

	_, err = fb.OpenPayload(d)
	assert.IsType(t, payload.ErrUnknownPayload{}, err)
}

func TestPayloadFallbackRepositoryReadObjectHealsBlobPayload(t *testing.T) {
	primary := NewMemoryRepository("primary")
	secondary := NewMemoryRepository("secondary")

	d, err := secondary.Payloads().Write(strings.NewReader("hello world"))
	require.NoError(t, err)
	blob := graph.Blob{Payload: d, Size: 11}
	_, err = primary.Objects().WriteObject(blob)
	require.NoError(t, err)

	fb := NewPayloadFallbackRepository(primary, secondary)

	obj, err := fb.ReadObject(d)
	require.NoError(t, err)
	assert.Equal(t, graph.KindBlob, obj.Kind())

	has, err := primary.Payloads().Has(d)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestPayloadFallbackRepositoryReadObjectFailsWhenHealImpossible(t *testing.T) {
	primary := NewMemoryRepository("primary")

	d, err := NewMemoryRepository("scratch").Payloads().Write(strings.NewReader("orphan"))
	require.NoError(t, err)
	blob := graph.Blob{Payload: d, Size: 6}
	_, err = primary.Objects().WriteObject(blob)
	require.NoError(t, err)

	fb := NewPayloadFallbackRepository(primary)

	_, err = fb.ReadObject(d)
	assert.IsType(t, ErrObjectMissingPayload{}, err)
}

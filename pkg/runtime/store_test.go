package runtime

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spkdev/spk/pkg/digest"
)

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	r := New("dev", []digest.Digest{digest.FromBytes([]byte("layer"))}, Config{
		MountBackend: OverlayFsWithRenders,
		Durable:      true,
	})
	require.NoError(t, r.Transition(Initialized))
	require.NoError(t, store.Save(r))

	loaded, err := store.Load("dev")
	require.NoError(t, err)
	assert.Equal(t, r.Name, loaded.Name)
	assert.Equal(t, r.Status.State, loaded.Status.State)
	assert.Equal(t, r.Config, loaded.Config)
	assert.Equal(t, filepath.Join(store.root, "dev"), loaded.RootDir)
}

func TestStoreLoadUnknownRuntime(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("missing")
	assert.Equal(t, ErrUnknownRuntime{Name: "missing"}, err)
}

func TestStoreListReturnsOnlySavedRuntimes(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(New("a", nil, Config{})))
	require.NoError(t, store.Save(New("b", nil, Config{})))

	names, err := store.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestStoreRemoveIsIdempotent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(New("dev", nil, Config{})))
	require.NoError(t, store.Remove("dev"))
	require.NoError(t, store.Remove("dev"))

	_, err = store.Load("dev")
	assert.Equal(t, ErrUnknownRuntime{Name: "dev"}, err)
}

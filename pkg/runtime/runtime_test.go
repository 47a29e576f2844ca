package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRuntimeStartsCreated(t *testing.T) {
	r := New("dev", nil, Config{MountBackend: OverlayFsWithRenders})
	assert.Equal(t, Created, r.Status.State)
}

func TestTransitionFollowsLifecycle(t *testing.T) {
	r := New("dev", nil, Config{})
	require.NoError(t, r.Transition(Initialized))
	require.NoError(t, r.Transition(Running))
	require.NoError(t, r.Transition(Remounting))
	require.NoError(t, r.Transition(Running))
	require.NoError(t, r.Transition(Exiting))
	require.NoError(t, r.Transition(Deleted))
	assert.Equal(t, Deleted, r.Status.State)
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	r := New("dev", nil, Config{})
	err := r.Transition(Running)
	assert.Equal(t, ErrInvalidTransition{From: Created, To: Running}, err)
}

func TestTransitionCannotSkipExitingToDeleted(t *testing.T) {
	r := New("dev", nil, Config{})
	require.NoError(t, r.Transition(Initialized))
	err := r.Transition(Deleted)
	assert.Equal(t, ErrInvalidTransition{From: Initialized, To: Deleted}, err)
}

func TestShouldDeleteHonorsDurable(t *testing.T) {
	durable := New("dev", nil, Config{Durable: true})
	ephemeral := New("dev2", nil, Config{Durable: false})
	assert.False(t, durable.ShouldDelete())
	assert.True(t, ephemeral.ShouldDelete())
}

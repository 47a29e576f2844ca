package runtime

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spkdev/spk/pkg/digest"
)

// fakeProcessTree is a small, explicit pid -> parent map for tests.
type fakeProcessTree map[int]int

func (f fakeProcessTree) Parent(pid int) (int, error) {
	return f[pid], nil
}

func TestRouterResolvesThroughAncestry(t *testing.T) {
	tree := fakeProcessTree{200: 100, 300: 200}
	router := NewRouter(tree)
	router.Register(100, EnvSpec{RuntimeName: "dev"})

	spec, err := router.Resolve(300)
	require.NoError(t, err)
	assert.Equal(t, "dev", spec.RuntimeName)
}

func TestRouterResolvesRootItself(t *testing.T) {
	router := NewRouter(fakeProcessTree{})
	router.Register(42, EnvSpec{RuntimeName: "dev"})

	spec, err := router.Resolve(42)
	require.NoError(t, err)
	assert.Equal(t, "dev", spec.RuntimeName)
}

func TestRouterReturnsErrNoMatchingRoot(t *testing.T) {
	router := NewRouter(fakeProcessTree{5: 1})
	_, err := router.Resolve(5)
	assert.Equal(t, ErrNoMatchingRoot{PID: 5}, err)
}

func TestRouterUnregisterRemovesBinding(t *testing.T) {
	router := NewRouter(fakeProcessTree{})
	router.Register(42, EnvSpec{RuntimeName: "dev"})
	router.Unregister(42)

	_, err := router.Resolve(42)
	assert.Equal(t, ErrNoMatchingRoot{PID: 42}, err)
}

type fakeUnmounter struct {
	unmountErr      error
	forceUnmountErr error
	forceCalled     bool
}

func (f *fakeUnmounter) Unmount() error { return f.unmountErr }
func (f *fakeUnmounter) ForceUnmount() error {
	f.forceCalled = true
	return f.forceUnmountErr
}

func TestControlPlaneMountRegistersRoot(t *testing.T) {
	router := NewRouter(fakeProcessTree{})
	cp := NewControlPlane(router, nil)

	body, _ := json.Marshal(mountRequest{
		RootPID: 7,
		Env:     EnvSpec{RuntimeName: "dev", Stack: []digest.Digest{digest.FromBytes([]byte("x"))}},
	})
	req := httptest.NewRequest(http.MethodPost, "/mount", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	cp.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	spec, err := router.Resolve(7)
	require.NoError(t, err)
	assert.Equal(t, "dev", spec.RuntimeName)
}

func TestControlPlaneShutdownUnregistersAndUnmounts(t *testing.T) {
	router := NewRouter(fakeProcessTree{})
	router.Register(7, EnvSpec{RuntimeName: "dev"})
	unmounter := &fakeUnmounter{}
	cp := NewControlPlane(router, unmounter)

	body, _ := json.Marshal(shutdownRequest{RootPID: 7})
	req := httptest.NewRequest(http.MethodPost, "/shutdown", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	cp.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err := router.Resolve(7)
	assert.Equal(t, ErrNoMatchingRoot{PID: 7}, err)
	assert.False(t, unmounter.forceCalled)
}

func TestControlPlaneShutdownFallsBackToForceUnmount(t *testing.T) {
	router := NewRouter(fakeProcessTree{})
	router.Register(7, EnvSpec{RuntimeName: "dev"})
	unmounter := &fakeUnmounter{unmountErr: assertErr("busy")}
	cp := NewControlPlane(router, unmounter)

	body, _ := json.Marshal(shutdownRequest{RootPID: 7})
	req := httptest.NewRequest(http.MethodPost, "/shutdown", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	cp.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, unmounter.forceCalled)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

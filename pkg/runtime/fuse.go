package runtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/spkdev/spk/pkg/digest"
)

// EnvSpec is what a FUSE-backed environment presents: the platform
// stack a process tree should see, and whether its upper layer is
// writable.
type EnvSpec struct {
	RuntimeName string          `json:"runtime_name"`
	Stack       []digest.Digest `json:"stack"`
	Editable    bool            `json:"editable"`
}

// ProcessTree resolves a caller PID's ancestor chain, letting the
// Router climb from a kernel request's originating process up to a
// registered root_pid.
type ProcessTree interface {
	// Parent returns pid's parent PID, or 0 if pid has no parent (PID 1
	// or the PID is unknown).
	Parent(pid int) (int, error)
}

// Router maps a registered root_pid to the EnvSpec that process tree
// should see, resolving any descendant's PID by walking up through
// ProcessTree, via a Router mapping root_pid to EnvSpec.
type Router struct {
	tree ProcessTree

	mu    sync.RWMutex
	roots map[int]EnvSpec
}

// NewRouter returns an empty Router resolving ancestry through tree.
func NewRouter(tree ProcessTree) *Router {
	return &Router{tree: tree, roots: make(map[int]EnvSpec)}
}

// ErrNoMatchingRoot is returned when a caller's process tree contains
// no registered root_pid.
type ErrNoMatchingRoot struct {
	PID int
}

func (e ErrNoMatchingRoot) Error() string {
	return fmt.Sprintf("runtime: no registered environment for pid %d or its ancestors", e.PID)
}

// Register binds rootPID to spec, implementing the Mount RPC.
func (r *Router) Register(rootPID int, spec EnvSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roots[rootPID] = spec
}

// Unregister removes rootPID's binding, implementing the Shutdown RPC.
func (r *Router) Unregister(rootPID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.roots, rootPID)
}

// Resolve walks callerPID's ancestor chain until it finds a registered
// root_pid, returning that root's EnvSpec.
func (r *Router) Resolve(callerPID int) (EnvSpec, error) {
	pid := callerPID
	seen := map[int]bool{}
	for pid != 0 && !seen[pid] {
		r.mu.RLock()
		spec, ok := r.roots[pid]
		r.mu.RUnlock()
		if ok {
			return spec, nil
		}
		seen[pid] = true
		parent, err := r.tree.Parent(pid)
		if err != nil {
			return EnvSpec{}, err
		}
		pid = parent
	}
	return EnvSpec{}, ErrNoMatchingRoot{PID: callerPID}
}

// mountRequest/shutdownRequest are the Mount/Shutdown RPC's wire
// bodies.
type mountRequest struct {
	RootPID int     `json:"root_pid"`
	Env     EnvSpec `json:"env_spec"`
}

type shutdownRequest struct {
	RootPID int `json:"root_pid"`
}

// Unmounter unmounts the FUSE filesystem backing a Router, falling
// back to a forced unmount when a plain unmount fails. Satisfied by a
// thin wrapper over the jacobsa/fuse server instance actually serving
// kernel requests; that server's own request-handling loop is outside
// this control plane's concern.
type Unmounter interface {
	Unmount() error
	ForceUnmount() error
}

// ControlPlane is the FUSE service's HTTP control surface: Mount and
// Shutdown RPCs over a Router, built on gorilla/mux routing with
// gorilla/handlers recovery/logging middleware.
type ControlPlane struct {
	router    *mux.Router
	envRouter *Router
	unmounter Unmounter
}

// NewControlPlane wires Mount/Shutdown endpoints over envRouter.
func NewControlPlane(envRouter *Router, unmounter Unmounter) *ControlPlane {
	cp := &ControlPlane{
		router:    mux.NewRouter(),
		envRouter: envRouter,
		unmounter: unmounter,
	}
	cp.router.HandleFunc("/mount", cp.handleMount).Methods(http.MethodPost)
	cp.router.HandleFunc("/shutdown", cp.handleShutdown).Methods(http.MethodPost)
	return cp
}

// Handler returns the control plane wrapped with recovery and access
// logging middleware, ready to be served.
func (cp *ControlPlane) Handler() http.Handler {
	return handlers.RecoveryHandler()(handlers.CombinedLoggingHandler(loggingWriter{}, cp.router))
}

func (cp *ControlPlane) handleMount(w http.ResponseWriter, req *http.Request) {
	var body mountRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cp.envRouter.Register(body.RootPID, body.Env)
	w.WriteHeader(http.StatusNoContent)
}

func (cp *ControlPlane) handleShutdown(w http.ResponseWriter, req *http.Request) {
	var body shutdownRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cp.envRouter.Unregister(body.RootPID)

	if cp.unmounter != nil {
		if err := cp.unmounter.Unmount(); err != nil {
			if ferr := cp.unmounter.ForceUnmount(); ferr != nil {
				http.Error(w, ferr.Error(), http.StatusInternalServerError)
				return
			}
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// loggingWriter discards access logs; the control plane's access log
// is not forwarded anywhere else.
type loggingWriter struct{}

func (loggingWriter) Write(p []byte) (int, error) { return len(p), nil }

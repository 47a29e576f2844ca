// Package runtime implements the Runtime document model and lifecycle
// state machine: a persisted description of one active
// environment, its mount backend, and the platform stack it was
// entered with.
package runtime

import (
	"fmt"

	"github.com/spkdev/spk/pkg/digest"
)

// MountBackend selects how a Runtime's filesystem view is constructed.
type MountBackend string

const (
	OverlayFsWithRenders MountBackend = "OverlayFsWithRenders"
	OverlayFsWithFuse    MountBackend = "OverlayFsWithFuse"
	FuseOnly             MountBackend = "FuseOnly"
	WinFsp               MountBackend = "WinFsp"
)

// State is one point in a Runtime's lifecycle: Created, Initialized,
// Running, Remounting (a transient sub-state of Running), Exiting, and
// Deleted — the last step skipped for durable runtimes.
type State string

const (
	Created     State = "Created"
	Initialized State = "Initialized"
	Running     State = "Running"
	Remounting  State = "Remounting"
	Exiting     State = "Exiting"
	Deleted     State = "Deleted"
)

// ErrInvalidTransition is returned when a Runtime's state does not
// permit the attempted move.
type ErrInvalidTransition struct {
	From, To State
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("runtime: invalid transition %s -> %s", e.From, e.To)
}

// validTransitions enumerates the state machine's edges. Remounting
// always returns to Running (never forward to Exiting directly) so a
// failed remount leaves the runtime's prior mounts live for retry or
// teardown, never half-applied.
var validTransitions = map[State][]State{
	Created:     {Initialized, Exiting},
	Initialized: {Running, Exiting},
	Running:     {Remounting, Exiting},
	Remounting:  {Running},
	Exiting:     {Deleted},
}

// CanTransition reports whether moving from `from` to `to` is legal.
func CanTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Status is a Runtime's live process/mount state.
type Status struct {
	State    State           `yaml:"state"`
	OwnerPID int             `yaml:"owner_pid"`
	Editable bool            `yaml:"editable"`
	Command  []string        `yaml:"command"`
	Stack    []digest.Digest `yaml:"stack"`
}

// Config is a Runtime's user-controlled settings, fixed at creation
// except for fields Reconfigure explicitly allows changing across a
// remount.
type Config struct {
	MountBackend          MountBackend `yaml:"mount_backend"`
	MountNamespace        string       `yaml:"mount_namespace,omitempty"`
	SecondaryRepositories []string     `yaml:"secondary_repositories,omitempty"`
	Durable               bool         `yaml:"durable"`
}

// Runtime is one environment: the document persisted by Store and
// mutated by the mount/monitor machinery in this package.
type Runtime struct {
	Name   string `yaml:"name"`
	Status Status `yaml:"status"`
	Config Config `yaml:"config"`

	// RootDir is the runtime's private working area (tmpfs mount
	// point, upperdir, workdir, and for FUSE backends the Router
	// registration's scratch state). Not persisted; recomputed from
	// Name by the owning Store on load.
	RootDir string `yaml:"-"`
}

// New returns a freshly Created Runtime over stack, configured per cfg.
func New(name string, stack []digest.Digest, cfg Config) *Runtime {
	return &Runtime{
		Name: name,
		Status: Status{
			State: Created,
			Stack: stack,
		},
		Config: cfg,
	}
}

// Transition moves the runtime to `to`, erroring if the edge is not
// legal from its current state.
func (r *Runtime) Transition(to State) error {
	if !CanTransition(r.Status.State, to) {
		return ErrInvalidTransition{From: r.Status.State, To: to}
	}
	r.Status.State = to
	return nil
}

// Editable reports whether the runtime's upper directory may be
// written to.
func (r *Runtime) Editable() bool { return r.Status.Editable }

// ShouldDelete reports whether tearing down a non-durable runtime
// should also remove its persisted document.
func (r *Runtime) ShouldDelete() bool {
	return !r.Config.Durable
}

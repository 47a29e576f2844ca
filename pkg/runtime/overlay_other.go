//go:build !linux

package runtime

import (
	"errors"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
)

// ErrOverlayUnsupported is returned by OverlayMounter on platforms with
// no native overlayfs: the overlay path is Linux-only; macOS/Windows
// use the FUSE/WinFsp backends instead.
var ErrOverlayUnsupported = errors.New("runtime: overlayfs mount backend is only available on linux")

// Resolver resolves digests to on-disk render directories, satisfied
// by *render.Store.
type Resolver interface {
	Render(d digest.Digest, m graph.Manifest) (string, error)
}

// ManifestReader fetches a Layer's Manifest from the object graph
// backing a runtime's platform stack. Satisfied directly by
// graph.Store.
type ManifestReader interface {
	ReadObject(d digest.Digest) (graph.Object, error)
}

// OverlayMounter is a non-functional stand-in on non-Linux platforms;
// every method returns ErrOverlayUnsupported so callers fail fast
// rather than silently no-op.
type OverlayMounter struct{}

func NewOverlayMounter(runtimeDir string) *OverlayMounter { return &OverlayMounter{} }

// UpperDir returns the empty string; this platform has no overlay mount.
func (m *OverlayMounter) UpperDir() string { return "" }

// MergedDir returns the empty string; this platform has no overlay mount.
func (m *OverlayMounter) MergedDir() string { return "" }

func (m *OverlayMounter) Mount([]digest.Digest, Resolver, ManifestReader, bool) error {
	return ErrOverlayUnsupported
}

func (m *OverlayMounter) Remount([]digest.Digest, Resolver, ManifestReader, bool) error {
	return ErrOverlayUnsupported
}

func (m *OverlayMounter) Unmount() error { return ErrOverlayUnsupported }

// EnterNamespace is a no-op outside Linux; there is no mount namespace
// concept to enter.
func EnterNamespace() error { return nil }

// DropPrivileges is a no-op outside Linux; privilege separation for
// the FUSE/WinFsp backends is handled by their own service process.
func DropPrivileges(uid, gid int) error { return nil }

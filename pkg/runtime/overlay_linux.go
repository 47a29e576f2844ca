//go:build linux

package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/moby/sys/mount"
	"github.com/moby/sys/mountinfo"
	"golang.org/x/sys/unix"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
)

// tmpfsSizeEnv overrides the default tmpfs size for a runtime's mount
// point.
const tmpfsSizeEnv = "SPFS_FILESYSTEM_TMPFS_SIZE"

const defaultTmpfsSize = "1G"

// OverlayMounter drives the Linux overlayfs path (
// "Overlayfs path (Linux)"). One Mounter is used per runtime entry;
// its methods must run on the calling goroutine's locked OS thread
// (see EnterNamespace).
type OverlayMounter struct {
	runtimeDir string // tmpfs mount point: <runtimeDir>/upper, /work, /merged
}

// NewOverlayMounter returns a mounter whose tmpfs lives at runtimeDir.
func NewOverlayMounter(runtimeDir string) *OverlayMounter {
	return &OverlayMounter{runtimeDir: runtimeDir}
}

// UpperDir returns the mounter's upper directory, the writable layer a
// build script's changes land in.
func (m *OverlayMounter) UpperDir() string {
	return filepath.Join(m.runtimeDir, "upper")
}

// MergedDir returns the mounter's merged view, the directory a build
// script or interactive shell is run in.
func (m *OverlayMounter) MergedDir() string {
	return filepath.Join(m.runtimeDir, "merged")
}

// EnterNamespace locks the calling goroutine to its current OS thread
// and unshares a new mount namespace, so every subsequent mount
// syscall from this mounter is private to this goroutine and does not
// leak into the host or other runtimes. Callers must not unlock the
// thread until the runtime's mounts are torn down.
func EnterNamespace() error {
	runtime.LockOSThread()
	if err := unix.Unshare(unix.CLONE_NEWNS); err != nil {
		runtime.UnlockOSThread()
		return fmt.Errorf("runtime: unshare mount namespace: %w", err)
	}
	return nil
}

// privatizeMounts marks every existing mount private, so later mount
// and unmount operations in this namespace never propagate to the
// host's mount table.
func privatizeMounts() error {
	infos, err := mountinfo.GetMounts(nil)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if err := mount.MakeRPrivate(info.Mountpoint); err != nil {
			// A mountpoint that vanished or that refuses privatization
			// (a handful of pseudo-filesystems do) is not fatal; the
			// overlay mount below only needs its own tree private.
			continue
		}
	}
	return nil
}

// Resolver resolves digests to on-disk render directories, satisfied
// by *render.Store. Kept as a narrow interface so this package does
// not import pkg/render's materialization machinery.
type Resolver interface {
	Render(d digest.Digest, m graph.Manifest) (string, error)
}

// ManifestReader fetches a Layer's Manifest from the object graph
// backing a runtime's platform stack. Satisfied directly by
// graph.Store; the Manifest type assertion lives here so callers can
// pass a repository's Objects() store as-is.
type ManifestReader interface {
	ReadObject(d digest.Digest) (graph.Object, error)
}

func readManifest(m ManifestReader, d digest.Digest) (graph.Manifest, error) {
	obj, err := m.ReadObject(d)
	if err != nil {
		return graph.Manifest{}, err
	}
	manifest, ok := obj.(graph.Manifest)
	if !ok {
		return graph.Manifest{}, fmt.Errorf("runtime: object %s is a %s, not a manifest", d, obj.Kind())
	}
	return manifest, nil
}

// Mount materializes stack's renders (lowest layer first) and mounts
// the overlay, applying the whiteout mask pass ( steps
// "Mount a tmpfs ... Mount overlayfs ... Apply a mask pass").
func (m *OverlayMounter) Mount(stack []digest.Digest, resolver Resolver, manifests ManifestReader, editable bool) error {
	if err := privatizeMounts(); err != nil {
		return fmt.Errorf("runtime: privatize mounts: %w", err)
	}

	if err := os.MkdirAll(m.runtimeDir, 0o755); err != nil {
		return err
	}

	size := os.Getenv(tmpfsSizeEnv)
	if size == "" {
		size = defaultTmpfsSize
	}
	if err := unix.Mount("tmpfs", m.runtimeDir, "tmpfs", 0, "size="+size); err != nil {
		return fmt.Errorf("runtime: mount tmpfs: %w", err)
	}

	upper := filepath.Join(m.runtimeDir, "upper")
	work := filepath.Join(m.runtimeDir, "work")
	merged := filepath.Join(m.runtimeDir, "merged")
	for _, d := range []string{upper, work, merged} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}

	lowerdirs, lastManifest, err := m.renderStack(stack, resolver, manifests)
	if err != nil {
		return err
	}
	if len(lowerdirs) == 0 {
		return fmt.Errorf("runtime: empty platform stack")
	}

	data := fmt.Sprintf("lowerdir=%s,upperdir=%s,workdir=%s", strings.Join(lowerdirs, ":"), upper, work)
	if err := unix.Mount("overlay", merged, "overlay", 0, data); err != nil {
		return fmt.Errorf("runtime: mount overlay: %w", err)
	}

	if lastManifest != nil {
		if err := applyMaskPass(upper, *lastManifest); err != nil {
			return err
		}
	}

	return nil
}

// renderStack renders every Layer digest in stack (ordered base-first,
// matching graph.Platform.Stack) to a directory, returning lowerdirs in
// overlayfs priority order — highest (last-applied) layer first, since
// overlayfs's lowerdir list shadows later entries with earlier ones —
// plus the topmost layer's manifest for the mask pass.
func (m *OverlayMounter) renderStack(stack []digest.Digest, resolver Resolver, manifests ManifestReader) ([]string, *graph.Manifest, error) {
	lowerdirs := make([]string, len(stack))
	var top *graph.Manifest
	for i, layerDigest := range stack {
		layerObj, err := manifests.ReadObject(layerDigest)
		if err != nil {
			return nil, nil, err
		}
		layer, ok := layerObj.(graph.Layer)
		if !ok {
			return nil, nil, fmt.Errorf("runtime: object %s is a %s, not a layer", layerDigest, layerObj.Kind())
		}
		manifest, err := readManifest(manifests, layer.Manifest)
		if err != nil {
			return nil, nil, err
		}
		dir, err := resolver.Render(layer.Manifest, manifest)
		if err != nil {
			return nil, nil, err
		}
		// Reverse position: stack[len-1] (topmost) becomes lowerdirs[0].
		lowerdirs[len(stack)-1-i] = dir
		if i == len(stack)-1 {
			top = &manifest
		}
	}
	return lowerdirs, top, nil
}

// applyMaskPass creates a character device (mode 0, rdev 0) in upper
// for every path the top layer's manifest marks as a whiteout — the
// overlayfs convention for "this path is deleted in a higher layer"
//.
func applyMaskPass(upper string, m graph.Manifest) error {
	root, ok := m.RootTree()
	if !ok {
		return nil
	}
	var walk func(dir string, tree graph.Tree) error
	walk = func(dir string, tree graph.Tree) error {
		for _, e := range tree.Entries {
			path := filepath.Join(dir, e.Name)
			switch e.Kind {
			case graph.EntryMask:
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return err
				}
				if err := unix.Mknod(path, unix.S_IFCHR, 0); err != nil && !os.IsExist(err) {
					return err
				}
			case graph.EntryTree:
				sub, ok := m.Trees[e.Object]
				if !ok {
					continue
				}
				if err := walk(path, sub); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(upper, root)
}

// Unmount lazily detaches the overlay and tmpfs mounts, tolerating
// either already being gone.
func (m *OverlayMounter) Unmount() error {
	merged := filepath.Join(m.runtimeDir, "merged")
	if err := unix.Unmount(merged, unix.MNT_DETACH); err != nil && err != unix.EINVAL {
		return fmt.Errorf("runtime: unmount overlay: %w", err)
	}
	if err := unix.Unmount(m.runtimeDir, unix.MNT_DETACH); err != nil && err != unix.EINVAL {
		return fmt.Errorf("runtime: unmount tmpfs: %w", err)
	}
	return nil
}

// Remount tears down and rebuilds the overlay mount against a new
// platform stack, for a runtime whose config changed in place (
// "Remounting"). The tmpfs itself (and its upperdir contents) is
// preserved; only the overlay mount is replaced.
func (m *OverlayMounter) Remount(stack []digest.Digest, resolver Resolver, manifests ManifestReader, editable bool) error {
	merged := filepath.Join(m.runtimeDir, "merged")
	if err := unix.Unmount(merged, unix.MNT_DETACH); err != nil && err != unix.EINVAL {
		return fmt.Errorf("runtime: unmount overlay for remount: %w", err)
	}

	lowerdirs, lastManifest, err := m.renderStack(stack, resolver, manifests)
	if err != nil {
		return err
	}
	upper := filepath.Join(m.runtimeDir, "upper")
	work := filepath.Join(m.runtimeDir, "work")
	data := fmt.Sprintf("lowerdir=%s,upperdir=%s,workdir=%s", strings.Join(lowerdirs, ":"), upper, work)
	if err := unix.Mount("overlay", merged, "overlay", 0, data); err != nil {
		return fmt.Errorf("runtime: remount overlay: %w", err)
	}
	if lastManifest != nil {
		if err := applyMaskPass(upper, *lastManifest); err != nil {
			return err
		}
	}
	return nil
}

// DropPrivileges restores the calling thread's original uid/gid after
// the mount sequence, which must run as root.
func DropPrivileges(uid, gid int) error {
	if err := unix.Setresgid(gid, gid, gid); err != nil {
		return fmt.Errorf("runtime: drop group privileges: %w", err)
	}
	if err := unix.Setresuid(uid, uid, uid); err != nil {
		return fmt.Errorf("runtime: drop user privileges: %w", err)
	}
	return nil
}

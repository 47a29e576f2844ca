// Package render implements the Renderer: materializing
// a Manifest into an on-disk directory, cached by manifest digest, for
// the Runtime's mount backends to stack as overlayfs lowerdirs.
package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/payload"
)

// LinkMode selects how a Blob entry's payload is materialized into a
// rendered directory.
type LinkMode int

const (
	// Hardlink links the payload store's file directly into the
	// render, falling back to Copy when the payload store has no local
	// path (a non-filesystem backend) or the link fails (e.g. a
	// cross-device payload cache). Default.
	Hardlink LinkMode = iota
	// Copy always streams a fresh copy of the payload.
	Copy
)

// ErrNotRendered is returned when Remove is asked to purge a digest
// with no render on disk.
type ErrNotRendered struct {
	Digest digest.Digest
}

func (e ErrNotRendered) Error() string {
	return fmt.Sprintf("render: no render for manifest %s", e.Digest)
}

// Store renders Manifests to directories under root and caches
// completed renders by manifest digest.
type Store struct {
	root     string
	payloads *payload.Store
	linkMode LinkMode
}

// New returns a Store rooted at root, reading Blob payloads from
// payloads and materializing them per linkMode.
func New(root string, payloads *payload.Store, linkMode LinkMode) *Store {
	return &Store{root: root, payloads: payloads, linkMode: linkMode}
}

// renderedDir computes root/<first 2 chars>/<rest> from a manifest
// digest.
func (s *Store) renderedDir(d digest.Digest) string {
	str := d.String()
	return filepath.Join(s.root, str[:2], str[2:])
}

func (s *Store) completedMarker(d digest.Digest) string {
	return s.renderedDir(d) + ".completed"
}

// Render materializes m (whose digest is d) into its rendered
// directory, returning the path. A prior completed render for d is
// returned immediately without re-materializing.
func (s *Store) Render(d digest.Digest, m graph.Manifest) (string, error) {
	dest := s.renderedDir(d)
	marker := s.completedMarker(d)

	if _, err := os.Stat(marker); err == nil {
		return dest, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	work := filepath.Join(s.root, ".working-"+uuid.NewString())
	if err := os.MkdirAll(work, 0o755); err != nil {
		return "", err
	}

	if err := s.materialize(work, m); err != nil {
		os.RemoveAll(work)
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		os.RemoveAll(work)
		return "", err
	}
	if err := os.Rename(work, dest); err != nil {
		// A concurrent renderer may have already landed the same
		// digest; a genuine failure leaves dest absent.
		if _, staterr := os.Stat(dest); staterr != nil {
			os.RemoveAll(work)
			return "", err
		}
		os.RemoveAll(work)
	}

	f, err := os.OpenFile(marker, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return dest, nil
		}
		return "", err
	}
	f.Close()

	return dest, nil
}

// node records one materialized tree entry, so the mode-setting pass
// can walk every path in reverse after the whole tree exists on disk.
type node struct {
	path   string
	entry  graph.Entry
	linked bool // hardlinked to the payload store; shares its inode
}

// materialize walks m's trees under work, creating directories, blobs
// (hardlinked, copied, or recreated as symlinks), and skipping Mask
// entries entirely (a whiteout has no filesystem presence in a render;
// it only matters to the overlayfs mount pass). Once every entry
// exists, it walks the recorded nodes in reverse, applying each
// entry's stored permission bits — reverse order so a read-only parent
// directory's mode is set only after every descendant already exists
//.
func (s *Store) materialize(work string, m graph.Manifest) error {
	root, ok := m.RootTree()
	if !ok {
		return fmt.Errorf("render: manifest has no root tree")
	}

	var nodes []node
	var walk func(dir string, tree graph.Tree) error
	walk = func(dir string, tree graph.Tree) error {
		for _, e := range tree.Entries {
			path := filepath.Join(dir, e.Name)
			switch e.Kind {
			case graph.EntryMask:
				continue
			case graph.EntryTree:
				if err := os.Mkdir(path, 0o755); err != nil {
					return err
				}
				sub, ok := m.Trees[e.Object]
				if !ok {
					return fmt.Errorf("render: manifest missing subtree %s", e.Object)
				}
				nodes = append(nodes, node{path: path, entry: e})
				if err := walk(path, sub); err != nil {
					return err
				}
			case graph.EntryBlob:
				linked, err := s.materializeBlob(path, e)
				if err != nil {
					return err
				}
				nodes = append(nodes, node{path: path, entry: e, linked: linked})
			default:
				return fmt.Errorf("render: unrecognized entry kind for %s", e.Name)
			}
		}
		return nil
	}

	if err := walk(work, root); err != nil {
		return err
	}

	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if isSymlink(n.entry.Mode) {
			continue
		}
		if n.linked {
			// A hardlinked blob shares its inode with the payload
			// store (and any other render of the same digest);
			// chmod'ing it would strip the store's read-only bit and
			// could hand a different entry's permissions to every
			// other tree referencing this content. Leave its mode as
			// the payload store wrote it.
			continue
		}
		if err := os.Chmod(n.path, os.FileMode(n.entry.Mode&0o7777)); err != nil {
			return err
		}
	}
	return nil
}

func isSymlink(mode uint32) bool {
	return os.FileMode(mode)&os.ModeSymlink != 0
}

// materializeBlob writes e's content at path, reporting whether the
// result is hardlinked to the payload store. A symlink entry is
// recreated from its payload bytes (the link target), otherwise the
// payload is hardlinked in (when linkMode permits and the payload
// store exposes a local path) or copied.
func (s *Store) materializeBlob(path string, e graph.Entry) (bool, error) {
	if isSymlink(e.Mode) {
		target, err := s.readAll(e.Object)
		if err != nil {
			return false, err
		}
		return false, os.Symlink(string(target), path)
	}

	if s.linkMode == Hardlink {
		if local, ok := s.payloads.LocalPath(e.Object); ok {
			if err := os.Link(local, path); err == nil {
				return true, nil
			}
		}
	}
	return false, s.copyBlob(path, e.Object)
}

func (s *Store) readAll(d digest.Digest) ([]byte, error) {
	r, err := s.payloads.Open(d)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *Store) copyBlob(path string, d digest.Digest) error {
	r, err := s.payloads.Open(d)
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, r)
	return err
}

// Remove reverses Render: the rendered directory is renamed out of
// band, its
// completed marker removed, and the aside copy deleted after forcing
// every entry writable, so a render containing read-only payloads
// doesn't block its own deletion.
func (s *Store) Remove(d digest.Digest) error {
	dest := s.renderedDir(d)
	marker := s.completedMarker(d)

	aside := filepath.Join(s.root, ".removing-"+uuid.NewString())
	if err := os.Rename(dest, aside); err != nil {
		if os.IsNotExist(err) {
			return ErrNotRendered{Digest: d}
		}
		return err
	}

	if err := os.Remove(marker); err != nil && !os.IsNotExist(err) {
		return err
	}

	return removeWritable(aside)
}

// RemoveRender implements gc.RenderRemover: purges d's render if
// present, reporting whether anything was actually removed.
func (s *Store) RemoveRender(d digest.Digest) (bool, error) {
	if _, err := os.Stat(s.renderedDir(d)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := s.Remove(d); err != nil {
		return false, err
	}
	return true, nil
}

// removeWritable walks root bottom-up, forcing every non-symlink entry
// writable before deleting it, tolerating a tree rendered with
// read-only payloads and permission bits.
func removeWritable(root string) error {
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		mode := info.Mode().Perm() | 0o200
		if info.IsDir() {
			mode |= 0o100
		}
		return os.Chmod(path, mode)
	})
	if err != nil {
		return err
	}
	return os.RemoveAll(root)
}

package build

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/payload"
)

// ChangeKind classifies one path's difference between the build's
// overlay upper directory and the layer stack it was entered with.
type ChangeKind int

const (
	Added ChangeKind = iota
	Modified
	Removed
)

// ChangedPath is one file the build script touched.
type ChangedPath struct {
	Path   string // slash-separated, relative to the upper directory root
	Kind   ChangeKind
	Object digest.Digest // payload digest, zero for Removed
	Mode   uint32
	Size   uint64
	Existed bool // the path was already present in the base stack
}

// DiffUpper walks upper and classifies every path against base, the
// manifest the runtime was entered with ( step 7: "diff
// the overlay upper directory vs the layer stack"). A path whose
// content digest is unchanged from base is dropped even if its mode
// differs: overlayfs sometimes copies a file up on a metadata-only
// touch, and treating that as a real change would make every build
// non-reproducible ( step 7: "reset permissions-only changes,
// work around a known overlay reset bug").
func DiffUpper(upper string, base graph.Manifest, payloads *payload.Store) ([]ChangedPath, error) {
	var out []ChangedPath

	err := filepath.WalkDir(upper, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == upper {
			return nil
		}
		rel := filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(path, upper), string(filepath.Separator)))

		info, err := d.Info()
		if err != nil {
			return err
		}

		if isOverlayWhiteout(info) {
			if _, ok := lookupEntry(base, rel); ok {
				out = append(out, ChangedPath{Path: rel, Kind: Removed, Existed: true})
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		var payloadDigest digest.Digest
		var size uint64
		mode := uint32(info.Mode().Perm())

		if info.Mode()&os.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			payloadDigest, err = payloads.Write(strings.NewReader(target))
			if err != nil {
				return err
			}
			size = uint64(len(target))
			mode |= uint32(os.ModeSymlink)
		} else {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			payloadDigest, err = payloads.Write(f)
			f.Close()
			if err != nil {
				return err
			}
			size = uint64(info.Size())
		}

		baseEntry, existed := lookupEntry(base, rel)
		if existed && baseEntry.Kind == graph.EntryBlob && baseEntry.Object == payloadDigest {
			// Content is byte-identical to the base layer: a mode-only
			// copy-up, not a real change.
			return nil
		}

		kind := Added
		if existed {
			kind = Modified
		}
		out = append(out, ChangedPath{Path: rel, Kind: kind, Object: payloadDigest, Mode: mode, Size: size, Existed: existed})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// isOverlayWhiteout reports whether info describes the overlayfs
// whiteout convention as a character device of size 0; the device
// number itself is not inspected.
func isOverlayWhiteout(info fs.FileInfo) bool {
	return info.Mode()&os.ModeCharDevice != 0 && info.Size() == 0
}

// lookupEntry resolves a slash-separated relative path against m's
// root tree, descending through subtrees.
func lookupEntry(m graph.Manifest, rel string) (graph.Entry, bool) {
	root, ok := m.RootTree()
	if !ok {
		return graph.Entry{}, false
	}
	parts := strings.Split(rel, "/")
	tree := root
	for i, part := range parts {
		var found graph.Entry
		hit := false
		for _, e := range tree.Entries {
			if e.Name == part {
				found, hit = e, true
				break
			}
		}
		if !hit {
			return graph.Entry{}, false
		}
		if i == len(parts)-1 {
			return found, true
		}
		if found.Kind != graph.EntryTree {
			return graph.Entry{}, false
		}
		sub, ok := m.Trees[found.Object]
		if !ok {
			return graph.Entry{}, false
		}
		tree = sub
	}
	return graph.Entry{}, false
}

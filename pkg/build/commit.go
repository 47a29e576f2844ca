package build

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/payload"
)

// Commit walks dir and writes its content as a Manifest: every regular
// file and symlink becomes a Blob payload, every directory a Tree,
// following the same entry shape render.Store materializes back out of
//. The manifest is written to objects and
// returned alongside its digest.
func Commit(dir string, objects graph.Store, payloads *payload.Store) (digest.Digest, graph.Manifest, error) {
	trees := make(map[digest.Digest]graph.Tree)
	root, err := commitDir(dir, payloads, trees)
	if err != nil {
		return digest.Digest{}, graph.Manifest{}, err
	}
	m := graph.Manifest{Root: root, Trees: trees}
	d, err := objects.WriteObject(m)
	if err != nil {
		return digest.Digest{}, graph.Manifest{}, err
	}
	return d, m, nil
}

func commitDir(dir string, payloads *payload.Store, trees map[digest.Digest]graph.Tree) (digest.Digest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return digest.Digest{}, err
	}

	var out []graph.Entry
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil {
			return digest.Digest{}, err
		}

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return digest.Digest{}, err
			}
			payloadDigest, err := payloads.Write(strings.NewReader(target))
			if err != nil {
				return digest.Digest{}, err
			}
			out = append(out, graph.Entry{
				Name: e.Name(), Kind: graph.EntryBlob,
				Mode: uint32(os.ModeSymlink) | uint32(info.Mode().Perm()),
				Size: uint64(len(target)), Object: payloadDigest,
			})

		case info.IsDir():
			subDigest, err := commitDir(path, payloads, trees)
			if err != nil {
				return digest.Digest{}, err
			}
			out = append(out, graph.Entry{
				Name: e.Name(), Kind: graph.EntryTree,
				Mode: uint32(info.Mode().Perm()), Object: subDigest,
			})

		default:
			f, err := os.Open(path)
			if err != nil {
				return digest.Digest{}, err
			}
			payloadDigest, err := payloads.Write(f)
			f.Close()
			if err != nil {
				return digest.Digest{}, err
			}
			out = append(out, graph.Entry{
				Name: e.Name(), Kind: graph.EntryBlob,
				Mode: uint32(info.Mode().Perm()), Size: uint64(info.Size()), Object: payloadDigest,
			})
		}
	}

	tree, err := graph.NewTree(out)
	if err != nil {
		return digest.Digest{}, err
	}
	d := graph.Digest(tree)
	trees[d] = tree
	return d, nil
}

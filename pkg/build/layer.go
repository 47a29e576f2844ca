package build

import (
	"strings"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
)

// dirNode accumulates a component's claimed ChangedPaths into a
// directory trie before layer.go folds it bottom-up into Trees.
type dirNode struct {
	children map[string]*dirNode
	entries  map[string]graph.Entry
}

func newDirNode() *dirNode {
	return &dirNode{children: make(map[string]*dirNode), entries: make(map[string]graph.Entry)}
}

func (n *dirNode) child(name string) *dirNode {
	c, ok := n.children[name]
	if !ok {
		c = newDirNode()
		n.children[name] = c
	}
	return c
}

// CommitChanges folds a component's claimed ChangedPaths into a Layer,
// writing the Manifest (and the Layer object referencing it) to
// objects. Every change already carries its payload digest from
// DiffUpper, so no filesystem access is needed here (
// step 9: "Publish one layer per component").
func CommitChanges(changes []ChangedPath, objects graph.Store) (digest.Digest, error) {
	root := newDirNode()
	for _, ch := range changes {
		parts := strings.Split(ch.Path, "/")
		dir := root
		for _, p := range parts[:len(parts)-1] {
			dir = dir.child(p)
		}
		name := parts[len(parts)-1]
		if ch.Kind == Removed {
			dir.entries[name] = graph.Entry{Name: name, Kind: graph.EntryMask, Object: graph.MaskDigest}
			continue
		}
		dir.entries[name] = graph.Entry{
			Name: name, Kind: graph.EntryBlob,
			Mode: ch.Mode, Size: ch.Size, Object: ch.Object,
		}
	}

	trees := make(map[digest.Digest]graph.Tree)
	rootDigest, err := foldDirNode(root, trees)
	if err != nil {
		return digest.Digest{}, err
	}

	manifest := graph.Manifest{Root: rootDigest, Trees: trees}
	manifestDigest, err := objects.WriteObject(manifest)
	if err != nil {
		return digest.Digest{}, err
	}

	layer := graph.Layer{Manifest: manifestDigest}
	layerDigest, err := objects.WriteObject(layer)
	if err != nil {
		return digest.Digest{}, err
	}
	return layerDigest, nil
}

func foldDirNode(n *dirNode, trees map[digest.Digest]graph.Tree) (digest.Digest, error) {
	var entries []graph.Entry
	for name, e := range n.entries {
		_ = name
		entries = append(entries, e)
	}
	for name, child := range n.children {
		subDigest, err := foldDirNode(child, trees)
		if err != nil {
			return digest.Digest{}, err
		}
		entries = append(entries, graph.Entry{Name: name, Kind: graph.EntryTree, Mode: 0o755, Object: subDigest})
	}

	tree, err := graph.NewTree(entries)
	if err != nil {
		return digest.Digest{}, err
	}
	d := graph.Digest(tree)
	trees[d] = tree
	return d, nil
}

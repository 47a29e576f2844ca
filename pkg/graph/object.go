// Package graph implements SPFS's content-addressed object graph
//: Blob, Tree, Manifest,
// Layer, Platform and Mask, their canonical encodings, and DAG walking.
package graph

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/spkio"
)

// Kind discriminates the tagged Object variants.
type Kind uint8

const (
	KindBlob Kind = iota + 1
	KindTree
	KindManifest
	KindLayer
	KindPlatform
	KindMask
)

func (k Kind) String() string {
	switch k {
	case KindBlob:
		return "blob"
	case KindTree:
		return "tree"
	case KindManifest:
		return "manifest"
	case KindLayer:
		return "layer"
	case KindPlatform:
		return "platform"
	case KindMask:
		return "mask"
	default:
		return "unknown"
	}
}

// Object is any of the graph's tagged variants.
type Object interface {
	Kind() Kind
	// encodeBody writes the object's canonical binary body (the kind tag,
	// a u32, is written by the package-level Encode, not by the variant).
	encodeBody(w *spkio.Writer)
	// Children returns the digests this object directly references, in
	// encoded order.
	Children() []digest.Digest
}

// MaskDigest is the fixed digest every Mask object shares.
var MaskDigest = digest.FromBytes([]byte("spfs:mask-sentinel"))

// Mask is the whiteout sentinel object.
type Mask struct{}

func (Mask) Kind() Kind                     { return KindMask }
func (Mask) Children() []digest.Digest      { return nil }
func (Mask) encodeBody(w *spkio.Writer)     {}

// Blob references a byte stream in the payload store.
type Blob struct {
	Payload digest.Digest
	Size    uint64
}

func (Blob) Kind() Kind { return KindBlob }

func (b Blob) Children() []digest.Digest { return nil }

func (b Blob) encodeBody(w *spkio.Writer) {
	w.WriteDigest(b.Payload)
	w.WriteUint64(b.Size)
}

// Digest of a Blob is defined to be its payload digest, not the hash
// of its own encoding.
func (b Blob) Digest() digest.Digest { return b.Payload }

// EntryKind discriminates Tree entries.
type EntryKind uint8

const (
	EntryTree EntryKind = iota + 1
	EntryBlob
	EntryMask
)

func (k EntryKind) String() string {
	switch k {
	case EntryTree:
		return "tree"
	case EntryBlob:
		return "blob"
	case EntryMask:
		return "mask"
	default:
		return "unknown"
	}
}

// Entry is one named member of a Tree.
type Entry struct {
	Name   string
	Kind   EntryKind
	Mode   uint32
	Size   uint64
	Object digest.Digest
}

func (e Entry) encode(w *spkio.Writer) {
	w.WriteString(e.Name)
	w.WriteUint32(uint32(e.Kind))
	w.WriteUint32(e.Mode)
	w.WriteUint64(e.Size)
	w.WriteDigest(e.Object)
}

// Tree is a set of uniquely-named entries, always stored sorted by name.
type Tree struct {
	Entries []Entry
}

// NewTree sorts entries by name and returns the Tree, erroring on
// duplicate names.
func NewTree(entries []Entry) (Tree, error) {
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Name == sorted[i-1].Name {
			return Tree{}, fmt.Errorf("graph: duplicate tree entry name %q", sorted[i].Name)
		}
	}
	return Tree{Entries: sorted}, nil
}

func (Tree) Kind() Kind { return KindTree }

func (t Tree) Children() []digest.Digest {
	// Trees are always addressed as part of a Manifest; callers that
	// need subtree/blob digests use Manifest.Children.
	return nil
}

func (t Tree) encodeBody(w *spkio.Writer) {
	w.WriteUint64(uint64(len(t.Entries)))
	for _, e := range t.Entries {
		e.encode(w)
	}
}

// Digest returns the content digest of the tree's own encoding.
func (t Tree) Digest() digest.Digest {
	return Digest(t)
}

// Manifest is a root tree plus every reachable subtree, indexed by digest.
type Manifest struct {
	Root  digest.Digest
	Trees map[digest.Digest]Tree
}

func (Manifest) Kind() Kind { return KindManifest }

// Children enumerates, in encoded order: the root tree digest, every
// subtree digest, and every Blob-kind entry's object digest across all
// trees.
func (m Manifest) Children() []digest.Digest {
	children := []digest.Digest{m.Root}
	// subtree digests, in a stable order derived from the root walk so
	// re-encoding is deterministic regardless of map iteration order.
	order := m.treeOrder()
	for _, d := range order {
		children = append(children, d)
	}
	for _, d := range order {
		tree := m.Trees[d]
		for _, e := range tree.Entries {
			if e.Kind == EntryBlob {
				children = append(children, e.Object)
			}
		}
	}
	return children
}

// treeOrder returns every digest in m.Trees (including the root, if
// present there) via a deterministic DFS starting at Root, falling back
// to a sorted scan for any unreachable-by-walk entries (defensive only;
// a well-formed Manifest has none).
func (m Manifest) treeOrder() []digest.Digest {
	visited := map[digest.Digest]bool{}
	var order []digest.Digest
	var walk func(d digest.Digest)
	walk = func(d digest.Digest) {
		if visited[d] {
			return
		}
		tree, ok := m.Trees[d]
		if !ok {
			return
		}
		visited[d] = true
		order = append(order, d)
		for _, e := range tree.Entries {
			if e.Kind == EntryTree {
				walk(e.Object)
			}
		}
	}
	walk(m.Root)

	var rest []digest.Digest
	for d := range m.Trees {
		if !visited[d] {
			rest = append(rest, d)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].String() < rest[j].String() })
	return append(order, rest...)
}

func (m Manifest) encodeBody(w *spkio.Writer) {
	w.WriteDigest(m.Root)
	order := m.treeOrder()
	w.WriteUint64(uint64(len(order)))
	for _, d := range order {
		w.WriteDigest(d)
		m.Trees[d].encodeBody(w)
	}
}

// RootTree returns the manifest's root Tree, if present.
func (m Manifest) RootTree() (Tree, bool) {
	t, ok := m.Trees[m.Root]
	return t, ok
}

// Layer is a single named filesystem change set.
type Layer struct {
	Manifest digest.Digest
}

func (Layer) Kind() Kind                { return KindLayer }
func (l Layer) Children() []digest.Digest { return []digest.Digest{l.Manifest} }
func (l Layer) encodeBody(w *spkio.Writer) { w.WriteDigest(l.Manifest) }

// Platform is an ordered stack of layer digests, lowest first.
type Platform struct {
	Stack []digest.Digest
}

func (Platform) Kind() Kind { return KindPlatform }

func (p Platform) Children() []digest.Digest {
	return append([]digest.Digest(nil), p.Stack...)
}

func (p Platform) encodeBody(w *spkio.Writer) {
	w.WriteUint64(uint64(len(p.Stack)))
	for _, d := range p.Stack {
		w.WriteDigest(d)
	}
}

// Encode writes o's full canonical encoding (kind tag + body) to w.
func Encode(o Object, w *spkio.Writer) {
	w.WriteUint32(uint32(o.Kind()))
	o.encodeBody(w)
}

// EncodeBytes returns o's full canonical encoding as a byte slice.
func EncodeBytes(o Object) []byte {
	var buf bytes.Buffer
	Encode(o, spkio.NewWriter(&buf))
	return buf.Bytes()
}

// Digest returns the SHA-256 digest of o's canonical encoding. For Blob,
// by definition this instead returns the payload digest (see Blob.Digest).
func Digest(o Object) digest.Digest {
	if b, ok := o.(Blob); ok {
		return b.Digest()
	}
	return digest.FromBytes(EncodeBytes(o))
}

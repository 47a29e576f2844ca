package graph

import (
	"bytes"
	"fmt"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/spkio"
)

// Decode reads a full canonical encoding (kind tag + body) from r.
func Decode(r *spkio.Reader) (Object, error) {
	kind := Kind(r.ReadUint32("kind"))
	if r.Err() != nil {
		return nil, r.Err()
	}

	var obj Object
	switch kind {
	case KindBlob:
		obj = decodeBlob(r)
	case KindTree:
		obj = decodeTreeBody(r)
	case KindManifest:
		obj = decodeManifest(r)
	case KindLayer:
		obj = decodeLayer(r)
	case KindPlatform:
		obj = decodePlatform(r)
	case KindMask:
		obj = Mask{}
	default:
		return nil, fmt.Errorf("graph: unknown object kind %d", kind)
	}

	if r.Err() != nil {
		return nil, r.Err()
	}
	return obj, nil
}

// DecodeBytes decodes a full canonical encoding from a byte slice.
func DecodeBytes(b []byte) (Object, error) {
	return Decode(spkio.NewReader(bytes.NewReader(b)))
}

func decodeBlob(r *spkio.Reader) Blob {
	d := r.ReadDigest("blob.payload")
	size := r.ReadUint64("blob.size")
	return Blob{Payload: d, Size: size}
}

func decodeEntry(r *spkio.Reader) Entry {
	return Entry{
		Name:   r.ReadString("entry.name"),
		Kind:   EntryKind(r.ReadUint32("entry.kind")),
		Mode:   r.ReadUint32("entry.mode"),
		Size:   r.ReadUint64("entry.size"),
		Object: r.ReadDigest("entry.object"),
	}
}

func decodeTreeBody(r *spkio.Reader) Tree {
	n := r.ReadUint64("tree.len")
	entries := make([]Entry, 0, n)
	for i := uint64(0); i < n && r.Err() == nil; i++ {
		entries = append(entries, decodeEntry(r))
	}
	return Tree{Entries: entries}
}

func decodeManifest(r *spkio.Reader) Manifest {
	root := r.ReadDigest("manifest.root")
	n := r.ReadUint64("manifest.tree_count")
	m := Manifest{Root: root, Trees: make(map[digest.Digest]Tree, n)}
	for i := uint64(0); i < n && r.Err() == nil; i++ {
		d := r.ReadDigest("manifest.tree_digest")
		m.Trees[d] = decodeTreeBody(r)
	}
	return m
}

func decodeLayer(r *spkio.Reader) Layer {
	return Layer{Manifest: r.ReadDigest("layer.manifest")}
}

func decodePlatform(r *spkio.Reader) Platform {
	n := r.ReadUint64("platform.len")
	p := Platform{Stack: make([]digest.Digest, 0, n)}
	for i := uint64(0); i < n && r.Err() == nil; i++ {
		p.Stack = append(p.Stack, r.ReadDigest("platform.entry"))
	}
	return p
}

package graph

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spkdev/spk/pkg/digest"
)

// ErrUnknownObject is returned when a digest has no corresponding object
// in the store.
type ErrUnknownObject struct {
	Digest digest.Digest
}

func (e ErrUnknownObject) Error() string {
	return fmt.Sprintf("graph: unknown object %s", e.Digest)
}

// Store is the object-graph half of a Repository.
type Store interface {
	// ReadObject returns the object named by d, or ErrUnknownObject.
	ReadObject(d digest.Digest) (Object, error)
	// WriteObject stores o, returning its digest. Writing an
	// already-present digest is a no-op.
	WriteObject(o Object) (digest.Digest, error)
	// IterObjects lazily enumerates every stored digest.
	IterObjects(yield func(digest.Digest) bool) error
	// FindDigests resolves criteria (a full digest string or a partial
	// prefix) against the store's contents.
	FindDigests(partial digest.Partial) ([]digest.Digest, error)
	// RemoveObject deletes the object named by d. Used by the garbage
	// collector's object-purge task; removing an absent
	// digest is not an error.
	RemoveObject(d digest.Digest) error
}

// MemoryStore is an in-memory Store, used standalone in tests and as the
// object-graph half of the in-memory Repository variant.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[digest.Digest][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[digest.Digest][]byte)}
}

func (s *MemoryStore) ReadObject(d digest.Digest) (Object, error) {
	s.mu.RLock()
	raw, ok := s.objects[d]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownObject{Digest: d}
	}
	return DecodeBytes(raw)
}

func (s *MemoryStore) WriteObject(o Object) (digest.Digest, error) {
	d := Digest(o)
	raw := EncodeBytes(o)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[d]; exists {
		return d, nil
	}
	s.objects[d] = raw
	return d, nil
}

func (s *MemoryStore) IterObjects(yield func(digest.Digest) bool) error {
	s.mu.RLock()
	digests := make([]digest.Digest, 0, len(s.objects))
	for d := range s.objects {
		digests = append(digests, d)
	}
	s.mu.RUnlock()

	sort.Slice(digests, func(i, j int) bool { return digests[i].String() < digests[j].String() })
	for _, d := range digests {
		if !yield(d) {
			break
		}
	}
	return nil
}

func (s *MemoryStore) RemoveObject(d digest.Digest) error {
	s.mu.Lock()
	delete(s.objects, d)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) FindDigests(partial digest.Partial) ([]digest.Digest, error) {
	var all []digest.Digest
	if err := s.IterObjects(func(d digest.Digest) bool {
		all = append(all, d)
		return true
	}); err != nil {
		return nil, err
	}
	var matches []digest.Digest
	for _, d := range all {
		if partial.Matches(d) {
			matches = append(matches, d)
		}
	}
	return matches, nil
}

// WalkObjects performs a DFS over objects reachable from root, visiting
// each node at most once, in the encoded child order. A
// child digest that does not resolve to a separately stored Object (a
// Tree digest embedded in a Manifest, or a Blob's payload digest when no
// Blob object was ever published for it) ends that branch of the walk
// without error: Trees are never stored standalone, and a payload
// digest only resolves through the payload store, not the object graph.
func WalkObjects(store Store, root digest.Digest, visit func(digest.Digest, Object) error) error {
	visited := make(map[digest.Digest]bool)
	var walk func(d digest.Digest) error
	walk = func(d digest.Digest) error {
		if visited[d] {
			return nil
		}
		visited[d] = true

		obj, err := store.ReadObject(d)
		if err != nil {
			if _, ok := err.(ErrUnknownObject); ok {
				return nil
			}
			return err
		}
		if err := visit(d, obj); err != nil {
			return err
		}
		for _, child := range obj.Children() {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}

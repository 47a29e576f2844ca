package graph

import (
	"sort"
	"strings"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/storagedriver"
)

// FSStore is a Store backed by a storagedriver.StorageDriver, used by
// the local filesystem Repository variant. Objects are stored at the
// same digest-sharded layout
// the Payload Store uses, under a distinct root so object and payload
// namespaces never collide even when both sit on the same driver.
type FSStore struct {
	driver storagedriver.StorageDriver
	root   string
}

// NewFSStore wraps driver as an object Store rooted at root (e.g.
// "/objects").
func NewFSStore(driver storagedriver.StorageDriver, root string) *FSStore {
	return &FSStore{driver: driver, root: strings.TrimSuffix(root, "/")}
}

func (s *FSStore) path(d digest.Digest) string {
	str := d.String()
	return s.root + "/" + str[:2] + "/" + str[2:]
}

func (s *FSStore) ReadObject(d digest.Digest) (Object, error) {
	raw, err := s.driver.GetContent(s.path(d))
	if err != nil {
		if _, ok := err.(storagedriver.PathNotFoundError); ok {
			return nil, ErrUnknownObject{Digest: d}
		}
		return nil, err
	}
	return DecodeBytes(raw)
}

func (s *FSStore) WriteObject(o Object) (digest.Digest, error) {
	d := Digest(o)
	path := s.path(d)
	if _, err := s.driver.Stat(path); err == nil {
		return d, nil
	}
	return d, s.driver.PutContent(path, EncodeBytes(o))
}

func (s *FSStore) RemoveObject(d digest.Digest) error {
	if err := s.driver.Delete(s.path(d)); err != nil {
		if _, ok := err.(storagedriver.PathNotFoundError); ok {
			return nil
		}
		return err
	}
	return nil
}

func (s *FSStore) IterObjects(yield func(digest.Digest) bool) error {
	shards, err := s.driver.List(s.root)
	if err != nil {
		if _, ok := err.(storagedriver.PathNotFoundError); ok {
			return nil
		}
		return err
	}
	var all []digest.Digest
	for _, shard := range shards {
		prefix := shard[strings.LastIndex(shard, "/")+1:]
		entries, err := s.driver.List(shard)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry[strings.LastIndex(entry, "/")+1:]
			d, err := digest.Parse(prefix + name)
			if err != nil {
				continue
			}
			all = append(all, d)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].String() < all[j].String() })
	for _, d := range all {
		if !yield(d) {
			break
		}
	}
	return nil
}

func (s *FSStore) FindDigests(partial digest.Partial) ([]digest.Digest, error) {
	var matches []digest.Digest
	err := s.IterObjects(func(d digest.Digest) bool {
		if partial.Matches(d) {
			matches = append(matches, d)
		}
		return true
	})
	return matches, err
}

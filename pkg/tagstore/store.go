package tagstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spkdev/spk/pkg/digest"
)

// ErrTagLocked is returned when an append or rewrite finds an existing
// advisory lock file. Open Question (a), contention is
// always a hard error — there is no retry/backoff, since stealing a
// live writer's lock would corrupt the stream.
type ErrTagLocked struct {
	Spec Spec
}

func (e ErrTagLocked) Error() string {
	return fmt.Sprintf("tagstore: %s is locked by another writer", e.Spec)
}

// ErrUnknownReference is returned when a tag name or version has no
// corresponding entry.
type ErrUnknownReference struct {
	Spec Spec
}

func (e ErrUnknownReference) Error() string {
	return fmt.Sprintf("tagstore: unknown reference %s", e.Spec)
}

// Store is a filesystem-backed tag store rooted at a directory holding
// one `<org>/<name>.tag` stream per tag name (,
// "tags/<org...>/<name>.tag").
type Store struct {
	root string
}

// New returns a Store rooted at root. The directory is created lazily
// on first write.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) streamFile(sp Spec) string {
	return filepath.Join(s.root, filepath.FromSlash(sp.streamPath()))
}

func (s *Store) lockFile(sp Spec) string {
	return s.streamFile(sp) + ".lock"
}

// acquire creates the advisory lock file exclusively, failing hard on
// contention.
func (s *Store) acquire(sp Spec) (*os.File, error) {
	path := s.lockFile(sp)
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, ErrTagLocked{Spec: sp}
		}
		return nil, err
	}
	return f, nil
}

func (s *Store) release(sp Spec, f *os.File) {
	f.Close()
	os.Remove(s.lockFile(sp))
}

// readStream loads and decodes the full record stream for sp's
// org/name, oldest first. A missing file is an empty stream, not an
// error.
func (s *Store) readStream(sp Spec) ([]Tag, error) {
	raw, err := os.ReadFile(s.streamFile(sp))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return decodeAll(raw)
}

// Append writes a new Tag record onto the stream named by sp.Org/sp.Name,
// linking it to the current head via Parent.
func (s *Store) Append(sp Spec, target digest.Digest, user string) (Tag, error) {
	if err := ValidateOrg(sp.Org); err != nil {
		return Tag{}, err
	}
	if err := ValidateName(sp.Name); err != nil {
		return Tag{}, err
	}

	lock, err := s.acquire(sp)
	if err != nil {
		return Tag{}, err
	}
	defer s.release(sp, lock)

	existing, err := s.readStream(sp)
	if err != nil {
		return Tag{}, err
	}

	parent := digest.Nil
	if len(existing) > 0 {
		parent = Digest(existing[len(existing)-1])
	}

	t := Tag{
		Org:    sp.Org,
		Name:   sp.Name,
		Target: target,
		Parent: parent,
		User:   user,
		Time:   now(),
	}

	path := s.streamFile(sp)
	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return Tag{}, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return Tag{}, err
	}
	defer f.Close()

	if _, err := f.Write(encode(t)); err != nil {
		return Tag{}, err
	}
	return t, nil
}

// Digest returns a Tag's own content digest, used as its Parent link
// target by the next Append.
func Digest(t Tag) digest.Digest {
	return digest.FromBytes(encode(t))
}

// now is overridable in tests.
var now = time.Now

// Read resolves sp to the Tag at sp.Version entries back from the
// latest (0 = latest),.4 "Reading spec~k".
func (s *Store) Read(sp Spec) (Tag, error) {
	tags, err := s.readStream(sp)
	if err != nil {
		return Tag{}, err
	}
	if len(tags) == 0 {
		return Tag{}, ErrUnknownReference{Spec: sp}
	}
	idx := len(tags) - 1 - sp.Version
	if idx < 0 {
		return Tag{}, ErrUnknownReference{Spec: sp}
	}
	return tags[idx], nil
}

// History returns every entry in sp's stream, most recent first.
func (s *Store) History(sp Spec) ([]Tag, error) {
	tags, err := s.readStream(sp)
	if err != nil {
		return nil, err
	}
	out := make([]Tag, len(tags))
	for i, t := range tags {
		out[len(tags)-1-i] = t
	}
	return out, nil
}

// RemoveVersion deletes a single entry from sp's stream under lock:
// move the file to .backup, replay every other entry via append,
// remove.backup on success, restore it on failure (
// "Deleting a specific tag").
func (s *Store) RemoveVersion(sp Spec) error {
	lock, err := s.acquire(sp)
	if err != nil {
		return err
	}
	defer s.release(sp, lock)

	path := s.streamFile(sp)
	backup := path + ".backup"

	tags, err := s.readStream(sp)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		return ErrUnknownReference{Spec: sp}
	}
	idx := len(tags) - 1 - sp.Version
	if idx < 0 {
		return ErrUnknownReference{Spec: sp}
	}

	if err := os.Rename(path, backup); err != nil {
		return err
	}

	remaining := append(tags[:idx:idx], tags[idx+1:]...)
	if err := s.replay(path, remaining); err != nil {
		// restore on failure
		os.Remove(path)
		os.Rename(backup, path)
		return err
	}

	return os.Remove(backup)
}

// replay re-links and re-appends a sequence of surviving tags to a
// fresh stream file, recomputing Parent chains.
func (s *Store) replay(path string, tags []Tag) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	parent := digest.Nil
	for _, t := range tags {
		t.Parent = parent
		if _, err := f.Write(encode(t)); err != nil {
			return err
		}
		parent = Digest(t)
	}
	return nil
}

// RemoveStream deletes sp's entire file and prunes now-empty parent
// directories up to the tags root.
func (s *Store) RemoveStream(sp Spec) error {
	lock, err := s.acquire(sp)
	if err != nil {
		return err
	}
	defer s.release(sp, lock)

	path := s.streamFile(sp)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrUnknownReference{Spec: sp}
		}
		return err
	}

	dir := filepath.Dir(path)
	for dir != s.root && dir != "." && dir != string(filepath.Separator) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := os.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

// ListTags enumerates every "org/name" stream under prefix (a linear
// scan by design, "ls_tags(path)... are linear scans").
func (s *Store) ListTags(prefix string) ([]string, error) {
	var names []string
	start := filepath.Join(s.root, filepath.FromSlash(prefix))
	err := filepath.Walk(start, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(p, ".lock") || strings.HasSuffix(p, ".backup") {
			return nil
		}
		if !strings.HasSuffix(p, ".tag") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		names = append(names, strings.TrimSuffix(filepath.ToSlash(rel), ".tag"))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// FindTags returns every tag name whose latest entry targets d (a
// linear scan by design, "find_tags(digest)").
func (s *Store) FindTags(d digest.Digest) ([]string, error) {
	all, err := s.ListTags("")
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, name := range all {
		sp, err := ParseSpec(name)
		if err != nil {
			continue
		}
		t, err := s.Read(sp)
		if err != nil {
			continue
		}
		if t.Target == d {
			matches = append(matches, name)
		}
	}
	return matches, nil
}

// Package payload implements the content-addressed byte store (
// ): atomic digest-named writes and read-by-digest streaming, on
// top of a pluggable storagedriver.StorageDriver backend.
package payload

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/storagedriver"
)

// ErrUnknownPayload is returned when a digest names no stored payload.
type ErrUnknownPayload struct {
	Digest digest.Digest
}

func (e ErrUnknownPayload) Error() string {
	return fmt.Sprintf("payload: unknown payload %s", e.Digest)
}

// Store is a content-addressed byte store keyed by digest.
type Store struct {
	driver storagedriver.StorageDriver
	log    *logrus.Entry
}

// New wraps driver as a payload Store.
func New(driver storagedriver.StorageDriver) *Store {
	return &Store{
		driver: driver,
		log:    logrus.WithField("component", "payload"),
	}
}

// path computes the digest-sharded destination path: the first two
// characters of the canonical string form a fan-out directory, the
// remainder names the file.
func path(d digest.Digest) string {
	s := d.String()
	return "/" + s[:2] + "/" + s[2:]
}

func tempPath(token string) string {
	return "/tmp/" + token
}

// Has reports whether a payload with digest d is present.
func (s *Store) Has(d digest.Digest) (bool, error) {
	_, err := s.driver.Stat(path(d))
	if err != nil {
		if _, ok := err.(storagedriver.PathNotFoundError); ok {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Open returns a reader for the payload named by d. Callers that want
// the backing filesystem path instead (such as the Renderer, to
// hardlink or copy rather than stream) use LocalPath.
func (s *Store) Open(d digest.Digest) (io.ReadCloser, error) {
	r, err := s.driver.ReadStream(path(d), 0)
	if err != nil {
		if _, ok := err.(storagedriver.PathNotFoundError); ok {
			return nil, ErrUnknownPayload{Digest: d}
		}
		return nil, err
	}
	return r, nil
}

// LocalPath returns the on-disk path for d when the wrapped driver
// supports it, for use by the Renderer's hardlink-first strategy. Only
// the filesystem driver implements this; other backends return "".
func (s *Store) LocalPath(d digest.Digest) (string, bool) {
	type localPather interface {
		FullPath(string) string
	}
	lp, ok := s.driver.(localPather)
	if !ok {
		return "", false
	}
	return lp.FullPath(path(d)), true
}

// Write reads all of r, storing it under its content digest following
// the four-step protocol of It returns the digest of the
// bytes written.
//
// Multiple concurrent writers racing to the same digest is safe:
// whichever rename lands first wins, and a loser discovers the
// destination already exists and discards its own temp file rather
// than erroring (step 3).
func (s *Store) Write(r io.Reader) (digest.Digest, error) {
	token := uuid.NewString()
	tmp := tempPath(token)

	hasher := digest.NewHasher(nil)
	counted := io.TeeReader(r, hasher)

	if _, err := s.driver.WriteStream(tmp, counted); err != nil {
		return digest.Nil, err
	}

	d := hasher.Digest()
	dest := path(d)

	if err := s.driver.Move(tmp, dest); err != nil {
		return digest.Nil, err
	}

	// Best-effort: make the stored payload read-only. Backends that
	// don't support permission bits (object stores) silently no-op.
	s.setReadOnly(dest)

	return d, nil
}

// WriteKnownDigest behaves like Write for a caller that already knows
// the digest (e.g. a sync transfer that verified it out-of-band): r's
// bytes are still hashed by Write to guard against transport
// corruption, and a mismatch is an error.
func (s *Store) WriteKnownDigest(r io.Reader, want digest.Digest) error {
	got, err := s.Write(r)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("payload: digest mismatch: wrote %s, wanted %s", got, want)
	}
	return nil
}

type readOnlySetter interface {
	SetReadOnly(path string) error
}

func (s *Store) setReadOnly(dest string) {
	ro, ok := s.driver.(readOnlySetter)
	if !ok {
		return
	}
	if err := ro.SetReadOnly(dest); err != nil {
		s.log.WithError(err).WithField("path", dest).Debug("could not mark payload read-only")
	}
}

// Remove deletes the payload named by d. Used by the garbage
// collector's payload-purge task; removing an absent
// digest is not an error.
func (s *Store) Remove(d digest.Digest) error {
	if err := s.driver.Delete(path(d)); err != nil {
		if _, ok := err.(storagedriver.PathNotFoundError); ok {
			return nil
		}
		return err
	}
	return nil
}

// IterPayloads lazily enumerates every stored payload digest, in the
// same digest-sharded scan the garbage collector uses to find payloads
// with no corresponding Blob object.
func (s *Store) IterPayloads(yield func(digest.Digest) bool) error {
	shards, err := s.driver.List("/")
	if err != nil {
		if _, ok := err.(storagedriver.PathNotFoundError); ok {
			return nil
		}
		return err
	}
	for _, shard := range shards {
		prefix := shard[strings.LastIndex(shard, "/")+1:]
		if prefix == "tmp" {
			continue
		}
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
			if !yield(d) {
				return nil
			}
		}
	}
	return nil
}

// Digest hashes r without storing it, for verification callers.
func Digest(r io.Reader) (digest.Digest, error) {
	hasher := digest.NewHasher(nil)
	if _, err := io.Copy(hasher, r); err != nil {
		return digest.Nil, err
	}
	return hasher.Digest(), nil
}

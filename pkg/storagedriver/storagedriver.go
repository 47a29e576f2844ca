// Package storagedriver defines the pluggable byte-storage backend used
// by the Payload Store and by cloud-backed Repository variants: a
// small, backend-agnostic interface that the filesystem, in-memory,
// S3, Azure, Swift and GCS implementations all satisfy identically.
package storagedriver

import (
	"fmt"
	"io"
	"regexp"
	"time"
)

// StorageDriver defines methods that a storage driver must implement for
// a filesystem-like key/value byte store.
type StorageDriver interface {
	// Name returns the human-readable name of the driver.
	Name() string

	// GetContent retrieves the content stored at path. Intended for
	// small objects (tag records, recipe/package YAML).
	GetContent(path string) ([]byte, error)

	// PutContent stores content at path, overwriting any existing value.
	PutContent(path string, content []byte) error

	// ReadStream returns a reader for the content at path, starting at
	// the given byte offset (0 for the full stream).
	ReadStream(path string, offset int64) (io.ReadCloser, error)

	// WriteStream writes the full contents of reader to path, returning
	// the number of bytes written.
	WriteStream(path string, reader io.Reader) (int64, error)

	// Stat retrieves metadata about the object at path.
	Stat(path string) (FileInfo, error)

	// List returns the direct descendants of path.
	List(path string) ([]string, error)

	// Move moves the object at sourcePath to destPath, removing the
	// original. Backends that cannot do this atomically (most
	// object-stores) perform a copy-then-delete; content-addressing
	// makes this safe even when a mover crashes mid-copy, since a
	// destination that never completes simply never acquires a valid
	// digest name.
	Move(sourcePath, destPath string) error

	// Delete recursively deletes path and its descendants.
	Delete(path string) error
}

// FileInfo describes a stored object.
type FileInfo interface {
	Path() string
	Size() int64
	ModTime() time.Time
	IsDir() bool
}

// PathNotFoundError is returned when operating on a nonexistent path.
type PathNotFoundError struct {
	Path string
}

func (err PathNotFoundError) Error() string {
	return fmt.Sprintf("storagedriver: path not found: %s", err.Path)
}

// InvalidPathError is returned when the provided path is malformed.
type InvalidPathError struct {
	Path string
}

func (err InvalidPathError) Error() string {
	return fmt.Sprintf("storagedriver: invalid path: %s", err.Path)
}

// InvalidOffsetError is returned when attempting to read from an invalid
// offset.
type InvalidOffsetError struct {
	Path   string
	Offset int64
}

func (err InvalidOffsetError) Error() string {
	return fmt.Sprintf("storagedriver: invalid offset %d for path %s", err.Offset, err.Path)
}

// PathRegexp is the expression every driver path must match: absolute,
// slash-separated, alphanumeric components (upper or lower case), with
// single '.', '_' or '-' separators allowed between alphanumerics.
var PathRegexp = regexp.MustCompile(`^(/[a-zA-Z0-9]+([._-]?[a-zA-Z0-9])*)+$`)

// Package inmemory implements a storagedriver.StorageDriver backed by a
// process-local map. Used by the in-memory Repository variant and in
// tests throughout the tree.
package inmemory

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/spkdev/spk/pkg/storagedriver"
)

// Driver is a storagedriver.StorageDriver implementation backed by a
// local map. Never durable across process restarts.
type Driver struct {
	mu      sync.RWMutex
	storage map[string][]byte
}

// New constructs an empty Driver.
func New() *Driver {
	return &Driver{storage: make(map[string][]byte)}
}

func (d *Driver) Name() string { return "inmemory" }

func (d *Driver) GetContent(path string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	contents, ok := d.storage[path]
	if !ok {
		return nil, storagedriver.PathNotFoundError{Path: path}
	}
	out := make([]byte, len(contents))
	copy(out, contents)
	return out, nil
}

func (d *Driver) PutContent(path string, contents []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := make([]byte, len(contents))
	copy(buf, contents)
	d.storage[path] = buf
	return nil
}

func (d *Driver) ReadStream(path string, offset int64) (io.ReadCloser, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	contents, ok := d.storage[path]
	if !ok {
		return nil, storagedriver.PathNotFoundError{Path: path}
	}
	if int64(len(contents)) < offset {
		return nil, storagedriver.InvalidOffsetError{Path: path, Offset: offset}
	}
	buf := make([]byte, len(contents)-int(offset))
	copy(buf, contents[offset:])
	return io.NopCloser(bytes.NewReader(buf)), nil
}

func (d *Driver) WriteStream(path string, reader io.Reader) (int64, error) {
	contents, err := io.ReadAll(reader)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	d.storage[path] = contents
	d.mu.Unlock()
	return int64(len(contents)), nil
}

type fileInfo struct {
	path string
	size int64
}

func (fi fileInfo) Path() string       { return fi.path }
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) ModTime() time.Time { return time.Time{} }
func (fi fileInfo) IsDir() bool        { return false }

func (d *Driver) Stat(path string) (storagedriver.FileInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	contents, ok := d.storage[path]
	if !ok {
		return nil, storagedriver.PathNotFoundError{Path: path}
	}
	return fileInfo{path: path, size: int64(len(contents))}, nil
}

func (d *Driver) List(path string) ([]string, error) {
	if path != "" && path[len(path)-1] != '/' {
		path += "/"
	}
	matcher, err := regexp.Compile(fmt.Sprintf("^%s[^/]+", regexp.QuoteMeta(path)))
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	keySet := make(map[string]struct{})
	for k := range d.storage {
		if key := matcher.FindString(k); key != "" {
			keySet[key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	return keys, nil
}

// Move moves an object stored at sourcePath to destPath, tolerating a
// destination that already exists.
func (d *Driver) Move(sourcePath, destPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	contents, ok := d.storage[sourcePath]
	if !ok {
		if _, exists := d.storage[destPath]; exists {
			return nil
		}
		return storagedriver.PathNotFoundError{Path: sourcePath}
	}
	d.storage[destPath] = contents
	delete(d.storage, sourcePath)
	return nil
}

func (d *Driver) Delete(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var subPaths []string
	for k := range d.storage {
		if k == path || strings.HasPrefix(k, path+"/") {
			subPaths = append(subPaths, k)
		}
	}
	for _, subPath := range subPaths {
		delete(d.storage, subPath)
	}
	return nil
}

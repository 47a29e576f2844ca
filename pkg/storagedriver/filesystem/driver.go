// Package filesystem implements a storagedriver.StorageDriver backed by
// a local directory tree.
package filesystem

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spkdev/spk/pkg/storagedriver"
)

// Driver stores everything under a root directory on local disk.
type Driver struct {
	root string
}

// New constructs a Driver rooted at root.
func New(root string) *Driver {
	return &Driver{root: root}
}

func (d *Driver) Name() string { return "filesystem" }

func (d *Driver) fullPath(p string) string {
	return filepath.Join(d.root, filepath.FromSlash(p))
}

func (d *Driver) GetContent(p string) ([]byte, error) {
	b, err := os.ReadFile(d.fullPath(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storagedriver.PathNotFoundError{Path: p}
		}
		return nil, err
	}
	return b, nil
}

func (d *Driver) PutContent(p string, content []byte) error {
	full := d.fullPath(p)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, content, 0o644)
}

func (d *Driver) ReadStream(p string, offset int64) (io.ReadCloser, error) {
	f, err := os.Open(d.fullPath(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storagedriver.PathNotFoundError{Path: p}
		}
		return nil, err
	}
	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, storagedriver.InvalidOffsetError{Path: p, Offset: offset}
		}
	}
	return f, nil
}

func (d *Driver) WriteStream(p string, reader io.Reader) (int64, error) {
	full := d.fullPath(p)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(full)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(f, reader)
}

type fileInfo struct {
	path    string
	size    int64
	modTime time.Time
	isDir   bool
}

func (fi fileInfo) Path() string       { return fi.path }
func (fi fileInfo) Size() int64        { return fi.size }
func (fi fileInfo) ModTime() time.Time { return fi.modTime }
func (fi fileInfo) IsDir() bool        { return fi.isDir }

func (d *Driver) Stat(p string) (storagedriver.FileInfo, error) {
	st, err := os.Stat(d.fullPath(p))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storagedriver.PathNotFoundError{Path: p}
		}
		return nil, err
	}
	return fileInfo{path: p, size: st.Size(), modTime: st.ModTime(), isDir: st.IsDir()}, nil
}

func (d *Driver) List(p string) ([]string, error) {
	full := d.fullPath(p)
	entries, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storagedriver.PathNotFoundError{Path: p}
		}
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, filepath.ToSlash(filepath.Join(p, e.Name())))
	}
	return out, nil
}

// Move renames sourcePath to destPath, tolerating a destination that
// already exists ( step 3: a payload that lands twice under
// concurrent writers is not an error, since both writers produced the
// same bytes for the same digest-derived path).
func (d *Driver) Move(sourcePath, destPath string) error {
	src, dst := d.fullPath(sourcePath), d.fullPath(destPath)
	if _, err := os.Stat(dst); err == nil {
		return os.Remove(src)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

func (d *Driver) Delete(p string) error {
	return os.RemoveAll(d.fullPath(p))
}

// FullPath exposes the on-disk location of p, letting the Payload
// Store's Renderer hardlink instead of copying.
func (d *Driver) FullPath(p string) string {
	return d.fullPath(p)
}

// SetReadOnly strips write permission from the file at p, tolerating
// failure.
func (d *Driver) SetReadOnly(p string) error {
	return os.Chmod(d.fullPath(p), 0o444)
}

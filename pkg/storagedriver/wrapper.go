package storagedriver

import (
	"io"
)

// wrapper enforces common path validation around an underlying
// driver's methods, decorating every backend identically.
type wrapper struct {
	driver StorageDriver
}

// Wrap returns d decorated with path validation on every call.
func Wrap(d StorageDriver) StorageDriver {
	return wrapper{driver: d}
}

func (d wrapper) Name() string { return d.driver.Name() }

func (d wrapper) GetContent(path string) ([]byte, error) {
	if !PathRegexp.MatchString(path) {
		return nil, InvalidPathError{Path: path}
	}
	return d.driver.GetContent(path)
}

func (d wrapper) PutContent(path string, content []byte) error {
	if !PathRegexp.MatchString(path) {
		return InvalidPathError{Path: path}
	}
	return d.driver.PutContent(path, content)
}

func (d wrapper) ReadStream(path string, offset int64) (io.ReadCloser, error) {
	if !PathRegexp.MatchString(path) {
		return nil, InvalidPathError{Path: path}
	}
	return d.driver.ReadStream(path, offset)
}

func (d wrapper) WriteStream(path string, reader io.Reader) (int64, error) {
	if !PathRegexp.MatchString(path) {
		return 0, InvalidPathError{Path: path}
	}
	return d.driver.WriteStream(path, reader)
}

func (d wrapper) Stat(path string) (FileInfo, error) {
	if !PathRegexp.MatchString(path) {
		return nil, InvalidPathError{Path: path}
	}
	return d.driver.Stat(path)
}

func (d wrapper) List(path string) ([]string, error) {
	if !PathRegexp.MatchString(path) && path != "/" {
		return nil, InvalidPathError{Path: path}
	}
	return d.driver.List(path)
}

func (d wrapper) Move(sourcePath, destPath string) error {
	if !PathRegexp.MatchString(sourcePath) {
		return InvalidPathError{Path: sourcePath}
	}
	if !PathRegexp.MatchString(destPath) {
		return InvalidPathError{Path: destPath}
	}
	return d.driver.Move(sourcePath, destPath)
}

func (d wrapper) Delete(path string) error {
	if !PathRegexp.MatchString(path) {
		return InvalidPathError{Path: path}
	}
	return d.driver.Delete(path)
}

// Package swift provides a storagedriver.StorageDriver implementation
// backed by OpenStack Swift object storage, using the ncw/swift client
// library. It skips Swift's large-object segmentation: the Payload
// Store never writes an object larger than a single payload, and
// payloads are immutable once named by digest, so a single
// ObjectPut/ObjectOpen pair is sufficient.
package swift

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ncw/swift"

	spkdriver "github.com/spkdev/spk/pkg/storagedriver"
)

const contentType = "application/octet-stream"

// Params configures a Driver.
type Params struct {
	Username  string
	Password  string
	AuthURL   string
	Tenant    string
	Region    string
	Container string
	Prefix    string
}

// Driver is a storagedriver.StorageDriver implementation backed by an
// OpenStack Swift container.
type Driver struct {
	conn      swift.Connection
	container string
	prefix    string
}

// New authenticates against Swift and ensures the configured container
// exists, creating it if necessary.
func New(p Params) (*Driver, error) {
	conn := swift.Connection{
		UserName: p.Username,
		ApiKey:   p.Password,
		AuthUrl:  p.AuthURL,
		Region:   p.Region,
		Tenant:   p.Tenant,
	}
	if err := conn.Authenticate(); err != nil {
		return nil, err
	}
	if _, _, err := conn.Container(p.Container); err == swift.ContainerNotFound {
		if err := conn.ContainerCreate(p.Container, nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return &Driver{conn: conn, container: p.Container, prefix: strings.Trim(p.Prefix, "/")}, nil
}

func (d *Driver) Name() string { return "swift" }

func (d *Driver) swiftPath(path string) string {
	return strings.TrimLeft(strings.TrimRight(d.prefix+path, "/"), "/")
}

func (d *Driver) GetContent(path string) ([]byte, error) {
	content, err := d.conn.ObjectGetBytes(d.container, d.swiftPath(path))
	if err == swift.ObjectNotFound {
		return nil, spkdriver.PathNotFoundError{Path: path}
	}
	return content, err
}

func (d *Driver) PutContent(path string, content []byte) error {
	return d.conn.ObjectPutBytes(d.container, d.swiftPath(path), content, contentType)
}

func (d *Driver) ReadStream(path string, offset int64) (io.ReadCloser, error) {
	headers := make(swift.Headers)
	if offset > 0 {
		headers["Range"] = "bytes=" + strconv.FormatInt(offset, 10) + "-"
	}
	file, _, err := d.conn.ObjectOpen(d.container, d.swiftPath(path), false, headers)
	if err == swift.ObjectNotFound {
		return nil, spkdriver.PathNotFoundError{Path: path}
	}
	return file, err
}

func (d *Driver) WriteStream(path string, reader io.Reader) (int64, error) {
	buf, err := io.ReadAll(reader)
	if err != nil {
		return 0, err
	}
	if err := d.conn.ObjectPutBytes(d.container, d.swiftPath(path), buf, contentType); err != nil {
		return 0, err
	}
	return int64(len(buf)), nil
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

func (d *Driver) Stat(path string) (spkdriver.FileInfo, error) {
	swiftPath := d.swiftPath(path)
	opts := &swift.ObjectsOpts{Prefix: swiftPath, Delimiter: '/'}
	objects, err := d.conn.ObjectsAll(d.container, opts)
	if err != nil && err != swift.ContainerNotFound {
		return nil, err
	}
	for _, obj := range objects {
		if obj.PseudoDirectory && obj.Name == swiftPath+"/" {
			return fileInfo{path: path, isDir: true}, nil
		}
	}
	info, _, err := d.conn.Object(d.container, swiftPath)
	if err == swift.ObjectNotFound {
		return nil, spkdriver.PathNotFoundError{Path: path}
	}
	if err != nil {
		return nil, err
	}
	return fileInfo{path: path, size: info.Bytes, modTime: info.LastModified}, nil
}

func (d *Driver) List(path string) ([]string, error) {
	prefix := d.swiftPath(path)
	if prefix != "" {
		prefix += "/"
	}
	opts := &swift.ObjectsOpts{Prefix: prefix, Delimiter: '/'}
	objects, err := d.conn.ObjectsAll(d.container, opts)
	if err != nil {
		if err == swift.ContainerNotFound {
			return nil, spkdriver.PathNotFoundError{Path: path}
		}
		return nil, err
	}
	files := make([]string, 0, len(objects))
	for _, obj := range objects {
		files = append(files, "/"+strings.TrimPrefix(strings.TrimSuffix(obj.Name, "/"), d.prefix+"/"))
	}
	return files, nil
}

func (d *Driver) Move(sourcePath, destPath string) error {
	err := d.conn.ObjectMove(d.container, d.swiftPath(sourcePath), d.container, d.swiftPath(destPath))
	if err == swift.ObjectNotFound {
		return spkdriver.PathNotFoundError{Path: sourcePath}
	}
	return err
}

func (d *Driver) Delete(path string) error {
	opts := swift.ObjectsOpts{Prefix: d.swiftPath(path)}
	objects, err := d.conn.ObjectsAll(d.container, &opts)
	if err != nil {
		if err == swift.ContainerNotFound {
			return spkdriver.PathNotFoundError{Path: path}
		}
		return err
	}
	if len(objects) == 0 {
		if err := d.conn.ObjectDelete(d.container, d.swiftPath(path)); err != nil {
			if err == swift.ObjectNotFound {
				return spkdriver.PathNotFoundError{Path: path}
			}
			return err
		}
		return nil
	}
	names := make([]string, 0, len(objects))
	for _, obj := range objects {
		if !obj.PseudoDirectory {
			names = append(names, obj.Name)
		}
	}
	_, err = d.conn.BulkDelete(d.container, names)
	if err != nil && err != swift.Forbidden {
		return err
	}
	return nil
}

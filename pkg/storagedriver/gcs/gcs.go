// Package gcs provides a storagedriver.StorageDriver implementation
// backed by Google Cloud Storage. It uses the raw
// google.golang.org/api/storage/v1 client rather than the higher-level
// cloud.google.com/go/storage package, keeping this tree's cloud
// dependency surface to the single google.golang.org/api module the
// rest of the pack already pulls in for non-storage Google APIs.
package gcs

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcsapi "google.golang.org/api/storage/v1"

	spkdriver "github.com/spkdev/spk/pkg/storagedriver"
)

// Params configures a Driver.
type Params struct {
	Bucket        string
	RootDirectory string
	// CredentialsFile, if set, is passed to the client as a service
	// account key file; otherwise application default credentials apply.
	CredentialsFile string
}

// Driver is a storagedriver.StorageDriver implementation backed by a
// Google Cloud Storage bucket.
type Driver struct {
	svc           *gcsapi.Service
	bucket        string
	rootDirectory string
}

// New constructs a Driver, authenticating the way the rest of this
// tree's Google-API-backed components do.
func New(ctx context.Context, p Params) (*Driver, error) {
	var opts []option.ClientOption
	if p.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(p.CredentialsFile))
	}
	svc, err := gcsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Driver{svc: svc, bucket: p.Bucket, rootDirectory: strings.Trim(p.RootDirectory, "/")}, nil
}

func (d *Driver) Name() string { return "gcs" }

func (d *Driver) key(path string) string {
	p := strings.TrimPrefix(path, "/")
	if d.rootDirectory == "" {
		return p
	}
	return d.rootDirectory + "/" + p
}

func (d *Driver) GetContent(path string) ([]byte, error) {
	resp, err := d.svc.Objects.Get(d.bucket, d.key(path)).Download()
	if err != nil {
		return nil, parseError(path, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (d *Driver) PutContent(path string, content []byte) error {
	obj := &gcsapi.Object{Bucket: d.bucket, Name: d.key(path)}
	_, err := d.svc.Objects.Insert(d.bucket, obj).Media(bytes.NewReader(content)).Do()
	return err
}

func (d *Driver) ReadStream(path string, offset int64) (io.ReadCloser, error) {
	call := d.svc.Objects.Get(d.bucket, d.key(path))
	if offset > 0 {
		call.Header().Set("Range", "bytes="+strconv.FormatInt(offset, 10)+"-")
	}
	resp, err := call.Download()
	if err != nil {
		return nil, parseError(path, err)
	}
	return resp.Body, nil
}

func (d *Driver) WriteStream(path string, reader io.Reader) (int64, error) {
	counting := &countingReader{r: reader}
	obj := &gcsapi.Object{Bucket: d.bucket, Name: d.key(path)}
	_, err := d.svc.Objects.Insert(d.bucket, obj).Media(counting).Do()
	return counting.n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
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
	obj, err := d.svc.Objects.Get(d.bucket, d.key(path)).Do()
	if err == nil {
		t, _ := time.Parse(time.RFC3339, obj.Updated)
		return fileInfo{path: path, size: int64(obj.Size), modTime: t}, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	prefix := d.key(path) + "/"
	list, lerr := d.svc.Objects.List(d.bucket).Prefix(prefix).MaxResults(1).Do()
	if lerr == nil && len(list.Items) > 0 {
		return fileInfo{path: path, isDir: true}, nil
	}
	return nil, spkdriver.PathNotFoundError{Path: path}
}

func (d *Driver) List(path string) ([]string, error) {
	prefix := d.key(path)
	if prefix != "" {
		prefix += "/"
	}
	var results []string
	call := d.svc.Objects.List(d.bucket).Prefix(prefix).Delimiter("/")
	err := call.Pages(context.Background(), func(res *gcsapi.Objects) error {
		for _, obj := range res.Items {
			results = append(results, "/"+strings.TrimPrefix(obj.Name, d.rootDirectory+"/"))
		}
		for _, p := range res.Prefixes {
			results = append(results, "/"+strings.TrimSuffix(strings.TrimPrefix(p, d.rootDirectory+"/"), "/"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Move copies sourcePath to destPath then deletes the source, since GCS
// has no atomic rename.
func (d *Driver) Move(sourcePath, destPath string) error {
	_, err := d.svc.Objects.Copy(d.bucket, d.key(sourcePath), d.bucket, d.key(destPath), nil).Do()
	if err != nil {
		return parseError(sourcePath, err)
	}
	return d.Delete(sourcePath)
}

func (d *Driver) Delete(path string) error {
	err := d.svc.Objects.Delete(d.bucket, d.key(path)).Do()
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func parseError(path string, err error) error {
	if isNotFound(err) {
		return spkdriver.PathNotFoundError{Path: path}
	}
	return err
}

func isNotFound(err error) bool {
	if gerr, ok := err.(*googleapi.Error); ok {
		return gerr.Code == 404
	}
	return false
}

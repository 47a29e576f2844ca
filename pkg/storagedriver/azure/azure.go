// Package azure provides a storagedriver.StorageDriver implementation
// backed by Microsoft Azure Blob Storage, adapted onto the classic
// Azure/azure-sdk-for-go storage client the rest of this tree's cloud
// stack uses.
package azure

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	storage "github.com/Azure/azure-sdk-for-go/storage"

	spkdriver "github.com/spkdev/spk/pkg/storagedriver"
)

// Driver is a storagedriver.StorageDriver implementation backed by an
// Azure Blob Storage container.
type Driver struct {
	client    storage.BlobStorageClient
	container string
}

// New constructs a Driver for the given storage account and container,
// creating the container if it does not already exist.
func New(accountName, accountKey, container string) (*Driver, error) {
	api, err := storage.NewBasicClient(accountName, accountKey)
	if err != nil {
		return nil, err
	}
	blobClient := api.GetBlobService()
	containerRef := blobClient.GetContainerReference(container)
	if _, err := containerRef.CreateIfNotExists(nil); err != nil {
		return nil, err
	}
	return &Driver{client: blobClient, container: container}, nil
}

func (d *Driver) Name() string { return "azure" }

func (d *Driver) blobRef(path string) *storage.Blob {
	return d.client.GetContainerReference(d.container).GetBlobReference(strings.TrimPrefix(path, "/"))
}

func (d *Driver) GetContent(path string) ([]byte, error) {
	blob := d.blobRef(path)
	r, err := blob.Get(nil)
	if err != nil {
		if is404(err) {
			return nil, spkdriver.PathNotFoundError{Path: path}
		}
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (d *Driver) PutContent(path string, content []byte) error {
	blob := d.blobRef(path)
	return blob.CreateBlockBlobFromReader(bytes.NewReader(content), nil)
}

func (d *Driver) ReadStream(path string, offset int64) (io.ReadCloser, error) {
	blob := d.blobRef(path)
	if err := blob.GetProperties(nil); err != nil {
		if is404(err) {
			return nil, spkdriver.PathNotFoundError{Path: path}
		}
		return nil, err
	}
	if offset >= int64(blob.Properties.ContentLength) {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	r, err := blob.GetRange(&storage.GetBlobRangeOptions{
		Range: &storage.BlobRange{Start: uint64(offset), End: uint64(blob.Properties.ContentLength) - 1},
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// WriteStream uploads the full contents of reader as a fresh block
// blob, replacing any prior content at path.
func (d *Driver) WriteStream(path string, reader io.Reader) (int64, error) {
	blob := d.blobRef(path)
	content, err := io.ReadAll(reader)
	if err != nil {
		return 0, err
	}
	if err := blob.CreateBlockBlobFromReader(bytes.NewReader(content), nil); err != nil {
		return 0, err
	}
	return int64(len(content)), nil
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
	blob := d.blobRef(path)
	if err := blob.GetProperties(nil); err == nil {
		return fileInfo{
			path:    path,
			size:    int64(blob.Properties.ContentLength),
			modTime: time.Time(blob.Properties.LastModified),
		}, nil
	}

	virt := path
	if !strings.HasSuffix(virt, "/") {
		virt += "/"
	}
	blobs, err := d.listBlobs(virt)
	if err != nil {
		return nil, err
	}
	if len(blobs) > 0 {
		return fileInfo{path: path, isDir: true}, nil
	}
	return nil, spkdriver.PathNotFoundError{Path: path}
}

func (d *Driver) List(path string) ([]string, error) {
	prefix := path
	if prefix == "/" {
		prefix = ""
	}
	blobs, err := d.listBlobs(prefix)
	if err != nil {
		return nil, err
	}
	return directDescendants(blobs, prefix), nil
}

// Move copies sourcePath to destPath then deletes the source, since
// Azure Blob Storage has no atomic rename.
func (d *Driver) Move(sourcePath, destPath string) error {
	src := d.blobRef(sourcePath)
	dst := d.blobRef(destPath)
	if err := dst.Copy(src.GetURL(), nil); err != nil {
		if is404(err) {
			return spkdriver.PathNotFoundError{Path: sourcePath}
		}
		return err
	}
	_, err := src.DeleteIfExists(nil)
	return err
}

func (d *Driver) Delete(path string) error {
	blob := d.blobRef(path)
	ok, err := blob.DeleteIfExists(nil)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	blobs, err := d.listBlobs(path)
	if err != nil {
		return err
	}
	for _, b := range blobs {
		if _, err := d.blobRef(b).DeleteIfExists(nil); err != nil {
			return err
		}
	}
	if len(blobs) == 0 {
		return spkdriver.PathNotFoundError{Path: path}
	}
	return nil
}

func (d *Driver) listBlobs(virtPath string) ([]string, error) {
	virtPath = strings.TrimPrefix(virtPath, "/")
	if virtPath != "" && !strings.HasSuffix(virtPath, "/") {
		virtPath += "/"
	}

	containerRef := d.client.GetContainerReference(d.container)
	var out []string
	marker := ""
	for {
		resp, err := containerRef.ListBlobs(storage.ListBlobsParameters{
			Marker: marker,
			Prefix: virtPath,
		})
		if err != nil {
			return out, err
		}
		for _, b := range resp.Blobs {
			out = append(out, "/"+b.Name)
		}
		if resp.NextMarker == "" {
			break
		}
		marker = resp.NextMarker
	}
	return out, nil
}

// directDescendants returns the direct descendants (blobs or virtual
// containers) of prefix found in blobs, each prefixed with "/".
func directDescendants(blobs []string, prefix string) []string {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	out := make(map[string]bool)
	for _, b := range blobs {
		if strings.HasPrefix(b, prefix) {
			rel := b[len(prefix):]
			if idx := strings.Index(rel, "/"); idx >= 0 {
				out[prefix+rel[:idx]] = true
			} else {
				out[b] = true
			}
		}
	}

	keys := make([]string, 0, len(out))
	for k := range out {
		keys = append(keys, k)
	}
	return keys
}

func is404(err error) bool {
	if err == nil {
		return false
	}
	if de, ok := err.(storage.AzureStorageServiceError); ok {
		return de.StatusCode == 404
	}
	return strings.Contains(err.Error(), "404") || strings.Contains(fmt.Sprint(err), "BlobNotFound")
}

// Package s3 provides a storagedriver.StorageDriver implementation
// backed by Amazon S3, built on aws/aws-sdk-go, which the rest of this
// tree's cloud stack already depends on.
//
// S3 offers only eventual consistency; a successful WriteStream does
// not guarantee an immediately visible ReadStream in every region. The
// Payload Store tolerates this by making every write idempotent on the
// destination's content digest.
package s3

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	spkdriver "github.com/spkdev/spk/pkg/storagedriver"
)

// Params configures a Driver.
type Params struct {
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	RootDirectory string
}

// Driver is a storagedriver.StorageDriver implementation backed by
// Amazon S3. Objects are stored at rootDirectory-prefixed keys in the
// configured bucket.
type Driver struct {
	client        *s3.S3
	uploader      *s3manager.Uploader
	bucket        string
	rootDirectory string
}

// New constructs a Driver from the given parameters, establishing an
// AWS session the same way this tree's other cloud drivers do.
func New(p Params) (*Driver, error) {
	cfg := aws.NewConfig().WithRegion(p.Region)
	if p.AccessKey != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(p.AccessKey, p.SecretKey, ""))
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	return &Driver{
		client:        s3.New(sess),
		uploader:      s3manager.NewUploader(sess),
		bucket:        p.Bucket,
		rootDirectory: strings.Trim(p.RootDirectory, "/"),
	}, nil
}

func (d *Driver) Name() string { return "s3" }

func (d *Driver) key(path string) string {
	if d.rootDirectory == "" {
		return strings.TrimPrefix(path, "/")
	}
	return d.rootDirectory + path
}

func (d *Driver) GetContent(path string) ([]byte, error) {
	out, err := d.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key(path)),
	})
	if err != nil {
		return nil, parseError(path, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (d *Driver) PutContent(path string, content []byte) error {
	_, err := d.client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key(path)),
		Body:   bytes.NewReader(content),
	})
	return err
}

func (d *Driver) ReadStream(path string, offset int64) (io.ReadCloser, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key(path)),
	}
	if offset > 0 {
		in.Range = aws.String(fmt.Sprintf("bytes=%d-", offset))
	}
	out, err := d.client.GetObject(in)
	if err != nil {
		return nil, parseError(path, err)
	}
	return out.Body, nil
}

// WriteStream uploads the full contents of reader as a single object,
// using s3manager to transparently multipart large payloads.
func (d *Driver) WriteStream(path string, reader io.Reader) (int64, error) {
	counting := &countingReader{r: reader}
	_, err := d.uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key(path)),
		Body:   counting,
	})
	if err != nil {
		return counting.n, err
	}
	return counting.n, nil
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
	out, err := d.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key(path)),
	})
	if err != nil {
		if isNotFound(err) {
			prefix := d.key(path)
			listOut, lerr := d.client.ListObjectsV2(&s3.ListObjectsV2Input{
				Bucket:  aws.String(d.bucket),
				Prefix:  aws.String(prefix + "/"),
				MaxKeys: aws.Int64(1),
			})
			if lerr == nil && len(listOut.Contents) > 0 {
				return fileInfo{path: path, isDir: true}, nil
			}
			return nil, spkdriver.PathNotFoundError{Path: path}
		}
		return nil, err
	}
	return fileInfo{
		path:    path,
		size:    aws.Int64Value(out.ContentLength),
		modTime: aws.TimeValue(out.LastModified),
	}, nil
}

func (d *Driver) List(path string) ([]string, error) {
	prefix := d.key(path)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	out, err := d.client.ListObjectsV2(&s3.ListObjectsV2Input{
		Bucket:    aws.String(d.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		return nil, err
	}
	results := make([]string, 0, len(out.Contents)+len(out.CommonPrefixes))
	for _, obj := range out.Contents {
		results = append(results, "/"+strings.TrimPrefix(aws.StringValue(obj.Key), d.rootDirectory+"/"))
	}
	for _, p := range out.CommonPrefixes {
		results = append(results, "/"+strings.TrimSuffix(strings.TrimPrefix(aws.StringValue(p.Prefix), d.rootDirectory+"/"), "/"))
	}
	return results, nil
}

// Move copies sourcePath to destPath then deletes the source, since S3
// has no atomic rename.
func (d *Driver) Move(sourcePath, destPath string) error {
	_, err := d.client.CopyObject(&s3.CopyObjectInput{
		Bucket:     aws.String(d.bucket),
		CopySource: aws.String(d.bucket + "/" + d.key(sourcePath)),
		Key:        aws.String(d.key(destPath)),
	})
	if err != nil {
		return parseError(sourcePath, err)
	}
	return d.Delete(sourcePath)
}

func (d *Driver) Delete(path string) error {
	_, err := d.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key(path)),
	})
	return err
}

func parseError(path string, err error) error {
	if isNotFound(err) {
		return spkdriver.PathNotFoundError{Path: path}
	}
	return err
}

func isNotFound(err error) bool {
	aerr, ok := err.(awserr.Error)
	return ok && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound")
}

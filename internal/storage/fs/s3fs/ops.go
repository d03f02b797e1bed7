package s3fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	corefs "github.com/alanyoungcy/orderbookcore/internal/storage/fs"
)

const minPartSize int64 = 5 * 1024 * 1024

// MkdirAll is a no-op: S3 keys don't require directories to pre-exist.
func (f *FileSystem) MkdirAll(_ context.Context, _ string) error {
	return nil
}

// Put uploads data at path via the multipart upload manager, which falls
// back to a single PutObject for small payloads.
func (f *FileSystem) Put(ctx context.Context, path string, data io.Reader) error {
	uploader := manager.NewUploader(f.s3, func(u *manager.Uploader) { u.PartSize = minPartSize })
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(path),
		Body:   data,
	})
	if err != nil {
		return fmt.Errorf("s3fs: put %s: %w", path, err)
	}
	return nil
}

// Open retrieves the object at path.
func (f *FileSystem) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := f.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3fs: get %s: %w", path, corefs.ErrNotFound)
		}
		return nil, fmt.Errorf("s3fs: get %s: %w", path, err)
	}
	return out.Body, nil
}

// ListRecursive lists all objects under prefix, paginating transparently.
// Returns an empty slice (not an error) if the listing comes back empty —
// the spec requires directory-listing "not found" to be treated as empty,
// matching S3's own semantics (a ListObjectsV2 on a nonexistent prefix is
// just an empty page, never an error).
func (f *FileSystem) ListRecursive(ctx context.Context, prefix string) ([]corefs.Info, error) {
	var out []corefs.Info

	paginator := s3.NewListObjectsV2Paginator(f.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(f.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3fs: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			info := corefs.Info{Path: key, Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				info.ModTime = *obj.LastModified
			}
			out = append(out, info)
		}
	}
	return out, nil
}

// Exists reports whether an object exists at path via HeadObject.
func (f *FileSystem) Exists(ctx context.Context, path string) (bool, error) {
	_, err := f.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3fs: exists %s: %w", path, err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	type httpResponseError interface{ HTTPStatusCode() int }
	var httpErr httpResponseError
	if errors.As(err, &httpErr) && httpErr.HTTPStatusCode() == 404 {
		return true
	}
	return false
}

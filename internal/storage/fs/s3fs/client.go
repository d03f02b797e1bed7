// Package s3fs implements fs.FileSystem over an S3-compatible object store
// using AWS SDK v2, adapted from the teacher's internal/blob/s3 package:
// same credential/endpoint wiring, same not-found detection, repointed at
// the fs.FileSystem port instead of the teacher's domain.BlobReader/Writer.
package s3fs

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	corefs "github.com/alanyoungcy/orderbookcore/internal/storage/fs"
)

// ClientConfig holds the configuration for connecting to an S3-compatible
// object store. All providers (AWS S3, MinIO, R2, iDrive e2, Wasabi) are
// supported via the Endpoint field.
type ClientConfig struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	ForcePathStyle bool
}

// FileSystem implements fs.FileSystem over an S3-compatible bucket. Since
// S3 has no directory concept, MkdirAll is a no-op and every path maps
// directly to an object key.
type FileSystem struct {
	s3     *s3.Client
	bucket string
}

// New creates a new FileSystem from cfg.
func New(ctx context.Context, cfg ClientConfig) (*FileSystem, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3fs: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3fs: region is required")
	}

	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("s3fs: load aws config: %w", err)
	}

	var opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint, cfg.UseSSL)
		opts = append(opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(endpoint) })
	}
	if cfg.ForcePathStyle {
		opts = append(opts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	client := s3.NewFromConfig(awsCfg, opts...)

	return &FileSystem{s3: client, bucket: cfg.Bucket}, nil
}

func normaliseEndpoint(endpoint string, useSSL bool) string {
	parsed, err := url.Parse(endpoint)
	if err == nil && parsed.Scheme != "" {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint
}

var _ corefs.FileSystem = (*FileSystem)(nil)

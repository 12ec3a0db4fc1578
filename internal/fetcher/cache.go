package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Cache holds previously exported or downloaded blobs keyed by file name.
// Open returns an error wrapping fs.ErrNotExist on a miss.
type Cache interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

type cacheWriter interface {
	Put(name string, r io.Reader) error
}

type CacheConfiguration struct {
	// Location is a directory or an s3://bucket/prefix URI.
	Location        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// NewCache returns nil when no location is configured.
func NewCache(ctx context.Context, configuration CacheConfiguration) (Cache, error) {
	if configuration.Location == "" {
		return nil, nil
	}
	if !strings.HasPrefix(configuration.Location, "s3://") {
		return DirectoryCache{Directory: configuration.Location}, nil
	}
	u, err := url.Parse(configuration.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cache location: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("cache location %q has no bucket", configuration.Location)
	}

	var options []func(*config.LoadOptions) error
	if configuration.Region != "" {
		options = append(options, config.WithRegion(configuration.Region))
	}
	if configuration.AccessKeyID != "" {
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(configuration.AccessKeyID, configuration.SecretAccessKey, ""),
		))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return S3Cache{
		Client: s3.NewFromConfig(awsConfig),
		Bucket: u.Host,
		Prefix: strings.Trim(u.Path, "/"),
	}, nil
}

// DirectoryCache is a cache on local disk. Writes are atomic.
type DirectoryCache struct {
	Directory string
}

func (cache DirectoryCache) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(cache.Directory, filepath.Base(name)))
}

func (cache DirectoryCache) Put(name string, r io.Reader) error {
	if err := os.MkdirAll(cache.Directory, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(cache.Directory, ".partial-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := io.Copy(tmp, r); err != nil {
		closeAndIgnoreError(tmp)
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(cache.Directory, filepath.Base(name)))
}

type S3GetObjecter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Cache is a read-only cache in an S3 bucket.
type S3Cache struct {
	Client S3GetObjecter
	Bucket string
	Prefix string
}

func (cache S3Cache) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := path.Join(cache.Prefix, path.Base(name))
	out, err := cache.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(cache.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("s3://%s/%s: %w", cache.Bucket, key, fs.ErrNotExist)
		}
		return nil, err
	}
	return out.Body, nil
}

package exporter

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/synthsel/ss-sync/internal/syncagent/core"
	"github.com/synthsel/ss-sync/pkg/log"
	"github.com/synthsel/ss-sync/pkg/options"
)

// ObjectStore reads artifacts from a bucket.
type ObjectStore interface {
	// ReadObject returns the full content of key.
	ReadObject(ctx context.Context, key string) ([]byte, error)

	// CheckBucket verifies that the bucket is reachable.
	CheckBucket(ctx context.Context) error
}

type minioStore struct {
	client     *minio.Client
	bucketName string
}

// NewMinIOStore creates an ObjectStore backed by an S3-compatible service.
func NewMinIOStore(opts *options.S3Options) (ObjectStore, error) {
	transport, err := minio.DefaultTransport(opts.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 transport: %w", err)
	}
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure:    opts.UseSSL,
		Region:    opts.Region,
		Transport: http.RoundTripper(transport),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &minioStore{client: client, bucketName: opts.BucketName}, nil
}

func (s *minioStore) CheckBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.bucketName)
	}
	return nil
}

func (s *minioStore) ReadObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %q: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("object %q not found in bucket %q", key, s.bucketName)
		}
		return nil, fmt.Errorf("failed to read object %q: %w", key, err)
	}
	return data, nil
}

// ObjectExporter pulls the GLB artifact from an ObjectStore.
type ObjectExporter struct {
	Store ObjectStore
	Key   string
}

var _ core.Exporter = (*ObjectExporter)(nil)

func NewObjectExporter(store ObjectStore, key string) *ObjectExporter {
	return &ObjectExporter{Store: store, Key: key}
}

func (e *ObjectExporter) ExportBinary(ctx context.Context) *core.Future {
	return core.Go(ctx, func(ctx context.Context) ([]byte, error) {
		data, err := e.Store.ReadObject(ctx, e.Key)
		if err != nil {
			return nil, err
		}
		log.Debug("Fetched model from bucket", "key", e.Key, "bytes", len(data))
		return data, nil
	})
}

// ObjectProject names the model after its object key. It is open whenever a key is set.
type ObjectProject struct {
	Key       string
	ModelName string
}

var _ core.Project = (*ObjectProject)(nil)

func (p *ObjectProject) Open() bool { return p.Key != "" }

func (p *ObjectProject) Name() string {
	if p.ModelName != "" {
		return p.ModelName
	}
	base := path.Base(p.Key)
	return base[:len(base)-len(path.Ext(base))]
}

package s3store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/encrypt"
)

// MinioAPI defines the minio-go operations used by MinioClient.
type MinioAPI interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// MinioConfig contains configuration for the minio-go client.
type MinioConfig struct {
	Endpoint    string // host[:port] without scheme, e.g. "localhost:9000"
	Region      string
	AccessKeyID string
	SecretKey   string
	UseSSL      bool
}

// MinioOption configures MinioClient.
type MinioOption func(*minioOptions)

type minioOptions struct {
	api       MinioAPI
	transport http.RoundTripper
	partSize  uint64
}

// WithMinioAPI sets a pre-configured minio client.
// Useful for testing with mocks.
func WithMinioAPI(api MinioAPI) MinioOption {
	return func(o *minioOptions) {
		o.api = api
	}
}

// WithMinioTransport sets the HTTP transport used by the minio client.
func WithMinioTransport(rt http.RoundTripper) MinioOption {
	return func(o *minioOptions) {
		o.transport = rt
	}
}

// WithMinioPartSize sets the multipart chunk size for uploads of unknown length.
func WithMinioPartSize(size uint64) MinioOption {
	return func(o *minioOptions) {
		o.partSize = size
	}
}

// MinioClient is a Client backed by minio-go. It works with MinIO and any
// other S3 compatible service.
type MinioClient struct {
	api      MinioAPI
	baseURL  string
	partSize uint64
}

// NewMinioClient creates a minio-go backed Client.
func NewMinioClient(cfg MinioConfig, opts ...MinioOption) (*MinioClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is required", ErrInvalidConfig)
	}

	options := &minioOptions{}
	for _, opt := range opts {
		opt(options)
	}

	api := options.api
	if api == nil {
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:     credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretKey, ""),
			Secure:    cfg.UseSSL,
			Region:    cfg.Region,
			Transport: options.transport,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		api = client
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}

	return &MinioClient{
		api:      api,
		baseURL:  scheme + "://" + strings.TrimSuffix(cfg.Endpoint, "/"),
		partSize: options.partSize,
	}, nil
}

// Upload implements Client.
func (c *MinioClient) Upload(ctx context.Context, in *UploadInput, progress ProgressFunc) (*UploadOutput, error) {
	opts := minio.PutObjectOptions{
		ContentType:  in.ContentType,
		StorageClass: in.StorageClass,
		UserMetadata: make(map[string]string, len(in.Metadata)+1),
		PartSize:     c.partSize,
	}
	for k, v := range in.Metadata {
		opts.UserMetadata[k] = v
	}
	// x-amz- prefixed metadata is sent as a plain header.
	if in.ACL != "" {
		opts.UserMetadata["x-amz-acl"] = in.ACL
	}
	if in.CacheControl != nil {
		opts.CacheControl = *in.CacheControl
	}
	if in.ContentDisposition != nil {
		opts.ContentDisposition = *in.ContentDisposition
	}
	if in.ServerSideEncryption != nil {
		sse, err := serverSide(*in.ServerSideEncryption, in.SSEKMSKeyID)
		if err != nil {
			return nil, err
		}
		opts.ServerSideEncryption = sse
	}

	info, err := c.api.PutObject(ctx, in.Bucket, in.Key, newProgressReader(in.Body, progress), -1, opts)
	if err != nil {
		return nil, err
	}

	location := info.Location
	if location == "" {
		location = c.baseURL + "/" + in.Bucket + "/" + in.Key
	}

	return &UploadOutput{
		Location:  location,
		ETag:      info.ETag,
		VersionID: info.VersionID,
		Bucket:    info.Bucket,
		Key:       info.Key,
	}, nil
}

// Delete implements Client.
func (c *MinioClient) Delete(ctx context.Context, bucket, key string) error {
	return c.api.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}

func serverSide(algorithm string, kmsKeyID *string) (encrypt.ServerSide, error) {
	switch algorithm {
	case "AES256":
		return encrypt.NewSSE(), nil
	case "aws:kms":
		var keyID string
		if kmsKeyID != nil {
			keyID = *kmsKeyID
		}
		return encrypt.NewSSEKMS(keyID, nil)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncryption, algorithm)
	}
}

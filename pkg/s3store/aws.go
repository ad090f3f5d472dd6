package s3store

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client defines the S3 operations used by AWSClient.
type S3Client interface {
	manager.UploadAPIClient
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// AWSConfig contains configuration for the AWS SDK client.
type AWSConfig struct {
	Region         string
	AccessKeyID    string
	SecretKey      string
	Endpoint       string // Optional: for S3-compatible services
	ForcePathStyle bool   // For S3-compatible services like MinIO
}

// AWSOption configures AWSClient.
type AWSOption func(*awsOptions)

type awsOptions struct {
	httpClient      *http.Client
	s3Client        S3Client
	s3ConfigOptions []func(*config.LoadOptions) error
	s3ClientOptions []func(*s3.Options)
	partSize        int64
	concurrency     int
}

// WithS3Client sets a custom pre-configured S3 client.
// Useful for testing with mocks.
func WithS3Client(client S3Client) AWSOption {
	return func(o *awsOptions) {
		o.s3Client = client
	}
}

// WithHTTPClient sets a custom HTTP client for S3 requests.
func WithHTTPClient(client *http.Client) AWSOption {
	return func(o *awsOptions) {
		o.httpClient = client
	}
}

// WithS3ConfigOption adds a custom AWS config option.
func WithS3ConfigOption(option func(*config.LoadOptions) error) AWSOption {
	return func(o *awsOptions) {
		o.s3ConfigOptions = append(o.s3ConfigOptions, option)
	}
}

// WithS3ClientOption adds a custom S3 client option.
func WithS3ClientOption(option func(*s3.Options)) AWSOption {
	return func(o *awsOptions) {
		o.s3ClientOptions = append(o.s3ClientOptions, option)
	}
}

// WithPartSize sets the multipart chunk size. Values below the S3 minimum of
// 5 MiB are raised to it.
func WithPartSize(size int64) AWSOption {
	return func(o *awsOptions) {
		o.partSize = size
	}
}

// WithConcurrency sets how many parts of one upload are sent in parallel.
func WithConcurrency(n int) AWSOption {
	return func(o *awsOptions) {
		o.concurrency = n
	}
}

// AWSClient is a Client backed by the AWS SDK. Bodies are streamed through the
// S3 transfer manager, which sends small files with a single PutObject and
// switches to a multipart upload for larger ones.
type AWSClient struct {
	client   S3Client
	uploader *manager.Uploader
}

// NewAWSClient creates an AWS SDK backed Client.
func NewAWSClient(ctx context.Context, cfg AWSConfig, opts ...AWSOption) (*AWSClient, error) {
	options := &awsOptions{}
	for _, opt := range opts {
		opt(options)
	}

	client := options.s3Client
	if client == nil {
		if cfg.Region == "" {
			return nil, fmt.Errorf("%w: region is required", ErrInvalidConfig)
		}

		loadOptions := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			loadOptions = append(loadOptions,
				config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID,
					cfg.SecretKey,
					"",
				)),
			)
		}
		if options.httpClient != nil {
			loadOptions = append(loadOptions, config.WithHTTPClient(options.httpClient))
		}
		loadOptions = append(loadOptions, options.s3ConfigOptions...)

		awsConfig, err := config.LoadDefaultConfig(ctx, loadOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToLoadConfig, err)
		}

		client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle

			for _, opt := range options.s3ClientOptions {
				opt(o)
			}
		})
	}

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		if options.partSize > 0 {
			u.PartSize = max(options.partSize, manager.MinUploadPartSize)
		}
		if options.concurrency > 0 {
			u.Concurrency = options.concurrency
		}
	})

	return &AWSClient{client: client, uploader: uploader}, nil
}

// Upload implements Client.
func (c *AWSClient) Upload(ctx context.Context, in *UploadInput, progress ProgressFunc) (*UploadOutput, error) {
	params := &s3.PutObjectInput{
		Bucket:             aws.String(in.Bucket),
		Key:                aws.String(in.Key),
		Body:               newProgressReader(in.Body, progress),
		CacheControl:       in.CacheControl,
		ContentDisposition: in.ContentDisposition,
		SSEKMSKeyId:        in.SSEKMSKeyID,
		Metadata:           in.Metadata,
	}
	if in.ACL != "" {
		params.ACL = types.ObjectCannedACL(in.ACL)
	}
	if in.ContentType != "" {
		params.ContentType = aws.String(in.ContentType)
	}
	if in.StorageClass != "" {
		params.StorageClass = types.StorageClass(in.StorageClass)
	}
	if in.ServerSideEncryption != nil {
		params.ServerSideEncryption = types.ServerSideEncryption(*in.ServerSideEncryption)
	}

	out, err := c.uploader.Upload(ctx, params)
	if err != nil {
		return nil, err
	}

	return &UploadOutput{
		Location:  out.Location,
		ETag:      aws.ToString(out.ETag),
		VersionID: aws.ToString(out.VersionID),
		Key:       aws.ToString(out.Key),
	}, nil
}

// Delete implements Client.
func (c *AWSClient) Delete(ctx context.Context, bucket, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return err
}

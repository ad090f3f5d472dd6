package s3store

import (
	"context"
	"fmt"
)

// Drivers supported by NewClient.
const (
	DriverAWS   = "aws"
	DriverMinio = "minio"
)

// Settings is the environment driven configuration of a Storage and its Client.
// Load it with config.Load.
type Settings struct {
	Driver         string `env:"S3_DRIVER" envDefault:"aws"`
	Region         string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint       string `env:"S3_ENDPOINT"`
	AccessKeyID    string `env:"S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"S3_SECRET_KEY"`
	ForcePathStyle bool   `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`
	UseSSL         bool   `env:"S3_USE_SSL" envDefault:"true"`

	Bucket             string `env:"S3_BUCKET"`
	ACL                string `env:"S3_ACL"`
	CacheControl       string `env:"S3_CACHE_CONTROL"`
	ContentDisposition string `env:"S3_CONTENT_DISPOSITION"`
	StorageClass       string `env:"S3_STORAGE_CLASS"`
	SSE                string `env:"S3_SSE"`
	SSEKMSKeyID        string `env:"S3_SSE_KMS_KEY_ID"`
	AutoContentType    bool   `env:"S3_AUTO_CONTENT_TYPE" envDefault:"false"`
	KeyPrefix          string `env:"S3_KEY_PREFIX"`
}

// Config converts s into a Config. Empty values keep their defaults.
func (s Settings) Config() Config {
	cfg := Config{
		Bucket:               literal(s.Bucket),
		ACL:                  literal(s.ACL),
		CacheControl:         literal(s.CacheControl),
		ContentDisposition:   literal(s.ContentDisposition),
		StorageClass:         literal(s.StorageClass),
		ServerSideEncryption: literal(s.SSE),
		SSEKMSKeyID:          literal(s.SSEKMSKeyID),
	}
	if s.AutoContentType {
		cfg.ContentType = AutoContentType
	}
	if s.KeyPrefix != "" {
		cfg.Key = UUIDKey(s.KeyPrefix)
	}
	return cfg
}

// NewClient creates the Client selected by s.Driver.
func NewClient(ctx context.Context, s Settings) (Client, error) {
	switch s.Driver {
	case DriverAWS, "":
		client, err := NewAWSClient(ctx, AWSConfig{
			Region:         s.Region,
			AccessKeyID:    s.AccessKeyID,
			SecretKey:      s.SecretKey,
			Endpoint:       s.Endpoint,
			ForcePathStyle: s.ForcePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case DriverMinio:
		client, err := NewMinioClient(MinioConfig{
			Endpoint:    s.Endpoint,
			Region:      s.Region,
			AccessKeyID: s.AccessKeyID,
			SecretKey:   s.SecretKey,
			UseSSL:      s.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, s.Driver)
	}
}

// literal returns nil for an empty value so the default applies.
func literal(v string) Param {
	if v == "" {
		return nil
	}
	return Literal(v)
}

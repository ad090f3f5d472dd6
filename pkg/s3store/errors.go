package s3store

import (
	"errors"
	"net/http"

	"github.com/aws/smithy-go"
	"github.com/minio/minio-go/v7"
)

var (
	// Construction errors
	ErrNilClient        = errors.New("storage client is nil")
	ErrBucketRequired   = errors.New("bucket must be set to a literal or a function")
	ErrUnsupportedParam = errors.New("unsupported parameter type")

	// Handle errors
	ErrNilFile   = errors.New("file or file stream is nil")
	ErrNilResult = errors.New("upload result is nil")

	// Client configuration errors
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrFailedToLoadConfig    = errors.New("failed to load AWS config")
	ErrUnknownDriver         = errors.New("unknown storage driver")
	ErrUnsupportedEncryption = errors.New("unsupported server-side encryption")
)

// IsNotFound reports whether err, as returned verbatim by Remove or Handle,
// means the bucket or object does not exist. It understands errors from both
// the AWS SDK and minio-go.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return true
		}
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		switch minioErr.Code {
		case "NoSuchKey", "NoSuchBucket":
			return true
		}
		return minioErr.StatusCode == http.StatusNotFound
	}

	return false
}

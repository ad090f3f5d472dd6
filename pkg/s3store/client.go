package s3store

import (
	"context"
	"io"
)

// Client is the object storage boundary used by Storage.
// Implementations must be safe for concurrent use.
type Client interface {
	// Upload streams in.Body to the object described by in. The body length is
	// not known in advance. progress may be nil.
	Upload(ctx context.Context, in *UploadInput, progress ProgressFunc) (*UploadOutput, error)
	// Delete removes a single object.
	Delete(ctx context.Context, bucket, key string) error
}

// UploadInput describes a streaming upload.
// Nil pointer fields are not sent to the storage service.
type UploadInput struct {
	Bucket       string
	Key          string
	ACL          string
	ContentType  string
	StorageClass string
	Metadata     map[string]string
	Body         io.Reader

	CacheControl         *string
	ContentDisposition   *string
	ServerSideEncryption *string
	SSEKMSKeyID          *string
}

// UploadOutput is what the storage service reports for a finished upload.
type UploadOutput struct {
	Location  string
	ETag      string
	VersionID string
	// Bucket and Key are the identifiers echoed by the service, if any.
	// They are left empty when the service does not report them.
	Bucket string
	Key    string
}

// Progress is a transfer progress event.
type Progress struct {
	// Loaded is the number of bytes read from the body so far.
	Loaded int64
	// Total is the full body size, or 0 while it is unknown.
	Total int64
}

// ProgressFunc receives progress events. Events of one upload are delivered
// sequentially.
type ProgressFunc func(Progress)

// optional returns nil for an empty value so that it is not sent at all.
func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

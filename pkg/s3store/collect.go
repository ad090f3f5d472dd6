package s3store

import (
	"context"
	"io"
	"net/http"

	"github.com/dmitrymomot/s3upload/pkg/async"
)

// Options holds the parameters resolved for a single upload.
type Options struct {
	Bucket               string
	Key                  string
	ACL                  string
	ContentType          string
	ContentDisposition   string
	StorageClass         string
	CacheControl         string
	ServerSideEncryption string
	SSEKMSKeyID          string
	Metadata             map[string]string

	// Body replaces the file stream when the content type resolver consumed
	// part of it.
	Body io.Reader
}

type resolved struct {
	text string
	meta map[string]string
}

// Slot positions in the gathered results.
const (
	slotBucket = iota
	slotKey
	slotACL
	slotMetadata
	slotCacheControl
	slotContentDisposition
	slotStorageClass
	slotSSE
	slotSSEKMSKeyID
)

// collect resolves every parameter for f. All resolvers except the content type
// run concurrently and the first failure is returned without waiting for the
// rest. The content type resolver runs last because it may consume the stream.
func (s *Storage) collect(ctx context.Context, r *http.Request, f *File) (*Options, error) {
	text := func(fn Func) async.Task[resolved] {
		return func(ctx context.Context) (resolved, error) {
			v, err := fn(ctx, r, f)
			return resolved{text: v}, err
		}
	}
	metadata := func(ctx context.Context) (resolved, error) {
		m, err := s.metadata(ctx, r, f)
		return resolved{meta: m}, err
	}

	values, err := async.Gather(ctx,
		text(s.bucket),
		text(s.key),
		text(s.acl),
		metadata,
		text(s.cacheControl),
		text(s.contentDisposition),
		text(s.storageClass),
		text(s.sse),
		text(s.sseKMSKeyID),
	)
	if err != nil {
		return nil, err
	}

	contentType, body, err := s.contentType(ctx, r, f)
	if err != nil {
		return nil, err
	}

	return &Options{
		Bucket:               values[slotBucket].text,
		Key:                  values[slotKey].text,
		ACL:                  values[slotACL].text,
		Metadata:             values[slotMetadata].meta,
		CacheControl:         values[slotCacheControl].text,
		ContentDisposition:   values[slotContentDisposition].text,
		StorageClass:         values[slotStorageClass].text,
		ServerSideEncryption: values[slotSSE].text,
		SSEKMSKeyID:          values[slotSSEKMSKeyID].text,
		ContentType:          contentType,
		Body:                 body,
	}, nil
}

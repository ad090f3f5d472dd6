package s3store

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/s3upload/pkg/logger"
)

// Result describes a stored object.
type Result struct {
	// Size is the total reported by the last progress event, 0 if none was.
	Size int64

	Bucket               string
	Key                  string
	ACL                  string
	ContentType          string
	ContentDisposition   string
	StorageClass         string
	ServerSideEncryption string
	SSEKMSKeyID          string
	Metadata             map[string]string

	Location  string
	ETag      string
	VersionID string

	// ObjectBucket and ObjectKey are echoed back by the storage service.
	ObjectBucket string
	ObjectKey    string
}

// Storage streams uploaded files to object storage.
// It is safe for concurrent use as long as its Client is.
type Storage struct {
	client Client

	bucket             Func
	key                Func
	acl                Func
	cacheControl       Func
	contentDisposition Func
	storageClass       Func
	sse                Func
	sseKMSKeyID        Func
	contentType        ContentTypeFunc
	metadata           MetadataFunc

	logger  *slog.Logger
	metrics *metrics
}

// Option configures Storage.
type Option func(*Storage)

// WithLogger sets the logger used for debug records. Errors are never logged;
// they are returned to the caller.
func WithLogger(l *slog.Logger) Option {
	return func(s *Storage) {
		if l != nil {
			s.logger = l.With(logger.Component("s3store"))
		}
	}
}

// WithMetrics registers upload and removal collectors with reg.
// It panics if the collectors are already registered with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Storage) {
		if reg != nil {
			s.metrics = newMetrics(reg)
		}
	}
}

// New binds every parameter of cfg and returns a Storage that uploads through
// client. It fails when client is nil, Bucket is not set or any parameter has
// an unsupported type.
func New(client Client, cfg Config, opts ...Option) (*Storage, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	bucket, err := bindBucket(cfg.Bucket)
	if err != nil {
		return nil, err
	}

	s := &Storage{
		client:      client,
		bucket:      bucket,
		key:         cfg.Key,
		contentType: cfg.ContentType,
		metadata:    cfg.Metadata,
		logger:      logger.Discard(),
	}
	if s.key == nil {
		s.key = RandomKey
	}
	if s.contentType == nil {
		s.contentType = DefaultContentType
	}
	if s.metadata == nil {
		s.metadata = noMetadata
	}

	slots := []struct {
		dst *Func
		src Param
		def Func
	}{
		{&s.acl, cfg.ACL, defaultACL},
		{&s.cacheControl, cfg.CacheControl, unset},
		{&s.contentDisposition, cfg.ContentDisposition, unset},
		{&s.storageClass, cfg.StorageClass, defaultStorageClass},
		{&s.sse, cfg.ServerSideEncryption, unset},
		{&s.sseKMSKeyID, cfg.SSEKMSKeyID, unset},
	}
	for _, slot := range slots {
		fn, err := bind(slot.src, slot.def)
		if err != nil {
			return nil, err
		}
		*slot.dst = fn
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Handle resolves the upload parameters for f and streams it to storage.
// Resolver and client errors are returned unchanged.
func (s *Storage) Handle(ctx context.Context, r *http.Request, f *File) (*Result, error) {
	if f == nil || f.Stream == nil {
		return nil, ErrNilFile
	}
	start := time.Now()

	opts, err := s.collect(ctx, r, f)
	if err != nil {
		s.metrics.uploadFailed()
		return nil, err
	}

	body := f.Stream
	if opts.Body != nil {
		body = opts.Body
	}

	in := &UploadInput{
		Bucket:               opts.Bucket,
		Key:                  opts.Key,
		ACL:                  opts.ACL,
		ContentType:          opts.ContentType,
		StorageClass:         opts.StorageClass,
		Metadata:             opts.Metadata,
		Body:                 body,
		CacheControl:         optional(opts.CacheControl),
		ContentDisposition:   optional(opts.ContentDisposition),
		ServerSideEncryption: optional(opts.ServerSideEncryption),
		SSEKMSKeyID:          optional(opts.SSEKMSKeyID),
	}

	s.logger.DebugContext(ctx, "uploading file",
		logger.Field(f.FieldName),
		logger.Filename(f.OriginalName),
		logger.Bucket(opts.Bucket),
		logger.Key(opts.Key),
		logger.ContentType(opts.ContentType),
	)

	var size atomic.Int64
	out, err := s.client.Upload(ctx, in, func(p Progress) {
		if p.Total > 0 {
			size.Store(p.Total)
		}
	})
	if err != nil {
		s.metrics.uploadFailed()
		return nil, err
	}

	res := &Result{
		Size:                 size.Load(),
		Bucket:               opts.Bucket,
		Key:                  opts.Key,
		ACL:                  opts.ACL,
		ContentType:          opts.ContentType,
		ContentDisposition:   opts.ContentDisposition,
		StorageClass:         opts.StorageClass,
		ServerSideEncryption: opts.ServerSideEncryption,
		SSEKMSKeyID:          opts.SSEKMSKeyID,
		Metadata:             opts.Metadata,
	}
	if out != nil {
		res.Location = out.Location
		res.ETag = out.ETag
		res.VersionID = out.VersionID
		res.ObjectBucket = out.Bucket
		res.ObjectKey = out.Key
	}

	elapsed := time.Since(start)
	s.metrics.uploadSucceeded(res.Size, elapsed.Seconds())
	s.logger.DebugContext(ctx, "file uploaded",
		logger.Bucket(res.Bucket),
		logger.Key(res.Key),
		logger.Size(res.Size),
		logger.Duration(elapsed),
	)

	return res, nil
}

// Remove deletes the object described by res.
func (s *Storage) Remove(ctx context.Context, _ *http.Request, res *Result) error {
	if res == nil {
		return ErrNilResult
	}

	err := s.client.Delete(ctx, res.Bucket, res.Key)
	s.metrics.removed(err)
	if err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "file removed", logger.Bucket(res.Bucket), logger.Key(res.Key))
	return nil
}

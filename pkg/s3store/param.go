package s3store

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// File is an incoming upload as handed over by the multipart middleware.
type File struct {
	// FieldName is the form field the file was sent in.
	FieldName string
	// OriginalName is the file name supplied by the client.
	OriginalName string
	// MIMEType is the part's Content-Type as declared by the client.
	// It is not trusted for the object's content type; see AutoContentType.
	MIMEType string
	// Stream yields the file content. It is read exactly once.
	Stream io.Reader
}

// Param configures one upload parameter. It is either a Literal, a Func or nil,
// in which case the parameter's default applies.
type Param interface {
	param()
}

// Literal is a constant parameter value used for every upload.
type Literal string

func (Literal) param() {}

// Func computes a parameter value for a single upload.
// It is called once per upload and may run concurrently with other Funcs of
// the same upload.
type Func func(ctx context.Context, r *http.Request, f *File) (string, error)

func (Func) param() {}

// ContentTypeFunc resolves the object's content type. It may consume the start
// of f.Stream, in which case it must return a replacement body that yields the
// complete file; a nil body means f.Stream is used unchanged.
type ContentTypeFunc func(ctx context.Context, r *http.Request, f *File) (contentType string, body io.Reader, err error)

// MetadataFunc resolves user metadata stored with the object.
type MetadataFunc func(ctx context.Context, r *http.Request, f *File) (map[string]string, error)

// Config describes how every upload parameter is resolved.
// Zero-valued fields fall back to their defaults; Bucket has none.
type Config struct {
	Bucket               Param
	Key                  Func
	ACL                  Param
	ContentType          ContentTypeFunc
	Metadata             MetadataFunc
	CacheControl         Param
	ContentDisposition   Param
	StorageClass         Param
	ServerSideEncryption Param
	SSEKMSKeyID          Param
}

// bind turns a configured Param into the Func used at upload time.
func bind(p Param, def Func) (Func, error) {
	switch v := p.(type) {
	case nil:
		return def, nil
	case Literal:
		return static(string(v)), nil
	case Func:
		if v == nil {
			return def, nil
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedParam, p)
	}
}

func bindBucket(p Param) (Func, error) {
	switch v := p.(type) {
	case nil:
		return nil, ErrBucketRequired
	case Literal:
		if v == "" {
			return nil, ErrBucketRequired
		}
	case Func:
		if v == nil {
			return nil, ErrBucketRequired
		}
	}
	return bind(p, nil)
}

func static(value string) Func {
	return func(context.Context, *http.Request, *File) (string, error) {
		return value, nil
	}
}

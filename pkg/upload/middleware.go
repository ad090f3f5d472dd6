package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/s3upload/pkg/logger"
	"github.com/dmitrymomot/s3upload/pkg/s3store"
)

// Engine stores and removes uploaded files. *s3store.Storage implements it.
type Engine interface {
	Handle(ctx context.Context, r *http.Request, f *s3store.File) (*s3store.Result, error)
	Remove(ctx context.Context, r *http.Request, res *s3store.Result) error
}

var _ Engine = (*s3store.Storage)(nil)

// ErrorHandlerFunc writes the response for a failed upload request.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

// DefaultMaxFieldBytes limits the size of a single text field.
const DefaultMaxFieldBytes = 1 << 20

// Option configures Middleware.
type Option func(*options)

type options struct {
	fields       []string
	maxFiles     int
	maxBytes     int64
	maxField     int64
	logger       *slog.Logger
	errorHandler ErrorHandlerFunc
}

// WithFields restricts file parts to the given form fields.
// By default files are accepted from any field.
func WithFields(names ...string) Option {
	return func(o *options) {
		o.fields = append(o.fields, names...)
	}
}

// WithMaxFiles limits the number of files in one request.
func WithMaxFiles(n int) Option {
	return func(o *options) {
		o.maxFiles = n
	}
}

// WithMaxBytes limits the size of the whole request body.
func WithMaxBytes(n int64) Option {
	return func(o *options) {
		o.maxBytes = n
	}
}

// WithMaxFieldBytes limits the size of a single text field.
// Defaults to DefaultMaxFieldBytes.
func WithMaxFieldBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxField = n
		}
	}
}

// WithLogger sets the logger for cleanup warnings and debug records.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.With(logger.Component("upload"))
		}
	}
}

// WithErrorHandler replaces DefaultErrorHandler.
func WithErrorHandler(h ErrorHandlerFunc) Option {
	return func(o *options) {
		if h != nil {
			o.errorHandler = h
		}
	}
}

// DefaultErrorHandler responds with the status text of StatusCode(err).
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status := StatusCode(err)
	http.Error(w, http.StatusText(status), status)
}

// StatusCode maps an upload error to an HTTP status code.
func StatusCode(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrNotMultipart),
		errors.Is(err, ErrMalformedForm),
		errors.Is(err, ErrUnexpectedField),
		errors.Is(err, ErrTooManyFiles):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Middleware streams every file part of a multipart/form-data request to
// engine before calling next. Stored files are available through Files and
// text fields through Fields.
//
// When any part fails, the files stored so far are removed and the error
// handler is called instead of next.
func Middleware(engine Engine, opts ...Option) func(next http.Handler) http.Handler {
	if engine == nil {
		panic(ErrNilEngine)
	}

	o := &options{
		maxField:     DefaultMaxFieldBytes,
		logger:       logger.Discard(),
		errorHandler: DefaultErrorHandler,
	}
	for _, opt := range opts {
		opt(o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if o.maxBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, o.maxBytes)
			}

			mr, err := r.MultipartReader()
			if err != nil {
				o.errorHandler(w, r, fmt.Errorf("%w: %v", ErrNotMultipart, err))
				return
			}

			ctx := r.Context()
			fields := url.Values{}
			files, err := o.process(ctx, engine, r, mr, fields)
			if err != nil {
				if cleanupErr := removeAll(context.WithoutCancel(ctx), engine, r, files); cleanupErr != nil {
					o.logger.WarnContext(ctx, "failed to remove stored files",
						logger.Error(cleanupErr),
						slog.Int("files", len(files)),
					)
					err = errors.Join(err, cleanupErr)
				}
				o.errorHandler(w, r, err)
				return
			}

			ctx = setFiles(ctx, files)
			ctx = setFields(ctx, fields)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// process consumes the multipart body. It returns the files stored so far
// even when it fails, so that they can be removed.
func (o *options) process(ctx context.Context, engine Engine, r *http.Request, mr *multipart.Reader, fields url.Values) ([]StoredFile, error) {
	var files []StoredFile

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return files, nil
		}
		if err != nil {
			return files, malformed(err)
		}

		name := part.FormName()
		if part.FileName() == "" {
			value, err := io.ReadAll(io.LimitReader(part, o.maxField+1))
			_ = part.Close()
			if err != nil {
				return files, malformed(err)
			}
			if int64(len(value)) > o.maxField {
				return files, fmt.Errorf("%w: field %s exceeds %d bytes", ErrMalformedForm, name, o.maxField)
			}
			fields.Add(name, string(value))
			continue
		}

		if len(o.fields) > 0 && !slices.Contains(o.fields, name) {
			_ = part.Close()
			return files, fmt.Errorf("%w: %s", ErrUnexpectedField, name)
		}
		if o.maxFiles > 0 && len(files) >= o.maxFiles {
			_ = part.Close()
			return files, fmt.Errorf("%w: limit is %d", ErrTooManyFiles, o.maxFiles)
		}

		f := &s3store.File{
			FieldName:    name,
			OriginalName: part.FileName(),
			MIMEType:     part.Header.Get("Content-Type"),
			Stream:       part,
		}
		res, err := engine.Handle(ctx, r, f)
		_ = part.Close()
		if err != nil {
			return files, err
		}

		o.logger.DebugContext(ctx, "file stored",
			logger.Field(name),
			logger.Filename(f.OriginalName),
			logger.Key(res.Key),
			logger.Size(res.Size),
		)
		files = append(files, StoredFile{
			FieldName:    f.FieldName,
			OriginalName: f.OriginalName,
			MIMEType:     f.MIMEType,
			Result:       res,
		})
	}
}

// malformed marks multipart read errors as client errors, except for an
// exceeded body limit which keeps its own status.
func malformed(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrMalformedForm, err)
}

// removeAll removes files concurrently and joins every removal error.
func removeAll(ctx context.Context, engine Engine, r *http.Request, files []StoredFile) error {
	if len(files) == 0 {
		return nil
	}

	errs := make([]error, len(files))
	var g errgroup.Group
	for i, f := range files {
		g.Go(func() error {
			if err := engine.Remove(ctx, r, f.Result); err != nil {
				errs[i] = fmt.Errorf("remove %s/%s: %w", f.Bucket, f.Key, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

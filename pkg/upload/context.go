package upload

import (
	"context"
	"net/url"

	"github.com/dmitrymomot/s3upload/pkg/s3store"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{ name string }

// String returns the name of the context key.
func (c contextKey) String() string { return c.name }

var (
	filesContextKey  = &contextKey{name: "upload_files"}
	fieldsContextKey = &contextKey{name: "upload_fields"}
)

// StoredFile is a file part stored by the engine.
type StoredFile struct {
	FieldName    string
	OriginalName string
	// MIMEType is the Content-Type declared by the client for the part.
	MIMEType string

	*s3store.Result
}

func setFiles(ctx context.Context, files []StoredFile) context.Context {
	return context.WithValue(ctx, filesContextKey, files)
}

func setFields(ctx context.Context, fields url.Values) context.Context {
	return context.WithValue(ctx, fieldsContextKey, fields)
}

// Files returns the files stored by Middleware in the order they were received.
func Files(ctx context.Context) []StoredFile {
	files, _ := ctx.Value(filesContextKey).([]StoredFile)
	return files
}

// File returns the first stored file sent in the given form field.
func File(ctx context.Context, field string) (StoredFile, bool) {
	for _, f := range Files(ctx) {
		if f.FieldName == field {
			return f, true
		}
	}
	return StoredFile{}, false
}

// Fields returns the text fields of the multipart form.
// It never returns nil.
func Fields(ctx context.Context) url.Values {
	fields, ok := ctx.Value(fieldsContextKey).(url.Values)
	if !ok {
		return url.Values{}
	}
	return fields
}

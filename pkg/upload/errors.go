package upload

import "errors"

var (
	ErrNotMultipart    = errors.New("request is not multipart/form-data")
	ErrMalformedForm   = errors.New("malformed multipart form")
	ErrUnexpectedField = errors.New("unexpected file field")
	ErrTooManyFiles    = errors.New("too many files")
	ErrNilEngine       = errors.New("upload engine is nil")
)

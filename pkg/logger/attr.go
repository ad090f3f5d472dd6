package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Bucket records the destination bucket.
func Bucket(name string) slog.Attr {
	return slog.String("bucket", name)
}

// Key records the object key.
func Key(key string) slog.Attr {
	return slog.String("key", key)
}

// Size records a byte count under the key "size".
func Size(n int64) slog.Attr {
	return slog.Int64("size", n)
}

// Field records the multipart form field name.
func Field(name string) slog.Attr {
	return slog.String("field", name)
}

// Filename records the client supplied file name.
func Filename(name string) slog.Attr {
	return slog.String("filename", name)
}

func ContentType(ct string) slog.Attr {
	return slog.String("content_type", ct)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

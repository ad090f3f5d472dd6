package s3store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultACL          = "private"
	DefaultStorageClass = "STANDARD"
	OctetStream         = "application/octet-stream"
)

// RandomKey is the default key: 16 random bytes, hex encoded.
var RandomKey Func = func(context.Context, *http.Request, *File) (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// UUIDKey returns a key function producing prefix + random UUID + the lower-cased
// extension of the original file name, e.g. "avatars/5f0c...e1.png".
func UUIDKey(prefix string) Func {
	return func(_ context.Context, _ *http.Request, f *File) (string, error) {
		id, err := uuid.NewRandom()
		if err != nil {
			return "", err
		}
		var ext string
		if f != nil {
			ext = strings.ToLower(filepath.Ext(f.OriginalName))
		}
		return prefix + id.String() + ext, nil
	}
}

// FilenameKey returns a key function producing prefix + random UUID + "/" +
// the sanitized original file name, e.g. "docs/5f0c...e1/report.pdf".
func FilenameKey(prefix string) Func {
	return func(_ context.Context, _ *http.Request, f *File) (string, error) {
		id, err := uuid.NewRandom()
		if err != nil {
			return "", err
		}
		var name string
		if f != nil {
			name = f.OriginalName
		}
		return prefix + id.String() + "/" + sanitizeFilename(name), nil
	}
}

// sanitizeFilename strips any path from a client supplied file name.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.ReplaceAll(name, "\x00", "")

	if name == "." || name == ".." || name == "" || name == "/" {
		return "unnamed"
	}
	return name
}

// DefaultContentType sets every object to application/octet-stream without
// looking at the content.
var DefaultContentType ContentTypeFunc = func(context.Context, *http.Request, *File) (string, io.Reader, error) {
	return OctetStream, nil, nil
}

func noMetadata(context.Context, *http.Request, *File) (map[string]string, error) {
	return nil, nil
}

var (
	defaultACL          = static(DefaultACL)
	defaultStorageClass = static(DefaultStorageClass)
	unset               = static("")
)

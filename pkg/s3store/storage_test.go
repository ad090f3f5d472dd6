package s3store_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/s3upload/pkg/logger"
	"github.com/dmitrymomot/s3upload/pkg/s3store"
)

// MockClient is a mock implementation of the s3store.Client interface.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Upload(ctx context.Context, in *s3store.UploadInput, progress s3store.ProgressFunc) (*s3store.UploadOutput, error) {
	args := m.Called(ctx, in, progress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3store.UploadOutput), args.Error(1)
}

func (m *MockClient) Delete(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

// uploadRecorder captures the input of an Upload call, drains the body and
// reports the given progress events.
type uploadRecorder struct {
	mu     sync.Mutex
	input  *s3store.UploadInput
	body   []byte
	events func(n int64) []s3store.Progress
}

func (u *uploadRecorder) run(args mock.Arguments) {
	in := args.Get(1).(*s3store.UploadInput)
	body, _ := io.ReadAll(in.Body)

	u.mu.Lock()
	u.input = in
	u.body = body
	u.mu.Unlock()

	progress := args.Get(2).(s3store.ProgressFunc)
	events := []s3store.Progress{{Loaded: int64(len(body)), Total: int64(len(body))}}
	if u.events != nil {
		events = u.events(int64(len(body)))
	}
	for _, e := range events {
		progress(e)
	}
}

var (
	pngFile = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 60)...)
	svgFile = []byte(`<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`)
)

func newFile(data []byte) *s3store.File {
	return &s3store.File{
		FieldName:    "image",
		OriginalName: "image.bin",
		MIMEType:     "application/octet-stream",
		Stream:       bytes.NewReader(data),
	}
}

func newRequest() *http.Request {
	return httptest.NewRequest(http.MethodPost, "/upload", nil)
}

func TestNew(t *testing.T) {
	t.Parallel()

	type foreignParam struct{ s3store.Literal }

	tests := []struct {
		name    string
		client  s3store.Client
		cfg     s3store.Config
		wantErr error
	}{
		{
			name:    "nil client",
			cfg:     s3store.Config{Bucket: s3store.Literal("test")},
			wantErr: s3store.ErrNilClient,
		},
		{
			name:    "bucket omitted",
			client:  &MockClient{},
			cfg:     s3store.Config{},
			wantErr: s3store.ErrBucketRequired,
		},
		{
			name:    "empty bucket literal",
			client:  &MockClient{},
			cfg:     s3store.Config{Bucket: s3store.Literal("")},
			wantErr: s3store.ErrBucketRequired,
		},
		{
			name:    "nil bucket func",
			client:  &MockClient{},
			cfg:     s3store.Config{Bucket: s3store.Func(nil)},
			wantErr: s3store.ErrBucketRequired,
		},
		{
			name:    "unsupported bucket type",
			client:  &MockClient{},
			cfg:     s3store.Config{Bucket: foreignParam{"test"}},
			wantErr: s3store.ErrUnsupportedParam,
		},
		{
			name:   "unsupported acl type",
			client: &MockClient{},
			cfg: s3store.Config{
				Bucket: s3store.Literal("test"),
				ACL:    foreignParam{"public-read"},
			},
			wantErr: s3store.ErrUnsupportedParam,
		},
		{
			name:   "literal and func parameters",
			client: &MockClient{},
			cfg: s3store.Config{
				Bucket: s3store.Func(func(context.Context, *http.Request, *s3store.File) (string, error) {
					return "test", nil
				}),
				ACL:          s3store.Literal("public-read"),
				StorageClass: s3store.Func(nil),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store, err := s3store.New(tt.client, tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, store)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, store)
		})
	}
}

func TestHandle_Defaults(t *testing.T) {
	t.Parallel()

	client := &MockClient{}
	rec := &uploadRecorder{}
	client.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Run(rec.run).
		Return(&s3store.UploadOutput{
			Location: "https://test.s3.amazonaws.com/key",
			ETag:     `"d41d8cd98f00b204e9800998ecf8427e"`,
		}, nil)

	store, err := s3store.New(client, s3store.Config{Bucket: s3store.Literal("test")})
	require.NoError(t, err)

	data := bytes.Repeat([]byte{0x01}, 68)
	res, err := store.Handle(context.Background(), newRequest(), newFile(data))
	require.NoError(t, err)

	assert.Equal(t, "test", res.Bucket)
	assert.Equal(t, int64(68), res.Size)
	assert.Equal(t, "private", res.ACL)
	assert.Equal(t, "STANDARD", res.StorageClass)
	assert.Equal(t, "application/octet-stream", res.ContentType)
	assert.Equal(t, "https://test.s3.amazonaws.com/key", res.Location)
	assert.Equal(t, `"d41d8cd98f00b204e9800998ecf8427e"`, res.ETag)
	assert.Len(t, res.Key, 32, "default key is 16 random bytes in hex")
	assert.Empty(t, res.ContentDisposition)
	assert.Empty(t, res.ServerSideEncryption)
	assert.Nil(t, res.Metadata)

	require.NotNil(t, rec.input)
	assert.Equal(t, data, rec.body)
	assert.Equal(t, "test", rec.input.Bucket)
	assert.Equal(t, res.Key, rec.input.Key)
	assert.Nil(t, rec.input.ContentDisposition)
	assert.Nil(t, rec.input.CacheControl)
	assert.Nil(t, rec.input.ServerSideEncryption)
	assert.Nil(t, rec.input.SSEKMSKeyID)

	client.AssertExpectations(t)
}

func TestHandle_AutoContentTypeWithKMS(t *testing.T) {
	t.Parallel()

	client := &MockClient{}
	rec := &uploadRecorder{}
	client.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Run(rec.run).
		Return(&s3store.UploadOutput{ETag: `"etag"`}, nil)

	store, err := s3store.New(client, s3store.Config{
		Bucket:               s3store.Literal("test"),
		ServerSideEncryption: s3store.Literal("aws:kms"),
		ContentType:          s3store.AutoContentType,
	})
	require.NoError(t, err)

	res, err := store.Handle(context.Background(), newRequest(), newFile(pngFile))
	require.NoError(t, err)

	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, "aws:kms", res.ServerSideEncryption)
	assert.Equal(t, int64(len(pngFile)), res.Size)

	assert.Equal(t, pngFile, rec.body, "sniffed bytes must not be lost")
	require.NotNil(t, rec.input.ServerSideEncryption)
	assert.Equal(t, "aws:kms", *rec.input.ServerSideEncryption)
	assert.Equal(t, "image/png", rec.input.ContentType)
}

func TestHandle_ResolvedParameters(t *testing.T) {
	t.Parallel()

	client := &MockClient{}
	rec := &uploadRecorder{}
	client.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Run(rec.run).
		Return(&s3store.UploadOutput{Bucket: "echo-bucket", Key: "echo-key", VersionID: "v1"}, nil)

	slow := func(d time.Duration, v string) s3store.Func {
		return func(context.Context, *http.Request, *s3store.File) (string, error) {
			time.Sleep(d)
			return v, nil
		}
	}

	store, err := s3store.New(client, s3store.Config{
		Bucket: slow(40*time.Millisecond, "bucket"),
		Key: func(_ context.Context, r *http.Request, f *s3store.File) (string, error) {
			return r.URL.Path + "/" + f.OriginalName, nil
		},
		ACL:                slow(10*time.Millisecond, "public-read"),
		CacheControl:       slow(30*time.Millisecond, "max-age=60"),
		ContentDisposition: s3store.Literal("attachment"),
		StorageClass:       slow(20*time.Millisecond, "REDUCED_REDUNDANCY"),
		SSEKMSKeyID:        s3store.Literal("kms-key"),
		Metadata: func(_ context.Context, _ *http.Request, f *s3store.File) (map[string]string, error) {
			return map[string]string{"field": f.FieldName}, nil
		},
	})
	require.NoError(t, err)

	res, err := store.Handle(context.Background(), newRequest(), newFile([]byte("hello")))
	require.NoError(t, err)

	assert.Equal(t, "bucket", res.Bucket)
	assert.Equal(t, "/upload/image.bin", res.Key)
	assert.Equal(t, "public-read", res.ACL)
	assert.Equal(t, "REDUCED_REDUNDANCY", res.StorageClass)
	assert.Equal(t, "attachment", res.ContentDisposition)
	assert.Equal(t, "kms-key", res.SSEKMSKeyID)
	assert.Equal(t, map[string]string{"field": "image"}, res.Metadata)
	assert.Equal(t, "echo-bucket", res.ObjectBucket)
	assert.Equal(t, "echo-key", res.ObjectKey)
	assert.Equal(t, "v1", res.VersionID)

	require.NotNil(t, rec.input.ContentDisposition)
	assert.Equal(t, "attachment", *rec.input.ContentDisposition)
	require.NotNil(t, rec.input.CacheControl)
	assert.Equal(t, "max-age=60", *rec.input.CacheControl)
	require.NotNil(t, rec.input.SSEKMSKeyID)
	assert.Equal(t, "kms-key", *rec.input.SSEKMSKeyID)
}

func TestHandle_EmptyContentDispositionIsNotSent(t *testing.T) {
	t.Parallel()

	client := &MockClient{}
	rec := &uploadRecorder{}
	client.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Run(rec.run).
		Return(&s3store.UploadOutput{}, nil)

	store, err := s3store.New(client, s3store.Config{
		Bucket: s3store.Literal("test"),
		ContentDisposition: s3store.Func(func(context.Context, *http.Request, *s3store.File) (string, error) {
			return "", nil
		}),
	})
	require.NoError(t, err)

	_, err = store.Handle(context.Background(), newRequest(), newFile([]byte("x")))
	require.NoError(t, err)
	assert.Nil(t, rec.input.ContentDisposition)
}

func TestHandle_ProgressSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		events func(n int64) []s3store.Progress
		want   int64
	}{
		{
			name:   "no events",
			events: func(int64) []s3store.Progress { return nil },
			want:   0,
		},
		{
			name: "events without total",
			events: func(n int64) []s3store.Progress {
				return []s3store.Progress{{Loaded: 1}, {Loaded: n}}
			},
			want: 0,
		},
		{
			name: "last total wins",
			events: func(n int64) []s3store.Progress {
				return []s3store.Progress{{Loaded: 1, Total: 100}, {Loaded: n, Total: 42}, {Loaded: n}}
			},
			want: 42,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := &MockClient{}
			rec := &uploadRecorder{events: tt.events}
			client.On("Upload", mock.Anything, mock.Anything, mock.Anything).
				Run(rec.run).
				Return(&s3store.UploadOutput{}, nil)

			store, err := s3store.New(client, s3store.Config{Bucket: s3store.Literal("test")})
			require.NoError(t, err)

			res, err := store.Handle(context.Background(), newRequest(), newFile([]byte("some bytes")))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Size)
		})
	}
}

func TestHandle_ResolverErrorFailsFast(t *testing.T) {
	t.Parallel()

	boom := errors.New("metadata unavailable")
	release := make(chan struct{})
	defer close(release)

	var contentTypeCalls atomic.Int32
	client := &MockClient{}
	store, err := s3store.New(client, s3store.Config{
		Bucket: s3store.Func(func(context.Context, *http.Request, *s3store.File) (string, error) {
			<-release
			return "test", nil
		}),
		Metadata: func(context.Context, *http.Request, *s3store.File) (map[string]string, error) {
			return nil, boom
		},
		ContentType: func(context.Context, *http.Request, *s3store.File) (string, io.Reader, error) {
			contentTypeCalls.Add(1)
			return "text/plain", nil, nil
		},
	})
	require.NoError(t, err)

	start := time.Now()
	res, err := store.Handle(context.Background(), newRequest(), newFile([]byte("x")))
	assert.Nil(t, res)
	assert.Same(t, boom, err, "resolver errors are returned unchanged")
	assert.Less(t, time.Since(start), time.Second)
	assert.Zero(t, contentTypeCalls.Load(), "content type must not be resolved after a failure")

	client.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_FailingACLSkipsContentType(t *testing.T) {
	t.Parallel()

	boom := errors.New("x")
	var contentTypeCalls atomic.Int32
	client := &MockClient{}
	store, err := s3store.New(client, s3store.Config{
		Bucket: s3store.Literal("test"),
		ACL: s3store.Func(func(context.Context, *http.Request, *s3store.File) (string, error) {
			return "", boom
		}),
		ContentType: func(context.Context, *http.Request, *s3store.File) (string, io.Reader, error) {
			contentTypeCalls.Add(1)
			return "text/plain", nil, nil
		},
	})
	require.NoError(t, err)

	_, err = store.Handle(context.Background(), newRequest(), newFile([]byte("x")))
	assert.Same(t, boom, err)
	assert.Zero(t, contentTypeCalls.Load())
	client.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_ContentTypeError(t *testing.T) {
	t.Parallel()

	boom := errors.New("sniff failed")
	var calls int
	client := &MockClient{}
	store, err := s3store.New(client, s3store.Config{
		Bucket: s3store.Literal("test"),
		ContentType: func(context.Context, *http.Request, *s3store.File) (string, io.Reader, error) {
			calls++
			return "", nil, boom
		},
	})
	require.NoError(t, err)

	_, err = store.Handle(context.Background(), newRequest(), newFile([]byte("x")))
	assert.Same(t, boom, err)
	assert.Equal(t, 1, calls)
	client.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandle_ContentTypeRunsAfterOtherResolvers(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var order []string
	record := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, name)
	}

	client := &MockClient{}
	client.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(&s3store.UploadOutput{}, nil)

	store, err := s3store.New(client, s3store.Config{
		Bucket: s3store.Func(func(context.Context, *http.Request, *s3store.File) (string, error) {
			time.Sleep(20 * time.Millisecond)
			record("bucket")
			return "test", nil
		}),
		ContentType: func(context.Context, *http.Request, *s3store.File) (string, io.Reader, error) {
			record("content-type")
			return "text/plain", nil, nil
		},
	})
	require.NoError(t, err)

	_, err = store.Handle(context.Background(), newRequest(), newFile([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, []string{"bucket", "content-type"}, order)
}

func TestHandle_ClientError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	client := &MockClient{}
	client.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)

	store, err := s3store.New(client, s3store.Config{Bucket: s3store.Literal("test")})
	require.NoError(t, err)

	res, err := store.Handle(context.Background(), newRequest(), newFile([]byte("x")))
	assert.Nil(t, res)
	assert.Same(t, boom, err)
}

func TestHandle_NilFile(t *testing.T) {
	t.Parallel()

	store, err := s3store.New(&MockClient{}, s3store.Config{Bucket: s3store.Literal("test")})
	require.NoError(t, err)

	_, err = store.Handle(context.Background(), newRequest(), nil)
	assert.ErrorIs(t, err, s3store.ErrNilFile)

	_, err = store.Handle(context.Background(), newRequest(), &s3store.File{FieldName: "image"})
	assert.ErrorIs(t, err, s3store.ErrNilFile)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	t.Run("deletes by bucket and key", func(t *testing.T) {
		t.Parallel()

		client := &MockClient{}
		client.On("Delete", mock.Anything, "test", "some/key").Return(nil)

		store, err := s3store.New(client, s3store.Config{Bucket: s3store.Literal("other")})
		require.NoError(t, err)

		err = store.Remove(context.Background(), newRequest(), &s3store.Result{Bucket: "test", Key: "some/key"})
		require.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("client error is returned unchanged", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("access denied")
		client := &MockClient{}
		client.On("Delete", mock.Anything, "test", "key").Return(boom)

		store, err := s3store.New(client, s3store.Config{Bucket: s3store.Literal("test")})
		require.NoError(t, err)

		err = store.Remove(context.Background(), newRequest(), &s3store.Result{Bucket: "test", Key: "key"})
		assert.Same(t, boom, err)
	})

	t.Run("nil result", func(t *testing.T) {
		t.Parallel()

		store, err := s3store.New(&MockClient{}, s3store.Config{Bucket: s3store.Literal("test")})
		require.NoError(t, err)
		assert.ErrorIs(t, store.Remove(context.Background(), newRequest(), nil), s3store.ErrNilResult)
	})
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	client := &MockClient{}
	rec := &uploadRecorder{}
	client.On("Upload", mock.Anything, mock.Anything, mock.Anything).Run(rec.run).Return(&s3store.UploadOutput{}, nil).Once()
	client.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()
	client.On("Delete", mock.Anything, "test", "key").Return(nil)

	store, err := s3store.New(client, s3store.Config{Bucket: s3store.Literal("test")}, s3store.WithMetrics(reg))
	require.NoError(t, err)

	_, err = store.Handle(context.Background(), newRequest(), newFile(make([]byte, 68)))
	require.NoError(t, err)
	_, err = store.Handle(context.Background(), newRequest(), newFile(make([]byte, 10)))
	require.Error(t, err)
	require.NoError(t, store.Remove(context.Background(), newRequest(), &s3store.Result{Bucket: "test", Key: "key"}))

	expected := `
# HELP s3upload_uploads_total Total number of handled uploads by result
# TYPE s3upload_uploads_total counter
s3upload_uploads_total{result="failure"} 1
s3upload_uploads_total{result="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "s3upload_uploads_total"))

	expected = `
# HELP s3upload_uploaded_bytes_total Total number of bytes stored by successful uploads
# TYPE s3upload_uploaded_bytes_total counter
s3upload_uploaded_bytes_total 68
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "s3upload_uploaded_bytes_total"))

	expected = `
# HELP s3upload_removals_total Total number of object removals by result
# TYPE s3upload_removals_total counter
s3upload_removals_total{result="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "s3upload_removals_total"))
}

func TestHandle_Logging(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	log := logger.New(
		logger.WithOutput(&logs),
		logger.WithFormat(logger.FormatText),
		logger.WithLevel(slog.LevelDebug),
	)

	client := &MockClient{}
	rec := &uploadRecorder{}
	client.On("Upload", mock.Anything, mock.Anything, mock.Anything).Run(rec.run).Return(&s3store.UploadOutput{}, nil)

	store, err := s3store.New(client, s3store.Config{
		Bucket: s3store.Literal("test"),
		Key:    s3store.Func(func(context.Context, *http.Request, *s3store.File) (string, error) { return "fixed", nil }),
	}, s3store.WithLogger(log))
	require.NoError(t, err)

	_, err = store.Handle(context.Background(), newRequest(), newFile([]byte("hello")))
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "component=s3store")
	assert.Contains(t, out, `msg="uploading file"`)
	assert.Contains(t, out, `msg="file uploaded"`)
	assert.Contains(t, out, "key=fixed")
	assert.Contains(t, out, "size=5")
	assert.NotContains(t, out, "level=ERROR")
}

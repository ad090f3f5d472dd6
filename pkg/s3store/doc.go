// Package s3store is an upload storage engine that streams files straight to
// S3 compatible object storage.
//
// Every upload parameter is configured through Config. Parameters accept a
// Literal, a Func evaluated for every upload, or nothing at all in which case
// a default applies:
//
//	store, err := s3store.New(client, s3store.Config{
//		Bucket:      s3store.Literal("media"),
//		Key:         s3store.UUIDKey("avatars/"),
//		ContentType: s3store.AutoContentType,
//		ServerSideEncryption: s3store.Func(func(ctx context.Context, r *http.Request, f *s3store.File) (string, error) {
//			return "aws:kms", nil
//		}),
//	})
//
// Per-upload parameters are resolved concurrently. The first failing resolver
// aborts the upload and its error is returned as is. AutoContentType sniffs
// the first bytes of the stream and hands back a body that replays them, so
// nothing is buffered beyond the sniffing window.
//
// Two Client implementations are provided: AWSClient built on the AWS SDK
// transfer manager and MinioClient built on minio-go. NewClient picks one from
// Settings loaded from the environment.
package s3store

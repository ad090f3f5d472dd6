// Package upload provides HTTP middleware that streams multipart/form-data
// file parts to a storage engine such as s3store.Storage.
//
// Files are handed to the engine one at a time while the request body is read,
// so nothing is buffered on disk or in memory:
//
//	store, _ := s3store.New(client, s3store.Config{Bucket: s3store.Literal("media")})
//
//	r := chi.NewRouter()
//	r.With(upload.Middleware(store,
//		upload.WithFields("avatar"),
//		upload.WithMaxFiles(1),
//		upload.WithMaxBytes(10<<20),
//	)).Post("/avatar", func(w http.ResponseWriter, r *http.Request) {
//		avatar, _ := upload.File(r.Context(), "avatar")
//		fmt.Fprintln(w, avatar.Location)
//	})
//
// If a part cannot be stored, files already stored for the request are removed
// and the error handler responds with StatusCode(err).
package upload

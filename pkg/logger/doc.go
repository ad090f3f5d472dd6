// Package logger builds *slog.Logger instances with functional options and
// provides attribute helpers so that upload logs use the same keys everywhere.
//
// # Usage
//
//	import "github.com/dmitrymomot/s3upload/pkg/logger"
//
//	log := logger.New(
//	    logger.WithEnvironment(os.Getenv("APP_ENV"), "uploads"),
//	    logger.WithContextValue("request_id", requestIDKey{}),
//	)
//
//	log.DebugContext(ctx, "object stored",
//	    logger.Bucket(res.Bucket),
//	    logger.Key(res.Key),
//	    logger.Size(res.Size),
//	)
//
// The same logger can be handed to the storage engine and the middleware,
// which tag their records with component=s3store and component=upload:
//
//	log := logger.New(logger.WithDevelopment("uploads"))
//	logger.SetAsDefault(log)
//
//	store, err := s3store.New(client, cfg, s3store.WithLogger(log))
//	mw := upload.Middleware(store, upload.WithLogger(log))
//
// # Configuration
//
//   - WithDevelopment / WithProduction / WithEnvironment: format and level presets.
//   - WithFormat, WithLevel, WithOutput: individual overrides.
//   - WithAttr: static attributes on every record.
//   - WithContextExtractors / WithContextValue: attributes pulled from the
//     record's context at log time.
//
// Discard returns a logger that drops everything; libraries use it as their
// default so they stay silent unless a logger is injected.
//
// # Error Handling
//
// Error and Errors return an empty attribute for nil errors, which slog
// ignores, so no nil check is needed at the call site.
package logger

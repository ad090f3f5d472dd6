// Package config loads application configuration from environment variables
// into typed structs.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
//
//   - The default `.env` file in the working directory is loaded once, if present.
//   - Extra `.env` files can be requested per call with WithEnvFiles.
//   - Structs are populated from `env` / `envDefault` field tags.
//   - Every configuration type is parsed once and cached; WithPrefix keeps a
//     separate cache entry per prefix so one struct can describe several
//     storages (for example AVATARS_S3_BUCKET and DOCS_S3_BUCKET).
//
// # Usage
//
//	import (
//	    "github.com/dmitrymomot/s3upload/pkg/config"
//	    "github.com/dmitrymomot/s3upload/pkg/s3store"
//	)
//
//	var settings s3store.Settings
//	if err := config.Load(&settings, config.WithPrefix("AVATARS_")); err != nil {
//	    log.Fatal(err)
//	}
//
// MustLoad panics instead of returning an error, for configuration the
// process cannot start without. Reset clears the cache between tests.
//
// # Error Handling
//
// Parsing failures are joined with ErrParsingConfig and missing explicit env
// files with ErrLoadingEnvFile, so callers can use errors.Is. A failed parse is
// not cached.
package config

package config

import "errors"

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into the config struct
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrLoadingEnvFile is returned when an explicitly requested .env file cannot be read
	ErrLoadingEnvFile = errors.New("failed to load env file")

	// ErrConfigNotLoaded is returned when a concurrent load failed before the value was cached
	ErrConfigNotLoaded = errors.New("configuration has not been loaded")

	ErrNilPointer = errors.New("nil pointer provided to config loader")
)

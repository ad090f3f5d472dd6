package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/s3upload/pkg/config"
)

type defaultsConfig struct {
	Bucket string `env:"CFG_TEST_DEFAULT_BUCKET" envDefault:"uploads"`
	Parts  int    `env:"CFG_TEST_DEFAULT_PARTS" envDefault:"5"`
	Auto   bool   `env:"CFG_TEST_DEFAULT_AUTO" envDefault:"true"`
}

type successConfig struct {
	Bucket string `env:"CFG_TEST_BUCKET"`
	Parts  int    `env:"CFG_TEST_PARTS"`
	Auto   bool   `env:"CFG_TEST_AUTO"`
}

type cachedConfig struct {
	Value string `env:"CFG_TEST_CACHED"`
}

type prefixedConfig struct {
	Bucket string `env:"S3_BUCKET"`
}

type requiredConfig struct {
	Required string `env:"CFG_TEST_REQUIRED,required"`
}

type fileConfig struct {
	Region string `env:"CFG_TEST_FILE_REGION"`
}

func TestLoad_Success(t *testing.T) {
	t.Setenv("CFG_TEST_BUCKET", "media")
	t.Setenv("CFG_TEST_PARTS", "10")
	t.Setenv("CFG_TEST_AUTO", "true")

	var cfg successConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "media", cfg.Bucket)
	assert.Equal(t, 10, cfg.Parts)
	assert.True(t, cfg.Auto)
}

func TestLoad_DefaultValues(t *testing.T) {
	os.Unsetenv("CFG_TEST_DEFAULT_BUCKET")
	os.Unsetenv("CFG_TEST_DEFAULT_PARTS")
	os.Unsetenv("CFG_TEST_DEFAULT_AUTO")

	var cfg defaultsConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "uploads", cfg.Bucket)
	assert.Equal(t, 5, cfg.Parts)
	assert.True(t, cfg.Auto)
}

func TestLoad_IsCachedPerType(t *testing.T) {
	t.Setenv("CFG_TEST_CACHED", "first")

	var first cachedConfig
	require.NoError(t, config.Load(&first))
	assert.Equal(t, "first", first.Value)

	t.Setenv("CFG_TEST_CACHED", "second")

	var second cachedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Value, "second load should come from the cache")

	config.Reset()

	var third cachedConfig
	require.NoError(t, config.Load(&third))
	assert.Equal(t, "second", third.Value, "cache reset should force a reparse")
}

func TestLoad_WithPrefix(t *testing.T) {
	t.Setenv("AVATARS_S3_BUCKET", "avatars")
	t.Setenv("DOCS_S3_BUCKET", "docs")

	var avatars, docs prefixedConfig
	require.NoError(t, config.Load(&avatars, config.WithPrefix("AVATARS_")))
	require.NoError(t, config.Load(&docs, config.WithPrefix("DOCS_")))

	assert.Equal(t, "avatars", avatars.Bucket)
	assert.Equal(t, "docs", docs.Bucket)
}

func TestLoad_RequiredMissing(t *testing.T) {
	os.Unsetenv("CFG_TEST_REQUIRED")

	var cfg requiredConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrParsingConfig))

	t.Setenv("CFG_TEST_REQUIRED", "present")
	require.NoError(t, config.Load(&cfg), "a failed parse must not be cached")
	assert.Equal(t, "present", cfg.Required)
}

func TestLoad_WithEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CFG_TEST_FILE_REGION=eu-west-1\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CFG_TEST_FILE_REGION") })

	var cfg fileConfig
	require.NoError(t, config.Load(&cfg, config.WithEnvFiles(path)))
	assert.Equal(t, "eu-west-1", cfg.Region)

	err := config.Load(&cfg, config.WithEnvFiles(filepath.Join(dir, "missing.env")))
	assert.True(t, errors.Is(err, config.ErrLoadingEnvFile))
}

func TestLoad_NilPointer(t *testing.T) {
	err := config.Load[successConfig](nil)
	assert.True(t, errors.Is(err, config.ErrNilPointer))
}

func TestMustLoad_Panics(t *testing.T) {
	os.Unsetenv("CFG_TEST_REQUIRED")
	config.Reset()

	var cfg requiredConfig
	assert.Panics(t, func() { config.MustLoad(&cfg) })
}

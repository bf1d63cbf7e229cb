package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy(t *testing.T) {
	cause := os.ErrNotExist
	err := NewExtractionError("scan.png", cause)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeExtraction, err.Code)

	assert.ErrorIs(t, NewDecodeError("x", nil), ErrDecode)
	assert.ErrorIs(t, NewPreprocessingError("x", nil), ErrPreprocessing)

	c := NewCancelledError("extracting", context.Canceled)
	assert.True(t, IsCancellation(c))
	assert.Contains(t, c.Error(), "extracting cancelled")
	assert.True(t, IsCancellation(WrapError(context.DeadlineExceeded, "ocr")))
	assert.False(t, IsCancellation(err))
	assert.Nil(t, WrapError(nil, "ignored"))
}

func TestValidator(t *testing.T) {
	assert.NoError(t, NewValidator().
		Field("file", []byte{1}, Required).
		Field("id", "0b1d8d2c-52e4-4a53-9a55-0e5e8f7a1a10", UUID).
		Field("media_type", "image/PNG; q=1", MediaType).Err())

	v := NewValidator().
		Field("file", []byte{}, Required).
		Field("name", "abcdef", Required, MaxLength(3)).
		Field("id", "nope", UUID).
		Field("media_type", "image/", MediaType)
	err := v.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Len(t, v.Failures(), 4)
	assert.Equal(t, "name must be at most 3 characters", v.Failures()[1].Error())
}

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "medrec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ocr:
  engine: exec
  psm: 6
queue:
  workers: 2
watch:
  dirs: [/srv/inbox]
`), 0o644))

	t.Setenv("OCR_LANGS", "eng, deu")
	t.Setenv("QUEUE_WORKERS", "8")
	t.Setenv("PROCESS_TIMEOUT", "45s")
	t.Setenv("ARTIFACT_CACHE_DIR", "/var/cache/medrec")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "exec", cfg.OCR.Engine)
	assert.Equal(t, 6, cfg.OCR.PSM)
	assert.Equal(t, 3, cfg.OCR.OEM)
	assert.Equal(t, []string{"eng", "deu"}, cfg.OCR.Languages)
	assert.Equal(t, "/var/cache/medrec", cfg.OCR.ArtifactCacheDir)
	assert.Equal(t, 8, cfg.Queue.Workers)
	assert.Equal(t, 45*time.Second, cfg.Queue.ProcessTimeout)
	assert.Equal(t, []string{"/srv/inbox"}, cfg.Watch.Dirs)
	assert.NoError(t, cfg.Validate())

	cfg.Preprocess.Mode = "extreme"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestContextValues(t *testing.T) {
	ctx := WithOwnerID(WithRequestID(context.Background(), "req-1"), "owner-1")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "owner-1", OwnerIDFromContext(ctx))
	assert.Equal(t, "", OwnerIDFromContext(context.Background()))

	logger := NewLogger(LogConfig{Level: "debug", Format: "json"}, nil)
	assert.Same(t, logger, LoggerFromContext(WithLogger(ctx, logger), nil))
	assert.NotNil(t, LoggerFromContext(ctx, nil))

	c, cancel := WithTimeout(ctx, 0)
	cancel()
	assert.ErrorIs(t, c.Err(), context.Canceled)
}

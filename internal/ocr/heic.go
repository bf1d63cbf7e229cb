package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/medrecords/constants"
	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/entity"
)

// HEICConverter turns HEIC/HEIF payloads into PNG with an external tool
// (heif-convert | magick | sips), since no decoder is linked in.
type HEICConverter struct {
	converter string
	cacheDir  string
	runner    Runner
	logger    *slog.Logger
}

// NewHEICConverter uses ExecRunner when runner is nil. When cacheDir is set,
// converted PNGs are kept there as {sha256}.png and reused.
func NewHEICConverter(converter, cacheDir string, runner Runner, logger *slog.Logger) *HEICConverter {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &HEICConverter{converter: converter, cacheDir: cacheDir, runner: runner, logger: logger}
}

// NewHEICConverter builds the converter named by c.HeicConverter, caching
// under c.ArtifactCacheDir. It returns nil when no converter is configured.
func (c Config) NewHEICConverter(runner Runner, logger *slog.Logger) *HEICConverter {
	if c.HeicConverter == "" {
		return nil
	}
	return NewHEICConverter(c.HeicConverter, c.ArtifactCacheDir, runner, logger)
}

func (h *HEICConverter) CacheDir() string { return h.cacheDir }

// Convert returns doc unchanged unless it is HEIC/HEIF, in which case a PNG
// document with the same name is returned.
func (h *HEICConverter) Convert(ctx context.Context, doc entity.RawDocument) (entity.RawDocument, []string, error) {
	if !constants.IsHEICMediaType(doc.MediaType) {
		return doc, nil, nil
	}

	var cached string
	if h.cacheDir != "" {
		cached = filepath.Join(h.cacheDir, doc.ContentHash()+".png")
		if b, err := os.ReadFile(cached); err == nil {
			h.logger.Debug("using cached heic->png", "cache", cached)
			return asPNG(doc, b), nil, nil
		}
	}

	tmpDir, err := os.MkdirTemp("", "medrec-heic-*")
	if err != nil {
		return doc, nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			h.logger.Warn("failed to remove heic temp dir", "dir", tmpDir, "error", err)
		}
	}()
	in := filepath.Join(tmpDir, "page.heic")
	out := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(in, doc.Data, 0o600); err != nil {
		return doc, nil, err
	}

	var errb []byte
	switch h.converter {
	case "heif-convert":
		_, errb, err = h.runner.Run(ctx, "heif-convert", in, out)
	case "magick":
		_, errb, err = h.runner.Run(ctx, "magick", in, out)
	case "sips":
		_, errb, err = h.runner.Run(ctx, "sips", "-s", "format", "png", in, "--out", out)
	default:
		return doc, nil, common.NewDecodeError("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips", nil)
	}
	if err != nil {
		if ctx.Err() != nil {
			return doc, nil, common.NewCancelledError("heic conversion", ctx.Err())
		}
		return doc, []string{string(errb)}, common.NewDecodeError(h.converter+" convert failed", err)
	}

	b, err := os.ReadFile(out)
	if err != nil {
		return doc, nil, common.NewDecodeError("HEIC conversion produced no output", err)
	}

	if cached != "" {
		if err := os.MkdirAll(h.cacheDir, 0o755); err == nil {
			if err := os.WriteFile(cached, b, 0o644); err != nil {
				h.logger.Warn("failed to cache heic->png", "cache", cached, "error", err)
			}
		}
	}
	h.logger.Debug("converted heic->png", "name", doc.Name, "bytes", len(b))
	return asPNG(doc, b), []string{fmt.Sprintf("converted %s to PNG with %s", doc.MediaType, h.converter)}, nil
}

func asPNG(doc entity.RawDocument, b []byte) entity.RawDocument {
	doc.Data = b
	doc.MediaType = constants.MediaTypePNG
	return doc
}

// Package ocr turns document bytes into raw text, either by running a
// recognition engine over a raster image or by reading a PDF text layer.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/medrecords/constants"
	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/entity"
)

const (
	MethodImageOCR = "image-ocr"
	MethodPDFText  = "pdf-text"

	EngineGosseract = "gosseract"
	EngineExec      = "exec"
)

type Config struct {
	Engine    string   // gosseract | exec
	Languages []string // default ["eng"]
	PSM       int      // 3 = fully automatic page segmentation
	OEM       int      // 3 = default, based on what is available

	Tesseract   string // binary name or absolute path for the exec engine; if empty -> "tesseract"
	TessdataDir string

	HeicConverter    string // heif-convert | magick | sips
	ArtifactCacheDir string // HEIC conversions are cached here by content hash when set
}

func (c Config) withDefaults() Config {
	if c.Engine == "" {
		c.Engine = EngineGosseract
	}
	if len(c.Languages) == 0 {
		c.Languages = []string{"eng"}
	}
	if c.PSM <= 0 {
		c.PSM = 3
	}
	if c.OEM <= 0 {
		c.OEM = 3
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	return c
}

// Options derives the recognition options from the config.
func (c Config) Options() Options {
	c = c.withDefaults()
	return Options{Languages: c.Languages, PSM: c.PSM, OEM: c.OEM, TessdataDir: c.TessdataDir}
}

// Variant tags which extractor handles a document.
type Variant int

const (
	Raster Variant = iota + 1
	PDFText
)

func (v Variant) String() string {
	switch v {
	case Raster:
		return "raster"
	case PDFText:
		return "pdf-text"
	default:
		return "unknown"
	}
}

// VariantFor picks the variant for a media type.
func VariantFor(mediaType string) (Variant, bool) {
	switch constants.MapMediaTypeToFormat(mediaType) {
	case constants.IMAGE:
		return Raster, true
	case constants.PDF:
		return PDFText, true
	default:
		return 0, false
	}
}

// Result is the outcome of one extraction. Confidence is set only for raster
// recognition; PageCount only for PDFs.
type Result struct {
	Text       string        `json:"text"`
	Confidence *float64      `json:"confidence,omitempty"`
	PageCount  *int          `json:"page_count,omitempty"`
	WordCount  int           `json:"word_count"`
	Method     string        `json:"method"`
	Engine     string        `json:"engine,omitempty"`
	Languages  []string      `json:"languages,omitempty"`
	Duration   time.Duration `json:"duration"`
	Warnings   []string      `json:"warnings,omitempty"`

	LikelyImageBased  bool   `json:"likely_image_based,omitempty"`
	ImageBasedMessage string `json:"image_based_message,omitempty"`
	HasImageStreams   bool   `json:"has_image_streams,omitempty"`
}

// Quality labels the confidence; empty when there is none.
func (r Result) Quality() string {
	if r.Confidence == nil {
		return ""
	}
	return OCRQuality(*r.Confidence)
}

// ProgressFunc receives fractional progress in [0,1]. It must not block.
type ProgressFunc func(fraction float64)

func report(p ProgressFunc, fraction float64) {
	if p != nil {
		p(fraction)
	}
}

// Extractor is implemented by each extraction variant.
type Extractor interface {
	Variant() Variant
	Extract(ctx context.Context, doc entity.RawDocument, progress ProgressFunc) (Result, error)
}

// Adapter dispatches a document to the extractor for its media type.
type Adapter struct {
	extractors map[Variant]Extractor
	logger     *slog.Logger
}

func NewAdapter(logger *slog.Logger, extractors ...Extractor) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	m := make(map[Variant]Extractor, len(extractors))
	for _, e := range extractors {
		m[e.Variant()] = e
	}
	return &Adapter{extractors: m, logger: logger}
}

// New builds an Adapter with the configured raster engine and the PDF text extractor.
func New(cfg Config, logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	var engine Engine
	switch cfg.Engine {
	case EngineGosseract:
		engine = NewClientEngine(logger)
	case EngineExec:
		engine = NewExecEngine(cfg.Tesseract, nil, logger)
	default:
		return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown ocr engine %q", cfg.Engine), common.ErrInvalidInput)
	}

	raster := NewRasterExtractor(engine, cfg.Options(), logger)
	return NewAdapter(logger, raster, NewPDFTextExtractor(logger)), nil
}

// Supports reports whether an extractor is registered for mediaType.
func (a *Adapter) Supports(mediaType string) bool {
	v, ok := VariantFor(mediaType)
	if !ok {
		return false
	}
	_, ok = a.extractors[v]
	return ok
}

// Extract runs the extractor registered for doc.MediaType.
func (a *Adapter) Extract(ctx context.Context, doc entity.RawDocument, progress ProgressFunc) (Result, error) {
	v, ok := VariantFor(doc.MediaType)
	if !ok {
		return Result{}, common.NewAppError("UNSUPPORTED_MEDIA", doc.MediaType, common.ErrUnsupportedMedia)
	}
	ex, ok := a.extractors[v]
	if !ok {
		return Result{}, common.NewAppError("UNSUPPORTED_MEDIA", "no extractor for "+v.String(), common.ErrUnsupportedMedia)
	}
	a.logger.Debug("ocr.extract.start", "name", doc.Name, "media_type", doc.MediaType, "variant", v.String())
	return ex.Extract(ctx, doc, progress)
}

// OCRQuality maps a 0-100 confidence to a label.
func OCRQuality(confidence float64) string {
	switch {
	case confidence >= 90:
		return "Excellent"
	case confidence >= 75:
		return "Good"
	case confidence >= 60:
		return "Fair"
	default:
		return "Poor"
	}
}

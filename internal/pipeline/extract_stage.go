package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/medrecords/internal/entity"
	"github.com/joseph-ayodele/medrecords/internal/ocr"
)

// TextExtractor is satisfied by *ocr.Adapter.
type TextExtractor interface {
	Supports(mediaType string) bool
	Extract(ctx context.Context, doc entity.RawDocument, progress ocr.ProgressFunc) (ocr.Result, error)
}

// window maps fractional extractor progress onto [from, from+span].
type window struct {
	from, span int
}

func (w window) at(fraction float64) int {
	fraction = min(max(fraction, 0), 1)
	return w.from + int(fraction*float64(w.span))
}

type ExtractStage struct {
	Extractor TextExtractor
	Logger    *slog.Logger
}

func NewExtractStage(tx TextExtractor, logger *slog.Logger) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStage{Extractor: tx, Logger: logger}
}

// Run extracts text, reporting extractor progress through emit mapped into w.
func (s *ExtractStage) Run(ctx context.Context, doc entity.RawDocument, w window, emit func(percent int)) (ocr.Result, error) {
	emit(w.at(0))
	return s.Extractor.Extract(ctx, doc, func(f float64) { emit(w.at(f)) })
}

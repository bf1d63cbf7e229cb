// Package pipeline sequences preprocessing, text extraction and analysis for
// one document and reports progress while doing so.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/medrecords/constants"
	"github.com/joseph-ayodele/medrecords/internal/analysis"
	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/entity"
	"github.com/joseph-ayodele/medrecords/internal/metadata"
	"github.com/joseph-ayodele/medrecords/internal/ocr"
)

// Progress percentages reported at stage boundaries.
const (
	percentPreprocessing = 10
	percentAnalyzing     = 85
	percentComplete      = 100
)

var (
	rasterWindow = window{from: 30, span: 50}
	pdfWindow    = window{from: 20, span: 60}
)

// Result is the outcome of one Process call. It is not modified after return.
type Result struct {
	ID               uuid.UUID                  `json:"id"`
	Name             string                     `json:"name"`
	MediaType        string                     `json:"media_type"`
	Size             int64                      `json:"size"`
	ContentHash      string                     `json:"content_hash"`
	ProcessingMethod constants.ProcessingMethod `json:"processing_method"`
	ExtractedText    string                     `json:"extracted_text"`
	Analysis         analysis.Analysis          `json:"analysis"`
	Extraction       ocr.Result                 `json:"extraction"`
	Metadata         metadata.Projection        `json:"metadata"`
	Preprocessing    *PreprocessingInfo         `json:"preprocessing,omitempty"`
	Warnings         []string                   `json:"warnings,omitempty"`
	Error            string                     `json:"error,omitempty"`
	Cancelled        bool                       `json:"cancelled,omitempty"`
	Duration         time.Duration              `json:"duration"`
}

// Failed reports whether the document could not be processed.
func (r *Result) Failed() bool {
	return r.ProcessingMethod == constants.MethodFailed
}

// Processor coordinates preprocessing, extraction and analysis.
type Processor struct {
	Logger     *slog.Logger
	Preprocess *PreprocessStage
	Extract    *ExtractStage
}

func NewProcessor(logger *slog.Logger, pre *PreprocessStage, ex *ExtractStage) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Preprocess: pre, Extract: ex}
}

// CanProcess reports whether mediaType has an extraction path.
func (p *Processor) CanProcess(mediaType string) bool {
	return p.Extract != nil && p.Extract.Extractor.Supports(constants.NormalizeMediaType(mediaType))
}

// Process runs the pipeline for doc, sending progress to sink. An unsupported
// media type is not an error: the result carries method "none". On extraction
// failure or cancellation the result is still returned, with method "failed",
// alongside an error matching common.ErrExtraction or common.ErrCancelled.
func (p *Processor) Process(ctx context.Context, doc entity.RawDocument, sink Sink) (*Result, error) {
	start := time.Now()
	events := newMonotonic(sink)
	doc.MediaType = constants.NormalizeMediaType(doc.MediaType)

	res := &Result{
		ID:          uuid.New(),
		Name:        doc.Name,
		MediaType:   doc.MediaType,
		Size:        doc.Size(),
		ContentHash: doc.ContentHash(),
	}
	log := p.Logger.With("doc_id", res.ID, "name", doc.Name, "media_type", doc.MediaType)

	if !p.CanProcess(doc.MediaType) {
		log.Info("pipeline.unsupported")
		res.ProcessingMethod = constants.MethodNone
		events.Emit(Event{Stage: constants.StageAnalyzing, Percent: percentAnalyzing})
		p.finish(res, "", ocr.Result{})
		events.Emit(Event{Stage: constants.StageComplete, Percent: percentComplete})
		res.Duration = time.Since(start)
		return res, nil
	}

	method, win := constants.MethodPDF, pdfWindow
	work := doc
	if constants.IsImageMediaType(doc.MediaType) {
		method, win = constants.MethodOCR, rasterWindow
		events.Emit(Event{Stage: constants.StagePreprocessing, Percent: percentPreprocessing})
		if p.Preprocess != nil {
			out, info, err := p.Preprocess.Run(ctx, doc)
			res.Preprocessing = &info
			res.Warnings = append(res.Warnings, info.Warnings...)
			if err != nil {
				return p.fail(res, start, log, err)
			}
			work = out
		}
	}

	ex, err := p.Extract.Run(ctx, work, win, func(percent int) {
		events.Emit(Event{Stage: constants.StageExtracting, Percent: percent})
	})
	if err != nil {
		res.Extraction = ex
		return p.fail(res, start, log, err)
	}
	if err := ctx.Err(); err != nil {
		res.Extraction = ex
		return p.fail(res, start, log, err)
	}
	res.ProcessingMethod = method
	res.Warnings = append(res.Warnings, ex.Warnings...)

	events.Emit(Event{Stage: constants.StageAnalyzing, Percent: percentAnalyzing})
	p.finish(res, ex.Text, ex)
	events.Emit(Event{Stage: constants.StageComplete, Percent: percentComplete})

	res.Duration = time.Since(start)
	log.Info("pipeline.done",
		"method", res.ProcessingMethod,
		"document_type", res.Analysis.DocumentType,
		"words", res.Analysis.WordCount,
		"confidence", ex.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (p *Processor) finish(res *Result, text string, ex ocr.Result) {
	res.ExtractedText = text
	res.Extraction = ex
	res.Analysis = analysis.Analyze(text)
	res.Metadata = metadata.Project(text, res.Analysis, ex)
}

// fail records err on res. No analysis runs and no complete event is sent.
func (p *Processor) fail(res *Result, start time.Time, log *slog.Logger, err error) (*Result, error) {
	res.ProcessingMethod = constants.MethodFailed
	res.Analysis = analysis.Empty()
	res.Metadata = metadata.Project("", res.Analysis, ocr.Result{})
	res.Duration = time.Since(start)

	if common.IsCancellation(err) {
		res.Cancelled = true
		if !errors.Is(err, common.ErrCancelled) {
			err = common.NewCancelledError("processing", err)
		}
		res.Error = err.Error()
		log.Warn("pipeline.cancelled", "error", err)
		return res, err
	}
	if !errors.Is(err, common.ErrExtraction) {
		err = common.NewExtractionError(res.Name, err)
	}
	res.Error = err.Error()
	log.Error("pipeline.failed", "error", err)
	return res, err
}

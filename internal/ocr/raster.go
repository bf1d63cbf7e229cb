package ocr

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/entity"
)

const (
	defaultTick = 200 * time.Millisecond
	// progress approaches this value while the engine runs; 1.0 is sent on completion
	tickCeiling = 0.9
)

// RasterExtractor recognises text in an image through an Engine.
type RasterExtractor struct {
	engine Engine
	opts   Options
	tick   time.Duration
	logger *slog.Logger
}

func NewRasterExtractor(engine Engine, opts Options, logger *slog.Logger) *RasterExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &RasterExtractor{engine: engine, opts: opts, tick: defaultTick, logger: logger}
}

func (r *RasterExtractor) Variant() Variant { return Raster }

type recognized struct {
	rec Recognition
	err error
}

// Extract runs the engine in the background and reports progress on a ticker.
// Cancellation is checked on every tick, so a done ctx returns promptly even
// when the engine itself cannot be interrupted.
func (r *RasterExtractor) Extract(ctx context.Context, doc entity.RawDocument, progress ProgressFunc) (Result, error) {
	start := time.Now()
	base := Result{Method: MethodImageOCR, Engine: r.engine.Name(), Languages: r.opts.Languages}

	if err := ctx.Err(); err != nil {
		return base, common.NewCancelledError("extracting", err)
	}
	report(progress, 0)

	done := make(chan recognized, 1)
	go func() {
		rec, err := r.engine.Recognize(ctx, doc.Data, r.opts)
		done <- recognized{rec: rec, err: err}
	}()

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	p := 0.0
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("ocr.raster.cancelled", "name", doc.Name, "elapsed_ms", time.Since(start).Milliseconds())
			return base, common.NewCancelledError("extracting", ctx.Err())
		case <-ticker.C:
			p += (tickCeiling - p) * 0.25
			report(progress, p)
		case out := <-done:
			base.Duration = time.Since(start)
			if out.err != nil {
				if common.IsCancellation(out.err) {
					return base, common.NewCancelledError("extracting", out.err)
				}
				r.logger.Error("ocr.raster.failed", "name", doc.Name, "engine", r.engine.Name(), "error", out.err)
				return base, common.NewExtractionError("recognize "+doc.Name, out.err)
			}
			report(progress, 1)

			conf := clampConfidence(out.rec.Confidence)
			base.Text = Normalize(out.rec.Text)
			base.Confidence = &conf
			base.WordCount = out.rec.Words
			r.logger.Info("ocr.raster.done",
				"name", doc.Name,
				"engine", r.engine.Name(),
				"chars", len(base.Text),
				"words", base.WordCount,
				"confidence", conf,
				"duration_ms", base.Duration.Milliseconds(),
			)
			return base, nil
		}
	}
}

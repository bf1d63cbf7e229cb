package preprocess

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/entity"
	"github.com/joseph-ayodele/medrecords/internal/imaging"
)

// OutputPrefix is prepended to the name of an enhanced document.
const OutputPrefix = "preprocessed_"

// Report summarises one enhancement pass.
type Report struct {
	Profile  Profile       `json:"profile"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Duration time.Duration `json:"duration"`
}

// Enhancer turns an image into a binarized, upscaled copy suited to recognition.
type Enhancer struct {
	logger *slog.Logger
}

func NewEnhancer(logger *slog.Logger) *Enhancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enhancer{logger: logger}
}

type step struct {
	name string
	on   bool
	run  func(context.Context, *imaging.PixelBuffer) error
}

// Enhance decodes doc, applies p and re-encodes in the same media type where
// an encoder exists. Failures are PreprocessingError; a done ctx yields ErrCancelled.
func (e *Enhancer) Enhance(ctx context.Context, doc entity.RawDocument, p Profile) (entity.RawDocument, Report, error) {
	start := time.Now()
	rep := Report{Profile: p}

	img, _, err := imaging.Decode(doc.Data)
	if err != nil {
		return entity.RawDocument{}, rep, common.NewPreprocessingError("decode", common.NewDecodeError(doc.Name, err))
	}
	if err := ctx.Err(); err != nil {
		return entity.RawDocument{}, rep, common.NewCancelledError("preprocessing", err)
	}

	buf, err := imaging.Upscale(img, p.Scale)
	if err != nil {
		return entity.RawDocument{}, rep, common.NewPreprocessingError("upscale", err)
	}
	rep.Width, rep.Height = buf.Width, buf.Height

	steps := []step{
		{"grayscale", p.Grayscale, func(_ context.Context, b *imaging.PixelBuffer) error { b.Grayscale(); return nil }},
		{"contrast", p.Contrast != 1.0, func(_ context.Context, b *imaging.PixelBuffer) error { b.Contrast(p.Contrast); return nil }},
		{"brightness", p.Brightness != 0, func(_ context.Context, b *imaging.PixelBuffer) error { b.Brightness(p.Brightness); return nil }},
		{"sharpen", p.Sharpen, func(ctx context.Context, b *imaging.PixelBuffer) error { return b.Sharpen(ctx) }},
		{"denoise", p.Denoise, func(ctx context.Context, b *imaging.PixelBuffer) error { return b.Denoise(ctx) }},
		{"threshold", true, func(ctx context.Context, b *imaging.PixelBuffer) error {
			return b.AdaptiveThreshold(ctx, imaging.ThresholdRadius, imaging.ThresholdConstant)
		}},
	}
	for _, s := range steps {
		if !s.on {
			continue
		}
		if err := ctx.Err(); err != nil {
			return entity.RawDocument{}, rep, common.NewCancelledError("preprocessing", err)
		}
		if err := s.run(ctx, buf); err != nil {
			if common.IsCancellation(err) {
				return entity.RawDocument{}, rep, common.NewCancelledError("preprocessing", err)
			}
			return entity.RawDocument{}, rep, common.NewPreprocessingError(s.name, err)
		}
		e.logger.Debug("preprocess.step", "step", s.name, "name", doc.Name)
	}

	out, mediaType, err := imaging.EncodeBytes(buf.NRGBA(), doc.MediaType)
	if err != nil {
		return entity.RawDocument{}, rep, common.NewPreprocessingError("encode", err)
	}
	rep.Duration = time.Since(start)

	e.logger.Info("preprocess.done",
		"name", doc.Name,
		"profile", p.Name,
		"width", rep.Width,
		"height", rep.Height,
		"duration_ms", rep.Duration.Milliseconds(),
	)
	return entity.RawDocument{
		Name:       OutputPrefix + doc.Name,
		MediaType:  mediaType,
		Data:       out,
		SourcePath: doc.SourcePath,
	}, rep, nil
}

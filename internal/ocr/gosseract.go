package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// ClientEngine runs recognition in-process through libtesseract. The engine
// mode is fixed when the library initialises, so Options.OEM is not applied.
type ClientEngine struct {
	newClient func() *gosseract.Client
	logger    *slog.Logger
}

func NewClientEngine(logger *slog.Logger) *ClientEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClientEngine{newClient: gosseract.NewClient, logger: logger}
}

func (e *ClientEngine) Name() string { return EngineGosseract }

func (e *ClientEngine) Recognize(ctx context.Context, image []byte, opts Options) (Recognition, error) {
	if err := ctx.Err(); err != nil {
		return Recognition{}, err
	}
	c := e.newClient()
	defer func() {
		if err := c.Close(); err != nil {
			e.logger.Warn("gosseract close failed", "error", err)
		}
	}()

	if opts.TessdataDir != "" {
		if err := c.SetTessdataPrefix(opts.TessdataDir); err != nil {
			return Recognition{}, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if len(opts.Languages) > 0 {
		if err := c.SetLanguage(opts.Languages...); err != nil {
			return Recognition{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if opts.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(opts.PSM)); err != nil {
			return Recognition{}, fmt.Errorf("set page seg mode: %w", err)
		}
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return Recognition{}, fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return Recognition{}, fmt.Errorf("recognize text: %w", err)
	}

	rec := Recognition{Text: text}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		e.logger.Warn("word boxes unavailable", "error", err)
		return rec, nil
	}
	var sum float64
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		sum += b.Confidence
		rec.Words++
	}
	if rec.Words > 0 {
		rec.Confidence = sum / float64(rec.Words)
	}
	return rec, nil
}

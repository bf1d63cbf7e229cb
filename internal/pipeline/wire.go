package pipeline

import (
	"log/slog"

	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/ocr"
	"github.com/joseph-ayodele/medrecords/internal/preprocess"
)

// NewFromConfig wires the recognition adapter, HEIC converter and enhancer
// described by cfg into a Processor.
func NewFromConfig(cfg *common.Config, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mode, err := preprocess.ParseMode(cfg.Preprocess.Mode)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, err.Error(), common.ErrInvalidInput)
	}
	ocfg := ocr.Config{
		Engine:           cfg.OCR.Engine,
		Languages:        cfg.OCR.Languages,
		PSM:              cfg.OCR.PSM,
		OEM:              cfg.OCR.OEM,
		Tesseract:        cfg.OCR.Tesseract,
		TessdataDir:      cfg.OCR.TessdataDir,
		HeicConverter:    cfg.OCR.HeicConverter,
		ArtifactCacheDir: cfg.OCR.ArtifactCacheDir,
	}
	adapter, err := ocr.New(ocfg, logger)
	if err != nil {
		return nil, err
	}

	// a nil *HEICConverter must not become a non-nil Converter
	var converter Converter
	if h := ocfg.NewHEICConverter(nil, logger); h != nil {
		converter = h
	}
	pre := NewPreprocessStage(mode, preprocess.NewEnhancer(logger), converter, logger)
	return NewProcessor(logger, pre, NewExtractStage(adapter, logger)), nil
}

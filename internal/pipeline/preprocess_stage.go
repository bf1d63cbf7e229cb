package pipeline

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/entity"
	"github.com/joseph-ayodele/medrecords/internal/preprocess"
)

// Enhancer is the part of preprocess.Enhancer the stage needs.
type Enhancer interface {
	Enhance(ctx context.Context, doc entity.RawDocument, p preprocess.Profile) (entity.RawDocument, preprocess.Report, error)
}

// Converter normalises formats the decoders cannot read (HEIC).
type Converter interface {
	Convert(ctx context.Context, doc entity.RawDocument) (entity.RawDocument, []string, error)
}

// PreprocessingInfo records what happened to an image before recognition.
type PreprocessingInfo struct {
	Mode     preprocess.Mode            `json:"mode"`
	Profile  *preprocess.Profile        `json:"profile,omitempty"`
	Quality  *preprocess.QualityProfile `json:"quality,omitempty"`
	Applied  bool                       `json:"applied"`
	Report   *preprocess.Report         `json:"report,omitempty"`
	Warnings []string                   `json:"warnings,omitempty"`
}

type PreprocessStage struct {
	Mode      preprocess.Mode
	Enhancer  Enhancer
	Converter Converter
	Logger    *slog.Logger
}

func NewPreprocessStage(mode preprocess.Mode, enhancer Enhancer, converter Converter, logger *slog.Logger) *PreprocessStage {
	if logger == nil {
		logger = slog.Default()
	}
	if mode == "" {
		mode = preprocess.ModeAuto
	}
	if enhancer == nil {
		enhancer = preprocess.NewEnhancer(logger)
	}
	return &PreprocessStage{Mode: mode, Enhancer: enhancer, Converter: converter, Logger: logger}
}

// Run returns the document to recognise. Decode and enhancement failures
// degrade to the original bytes with a warning; only cancellation is returned
// as an error.
func (s *PreprocessStage) Run(ctx context.Context, doc entity.RawDocument) (entity.RawDocument, PreprocessingInfo, error) {
	info := PreprocessingInfo{Mode: s.Mode}

	if s.Converter != nil {
		converted, warns, err := s.Converter.Convert(ctx, doc)
		info.Warnings = append(info.Warnings, warns...)
		if err != nil {
			if common.IsCancellation(err) {
				return doc, info, common.NewCancelledError("preprocessing", err)
			}
			s.Logger.Warn("pipeline.preprocess.convert_failed", "name", doc.Name, "error", err)
			info.Warnings = append(info.Warnings, "format conversion failed: "+err.Error())
			return doc, info, nil
		}
		doc = converted
	}

	if s.Mode == preprocess.ModeOff {
		return doc, info, nil
	}

	profile, ok := preprocess.Preset(s.Mode)
	if !ok {
		q, err := preprocess.AnalyzeQuality(doc.Data)
		if err != nil {
			s.Logger.Warn("pipeline.preprocess.quality_failed", "name", doc.Name, "error", err)
			info.Warnings = append(info.Warnings, "quality analysis failed, using standard preset")
			profile = preprocess.Standard
		} else {
			info.Quality = &q
			profile = preprocess.Select(q)
		}
	}
	info.Profile = &profile

	if err := ctx.Err(); err != nil {
		return doc, info, common.NewCancelledError("preprocessing", err)
	}

	enhanced, rep, err := s.Enhancer.Enhance(ctx, doc, profile)
	if err != nil {
		if common.IsCancellation(err) {
			return doc, info, err
		}
		s.Logger.Warn("pipeline.preprocess.failed", "name", doc.Name, "profile", profile.Name, "error", err)
		info.Warnings = append(info.Warnings, "preprocessing failed, using original image: "+err.Error())
		return doc, info, nil
	}
	info.Applied = true
	info.Report = &rep
	return enhanced, info, nil
}

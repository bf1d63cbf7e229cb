// Package preprocess decides how hard to enhance an image and then enhances it.
package preprocess

import (
	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/imaging"
)

// PreviewSize is the side of the square preview quality is measured on.
const PreviewSize = 100

const (
	darkBelow         = 80
	brightAbove       = 180
	lowContrastBelow  = 30
	highContrastAbove = 70
	blurryStdDevBelow = 25
)

// QualityProfile describes the brightness distribution of an image preview.
type QualityProfile struct {
	AverageBrightness float64 `json:"average_brightness"`
	StdDeviation      float64 `json:"std_deviation"`
	IsDark            bool    `json:"is_dark"`
	IsBright          bool    `json:"is_bright"`
	IsLowContrast     bool    `json:"is_low_contrast"`
	IsHighContrast    bool    `json:"is_high_contrast"`
	// IsBlurry only means the variance is low; low variance often goes with
	// blur but does not prove it.
	IsBlurry bool `json:"is_blurry"`
}

// AnalyzeQuality decodes data, shrinks it to the preview size and classifies it.
func AnalyzeQuality(data []byte) (QualityProfile, error) {
	img, _, err := imaging.Decode(data)
	if err != nil {
		return QualityProfile{}, common.NewDecodeError("quality analysis", err)
	}
	preview, err := imaging.Preview(img, PreviewSize, PreviewSize)
	if err != nil {
		return QualityProfile{}, common.NewDecodeError("quality preview", err)
	}
	return ClassifyPreview(preview), nil
}

// ClassifyPreview applies the fixed thresholds to an already-sized preview.
func ClassifyPreview(preview *imaging.PixelBuffer) QualityProfile {
	return classify(preview.BrightnessStats())
}

func classify(s imaging.Stats) QualityProfile {
	return QualityProfile{
		AverageBrightness: s.Mean,
		StdDeviation:      s.StdDev,
		IsDark:            s.Mean < darkBelow,
		IsBright:          s.Mean > brightAbove,
		IsLowContrast:     s.StdDev < lowContrastBelow,
		IsHighContrast:    s.StdDev > highContrastAbove,
		IsBlurry:          s.StdDev < blurryStdDevBelow,
	}
}

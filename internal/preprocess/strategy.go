package preprocess

import (
	"fmt"
	"strings"
)

// Mode picks a preset by name, or asks for one to be chosen from image quality.
type Mode string

const (
	ModeAuto     Mode = "auto"
	ModeQuick    Mode = "quick"
	ModeStandard Mode = "standard"
	ModeHeavy    Mode = "heavy"
	ModeOff      Mode = "off"
)

// Profile is a named bundle of enhancement parameters.
type Profile struct {
	Name       string  `json:"name"`
	Grayscale  bool    `json:"grayscale"`
	Contrast   float64 `json:"contrast"`
	Brightness float64 `json:"brightness"`
	Sharpen    bool    `json:"sharpen"`
	Denoise    bool    `json:"denoise"`
	Scale      float64 `json:"scale"`
}

var (
	Quick    = Profile{Name: string(ModeQuick), Grayscale: true, Contrast: 1.3, Brightness: 5, Scale: 1.5}
	Standard = Profile{Name: string(ModeStandard), Grayscale: true, Contrast: 1.5, Brightness: 10, Sharpen: true, Scale: 2.0}
	Heavy    = Profile{Name: string(ModeHeavy), Grayscale: true, Contrast: 1.8, Brightness: 15, Sharpen: true, Denoise: true, Scale: 2.5}
)

// Select maps a quality classification to a preset.
func Select(q QualityProfile) Profile {
	switch {
	case q.IsDark, q.IsBlurry:
		return Heavy
	case q.IsLowContrast:
		return Standard
	default:
		return Quick
	}
}

// ParseMode accepts the mode names case-insensitively; empty means auto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeQuick, ModeStandard, ModeHeavy, ModeOff:
		return m, nil
	default:
		return "", fmt.Errorf("unknown preprocessing mode %q", s)
	}
}

// Preset returns the fixed profile for a non-auto mode.
func Preset(m Mode) (Profile, bool) {
	switch m {
	case ModeQuick:
		return Quick, true
	case ModeStandard:
		return Standard, true
	case ModeHeavy:
		return Heavy, true
	default:
		return Profile{}, false
	}
}

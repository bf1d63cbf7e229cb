package ocr

import (
	"strconv"
	"strings"
)

const (
	tsvColConf = 10
	tsvColText = 11
)

// parseTSV reads tesseract TSV output and returns the mean confidence (0..100)
// over recognised words, and the number of those words.
func parseTSV(out []byte) (float64, int) {
	lines := strings.Split(string(out), "\n")
	var sum float64
	var n int
	for i, ln := range lines {
		if i == 0 || len(ln) == 0 {
			continue
		} // skip header
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) <= tsvColText {
			continue
		}
		if strings.TrimSpace(cols[tsvColText]) == "" {
			continue
		}
		confStr := cols[tsvColConf]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

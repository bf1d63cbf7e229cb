package analysis

import (
	"regexp"

	"github.com/joseph-ayodele/medrecords/internal/entity"
)

// Date format labels.
const (
	FormatMonthFirst   = "MM/DD/YYYY"
	FormatDayFirst     = "DD/MM/YYYY"
	FormatMonthName    = "Month DD, YYYY"
	FormatDayMonthName = "DD Month YYYY"
	FormatISO          = "YYYY-MM-DD"
)

const monthNames = `January|February|March|April|May|June|July|August|September|October|November|December`

type datePattern struct {
	re     *regexp.Regexp
	format string
}

var (
	reNumericDate = regexp.MustCompile(`\b(\d{1,2})[/\-](\d{1,2})[/\-](\d{4})\b`)

	// Applied in order. The numeric pattern is listed under both readings;
	// since each span keeps its first label, numeric dates come out
	// month-first.
	datePatterns = []datePattern{
		{reNumericDate, FormatMonthFirst},
		{reNumericDate, FormatDayFirst},
		{regexp.MustCompile(`(?i)\b(` + monthNames + `)\s+(\d{1,2}),?\s+(\d{4})\b`), FormatMonthName},
		{regexp.MustCompile(`(?i)\b(\d{1,2})\s+(` + monthNames + `)\s+(\d{4})\b`), FormatDayMonthName},
		{regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`), FormatISO},
	}
)

// ExtractDates returns every distinct date-like span in text, pattern by
// pattern. A span matched again later keeps its first format label.
func ExtractDates(text string) []entity.DateMatch {
	out := []entity.DateMatch{}
	if text == "" {
		return out
	}
	seen := make(map[string]struct{})
	for _, p := range datePatterns {
		for _, raw := range p.re.FindAllString(text, -1) {
			if _, dup := seen[raw]; dup {
				continue
			}
			seen[raw] = struct{}{}
			out = append(out, entity.DateMatch{Raw: raw, Format: p.format})
		}
	}
	return out
}

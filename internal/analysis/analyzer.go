// Package analysis extracts dates, medical keywords and a document type from text.
package analysis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/medrecords/constants"
	"github.com/joseph-ayodele/medrecords/internal/entity"
)

// MinTextLength is the shortest text that is analysed at all.
const MinTextLength = 10

// Analysis is the structured view of a document's text.
type Analysis struct {
	DocumentType string             `json:"document_type"`
	Dates        []entity.DateMatch `json:"dates"`
	Keywords     Keywords           `json:"keywords"`
	WordCount    int                `json:"word_count"`
	HasContent   bool               `json:"has_content"`
	TextLength   int                `json:"text_length"`
	Summary      string             `json:"summary,omitempty"`
}

// Empty is the analysis of text too short to analyse.
func Empty() Analysis {
	return Analysis{
		DocumentType: constants.DocTypeUnknown,
		Dates:        []entity.DateMatch{},
		Keywords:     emptyKeywords(),
	}
}

// Analyze runs every extractor over text.
func Analyze(text string) Analysis {
	n := utf8.RuneCountInString(text)
	if n < MinTextLength {
		return Empty()
	}
	a := Analysis{
		DocumentType: DetectDocumentType(text),
		Dates:        ExtractDates(text),
		Keywords:     ExtractKeywords(text),
		WordCount:    WordCount(text),
		HasContent:   true,
		TextLength:   n,
	}
	a.Summary = summarize(a)
	return a
}

// WordCount counts whitespace-separated tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func summarize(a Analysis) string {
	parts := []string{"Type: " + a.DocumentType}
	if len(a.Dates) > 0 {
		parts = append(parts, fmt.Sprintf("%d date(s) found", len(a.Dates)))
	}
	if a.Keywords.Count > 0 {
		parts = append(parts, fmt.Sprintf("%d keyword(s) detected", a.Keywords.Count))
	}
	parts = append(parts, fmt.Sprintf("%d words", a.WordCount))
	return strings.Join(parts, " • ")
}

// Package metadata builds the slice of a processing result that is handed to
// storage, and checks it against a JSON schema before it leaves the pipeline.
package metadata

import (
	"github.com/joseph-ayodele/medrecords/internal/analysis"
	"github.com/joseph-ayodele/medrecords/internal/entity"
	"github.com/joseph-ayodele/medrecords/internal/ocr"
)

// Projection is the persisted summary of a processed document.
type Projection struct {
	HasText       bool               `json:"has_text"`
	TextLength    int                `json:"text_length"`
	WordCount     int                `json:"word_count"`
	DocumentType  string             `json:"document_type"`
	Dates         []entity.DateMatch `json:"dates"`
	Keywords      []string           `json:"keywords"`
	OCRConfidence *float64           `json:"ocr_confidence"`
	PageCount     *int               `json:"page_count"`
}

// Project derives the projection from extracted text, its analysis and the
// raw extraction result.
func Project(text string, a analysis.Analysis, ex ocr.Result) Projection {
	dates := a.Dates
	if dates == nil {
		dates = []entity.DateMatch{}
	}
	keywords := a.Keywords.All
	if keywords == nil {
		keywords = []string{}
	}
	return Projection{
		HasText:       len(text) > 0,
		TextLength:    len([]rune(text)),
		WordCount:     a.WordCount,
		DocumentType:  a.DocumentType,
		Dates:         dates,
		Keywords:      keywords,
		OCRConfidence: ex.Confidence,
		PageCount:     ex.PageCount,
	}
}

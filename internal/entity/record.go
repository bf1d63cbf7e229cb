package entity

import (
	"time"

	"github.com/google/uuid"
)

// DateMatch is a date-like span found in text and the format it was read as.
type DateMatch struct {
	Raw    string `json:"raw"`
	Format string `json:"format"`
}

// DocumentRecord is the persisted view of a processed document.
type DocumentRecord struct {
	ID               uuid.UUID   `json:"id"`
	OwnerID          string      `json:"owner_id"`
	SourcePath       string      `json:"source_path,omitempty"`
	FileName         string      `json:"file_name"`
	MediaType        string      `json:"media_type"`
	FileSize         int64       `json:"file_size"`
	ContentHash      string      `json:"content_hash"`
	ProcessingMethod string      `json:"processing_method"`
	ExtractedText    string      `json:"extracted_text"`
	DocumentType     string      `json:"document_type"`
	Dates            []DateMatch `json:"dates"`
	Keywords         []string    `json:"keywords"`
	WordCount        int         `json:"word_count"`
	OCRConfidence    *float64    `json:"ocr_confidence,omitempty"`
	PageCount        *int        `json:"page_count,omitempty"`
	ErrorMessage     *string     `json:"error_message,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

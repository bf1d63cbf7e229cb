package pipeline

import (
	"time"

	"github.com/joseph-ayodele/medrecords/internal/entity"
)

// Record builds the persisted view of r from its identity and metadata
// projection only.
func (r *Result) Record(ownerID, sourcePath string) *entity.DocumentRecord {
	rec := &entity.DocumentRecord{
		ID:               r.ID,
		OwnerID:          ownerID,
		SourcePath:       sourcePath,
		FileName:         r.Name,
		MediaType:        r.MediaType,
		FileSize:         r.Size,
		ContentHash:      r.ContentHash,
		ProcessingMethod: string(r.ProcessingMethod),
		ExtractedText:    r.ExtractedText,
		DocumentType:     r.Metadata.DocumentType,
		Dates:            r.Metadata.Dates,
		Keywords:         r.Metadata.Keywords,
		WordCount:        r.Metadata.WordCount,
		OCRConfidence:    r.Metadata.OCRConfidence,
		PageCount:        r.Metadata.PageCount,
		CreatedAt:        time.Now().UTC(),
	}
	if r.Error != "" {
		msg := r.Error
		rec.ErrorMessage = &msg
	}
	return rec
}

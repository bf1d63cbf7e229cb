package ingest

import (
	"context"

	"github.com/google/uuid"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath string    `json:"source_path"`
	JobID      uuid.UUID `json:"job_id"`
	HashHex    string    `json:"hash"`
	MediaType  string    `json:"media_type"`
	Size       int64     `json:"size"`
	Err        string    `json:"error,omitempty"`
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned   uint32 `json:"scanned"`
	Matched   uint32 `json:"matched"`
	Succeeded uint32 `json:"succeeded"`
	Failed    uint32 `json:"failed"`
}

// Ingestor is the behavior the service depends on.
type Ingestor interface {
	// IngestPath a single path.
	IngestPath(ctx context.Context, ownerID, path string) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, ownerID, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}

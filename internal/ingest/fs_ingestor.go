package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/medrecords/constants"
	"github.com/joseph-ayodele/medrecords/internal/async"
	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/entity"
)

// DefaultMaxBytes caps a single file read from disk.
const DefaultMaxBytes int64 = 50 << 20

// LoadFile reads path into a RawDocument. Files larger than maxBytes
// (DefaultMaxBytes when <= 0) are rejected.
func LoadFile(path string, maxBytes int64) (entity.RawDocument, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return entity.RawDocument{}, fmt.Errorf("abs path: %w", err)
	}
	f, err := os.Open(abs)
	if err != nil {
		return entity.RawDocument{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return entity.RawDocument{}, fmt.Errorf("read: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return entity.RawDocument{}, common.NewAppError("INVALID_INPUT",
			fmt.Sprintf("%s exceeds %d bytes", filepath.Base(abs), maxBytes), common.ErrInvalidInput)
	}
	name := filepath.Base(abs)
	return entity.RawDocument{
		Name:       name,
		MediaType:  DetectMediaType(name, data),
		Data:       data,
		SourcePath: abs,
	}, nil
}

// FSIngestor reads files from the local filesystem and queues them for processing.
type FSIngestor struct {
	Queue    async.Queue
	MaxBytes int64
	Logger   *slog.Logger
}

var _ Ingestor = (*FSIngestor)(nil)

func NewFSIngestor(q async.Queue, maxBytes int64, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Queue: q, MaxBytes: maxBytes, Logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, ownerID, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}

	ext := constants.NormalizeExt(filepath.Ext(path))
	if ext == "" || !AllowedExt(ext) {
		i.Logger.Warn("ingest.unsupported_extension", "path", path, "ext", ext)
		return out, common.NewAppError("UNSUPPORTED_MEDIA", fmt.Sprintf("unsupported or missing extension: %q", ext), common.ErrUnsupportedMedia)
	}

	doc, err := LoadFile(path, i.MaxBytes)
	if err != nil {
		i.Logger.Error("ingest.load_failed", "path", path, "error", err)
		return out, err
	}
	out.SourcePath = doc.SourcePath
	out.HashHex = doc.ContentHash()
	out.MediaType = doc.MediaType
	out.Size = doc.Size()

	job := async.Job{ID: uuid.New(), OwnerID: ownerID, Document: doc}
	if err := i.Queue.Enqueue(ctx, job); err != nil {
		return out, err
	}
	out.JobID = job.ID
	i.Logger.Info("ingest.queued", "path", doc.SourcePath, "job_id", job.ID, "media_type", doc.MediaType)
	return out, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, ownerID, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, ownerID, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

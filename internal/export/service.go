package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/medrecords/internal/entity"
	"github.com/joseph-ayodele/medrecords/internal/repository"
)

const (
	SheetName    = "Documents"
	excerptRunes = 140
)

var headers = []string{
	"Uploaded",
	"File Name",
	"Document Type",
	"Method",
	"Words",
	"Dates",
	"Keywords",
	"OCR Confidence",
	"Pages",
	"Excerpt",
	"Source Path",
	"Error",
}

// Filter narrows an export. Zero values mean no restriction.
type Filter struct {
	OwnerID string
	Query   string
	From    *time.Time
	To      *time.Time
}

// Service produces XLSX bytes from stored documents.
type Service struct {
	store  repository.DocumentStore
	logger *slog.Logger
}

func NewService(store repository.DocumentStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ExportDocumentsXLSX returns a workbook of the documents matching f.
// From and To are compared by calendar day (UTC) against the upload time;
// only From means From..today.
func (s *Service) ExportDocumentsXLSX(ctx context.Context, f Filter) ([]byte, error) {
	start := time.Now()

	recs, err := s.store.Search(ctx, f.OwnerID, f.Query)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	recs = inWindow(recs, f.From, f.To)

	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	idx, err := wb.NewSheet(SheetName)
	if err != nil {
		return nil, err
	}
	wb.SetActiveSheet(idx)
	_ = wb.DeleteSheet("Sheet1")

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = wb.SetCellValue(SheetName, cell, h)
	}
	if style, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = wb.SetCellStyle(SheetName, "A1", last, style)
	}

	for i, r := range recs {
		if err := writeRow(wb, i+2, r); err != nil {
			return nil, err
		}
	}

	_ = wb.SetColWidth(SheetName, "A", "A", 18)
	_ = wb.SetColWidth(SheetName, "B", "B", 32)
	_ = wb.SetColWidth(SheetName, "C", "D", 20)
	_ = wb.SetColWidth(SheetName, "E", "E", 8)
	_ = wb.SetColWidth(SheetName, "F", "G", 36)
	_ = wb.SetColWidth(SheetName, "H", "I", 14)
	_ = wb.SetColWidth(SheetName, "J", "J", 60)
	_ = wb.SetColWidth(SheetName, "K", "L", 40)

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"owner_id", f.OwnerID,
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(wb *excelize.File, row int, r *entity.DocumentRecord) error {
	dates := make([]string, 0, len(r.Dates))
	for _, d := range r.Dates {
		dates = append(dates, d.Raw+" ("+d.Format+")")
	}
	var conf, pages, errMsg any = "", "", ""
	if r.OCRConfidence != nil {
		conf = *r.OCRConfidence
	}
	if r.PageCount != nil {
		pages = *r.PageCount
	}
	if r.ErrorMessage != nil {
		errMsg = *r.ErrorMessage
	}

	values := []any{
		r.CreatedAt.UTC().Format("2006-01-02 15:04"),
		r.FileName,
		r.DocumentType,
		r.ProcessingMethod,
		r.WordCount,
		strings.Join(dates, "; "),
		strings.Join(r.Keywords, ", "),
		conf,
		pages,
		truncate(strings.Join(strings.Fields(r.ExtractedText), " "), excerptRunes),
		r.SourcePath,
		errMsg,
	}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	return wb.SetSheetRow(SheetName, cell, &values)
}

func inWindow(recs []*entity.DocumentRecord, from, to *time.Time) []*entity.DocumentRecord {
	if from == nil && to == nil {
		return recs
	}
	var lo, hi time.Time
	if from != nil {
		lo = day(*from)
		if to == nil {
			hi = day(time.Now())
		}
	}
	if to != nil {
		hi = day(*to)
	}
	out := recs[:0:0]
	for _, r := range recs {
		d := day(r.CreatedAt)
		if !lo.IsZero() && d.Before(lo) {
			continue
		}
		if !hi.IsZero() && d.After(hi) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

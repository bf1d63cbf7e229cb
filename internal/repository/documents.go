package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/entity"
	"github.com/joseph-ayodele/medrecords/internal/metadata"
)

// DocumentStore persists processed documents.
type DocumentStore interface {
	Save(ctx context.Context, rec *entity.DocumentRecord) error
	Get(ctx context.Context, id uuid.UUID) (*entity.DocumentRecord, error)
	GetByOwnerAndHash(ctx context.Context, ownerID, hash string) (*entity.DocumentRecord, error)
	List(ctx context.Context, ownerID string) ([]*entity.DocumentRecord, error)
	Search(ctx context.Context, ownerID, query string) ([]*entity.DocumentRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SQLStore implements DocumentStore over SQLite or Postgres.
type SQLStore struct {
	db      *sql.DB
	pool    *pgxpool.Pool
	dialect dialect
	logger  *slog.Logger
}

var _ DocumentStore = (*SQLStore)(nil)

const schemaSQL = `CREATE TABLE IF NOT EXISTS documents (
	id                TEXT PRIMARY KEY,
	owner_id          TEXT NOT NULL,
	source_path       TEXT NOT NULL DEFAULT '',
	file_name         TEXT NOT NULL,
	media_type        TEXT NOT NULL,
	file_size         BIGINT NOT NULL,
	content_hash      TEXT NOT NULL,
	processing_method TEXT NOT NULL,
	extracted_text    TEXT NOT NULL,
	document_type     TEXT NOT NULL,
	dates             TEXT NOT NULL,
	keywords          TEXT NOT NULL,
	word_count        INTEGER NOT NULL,
	ocr_confidence    DOUBLE PRECISION,
	page_count        INTEGER,
	error_message     TEXT,
	created_at        BIGINT NOT NULL
)`

const indexSQL = `CREATE INDEX IF NOT EXISTS documents_owner_hash ON documents (owner_id, content_hash)`

const selectColumns = `id, owner_id, source_path, file_name, media_type, file_size, content_hash,
	processing_method, extracted_text, document_type, dates, keywords, word_count,
	ocr_confidence, page_count, error_message, created_at`

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range []string{schemaSQL, indexSQL} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.logger.Error("failed to migrate schema", "error", err)
			return storageError("migrate", err)
		}
	}
	return nil
}

// bind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) bind(q string) string {
	if s.dialect != dialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Save validates the record's metadata projection and inserts or replaces it.
// A zero ID or CreatedAt is filled in.
func (s *SQLStore) Save(ctx context.Context, rec *entity.DocumentRecord) error {
	if rec == nil {
		return common.NewAppError("INVALID_INPUT", "nil record", common.ErrInvalidInput)
	}
	if err := metadata.Validate(projectionOf(rec)); err != nil {
		s.logger.Warn("repository.save.invalid", "file_name", rec.FileName, "error", err)
		return err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	dates, err := json.Marshal(nonNilDates(rec.Dates))
	if err != nil {
		return storageError("encode dates", err)
	}
	keywords, err := json.Marshal(nonNilStrings(rec.Keywords))
	if err != nil {
		return storageError("encode keywords", err)
	}

	q := s.bind(`INSERT INTO documents (` + selectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			processing_method = excluded.processing_method,
			extracted_text = excluded.extracted_text,
			document_type = excluded.document_type,
			dates = excluded.dates,
			keywords = excluded.keywords,
			word_count = excluded.word_count,
			ocr_confidence = excluded.ocr_confidence,
			page_count = excluded.page_count,
			error_message = excluded.error_message`)

	_, err = s.db.ExecContext(ctx, q,
		rec.ID.String(), rec.OwnerID, rec.SourcePath, rec.FileName, rec.MediaType, rec.FileSize, rec.ContentHash,
		rec.ProcessingMethod, rec.ExtractedText, rec.DocumentType, string(dates), string(keywords), rec.WordCount,
		nullFloat(rec.OCRConfidence), nullInt(rec.PageCount), nullString(rec.ErrorMessage), rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		s.logger.Error("failed to save document", "id", rec.ID, "file_name", rec.FileName, "error", err)
		return storageError("save document", err)
	}
	s.logger.Debug("repository.save.ok", "id", rec.ID, "owner_id", rec.OwnerID)
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id uuid.UUID) (*entity.DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx, s.bind(`SELECT `+selectColumns+` FROM documents WHERE id = ?`), id.String())
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "document "+id.String(), common.ErrNotFound)
	}
	if err != nil {
		return nil, storageError("get document", err)
	}
	return rec, nil
}

// GetByOwnerAndHash finds an already stored copy of the same bytes.
func (s *SQLStore) GetByOwnerAndHash(ctx context.Context, ownerID, hash string) (*entity.DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx,
		s.bind(`SELECT `+selectColumns+` FROM documents WHERE owner_id = ? AND content_hash = ? ORDER BY created_at DESC LIMIT 1`),
		ownerID, hash)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "document with hash "+hash, common.ErrNotFound)
	}
	if err != nil {
		return nil, storageError("get document by hash", err)
	}
	return rec, nil
}

// List returns an owner's documents, newest first. An empty owner lists all.
func (s *SQLStore) List(ctx context.Context, ownerID string) ([]*entity.DocumentRecord, error) {
	q := `SELECT ` + selectColumns + ` FROM documents`
	var args []any
	if ownerID != "" {
		q += ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}
	q += ` ORDER BY created_at DESC, id`
	return s.query(ctx, q, args...)
}

// Search matches query case-insensitively against file name, extracted text
// and document type. An empty query is the same as List.
func (s *SQLStore) Search(ctx context.Context, ownerID, query string) ([]*entity.DocumentRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx, ownerID)
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	q := `SELECT ` + selectColumns + ` FROM documents WHERE
		(LOWER(file_name) LIKE ? ESCAPE '\' OR LOWER(extracted_text) LIKE ? ESCAPE '\' OR LOWER(document_type) LIKE ? ESCAPE '\')`
	args := []any{pattern, pattern, pattern}
	if ownerID != "" {
		q += ` AND owner_id = ?`
		args = append(args, ownerID)
	}
	q += ` ORDER BY created_at DESC, id`
	return s.query(ctx, q, args...)
}

func (s *SQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, s.bind(`DELETE FROM documents WHERE id = ?`), id.String())
	if err != nil {
		return storageError("delete document", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("NOT_FOUND", "document "+id.String(), common.ErrNotFound)
	}
	s.logger.Info("repository.delete.ok", "id", id)
	return nil
}

func (s *SQLStore) query(ctx context.Context, q string, args ...any) ([]*entity.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(q), args...)
	if err != nil {
		return nil, storageError("query documents", err)
	}
	defer rows.Close()

	out := []*entity.DocumentRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storageError("scan document", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate documents", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*entity.DocumentRecord, error) {
	var (
		rec              entity.DocumentRecord
		id               string
		dates, keywords  string
		conf             sql.NullFloat64
		pages            sql.NullInt64
		errMsg           sql.NullString
		createdUnixNanos int64
	)
	err := sc.Scan(&id, &rec.OwnerID, &rec.SourcePath, &rec.FileName, &rec.MediaType, &rec.FileSize, &rec.ContentHash,
		&rec.ProcessingMethod, &rec.ExtractedText, &rec.DocumentType, &dates, &keywords, &rec.WordCount,
		&conf, &pages, &errMsg, &createdUnixNanos)
	if err != nil {
		return nil, err
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(dates), &rec.Dates); err != nil {
		return nil, fmt.Errorf("decode dates: %w", err)
	}
	if err := json.Unmarshal([]byte(keywords), &rec.Keywords); err != nil {
		return nil, fmt.Errorf("decode keywords: %w", err)
	}
	if conf.Valid {
		rec.OCRConfidence = &conf.Float64
	}
	if pages.Valid {
		n := int(pages.Int64)
		rec.PageCount = &n
	}
	if errMsg.Valid {
		rec.ErrorMessage = &errMsg.String
	}
	rec.CreatedAt = time.Unix(0, createdUnixNanos).UTC()
	return &rec, nil
}

// projectionOf rebuilds the metadata projection a record was built from.
func projectionOf(rec *entity.DocumentRecord) metadata.Projection {
	return metadata.Projection{
		HasText:       rec.ExtractedText != "",
		TextLength:    utf8.RuneCountInString(rec.ExtractedText),
		WordCount:     rec.WordCount,
		DocumentType:  rec.DocumentType,
		Dates:         nonNilDates(rec.Dates),
		Keywords:      nonNilStrings(rec.Keywords),
		OCRConfidence: rec.OCRConfidence,
		PageCount:     rec.PageCount,
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func storageError(op string, err error) error {
	return common.NewAppError(common.CodeStorage, op, errors.Join(common.ErrDatabase, err))
}

func nonNilDates(d []entity.DateMatch) []entity.DateMatch {
	if d == nil {
		return []entity.DateMatch{}
	}
	return d
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

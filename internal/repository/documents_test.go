package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/entity"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), Config{DSN: "sqlite::memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(owner, name, text, docType string, at time.Time) *entity.DocumentRecord {
	conf := 91.5
	return &entity.DocumentRecord{
		OwnerID:          owner,
		FileName:         name,
		MediaType:        "image/png",
		FileSize:         1234,
		ContentHash:      "hash-" + name,
		ProcessingMethod: "ocr",
		ExtractedText:    text,
		DocumentType:     docType,
		Dates:            []entity.DateMatch{{Raw: "03/15/2024", Format: "MM/DD/YYYY"}},
		Keywords:         []string{"mg", "Patient"},
		WordCount:        len(text),
		OCRConfidence:    &conf,
		CreatedAt:        at,
	}
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := record("o1", "visit.png", "Patient seen", "Medical Report", time.Now())

	require.NoError(t, s.Save(ctx, rec))
	require.NotEqual(t, uuid.Nil, rec.ID)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "visit.png", got.FileName)
	assert.Equal(t, rec.Dates, got.Dates)
	assert.Equal(t, rec.Keywords, got.Keywords)
	require.NotNil(t, got.OCRConfidence)
	assert.InDelta(t, 91.5, *got.OCRConfidence, 1e-9)
	assert.Nil(t, got.PageCount)
	assert.Nil(t, got.ErrorMessage)
	assert.Equal(t, rec.CreatedAt.UnixNano(), got.CreatedAt.UnixNano())
}

func TestSaveIsUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := record("o1", "a.pdf", "first", "Medical Document", time.Now())
	require.NoError(t, s.Save(ctx, rec))

	msg := "extraction failed"
	rec.ProcessingMethod = "failed"
	rec.ExtractedText = ""
	rec.ErrorMessage = &msg
	rec.OCRConfidence = nil
	rec.DocumentType = "Unknown"
	rec.Keywords = nil
	rec.Dates = nil
	rec.WordCount = 0
	require.NoError(t, s.Save(ctx, rec))

	all, err := s.List(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "failed", all[0].ProcessingMethod)
	require.NotNil(t, all[0].ErrorMessage)
	assert.Equal(t, msg, *all[0].ErrorMessage)
	assert.Empty(t, all[0].Keywords)
	assert.NotNil(t, all[0].Keywords)
}

func TestSaveRejectsInvalidProjection(t *testing.T) {
	s := openTestStore(t)
	rec := record("o1", "a.png", "text", "", time.Now())
	err := s.Save(context.Background(), rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)

	rec = record("o1", "b.png", "text", "Medical Report", time.Now())
	rec.Keywords = []string{"mg", "mg"}
	assert.ErrorIs(t, s.Save(context.Background(), rec), common.ErrValidation)
}

func TestListSearchAndOwnerScoping(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now()
	older := record("o1", "blood_panel.pdf", "Hemoglobin within range", "Lab Report", base.Add(-time.Hour))
	newer := record("o1", "rx.png", "Take Amoxicillin 500mg", "Prescription", base)
	other := record("o2", "rx2.png", "Amoxicillin refill", "Prescription", base)
	for _, r := range []*entity.DocumentRecord{older, newer, other} {
		require.NoError(t, s.Save(ctx, r))
	}

	list, err := s.List(ctx, "o1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	hits, err := s.Search(ctx, "o1", "AMOXICILLIN")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, newer.ID, hits[0].ID)

	hits, err = s.Search(ctx, "o1", "lab report")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, older.ID, hits[0].ID)

	hits, err = s.Search(ctx, "o1", "blood_")
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = s.Search(ctx, "o1", "100%")
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = s.Search(ctx, "", "amoxicillin")
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestGetByOwnerAndHash(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := record("o1", "a.png", "text here", "Medical Document", time.Now())
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.GetByOwnerAndHash(ctx, "o1", rec.ContentHash)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	_, err = s.GetByOwnerAndHash(ctx, "o2", rec.ContentHash)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteAndNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rec := record("o1", "a.png", "text", "Medical Document", time.Now())
	require.NoError(t, s.Save(ctx, rec))

	require.NoError(t, s.Delete(ctx, rec.ID))
	_, err := s.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, rec.ID), common.ErrNotFound)
}

func TestHealthCheck(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.HealthCheck(context.Background(), time.Second))
	assert.Equal(t, "sqlite", s.Dialect())
}

func TestBindPostgres(t *testing.T) {
	s := &SQLStore{dialect: dialectPostgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", s.bind("SELECT a FROM t WHERE x = ? AND y = ?"))
	s.dialect = dialectSQLite
	assert.Equal(t, "x = ?", s.bind("x = ?"))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}

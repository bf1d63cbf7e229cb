package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/medrecords/constants"
	"github.com/joseph-ayodele/medrecords/internal/common"
	"github.com/joseph-ayodele/medrecords/internal/entity"
	"github.com/joseph-ayodele/medrecords/internal/ocr"
	"github.com/joseph-ayodele/medrecords/internal/preprocess"
)

const scenarioA = "Patient seen on 03/15/2024, prescribed Lisinopril 10mg once daily with food."

type fakeExtractor struct {
	variant ocr.Variant
	text    string
	err     error
	steps   []float64

	mu   sync.Mutex
	seen []entity.RawDocument
}

func (f *fakeExtractor) Variant() ocr.Variant { return f.variant }

func (f *fakeExtractor) Extract(ctx context.Context, doc entity.RawDocument, progress ocr.ProgressFunc) (ocr.Result, error) {
	f.mu.Lock()
	f.seen = append(f.seen, doc)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	for _, s := range f.steps {
		progress(s)
	}
	if f.err != nil {
		return ocr.Result{}, f.err
	}
	res := ocr.Result{Text: f.text, Method: f.variant.String()}
	if f.variant == ocr.Raster {
		c := 88.5
		res.Confidence = &c
	} else {
		n := 2
		res.PageCount = &n
	}
	return res, nil
}

type recorder struct {
	events []Event
}

func (r *recorder) Emit(e Event) { r.events = append(r.events, e) }

func (r *recorder) stages() []constants.Stage {
	out := make([]constants.Stage, 0, len(r.events))
	for _, e := range r.events {
		if len(out) == 0 || out[len(out)-1] != e.Stage {
			out = append(out, e.Stage)
		}
	}
	return out
}

func grayPNG(t *testing.T, w, h int, v uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestProcessor(mode preprocess.Mode, extractors ...ocr.Extractor) *Processor {
	adapter := ocr.NewAdapter(nil, extractors...)
	return NewProcessor(nil, NewPreprocessStage(mode, nil, nil, nil), NewExtractStage(adapter, nil))
}

func TestCanProcess(t *testing.T) {
	p := newTestProcessor(preprocess.ModeOff,
		&fakeExtractor{variant: ocr.Raster},
		&fakeExtractor{variant: ocr.PDFText},
	)
	assert.True(t, p.CanProcess("image/png"))
	assert.True(t, p.CanProcess("IMAGE/JPEG"))
	assert.True(t, p.CanProcess("application/pdf; charset=binary"))
	assert.False(t, p.CanProcess("text/plain"))
	assert.False(t, p.CanProcess(""))

	pdfOnly := newTestProcessor(preprocess.ModeOff, &fakeExtractor{variant: ocr.PDFText})
	assert.False(t, pdfOnly.CanProcess("image/png"))
}

func TestProcessUnsupportedMedia(t *testing.T) {
	p := newTestProcessor(preprocess.ModeOff, &fakeExtractor{variant: ocr.Raster})
	rec := &recorder{}

	res, err := p.Process(context.Background(), entity.RawDocument{Name: "notes.txt", MediaType: "text/plain", Data: []byte("hello")}, rec)
	require.NoError(t, err)

	assert.Equal(t, constants.MethodNone, res.ProcessingMethod)
	assert.Empty(t, res.ExtractedText)
	assert.Equal(t, constants.DocTypeUnknown, res.Analysis.DocumentType)
	assert.Empty(t, res.Analysis.Dates)
	assert.Equal(t, 0, res.Analysis.WordCount)
	assert.False(t, res.Metadata.HasText)
	assert.Equal(t, []Event{
		{Stage: constants.StageAnalyzing, Percent: 85},
		{Stage: constants.StageComplete, Percent: 100},
	}, rec.events)
}

func TestProcessPDFPath(t *testing.T) {
	ex := &fakeExtractor{variant: ocr.PDFText, text: scenarioA, steps: []float64{0.5, 1}}
	p := newTestProcessor(preprocess.ModeAuto, ex)
	rec := &recorder{}

	res, err := p.Process(context.Background(), entity.RawDocument{Name: "visit.pdf", MediaType: constants.MediaTypePDF, Data: []byte("%PDF")}, rec)
	require.NoError(t, err)

	assert.Equal(t, constants.MethodPDF, res.ProcessingMethod)
	assert.Nil(t, res.Preprocessing)
	assert.Equal(t, scenarioA, res.ExtractedText)
	assert.Equal(t, constants.DocTypeMedical, res.Analysis.DocumentType)
	assert.Nil(t, res.Metadata.OCRConfidence)
	require.NotNil(t, res.Metadata.PageCount)
	assert.Equal(t, 2, *res.Metadata.PageCount)
	assert.Equal(t, res.Analysis.WordCount, res.Metadata.WordCount)
	assert.Equal(t, []Event{
		{Stage: constants.StageExtracting, Percent: 20},
		{Stage: constants.StageExtracting, Percent: 50},
		{Stage: constants.StageExtracting, Percent: 80},
		{Stage: constants.StageAnalyzing, Percent: 85},
		{Stage: constants.StageComplete, Percent: 100},
	}, rec.events)
}

func TestProcessImagePathWithoutPreprocessing(t *testing.T) {
	ex := &fakeExtractor{variant: ocr.Raster, text: scenarioA, steps: []float64{0.25, 1}}
	p := newTestProcessor(preprocess.ModeOff, ex)
	rec := &recorder{}
	data := grayPNG(t, 8, 8, 200)

	res, err := p.Process(context.Background(), entity.RawDocument{Name: "scan.png", MediaType: "image/png", Data: data}, rec)
	require.NoError(t, err)

	assert.Equal(t, constants.MethodOCR, res.ProcessingMethod)
	require.NotNil(t, res.Preprocessing)
	assert.False(t, res.Preprocessing.Applied)
	require.Len(t, ex.seen, 1)
	assert.Equal(t, data, ex.seen[0].Data)
	require.NotNil(t, res.Metadata.OCRConfidence)
	assert.InDelta(t, 88.5, *res.Metadata.OCRConfidence, 1e-9)
	assert.Nil(t, res.Metadata.PageCount)
	assert.Equal(t, []Event{
		{Stage: constants.StagePreprocessing, Percent: 10},
		{Stage: constants.StageExtracting, Percent: 30},
		{Stage: constants.StageExtracting, Percent: 42},
		{Stage: constants.StageExtracting, Percent: 80},
		{Stage: constants.StageAnalyzing, Percent: 85},
		{Stage: constants.StageComplete, Percent: 100},
	}, rec.events)
}

func TestProcessImageAutoPreprocessing(t *testing.T) {
	ex := &fakeExtractor{variant: ocr.Raster, text: scenarioA}
	p := newTestProcessor(preprocess.ModeAuto, ex)

	res, err := p.Process(context.Background(), entity.RawDocument{Name: "scan.png", MediaType: "image/png", Data: grayPNG(t, 10, 10, 128)}, nil)
	require.NoError(t, err)

	info := res.Preprocessing
	require.NotNil(t, info)
	require.NotNil(t, info.Quality)
	assert.True(t, info.Quality.IsBlurry)
	require.NotNil(t, info.Profile)
	assert.Equal(t, preprocess.Heavy, *info.Profile)
	assert.True(t, info.Applied)
	require.NotNil(t, info.Report)
	assert.Equal(t, 25, info.Report.Width)

	require.Len(t, ex.seen, 1)
	assert.Equal(t, preprocess.OutputPrefix+"scan.png", ex.seen[0].Name)
	assert.Equal(t, "scan.png", res.Name)
}

func TestProcessPreprocessingFallsBackToOriginal(t *testing.T) {
	ex := &fakeExtractor{variant: ocr.Raster, text: scenarioA}
	p := newTestProcessor(preprocess.ModeAuto, ex)
	data := []byte("definitely not an image")

	res, err := p.Process(context.Background(), entity.RawDocument{Name: "bad.png", MediaType: "image/png", Data: data}, nil)
	require.NoError(t, err)

	assert.Equal(t, constants.MethodOCR, res.ProcessingMethod)
	require.NotNil(t, res.Preprocessing)
	assert.False(t, res.Preprocessing.Applied)
	assert.Nil(t, res.Preprocessing.Quality)
	assert.Equal(t, preprocess.Standard, *res.Preprocessing.Profile)
	assert.Len(t, res.Warnings, 2)
	require.Len(t, ex.seen, 1)
	assert.Equal(t, data, ex.seen[0].Data)
}

func TestProcessExtractionFailure(t *testing.T) {
	ex := &fakeExtractor{variant: ocr.PDFText, err: errors.New("engine exploded"), steps: []float64{0.5}}
	p := newTestProcessor(preprocess.ModeOff, ex)
	rec := &recorder{}

	res, err := p.Process(context.Background(), entity.RawDocument{Name: "x.pdf", MediaType: constants.MediaTypePDF, Data: []byte("%PDF")}, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtraction)
	assert.NotErrorIs(t, err, common.ErrCancelled)

	require.NotNil(t, res)
	assert.True(t, res.Failed())
	assert.False(t, res.Cancelled)
	assert.Contains(t, res.Error, "engine exploded")
	assert.Empty(t, res.ExtractedText)
	assert.Equal(t, constants.DocTypeUnknown, res.Analysis.DocumentType)
	assert.Equal(t, []constants.Stage{constants.StageExtracting}, rec.stages())
}

func TestProcessCancelled(t *testing.T) {
	ex := &fakeExtractor{variant: ocr.Raster, text: scenarioA}
	p := newTestProcessor(preprocess.ModeOff, ex)
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Process(ctx, entity.RawDocument{Name: "s.png", MediaType: "image/png", Data: grayPNG(t, 4, 4, 10)}, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCancelled)
	assert.NotErrorIs(t, err, common.ErrExtraction)
	assert.True(t, res.Cancelled)
	assert.Equal(t, constants.MethodFailed, res.ProcessingMethod)
	assert.NotContains(t, rec.stages(), constants.StageComplete)
}

func TestProcessCancelledDuringEnhancement(t *testing.T) {
	ex := &fakeExtractor{variant: ocr.Raster, text: scenarioA}
	p := newTestProcessor(preprocess.ModeHeavy, ex)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Process(ctx, entity.RawDocument{Name: "s.png", MediaType: "image/png", Data: grayPNG(t, 4, 4, 10)}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCancelled)
	assert.True(t, res.Cancelled)
	assert.Empty(t, ex.seen)
}

func TestProcessConcurrentRunsAreIndependent(t *testing.T) {
	ex := &fakeExtractor{variant: ocr.Raster, text: scenarioA}
	p := newTestProcessor(preprocess.ModeQuick, ex)
	data := grayPNG(t, 12, 12, 90)

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := p.Process(context.Background(), entity.RawDocument{Name: "c.png", MediaType: "image/png", Data: data}, nil)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, constants.MethodOCR, r.ProcessingMethod)
		assert.True(t, r.Preprocessing.Applied)
	}
	assert.Len(t, ex.seen, len(results))
}

func TestResultRecord(t *testing.T) {
	ex := &fakeExtractor{variant: ocr.Raster, text: scenarioA}
	p := newTestProcessor(preprocess.ModeOff, ex)
	res, err := p.Process(context.Background(), entity.RawDocument{Name: "rx.png", MediaType: "image/png", Data: grayPNG(t, 2, 2, 1)}, nil)
	require.NoError(t, err)

	rec := res.Record("owner-1", "/inbox/rx.png")
	assert.Equal(t, res.ID, rec.ID)
	assert.Equal(t, "owner-1", rec.OwnerID)
	assert.Equal(t, "/inbox/rx.png", rec.SourcePath)
	assert.Equal(t, "ocr", rec.ProcessingMethod)
	assert.Equal(t, res.Metadata.Keywords, rec.Keywords)
	assert.Equal(t, res.Metadata.Dates, rec.Dates)
	assert.Nil(t, rec.ErrorMessage)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestNewFromConfig(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.OCR.Engine = ocr.EngineExec
	cfg.OCR.ArtifactCacheDir = t.TempDir()
	cfg.Preprocess.Mode = "Heavy"

	p, err := NewFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, preprocess.ModeHeavy, p.Preprocess.Mode)
	conv, ok := p.Preprocess.Converter.(*ocr.HEICConverter)
	require.True(t, ok)
	assert.Equal(t, cfg.OCR.ArtifactCacheDir, conv.CacheDir())
	assert.True(t, p.CanProcess("image/png"))
	assert.True(t, p.CanProcess("application/pdf"))
	assert.False(t, p.CanProcess("text/plain"))

	cfg.OCR.HeicConverter = ""
	p, err = NewFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, p.Preprocess.Converter)

	cfg.Preprocess.Mode = "sharpest"
	_, err = NewFromConfig(cfg, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	cfg.Preprocess.Mode = "off"
	cfg.OCR.Engine = "cloud"
	_, err = NewFromConfig(cfg, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/medrecords/constants"
	"github.com/joseph-ayodele/medrecords/internal/pipeline"
)

func run(t *testing.T, stdin string, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.Bytes()
}

func TestAnalyzeFromStdin(t *testing.T) {
	out := run(t, "Lab results from 2024-01-10: glucose and cholesterol within range.", "analyze", "--highlight", "glucose")

	var got map[string]any
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, constants.DocTypeLabReport, got["document_type"])
	assert.Equal(t, true, got["has_content"])
	assert.Contains(t, got["highlighted"], "<mark>glucose</mark>")
}

func TestQualityCommand(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 20, 20))
	for i := range img.Pix {
		img.Pix[i] = 40
	}
	img.SetGray(0, 0, color.Gray{Y: 41})
	path := filepath.Join(t.TempDir(), "dark.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	out := run(t, "", "quality", path)
	var got struct {
		Quality struct {
			IsDark bool `json:"is_dark"`
		} `json:"quality"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(out, &got))
	assert.True(t, got.Quality.IsDark)
	assert.Equal(t, "heavy", got.Profile.Name)
}

func TestBatchProgressAggregates(t *testing.T) {
	b := newBatchProgress(io.Discard, 2)
	b.Sink(0, "a.png").Emit(pipeline.Event{Stage: constants.StageExtracting, Percent: 40})
	b.Sink(1, "b.pdf").Emit(pipeline.Event{Stage: constants.StageAnalyzing, Percent: 85})
	b.Sink(0, "a.png").Emit(pipeline.Event{Stage: constants.StagePreprocessing, Percent: 10})
	assert.Equal(t, []int{40, 85}, b.percent)
	assert.EqualValues(t, 125, b.bar.State().CurrentNum)

	b.Done(0, "a.png")
	b.Done(1, "b.pdf")
	assert.Equal(t, []int{100, 100}, b.percent)
	b.Finish()
}

func TestProcessUnreadableFileIsFailed(t *testing.T) {
	t.Setenv("OCR_ENGINE", "exec")
	dir := t.TempDir()
	outPath := filepath.Join(dir, "results.json")
	missing := filepath.Join(dir, "missing.png")

	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"process", "--no-progress", "-o", outPath, missing})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 document(s) failed")

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var got []struct {
		Name             string                     `json:"name"`
		ProcessingMethod constants.ProcessingMethod `json:"processing_method"`
		Error            string                     `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 1)
	assert.Equal(t, missing, got[0].Name)
	assert.Equal(t, constants.MethodFailed, got[0].ProcessingMethod)
	assert.NotEmpty(t, got[0].Error)

	res := loadFailure(missing, os.ErrNotExist)
	assert.True(t, res.Failed())
	assert.NotNil(t, res.Analysis.Dates)
}

package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// ExecEngine shells out to the tesseract CLI: once for text, once in TSV
// mode for per-word confidence.
type ExecEngine struct {
	bin    string
	runner Runner
	logger *slog.Logger
}

// NewExecEngine uses ExecRunner when runner is nil.
func NewExecEngine(bin string, runner Runner, logger *slog.Logger) *ExecEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if bin == "" {
		bin = "tesseract"
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &ExecEngine{bin: bin, runner: runner, logger: logger}
}

func (e *ExecEngine) Name() string { return EngineExec }

func (e *ExecEngine) Recognize(ctx context.Context, image []byte, opts Options) (Recognition, error) {
	f, err := os.CreateTemp("", "medrec-ocr-*")
	if err != nil {
		return Recognition{}, err
	}
	path := f.Name()
	defer func() {
		if err := os.Remove(path); err != nil {
			e.logger.Warn("failed to remove ocr temp file", "path", path, "error", err)
		}
	}()
	if _, err := f.Write(image); err != nil {
		_ = f.Close()
		return Recognition{}, err
	}
	if err := f.Close(); err != nil {
		return Recognition{}, err
	}

	args := e.args(path, opts)

	// tesseract <file> stdout -l <lang> ...
	out, errb, err := e.runner.Run(ctx, e.bin, args...)
	if err != nil {
		return Recognition{}, fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	rec := Recognition{Text: reBoxNoise.ReplaceAllString(string(out), "")}

	tsv, errb, err := e.runner.Run(ctx, e.bin, append(args, "tsv")...)
	if err != nil {
		if ctx.Err() != nil {
			return Recognition{}, ctx.Err()
		}
		e.logger.Warn("tesseract tsv failed, confidence unavailable", "error", err, "stderr", truncate(string(errb), 512))
		rec.Words = len(strings.Fields(rec.Text))
		return rec, nil
	}
	rec.Confidence, rec.Words = parseTSV(tsv)
	return rec, nil
}

func (e *ExecEngine) args(path string, opts Options) []string {
	args := []string{path, "stdout"}
	if len(opts.Languages) > 0 {
		args = append(args, "-l", strings.Join(opts.Languages, "+"))
	}
	if opts.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(opts.PSM))
	}
	if opts.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(opts.OEM))
	}
	if opts.TessdataDir != "" {
		args = append(args, "--tessdata-dir", opts.TessdataDir)
	}
	return args
}

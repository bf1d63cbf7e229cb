package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"time"
)

// Runner executes an external tool. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner is the os/exec Runner. The process is killed when ctx ends.
type ExecRunner struct {
	Logger *slog.Logger
}

const stderrLogLimit = 8 << 10

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	start := time.Now()
	err := cmd.Run()
	attrs := []any{"cmd", name, "args", args, "duration_ms", time.Since(start).Milliseconds()}
	if err != nil {
		logger.Error("ocr.exec.failed", append(attrs, "error", err, "stderr", truncate(stderr.String(), stderrLogLimit))...)
	} else {
		logger.Debug("ocr.exec.ok", append(attrs, "stdout_bytes", stdout.Len())...)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/joseph-ayodele/medrecords/internal/pipeline"
)

// batchProgress folds per-document percentages into one bar whose maximum is
// 100 per document.
type batchProgress struct {
	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	percent []int
}

func newBatchProgress(w io.Writer, docs int) *batchProgress {
	bar := progressbar.NewOptions64(
		int64(docs*100),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("processing %d document(s)", docs)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &batchProgress{bar: bar, percent: make([]int, docs)}
}

// Sink returns the progress sink for document i.
func (b *batchProgress) Sink(i int, name string) pipeline.Sink {
	return pipeline.SinkFunc(func(e pipeline.Event) {
		b.update(i, e.Percent, fmt.Sprintf("%-13s %s", e.Stage, name))
	})
}

// Done marks document i as finished even when it stopped short of 100.
func (b *batchProgress) Done(i int, name string) {
	b.update(i, 100, fmt.Sprintf("%-13s %s", "done", name))
}

func (b *batchProgress) update(i, percent int, desc string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if percent <= b.percent[i] {
		return
	}
	b.percent[i] = percent
	total := 0
	for _, p := range b.percent {
		total += p
	}
	b.bar.Describe(desc)
	_ = b.bar.Set64(int64(total))
}

func (b *batchProgress) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Finish()
}

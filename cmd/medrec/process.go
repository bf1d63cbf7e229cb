package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/medrecords/constants"
	"github.com/joseph-ayodele/medrecords/internal/analysis"
	"github.com/joseph-ayodele/medrecords/internal/ingest"
	"github.com/joseph-ayodele/medrecords/internal/pipeline"
	"github.com/joseph-ayodele/medrecords/internal/repository"
)

var (
	processJobs       int
	processMode       string
	processOut        string
	processOwner      string
	processStore      bool
	processNoProgress bool
	processTimeout    time.Duration
)

var processCmd = &cobra.Command{
	Use:   "process <file>...",
	Short: "Run the document pipeline over one or more files",
	Long: `Process preprocesses, extracts and analyzes each file and prints the
results as a JSON array. With --store the records are also saved to the
configured database.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().IntVarP(&processJobs, "jobs", "j", 0, "documents processed concurrently (default: queue workers)")
	processCmd.Flags().StringVarP(&processMode, "mode", "m", "", "preprocessing mode: auto, quick, standard, heavy, off")
	processCmd.Flags().StringVarP(&processOut, "output", "o", "", "write JSON results to this file instead of stdout")
	processCmd.Flags().StringVar(&processOwner, "owner", "local", "owner id recorded with stored documents")
	processCmd.Flags().BoolVar(&processStore, "store", false, "save results to the configured database")
	processCmd.Flags().BoolVar(&processNoProgress, "no-progress", false, "disable the progress bar")
	processCmd.Flags().DurationVar(&processTimeout, "timeout", 0, "per-document timeout (default: process_timeout from config)")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if processMode != "" {
		cfg.Preprocess.Mode = processMode
	}
	proc, err := pipeline.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}

	var store repository.DocumentStore
	if processStore {
		s, err := repository.Open(ctx, repository.ConfigFrom(cfg.Store), logger)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer s.Close()
		store = s
	}

	jobs := processJobs
	if jobs <= 0 {
		jobs = cfg.Queue.Workers
	}
	timeout := processTimeout
	if timeout <= 0 {
		timeout = cfg.Queue.ProcessTimeout
	}

	var progress *batchProgress
	if !processNoProgress {
		progress = newBatchProgress(os.Stderr, len(args))
	}

	results := make([]*pipeline.Result, len(args))
	failed := make([]bool, len(args))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range args {
		g.Go(func() error {
			doc, err := ingest.LoadFile(path, cfg.Server.MaxUploadBytes)
			if err != nil {
				logger.Error("cli.load_failed", "path", path, "error", err)
				results[i] = loadFailure(path, err)
				failed[i] = true
				return nil
			}

			sink := pipeline.Discard
			if progress != nil {
				sink = progress.Sink(i, doc.Name)
				defer progress.Done(i, doc.Name)
			}

			pctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			res, perr := proc.Process(pctx, doc, sink)
			results[i] = res
			if perr != nil {
				failed[i] = true
				logger.Warn("cli.process_failed", "path", path, "error", perr)
			}
			if store != nil && res != nil && !res.Cancelled {
				if err := store.Save(gctx, res.Record(processOwner, doc.SourcePath)); err != nil {
					logger.Error("cli.store_failed", "path", path, "error", err)
					failed[i] = true
				}
			}
			// Stop scheduling new documents once the user interrupts.
			return ctx.Err()
		})
	}
	werr := g.Wait()
	if progress != nil {
		progress.Finish()
	}

	out, err := openOutput(processOut)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := writeJSON(out, results); err != nil {
		return err
	}

	if werr != nil {
		return werr
	}
	n := 0
	for _, f := range failed {
		if f {
			n++
		}
	}
	if n > 0 {
		return fmt.Errorf("%d of %d document(s) failed", n, len(args))
	}
	return nil
}

// loadFailure is the result for a file that could not be read, shaped like
// any other failed run.
func loadFailure(path string, err error) *pipeline.Result {
	return &pipeline.Result{
		Name:             path,
		ProcessingMethod: constants.MethodFailed,
		Analysis:         analysis.Empty(),
		Error:            err.Error(),
	}
}

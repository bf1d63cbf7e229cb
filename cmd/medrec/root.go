package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/medrecords/internal/common"
)

var (
	cfgFile string
	verbose bool

	cfg    *common.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "medrec",
	Short: "Extract and analyze text from scanned medical documents",
	Long: `medrec runs the document pipeline locally: image quality analysis,
adaptive preprocessing, OCR or PDF text extraction and medical text analysis.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = common.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		switch {
		case verbose:
			cfg.Log.Level = "debug"
		case os.Getenv("LOG_LEVEL") == "":
			cfg.Log.Level = "warn"
		}
		// Logs go to stderr so stdout stays machine readable.
		logger = common.NewLogger(cfg.Log, os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// openOutput returns stdout for "" or "-".
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

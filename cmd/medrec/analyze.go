package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/medrecords/internal/analysis"
)

var analyzeHighlight string

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze plain text for dates, medical keywords and document type",
	Long:  "Analyze reads text from the named file, or stdin when no file is given, and prints the analysis as JSON.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeHighlight, "highlight", "", "also print the text with matches of this query wrapped in <mark>")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read text: %w", err)
	}
	text := string(b)

	out := struct {
		analysis.Analysis
		Highlighted string `json:"highlighted,omitempty"`
	}{Analysis: analysis.Analyze(text)}
	if analyzeHighlight != "" {
		out.Highlighted = analysis.Highlight(text, analyzeHighlight)
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

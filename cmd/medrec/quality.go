package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/medrecords/internal/preprocess"
)

var qualityCmd = &cobra.Command{
	Use:   "quality <image>",
	Short: "Report image quality and the preprocessing preset it would get",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		q, err := preprocess.AnalyzeQuality(data)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), struct {
			Quality preprocess.QualityProfile `json:"quality"`
			Profile preprocess.Profile        `json:"profile"`
		}{q, preprocess.Select(q)})
	},
}

func init() {
	rootCmd.AddCommand(qualityCmd)
}

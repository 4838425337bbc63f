// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cv-evaluator/internal/enrich"
	"github.com/pdiddy/cv-evaluator/internal/pace"
	"github.com/pdiddy/cv-evaluator/internal/scholar"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <cv.json>",
	Short: "Enrich the publications of a CV record with bibliographic data",
	Long: `Enrich looks up every publication of the record by title, using the
record's name as the author, and adds the matched identifiers, year,
citation count and venue. Lookups run one at a time with the configured
spacing. Publications without a match pass through unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrich,
}

func runEnrich(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("output")

	cv, err := readRecord(args[0])
	if err != nil {
		return err
	}

	lookup, err := scholar.NewClientFromConfig(cfg.Lookup, log, prom)
	if err != nil {
		return err
	}
	stage := enrich.NewStage(lookup, pace.NewGate(cfg.Lookup.RequestInterval, nil), log)

	enriched, sum, err := stage.EnrichCV(cmd.Context(), cv)
	if err != nil {
		return err
	}
	if err := writeRecord(out, format, enriched); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d publications: %d matched, %d unmatched\n", sum.Total, sum.Matched, sum.Unmatched)
	return nil
}

func init() {
	enrichCmd.Flags().String("format", "json", "output format: json or yaml")
	enrichCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(enrichCmd)
}

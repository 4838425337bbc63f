// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cv-evaluator/internal/evaluate"
	"github.com/pdiddy/cv-evaluator/internal/label"
	"github.com/pdiddy/cv-evaluator/internal/llm"
	"github.com/pdiddy/cv-evaluator/internal/report"
)

var rateCmd = &cobra.Command{
	Use:   "rate <cv.json>",
	Short: "Rate the O-1A criteria for a CV record",
	Long: `Rate asks the LLM to rate each O-1A criterion for the record and derives
the overall assessment. The record is normally the further-enriched output
of the labeling stage; pass --label to run labeling on an enriched record
first. Use --category to rate a single criterion.`,
	Args: cobra.ExactArgs(1),
	RunE: runRate,
}

func runRate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("output")
	category, _ := cmd.Flags().GetString("category")
	doLabel, _ := cmd.Flags().GetBool("label")

	cv, err := readRecord(args[0])
	if err != nil {
		return err
	}

	client, err := llm.New(ctx, cfg.LLM, log, prom)
	if err != nil {
		return err
	}

	insights := ""
	if doLabel {
		labeler := label.NewStage(client, client, log)
		if cv, err = labeler.Analyze(ctx, cv); err != nil {
			return err
		}
		if insights, err = labeler.Insights(ctx, cv); err != nil {
			return err
		}
	}

	rater := evaluate.NewRater(client, log)
	if category != "" {
		if _, ok := evaluate.Lookup(category); !ok {
			return fmt.Errorf("unknown category %q", category)
		}
		res, err := rater.EvaluateCategory(ctx, category, cv)
		if err != nil {
			return err
		}
		return writeRecord(out, format, res)
	}

	eval, err := rater.EvaluateAll(ctx, cv)
	if err != nil {
		return err
	}
	w, closeFn, err := output(out)
	if err != nil {
		return err
	}
	if err := report.Write(w, format, eval, insights); err != nil {
		closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "overall: %s\n", eval.Assessment.Overall)
	return nil
}

func init() {
	rateCmd.Flags().String("format", report.FormatJSON, "output format: json, yaml, markdown or html")
	rateCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	rateCmd.Flags().String("category", "", "rate only this category, e.g. \"Awards\"")
	rateCmd.Flags().Bool("label", false, "label and analyze the record before rating")

	rootCmd.AddCommand(rateCmd)
}

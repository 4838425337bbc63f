// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/document"
	"github.com/pdiddy/cv-evaluator/internal/pipeline"
	"github.com/pdiddy/cv-evaluator/internal/report"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [document]",
	Short: "Run the full evaluation pipeline on a CV",
	Long: `Evaluate converts the document to text, extracts the CV record, enriches
its publications, labels and analyzes it, rates the eight O-1A criteria and
writes the result.

Every stage output is stored under the work directory. Use --from-run with
--from-stage to start a new run from a stored stage of an earlier run
instead of a document.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("output")
	fromRun, _ := cmd.Flags().GetString("from-run")
	fromStage, _ := cmd.Flags().GetString("from-stage")

	if (len(args) == 0) == (fromRun == "") {
		return fmt.Errorf("provide either a document or --from-run")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := pipeline.FromConfig(ctx, cfg, st, log, prom)
	if err != nil {
		return err
	}

	var res *pipeline.Result
	if fromRun != "" {
		parent, err := st.GetRun(ctx, fromRun)
		if err != nil {
			return err
		}
		raw, err := st.Snapshot(ctx, fromRun, fromStage)
		if err != nil {
			return err
		}
		rec, err := types.ParseRecord(raw)
		if err != nil {
			return fmt.Errorf("decoding %s snapshot: %w", fromStage, err)
		}
		res, err = p.RunFrom(ctx, fromStage, rec, pipeline.RunOptions{Document: parent.Document, Parent: fromRun})
		if err != nil {
			return err
		}
	} else {
		conv, err := newConverter()
		if err != nil {
			return err
		}
		text, err := document.Load(ctx, args[0], conv)
		if err != nil {
			return err
		}
		res, err = p.Run(ctx, text, pipeline.RunOptions{Document: args[0]})
		if err != nil {
			return err
		}
	}

	w, closeFn, err := output(out)
	if err != nil {
		return err
	}
	if err := report.Write(w, format, res.Evaluation, res.Insights); err != nil {
		closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}

	log.Info("evaluation written",
		zap.String("run_id", res.RunID),
		zap.String("overall", string(res.Evaluation.Assessment.Overall)))
	fmt.Fprintf(os.Stderr, "run %s: overall %s (snapshots in %s)\n",
		res.RunID, res.Evaluation.Assessment.Overall, st.WorkDir())
	return nil
}

func init() {
	evaluateCmd.Flags().String("format", report.FormatJSON, "output format: json, yaml, markdown or html")
	evaluateCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	evaluateCmd.Flags().String("from-run", "", "resume from a stored run instead of a document")
	evaluateCmd.Flags().String("from-stage", pipeline.StageEnriched, "stored stage to resume from: cv_data, enriched_cv_data or further_enriched_cv_data")

	rootCmd.AddCommand(evaluateCmd)
}

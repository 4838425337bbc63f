// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored evaluation runs",
	Long: `Runs lists the evaluation runs recorded in the work directory, newest
first. Use "runs show" to export one run with all of its stage snapshots.`,
	RunE: runRunsList,
}

func runRunsList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-9s  %-7s  %-36s  %s\n",
		"ID", "Started", "Status", "Overall", "Parent", "Document")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 130))
	for _, r := range runs {
		fmt.Fprintf(os.Stdout, "%-36s  %-20s  %-9s  %-7s  %-36s  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Status, r.Overall, r.Parent, r.Document)
	}
	fmt.Fprintf(os.Stdout, "\n%d runs\n", len(runs))
	return nil
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Export a run with its stage snapshots",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("output")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	w, closeFn, err := output(out)
	if err != nil {
		return err
	}
	switch format {
	case "yaml", "":
		err = st.ExportYAML(cmd.Context(), args[0], w)
	case "json":
		err = st.ExportJSON(cmd.Context(), args[0], w)
	default:
		err = fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	return err
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to list (0 for all)")
	runsCmd.Flags().Bool("json", false, "output runs as JSON")

	runsShowCmd.Flags().String("format", "yaml", "export format: yaml or json")
	runsShowCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

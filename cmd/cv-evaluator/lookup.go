// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cv-evaluator/internal/scholar"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look up one publication in the bibliographic index",
	Long: `Lookup searches the configured index for the title and returns the first
candidate whose title and author list match. It exits with an error and the
reason when nothing matches.`,
	RunE: runLookup,
}

func runLookup(cmd *cobra.Command, args []string) error {
	title, _ := cmd.Flags().GetString("title")
	author, _ := cmd.Flags().GetString("author")
	format, _ := cmd.Flags().GetString("format")
	if title == "" {
		return fmt.Errorf("--title is required")
	}

	client, err := scholar.NewClientFromConfig(cfg.Lookup, log, prom)
	if err != nil {
		return err
	}
	res := client.Lookup(cmd.Context(), title, author)
	if !res.Found() {
		return fmt.Errorf("not found: %s", res.Reason)
	}
	return writeRecord("", format, res.Match.Record())
}

func init() {
	lookupCmd.Flags().String("title", "", "publication title")
	lookupCmd.Flags().String("author", "", "author name to validate against the candidate's authors")
	lookupCmd.Flags().String("format", "json", "output format: json or yaml")

	rootCmd.AddCommand(lookupCmd)
}

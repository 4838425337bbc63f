// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the cv-evaluator CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/cv-evaluator/internal/logger"
	"github.com/pdiddy/cv-evaluator/internal/metrics"
	"github.com/pdiddy/cv-evaluator/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Populated by the root command before any subcommand runs.
var (
	cfg  types.Config
	log  *zap.Logger
	prom *metrics.Metrics
)

// rootCmd is the base command for the cv-evaluator CLI.
var rootCmd = &cobra.Command{
	Use:   "cv-evaluator",
	Short: "Evaluate a CV against the O-1A extraordinary ability criteria",
	Long: `cv-evaluator extracts structured data from a CV, enriches its publications
with bibliographic data, labels extraordinary achievements, rates the eight
O-1A criteria and writes a summary.

Each stage is also available on its own: enrich, lookup and rate operate on
JSON records so intermediate results can be inspected and re-run. Every
evaluate run is recorded under the work directory and can be resumed from
any persisted stage.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		log, err = logger.New(cfg.Log.JSON, cfg.Log.Debug)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		if f := viper.ConfigFileUsed(); f != "" {
			log.Debug("using config file", zap.String("path", f))
		}

		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		if err := applySecrets(&cfg, secretsDir, log); err != nil {
			return err
		}
		prom = metrics.New()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./cv-evaluator.yaml or ~/.config/cv-evaluator/cv-evaluator.yaml)")
	pf.String("secrets-dir", ".secrets", "directory holding one file per secret")
	pf.String("work-dir", "", "directory for runs.db and run snapshots")
	pf.String("provider", "", "LLM provider: openai, anthropic or gemini")
	pf.String("model", "", "LLM model identifier (default: provider default)")
	pf.String("index", "", "bibliographic index: semantic_scholar or openalex")
	pf.Bool("log-json", false, "emit JSON logs")
	pf.Bool("debug", false, "enable debug logging")

	for key, flag := range map[string]string{
		"store.work_dir": "work-dir",
		"llm.provider":   "provider",
		"llm.model":      "model",
		"lookup.index":   "index",
		"log.json":       "log-json",
		"log.debug":      "debug",
	} {
		viper.BindPFlag(key, pf.Lookup(flag))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("cv-evaluator")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "cv-evaluator"))
		}
	}

	viper.SetEnvPrefix("CV_EVALUATOR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintln(os.Stderr, "reading config:", err)
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

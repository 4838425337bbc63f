// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/cv-evaluator/internal/pipeline"
	"github.com/pdiddy/cv-evaluator/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the evaluation pipeline over HTTP",
	Long: `Serve accepts CV uploads on POST /process_cv (multipart field "file") and
answers with the evaluation JSON. It also serves GET /healthz, GET /metrics
and GET /runs/{id} for stored runs. Uploads are rate limited per client.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := pipeline.FromConfig(ctx, cfg, st, log, prom)
	if err != nil {
		return err
	}
	conv, err := newConverter()
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, p, conv,
		server.WithExporter(st),
		server.WithMetrics(prom),
		server.WithLogger(log),
	)
	return srv.ListenAndServe(ctx)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8000)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	serveCmd.Flags().StringSlice("trusted-proxy", nil, "IP or CIDR of a proxy whose X-Forwarded-For header is believed (repeatable)")
	viper.BindPFlag("server.trusted_proxies", serveCmd.Flags().Lookup("trusted-proxy"))

	rootCmd.AddCommand(serveCmd)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/deep-research/internal/server"
	"github.com/pdiddy/deep-research/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search and deep-research HTTP API",
	Long: `Serve exposes unified search, filter discovery, and deep research over HTTP,
plus /healthz and Prometheus metrics on /metrics.

Deep research is disabled (503) when no language-model credential is
configured; search keeps working.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	opts := server.Options{
		Deliverers:      a.deliverers(),
		ResearchTimeout: a.cfg.Server.ResearchTimeout,
	}
	orch, err := a.orchestrator()
	var cerr *types.ConfigurationError
	switch {
	case err == nil:
		opts.Research = orch
	case errors.As(err, &cerr):
		logger.Warn("deep research disabled", zap.Error(err))
		opts.ResearchUnavailable = err
	default:
		return err
	}
	logger.Info("search providers ready", zap.Any("sources", a.search.Configured()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.New(a.search, opts, logger).ListenAndServe(ctx, a.cfg.Server.Addr)
}

// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package cli implements the scrapex command line.
package cli

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gogama/scrapex"
	"github.com/gogama/scrapex/config"
	"github.com/gogama/scrapex/metrics"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type app struct {
	cfgPath string
	debug   bool

	cfg    *config.Config
	logger *slog.Logger
	stop   func()
}

// Execute runs the root command and exits with status 1 on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd returns the scrapex root command with all subcommands.
func NewRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "scrapex",
		Short: "Resilient web fetching",
		Long: `scrapex fetches web resources with retries, proxy rotation,
per-host rate limiting and a request manifest.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	rootCmd.PersistentFlags().StringVar(&a.cfgPath, "config", "scrapex.yaml", "config file")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(a.getCmd(), a.saveCmd(), a.proxiesCmd(), a.ipCmd())
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if a.debug {
		level = slog.LevelDebug
	}
	a.cfg = cfg
	a.logger = slog.New(tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) error {
	if a.stop != nil {
		a.stop()
	}
	return nil
}

// session builds the session for a subcommand, serving metrics if an
// address is configured.
func (a *app) session(ctx context.Context) (*scrapex.Session, error) {
	s, err := a.cfg.NewSession(ctx, a.logger)
	if err != nil {
		return nil, err
	}
	if a.cfg.Metrics.Addr == "" {
		return s, nil
	}

	c := metrics.NewCollector()
	reg := prometheus.NewRegistry()
	if err = reg.Register(c); err != nil {
		return nil, err
	}
	if s.Handlers == nil {
		s.Handlers = &scrapex.HandlerGroup{}
	}
	c.Install(s.Handlers)

	ln, err := net.Listen("tcp", a.cfg.Metrics.Addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "err", err)
		}
	}()
	a.logger.Info("serving metrics", "addr", ln.Addr().String())
	a.stop = func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return s, nil
}

// Command server runs the matching engine behind the TCP session surface
// and a Prometheus /metrics endpoint, grounded on the teacher's
// cmd/server/server.go wiring of engine.New + net.New + signal.NotifyContext.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emberex/matchengine/internal/config"
	"github.com/emberex/matchengine/internal/engine"
	"github.com/emberex/matchengine/internal/logging"
	"github.com/emberex/matchengine/internal/metrics"
	"github.com/emberex/matchengine/internal/session"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matchengine-server",
		Short: "Runs the equity matching engine and its TCP session surface",
		RunE:  runServer,
	}
	config.BindFlags(cmd.Flags())
	cmd.Flags().String("config", "", "path to a matchengine.yaml config file")
	return cmd
}

func runServer(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, nil)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	reg := metrics.New()

	// engine.New needs a Reporter (srv) and session.New needs a matcher
	// (eng): build srv with no engine bound yet, construct eng against it,
	// then bind the engine back onto srv.
	srv := session.New(cfg.Host, cfg.Port, cfg.Workers, nil, reg, log)
	eng := engine.New(srv)
	srv.SetEngine(eng)

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.MetricsPort),
		Handler: metrics.Handler(),
	}
	go func() {
		log.Info().Str("address", metricsSrv.Addr).Msg("metrics server listening")
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("session server exited")
		}
	}

	srv.Shutdown()
	_ = metricsSrv.Close()
	return nil
}

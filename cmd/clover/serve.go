package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/pkg/linkage"
	"github.com/Ramsey-B/clover/pkg/routes/clean"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	"github.com/Ramsey-B/clover/pkg/routes/restaurant"
	"github.com/Ramsey-B/clover/pkg/server"
)

const version = "1.0.0"

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start dependencies and serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.start(ctx, a.cfg.DatabaseAutoMigrate); err != nil {
				return err
			}
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	defaultMode, err := linkage.ParseMode(a.cfg.CleanDefaultMode)
	if err != nil {
		return err
	}

	checker := health.NewChecker(version)
	checker.AddCheck("postgres", a.sqlDB.PingContext, true)
	if a.redis != nil {
		checker.AddCheck("redis", a.redis.Ping, false)
	}
	if a.graph != nil {
		checker.AddCheck("graph", a.graph.VerifyConnectivity, false)
	}

	srv := server.New(server.Config{
		ServiceName:  a.cfg.AppName,
		Port:         a.cfg.Port,
		ReadTimeout:  time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:  time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
	}, server.Handlers{
		Clean:      clean.NewHandler(a.service, defaultMode),
		Restaurant: restaurant.NewHandler(a.store),
		Health:     checker,
	}, a.logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	checker.SetReady(true)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	checker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go-gin-event-scheduler/internal/clock"
	"go-gin-event-scheduler/internal/handler"
	"go-gin-event-scheduler/internal/repository"
	"go-gin-event-scheduler/internal/service"
	"go-gin-event-scheduler/internal/worker"
	"go-gin-event-scheduler/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, the due-soon scanner and the alert dispatcher",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	clk := clock.System()
	// a malformed state file aborts startup instead of starting empty
	repo, err := repository.NewEventRepository(ctx, store, clk)
	if err != nil {
		log.Error("failed to load event state", zap.Error(err))
		return err
	}

	alerts, err := openAlertTransport(ctx, cfg)
	if err != nil {
		return err
	}
	defer alerts.close()

	svc := service.NewEventService(repo, clk, cfg.Scanner.Window)
	gin.SetMode(cfg.Server.Mode)
	router := handler.NewRouter(handler.NewEventHandler(svc), handler.NewHealthHandler(clk))
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return worker.NewAlertDispatcher(alerts.queue, worker.LogNotifier{}).Run(ctx)
	})

	if cfg.Scanner.Enabled {
		scanner := worker.NewDueSoonScanner(repo, alerts.queue, clk, cfg.Scanner.Interval, cfg.Scanner.Window, alerts.scannerOptions()...)
		g.Go(func() error {
			if err := scanner.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return scanner.Stop()
		})
	} else {
		log.Warn("due-soon scanner disabled")
	}

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return err
	}
	log.Info("server shut down gracefully")
	return nil
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barpos/internal/config"
	"barpos/internal/handler"
	"barpos/internal/infra"
	"barpos/internal/lock"
	"barpos/internal/router"
	"barpos/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	var locker lock.Locker
	switch cfg.LockBackend {
	case "redis":
		locker = lock.NewRedisLocker(rdb, cfg.LockTTL())
	default:
		// single instance only
		locker = lock.NewKeyedMutex()
		log.Warn().Msg("using in-process locks; do not run more than one instance")
	}

	dispatcher := worker.NewDispatcher(rdb)
	svcs := router.NewServices(db, locker, dispatcher, dispatcher, cfg.Opciones())

	// Receipt workers and the reconciliation cron are wired here, at the
	// composition root, so they share the same infrastructure as the API.
	printerCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	recibos := worker.NewReciboWorker(infra.NewPrinterClient(cfg.PrinterSidecarURL), printerCB, cfg.PDFStoragePath)
	worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, map[string]worker.Handler{
		"recibo": recibos.Process,
	})
	if cfg.ReconciliationIntervalSecs > 0 {
		worker.NewConciliacionCron(svcs.Ledger, dispatcher, cfg.ReconciliationInterval()).Start(ctx)
	}

	r := router.New(cfg, svcs, router.Probes{
		Health:     handler.Health(db, rdb, printerCB),
		Incidentes: handler.Incidentes(dispatcher),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.SettlementTimeout() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Msgf("barpos listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown on SIGINT / SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	// in-flight settlements have returned; now stop workers and the cron
	cancel()
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
	log.Info().Msg("server exited")
}

// setupLogger: console writer in development, JSON in production.
func setupLogger(cfg *config.Config) {
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

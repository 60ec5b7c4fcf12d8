package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"clipforge/internal/app"
	"clipforge/internal/config"
	"clipforge/internal/pkg/logger"
	"clipforge/internal/pkg/shutdown"
	"clipforge/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logCfg := logger.DefaultConfig()
	logCfg.ServiceName = "clipforge-worker"
	log := logger.New(logCfg)

	cfg, err := config.Load("")
	if err != nil {
		log.LogFatal("failed to load configuration", err)
	}

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, 2*time.Minute)

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.LogFatal("failed to build application", err)
	}
	shutdownMgr.RegisterSimple("clients", a.Close)

	if err := a.Queue.Ping(ctx); err != nil {
		log.LogFatal("queue unreachable", err, "addr", cfg.Queue.RedisAddr)
	}

	g, gctx := errgroup.WithContext(shutdownMgr.Context())
	g.Go(func() error {
		return worker.Run(gctx, worker.Deps{
			Queue:  a.Queue,
			Runner: a.Orchestrator,
			Count:  cfg.Workers.Count,
			Log:    log,
		})
	})
	g.Go(func() error {
		return a.Orchestrator.RunJanitor(gctx, cfg.SweepInterval())
	})

	stopped := make(chan error, 1)
	go func() {
		err := g.Wait()
		stopped <- err
		if err != nil {
			log.Error("workers stopped unexpectedly", "error", err.Error())
		}
		shutdownMgr.Shutdown()
	}()

	shutdownMgr.Register("workers", func(ctx context.Context) error {
		if ids := a.Orchestrator.InFlight(); len(ids) > 0 {
			log.Info("waiting for in-flight jobs", "jobs", ids)
		}
		select {
		case err := <-stopped:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	log.Info("clipforge worker started",
		"workers", cfg.Workers.Count,
		"queue", cfg.Queue.Name,
		"storage_root", cfg.Storage.Root,
	)
	shutdownMgr.Wait(ctx)
}

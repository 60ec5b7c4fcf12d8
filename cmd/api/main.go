package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"clipforge/internal/app"
	"clipforge/internal/config"
	"clipforge/internal/httpapi"
	"clipforge/internal/pkg/logger"
	"clipforge/internal/pkg/shutdown"
	"clipforge/internal/worker"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	logCfg := logger.DefaultConfig()
	logCfg.ServiceName = "clipforge-api"
	log := logger.New(logCfg)

	log.Info("starting clipforge API", "version", version)

	cfg, err := config.Load("")
	if err != nil {
		log.LogFatal("failed to load configuration", err)
	}

	ctx := context.Background()
	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.LogFatal("failed to build application", err)
	}
	shutdownMgr.RegisterSimple("clients", a.Close)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	for _, c := range a.Checks() {
		if err := c.Ping(pingCtx); err != nil {
			cancel()
			log.LogFatal("dependency unreachable", err, "dependency", c.Name)
		}
	}
	cancel()
	log.Info("dependencies reachable",
		"store", cfg.Store.Driver,
		"queue", cfg.Queue.Name,
		"publisher", a.Publisher.Provider(),
	)

	if n := cfg.Workers.Embedded; n > 0 {
		workerCtx := shutdownMgr.Context()
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := worker.Run(workerCtx, worker.Deps{
				Queue:  a.Queue,
				Runner: a.Orchestrator,
				Count:  n,
				Log:    log,
			}); err != nil {
				log.Error("embedded workers stopped", "error", err.Error())
			}
		}()
		go func() {
			defer wg.Done()
			_ = a.Orchestrator.RunJanitor(workerCtx, cfg.SweepInterval())
		}()
		shutdownMgr.Register("workers", func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Jobs:           a.Orchestrator,
		Checks:         a.Checks(),
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Version:        version,
		Log:            log,
	})

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr, "embedded_workers", cfg.Workers.Embedded)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait(ctx)
}

// Package app builds the component graph shared by the api and worker
// binaries from a loaded configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"

	"clipforge/internal/acquire"
	"clipforge/internal/config"
	"clipforge/internal/httpapi/handlers"
	"clipforge/internal/jobs"
	"clipforge/internal/media"
	"clipforge/internal/pipeline"
	"clipforge/internal/pkg/logger"
	"clipforge/internal/ports"
	"clipforge/internal/repositories"
	"clipforge/internal/storage"
	"clipforge/internal/worker/inference"
	"clipforge/internal/worker/queue"
	"clipforge/internal/worker/renderer"
)

// App owns every long-lived client of one process.
type App struct {
	Config       *config.Config
	Log          *logger.Logger
	Store        ports.JobStore
	Queue        ports.JobQueue
	Publisher    ports.StorageProvider
	Orchestrator *pipeline.Orchestrator

	closers []func()
}

// Build connects the store, the queue and the storage provider and wires
// the orchestrator. Nothing is pinged; use Checks for that.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	store, closeStore, err := repositories.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, closeStore)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Queue.RedisAddr})
	a.Queue = queue.NewRedisQueue(rdb, cfg.Queue.Name)
	a.closers = append(a.closers, func() { _ = rdb.Close() })

	a.Publisher, err = storage.NewProvider(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := os.MkdirAll(cfg.Storage.Root, 0o755); err != nil {
		a.Close()
		return nil, fmt.Errorf("create storage root: %w", err)
	}

	acq := &acquire.Acquirer{
		Cache:      &acquire.Cache{Root: cfg.Storage.Root},
		HTTP:       &acquire.HTTPFetcher{Client: &http.Client{}},
		Files:      acquire.FileFetcher{},
		MaxRetries: cfg.Acquisition.MaxRetries,
		Backoff:    cfg.AcquisitionBackoff(),
		Timeout:    cfg.AcquisitionTimeout(),
		Log:        log,
	}
	if storage.HasDriveCredentials(cfg.Storage) {
		drv, err := storage.NewDrive(ctx, cfg.Storage)
		if err != nil {
			a.Close()
			return nil, err
		}
		acq.Drive = &acquire.StorageFetcher{Provider: drv}
	}

	runner := media.ExecRunner{}
	prober := &media.Prober{
		Binary:  cfg.Media.FFprobeBinary,
		Runner:  runner,
		Timeout: cfg.ProbeTimeout(),
	}
	validator := &media.Validator{
		Prober:     prober,
		FFmpeg:     cfg.Media.FFmpegBinary,
		Runner:     runner,
		MaxRepairs: cfg.Validation.MaxRepairs,
		Backoff:    cfg.RepairBackoff(),
		Timeout:    cfg.CutTimeout(),
		Log:        log,
	}
	cutter := &media.Cutter{
		Prober:  prober,
		FFmpeg:  cfg.Media.FFmpegBinary,
		Runner:  runner,
		Guard:   cfg.Media.DurationGuard,
		Timeout: cfg.CutTimeout(),
		Log:     log,
	}

	var detector ports.FaceDetector
	if cfg.Services.DetectorURL != "" {
		detector = inference.NewDetector(cfg.Services.DetectorURL, cfg.InferTimeout())
	}
	var transcriber ports.SpeechTranscriber
	if cfg.Services.TranscriberURL != "" {
		transcriber = inference.NewTranscriber(cfg.Services.TranscriberURL, cfg.InferTimeout())
	}

	a.Orchestrator = pipeline.New(pipeline.Deps{
		Store:       a.Store,
		Queue:       a.Queue,
		Registry:    jobs.NewRegistry(),
		Acquirer:    acq,
		Validator:   validator,
		Cutter:      cutter,
		Detector:    detector,
		Transcriber: transcriber,
		Renderer:    renderer.NewHTTPClient(cfg.Services.RendererURL, cfg.RenderTimeout()),
		Publisher:   a.Publisher,
		StorageRoot: cfg.Storage.Root,
		Settings:    pipeline.SettingsFromConfig(cfg),
		Log:         log,
	})
	return a, nil
}

// Checks lists the dependencies probed by the deep health check.
func (a *App) Checks() []handlers.Check {
	return []handlers.Check{
		{Name: "store", Ping: a.Store.Ping},
		{Name: "queue", Ping: a.Queue.Ping},
		{Name: "storage", Ping: a.pingStorageRoot},
	}
}

// pingStorageRoot verifies the staging root exists and is a directory.
func (a *App) pingStorageRoot(ctx context.Context) error {
	st, err := os.Stat(a.Config.Storage.Root)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("storage root %s is not a directory", a.Config.Storage.Root)
	}
	return nil
}

// Close releases clients in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

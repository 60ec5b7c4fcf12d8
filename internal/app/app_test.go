package app

import (
	"context"
	"path/filepath"
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/models"
	"clipforge/internal/pkg/logger"
)

func TestBuildWithSQLiteAndLocalFS(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = filepath.Join(dir, "clipforge.db")
	cfg.Storage.Root = dir
	cfg.Storage.Provider = "localfs"
	cfg.Storage.PublishRoot = filepath.Join(dir, "published")
	cfg.Services.DetectorURL = ""

	ctx := context.Background()
	a, err := Build(ctx, &cfg, logger.Nop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	if a.Publisher.Provider() != "localfs" {
		t.Errorf("publisher = %s", a.Publisher.Provider())
	}
	checks := a.Checks()
	if got := len(checks); got != 3 {
		t.Fatalf("checks = %d, want 3", got)
	}
	if err := checks[2].Ping(ctx); err != nil {
		t.Errorf("storage check: %v", err)
	}
	if err := a.Store.Ping(ctx); err != nil {
		t.Errorf("store ping: %v", err)
	}

	_, ok, err := a.Orchestrator.Status(ctx, "never-submitted")
	if err != nil || ok {
		t.Errorf("Status(unknown) ok=%v err=%v", ok, err)
	}
	if err := a.Store.Create(ctx, models.Job{ID: "j1", Stage: models.StageQueued}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	job, ok, err := a.Orchestrator.Status(ctx, "j1")
	if err != nil || !ok || job.PublicStatus() != "accepted" {
		t.Errorf("Status(j1) = %+v ok=%v err=%v", job, ok, err)
	}
}

func TestBuildRejectsUnknownProvider(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = filepath.Join(dir, "clipforge.db")
	cfg.Storage.Provider = "ftp"

	if _, err := Build(context.Background(), &cfg, logger.Nop()); err == nil {
		t.Fatal("expected an error for an unknown storage provider")
	}
}

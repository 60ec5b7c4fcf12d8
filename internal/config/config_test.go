package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Tracking.MinLockFrames != 36 {
		t.Errorf("MinLockFrames = %d, want 36", cfg.Tracking.MinLockFrames)
	}
	if cfg.Media.DurationGuard != 0.2 {
		t.Errorf("DurationGuard = %v, want 0.2", cfg.Media.DurationGuard)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clipforge.toml")
	body := `
[tracking]
min_lock_frames = 48
frame_stride = 3

[acquisition]
max_retries = 5

[storage]
root = "/srv/clips"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORAGE_ROOT", "/mnt/override")
	t.Setenv("WORKERS", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tracking.MinLockFrames != 48 || cfg.Tracking.FrameStride != 3 {
		t.Errorf("tracking = %+v", cfg.Tracking)
	}
	if cfg.Tracking.ProxyHeight != 360 {
		t.Errorf("unset keys must keep defaults, ProxyHeight = %d", cfg.Tracking.ProxyHeight)
	}
	if cfg.Acquisition.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.Acquisition.MaxRetries)
	}
	if cfg.Storage.Root != "/mnt/override" {
		t.Errorf("env must override file, Root = %s", cfg.Storage.Root)
	}
	if cfg.Workers.Count != 7 {
		t.Errorf("Workers.Count = %d, want 7", cfg.Workers.Count)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"postgres without url", func(c *Config) { c.Store.Driver = "postgres" }, "database_url"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }, "not supported"},
		{"zero stride", func(c *Config) { c.Tracking.FrameStride = 0 }, "frame_stride"},
		{"zoom below one", func(c *Config) { c.Compose.MaxZoom = 0.5 }, "max_zoom"},
		{"negative retries", func(c *Config) { c.Acquisition.MaxRetries = -1 }, "max_retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestCSVEnv(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://a , ,http://b ")
	got := CSVEnv("CORS_ALLOWED_ORIGINS", nil)
	if len(got) != 2 || got[0] != "http://a" || got[1] != "http://b" {
		t.Errorf("CSVEnv = %v", got)
	}
}

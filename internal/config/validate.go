package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Store.Driver) {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return errors.New("store.database_url is required for the postgres driver (DATABASE_URL)")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlite_path is required for the sqlite driver (SQLITE_PATH)")
		}
	default:
		return fmt.Errorf("store.driver %q is not supported (postgres, sqlite)", c.Store.Driver)
	}
	if strings.TrimSpace(c.Storage.Root) == "" {
		return errors.New("storage.root must be set")
	}
	if c.Workers.Count < 0 || c.Workers.Embedded < 0 {
		return errors.New("workers.count and workers.embedded must be >= 0")
	}
	if c.Acquisition.MaxRetries < 0 {
		return errors.New("acquisition.max_retries must be >= 0")
	}
	if c.Validation.MaxRepairs < 0 {
		return errors.New("validation.max_repairs must be >= 0")
	}
	if c.Media.DurationGuard < 0 {
		return errors.New("media.duration_guard must be >= 0")
	}
	if c.Tracking.FrameStride < 1 {
		return errors.New("tracking.frame_stride must be >= 1")
	}
	if c.Tracking.ProxyHeight < 1 {
		return errors.New("tracking.proxy_height must be >= 1")
	}
	if c.Tracking.MinLockFrames < 0 || c.Tracking.MouthOpenThreshold < 0 {
		return errors.New("tracking thresholds must be >= 0")
	}
	if c.Compose.MaxZoom < 1 {
		return errors.New("compose.max_zoom must be >= 1")
	}
	if c.Compose.OutputWidth <= 0 || c.Compose.OutputHeight <= 0 {
		return errors.New("compose output size must be positive")
	}
	if c.Compose.VerticalBias < 0 || c.Compose.VerticalBias >= 0.5 {
		return errors.New("compose.vertical_bias must be in [0, 0.5)")
	}
	return nil
}

package config

import (
	"os"
	"strconv"
	"strings"
)

// Env returns the trimmed value of k, or def when unset.
func Env(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

// IntEnv reads an env var as int. If empty or invalid, returns def.
func IntEnv(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// FloatEnv reads an env var as float64. If empty or invalid, returns def.
func FloatEnv(k string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// CSVEnv splits a comma separated env var, dropping empty entries.
func CSVEnv(k string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(k))
	if raw == "" {
		return def
	}
	out := make([]string, 0)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func (c *Config) applyEnv() {
	c.HTTP.Port = Env("HTTP_PORT", c.HTTP.Port)
	c.HTTP.AllowedOrigins = CSVEnv("CORS_ALLOWED_ORIGINS", c.HTTP.AllowedOrigins)

	c.Store.Driver = Env("JOB_STORE", c.Store.Driver)
	c.Store.DatabaseURL = Env("DATABASE_URL", c.Store.DatabaseURL)
	c.Store.SQLitePath = Env("SQLITE_PATH", c.Store.SQLitePath)

	c.Queue.RedisAddr = Env("REDIS_ADDR", c.Queue.RedisAddr)
	c.Queue.Name = Env("JOB_QUEUE_NAME", c.Queue.Name)

	c.Storage.Root = Env("STORAGE_ROOT", c.Storage.Root)
	c.Storage.Provider = Env("STORAGE_PROVIDER", c.Storage.Provider)
	c.Storage.PublishRoot = Env("STORAGE_PUBLISH_ROOT", c.Storage.PublishRoot)
	c.Storage.GDriveClientID = Env("GDRIVE_CLIENT_ID", c.Storage.GDriveClientID)
	c.Storage.GDriveClientSecret = Env("GDRIVE_CLIENT_SECRET", c.Storage.GDriveClientSecret)
	c.Storage.GDriveRefreshToken = Env("GDRIVE_REFRESH_TOKEN", c.Storage.GDriveRefreshToken)
	c.Storage.GDriveFolderID = Env("GDRIVE_FOLDER_ID", c.Storage.GDriveFolderID)

	c.Services.RendererURL = Env("RENDERER_HTTP_BASEURL", c.Services.RendererURL)
	c.Services.DetectorURL = Env("DETECTOR_HTTP_BASEURL", c.Services.DetectorURL)
	c.Services.TranscriberURL = Env("TRANSCRIBER_HTTP_BASEURL", c.Services.TranscriberURL)

	c.Workers.Count = IntEnv("WORKERS", c.Workers.Count)
	c.Workers.Embedded = IntEnv("EMBEDDED_WORKERS", c.Workers.Embedded)

	c.Acquisition.MaxRetries = IntEnv("ACQUIRE_MAX_RETRIES", c.Acquisition.MaxRetries)
	c.Acquisition.BackoffSeconds = FloatEnv("ACQUIRE_BACKOFF_SECONDS", c.Acquisition.BackoffSeconds)

	c.Media.FFmpegBinary = Env("FFMPEG_BINARY", c.Media.FFmpegBinary)
	c.Media.FFprobeBinary = Env("FFPROBE_BINARY", c.Media.FFprobeBinary)

	c.Captions.Style = IntEnv("CAPTION_STYLE", c.Captions.Style)
}

// Package config loads clipforge settings: built-in defaults, then an
// optional TOML file named by CLIPFORGE_CONFIG, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// HTTP holds the API listener settings.
type HTTP struct {
	Port           string   `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Store selects where job records are persisted.
type Store struct {
	Driver      string `toml:"driver"` // postgres | sqlite
	DatabaseURL string `toml:"database_url"`
	SQLitePath  string `toml:"sqlite_path"`
}

// Queue holds the Redis dispatch queue settings.
type Queue struct {
	RedisAddr string `toml:"redis_addr"`
	Name      string `toml:"name"`
}

// Storage holds the staging root and the publish target.
type Storage struct {
	Root               string `toml:"root"`
	Provider           string `toml:"provider"` // localfs | gdrive
	PublishRoot        string `toml:"publish_root"`
	GDriveClientID     string `toml:"gdrive_client_id"`
	GDriveClientSecret string `toml:"gdrive_client_secret"`
	GDriveRefreshToken string `toml:"gdrive_refresh_token"`
	GDriveFolderID     string `toml:"gdrive_folder_id"`
}

// Services lists the HTTP collaborators.
type Services struct {
	RendererURL          string `toml:"renderer_url"`
	DetectorURL          string `toml:"detector_url"`
	TranscriberURL       string `toml:"transcriber_url"`
	RenderTimeoutSeconds int    `toml:"render_timeout_seconds"`
	InferTimeoutSeconds  int    `toml:"infer_timeout_seconds"`
}

// Workers sizes the worker pool.
type Workers struct {
	Count    int `toml:"count"`
	Embedded int `toml:"embedded"`
}

// Acquisition bounds source fetching.
type Acquisition struct {
	MaxRetries     int     `toml:"max_retries"`
	BackoffSeconds float64 `toml:"backoff_seconds"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Validation bounds container repair.
type Validation struct {
	MaxRepairs     int     `toml:"max_repairs"`
	BackoffSeconds float64 `toml:"backoff_seconds"`
}

// Media configures the ffmpeg/ffprobe tooling and the cut guard.
type Media struct {
	FFmpegBinary        string  `toml:"ffmpeg_binary"`
	FFprobeBinary       string  `toml:"ffprobe_binary"`
	ProbeTimeoutSeconds int     `toml:"probe_timeout_seconds"`
	CutTimeoutSeconds   int     `toml:"cut_timeout_seconds"`
	DurationGuard       float64 `toml:"duration_guard"`
}

// Tracking carries the camera controller constants.
type Tracking struct {
	FrameStride        int     `toml:"frame_stride"`
	ProxyHeight        int     `toml:"proxy_height"`
	MouthOpenThreshold float64 `toml:"mouth_open_threshold"`
	MinLockFrames      int     `toml:"min_lock_frames"`
	MouthWeight        float64 `toml:"mouth_weight"`
	WidthWeight        float64 `toml:"width_weight"`
}

// Compose carries the crop planner settings.
type Compose struct {
	OutputWidth  int     `toml:"output_width"`
	OutputHeight int     `toml:"output_height"`
	MaxZoom      float64 `toml:"max_zoom"`
	VerticalBias float64 `toml:"vertical_bias"`
}

// Captions selects the caption palette. Style < 0 picks one per job.
type Captions struct {
	Style int    `toml:"style"`
	Font  string `toml:"font"`
}

// Retention configures the staging janitor.
type Retention struct {
	FailedJobMaxAgeHours int `toml:"failed_job_max_age_hours"`
	SweepIntervalMinutes int `toml:"sweep_interval_minutes"`
}

// Config is the complete clipforge configuration.
type Config struct {
	HTTP        HTTP        `toml:"http"`
	Store       Store       `toml:"store"`
	Queue       Queue       `toml:"queue"`
	Storage     Storage     `toml:"storage"`
	Services    Services    `toml:"services"`
	Workers     Workers     `toml:"workers"`
	Acquisition Acquisition `toml:"acquisition"`
	Validation  Validation  `toml:"validation"`
	Media       Media       `toml:"media"`
	Tracking    Tracking    `toml:"tracking"`
	Compose     Compose     `toml:"compose"`
	Captions    Captions    `toml:"captions"`
	Retention   Retention   `toml:"retention"`
}

// Load builds the configuration. An explicit path that does not exist is an
// error; an empty path falls back to CLIPFORGE_CONFIG and then to defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = Env("CLIPFORGE_CONFIG", "")
	}
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// AcquisitionTimeout is the per-attempt fetch timeout.
func (c *Config) AcquisitionTimeout() time.Duration {
	return time.Duration(c.Acquisition.TimeoutSeconds) * time.Second
}

// AcquisitionBackoff is the base delay between fetch attempts.
func (c *Config) AcquisitionBackoff() time.Duration {
	return seconds(c.Acquisition.BackoffSeconds)
}

// RepairBackoff is the base delay between repair attempts.
func (c *Config) RepairBackoff() time.Duration {
	return seconds(c.Validation.BackoffSeconds)
}

// ProbeTimeout bounds a single ffprobe call.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Media.ProbeTimeoutSeconds) * time.Second
}

// CutTimeout bounds a single ffmpeg cut or repair call.
func (c *Config) CutTimeout() time.Duration {
	return time.Duration(c.Media.CutTimeoutSeconds) * time.Second
}

// RenderTimeout bounds the renderer HTTP call.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Services.RenderTimeoutSeconds) * time.Second
}

// InferTimeout bounds detector and transcriber HTTP calls.
func (c *Config) InferTimeout() time.Duration {
	return time.Duration(c.Services.InferTimeoutSeconds) * time.Second
}

// FailedJobMaxAge is how long failed staging directories are retained.
func (c *Config) FailedJobMaxAge() time.Duration {
	return time.Duration(c.Retention.FailedJobMaxAgeHours) * time.Hour
}

// SweepInterval is how often the janitor runs.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Retention.SweepIntervalMinutes) * time.Minute
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

package pipeline

import (
	"time"

	"clipforge/internal/captions"
	"clipforge/internal/compose"
	"clipforge/internal/config"
	rendererv1 "clipforge/internal/contracts/renderer/v1"
	"clipforge/internal/tracking"
)

// Settings are the per-run constants the orchestrator passes to stages.
type Settings struct {
	Tracking        tracking.Params
	Compose         compose.Options
	CaptionStyle    int
	CaptionFont     string
	AudioFilter     string
	PublishPrefix   string
	FailedRetention time.Duration
}

// DefaultSettings mirrors config.Default.
func DefaultSettings() Settings {
	return Settings{
		Tracking:        tracking.DefaultParams(),
		Compose:         compose.DefaultOptions(),
		CaptionStyle:    -1,
		CaptionFont:     captions.DefaultFont,
		AudioFilter:     rendererv1.DefaultAudioFilter,
		PublishPrefix:   "clips",
		FailedRetention: 72 * time.Hour,
	}
}

// SettingsFromConfig maps the loaded configuration onto Settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	s := DefaultSettings()

	s.Tracking.FrameStride = cfg.Tracking.FrameStride
	s.Tracking.ProxyHeight = cfg.Tracking.ProxyHeight
	s.Tracking.MouthOpenThreshold = cfg.Tracking.MouthOpenThreshold
	s.Tracking.MinLockFrames = cfg.Tracking.MinLockFrames
	s.Tracking.MouthWeight = cfg.Tracking.MouthWeight
	s.Tracking.WidthWeight = cfg.Tracking.WidthWeight

	s.Compose.MaxZoom = cfg.Compose.MaxZoom
	s.Compose.VerticalBias = cfg.Compose.VerticalBias
	s.Compose.OutputWidth = cfg.Compose.OutputWidth
	s.Compose.OutputHeight = cfg.Compose.OutputHeight
	s.Compose.Aspect = float64(cfg.Compose.OutputWidth) / float64(cfg.Compose.OutputHeight)

	s.CaptionStyle = cfg.Captions.Style
	if cfg.Captions.Font != "" {
		s.CaptionFont = cfg.Captions.Font
	}
	s.FailedRetention = cfg.FailedJobMaxAge()
	return s
}

package config

// Default returns the built-in configuration. Tracking and retry constants
// are the empirically tuned values the pipeline shipped with.
func Default() Config {
	return Config{
		HTTP: HTTP{
			Port:           "8080",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Store: Store{
			Driver:     "sqlite",
			SQLitePath: "/data/clipforge.db",
		},
		Queue: Queue{
			RedisAddr: "localhost:6379",
			Name:      "clipforge:jobs",
		},
		Storage: Storage{
			Root:        "/data",
			Provider:    "localfs",
			PublishRoot: "/data/published",
		},
		Services: Services{
			RenderTimeoutSeconds: 600,
			InferTimeoutSeconds:  300,
		},
		Workers: Workers{
			Count: 2,
		},
		Acquisition: Acquisition{
			MaxRetries:     3,
			BackoffSeconds: 2,
			TimeoutSeconds: 120,
		},
		Validation: Validation{
			MaxRepairs:     2,
			BackoffSeconds: 1,
		},
		Media: Media{
			FFmpegBinary:        "ffmpeg",
			FFprobeBinary:       "ffprobe",
			ProbeTimeoutSeconds: 30,
			CutTimeoutSeconds:   600,
			DurationGuard:       0.2,
		},
		Tracking: Tracking{
			FrameStride:        2,
			ProxyHeight:        360,
			MouthOpenThreshold: 4.0,
			MinLockFrames:      36,
			MouthWeight:        1.2,
			WidthWeight:        300,
		},
		Compose: Compose{
			OutputWidth:  1080,
			OutputHeight: 1920,
			MaxZoom:      1.05,
			VerticalBias: 0.08,
		},
		Captions: Captions{
			Style: -1,
			Font:  "League Spartan",
		},
		Retention: Retention{
			FailedJobMaxAgeHours: 72,
			SweepIntervalMinutes: 30,
		},
	}
}

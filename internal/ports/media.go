package ports

import (
	"context"

	"clipforge/internal/models"
)

// SourceAcquirer fetches upstream media into the local cache.
type SourceAcquirer interface {
	// Acquire returns a lease on a local copy holding the complete source. A
	// cached copy that already passed validation is returned without fetching.
	Acquire(ctx context.Context, ref string, kind models.MediaKind) (SourceLease, error)
}

// SourceLease is one job's hold on a cache entry. A freshly fetched entry
// stays locked against other jobs until Release, so the holder validates it
// and records the outcome before anyone else can fetch or read it.
type SourceLease interface {
	Path() string
	// Cached reports a validated cache hit. Such a lease holds no lock.
	Cached() bool
	// MarkValidated records that the entry passed validation.
	MarkValidated() error
	// Evict drops an entry that failed validation.
	Evict() error
	// Release unlocks the entry. Later calls are no-ops.
	Release()
}

// MediaValidator checks container integrity, repairing when possible.
type MediaValidator interface {
	EnsureValid(ctx context.Context, path string, kind models.MediaKind) error
}

// VideoInfo is the geometry of a video stream.
type VideoInfo struct {
	Width    int
	Height   int
	FPS      float64
	Frames   int
	Duration float64
}

// CutInput names the two sources, the requested window and the outputs.
type CutInput struct {
	VideoSource string
	AudioSource string
	Start       float64
	End         float64
	VideoOut    string
	AudioOut    string
}

// CutOutput is the clamped window actually cut.
type CutOutput struct {
	Window       models.TimeWindow
	VideoSegment string
	AudioSegment string
}

// MediaCutter produces the per-job segments and the detection proxy.
type MediaCutter interface {
	Cut(ctx context.Context, in CutInput) (CutOutput, error)
	// Proxy returns the path detection should read. On failure it returns
	// src itself.
	Proxy(ctx context.Context, src, dst string, height int) string
	Inspect(ctx context.Context, path string) (VideoInfo, error)
}

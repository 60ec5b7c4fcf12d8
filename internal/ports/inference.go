package ports

import (
	"context"

	"clipforge/internal/captions"
	rendererv1 "clipforge/internal/contracts/renderer/v1"
	"clipforge/internal/tracking"
)

// DetectRequest asks for face landmarks on every Stride-th frame of a video,
// detected at ProxyHeight.
type DetectRequest struct {
	VideoPath   string
	Stride      int
	ProxyHeight int
}

// DetectResult carries landmarks keyed by frame index of the source video.
type DetectResult struct {
	Detections []tracking.Detection
}

// FaceDetector is the landmark model.
type FaceDetector interface {
	Detect(ctx context.Context, req DetectRequest) (DetectResult, error)
}

// SpeechTranscriber is the word-timestamp speech recognizer.
type SpeechTranscriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]captions.Word, error)
}

// Renderer performs the final crop, caption burn and encode.
type Renderer interface {
	Render(ctx context.Context, spec rendererv1.RenderSpec) error
}

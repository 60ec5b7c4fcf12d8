package models

import (
	"strings"
	"time"
)

// Stage is a step in the clip job state machine.
type Stage string

const (
	StageQueued      Stage = "queued"
	StageDownloading Stage = "downloading"
	StageValidating  Stage = "validating"
	StageCutting     Stage = "cutting"
	StageProcessing  Stage = "processing"
	StageUploading   Stage = "uploading"
	StageDone        Stage = "done"
	StageError       Stage = "error"
)

// stageOrder is the forward order of the pipeline; error is outside it.
var stageOrder = map[Stage]int{
	StageQueued:      0,
	StageDownloading: 1,
	StageValidating:  2,
	StageCutting:     3,
	StageProcessing:  4,
	StageUploading:   5,
	StageDone:        6,
}

// Terminal reports whether no further transition is allowed from s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageError
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	if s == StageError {
		return true
	}
	_, ok := stageOrder[s]
	return ok
}

// CanTransition reports whether from -> to is an allowed edge: strictly
// forward through the ordered stages, or into error from any non-terminal stage.
func CanTransition(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == StageError {
		return true
	}
	fi, ok := stageOrder[from]
	if !ok {
		return false
	}
	ti, ok := stageOrder[to]
	if !ok {
		return false
	}
	return ti > fi
}

// JobSpec is what a client submits.
type JobSpec struct {
	JobID          string  `json:"job_id"`
	SourceVideoRef string  `json:"source_video_ref"`
	SourceAudioRef string  `json:"source_audio_ref"`
	AbsoluteStart  float64 `json:"absolute_start"`
	AbsoluteEnd    float64 `json:"absolute_end"`
}

// Normalize trims whitespace from the references and id.
func (s JobSpec) Normalize() JobSpec {
	s.JobID = strings.TrimSpace(s.JobID)
	s.SourceVideoRef = strings.TrimSpace(s.SourceVideoRef)
	s.SourceAudioRef = strings.TrimSpace(s.SourceAudioRef)
	return s
}

// StagePaths records the artifacts a job has produced so far. All paths live
// under StagingDir except cached upstream media.
type StagePaths struct {
	StagingDir   string `json:"staging_dir,omitempty"`
	RawVideo     string `json:"raw_video,omitempty"`
	RawAudio     string `json:"raw_audio,omitempty"`
	VideoSegment string `json:"video_segment,omitempty"`
	AudioSegment string `json:"audio_segment,omitempty"`
	ProxyVideo   string `json:"proxy_video,omitempty"`
	CropPlan     string `json:"crop_plan,omitempty"`
	Captions     string `json:"captions,omitempty"`
	Final        string `json:"final,omitempty"`
}

// Job is the persisted and in-memory record of one clip job.
type Job struct {
	ID        string     `json:"job_id"`
	Stage     Stage      `json:"stage"`
	Progress  int        `json:"progress"`
	Paths     StagePaths `json:"paths"`
	Error     string     `json:"error,omitempty"`
	ErrorCode string     `json:"error_code,omitempty"`
	Remote    string     `json:"remote,omitempty"`
	Spec      JobSpec    `json:"spec"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PublicStatus maps the internal stage onto the coarse status exposed to
// clients: accepted, running, done or error.
func (j Job) PublicStatus() string {
	switch j.Stage {
	case StageQueued:
		return "accepted"
	case StageDone:
		return "done"
	case StageError:
		return "error"
	default:
		return "running"
	}
}

// TimeWindow is a clamped cut window in seconds. Build it with
// media.ClampWindow; a zero TimeWindow is never valid.
type TimeWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start.
func (w TimeWindow) Duration() float64 {
	return w.End - w.Start
}

// MediaKind distinguishes the two upstream sources of a job.
type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// Ext is the file extension cached sources of this kind are stored with.
func (k MediaKind) Ext() string {
	if k == MediaAudio {
		return ".m4a"
	}
	return ".mp4"
}

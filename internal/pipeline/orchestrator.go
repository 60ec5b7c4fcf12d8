// Package pipeline is the job orchestrator: it accepts submissions, drives
// each job through
//
//	queued -> downloading -> validating -> cutting -> processing -> uploading -> done
//
// and records every transition so status readers always see a recent,
// consistent stage. Any stage may end the job in error.
package pipeline

import (
	"context"
	"math"
	"regexp"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/jobs"
	"clipforge/internal/models"
	"clipforge/internal/pkg/errors"
	"clipforge/internal/pkg/logger"
	"clipforge/internal/ports"
)

// Deps wires the orchestrator to its collaborators. Detector and Transcriber
// are optional: without a detector the crop stays centered, without a
// transcriber no captions are burned.
type Deps struct {
	Store       ports.JobStore
	Queue       ports.JobQueue
	Registry    *jobs.Registry
	Acquirer    ports.SourceAcquirer
	Validator   ports.MediaValidator
	Cutter      ports.MediaCutter
	Detector    ports.FaceDetector
	Transcriber ports.SpeechTranscriber
	Renderer    ports.Renderer
	Publisher   ports.StorageProvider
	StorageRoot string
	Settings    Settings
	Log         *logger.Logger
	Now         func() time.Time
}

type Orchestrator struct {
	store       ports.JobStore
	queue       ports.JobQueue
	registry    *jobs.Registry
	acquirer    ports.SourceAcquirer
	validator   ports.MediaValidator
	cutter      ports.MediaCutter
	detector    ports.FaceDetector
	transcriber ports.SpeechTranscriber
	renderer    ports.Renderer
	publisher   ports.StorageProvider
	storageRoot string
	settings    Settings
	log         *logger.Logger
	now         func() time.Time
}

func New(d Deps) *Orchestrator {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	reg := d.Registry
	if reg == nil {
		reg = jobs.NewRegistry()
	}
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		store:       d.Store,
		queue:       d.Queue,
		registry:    reg,
		acquirer:    d.Acquirer,
		validator:   d.Validator,
		cutter:      d.Cutter,
		detector:    d.Detector,
		transcriber: d.Transcriber,
		renderer:    d.Renderer,
		publisher:   d.Publisher,
		storageRoot: d.StorageRoot,
		settings:    d.Settings,
		log:         log.WithComponent("pipeline"),
		now:         func() time.Time { return now().UTC() },
	}
}

var jobIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateSpec checks a submission before anything is persisted.
func ValidateSpec(spec models.JobSpec) error {
	switch {
	case spec.JobID != "" && !jobIDPattern.MatchString(spec.JobID):
		return errors.ValidationField("job_id", "may only contain letters, digits, '.', '_' and '-'")
	case spec.SourceVideoRef == "":
		return errors.ValidationField("source_video_ref", "is required")
	case spec.SourceAudioRef == "":
		return errors.ValidationField("source_audio_ref", "is required")
	case math.IsNaN(spec.AbsoluteStart) || math.IsNaN(spec.AbsoluteEnd):
		return errors.Validation("absolute_start and absolute_end must be numbers")
	case spec.AbsoluteStart < 0:
		return errors.ValidationField("absolute_start", "must be >= 0")
	case spec.AbsoluteEnd <= spec.AbsoluteStart:
		return errors.ValidationField("absolute_end", "must be greater than absolute_start")
	}
	return nil
}

// Submit validates spec, persists a queued record and enqueues it. An empty
// job id is replaced by a uuid. Re-submitting an id that is still in flight
// is a CONFLICT; a terminal job with the same id is reset and run again.
func (o *Orchestrator) Submit(ctx context.Context, spec models.JobSpec) (string, error) {
	const op = "pipeline.Submit"
	spec = spec.Normalize()
	if err := ValidateSpec(spec); err != nil {
		return "", err
	}
	if spec.JobID == "" {
		spec.JobID = uuid.NewString()
	}
	id := spec.JobID

	if j, ok := o.registry.Get(id); ok && !j.Stage.Terminal() {
		return "", errors.Conflict("job is already in flight: " + id)
	}

	now := o.now()
	job := models.Job{
		ID:        id,
		Stage:     models.StageQueued,
		Spec:      spec,
		CreatedAt: now,
		UpdatedAt: now,
	}

	prev, err := o.store.Get(ctx, id)
	switch {
	case err == nil && !prev.Stage.Terminal():
		return "", errors.Conflict("job is already in flight: " + id)
	case err == nil:
		job.CreatedAt = prev.CreatedAt
		if err := o.store.Save(ctx, job); err != nil {
			return "", errors.Wrap(err, op, "reset job record")
		}
	case errors.IsNotFound(err):
		if err := o.store.Create(ctx, job); err != nil {
			if errors.IsConflict(err) {
				return "", err
			}
			return "", errors.Wrap(err, op, "persist job record")
		}
	default:
		return "", errors.Wrap(err, op, "load job record")
	}

	if err := o.queue.Push(ctx, id); err != nil {
		job.Stage = models.StageError
		job.Error = errors.PublicMessage(errors.New(errors.CodeUnavailable, "job queue unavailable"))
		job.ErrorCode = string(errors.CodeUnavailable)
		job.UpdatedAt = o.now()
		_ = o.store.Save(ctx, job)
		return "", errors.WrapWithCode(err, errors.CodeUnavailable, op, "enqueue job")
	}

	o.log.FromContext(ctx).WithJobID(id).Info("job accepted",
		"video_ref", spec.SourceVideoRef,
		"audio_ref", spec.SourceAudioRef,
		"start", spec.AbsoluteStart,
		"end", spec.AbsoluteEnd,
	)
	return id, nil
}

// Status returns the latest snapshot of id. Jobs running in this process
// are answered from the registry, everything else from the store. ok is
// false for an id that was never submitted.
func (o *Orchestrator) Status(ctx context.Context, id string) (models.Job, bool, error) {
	if j, ok := o.registry.Get(id); ok {
		return j, true, nil
	}
	j, err := o.store.Get(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return models.Job{}, false, nil
		}
		return models.Job{}, false, err
	}
	return j, true, nil
}

// InFlight lists the jobs this process is currently running.
func (o *Orchestrator) InFlight() []string {
	return o.registry.Active()
}

package pipeline

import (
	"context"
	"os"
	"time"

	"clipforge/internal/captions"
	"clipforge/internal/compose"
	"clipforge/internal/models"
	"clipforge/internal/pkg/errors"
	"clipforge/internal/pkg/logger"
	"clipforge/internal/ports"
	"clipforge/internal/tracking"
)

// Progress milestones within processing.
const (
	progressTracked  = 60
	progressCaptions = 70
	progressRendered = 80
)

// persistTimeout bounds store writes made after the run context ended.
const persistTimeout = 10 * time.Second

// run is the state of one job being driven through the pipeline. Only the
// goroutine executing it writes the job.
type run struct {
	o   *Orchestrator
	job models.Job
	log *logger.Logger

	video ports.SourceLease
	audio ports.SourceLease
}

type step struct {
	stage    models.Stage
	progress int
	fn       func(context.Context) error
}

// Run drives job id from queued to a terminal stage. It returns the error
// that ended the job, or nil when it finished or was skipped. Ending ctx
// stops the job before its next stage; the stage in progress is not
// interrupted.
func (o *Orchestrator) Run(ctx context.Context, id string) error {
	return o.Process(context.WithoutCancel(ctx), id, ctx.Done())
}

// Process is Run with the stop signal split from ctx. Stages run under ctx;
// once stop is closed the job fails with UNAVAILABLE at the next stage
// boundary.
func (o *Orchestrator) Process(ctx context.Context, id string, stop <-chan struct{}) error {
	log := o.log.FromContext(ctx).WithJobID(id)

	job, err := o.load(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			log.Warn("dequeued unknown job, dropping")
			return nil
		}
		return errors.Wrap(err, "pipeline.Run", "load job")
	}
	if job.Stage.Terminal() {
		log.Info("job already finished, skipping", "stage", job.Stage)
		return nil
	}

	r := &run{o: o, job: job, log: log}
	defer r.releaseSources()
	if job.Stage != models.StageQueued {
		o.registry.Put(job)
		return r.fail(ctx, errors.Newf(errors.CodeInternal, "job was interrupted while %s", job.Stage))
	}

	r.job.Paths = stagingPaths(o.storageRoot, id)
	o.registry.Put(r.job)

	steps := []step{
		{models.StageDownloading, 5, r.download},
		{models.StageValidating, 25, r.validate},
		{models.StageCutting, 35, r.cut},
		{models.StageProcessing, 45, r.process},
		{models.StageUploading, 90, r.upload},
	}

	started := time.Now()
	for _, s := range steps {
		select {
		case <-stop:
			return r.fail(ctx, errors.New(errors.CodeUnavailable, "worker stopped before the job finished"))
		default:
		}
		r.advance(ctx, s.stage, s.progress)
		stageCtx := logger.ContextWithStage(ctx, string(s.stage))
		if err := s.fn(stageCtx); err != nil {
			return r.fail(ctx, err)
		}
	}

	r.advance(ctx, models.StageDone, 100)
	if err := NewCleanup(o.storageRoot).Success(id); err != nil {
		log.Warn("remove staging dir", "error", err)
	}
	o.registry.Delete(id)
	log.Info("job done", "remote", r.job.Remote, "elapsed", time.Since(started).Round(time.Millisecond).String())
	return nil
}

func (o *Orchestrator) load(ctx context.Context, id string) (models.Job, error) {
	if j, ok := o.registry.Get(id); ok {
		return j, nil
	}
	return o.store.Get(ctx, id)
}

// advance records a stage transition in the registry and the store. A store
// write failure is logged; the registry still serves the new stage.
func (r *run) advance(ctx context.Context, stage models.Stage, progress int) {
	if !models.CanTransition(r.job.Stage, stage) {
		r.log.Error("illegal stage transition", "from", r.job.Stage, "to", stage)
		return
	}
	r.job.Stage = stage
	r.setProgress(ctx, progress)
	r.log.Info("stage started", "stage", stage, "progress", r.job.Progress)
}

// setProgress raises progress monotonically and persists the snapshot.
func (r *run) setProgress(ctx context.Context, progress int) {
	if progress > r.job.Progress {
		r.job.Progress = progress
	}
	r.persist(ctx)
}

func (r *run) persist(ctx context.Context) {
	r.job.UpdatedAt = r.o.now()
	r.o.registry.Put(r.job)
	if err := r.o.store.Save(ctx, r.job); err != nil {
		r.log.Warn("persist job snapshot", "stage", r.job.Stage, "error", err)
	}
}

// fail moves the job to error, removes scratch files and keeps stage
// artifacts. It returns err.
func (r *run) fail(ctx context.Context, err error) error {
	failed := r.job.Stage
	r.job.Stage = models.StageError
	r.job.Error = errors.PublicMessage(err)
	r.job.ErrorCode = string(errors.GetCode(err))

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	r.persist(pctx)
	r.o.registry.Delete(r.job.ID)

	if cerr := NewCleanup(r.o.storageRoot).Scratch(r.job.ID); cerr != nil {
		r.log.Warn("remove scratch files", "error", cerr)
	}
	r.log.WithError(err).Error("job failed",
		"failed_stage", failed,
		"code", r.job.ErrorCode,
		"staging_dir", r.job.Paths.StagingDir,
	)
	return err
}

func (r *run) download(ctx context.Context) error {
	const op = "pipeline.download"
	if err := os.MkdirAll(r.job.Paths.StagingDir, 0o755); err != nil {
		return errors.Wrap(err, op, "create staging dir")
	}

	video, err := r.o.acquirer.Acquire(ctx, r.job.Spec.SourceVideoRef, models.MediaVideo)
	if err != nil {
		return errors.Wrap(err, op, "acquire source video")
	}
	r.video = video
	r.job.Paths.RawVideo = video.Path()

	audio, err := r.o.acquirer.Acquire(ctx, r.job.Spec.SourceAudioRef, models.MediaAudio)
	if err != nil {
		return errors.Wrap(err, op, "acquire source audio")
	}
	r.audio = audio
	r.job.Paths.RawAudio = audio.Path()

	r.log.Info("sources acquired", "video_cached", video.Cached(), "audio_cached", audio.Cached())
	return nil
}

// validate checks both sources while their cache entries are still held,
// then lets other jobs at them.
func (r *run) validate(ctx context.Context) error {
	defer r.releaseSources()
	if err := r.validateSource(ctx, r.video, models.MediaVideo); err != nil {
		return err
	}
	return r.validateSource(ctx, r.audio, models.MediaAudio)
}

func (r *run) validateSource(ctx context.Context, src ports.SourceLease, kind models.MediaKind) error {
	if src.Cached() {
		return nil
	}
	if err := r.o.validator.EnsureValid(ctx, src.Path(), kind); err != nil {
		if errors.IsCode(err, errors.CodeMediaValidation) {
			if eerr := src.Evict(); eerr != nil {
				r.log.Warn("evict invalid source", "kind", kind, "error", eerr)
			}
		}
		return errors.Wrap(err, "pipeline.validate", "source "+string(kind)+" failed validation")
	}
	if err := src.MarkValidated(); err != nil {
		r.log.Warn("mark source validated", "kind", kind, "error", err)
	}
	return nil
}

func (r *run) releaseSources() {
	for _, src := range []ports.SourceLease{r.video, r.audio} {
		if src != nil {
			src.Release()
		}
	}
}

func (r *run) cut(ctx context.Context) error {
	out, err := r.o.cutter.Cut(ctx, ports.CutInput{
		VideoSource: r.job.Paths.RawVideo,
		AudioSource: r.job.Paths.RawAudio,
		Start:       r.job.Spec.AbsoluteStart,
		End:         r.job.Spec.AbsoluteEnd,
		VideoOut:    stagingFile(r.job.Paths, videoSegmentName),
		AudioOut:    stagingFile(r.job.Paths, audioSegmentName),
	})
	if err != nil {
		return errors.Wrap(err, "pipeline.cut", "cut segments")
	}
	r.job.Paths.VideoSegment = out.VideoSegment
	r.job.Paths.AudioSegment = out.AudioSegment
	r.log.Info("segments cut", "start", out.Window.Start, "end", out.Window.End)
	return nil
}

// process tracks the speaker, writes the crop plan and captions and renders
// the final clip.
func (r *run) process(ctx context.Context) error {
	if err := r.track(ctx); err != nil {
		return err
	}
	r.setProgress(ctx, progressTracked)

	if err := r.captions(ctx); err != nil {
		return err
	}
	r.setProgress(ctx, progressCaptions)

	if err := r.render(ctx); err != nil {
		return err
	}
	r.setProgress(ctx, progressRendered)
	return nil
}

func (r *run) track(ctx context.Context) error {
	const op = "pipeline.track"
	s := r.o.settings

	info, err := r.o.cutter.Inspect(ctx, r.job.Paths.VideoSegment)
	if err != nil {
		return errors.Wrap(err, op, "inspect video segment")
	}
	if info.Frames <= 0 || info.Width <= 0 || info.Height <= 0 {
		return errors.Newf(errors.CodeMediaValidation, "video segment has no frames (%dx%d, %d frames)", info.Width, info.Height, info.Frames)
	}

	var detections []tracking.Detection
	if r.o.detector != nil {
		src := r.o.cutter.Proxy(ctx, r.job.Paths.VideoSegment, stagingFile(r.job.Paths, proxyName), s.Tracking.ProxyHeight)
		if src != r.job.Paths.VideoSegment {
			r.job.Paths.ProxyVideo = src
		}
		res, err := r.o.detector.Detect(ctx, ports.DetectRequest{
			VideoPath:   src,
			Stride:      s.Tracking.FrameStride,
			ProxyHeight: s.Tracking.ProxyHeight,
		})
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrap(ctx.Err(), op, "detection cancelled")
			}
			r.log.WithError(err).Warn("face detection failed, keeping the crop centered",
				"code", errors.GetCode(err))
		} else {
			detections = res.Detections
		}
	}

	centers, stats, err := tracking.Track(ctx, tracking.Sequence{
		Width:      info.Width,
		Height:     info.Height,
		Frames:     info.Frames,
		Detections: detections,
	}, s.Tracking)
	if err != nil {
		return errors.Wrap(err, op, "track speaker")
	}
	r.log.Info("speaker tracked",
		"frames", info.Frames,
		"sampled", stats.Sampled,
		"no_candidate", stats.NoCandidate,
		"detector_errors", stats.DetectorErrors,
		"switches", stats.Switches,
	)

	plan := compose.Plan(centers, info.Width, info.Height, info.FPS, s.Compose)
	planPath := stagingFile(r.job.Paths, cropPlanName)
	if err := compose.WritePlan(planPath, plan); err != nil {
		return errors.Wrap(err, op, "write crop plan")
	}
	r.job.Paths.CropPlan = planPath
	return nil
}

func (r *run) captions(ctx context.Context) error {
	const op = "pipeline.captions"
	if r.o.transcriber == nil {
		r.log.Info("no transcriber configured, rendering without captions")
		return nil
	}

	words, err := r.o.transcriber.Transcribe(ctx, r.job.Paths.AudioSegment)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeTranscription, op, "transcription failed")
	}
	style := captions.PickStyle(r.o.settings.CaptionStyle, r.job.ID)
	events := captions.Build(words, style)

	path := stagingFile(r.job.Paths, captionsName)
	if err := captions.WriteFile(path, events, r.o.settings.CaptionFont); err != nil {
		return errors.Wrap(err, op, "write captions")
	}
	r.job.Paths.Captions = path
	r.log.Info("captions written", "words", len(words), "events", len(events), "style", style)
	return nil
}

func (r *run) render(ctx context.Context) error {
	const op = "pipeline.render"
	r.job.Paths.Final = stagingFile(r.job.Paths, finalName)

	if err := r.o.renderer.Render(ctx, renderSpec(r.job, r.o.settings)); err != nil {
		return errors.WrapWithCode(err, errors.CodeRender, op, "render failed")
	}
	st, err := os.Stat(r.job.Paths.Final)
	if err != nil || st.Size() == 0 {
		if err == nil {
			err = errors.New(errors.CodeRender, "empty output")
		}
		return errors.Render(err, op, "renderer produced no output")
	}
	return nil
}

func (r *run) upload(ctx context.Context) error {
	remote, err := NewPublisher(r.o.publisher, r.o.settings.PublishPrefix).Publish(ctx, r.job.ID, r.job.Paths.Final)
	if err != nil {
		return err
	}
	r.job.Remote = remote
	return nil
}

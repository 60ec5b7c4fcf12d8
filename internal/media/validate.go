package media

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"clipforge/internal/models"
	"clipforge/internal/pkg/errors"
	"clipforge/internal/pkg/logger"
)

// Verdict is the outcome of a container check.
type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictNeedsRepair
	VerdictFatal
)

func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "ok"
	case VerdictNeedsRepair:
		return "needs_repair"
	default:
		return "fatal"
	}
}

// repairable are ffprobe messages of a truncated or unindexed mp4 or mov
// container that a stream copy into a fresh container can fix.
var repairable = []string{
	"moov atom not found",
	"invalid data found when processing input",
	"partial file",
}

// Validator checks containers and repairs them with a stream copy.
type Validator struct {
	Prober     *Prober
	FFmpeg     string
	Runner     Runner
	MaxRepairs int
	Backoff    time.Duration
	Timeout    time.Duration
	Log        *logger.Logger

	sleep func(context.Context, time.Duration) error
}

// Validate probes path and classifies it. The reason explains a non-ok
// verdict. Only mp4 family containers, sniffed from the file header, are
// ever judged repairable; every other probe failure is fatal.
func (v *Validator) Validate(ctx context.Context, path string, kind models.MediaKind) (Verdict, string) {
	res, err := v.Prober.Probe(ctx, path)
	if err != nil {
		var pe *ProbeError
		if errors.As(err, &pe) && remuxable(sniffContainer(path)) {
			out := strings.ToLower(pe.Output + " " + pe.Err.Error())
			for _, marker := range repairable {
				if strings.Contains(out, marker) {
					return VerdictNeedsRepair, marker
				}
			}
		}
		return VerdictFatal, "probe failed: " + err.Error()
	}

	switch kind {
	case models.MediaVideo:
		if _, ok := res.Video(); !ok {
			return VerdictFatal, "no video stream"
		}
	case models.MediaAudio:
		if _, ok := res.Audio(); !ok {
			return VerdictFatal, "no audio stream"
		}
	}
	if res.DurationSeconds() <= 0 {
		return VerdictFatal, "container reports no duration"
	}
	return VerdictOK, ""
}

// EnsureValid validates path, repairing up to MaxRepairs times with linear
// backoff. It returns MEDIA_VALIDATION_ERROR when the container is fatally
// broken or still invalid after the last repair.
func (v *Validator) EnsureValid(ctx context.Context, path string, kind models.MediaKind) error {
	const op = "media.EnsureValid"
	log := v.logger().With("path", path, "kind", string(kind))

	for attempt := 0; ; attempt++ {
		verdict, reason := v.Validate(ctx, path, kind)
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, op, "validation interrupted")
		}
		switch verdict {
		case VerdictOK:
			if attempt > 0 {
				log.Info("container repaired", "repairs", attempt)
			}
			return nil
		case VerdictFatal:
			return errors.MediaValidation(fmt.Errorf("%s: %s", path, reason), op,
				fmt.Sprintf("source %s is not a usable media file", kind)).
				WithField("reason", reason)
		}

		if attempt >= v.MaxRepairs {
			return errors.MediaValidation(fmt.Errorf("%s: %s", path, reason), op,
				fmt.Sprintf("source %s container is not repairable", kind)).
				WithField("repairs", attempt)
		}
		if attempt > 0 {
			if err := v.wait(ctx, v.Backoff*time.Duration(attempt)); err != nil {
				return errors.Wrap(err, op, "validation interrupted")
			}
		}

		log.Warn("container needs repair", "reason", reason, "attempt", attempt+1)
		if err := v.repair(ctx, path); err != nil {
			log.Warn("repair failed", "error", err.Error())
		}
	}
}

// repair remuxes path into a fresh container of the same family without
// transcoding and replaces the original atomically.
func (v *Validator) repair(ctx context.Context, path string) error {
	container := sniffContainer(path)
	if !remuxable(container) {
		return fmt.Errorf("no remux target for container %q", container)
	}
	if v.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}
	part := path + ".repair.part"
	defer os.Remove(part)

	_, err := runner(v.Runner).Run(ctx, ffmpegBinary(v.FFmpeg),
		"-y", "-v", "error", "-err_detect", "ignore_err",
		"-i", path,
		"-map", "0", "-c", "copy", "-movflags", "+faststart",
		"-f", container, part,
	)
	if err != nil {
		return err
	}
	return commit(part, path)
}

func (v *Validator) wait(ctx context.Context, d time.Duration) error {
	if v.sleep != nil {
		return v.sleep(ctx, d)
	}
	return sleepCtx(ctx, d)
}

func (v *Validator) logger() *logger.Logger {
	if v.Log == nil {
		return logger.Nop()
	}
	return v.Log.WithComponent("validator")
}

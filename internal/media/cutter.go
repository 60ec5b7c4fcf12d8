package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"clipforge/internal/pkg/errors"
	"clipforge/internal/pkg/logger"
	"clipforge/internal/ports"
)

// Cutter produces the per-job segments with ffmpeg.
type Cutter struct {
	Prober  *Prober
	FFmpeg  string
	Runner  Runner
	Guard   float64
	Timeout time.Duration
	Log     *logger.Logger
}

// Cut probes both sources, clamps the window against the shorter one and
// writes a video-only H.264 segment and a mono 16 kHz PCM audio segment
// sharing the same time origin. The cutter is never invoked with an
// unclamped window.
func (c *Cutter) Cut(ctx context.Context, in ports.CutInput) (ports.CutOutput, error) {
	const op = "media.Cut"

	duration, err := c.sourceDuration(ctx, in.VideoSource, in.AudioSource)
	if err != nil {
		return ports.CutOutput{}, err
	}
	win, err := ClampWindow(in.Start, in.End, duration, c.Guard)
	if err != nil {
		return ports.CutOutput{}, err
	}

	ss := seconds(win.Start)
	t := seconds(win.Duration())
	log := c.logger().With("start", win.Start, "end", win.End, "duration", win.Duration())
	if win.End < in.End {
		log.Info("window end clamped", "requested_end", in.End, "source_duration", duration)
	}

	if err := c.ffmpeg(ctx, in.VideoOut,
		"-ss", ss, "-i", in.VideoSource, "-t", t,
		"-an", "-c:v", "libx264", "-preset", "fast", "-pix_fmt", "yuv420p",
		"-f", "mp4",
	); err != nil {
		return ports.CutOutput{}, errors.Wrap(err, op, "cut video segment failed")
	}
	if err := c.ffmpeg(ctx, in.AudioOut,
		"-ss", ss, "-i", in.AudioSource, "-t", t,
		"-vn", "-ar", "16000", "-ac", "1", "-c:a", "pcm_s16le",
		"-f", "wav",
	); err != nil {
		return ports.CutOutput{}, errors.Wrap(err, op, "cut audio segment failed")
	}

	log.Debug("segments cut", "video", in.VideoOut, "audio", in.AudioOut)
	return ports.CutOutput{Window: win, VideoSegment: in.VideoOut, AudioSegment: in.AudioOut}, nil
}

// sourceDuration returns the shorter of the two source durations.
func (c *Cutter) sourceDuration(ctx context.Context, video, audio string) (float64, error) {
	const op = "media.Cut"
	duration := math.Inf(1)
	for _, src := range []string{video, audio} {
		res, err := c.Prober.Probe(ctx, src)
		if err != nil {
			return 0, errors.MediaValidation(err, op, "could not measure source duration")
		}
		if d := res.DurationSeconds(); d < duration {
			duration = d
		}
	}
	return duration, nil
}

// Proxy writes an audio-less copy of src scaled to height for detection and
// returns its path. Any failure falls back to src.
func (c *Cutter) Proxy(ctx context.Context, src, dst string, height int) string {
	err := c.ffmpeg(ctx, dst,
		"-i", src,
		"-vf", fmt.Sprintf("scale=-2:%d", height),
		"-an", "-c:v", "libx264", "-preset", "ultrafast",
		"-f", "mp4",
	)
	if err != nil {
		c.logger().Warn("proxy failed, detecting on full resolution", "error", err.Error())
		return src
	}
	return dst
}

// Inspect returns the geometry of the first video stream of path.
func (c *Cutter) Inspect(ctx context.Context, path string) (ports.VideoInfo, error) {
	res, err := c.Prober.Probe(ctx, path)
	if err != nil {
		return ports.VideoInfo{}, errors.MediaValidation(err, "media.Inspect", "could not inspect video segment")
	}
	vs, ok := res.Video()
	if !ok || vs.Width <= 0 || vs.Height <= 0 {
		return ports.VideoInfo{}, errors.MediaValidation(fmt.Errorf("%s: no video stream", path), "media.Inspect", "segment has no video stream")
	}
	d := res.DurationSeconds()
	return ports.VideoInfo{
		Width:    vs.Width,
		Height:   vs.Height,
		FPS:      vs.FPS(),
		Frames:   vs.FrameCount(d),
		Duration: d,
	}, nil
}

// ffmpeg runs one encode into dst through a .part file. Arguments are
// everything between the global flags and the output path.
func (c *Cutter) ffmpeg(ctx context.Context, dst string, args ...string) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	part := dst + ".part"
	defer os.Remove(part)

	full := append([]string{"-y", "-v", "error"}, args...)
	full = append(full, part)
	if _, err := runner(c.Runner).Run(ctx, ffmpegBinary(c.FFmpeg), full...); err != nil {
		return err
	}
	return commit(part, dst)
}

func (c *Cutter) logger() *logger.Logger {
	if c.Log == nil {
		return logger.Nop()
	}
	return c.Log.WithComponent("cutter")
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"clipforge/internal/models"
	"clipforge/internal/pkg/errors"
	"clipforge/internal/ports"
)

type call struct {
	name string
	args []string
}

// fakeRunner answers ffprobe from a table keyed by path and fakes ffmpeg by
// writing its output file.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []call
	probes map[string][]probeReply
	ffErr  error
}

type probeReply struct {
	out string
	err error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{name: name, args: append([]string(nil), args...)})

	if name == "ffprobe" {
		path := args[len(args)-1]
		replies := f.probes[path]
		if len(replies) == 0 {
			return nil, fmt.Errorf("no probe reply for %s", path)
		}
		r := replies[0]
		if len(replies) > 1 {
			f.probes[path] = replies[1:]
		}
		return []byte(r.out), r.err
	}

	if f.ffErr != nil {
		return []byte("boom"), f.ffErr
	}
	out := args[len(args)-1]
	return nil, os.WriteFile(out, mp4Header, 0o644)
}

func (f *fakeRunner) ffmpegCalls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.name == "ffmpeg" {
			out = append(out, c)
		}
	}
	return out
}

var (
	mp4Header = []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00")
	movHeader = []byte("\x00\x00\x00\x14ftypqt  \x00\x00\x00\x00")
	wavHeader = []byte("RIFF\x24\x00\x00\x00WAVEfmt ")
)

func writeSource(t *testing.T, name string, head []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, append(append([]byte(nil), head...), "truncated"...), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func probeJSON(duration float64, streams ...string) string {
	parts := make([]string, 0, len(streams))
	for _, s := range streams {
		switch s {
		case "video":
			parts = append(parts, `{"index":0,"codec_type":"video","width":1920,"height":1080,"r_frame_rate":"30000/1001","nb_frames":"300"}`)
		case "audio":
			parts = append(parts, `{"index":1,"codec_type":"audio","sample_rate":"48000","channels":2}`)
		}
	}
	return fmt.Sprintf(`{"streams":[%s],"format":{"duration":"%.3f"}}`, strings.Join(parts, ","), duration)
}

func TestClampWindow(t *testing.T) {
	tests := []struct {
		name       string
		start, end float64
		duration   float64
		wantEnd    float64
		wantErr    bool
	}{
		{name: "clamped to guard", start: 60, end: 70, duration: 65, wantEnd: 64.8},
		{name: "inside source", start: 10, end: 20, duration: 65, wantEnd: 20},
		{name: "start beyond duration", start: 70, end: 80, duration: 65, wantErr: true},
		{name: "start at duration", start: 65, end: 70, duration: 65, wantErr: true},
		{name: "start inside guard", start: 64.9, end: 70, duration: 65, wantErr: true},
		{name: "negative start", start: -1, end: 5, duration: 65, wantErr: true},
		{name: "end before start", start: 10, end: 5, duration: 65, wantErr: true},
		{name: "zero length", start: 10, end: 10, duration: 65, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ClampWindow(tt.start, tt.end, tt.duration, DefaultGuard)
			if tt.wantErr {
				if !errors.IsCode(err, errors.CodeWindow) {
					t.Fatalf("err = %v, want WINDOW_ERROR", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(w.End-tt.wantEnd) > 1e-9 {
				t.Errorf("End = %v, want %v", w.End, tt.wantEnd)
			}
			if w.Duration() <= 0 {
				t.Errorf("Duration = %v, want > 0", w.Duration())
			}
		})
	}
}

func TestClampWindowScenario(t *testing.T) {
	w, err := ClampWindow(60, 70, 65, DefaultGuard)
	if err != nil {
		t.Fatal(err)
	}
	if w.Start != 60 || math.Abs(w.End-64.8) > 1e-9 || math.Abs(w.Duration()-4.8) > 1e-9 {
		t.Errorf("window = %+v dur %v, want (60, 64.8) dur 4.8", w, w.Duration())
	}
}

func TestClampWindowPreservesRequestedLength(t *testing.T) {
	for _, tt := range [][3]float64{{0, 10, 30}, {12.5, 17.25, 60}, {100, 160.5, 600}} {
		w, err := ClampWindow(tt[0], tt[1], tt[2], DefaultGuard)
		if err != nil {
			t.Fatalf("%v: %v", tt, err)
		}
		if math.Abs(w.Duration()-(tt[1]-tt[0])) > 1e-9 {
			t.Errorf("%v: duration %v, want %v", tt, w.Duration(), tt[1]-tt[0])
		}
	}
}

func newCutter(r *fakeRunner) *Cutter {
	return &Cutter{
		Prober: &Prober{Binary: "ffprobe", Runner: r},
		FFmpeg: "ffmpeg",
		Runner: r,
		Guard:  DefaultGuard,
	}
}

func TestCutClampsAgainstShorterSource(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{probes: map[string][]probeReply{
		"video.mp4": {{out: probeJSON(65, "video", "audio")}},
		"audio.m4a": {{out: probeJSON(66, "audio")}},
	}}
	out, err := newCutter(r).Cut(context.Background(), ports.CutInput{
		VideoSource: "video.mp4",
		AudioSource: "audio.m4a",
		Start:       60,
		End:         70,
		VideoOut:    filepath.Join(dir, "video_segment.mp4"),
		AudioOut:    filepath.Join(dir, "audio_segment.wav"),
	})
	if err != nil {
		t.Fatalf("Cut: %v", err)
	}
	if math.Abs(out.Window.Duration()-4.8) > 1e-9 {
		t.Errorf("duration = %v, want 4.8", out.Window.Duration())
	}

	calls := r.ffmpegCalls()
	if len(calls) != 2 {
		t.Fatalf("ffmpeg calls = %d, want 2", len(calls))
	}
	video := strings.Join(calls[0].args, " ")
	for _, want := range []string{"-ss 60.000", "-t 4.800", "-an", "libx264", "yuv420p"} {
		if !strings.Contains(video, want) {
			t.Errorf("video args missing %q: %s", want, video)
		}
	}
	audio := strings.Join(calls[1].args, " ")
	for _, want := range []string{"-ar 16000", "-ac 1", "pcm_s16le", "-vn"} {
		if !strings.Contains(audio, want) {
			t.Errorf("audio args missing %q: %s", want, audio)
		}
	}
	for _, p := range []string{out.VideoSegment, out.AudioSegment} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("segment %s missing: %v", p, err)
		}
		if _, err := os.Stat(p + ".part"); !os.IsNotExist(err) {
			t.Errorf("partial file left for %s", p)
		}
	}
}

func TestCutRejectsStartBeyondDurationWithoutInvokingFFmpeg(t *testing.T) {
	r := &fakeRunner{probes: map[string][]probeReply{
		"video.mp4": {{out: probeJSON(65, "video")}},
		"audio.m4a": {{out: probeJSON(65, "audio")}},
	}}
	_, err := newCutter(r).Cut(context.Background(), ports.CutInput{
		VideoSource: "video.mp4",
		AudioSource: "audio.m4a",
		Start:       70,
		End:         80,
		VideoOut:    "v.mp4",
		AudioOut:    "a.wav",
	})
	if !errors.IsCode(err, errors.CodeWindow) {
		t.Fatalf("err = %v, want WINDOW_ERROR", err)
	}
	if n := len(r.ffmpegCalls()); n != 0 {
		t.Errorf("ffmpeg invoked %d times", n)
	}
}

func TestProxyFallsBackToSource(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{ffErr: fmt.Errorf("exit status 1")}
	c := newCutter(r)
	src := filepath.Join(dir, "video_segment.mp4")
	if got := c.Proxy(context.Background(), src, filepath.Join(dir, "proxy.mp4"), 360); got != src {
		t.Errorf("Proxy = %s, want fallback %s", got, src)
	}

	r.ffErr = nil
	dst := filepath.Join(dir, "proxy.mp4")
	if got := c.Proxy(context.Background(), src, dst, 360); got != dst {
		t.Errorf("Proxy = %s, want %s", got, dst)
	}
	if args := strings.Join(r.ffmpegCalls()[1].args, " "); !strings.Contains(args, "scale=-2:360") {
		t.Errorf("proxy args missing scale: %s", args)
	}
}

func TestInspect(t *testing.T) {
	r := &fakeRunner{probes: map[string][]probeReply{"seg.mp4": {{out: probeJSON(10, "video")}}}}
	info, err := newCutter(r).Inspect(context.Background(), "seg.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if info.Width != 1920 || info.Height != 1080 || info.Frames != 300 {
		t.Errorf("info = %+v", info)
	}
	if math.Abs(info.FPS-29.97) > 0.01 {
		t.Errorf("FPS = %v", info.FPS)
	}
}

func TestValidate(t *testing.T) {
	moovMissing := probeReply{out: "[mov,mp4] moov atom not found", err: fmt.Errorf("exit status 1")}
	invalidData := probeReply{out: "Invalid data found when processing input", err: fmt.Errorf("exit status 1")}
	tests := []struct {
		name  string
		head  []byte
		reply probeReply
		kind  models.MediaKind
		want  Verdict
	}{
		{"ok video", mp4Header, probeReply{out: probeJSON(30, "video", "audio")}, models.MediaVideo, VerdictOK},
		{"ok audio", wavHeader, probeReply{out: probeJSON(30, "audio")}, models.MediaAudio, VerdictOK},
		{"moov missing", mp4Header, moovMissing, models.MediaVideo, VerdictNeedsRepair},
		{"invalid data in mov", movHeader, invalidData, models.MediaVideo, VerdictNeedsRepair},
		{"invalid data in wav", wavHeader, invalidData, models.MediaAudio, VerdictFatal},
		{"marker on unknown container", []byte("not a media file"), moovMissing, models.MediaVideo, VerdictFatal},
		{"garbage", mp4Header, probeReply{out: "Permission denied", err: fmt.Errorf("exit status 1")}, models.MediaVideo, VerdictFatal},
		{"no duration", mp4Header, probeReply{out: probeJSON(0, "video")}, models.MediaVideo, VerdictFatal},
		{"audio source without audio", mp4Header, probeReply{out: probeJSON(30, "video")}, models.MediaAudio, VerdictFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := writeSource(t, "src", tt.head)
			r := &fakeRunner{probes: map[string][]probeReply{src: {tt.reply}}}
			v := &Validator{Prober: &Prober{Binary: "ffprobe", Runner: r}, Runner: r}
			if got, reason := v.Validate(context.Background(), src, tt.kind); got != tt.want {
				t.Errorf("Validate = %s (%s), want %s", got, reason, tt.want)
			}
		})
	}
}

func TestSniffContainer(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want string
	}{
		{"iso brand", mp4Header, ContainerMP4},
		{"m4a brand", []byte("\x00\x00\x00\x1cftypM4A \x00\x00"), ContainerMP4},
		{"quicktime brand", movHeader, ContainerMOV},
		{"mdat first", []byte("\x00\x00\x10\x00mdat\x00\x00\x00\x00"), ContainerMP4},
		{"wave", wavHeader, ContainerWAV},
		{"text", []byte("<html><body>"), ContainerUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sniffContainer(writeSource(t, "src", tt.head)); got != tt.want {
				t.Errorf("sniffContainer = %q, want %q", got, tt.want)
			}
		})
	}

	if got := sniffContainer(filepath.Join(t.TempDir(), "missing")); got != ContainerUnknown {
		t.Errorf("missing file sniffed as %q", got)
	}
}

func TestEnsureValidRepairs(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		head   []byte
		format string
	}{
		{"mp4 video", "raw.mp4", mp4Header, "-f mp4"},
		{"m4a audio", "raw.m4a", []byte("\x00\x00\x00\x1cftypM4A \x00\x00"), "-f mp4"},
		{"quicktime", "raw.mov", movHeader, "-f mov"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := writeSource(t, tt.file, tt.head)
			broken := probeReply{out: "moov atom not found", err: fmt.Errorf("exit status 1")}
			r := &fakeRunner{probes: map[string][]probeReply{
				src: {broken, {out: probeJSON(30, "video", "audio")}},
			}}
			v := &Validator{
				Prober:     &Prober{Binary: "ffprobe", Runner: r},
				FFmpeg:     "ffmpeg",
				Runner:     r,
				MaxRepairs: 2,
				sleep:      func(context.Context, time.Duration) error { return nil },
			}
			if err := v.EnsureValid(context.Background(), src, models.MediaVideo); err != nil {
				t.Fatalf("EnsureValid: %v", err)
			}
			calls := r.ffmpegCalls()
			if len(calls) != 1 {
				t.Fatalf("repairs = %d, want 1", len(calls))
			}
			args := strings.Join(calls[0].args, " ")
			if !strings.Contains(args, "-c copy") || !strings.Contains(args, "+faststart") {
				t.Errorf("repair must stream copy: %s", args)
			}
			if !strings.Contains(args, tt.format) {
				t.Errorf("repair args %q, want %q", args, tt.format)
			}
		})
	}
}

func TestWavSourceIsNotRemuxed(t *testing.T) {
	src := writeSource(t, "raw.m4a", wavHeader)
	broken := probeReply{out: "Invalid data found when processing input", err: fmt.Errorf("exit status 1")}
	r := &fakeRunner{probes: map[string][]probeReply{src: {broken}}}
	v := &Validator{Prober: &Prober{Binary: "ffprobe", Runner: r}, FFmpeg: "ffmpeg", Runner: r, MaxRepairs: 2}

	err := v.EnsureValid(context.Background(), src, models.MediaAudio)
	if !errors.IsCode(err, errors.CodeMediaValidation) {
		t.Fatalf("err = %v, want MEDIA_VALIDATION_ERROR", err)
	}
	if n := len(r.ffmpegCalls()); n != 0 {
		t.Errorf("wav source must not be remuxed, got %d ffmpeg calls", n)
	}
	if err := v.repair(context.Background(), src); err == nil {
		t.Error("repair of a wav source should fail without running ffmpeg")
	}
}

func TestEnsureValidGivesUpAfterBound(t *testing.T) {
	src := writeSource(t, "raw.mp4", mp4Header)
	broken := probeReply{out: "moov atom not found", err: fmt.Errorf("exit status 1")}
	r := &fakeRunner{probes: map[string][]probeReply{src: {broken}}}
	var waits []time.Duration
	v := &Validator{
		Prober:     &Prober{Binary: "ffprobe", Runner: r},
		Runner:     r,
		MaxRepairs: 2,
		Backoff:    time.Second,
		sleep: func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	}
	err := v.EnsureValid(context.Background(), src, models.MediaVideo)
	if !errors.IsCode(err, errors.CodeMediaValidation) {
		t.Fatalf("err = %v, want MEDIA_VALIDATION_ERROR", err)
	}
	if n := len(r.ffmpegCalls()); n != 2 {
		t.Errorf("repairs = %d, want 2", n)
	}
	if len(waits) != 1 || waits[0] != time.Second {
		t.Errorf("waits = %v, want [1s]", waits)
	}
}

func TestEnsureValidFatalDoesNotRepair(t *testing.T) {
	r := &fakeRunner{probes: map[string][]probeReply{"src": {{out: "No such file", err: fmt.Errorf("exit status 1")}}}}
	v := &Validator{Prober: &Prober{Binary: "ffprobe", Runner: r}, Runner: r, MaxRepairs: 2}
	err := v.EnsureValid(context.Background(), "src", models.MediaVideo)
	if !errors.IsCode(err, errors.CodeMediaValidation) {
		t.Fatalf("err = %v", err)
	}
	if n := len(r.ffmpegCalls()); n != 0 {
		t.Errorf("fatal container must not be repaired, got %d ffmpeg calls", n)
	}
}

func TestStreamFPS(t *testing.T) {
	tests := map[string]float64{"30/1": 30, "30000/1001": 29.97002997, "25": 25, "0/0": 0, "": 0}
	for in, want := range tests {
		if got := (Stream{RFrameRate: in}).FPS(); math.Abs(got-want) > 1e-6 {
			t.Errorf("FPS(%q) = %v, want %v", in, got, want)
		}
	}
}

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"clipforge/internal/captions"
	rendererv1 "clipforge/internal/contracts/renderer/v1"
	"clipforge/internal/models"
	"clipforge/internal/pkg/errors"
	"clipforge/internal/ports"
	"clipforge/internal/tracking"
)

type memStore struct {
	mu     sync.Mutex
	jobs   map[string]models.Job
	stages []models.Stage
	saveFn func(models.Job) error
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]models.Job)}
}

func (s *memStore) Create(_ context.Context, job models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return errors.Conflict("job already exists: " + job.ID)
	}
	s.jobs[job.ID] = job
	s.stages = append(s.stages, job.Stage)
	return nil
}

func (s *memStore) Save(_ context.Context, job models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveFn != nil {
		if err := s.saveFn(job); err != nil {
			return err
		}
	}
	if _, ok := s.jobs[job.ID]; !ok {
		return errors.NotFound("job", job.ID)
	}
	s.jobs[job.ID] = job
	if n := len(s.stages); n == 0 || s.stages[n-1] != job.Stage {
		s.stages = append(s.stages, job.Stage)
	}
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return models.Job{}, errors.NotFound("job", id)
	}
	return j, nil
}

func (s *memStore) ListByStage(_ context.Context, stage models.Stage, before time.Time) ([]models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Job
	for _, j := range s.jobs {
		if j.Stage == stage && j.UpdatedAt.Before(before) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *memStore) Ping(context.Context) error { return nil }

type memQueue struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *memQueue) Push(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.ids = append(q.ids, id)
	return nil
}

func (q *memQueue) Pop(context.Context) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.ids) == 0 {
		return "", nil
	}
	id := q.ids[0]
	q.ids = q.ids[1:]
	return id, nil
}

func (q *memQueue) Ping(context.Context) error { return nil }

type fakeAcquirer struct {
	dir       string
	cached    bool
	err       error
	validated []models.MediaKind
	evicted   []models.MediaKind
	leased    int
	released  int
}

func (a *fakeAcquirer) Acquire(_ context.Context, _ string, kind models.MediaKind) (ports.SourceLease, error) {
	if a.err != nil {
		return nil, a.err
	}
	p := filepath.Join(a.dir, "cache", string(kind)+kind.Ext())
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(p, []byte("raw "+string(kind)), 0o644); err != nil {
		return nil, err
	}
	a.leased++
	return &fakeLease{a: a, kind: kind, path: p}, nil
}

type fakeLease struct {
	a        *fakeAcquirer
	kind     models.MediaKind
	path     string
	released bool
}

func (l *fakeLease) Path() string { return l.path }

func (l *fakeLease) Cached() bool { return l.a.cached }

func (l *fakeLease) MarkValidated() error {
	if l.released {
		return fmt.Errorf("released")
	}
	l.a.validated = append(l.a.validated, l.kind)
	return nil
}

func (l *fakeLease) Evict() error {
	if l.released {
		return fmt.Errorf("released")
	}
	l.a.evicted = append(l.a.evicted, l.kind)
	return nil
}

func (l *fakeLease) Release() {
	if !l.released {
		l.released = true
		l.a.released++
	}
}

type fakeValidator struct {
	calls int
	err   error
}

func (v *fakeValidator) EnsureValid(context.Context, string, models.MediaKind) error {
	v.calls++
	return v.err
}

type fakeCutter struct {
	info  ports.VideoInfo
	err   error
	onCut func(ctx context.Context)
}

func (c *fakeCutter) Cut(ctx context.Context, in ports.CutInput) (ports.CutOutput, error) {
	if c.onCut != nil {
		c.onCut(ctx)
	}
	if c.err != nil {
		return ports.CutOutput{}, c.err
	}
	for _, p := range []string{in.VideoOut, in.AudioOut} {
		if err := os.WriteFile(p, []byte("segment"), 0o644); err != nil {
			return ports.CutOutput{}, err
		}
	}
	// a leftover from an interrupted encode
	_ = os.WriteFile(in.VideoOut+".part", []byte("partial"), 0o644)
	return ports.CutOutput{
		Window:       models.TimeWindow{Start: in.Start, End: in.End},
		VideoSegment: in.VideoOut,
		AudioSegment: in.AudioOut,
	}, nil
}

func (c *fakeCutter) Proxy(_ context.Context, src, dst string, _ int) string {
	if err := os.WriteFile(dst, []byte("proxy"), 0o644); err != nil {
		return src
	}
	return dst
}

func (c *fakeCutter) Inspect(context.Context, string) (ports.VideoInfo, error) {
	return c.info, nil
}

type fakeDetector struct {
	req ports.DetectRequest
	res ports.DetectResult
	err error
}

func (d *fakeDetector) Detect(_ context.Context, req ports.DetectRequest) (ports.DetectResult, error) {
	d.req = req
	return d.res, d.err
}

type fakeTranscriber struct {
	words []captions.Word
	err   error
}

func (t *fakeTranscriber) Transcribe(context.Context, string) ([]captions.Word, error) {
	return t.words, t.err
}

type fakeRenderer struct {
	spec rendererv1.RenderSpec
	err  error
}

func (r *fakeRenderer) Render(_ context.Context, spec rendererv1.RenderSpec) error {
	r.spec = spec
	if r.err != nil {
		return r.err
	}
	return os.WriteFile(spec.Output.Path, []byte("final clip"), 0o644)
}

type memStorage struct {
	objects map[string][]byte
	err     error
}

func (m *memStorage) Provider() string { return "memory" }

func (m *memStorage) PutObject(_ context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	if m.err != nil {
		return ports.PutObjectOutput{}, m.err
	}
	data, err := io.ReadAll(in.Reader)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[in.ObjectKey] = data
	return ports.PutObjectOutput{ObjectKey: in.ObjectKey, Size: int64(len(data))}, nil
}

func (m *memStorage) GetObject(_ context.Context, key string) (io.ReadCloser, string, int64, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, "", 0, errors.NotFound("object", key)
	}
	return io.NopCloser(bytes.NewReader(data)), "video/mp4", int64(len(data)), nil
}

// twoSpeakers has the left face talking on every sampled frame.
func twoSpeakers(frames, stride int) []tracking.Detection {
	var out []tracking.Detection
	for i := 0; i < frames; i += stride {
		out = append(out, tracking.Detection{
			Frame: i,
			Faces: []tracking.Face{
				{
					Nose:       tracking.Landmark{X: 0.25, Y: 0.5},
					UpperLip:   tracking.Landmark{X: 0.25, Y: 0.55},
					LowerLip:   tracking.Landmark{X: 0.25, Y: 0.6},
					LeftCheek:  tracking.Landmark{X: 0.2, Y: 0.5},
					RightCheek: tracking.Landmark{X: 0.3, Y: 0.5},
				},
				{
					Nose:       tracking.Landmark{X: 0.75, Y: 0.5},
					UpperLip:   tracking.Landmark{X: 0.75, Y: 0.55},
					LowerLip:   tracking.Landmark{X: 0.75, Y: 0.551},
					LeftCheek:  tracking.Landmark{X: 0.7, Y: 0.5},
					RightCheek: tracking.Landmark{X: 0.8, Y: 0.5},
				},
			},
		})
	}
	return out
}

package tracking

import (
	"context"
	"math"
	"testing"
)

// talking builds a candidate whose score under DefaultParams is exactly score.
func talking(index int, x, y, score float64) FaceCandidate {
	const mouth = 5.0
	return FaceCandidate{
		Position:      Point{X: x, Y: y},
		MouthOpenness: mouth,
		FaceWidth:     (score - mouth*1.2) / 300,
		Index:         index,
	}
}

func TestBestSkipsSilentFaces(t *testing.T) {
	p := DefaultParams()
	silent := FaceCandidate{MouthOpenness: 1, FaceWidth: 0.9, Index: 0}
	quiet := talking(1, 100, 100, 20)

	best, ok := p.Best([]FaceCandidate{silent, quiet})
	if !ok {
		t.Fatal("expected a talking candidate")
	}
	if best.Index != 1 {
		t.Errorf("best.Index = %d, want 1", best.Index)
	}
	if math.Abs(best.Score-20) > 1e-9 {
		t.Errorf("best.Score = %v, want 20", best.Score)
	}

	if _, ok := p.Best([]FaceCandidate{silent}); ok {
		t.Error("a face below the mouth threshold must not win")
	}
}

func TestCandidatesFromFaces(t *testing.T) {
	faces := []Face{{
		Nose:       Landmark{X: 0.5, Y: 0.25},
		UpperLip:   Landmark{Y: 0.50},
		LowerLip:   Landmark{Y: 0.51},
		LeftCheek:  Landmark{X: 0.40},
		RightCheek: Landmark{X: 0.55},
	}}
	got := CandidatesFromFaces(faces, 1920, 1080)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	c := got[0]
	if c.Position != (Point{X: 960, Y: 270}) {
		t.Errorf("Position = %+v", c.Position)
	}
	if math.Abs(c.MouthOpenness-10.8) > 1e-6 {
		t.Errorf("MouthOpenness = %v, want 10.8", c.MouthOpenness)
	}
	if math.Abs(c.FaceWidth-0.15) > 1e-9 {
		t.Errorf("FaceWidth = %v, want 0.15", c.FaceWidth)
	}
}

func TestLockScenario(t *testing.T) {
	ctrl := NewController(1920, 1080, DefaultParams())

	for ctrl.State().FrameCounter < 10 {
		ctrl.Advance()
	}
	if !ctrl.Observe([]FaceCandidate{talking(0, 400, 500, 50), talking(1, 1500, 500, 80)}) {
		t.Fatal("expected first lock at frame 10")
	}
	st := ctrl.State()
	if st.ActiveIndex != 1 || st.LastSwitchFrame != 10 {
		t.Fatalf("state after frame 10 = %+v", st)
	}
	if st.Target != (Point{X: 1500, Y: 500}) {
		t.Fatalf("target = %+v", st.Target)
	}

	for ctrl.State().FrameCounter < 20 {
		ctrl.Advance()
	}
	if ctrl.Observe([]FaceCandidate{talking(0, 300, 400, 200), talking(1, 1500, 500, 60)}) {
		t.Fatal("switch must be refused inside the hysteresis window")
	}
	st = ctrl.State()
	if st.ActiveIndex != 1 {
		t.Errorf("ActiveIndex = %d, want 1", st.ActiveIndex)
	}
	if st.Target != (Point{X: 1500, Y: 500}) {
		t.Errorf("target moved to %+v", st.Target)
	}

	for ctrl.State().FrameCounter < 46 {
		ctrl.Advance()
	}
	if !ctrl.Observe([]FaceCandidate{talking(0, 300, 400, 200)}) {
		t.Fatal("switch must be accepted once the window elapsed")
	}
	if ctrl.State().ActiveIndex != 0 {
		t.Errorf("ActiveIndex = %d, want 0", ctrl.State().ActiveIndex)
	}
}

func TestSameSlotFollowsTarget(t *testing.T) {
	ctrl := NewController(1000, 1000, DefaultParams())
	ctrl.Observe([]FaceCandidate{talking(0, 100, 100, 50)})
	ctrl.Advance()
	ctrl.Observe([]FaceCandidate{talking(0, 120, 110, 50)})
	if got := ctrl.State().Target; got != (Point{X: 120, Y: 110}) {
		t.Errorf("target = %+v, want follow to (120,110)", got)
	}
}

func TestNoCandidateKeepsTarget(t *testing.T) {
	ctrl := NewController(1000, 1000, DefaultParams())
	ctrl.Observe([]FaceCandidate{talking(0, 900, 900, 50)})
	ctrl.Advance()
	ctrl.Observe(nil)
	ctrl.Observe([]FaceCandidate{{MouthOpenness: 0.5, FaceWidth: 1}})
	if got := ctrl.State().Target; got != (Point{X: 900, Y: 900}) {
		t.Errorf("target = %+v, want unchanged (900,900)", got)
	}
}

func TestConvergence(t *testing.T) {
	ctrl := NewController(1920, 1080, DefaultParams())
	ctrl.Observe([]FaceCandidate{talking(0, 1800, 100, 50)})
	target := ctrl.State().Target

	converged := -1
	for i := 0; i < 1000; i++ {
		c := ctrl.Advance()
		if c.Dist(target) < 10 {
			converged = i
			break
		}
	}
	if converged < 0 {
		t.Fatal("center never converged")
	}

	still := ctrl.State().Center
	for i := 0; i < 50; i++ {
		if c := ctrl.Advance(); c != still {
			t.Fatalf("center moved after convergence: %+v -> %+v", still, c)
		}
	}
}

func TestSmoothingStepIsClamped(t *testing.T) {
	ctrl := NewController(2000, 2000, DefaultParams())
	ctrl.Observe([]FaceCandidate{talking(0, 1000, 1100, 50)})
	c := ctrl.Advance()
	// distance 100 -> factor 0.125
	if math.Abs(c.Y-1012.5) > 1e-9 {
		t.Errorf("center.Y = %v, want 1012.5", c.Y)
	}

	ctrl = NewController(2000, 2000, DefaultParams())
	ctrl.Observe([]FaceCandidate{talking(0, 1000, 1020, 50)})
	c = ctrl.Advance()
	// distance 20 -> factor floors at 0.03
	if math.Abs(c.Y-1000.6) > 1e-9 {
		t.Errorf("center.Y = %v, want 1000.6", c.Y)
	}
}

func syntheticSequence(frames int) Sequence {
	seq := Sequence{Width: 1920, Height: 1080, Frames: frames}
	for f := 0; f < frames; f += 2 {
		speaker := (f / 30) % 2
		faces := []Face{
			{Nose: Landmark{X: 0.25, Y: 0.4}, LeftCheek: Landmark{X: 0.2}, RightCheek: Landmark{X: 0.3}},
			{Nose: Landmark{X: 0.75, Y: 0.45}, LeftCheek: Landmark{X: 0.7}, RightCheek: Landmark{X: 0.8}},
		}
		faces[speaker].UpperLip = Landmark{Y: 0.50}
		faces[speaker].LowerLip = Landmark{Y: 0.52}
		det := Detection{Frame: f, Faces: faces}
		if f%50 == 0 {
			det = Detection{Frame: f, Err: "inference timeout"}
		}
		seq.Detections = append(seq.Detections, det)
	}
	return seq
}

func TestTrackDeterministic(t *testing.T) {
	seq := syntheticSequence(600)
	a, _, err := Track(context.Background(), seq, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := Track(context.Background(), seq, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 600 || len(b) != 600 {
		t.Fatalf("len = %d/%d, want 600", len(a), len(b))
	}
	for i := range a {
		if math.Float64bits(a[i].X) != math.Float64bits(b[i].X) || math.Float64bits(a[i].Y) != math.Float64bits(b[i].Y) {
			t.Fatalf("frame %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestTrackHysteresisWindow(t *testing.T) {
	seq := syntheticSequence(900)
	p := DefaultParams()
	p = p.withDefaults()

	byFrame := map[int]Detection{}
	for _, d := range seq.Detections {
		byFrame[d.Frame] = d
	}
	ctrl := NewController(seq.Width, seq.Height, p)
	var switches []int
	for i := 0; i < seq.Frames; i++ {
		if i%p.FrameStride == 0 {
			d := byFrame[i]
			var cands []FaceCandidate
			if d.Err == "" {
				cands = CandidatesFromFaces(d.Faces, seq.Width, seq.Height)
			}
			if ctrl.Observe(cands) {
				switches = append(switches, i)
			}
		}
		ctrl.Advance()
	}
	if len(switches) < 2 {
		t.Fatalf("expected several switches, got %v", switches)
	}
	for i := 1; i < len(switches); i++ {
		if switches[i]-switches[i-1] < p.MinLockFrames {
			t.Errorf("switches at %d and %d are closer than %d frames", switches[i-1], switches[i], p.MinLockFrames)
		}
	}
}

func TestTrackCountsDetectorErrors(t *testing.T) {
	seq := Sequence{
		Width:  100,
		Height: 100,
		Frames: 6,
		Detections: []Detection{
			{Frame: 0, Err: "model crashed"},
			{Frame: 2},
		},
	}
	centers, st, err := Track(context.Background(), seq, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if st.Sampled != 3 || st.DetectorErrors != 1 || st.NoCandidate != 3 {
		t.Errorf("stats = %+v", st)
	}
	for i, c := range centers {
		if c != (Point{X: 50, Y: 50}) {
			t.Errorf("frame %d center = %+v, want frame center", i, c)
		}
	}
}

func TestTrackHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Track(ctx, Sequence{Width: 10, Height: 10, Frames: 10}, DefaultParams()); err == nil {
		t.Fatal("expected context error")
	}
}

package compose

import (
	"path/filepath"
	"testing"

	"clipforge/internal/tracking"
)

func TestCropRect(t *testing.T) {
	opts := DefaultOptions()
	// 1080p: cropH=1028 cropW=578, anchor lifted by 82.24px.
	// 4k: cropH=2057 cropW=1157, anchor lifted by 164.56px.
	tests := []struct {
		name   string
		center tracking.Point
		frame  [2]int
		want   Rect
	}{
		{
			name:   "centered 1080p",
			center: tracking.Point{X: 960, Y: 540},
			frame:  [2]int{1920, 1080},
			want:   Rect{X: 671, Y: 0, W: 578, H: 1028},
		},
		{
			name:   "clamped left",
			center: tracking.Point{X: 10, Y: 540},
			frame:  [2]int{1920, 1080},
			want:   Rect{X: 0, Y: 0, W: 578, H: 1028},
		},
		{
			name:   "clamped right and bottom",
			center: tracking.Point{X: 1915, Y: 1075},
			frame:  [2]int{1920, 1080},
			want:   Rect{X: 1342, Y: 52, W: 578, H: 1028},
		},
		{
			name:   "4k upper third",
			center: tracking.Point{X: 1920, Y: 1200},
			frame:  [2]int{3840, 2160},
			want:   Rect{X: 1341, Y: 6, W: 1157, H: 2057},
		},
		{
			name:   "narrow source width capped",
			center: tracking.Point{X: 50, Y: 500},
			frame:  [2]int{100, 1000},
			want:   Rect{X: 0, Y: 0, W: 100, H: 952},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := tt.frame[0], tt.frame[1]
			got := CropRect(tt.center, w, h, opts.Aspect, opts.MaxZoom, opts.VerticalBias)
			if got != tt.want {
				t.Errorf("CropRect = %+v, want %+v", got, tt.want)
			}
			if got.X < 0 || got.Y < 0 || got.X+got.W > w || got.Y+got.H > h {
				t.Errorf("rect %+v exceeds %dx%d", got, w, h)
			}
		})
	}
}

func TestPlanRoundTripsThroughFile(t *testing.T) {
	centers := []tracking.Point{{X: 960, Y: 540}, {X: 970, Y: 540}, {X: 2000, Y: 540}}
	plan := Plan(centers, 1920, 1080, 30, DefaultOptions())
	if len(plan.Frames) != 3 {
		t.Fatalf("frames = %d, want 3", len(plan.Frames))
	}

	path := filepath.Join(t.TempDir(), "crop_plan.json")
	if err := WritePlan(path, plan); err != nil {
		t.Fatalf("WritePlan: %v", err)
	}
	got, err := ReadPlan(path)
	if err != nil {
		t.Fatalf("ReadPlan: %v", err)
	}
	if got.OutputWidth != 1080 || got.OutputHeight != 1920 || got.FPS != 30 {
		t.Errorf("header = %+v", got)
	}
	for i := range plan.Frames {
		if got.Frames[i] != plan.Frames[i] {
			t.Errorf("frame %d = %+v, want %+v", i, got.Frames[i], plan.Frames[i])
		}
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.part"))
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

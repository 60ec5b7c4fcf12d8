// Package compose turns camera centers into crop rectangles for the
// renderer. It never touches pixel data.
package compose

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"clipforge/internal/tracking"
)

// PlanVersion is bumped whenever the crop plan layout changes.
const PlanVersion = 1

// Rect is a crop rectangle in source pixels.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Options are the framing constants.
type Options struct {
	Aspect       float64
	MaxZoom      float64
	VerticalBias float64
	OutputWidth  int
	OutputHeight int
}

// DefaultOptions frames 9:16 at 1080x1920 with a slight zoom and the anchor
// lifted by 8% of the crop height.
func DefaultOptions() Options {
	return Options{
		Aspect:       9.0 / 16.0,
		MaxZoom:      1.05,
		VerticalBias: 0.08,
		OutputWidth:  1080,
		OutputHeight: 1920,
	}
}

// CropRect returns the crop around center. The crop is frameH/maxZoom tall
// and aspect times that wide, anchored bias*cropH above center and clamped
// to the frame.
func CropRect(center tracking.Point, frameW, frameH int, aspect, maxZoom, bias float64) Rect {
	if maxZoom < 1 {
		maxZoom = 1
	}
	cropH := int(float64(frameH) / maxZoom)
	cropW := int(float64(cropH) * aspect)
	if cropW > frameW {
		cropW = frameW
	}

	anchorY := center.Y - float64(cropH)*bias
	x := clampInt(int(center.X-float64(cropW)/2), 0, frameW-cropW)
	y := clampInt(int(anchorY-float64(cropH)/2), 0, frameH-cropH)

	return Rect{X: x, Y: y, W: cropW, H: cropH}
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CropPlan is the per-frame crop path handed to the renderer.
type CropPlan struct {
	Version      int     `json:"version"`
	SourceWidth  int     `json:"source_width"`
	SourceHeight int     `json:"source_height"`
	OutputWidth  int     `json:"output_width"`
	OutputHeight int     `json:"output_height"`
	FPS          float64 `json:"fps"`
	Frames       []Rect  `json:"frames"`
}

// Plan builds one rectangle per camera center.
func Plan(centers []tracking.Point, frameW, frameH int, fps float64, opts Options) CropPlan {
	plan := CropPlan{
		Version:      PlanVersion,
		SourceWidth:  frameW,
		SourceHeight: frameH,
		OutputWidth:  opts.OutputWidth,
		OutputHeight: opts.OutputHeight,
		FPS:          fps,
		Frames:       make([]Rect, len(centers)),
	}
	for i, c := range centers {
		plan.Frames[i] = CropRect(c, frameW, frameH, opts.Aspect, opts.MaxZoom, opts.VerticalBias)
	}
	return plan
}

// WritePlan writes plan as JSON to path through a temporary file so readers
// never observe a partial plan.
func WritePlan(path string, plan CropPlan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode crop plan: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".cropplan-*.part")
	if err != nil {
		return fmt.Errorf("create crop plan temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write crop plan: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync crop plan: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close crop plan: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename crop plan: %w", err)
	}
	return nil
}

// ReadPlan loads a plan written by WritePlan.
func ReadPlan(path string) (CropPlan, error) {
	var plan CropPlan
	data, err := os.ReadFile(path)
	if err != nil {
		return plan, err
	}
	if err := json.Unmarshal(data, &plan); err != nil {
		return plan, fmt.Errorf("decode crop plan: %w", err)
	}
	if plan.Version != PlanVersion {
		return plan, fmt.Errorf("crop plan version %d not supported", plan.Version)
	}
	return plan, nil
}

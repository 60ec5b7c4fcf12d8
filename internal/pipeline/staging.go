package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/models"
)

// Layout of a job's staging directory under <root>/jobs/<id>/.
const (
	videoSegmentName = "video_segment.mp4"
	audioSegmentName = "audio_segment.wav"
	proxyName        = "proxy.mp4"
	cropPlanName     = "crop_plan.json"
	captionsName     = "captions.ass"
	finalName        = "final.mp4"
)

// StagingDir returns the per-job working directory.
func StagingDir(root, jobID string) string {
	return filepath.Join(root, "jobs", jobID)
}

func stagingPaths(root, jobID string) models.StagePaths {
	dir := StagingDir(root, jobID)
	return models.StagePaths{StagingDir: dir}
}

func stagingFile(p models.StagePaths, name string) string {
	return filepath.Join(p.StagingDir, name)
}

// Cleanup removes a job's staging artifacts.
type Cleanup struct {
	root string
}

func NewCleanup(root string) *Cleanup {
	return &Cleanup{root: root}
}

// Success removes the whole staging directory.
func (c *Cleanup) Success(jobID string) error {
	return os.RemoveAll(StagingDir(c.root, jobID))
}

// Scratch removes in-progress and throwaway files (*.part, the detection
// proxy) and keeps completed stage artifacts for inspection.
func (c *Cleanup) Scratch(jobID string) error {
	dir := StagingDir(c.root, jobID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var firstErr error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, ".part") || name == proxyName) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

package pipeline

import (
	rendererv1 "clipforge/internal/contracts/renderer/v1"
	"clipforge/internal/models"
)

const (
	renderVideoCodec = "libx264"
	renderCRF        = 20
)

// renderSpec builds the renderer request from the job's stage artifacts.
func renderSpec(job models.Job, s Settings) rendererv1.RenderSpec {
	spec := rendererv1.RenderSpec{
		JobID:        job.ID,
		VideoSegment: job.Paths.VideoSegment,
		AudioSegment: job.Paths.AudioSegment,
		CropPlan:     job.Paths.CropPlan,
		Captions:     job.Paths.Captions,
		AudioFilter:  s.AudioFilter,
		VideoCodec:   renderVideoCodec,
		CRF:          renderCRF,
	}
	spec.Output.Path = job.Paths.Final
	spec.Output.Width = s.Compose.OutputWidth
	spec.Output.Height = s.Compose.OutputHeight
	return spec
}

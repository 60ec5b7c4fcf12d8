package v1

// DefaultAudioFilter is the loudness and voice EQ chain applied to the
// audio segment before muxing.
const DefaultAudioFilter = "highpass=f=80,lowpass=f=12000," +
	"compand=0.3|0.8:1|1:-90/-60|-60/-40|-40/-30|-20/-10:6:0:-90:0.2," +
	"equalizer=f=100:t=h:w=200:g=3,equalizer=f=3500:t=h:w=300:g=2," +
	"loudnorm=I=-16:TP=-1.5:LRA=11"

// RenderSpec is the request body of POST /render/v1. All paths are on the
// storage volume shared with the renderer.
//   - video_segment/audio_segment: the cut, sharing one time origin
//   - crop_plan: per-frame crop rectangles (compose.CropPlan JSON)
//   - captions: ASS document burned in after cropping; empty for none
//   - output: where the renderer writes the final mp4
type RenderSpec struct {
	JobID        string `json:"job_id"`
	VideoSegment string `json:"video_segment"`
	AudioSegment string `json:"audio_segment"`
	CropPlan     string `json:"crop_plan"`
	Captions     string `json:"captions,omitempty"`
	Output       struct {
		Path   string `json:"path"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"output"`
	AudioFilter string `json:"audio_filter,omitempty"`
	VideoCodec  string `json:"video_codec,omitempty"`
	CRF         int    `json:"crf,omitempty"`
}

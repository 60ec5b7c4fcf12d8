package tracking

import "context"

// Detection is the detector output for one sampled frame. Err is set when
// the detector failed on that frame.
type Detection struct {
	Frame int    `json:"frame"`
	Faces []Face `json:"faces"`
	Err   string `json:"error,omitempty"`
}

// Sequence describes the video being tracked and its sampled detections.
type Sequence struct {
	Width      int
	Height     int
	Frames     int
	Detections []Detection
}

// Stats summarizes a tracking run.
type Stats struct {
	Sampled        int
	NoCandidate    int
	DetectorErrors int
	Switches       int
}

// Track runs the controller over every frame of seq and returns one camera
// center per frame. Frames sampled at p.FrameStride are observed; a frame
// without a detection or with a detector error counts as having no
// candidate.
func Track(ctx context.Context, seq Sequence, p Params) ([]Point, Stats, error) {
	p = p.withDefaults()
	byFrame := make(map[int]Detection, len(seq.Detections))
	for _, d := range seq.Detections {
		byFrame[d.Frame] = d
	}

	ctrl := NewController(seq.Width, seq.Height, p)
	centers := make([]Point, seq.Frames)
	var st Stats

	for i := 0; i < seq.Frames; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, st, err
			}
		}
		if i%p.FrameStride == 0 {
			st.Sampled++
			det, found := byFrame[i]
			var cands []FaceCandidate
			switch {
			case !found:
				st.NoCandidate++
			case det.Err != "":
				st.DetectorErrors++
				st.NoCandidate++
			default:
				cands = CandidatesFromFaces(det.Faces, seq.Width, seq.Height)
				if _, ok := p.Best(cands); !ok {
					st.NoCandidate++
				}
			}
			if ctrl.Observe(cands) {
				st.Switches++
			}
		}
		centers[i] = ctrl.Advance()
	}
	return centers, st, nil
}

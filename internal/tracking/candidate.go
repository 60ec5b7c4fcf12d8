package tracking

import "math"

// Point is a position in full-resolution pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Landmark is a detector point normalized to [0,1] of the frame.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Face holds the five landmarks the controller needs from one detection.
type Face struct {
	Nose       Landmark `json:"nose"`
	UpperLip   Landmark `json:"upper_lip"`
	LowerLip   Landmark `json:"lower_lip"`
	LeftCheek  Landmark `json:"left_cheek"`
	RightCheek Landmark `json:"right_cheek"`
}

// FaceCandidate is one detection on one frame. Index is the slot in that
// frame's detection list, not a persistent identity.
type FaceCandidate struct {
	Position      Point
	MouthOpenness float64
	FaceWidth     float64
	Score         float64
	Index         int
}

// CandidatesFromFaces converts normalized landmarks into candidates in the
// full-resolution frame. Normalized coordinates make the proxy scale drop out.
func CandidatesFromFaces(faces []Face, frameW, frameH int) []FaceCandidate {
	if len(faces) == 0 {
		return nil
	}
	w, h := float64(frameW), float64(frameH)
	out := make([]FaceCandidate, 0, len(faces))
	for i, f := range faces {
		out = append(out, FaceCandidate{
			Position:      Point{X: f.Nose.X * w, Y: f.Nose.Y * h},
			MouthOpenness: math.Abs(f.UpperLip.Y-f.LowerLip.Y) * h,
			FaceWidth:     math.Abs(f.LeftCheek.X - f.RightCheek.X),
			Index:         i,
		})
	}
	return out
}

// Score is mouthOpenness*MouthWeight + faceWidth*WidthWeight.
func (p Params) Score(c FaceCandidate) float64 {
	return c.MouthOpenness*p.MouthWeight + c.FaceWidth*p.WidthWeight
}

// Best scores cands and returns the highest scoring talking face. The first
// maximum wins ties. ok is false when no face clears the mouth threshold.
func (p Params) Best(cands []FaceCandidate) (best FaceCandidate, ok bool) {
	for _, c := range cands {
		if c.MouthOpenness < p.MouthOpenThreshold {
			continue
		}
		c.Score = p.Score(c)
		if !ok || c.Score > best.Score {
			best, ok = c, true
		}
	}
	return best, ok
}

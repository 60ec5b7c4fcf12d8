package tracking

// NoLock is the ActiveIndex of a controller that has not locked yet.
const NoLock = -1

// CameraState is the controller's full state after the last frame.
type CameraState struct {
	Center          Point
	Target          Point
	ActiveIndex     int
	LastSwitchFrame int
	FrameCounter    int
}

// Controller owns the camera state of one job. It is not safe for
// concurrent use.
type Controller struct {
	p     Params
	state CameraState
}

// NewController starts centered on a frameW x frameH frame with no lock.
func NewController(frameW, frameH int, p Params) *Controller {
	mid := Point{X: float64(frameW) / 2, Y: float64(frameH) / 2}
	return &Controller{
		p: p.withDefaults(),
		state: CameraState{
			Center:      mid,
			Target:      mid,
			ActiveIndex: NoLock,
		},
	}
}

// State returns a copy of the current state.
func (c *Controller) State() CameraState { return c.state }

// Observe feeds the candidates detected on the current frame and reports
// whether the lock switched. The first lock is taken immediately; moving to
// a different slot requires MinLockFrames since the last switch. With no
// talking face the target is left where it was.
func (c *Controller) Observe(cands []FaceCandidate) bool {
	best, ok := c.p.Best(cands)
	if !ok {
		return false
	}

	s := &c.state
	switch {
	case s.ActiveIndex == NoLock:
	case best.Index == s.ActiveIndex:
		s.Target = best.Position
		return false
	case s.FrameCounter-s.LastSwitchFrame < c.p.MinLockFrames:
		return false
	}

	s.ActiveIndex = best.Index
	s.LastSwitchFrame = s.FrameCounter
	s.Target = best.Position
	return true
}

// Advance moves the center one frame toward the target and returns it.
// Within ConvergeDistance the center stays put.
func (c *Controller) Advance() Point {
	s := &c.state
	d := s.Center.Dist(s.Target)
	if d >= c.p.ConvergeDistance {
		f := clamp(d/c.p.SmoothDivisor, c.p.SmoothMin, c.p.SmoothMax)
		s.Center.X += (s.Target.X - s.Center.X) * f
		s.Center.Y += (s.Target.Y - s.Center.Y) * f
	}
	s.FrameCounter++
	return s.Center
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

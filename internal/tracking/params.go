// Package tracking decides, frame by frame, where the virtual 9:16 camera
// points. It is deterministic: the same candidate sequence always yields the
// same trajectory, so it is tested without a real detector.
package tracking

// Params are the controller constants. The defaults were tuned by eye on
// podcast footage and are not derived.
type Params struct {
	// FrameStride samples every Nth frame for detection.
	FrameStride int
	// ProxyHeight is the height of the downscaled detection copy.
	ProxyHeight int
	// MouthOpenThreshold is the minimum openness, in pixels, of a talking face.
	MouthOpenThreshold float64
	// MinLockFrames is the hysteresis window between two switches.
	MinLockFrames int
	MouthWeight   float64
	WidthWeight   float64

	ConvergeDistance float64
	SmoothDivisor    float64
	SmoothMin        float64
	SmoothMax        float64
}

// DefaultParams returns the shipped constants.
func DefaultParams() Params {
	return Params{
		FrameStride:        2,
		ProxyHeight:        360,
		MouthOpenThreshold: 4.0,
		MinLockFrames:      36,
		MouthWeight:        1.2,
		WidthWeight:        300,
		ConvergeDistance:   10,
		SmoothDivisor:      800,
		SmoothMin:          0.03,
		SmoothMax:          0.15,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.FrameStride < 1 {
		p.FrameStride = d.FrameStride
	}
	if p.ProxyHeight < 1 {
		p.ProxyHeight = d.ProxyHeight
	}
	if p.SmoothDivisor <= 0 {
		p.SmoothDivisor = d.SmoothDivisor
	}
	if p.SmoothMax <= 0 {
		p.SmoothMin, p.SmoothMax = d.SmoothMin, d.SmoothMax
	}
	if p.ConvergeDistance <= 0 {
		p.ConvergeDistance = d.ConvergeDistance
	}
	return p
}

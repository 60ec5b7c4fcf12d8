package media

import (
	"math"

	"clipforge/internal/models"
	"clipforge/internal/pkg/errors"
)

// DefaultGuard keeps cuts clear of trailing frames that are often corrupt.
const DefaultGuard = 0.2

// ClampWindow clamps [start, end) against a measured source duration so that
// end <= duration-guard. It fails with WINDOW_ERROR when start is negative,
// start is at or past the end of the source, or nothing is left to cut.
func ClampWindow(start, end, duration, guard float64) (models.TimeWindow, error) {
	switch {
	case math.IsNaN(start) || math.IsNaN(end) || math.IsNaN(duration):
		return models.TimeWindow{}, errors.Window("window bounds must be numbers")
	case duration <= 0:
		return models.TimeWindow{}, errors.Window("source duration %.3fs is not positive", duration)
	case start < 0:
		return models.TimeWindow{}, errors.Window("start %.3fs is negative", start)
	case start >= duration:
		return models.TimeWindow{}, errors.Window("start %.3fs is beyond source duration %.3fs", start, duration)
	}

	clampedEnd := math.Min(end, duration-guard)
	if dur := clampedEnd - start; dur <= 0 {
		return models.TimeWindow{}, errors.Window("invalid duration %.3fs for window %.3f-%.3f", dur, start, end)
	}
	return models.TimeWindow{Start: start, End: clampedEnd}, nil
}

package valueobjects

import "math"

// Canvas zoom bounds. Scale is clamped, never rejected: the UI keeps
// sending pinch deltas past the limit and expects the engine to pin.
const (
	MinCanvasScale = 0.5
	MaxCanvasScale = 2.0
)

// CanvasTransform is the workspace pan/zoom state.
type CanvasTransform struct {
	Offset Position `json:"offset"`
	Scale  float64  `json:"scale"`
}

// DefaultCanvasTransform returns the identity transform.
func DefaultCanvasTransform() CanvasTransform {
	return CanvasTransform{Scale: 1.0}
}

// NewCanvasTransform builds a transform with the scale clamped into
// [MinCanvasScale, MaxCanvasScale]. Non-finite input collapses to the
// identity transform.
func NewCanvasTransform(offset Position, scale float64) CanvasTransform {
	if math.IsNaN(scale) || math.IsInf(scale, 0) {
		return CanvasTransform{Offset: offset, Scale: 1.0}
	}
	if scale < MinCanvasScale {
		scale = MinCanvasScale
	}
	if scale > MaxCanvasScale {
		scale = MaxCanvasScale
	}
	return CanvasTransform{Offset: offset, Scale: scale}
}

// Equals checks if two transforms are equal
func (t CanvasTransform) Equals(other CanvasTransform) bool {
	return t.Offset.Equals(other.Offset) && t.Scale == other.Scale
}

package valueobjects

import (
	"math"

	pkgerrors "atelier/pkg/errors"
)

// Position is a 2D canvas coordinate. Presentation state, but it is
// persisted with the node so the canvas layout survives restarts.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPosition creates a position, rejecting NaN and infinities.
func NewPosition(x, y float64) (Position, error) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return Position{}, pkgerrors.NewValidationError("position must be finite")
	}
	return Position{X: x, Y: y}, nil
}

// Equals checks if two positions are equal
func (p Position) Equals(other Position) bool {
	return p.X == other.X && p.Y == other.Y
}

// Translate returns the position shifted by a delta.
func (p Position) Translate(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

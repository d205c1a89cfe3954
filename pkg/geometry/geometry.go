// Package geometry provides the point and quadrilateral types used by the
// rectification pipeline, plus the output dimension estimate derived from a
// quadrilateral's edge lengths.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrCornerCount is returned when a quadrilateral is built from anything
// other than exactly four points.
var ErrCornerCount = errors.New("geometry: expected exactly 4 corner points")

// Point is a 2D coordinate in source-image pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Quad is an ordered quadrilateral with named corners. The naming fixes the
// corner convention at the type level; callers supply corners in
// top-left, top-right, bottom-right, bottom-left order and that ordering is
// trusted, not re-derived.
type Quad struct {
	TopLeft     Point
	TopRight    Point
	BottomRight Point
	BottomLeft  Point
}

// QuadFromPoints builds a Quad from a caller-ordered point slice
// (TL, TR, BR, BL). Any count other than 4 fails with ErrCornerCount.
// No collinearity or area check is performed here; degenerate quads are
// caught later by the solver and the warper.
func QuadFromPoints(pts []Point) (Quad, error) {
	if len(pts) != 4 {
		return Quad{}, fmt.Errorf("%w, got %d", ErrCornerCount, len(pts))
	}
	return Quad{
		TopLeft:     pts[0],
		TopRight:    pts[1],
		BottomRight: pts[2],
		BottomLeft:  pts[3],
	}, nil
}

// Corners returns the four corners in TL, TR, BR, BL order.
func (q Quad) Corners() [4]Point {
	return [4]Point{q.TopLeft, q.TopRight, q.BottomRight, q.BottomLeft}
}

// EdgeLengths returns the four edge lengths of the quadrilateral.
func (q Quad) EdgeLengths() (top, bottom, left, right float64) {
	top = q.TopLeft.Distance(q.TopRight)
	bottom = q.BottomLeft.Distance(q.BottomRight)
	left = q.TopLeft.Distance(q.BottomLeft)
	right = q.TopRight.Distance(q.BottomRight)
	return top, bottom, left, right
}

// Dimensions is the derived size of the rectified output rectangle.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// EstimateDimensions derives the output rectangle size from the
// quadrilateral's edge lengths. Each dimension takes the larger of the two
// opposing edges: the farther edge of a photographed card is foreshortened,
// and scaling down to it would throw away resolution the nearer edge still
// carries. A degenerate quad yields a zero dimension, which the warper
// rejects before allocating anything.
func EstimateDimensions(q Quad) Dimensions {
	top, bottom, left, right := q.EdgeLengths()
	return Dimensions{
		Width:  int(math.Round(math.Max(top, bottom))),
		Height: int(math.Round(math.Max(left, right))),
	}
}

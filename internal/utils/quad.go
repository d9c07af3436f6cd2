package utils

import (
	"fmt"
	"math"
	"sort"
)

// DegenerateGeometryError indicates that a set of corner points cannot
// describe a usable quadrilateral (coincident points, collinear layout,
// or a shape with effectively zero area).
type DegenerateGeometryError struct {
	Reason string
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("degenerate geometry: %s", e.Reason)
}

// Quad is an ordered quadrilateral. Index 0 is the top-left corner,
// followed clockwise by top-right, bottom-right, and bottom-left.
type Quad [4]Point

// TopLeft returns the top-left corner.
func (q Quad) TopLeft() Point { return q[0] }

// TopRight returns the top-right corner.
func (q Quad) TopRight() Point { return q[1] }

// BottomRight returns the bottom-right corner.
func (q Quad) BottomRight() Point { return q[2] }

// BottomLeft returns the bottom-left corner.
func (q Quad) BottomLeft() Point { return q[3] }

// Points returns the corners as a slice in clockwise order from top-left.
func (q Quad) Points() []Point { return []Point{q[0], q[1], q[2], q[3]} }

// FullImageQuad returns the quadrilateral covering an entire w x h image.
func FullImageQuad(w, h int) Quad {
	return Quad{
		{X: 0, Y: 0},
		{X: float64(w - 1), Y: 0},
		{X: float64(w - 1), Y: float64(h - 1)},
		{X: 0, Y: float64(h - 1)},
	}
}

const coincidentEps = 1e-9

// OrderCorners assigns four arbitrary points to top-left, top-right,
// bottom-right and bottom-left slots. Points are sorted by angle around
// their centroid (clockwise in image coordinates, y pointing down) and the
// cycle starts at the corner minimizing x+y. The result depends only on
// the point coordinates, never on their input order. Coincident or
// collinear inputs are rejected.
func OrderCorners(pts []Point) (Quad, error) {
	if len(pts) != 4 {
		return Quad{}, &DegenerateGeometryError{Reason: fmt.Sprintf("expected 4 points, got %d", len(pts))}
	}
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			if Dist(pts[i], pts[j]) < coincidentEps {
				return Quad{}, &DegenerateGeometryError{Reason: "coincident corner points"}
			}
		}
	}

	cx, cy := 0.0, 0.0
	for _, p := range pts {
		cx += p.X
		cy += p.Y
	}
	cx /= 4
	cy /= 4

	p := append([]Point(nil), pts...)
	sort.Slice(p, func(i, j int) bool {
		ai := math.Atan2(p[i].Y-cy, p[i].X-cx)
		aj := math.Atan2(p[j].Y-cy, p[j].X-cx)
		if ai != aj {
			return ai < aj
		}
		return Dist(p[i], Point{X: cx, Y: cy}) < Dist(p[j], Point{X: cx, Y: cy})
	})

	// Rotate the cycle so the top-left corner comes first. Ties in x+y
	// resolve toward the smaller y, then the smaller x.
	start := 0
	for i := 1; i < 4; i++ {
		si, ss := p[i].X+p[i].Y, p[start].X+p[start].Y
		switch {
		case si < ss:
			start = i
		case si == ss && (p[i].Y < p[start].Y || (p[i].Y == p[start].Y && p[i].X < p[start].X)):
			start = i
		}
	}

	var q Quad
	for i := range 4 {
		q[i] = p[(start+i)%4]
	}
	if q.Area() < 1e-6 {
		return Quad{}, &DegenerateGeometryError{Reason: "collinear corner points"}
	}
	return q, nil
}

// ClampToBounds clamps every corner into [0, w-1] x [0, h-1].
func (q Quad) ClampToBounds(w, h int) Quad {
	maxX := float64(w - 1)
	maxY := float64(h - 1)
	if maxX < 0 {
		maxX = 0
	}
	if maxY < 0 {
		maxY = 0
	}
	var out Quad
	for i, p := range q {
		out[i] = Point{X: clampFloat(p.X, 0, maxX), Y: clampFloat(p.Y, 0, maxY)}
	}
	return out
}

// ScaleQuad maps corner coordinates from a fromW x fromH space into a
// toW x toH space. Scaling to the original dimensions recovers the input
// up to floating point rounding.
func ScaleQuad(q Quad, fromW, fromH, toW, toH float64) Quad {
	sx := toW / fromW
	sy := toH / fromH
	var out Quad
	for i, p := range q {
		out[i] = Point{X: p.X * sx, Y: p.Y * sy}
	}
	return out
}

// Area returns the absolute shoelace area of the quadrilateral.
func (q Quad) Area() float64 {
	sum := 0.0
	for i := range 4 {
		a := q[i]
		b := q[(i+1)%4]
		sum += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(sum) / 2
}

// EdgeLengths returns the four edge lengths in order top, right, bottom, left.
func (q Quad) EdgeLengths() [4]float64 {
	return [4]float64{
		Dist(q[0], q[1]),
		Dist(q[1], q[2]),
		Dist(q[2], q[3]),
		Dist(q[3], q[0]),
	}
}

// IsDegenerate reports whether the quad has coincident adjacent corners or
// near-zero area.
func (q Quad) IsDegenerate() bool {
	for i := range 4 {
		if Dist(q[i], q[(i+1)%4]) < coincidentEps {
			return true
		}
	}
	return q.Area() < 1e-6
}

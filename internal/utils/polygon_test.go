package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolygonAreaAndPerimeter(t *testing.T) {
	square := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	assert.InDelta(t, 100.0, PolygonArea(square), 1e-9)
	assert.InDelta(t, 40.0, PolygonPerimeter(square), 1e-9)

	assert.Zero(t, PolygonArea([]Point{{0, 0}, {1, 1}}))
}

func TestSimplifyPolygonDropsNearCollinearPoints(t *testing.T) {
	// rectangle outline with midpoints that barely deviate
	pts := []Point{
		{0, 0}, {5, 0.1}, {10, 0},
		{10.05, 5}, {10, 10},
		{5, 9.9}, {0, 10},
		{0.02, 5},
	}
	out := SimplifyPolygon(pts, 0.5)
	assert.LessOrEqual(t, len(out), 5)
	assert.GreaterOrEqual(t, len(out), 3)
}

func TestSimplifyPolygonDropsStartVertex(t *testing.T) {
	// the near-collinear midpoint sits at index 0 of the ring
	pts := []Point{
		{5, 0.1},
		{10, 0}, {10, 10}, {0, 10}, {0, 0},
	}
	out := SimplifyPolygon(pts, 0.5)
	require.Len(t, out, 4)
	assert.NotContains(t, out, Point{5, 0.1})
}

func TestSimplifyPolygonSmallInputUnchanged(t *testing.T) {
	tri := []Point{{0, 0}, {4, 0}, {2, 3}}
	out := SimplifyPolygon(tri, 1.0)
	assert.Equal(t, tri, out)
}

func TestConvexHullSquareWithInteriorPoint(t *testing.T) {
	pts := []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {5, 5}}
	hull := ConvexHull(pts)
	require.Len(t, hull, 4)
	assert.NotContains(t, hull, Point{5, 5})
}

func TestMinimumAreaRectangleRotatedSquare(t *testing.T) {
	// unit diamond: min-area rect is the diamond itself, area 2
	pts := []Point{{1, 0}, {2, 1}, {1, 2}, {0, 1}}
	rect := MinimumAreaRectangle(pts)
	require.Len(t, rect, 4)
	assert.InDelta(t, 2.0, PolygonArea(rect), 1e-6)
}

func TestMinimumAreaRectangleDegenerate(t *testing.T) {
	assert.Nil(t, MinimumAreaRectangle(nil))
	one := MinimumAreaRectangle([]Point{{3, 3}})
	require.Len(t, one, 4)
	two := MinimumAreaRectangle([]Point{{0, 0}, {4, 0}})
	require.Len(t, two, 4)
}

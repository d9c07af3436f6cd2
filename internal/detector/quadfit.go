package detector

import (
	"sort"

	"github.com/squaredoc/rectify/internal/utils"
)

// quadCandidate is a page boundary hypothesis in downscaled coordinates.
type quadCandidate struct {
	corners []utils.Point
	area    float64
}

// fitQuad scans connected components largest-first and returns the first
// contour whose simplified polygon has exactly four corners and covers at
// least minArea pixels. The scan order is deterministic: components are
// ranked by bounding-box area with the label index breaking ties.
func fitQuad(comps []compStats, labels []int, w, h int, cfg Config) (quadCandidate, bool) {
	order := make([]int, len(comps))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return bboxArea(comps[order[a]]) > bboxArea(comps[order[b]])
	})

	minArea := cfg.MinAreaRatio * float64(w) * float64(h)
	for _, i := range order {
		c := comps[i]
		if c.count == 0 {
			continue
		}
		contour := traceContourMoore(labels, w, h, i+1, c)
		if len(contour) < 4 {
			continue
		}
		perimeter := utils.PolygonPerimeter(contour)
		epsilon := cfg.ApproxEpsilonRatio * perimeter
		if epsilon < 0.5 {
			epsilon = 0.5
		}
		poly := utils.SimplifyPolygon(contour, epsilon)
		poly = mergeClosePoints(poly, epsilon)
		if len(poly) != 4 {
			continue
		}
		area := utils.PolygonArea(poly)
		if area < minArea {
			continue
		}
		if cfg.SnapToMinRect {
			if mar := utils.MinimumAreaRectangle(poly); len(mar) == 4 {
				poly = mar
				area = utils.PolygonArea(poly)
			}
		}
		return quadCandidate{corners: poly, area: area}, true
	}
	return quadCandidate{}, false
}

func bboxArea(c compStats) float64 {
	return float64(c.maxX-c.minX+1) * float64(c.maxY-c.minY+1)
}

// mergeClosePoints collapses consecutive points closer than eps, including
// the wrap-around pair. Contour tracing keeps both endpoints of the closed
// boundary, which otherwise leaves a spurious fifth corner next to the start.
func mergeClosePoints(pts []utils.Point, eps float64) []utils.Point {
	if len(pts) < 2 {
		return pts
	}
	out := make([]utils.Point, 0, len(pts))
	out = append(out, pts[0])
	for _, p := range pts[1:] {
		if utils.Dist(out[len(out)-1], p) >= eps {
			out = append(out, p)
		}
	}
	for len(out) >= 2 && utils.Dist(out[0], out[len(out)-1]) < eps {
		out = out[:len(out)-1]
	}
	return out
}

// Package annotate maps tissue contours from rendering pixel coordinates to
// full-resolution slide annotations.
//
// The platform's annotation space has its origin at the bottom-left of the
// slide, so besides scaling by the download ratio every polygon is flipped
// vertically.
package annotate

import (
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"
)

// Candidate is one detected region in slide coordinates.
type Candidate struct {
	// Polygon is the region boundary in full-resolution slide coordinates.
	Polygon orb.Polygon `json:"-"`

	// Area is the absolute polygon area in square slide pixels.
	Area float64 `json:"area"`
}

// WKT returns the candidate's polygon as a WKT string for upload.
func (c *Candidate) WKT() string {
	return wkt.MarshalString(c.Polygon)
}

// PolygonFromContour converts a pixel contour to a closed polygon.
// Contours with fewer than three points cannot bound an area and are
// rejected.
func PolygonFromContour(contour []image.Point) (orb.Polygon, bool) {
	if len(contour) < 3 {
		return nil, false
	}

	ring := make(orb.Ring, 0, len(contour)+1)
	for _, p := range contour {
		ring = append(ring, orb.Point{float64(p.X), float64(p.Y)})
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return orb.Polygon{ring}, true
}

// Upscale maps a polygon from rendering coordinates into the slide's
// full-resolution, bottom-left-origin coordinate system: the affine
// transform [zoom, 0, 0, -zoom, 0, slideHeight].
func Upscale(poly orb.Polygon, zoom float64, slideHeight float64) orb.Polygon {
	out := make(orb.Polygon, len(poly))
	for i, ring := range poly {
		mapped := make(orb.Ring, len(ring))
		for j, p := range ring {
			mapped[j] = orb.Point{zoom * p[0], slideHeight - zoom*p[1]}
		}
		out[i] = mapped
	}
	return out
}

// Area returns the absolute area of a polygon regardless of ring
// orientation (the vertical flip in Upscale reverses it).
func Area(poly orb.Polygon) float64 {
	return math.Abs(planar.Area(poly))
}

// FromContours converts rendering contours into filtered slide-space
// candidates. zoom is slideWidth / renderingWidth; regions whose area is not
// greater than minAreaPercent percent of the full slide area are dropped,
// as are degenerate contours.
func FromContours(contours [][]image.Point, zoom float64, slideWidth, slideHeight int, minAreaPercent float64) []Candidate {
	minArea := minAreaPercent / 100 * float64(slideWidth) * float64(slideHeight)

	candidates := make([]Candidate, 0, len(contours))
	for _, contour := range contours {
		poly, ok := PolygonFromContour(contour)
		if !ok {
			continue
		}
		upscaled := Upscale(poly, zoom, float64(slideHeight))
		area := Area(upscaled)
		if area <= minArea {
			continue
		}
		candidates = append(candidates, Candidate{Polygon: upscaled, Area: area})
	}
	return candidates
}

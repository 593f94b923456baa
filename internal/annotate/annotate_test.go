package annotate

import (
	"image"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
)

func square(x, y, size int) []image.Point {
	return []image.Point{
		{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size},
	}
}

func TestPolygonFromContour(t *testing.T) {
	poly, ok := PolygonFromContour(square(0, 0, 10))
	if !ok {
		t.Fatal("valid contour rejected")
	}
	ring := poly[0]
	if ring[0] != ring[len(ring)-1] {
		t.Error("ring not closed")
	}
	if len(ring) != 5 {
		t.Errorf("ring length: got %d, want 5", len(ring))
	}
}

func TestPolygonFromContour_Degenerate(t *testing.T) {
	if _, ok := PolygonFromContour([]image.Point{{0, 0}, {5, 5}}); ok {
		t.Error("two-point contour accepted")
	}
	if _, ok := PolygonFromContour(nil); ok {
		t.Error("empty contour accepted")
	}
}

func TestUpscale(t *testing.T) {
	poly, _ := PolygonFromContour(square(10, 20, 5))

	// zoom 4, slide height 1000: (10, 20) -> (40, 1000-80).
	up := Upscale(poly, 4, 1000)
	got := up[0][0]
	want := orb.Point{40, 920}
	if got != want {
		t.Errorf("first vertex: got %v, want %v", got, want)
	}

	// X scales up, Y flips: the lowest rendering row maps to the highest
	// slide coordinate.
	if up[0][2][1] >= up[0][0][1] {
		t.Errorf("vertical flip lost: y %v should be below %v", up[0][2][1], up[0][0][1])
	}
}

func TestArea(t *testing.T) {
	poly, _ := PolygonFromContour(square(0, 0, 10))
	if a := Area(poly); math.Abs(a-100) > 1e-9 {
		t.Errorf("area: got %v, want 100", a)
	}

	// The flip reverses ring orientation; area must stay positive.
	flipped := Upscale(poly, 1, 50)
	if a := Area(flipped); math.Abs(a-100) > 1e-9 {
		t.Errorf("area after flip: got %v, want 100", a)
	}
}

func TestWKT(t *testing.T) {
	poly, _ := PolygonFromContour(square(0, 0, 2))
	c := Candidate{Polygon: poly}
	s := c.WKT()
	if !strings.HasPrefix(s, "POLYGON") {
		t.Errorf("WKT: got %q", s)
	}
	if !strings.Contains(s, "0 0") || !strings.Contains(s, "2 2") {
		t.Errorf("WKT missing vertices: %q", s)
	}
}

func TestFromContours(t *testing.T) {
	contours := [][]image.Point{
		square(0, 0, 50),      // 2500 px² rendered, 40000 upscaled
		square(60, 60, 2),     // tiny, filtered by area
		{{0, 0}, {1, 1}},      // degenerate
	}

	// zoom 4: slide is 400x400, min area 10% = 16000 px².
	candidates := FromContours(contours, 4, 400, 400, 10)
	if len(candidates) != 1 {
		t.Fatalf("candidates: got %d, want 1", len(candidates))
	}
	if math.Abs(candidates[0].Area-40000) > 1e-6 {
		t.Errorf("area: got %v, want 40000", candidates[0].Area)
	}
}

func TestFromContours_ZeroMinArea(t *testing.T) {
	// Even with no percentage filter, zero-area contours must not survive.
	contours := [][]image.Point{
		{{0, 0}, {5, 0}, {10, 0}}, // collinear
		square(0, 0, 3),
	}
	candidates := FromContours(contours, 1, 100, 100, 0)
	if len(candidates) != 1 {
		t.Errorf("candidates: got %d, want 1", len(candidates))
	}
}

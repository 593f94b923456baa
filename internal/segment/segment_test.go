package segment

import (
	"image"
	"testing"

	"gocv.io/x/gocv"
)

// makeGray builds a single-channel matrix filled with a constant value.
func makeGray(t *testing.T, rows, cols int, value uint8) gocv.Mat {
	t.Helper()
	mat := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC1)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			mat.SetUCharAt(y, x, value)
		}
	}
	return mat
}

func fillRect(mat gocv.Mat, r image.Rectangle, value uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			mat.SetUCharAt(y, x, value)
		}
	}
}

func TestOtsu_Bimodal(t *testing.T) {
	gray := makeGray(t, 100, 100, 200)
	defer gray.Close()
	fillRect(gray, image.Rect(0, 0, 100, 50), 50)

	value, err := Otsu(gray)
	if err != nil {
		t.Fatalf("Otsu failed: %v", err)
	}
	if value <= 50 || value >= 200 {
		t.Errorf("threshold %v outside the two modes (50, 200)", value)
	}
}

func TestOtsu_EmptyImage(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	if _, err := Otsu(empty); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestOtsu_MultiChannel(t *testing.T) {
	bgr := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
	defer bgr.Close()
	if _, err := Otsu(bgr); err == nil {
		t.Error("expected error for multi-channel image")
	}
}

func TestThreshold_InverseBinary(t *testing.T) {
	gray := makeGray(t, 10, 10, 200)
	defer gray.Close()
	fillRect(gray, image.Rect(0, 0, 10, 5), 50)

	mask := Threshold(gray, 100)
	defer mask.Close()

	// Dark rows become foreground, bright rows background.
	if got := mask.GetUCharAt(2, 5); got != 255 {
		t.Errorf("dark pixel: got %d, want 255", got)
	}
	if got := mask.GetUCharAt(7, 5); got != 0 {
		t.Errorf("bright pixel: got %d, want 0", got)
	}
	if got := gocv.CountNonZero(mask); got != 50 {
		t.Errorf("foreground pixel count: got %d, want 50", got)
	}
}

func TestEllipseKernel(t *testing.T) {
	kernel, err := EllipseKernel(5, 5)
	if err != nil {
		t.Fatalf("EllipseKernel failed: %v", err)
	}
	defer kernel.Close()

	weight := KernelWeight(kernel)
	if weight <= 0 || weight > 25 {
		t.Errorf("KernelWeight: got %d, want within (0, 25]", weight)
	}

	if _, err := EllipseKernel(0, 5); err == nil {
		t.Error("expected error for zero kernel width")
	}
	if _, err := EllipseKernel(5, -1); err == nil {
		t.Error("expected error for negative kernel height")
	}
}

func TestRemoveSpecks(t *testing.T) {
	mask := makeGray(t, 50, 50, 0)
	defer mask.Close()

	fillRect(mask, image.Rect(10, 10, 20, 20), 255) // 100 px blob
	mask.SetUCharAt(40, 40, 255)                    // 1 px speck

	removed := RemoveSpecks(&mask, 5)
	if removed != 1 {
		t.Errorf("removed: got %d, want 1", removed)
	}
	if got := mask.GetUCharAt(40, 40); got != 0 {
		t.Errorf("speck survived: got %d", got)
	}
	if got := gocv.CountNonZero(mask); got != 100 {
		t.Errorf("blob pixels after filter: got %d, want 100", got)
	}
}

func TestRemoveSpecks_NothingBelowMinimum(t *testing.T) {
	mask := makeGray(t, 20, 20, 0)
	defer mask.Close()
	fillRect(mask, image.Rect(5, 5, 15, 15), 255)

	if removed := RemoveSpecks(&mask, 5); removed != 0 {
		t.Errorf("removed: got %d, want 0", removed)
	}
}

func TestExtractContours(t *testing.T) {
	mask := makeGray(t, 50, 50, 0)
	defer mask.Close()
	fillRect(mask, image.Rect(5, 5, 25, 25), 255)

	contours := ExtractContours(mask, 10)
	if len(contours) != 1 {
		t.Fatalf("contours: got %d, want 1", len(contours))
	}

	// The contour must trace the blob in unpadded coordinates.
	for _, p := range contours[0] {
		if p.X < 5 || p.X > 24 || p.Y < 5 || p.Y > 24 {
			t.Errorf("contour point %v outside blob bounds", p)
		}
	}
}

func TestExtractContours_EdgeTouching(t *testing.T) {
	mask := makeGray(t, 30, 30, 0)
	defer mask.Close()
	fillRect(mask, image.Rect(0, 0, 10, 10), 255)

	contours := ExtractContours(mask, 10)
	if len(contours) != 1 {
		t.Fatalf("contours: got %d, want 1", len(contours))
	}
}

func TestExtractContours_EmptyMask(t *testing.T) {
	mask := makeGray(t, 20, 20, 0)
	defer mask.Close()
	if contours := ExtractContours(mask, 10); len(contours) != 0 {
		t.Errorf("contours of blank mask: got %d, want 0", len(contours))
	}
}

func TestRun(t *testing.T) {
	// Bright background with one dark tissue blob and a lone dark pixel.
	gray := makeGray(t, 100, 100, 220)
	defer gray.Close()
	fillRect(gray, image.Rect(20, 20, 60, 60), 40)
	gray.SetUCharAt(90, 90, 40)

	result, err := Run(gray, Config{
		KernelWidth:      5,
		KernelHeight:     5,
		DilateIterations: 1,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer result.Mask.Close()

	if result.OtsuValue <= 40 || result.OtsuValue >= 220 {
		t.Errorf("OtsuValue %v outside the two modes", result.OtsuValue)
	}
	if result.Threshold != result.OtsuValue {
		t.Errorf("Threshold: got %v, want %v (zero allowance)", result.Threshold, result.OtsuValue)
	}
	if result.SpecksRemoved != 1 {
		t.Errorf("SpecksRemoved: got %d, want 1", result.SpecksRemoved)
	}
	if len(result.Contours) != 1 {
		t.Fatalf("Contours: got %d, want 1", len(result.Contours))
	}
}

func TestRun_Allowance(t *testing.T) {
	gray := makeGray(t, 50, 50, 220)
	defer gray.Close()
	fillRect(gray, image.Rect(10, 10, 30, 30), 40)

	result, err := Run(gray, Config{
		ThresholdAllowance: 15,
		KernelWidth:        3,
		KernelHeight:       3,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	defer result.Mask.Close()

	if result.Threshold != result.OtsuValue+15 {
		t.Errorf("Threshold: got %v, want %v", result.Threshold, result.OtsuValue+15)
	}
}

func TestRun_BadKernel(t *testing.T) {
	gray := makeGray(t, 10, 10, 128)
	defer gray.Close()
	if _, err := Run(gray, Config{KernelWidth: 0, KernelHeight: 3}); err == nil {
		t.Error("expected error for zero kernel width")
	}
}

package segment

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// EllipseKernel builds an elliptical structuring element of the given size.
// The caller owns the returned Mat and must Close it.
func EllipseKernel(width, height int) (gocv.Mat, error) {
	if width <= 0 || height <= 0 {
		return gocv.Mat{}, fmt.Errorf("kernel dimensions must be positive, got %dx%d", width, height)
	}
	return gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(width, height)), nil
}

// KernelWeight returns the number of active elements in a structuring
// element. The speck filter uses it as the minimum surviving region size: a
// region smaller than the kernel would be erased by an opening anyway.
func KernelWeight(kernel gocv.Mat) int {
	return gocv.CountNonZero(kernel)
}

// Smooth regularizes a binary mask: a morphological closing fills pinholes
// inside tissue, then the configured erode/dilate passes adjust the region
// boundary. The default of one dilation grows regions slightly so that
// adjacent fragments merge before contour extraction.
//
// The caller owns the returned Mat and must Close it.
func Smooth(mask, kernel gocv.Mat, erodeIterations, dilateIterations int) gocv.Mat {
	out := gocv.NewMat()
	gocv.MorphologyEx(mask, &out, gocv.MorphClose, kernel)

	for i := 0; i < erodeIterations; i++ {
		gocv.Erode(out, &out, kernel)
	}
	for i := 0; i < dilateIterations; i++ {
		gocv.Dilate(out, &out, kernel)
	}
	return out
}

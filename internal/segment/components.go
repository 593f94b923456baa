package segment

import (
	"gocv.io/x/gocv"
)

// RemoveSpecks erases, in place, every connected component of the mask whose
// pixel count is below minPixels. Components are 8-connected, matching the
// original pipeline. Returns the number of components erased.
func RemoveSpecks(mask *gocv.Mat, minPixels int) int {
	if minPixels <= 0 || mask.Empty() {
		return 0
	}

	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	count := gocv.ConnectedComponentsWithStats(*mask, &labels, &stats, &centroids)

	// Label 0 is the background.
	small := make(map[int32]bool)
	for label := 1; label < count; label++ {
		area := int(stats.GetIntAt(label, int(gocv.CCStatArea)))
		if area < minPixels {
			small[int32(label)] = true
		}
	}
	if len(small) == 0 {
		return 0
	}

	rows, cols := mask.Rows(), mask.Cols()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if small[labels.GetIntAt(y, x)] {
				mask.SetUCharAt(y, x, 0)
			}
		}
	}
	return len(small)
}

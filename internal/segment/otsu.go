package segment

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Otsu computes the Otsu threshold of a single-channel 8-bit image without
// binarizing it. The returned value maximizes the inter-class variance of
// the grayscale histogram.
func Otsu(gray gocv.Mat) (float64, error) {
	if gray.Empty() {
		return 0, fmt.Errorf("cannot compute threshold of an empty image")
	}
	if gray.Channels() != 1 {
		return 0, fmt.Errorf("otsu threshold needs a single-channel image, got %d channels", gray.Channels())
	}

	scratch := gocv.NewMat()
	defer scratch.Close()

	value := gocv.Threshold(gray, &scratch, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	return float64(value), nil
}

// Threshold binarizes gray with an inverse binary threshold: pixels darker
// than value become 255 (tissue absorbs light, so tissue is dark on a bright
// background), the rest become 0. The value is clamped to [0, 255].
//
// The caller owns the returned Mat and must Close it.
func Threshold(gray gocv.Mat, value float64) gocv.Mat {
	if value < 0 {
		value = 0
	}
	if value > 255 {
		value = 255
	}

	mask := gocv.NewMat()
	gocv.Threshold(gray, &mask, float32(value), 255, gocv.ThresholdBinaryInv)
	return mask
}

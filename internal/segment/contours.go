package segment

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// ExtractContours finds the outer boundary of every foreground region in a
// binary mask. The mask is padded with a black border of pad pixels first so
// regions touching the image edge are closed along it; the returned
// coordinates are shifted back into the unpadded frame (and may therefore be
// negative by up to pad along clipped edges).
func ExtractContours(mask gocv.Mat, pad int) [][]image.Point {
	if mask.Empty() {
		return nil
	}

	padded := gocv.NewMat()
	defer padded.Close()
	gocv.CopyMakeBorder(mask, &padded, pad, pad, pad, pad, gocv.BorderConstant, color.RGBA{})

	found := gocv.FindContours(padded, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer found.Close()

	contours := make([][]image.Point, 0, found.Size())
	for i := 0; i < found.Size(); i++ {
		pts := found.At(i).ToPoints()
		shifted := make([]image.Point, len(pts))
		for j, p := range pts {
			shifted[j] = image.Pt(p.X-pad, p.Y-pad)
		}
		contours = append(contours, shifted)
	}
	return contours
}

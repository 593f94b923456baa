// Package slide handles downloaded slide renderings: file metadata needed by
// the segmentation pipeline and decoding into an OpenCV matrix.
package slide

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"

	"gocv.io/x/gocv"
)

// Info contains metadata about a downloaded slide rendering.
type Info struct {
	// Path of the file on disk.
	Path string `json:"path"`

	// Width is the rendering width in pixels. Usually smaller than the
	// slide itself because the server downsizes on download.
	Width int `json:"width"`

	// Height is the rendering height in pixels.
	Height int `json:"height"`

	// BitDepth is the bit depth per channel, 8 or 16.
	BitDepth int `json:"bit_depth"`

	// FileSizeBytes is the size of the file on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// Describe reads the header of a downloaded rendering and returns its
// metadata without decoding the pixel data.
//
// The bit depth is inferred from the decoded color model; renderings with
// 16-bit channels report 16, everything else reports 8. That matches what
// the platform serves for 8- and 16-bit slides.
func Describe(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open slide rendering: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode slide rendering header: %w", err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat slide rendering: %w", err)
	}

	depth := 8
	switch cfg.ColorModel {
	case color.RGBA64Model, color.NRGBA64Model, color.Gray16Model:
		depth = 16
	}

	return &Info{
		Path:          path,
		Width:         cfg.Width,
		Height:        cfg.Height,
		BitDepth:      depth,
		FileSizeBytes: stat.Size(),
	}, nil
}

// LoadGray reads a rendering from disk as a single-channel 8-bit grayscale
// matrix. The caller owns the returned Mat and must Close it.
func LoadGray(path string) (gocv.Mat, error) {
	mat := gocv.IMRead(path, gocv.IMReadGrayScale)
	if mat.Empty() {
		return mat, fmt.Errorf("failed to read %s as grayscale image", path)
	}
	return mat, nil
}

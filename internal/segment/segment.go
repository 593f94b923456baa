// Package segment turns a grayscale slide rendering into tissue contours.
//
// The pipeline is a fixed chain of OpenCV primitives: Otsu threshold with a
// user allowance, speck removal by connected-component size, morphological
// smoothing with an elliptical kernel, and external contour extraction.
package segment

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Edge-touching regions stay closed when the mask is padded by this many
// background pixels before contour extraction.
const borderPad = 10

// Config holds the tunable parameters of the pipeline. Zero values are not
// usable; build it from the job's descriptor parameters.
type Config struct {
	// ThresholdAllowance is added to the computed Otsu threshold before
	// binarization. Positive values include lighter pixels as tissue.
	ThresholdAllowance int

	// KernelWidth and KernelHeight size the elliptical structuring element.
	KernelWidth  int
	KernelHeight int

	// ErodeIterations and DilateIterations run after the closing step.
	ErodeIterations  int
	DilateIterations int
}

// Result is the outcome of segmenting one rendering.
type Result struct {
	// OtsuValue is the threshold Otsu computed, before the allowance.
	OtsuValue float64 `json:"otsu_value"`

	// Threshold is the value actually applied (OtsuValue + allowance,
	// clamped to [0, 255]).
	Threshold float64 `json:"threshold"`

	// SpecksRemoved counts connected components erased by the size filter.
	SpecksRemoved int `json:"specks_removed"`

	// Contours are the outer boundaries of the detected tissue regions, in
	// rendering pixel coordinates.
	Contours [][]image.Point `json:"-"`

	// Mask is the final binary mask (tissue = 255). The caller owns it and
	// must Close it.
	Mask gocv.Mat `json:"-"`
}

// Run executes the pipeline on a single-channel grayscale rendering.
func Run(gray gocv.Mat, cfg Config) (*Result, error) {
	otsu, err := Otsu(gray)
	if err != nil {
		return nil, err
	}

	applied := otsu + float64(cfg.ThresholdAllowance)
	if applied < 0 {
		applied = 0
	}
	if applied > 255 {
		applied = 255
	}

	kernel, err := EllipseKernel(cfg.KernelWidth, cfg.KernelHeight)
	if err != nil {
		return nil, fmt.Errorf("invalid smoothing kernel: %w", err)
	}
	defer kernel.Close()

	mask := Threshold(gray, applied)
	removed := RemoveSpecks(&mask, KernelWeight(kernel))

	smoothed := Smooth(mask, kernel, cfg.ErodeIterations, cfg.DilateIterations)
	mask.Close()

	return &Result{
		OtsuValue:     otsu,
		Threshold:     applied,
		SpecksRemoved: removed,
		Contours:      ExtractContours(smoothed, borderPad),
		Mask:          smoothed,
	}, nil
}

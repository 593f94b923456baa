// Package runner orchestrates the detection job: it resolves the target
// images, drives the per-image download/segment/upload sequence and reports
// progress to the platform.
package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/histoplex/tissue-detect/internal/annotate"
	"github.com/histoplex/tissue-detect/internal/cytomine"
	"github.com/histoplex/tissue-detect/internal/descriptor"
	"github.com/histoplex/tissue-detect/internal/segment"
	"github.com/histoplex/tissue-detect/internal/slide"
)

// Platform is the slice of the platform API the runner needs. It is
// implemented by *cytomine.Client.
type Platform interface {
	ImageInstance(ctx context.Context, id int64) (*cytomine.ImageInstance, error)
	ProjectImages(ctx context.Context, projectID int64) ([]cytomine.ImageInstance, error)
	Dump(ctx context.Context, imageID int64, opts cytomine.DumpOptions, dest string) error
	UploadAnnotations(ctx context.Context, batch []cytomine.Annotation) error
	UpdateJob(ctx context.Context, jobID int64, status cytomine.JobStatus, progress int, comment string) error
}

// Runner executes one detection job.
type Runner struct {
	api    Platform
	params *descriptor.Params
	log    zerolog.Logger
}

// New creates a runner for the given platform client and parameters.
func New(api Platform, params *descriptor.Params, log zerolog.Logger) *Runner {
	return &Runner{api: api, params: params, log: log}
}

// Run processes every target image in sequence. The first failing image
// aborts the job; the remote job is then marked failed.
func (r *Runner) Run(ctx context.Context) error {
	r.report(ctx, cytomine.JobRunning, 0, "Initializing")

	images, err := r.resolveImages(ctx)
	if err != nil {
		r.report(ctx, cytomine.JobFailed, 0, err.Error())
		return err
	}
	r.log.Info().Int("images", len(images)).Msg("job started")

	for i, img := range images {
		comment := fmt.Sprintf("Running detection on image %d (%d/%d)", img.ID, i+1, len(images))
		r.report(ctx, cytomine.JobRunning, i*100/len(images), comment)

		if err := r.processImage(ctx, &img); err != nil {
			err = fmt.Errorf("image %d: %w", img.ID, err)
			r.report(ctx, cytomine.JobFailed, i*100/len(images), err.Error())
			return err
		}
	}

	r.report(ctx, cytomine.JobSuccess, 100, "Finished.")
	return nil
}

// resolveImages returns the explicitly requested image instances, or every
// image in the project when none were requested.
func (r *Runner) resolveImages(ctx context.Context) ([]cytomine.ImageInstance, error) {
	if len(r.params.ImageIDs) > 0 {
		images := make([]cytomine.ImageInstance, 0, len(r.params.ImageIDs))
		for _, id := range r.params.ImageIDs {
			img, err := r.api.ImageInstance(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch image %d: %w", id, err)
			}
			images = append(images, *img)
		}
		return images, nil
	}

	images, err := r.api.ProjectImages(ctx, r.params.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project images: %w", err)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("project %d has no images", r.params.ProjectID)
	}
	return images, nil
}

func (r *Runner) processImage(ctx context.Context, img *cytomine.ImageInstance) error {
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("image has invalid dimensions %dx%d", img.Width, img.Height)
	}

	tmpDir, err := os.MkdirTemp("", "tissue-detect-")
	if err != nil {
		return fmt.Errorf("failed to create working directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// The server bounds the largest edge; slides smaller than the limit
	// download at native size.
	resizeRatio := float64(max(img.Width, img.Height)) / float64(r.params.MaxImageSize)
	if resizeRatio < 1 {
		resizeRatio = 1
	}
	maxEdge := max(int(float64(img.Width)/resizeRatio), int(float64(img.Height)/resizeRatio))

	dest := filepath.Join(tmpDir, uuid.NewString()+".png")
	if err := r.api.Dump(ctx, img.ID, cytomine.DumpOptions{MaxSize: maxEdge, Bits: img.Depth()}, dest); err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	info, err := slide.Describe(dest)
	if err != nil {
		return err
	}

	gray, err := slide.LoadGray(dest)
	if err != nil {
		return err
	}
	defer gray.Close()

	result, err := segment.Run(gray, segment.Config{
		ThresholdAllowance: r.params.ThresholdAllowance,
		KernelWidth:        r.params.KernelWidth,
		KernelHeight:       r.params.KernelHeight,
		ErodeIterations:    r.params.ErodeIterations,
		DilateIterations:   r.params.DilateIterations,
	})
	if err != nil {
		return fmt.Errorf("segmentation failed: %w", err)
	}
	defer result.Mask.Close()

	if r.params.DebugDir != "" {
		if err := r.saveDebugMask(result, img.ID); err != nil {
			r.log.Warn().Err(err).Int64("image", img.ID).Msg("failed to save debug mask")
		}
	}

	// The server may round the rendering size, so the upscale factor comes
	// from the actual downloaded width, not the requested one.
	zoom := float64(img.Width) / float64(info.Width)
	candidates := annotate.FromContours(result.Contours, zoom, img.Width, img.Height, r.params.MinAreaPercent)

	batch := make([]cytomine.Annotation, 0, len(candidates))
	for _, cand := range candidates {
		batch = append(batch, cytomine.Annotation{
			Location:  cand.WKT(),
			ImageID:   img.ID,
			ProjectID: r.params.ProjectID,
			TermIDs:   []int64{r.params.TermID},
		})
	}
	if err := r.api.UploadAnnotations(ctx, batch); err != nil {
		return err
	}

	r.log.Info().
		Int64("image", img.ID).
		Float64("otsu", result.OtsuValue).
		Float64("threshold", result.Threshold).
		Int("specks_removed", result.SpecksRemoved).
		Int("contours", len(result.Contours)).
		Int("annotations", len(batch)).
		Msg("image processed")
	return nil
}

func (r *Runner) saveDebugMask(result *segment.Result, imageID int64) error {
	mask, err := result.Mask.ToImage()
	if err != nil {
		return fmt.Errorf("failed to convert mask: %w", err)
	}
	if err := os.MkdirAll(r.params.DebugDir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(r.params.DebugDir, fmt.Sprintf("%d_mask.png", imageID))
	return imaging.Save(mask, dest)
}

// report updates the remote job when the parameters name one; local runs
// (no job id) only log.
func (r *Runner) report(ctx context.Context, status cytomine.JobStatus, progress int, comment string) {
	r.log.Info().Int("progress", progress).Msg(comment)
	if r.params.JobID == 0 {
		return
	}
	if err := r.api.UpdateJob(ctx, r.params.JobID, status, progress, comment); err != nil {
		r.log.Warn().Err(err).Msg("failed to update remote job")
	}
}

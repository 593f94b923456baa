package cytomine

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
)

// ImageInstance is a slide image attached to a project.
type ImageInstance struct {
	ID       int64  `json:"id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Filename string `json:"instanceFilename"`

	// BitDepth may be absent from older servers; see (ImageInstance).Depth.
	BitDepth *int `json:"bitDepth"`

	Magnification *int     `json:"magnification"`
	Resolution    *float64 `json:"resolution"`
}

// Depth returns the reported bit depth, defaulting to 8 when the server
// does not provide one.
func (img *ImageInstance) Depth() int {
	if img.BitDepth == nil {
		return 8
	}
	return *img.BitDepth
}

// ImageInstance fetches a single image instance by id.
func (c *Client) ImageInstance(ctx context.Context, id int64) (*ImageInstance, error) {
	var img ImageInstance
	path := fmt.Sprintf("/api/imageinstance/%d.json", id)
	if err := c.do(ctx, "GET", path, nil, nil, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// ProjectImages lists every image instance in a project.
func (c *Client) ProjectImages(ctx context.Context, projectID int64) ([]ImageInstance, error) {
	var out struct {
		Collection []ImageInstance `json:"collection"`
		Size       int             `json:"size"`
	}
	path := fmt.Sprintf("/api/project/%d/imageinstance.json", projectID)
	if err := c.do(ctx, "GET", path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Collection, nil
}

// DumpOptions controls the rendered download of a slide.
type DumpOptions struct {
	// MaxSize bounds the largest edge of the rendered image in pixels.
	MaxSize int

	// Bits is the requested bit depth (usually the instance's own depth).
	Bits int
}

// Dump downloads a rendered PNG of the image instance into dest. The server
// resizes so that the largest edge is at most opts.MaxSize; it never
// upscales.
func (c *Client) Dump(ctx context.Context, imageID int64, opts DumpOptions, dest string) error {
	query := url.Values{"format": {"png"}}
	if opts.MaxSize > 0 {
		query.Set("maxSize", strconv.Itoa(opts.MaxSize))
	}
	if opts.Bits > 0 {
		query.Set("bits", strconv.Itoa(opts.Bits))
	}

	path := fmt.Sprintf("/api/imageinstance/%d/dump", imageID)
	req, err := c.newRequest(ctx, "GET", path, query, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError("GET", path, resp)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer f.Close()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	c.log.Debug().Int64("image", imageID).Int64("bytes", n).Str("dest", dest).Msg("slide downloaded")
	return nil
}

package cytomine

import (
	"context"
	"fmt"
)

// Annotation is a polygon annotation to upload. Location is a WKT polygon in
// the slide's full-resolution coordinate system (origin bottom-left).
type Annotation struct {
	Location  string  `json:"location"`
	ImageID   int64   `json:"image"`
	ProjectID int64   `json:"project"`
	TermIDs   []int64 `json:"term,omitempty"`
}

// UploadAnnotations posts a batch of annotations in a single request.
// An empty batch is a no-op.
func (c *Client) UploadAnnotations(ctx context.Context, batch []Annotation) error {
	if len(batch) == 0 {
		return nil
	}
	if err := c.do(ctx, "POST", "/api/annotation.json", nil, batch, nil); err != nil {
		return fmt.Errorf("failed to upload %d annotations: %w", len(batch), err)
	}
	c.log.Info().Int("count", len(batch)).Msg("annotations uploaded")
	return nil
}

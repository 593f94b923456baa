package cytomine

import (
	"context"
	"fmt"
)

// JobStatus is the platform's job lifecycle state.
type JobStatus int

// Job status codes as defined by the platform.
const (
	JobNotLaunch JobStatus = 0
	JobInQueue   JobStatus = 1
	JobRunning   JobStatus = 2
	JobSuccess   JobStatus = 3
	JobFailed    JobStatus = 4
)

// UpdateJob reports status, progress (0-100) and a human-readable comment
// for the remote job.
func (c *Client) UpdateJob(ctx context.Context, jobID int64, status JobStatus, progress int, comment string) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	body := map[string]interface{}{
		"status":        int(status),
		"progress":      progress,
		"statusComment": comment,
	}
	path := fmt.Sprintf("/api/job/%d.json", jobID)
	if err := c.do(ctx, "PUT", path, nil, body, nil); err != nil {
		return fmt.Errorf("failed to update job %d: %w", jobID, err)
	}
	return nil
}

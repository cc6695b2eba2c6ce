// Package ports declares the contracts between the job processing core and
// its external collaborators. Implementations live under internal/adapters,
// internal/repositories, internal/probe and internal/alerting.
package ports

import (
	"context"
	"errors"

	"github.com/akibsystems/showgeki2-sub002/internal/models"
)

// Sentinel errors shared by JobStore implementations.
var (
	ErrJobNotFound  = errors.New("job not found")
	ErrNoQueuedJobs = errors.New("no queued jobs")
)

// JobStore is the record store for job rows, keyed by job id.
type JobStore interface {
	// MarkProcessing persists status=processing before any expensive work.
	// The row is created if the caller submitted a job the store has not
	// seen yet.
	MarkProcessing(ctx context.Context, job *models.Job) error

	// MarkCompleted persists the terminal completed status with its output.
	MarkCompleted(ctx context.Context, jobID string, out *models.Output) error

	// MarkFailed persists the terminal failed status with the error message.
	MarkFailed(ctx context.Context, jobID string, errMsg string) error

	// GetStatus re-reads the current status of a job.
	GetStatus(ctx context.Context, jobID string) (models.Status, error)

	// OldestQueued returns the single oldest job with status=queued, or
	// ErrNoQueuedJobs when the queue is empty.
	OldestQueued(ctx context.Context) (*models.Job, error)

	// GetJob loads a full job row.
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
}

// MediaInfo is what the prober reads back from a finished file.
type MediaInfo struct {
	Width           int
	Height          int
	DurationSeconds float64
}

// MediaProber inspects a rendered file. Failures are non-fatal to the job;
// callers fall back to defaults.
type MediaProber interface {
	Probe(ctx context.Context, path string) (MediaInfo, error)
}

// Notifier delivers best-effort failure alerts. Implementations never return
// an error; delivery problems are logged and dropped.
type Notifier interface {
	NotifyFailure(ctx context.Context, jobID, storyID, errMsg string)
}

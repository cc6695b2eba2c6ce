package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akibsystems/showgeki2-sub002/internal/models"
	"github.com/akibsystems/showgeki2-sub002/internal/ports"
)

// JobRepository implements ports.JobStore on PostgreSQL.
type JobRepository struct {
	db *pgxpool.Pool
}

func NewJobRepository(db *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: db}
}

// MarkProcessing upserts the row with status=processing before any expensive
// work starts. Synchronous ingress jobs may not have a row yet; poller jobs
// do, and for those only the status flips.
func (r *JobRepository) MarkProcessing(ctx context.Context, job *models.Job) error {
	scriptJSON, err := json.Marshal(job.Script)
	if err != nil {
		return fmt.Errorf("marshal script: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO jobs (id, story_id, owner_id, title, status, script_json, created_at, started_at)
		VALUES ($1,$2,$3,$4,'processing',$5,NOW(),NOW())
		ON CONFLICT (id) DO UPDATE
		SET status='processing', started_at=NOW(), finished_at=NULL, error_message=NULL
	`, job.ID, job.StoryID, job.OwnerID, nullIfEmpty(job.Title), string(scriptJSON))
	return err
}

func (r *JobRepository) MarkCompleted(ctx context.Context, jobID string, out *models.Output) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE jobs
		SET status='completed', finished_at=NOW(), error_message=NULL,
		    public_url=$2, duration_seconds=$3, resolution=$4,
		    size_mb=$5, processing_seconds=$6
		WHERE id=$1
	`, jobID, out.PublicURL, out.DurationSeconds, out.Resolution,
		out.SizeMegabytes, out.ProcessingSeconds)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ports.ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) MarkFailed(ctx context.Context, jobID string, errMsg string) error {
	if len(errMsg) > 2000 {
		errMsg = errMsg[:2000]
	}

	cmd, err := r.db.Exec(ctx, `
		UPDATE jobs
		SET status='failed', finished_at=NOW(), error_message=$2
		WHERE id=$1
	`, jobID, errMsg)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ports.ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) GetStatus(ctx context.Context, jobID string) (models.Status, error) {
	var status string
	err := r.db.QueryRow(ctx, `SELECT status FROM jobs WHERE id=$1`, jobID).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", ports.ErrJobNotFound
		}
		return "", err
	}
	return models.Status(status), nil
}

// OldestQueued returns the single oldest queued job. Claim safety across
// workers is the poller's status re-check, not this query.
func (r *JobRepository) OldestQueued(ctx context.Context) (*models.Job, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, story_id, owner_id, COALESCE(title,''), status, script_json, created_at
		FROM jobs
		WHERE status='queued'
		ORDER BY created_at ASC
		LIMIT 1
	`)
	return scanJob(row)
}

func (r *JobRepository) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var (
		job        models.Job
		status     string
		scriptJSON string
		publicURL, resolution, errMsg *string
		duration, sizeMB, processing  *float64
	)

	err := r.db.QueryRow(ctx, `
		SELECT id, story_id, owner_id, COALESCE(title,''), status, script_json, created_at,
		       public_url, duration_seconds, resolution, size_mb, processing_seconds,
		       error_message
		FROM jobs WHERE id=$1
	`, jobID).Scan(
		&job.ID, &job.StoryID, &job.OwnerID, &job.Title, &status, &scriptJSON, &job.CreatedAt,
		&publicURL, &duration, &resolution, &sizeMB, &processing,
		&errMsg,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ports.ErrJobNotFound
		}
		return nil, err
	}

	job.Status = models.Status(status)
	if err := unmarshalScript(scriptJSON, &job); err != nil {
		return nil, err
	}
	if errMsg != nil {
		job.ErrorMessage = *errMsg
	}

	if job.Status == models.StatusCompleted && publicURL != nil {
		out := &models.Output{PublicURL: *publicURL}
		if duration != nil {
			out.DurationSeconds = *duration
		}
		if resolution != nil {
			out.Resolution = *resolution
		}
		if sizeMB != nil {
			out.SizeMegabytes = *sizeMB
		}
		if processing != nil {
			out.ProcessingSeconds = *processing
			out.Phases = models.EstimatePhases(*processing)
		}
		job.Output = out
	}

	return &job, nil
}

type pgxRow interface {
	Scan(dest ...any) error
}

func scanJob(row pgxRow) (*models.Job, error) {
	var (
		job        models.Job
		status     string
		scriptJSON string
		createdAt  time.Time
	)
	err := row.Scan(&job.ID, &job.StoryID, &job.OwnerID, &job.Title, &status, &scriptJSON, &createdAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ports.ErrNoQueuedJobs
		}
		return nil, err
	}

	job.Status = models.Status(status)
	job.CreatedAt = createdAt
	if err := unmarshalScript(scriptJSON, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func unmarshalScript(raw string, job *models.Job) error {
	if raw == "" {
		return nil
	}
	var script models.Script
	if err := json.Unmarshal([]byte(raw), &script); err != nil {
		return fmt.Errorf("invalid script_json for job %s: %w", job.ID, err)
	}
	job.Script = &script
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

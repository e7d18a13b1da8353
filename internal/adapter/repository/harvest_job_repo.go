package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalogue-rag/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type harvestJobRepository struct {
	db *pgxpool.Pool
}

func NewHarvestJobRepository(db *pgxpool.Pool) domain.HarvestJobRepository {
	return &harvestJobRepository{db: db}
}

func (r *harvestJobRepository) Enqueue(ctx context.Context, job *domain.HarvestJob) error {
	query := `
		INSERT INTO harvest_jobs (id, job_type, payload, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	payloadBytes, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = r.db.Exec(ctx, query,
		job.ID,
		job.JobType,
		payloadBytes,
		job.Status,
		job.ErrorMessage,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// AcquireNextJob claims the oldest queued job and marks it processing in one
// statement, so concurrent workers never pick up the same job.
func (r *harvestJobRepository) AcquireNextJob(ctx context.Context) (*domain.HarvestJob, error) {
	cteQuery := `
		WITH next_job AS (
			SELECT id
			FROM harvest_jobs
			WHERE status = 'new'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE harvest_jobs
		SET status = 'processing', updated_at = $1
		FROM next_job
		WHERE harvest_jobs.id = next_job.id
		RETURNING harvest_jobs.id, harvest_jobs.job_type, harvest_jobs.payload, harvest_jobs.status, harvest_jobs.error_message, harvest_jobs.created_at, harvest_jobs.updated_at
	`

	var job domain.HarvestJob
	var payloadBytes []byte

	err := r.db.QueryRow(ctx, cteQuery, time.Now()).Scan(
		&job.ID,
		&job.JobType,
		&payloadBytes,
		&job.Status,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to acquire next job: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &job.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return &job, nil
}

func (r *harvestJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	query := `
		UPDATE harvest_jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, status, errorMessage, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

package mysql

import (
	"context"
	"fmt"
	"time"

	"ece-marketplace/internal/domain"
)

type MySQLSchedulerRepository struct {
	store *Store
}

var _ domain.SchedulerRepository = (*MySQLSchedulerRepository)(nil)

func NewMySQLSchedulerRepository(store *Store) *MySQLSchedulerRepository {
	return &MySQLSchedulerRepository{store: store}
}

func (r *MySQLSchedulerRepository) CreateJob(ctx context.Context, job *domain.ScheduledJob) error {
	job.CreatedAt = orNow(job.CreatedAt)
	query := `
        INSERT INTO scheduled_jobs (id, auction_id, job_type, run_at, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	_, err := r.store.conn(ctx).ExecContext(ctx, query,
		job.ID, job.AuctionID, string(job.JobType),
		job.RunAt.UTC(), string(job.Status), job.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *MySQLSchedulerRepository) GetPendingJobs(ctx context.Context, before time.Time) ([]*domain.ScheduledJob, error) {
	query := `
        SELECT id, auction_id, job_type, run_at, status, created_at
        FROM scheduled_jobs
        WHERE status = ? AND run_at <= ?
        ORDER BY run_at ASC
    `

	rows, err := r.store.conn(ctx).QueryContext(ctx, query, string(domain.JobPending), before.UTC())
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.ScheduledJob
	for rows.Next() {
		var job domain.ScheduledJob
		var jobType, status string

		err := rows.Scan(&job.ID, &job.AuctionID, &jobType,
			&job.RunAt, &status, &job.CreatedAt)
		if err != nil {
			return nil, err
		}

		job.JobType = domain.JobType(jobType)
		job.Status = domain.JobStatus(status)
		jobs = append(jobs, &job)
	}

	return jobs, rows.Err()
}

func (r *MySQLSchedulerRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus) error {
	query := `UPDATE scheduled_jobs SET status = ? WHERE id = ?`
	if _, err := r.store.conn(ctx).ExecContext(ctx, query, string(status), jobID); err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

func (r *MySQLSchedulerRepository) CancelJobsForAuction(ctx context.Context, auctionID string) error {
	query := `UPDATE scheduled_jobs SET status = ? WHERE auction_id = ? AND status = ?`
	_, err := r.store.conn(ctx).ExecContext(ctx, query,
		string(domain.JobCancelled), auctionID, string(domain.JobPending))
	if err != nil {
		return fmt.Errorf("cancel jobs: %w", err)
	}
	return nil
}

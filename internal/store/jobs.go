package store

import (
	"context"
	"time"

	"github.com/credence-core/credence/internal/domain"
)

type ProjectionJobStore struct {
	db DB
}

func (s *ProjectionJobStore) Enqueue(ctx context.Context, personID, scopeKey string) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO projection_jobs (person_id, scope_key) VALUES ($1, $2)`,
		personID, scopeKey,
	)
	return err
}

func (s *ProjectionJobStore) CompleteForScope(ctx context.Context, personID, scopeKey string, at time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE projection_jobs
		 SET status = $3, completed_at = $4
		 WHERE person_id = $1 AND scope_key = $2 AND status = $5`,
		personID, scopeKey, domain.JobCompleted, at, domain.JobPending,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *ProjectionJobStore) CountPendingForScope(ctx context.Context, personID, scopeKey string) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM projection_jobs
		 WHERE person_id = $1 AND scope_key = $2 AND status = $3`,
		personID, scopeKey, domain.JobPending,
	).Scan(&n)
	return n, err
}

func (s *ProjectionJobStore) ListPending(ctx context.Context, personID string) ([]domain.ProjectionJob, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, person_id, scope_key, status, created_at, completed_at
		 FROM projection_jobs
		 WHERE person_id = $1 AND status = $2
		 ORDER BY id`,
		personID, domain.JobPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.ProjectionJob
	for rows.Next() {
		var j domain.ProjectionJob
		if err := rows.Scan(&j.ID, &j.PersonID, &j.ScopeKey, &j.Status, &j.CreatedAt, &j.CompletedAt); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

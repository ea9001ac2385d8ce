package store

import (
	"context"
	"errors"

	"github.com/credence-core/credence/internal/domain"
	"github.com/jackc/pgx/v5"
)

type CheckpointStore struct {
	db DB
}

func (s *CheckpointStore) Get(ctx context.Context, personID, scopeKey string) (*domain.ProjectionCheckpoint, error) {
	cp := &domain.ProjectionCheckpoint{}
	err := s.db.QueryRow(ctx,
		`SELECT person_id, scope_key, seq, graph_version, model_version, taxonomy_version, updated_at
		 FROM projection_checkpoints
		 WHERE person_id = $1 AND scope_key = $2`,
		personID, scopeKey,
	).Scan(&cp.PersonID, &cp.ScopeKey, &cp.Seq, &cp.GraphVersion, &cp.ModelVersion, &cp.TaxonomyVersion, &cp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return cp, nil
}

func (s *CheckpointStore) Upsert(ctx context.Context, cp *domain.ProjectionCheckpoint) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO projection_checkpoints (person_id, scope_key, seq, graph_version, model_version, taxonomy_version, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (person_id, scope_key) DO UPDATE
		 SET seq = EXCLUDED.seq,
		     graph_version = EXCLUDED.graph_version,
		     model_version = EXCLUDED.model_version,
		     taxonomy_version = EXCLUDED.taxonomy_version,
		     updated_at = EXCLUDED.updated_at`,
		cp.PersonID, cp.ScopeKey, cp.Seq, cp.GraphVersion, cp.ModelVersion, cp.TaxonomyVersion, cp.UpdatedAt,
	)
	return err
}

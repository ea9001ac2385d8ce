package store

import (
	"context"
	"errors"

	"github.com/credence-core/credence/internal/domain"
	"github.com/jackc/pgx/v5"
)

type VersionStore struct {
	db DB
}

func (s *VersionStore) Get(ctx context.Context) (*domain.Versions, error) {
	v := &domain.Versions{}
	err := s.db.QueryRow(ctx,
		`SELECT graph_version, model_version, taxonomy_version FROM meta_versions WHERE id = 1`,
	).Scan(&v.GraphVersion, &v.ModelVersion, &v.TaxonomyVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New("meta_versions not seeded; run migrate")
		}
		return nil, err
	}
	return v, nil
}

func (s *VersionStore) BumpGraphVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRow(ctx,
		`UPDATE meta_versions SET graph_version = graph_version + 1 WHERE id = 1
		 RETURNING graph_version`,
	).Scan(&version)
	return version, err
}

// EnsureDefaults seeds the version row and lifts model/taxonomy versions
// when the running binary carries newer ones. Versions never move
// backwards here; running an older binary against a newer database leaves
// the row alone and its projections stale-by-version.
func (s *VersionStore) EnsureDefaults(ctx context.Context, modelVersion, taxonomyVersion int) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO meta_versions (id, graph_version, model_version, taxonomy_version)
		 VALUES (1, 1, $1, $2)
		 ON CONFLICT (id) DO UPDATE
		 SET model_version = GREATEST(meta_versions.model_version, EXCLUDED.model_version),
		     taxonomy_version = GREATEST(meta_versions.taxonomy_version, EXCLUDED.taxonomy_version)`,
		modelVersion, taxonomyVersion,
	)
	return err
}

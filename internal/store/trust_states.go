package store

import (
	"context"
	"errors"

	"github.com/credence-core/credence/internal/domain"
	"github.com/jackc/pgx/v5"
)

type TrustStateStore struct {
	db DB
}

const trustStateColumns = `person_id, concept_id, level, confidence, last_verified,
	inferred_from, modalities, derived_from_seq, graph_version, model_version, taxonomy_version`

func (s *TrustStateStore) Get(ctx context.Context, personID, conceptID string) (*domain.TrustState, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+trustStateColumns+` FROM trust_states
		 WHERE person_id = $1 AND concept_id = $2`,
		personID, conceptID)
	st, err := scanTrustState(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return st, nil
}

func (s *TrustStateStore) ListForPerson(ctx context.Context, personID string) ([]domain.TrustState, error) {
	return s.queryStates(ctx,
		`SELECT `+trustStateColumns+` FROM trust_states
		 WHERE person_id = $1 ORDER BY concept_id`,
		personID)
}

func (s *TrustStateStore) GetForConcepts(ctx context.Context, personID string, conceptIDs []string) ([]domain.TrustState, error) {
	return s.queryStates(ctx,
		`SELECT `+trustStateColumns+` FROM trust_states
		 WHERE person_id = $1 AND concept_id = ANY($2) ORDER BY concept_id`,
		personID, conceptIDs)
}

func (s *TrustStateStore) ReplaceForScope(ctx context.Context, personID string, conceptIDs []string, states []domain.TrustState) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM trust_states WHERE person_id = $1 AND concept_id = ANY($2)`,
		personID, conceptIDs,
	); err != nil {
		return err
	}

	for i := range states {
		st := &states[i]
		modalities := make([]string, len(st.ModalitiesTested))
		for j, m := range st.ModalitiesTested {
			modalities[j] = string(m)
		}
		inferredFrom := st.InferredFrom
		if inferredFrom == nil {
			inferredFrom = []string{}
		}
		if _, err := s.db.Exec(ctx,
			`INSERT INTO trust_states (person_id, concept_id, level, confidence, last_verified,
				inferred_from, modalities, derived_from_seq, graph_version, model_version, taxonomy_version, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())`,
			st.PersonID, st.ConceptID, st.Level, st.Confidence, st.LastVerified,
			inferredFrom, modalities, st.DerivedFromSeq, st.GraphVersion, st.ModelVersion, st.TaxonomyVersion,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *TrustStateStore) queryStates(ctx context.Context, query string, args ...any) ([]domain.TrustState, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []domain.TrustState
	for rows.Next() {
		st, err := scanTrustState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *st)
	}
	return states, rows.Err()
}

func scanTrustState(row pgx.Row) (*domain.TrustState, error) {
	st := &domain.TrustState{}
	var modalities []string
	err := row.Scan(&st.PersonID, &st.ConceptID, &st.Level, &st.Confidence, &st.LastVerified,
		&st.InferredFrom, &modalities, &st.DerivedFromSeq, &st.GraphVersion, &st.ModelVersion, &st.TaxonomyVersion)
	if err != nil {
		return nil, err
	}
	st.ModalitiesTested = make([]domain.Modality, len(modalities))
	for i, m := range modalities {
		st.ModalitiesTested[i] = domain.Modality(m)
	}
	if len(st.InferredFrom) == 0 {
		st.InferredFrom = nil
	}
	return st, nil
}

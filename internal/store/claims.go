package store

import (
	"context"
	"errors"
	"time"

	"github.com/credence-core/credence/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ClaimStore struct {
	db DB
}

const claimColumns = `id, person_id, concept_id, self_confidence, context, ts,
	retracted, retracted_at, retracted_by, retraction_note`

func (s *ClaimStore) Append(ctx context.Context, c *domain.ClaimEvent) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO claim_events (id, person_id, concept_id, self_confidence, context, ts)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.PersonID, c.ConceptID, c.SelfReportedConfidence, c.Context, c.Timestamp,
	)
	return err
}

func (s *ClaimStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ClaimEvent, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+claimColumns+` FROM claim_events WHERE id = $1`, id)
	c, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (s *ClaimStore) Latest(ctx context.Context, personID, conceptID string) (*domain.ClaimEvent, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+claimColumns+`
		 FROM claim_events
		 WHERE person_id = $1 AND concept_id = $2 AND NOT retracted
		 ORDER BY ts DESC, id DESC
		 LIMIT 1`,
		personID, conceptID)
	c, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (s *ClaimStore) ListForPerson(ctx context.Context, personID string) ([]domain.ClaimEvent, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+claimColumns+`
		 FROM claim_events
		 WHERE person_id = $1
		 ORDER BY ts, id`,
		personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []domain.ClaimEvent
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

func (s *ClaimStore) MarkRetracted(ctx context.Context, id uuid.UUID, by, note string, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE claim_events
		 SET retracted = TRUE, retracted_at = $2, retracted_by = $3, retraction_note = $4
		 WHERE id = $1 AND NOT retracted`,
		id, at, by, note,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanClaim(row pgx.Row) (*domain.ClaimEvent, error) {
	c := &domain.ClaimEvent{}
	err := row.Scan(&c.ID, &c.PersonID, &c.ConceptID, &c.SelfReportedConfidence, &c.Context,
		&c.Timestamp, &c.Retracted, &c.RetractedAt, &c.RetractedBy, &c.RetractionNote)
	if err != nil {
		return nil, err
	}
	return c, nil
}

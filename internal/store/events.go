package store

import (
	"context"
	"errors"
	"time"

	"github.com/credence-core/credence/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type VerificationEventStore struct {
	db DB
}

const verificationEventColumns = `id, seq, person_id, concept_id, modality, result, context, source, ts,
	retracted, retracted_at, retracted_by, retraction_note`

func (s *VerificationEventStore) Append(ctx context.Context, e *domain.VerificationEvent) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO verification_events (id, person_id, concept_id, modality, result, context, source, ts)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING seq`,
		e.ID, e.PersonID, e.ConceptID, e.Modality, e.Result, e.Context, e.Source, e.Timestamp,
	).Scan(&e.Seq)
}

func (s *VerificationEventStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.VerificationEvent, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+verificationEventColumns+` FROM verification_events WHERE id = $1`, id)
	e, err := scanVerificationEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (s *VerificationEventStore) History(ctx context.Context, personID, conceptID string) ([]domain.VerificationEvent, error) {
	return s.queryEvents(ctx,
		`SELECT `+verificationEventColumns+`
		 FROM verification_events
		 WHERE person_id = $1 AND concept_id = $2 AND NOT retracted
		 ORDER BY ts, seq, id`,
		personID, conceptID)
}

func (s *VerificationEventStore) HistoryForConcepts(ctx context.Context, personID string, conceptIDs []string) ([]domain.VerificationEvent, error) {
	return s.queryEvents(ctx,
		`SELECT `+verificationEventColumns+`
		 FROM verification_events
		 WHERE person_id = $1 AND concept_id = ANY($2) AND NOT retracted
		 ORDER BY ts, seq, id`,
		personID, conceptIDs)
}

func (s *VerificationEventStore) LatestSeq(ctx context.Context, personID string, conceptIDs []string) (int64, error) {
	var seq int64
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0)
		 FROM verification_events
		 WHERE person_id = $1 AND concept_id = ANY($2)`,
		personID, conceptIDs,
	).Scan(&seq)
	return seq, err
}

func (s *VerificationEventStore) MarkRetracted(ctx context.Context, id uuid.UUID, by, note string, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE verification_events
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

func (s *VerificationEventStore) ConceptIDsForPerson(ctx context.Context, personID string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT concept_id FROM verification_events
		 WHERE person_id = $1 AND NOT retracted
		 ORDER BY concept_id`,
		personID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *VerificationEventStore) queryEvents(ctx context.Context, query string, args ...any) ([]domain.VerificationEvent, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.VerificationEvent
	for rows.Next() {
		e, err := scanVerificationEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func scanVerificationEvent(row pgx.Row) (*domain.VerificationEvent, error) {
	e := &domain.VerificationEvent{}
	err := row.Scan(&e.ID, &e.Seq, &e.PersonID, &e.ConceptID, &e.Modality, &e.Result,
		&e.Context, &e.Source, &e.Timestamp,
		&e.Retracted, &e.RetractedAt, &e.RetractedBy, &e.RetractionNote)
	if err != nil {
		return nil, err
	}
	return e, nil
}

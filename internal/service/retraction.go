package service

import (
	"context"
	"errors"
	"time"

	"github.com/credence-core/credence/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrUnknownEventType = errors.New("unknown event type")

const (
	EventTypeVerification = "verification"
	EventTypeClaim        = "claim"
)

// RetractionService invalidates prior events. Retraction is audit
// preserving: the event row stays, marked inactive, and everything derived
// downstream of it is recomputed. Retracting something that does not exist
// or is already retracted is a no-op result, not an error.
type RetractionService struct {
	store     domain.Store
	projector *Projector
	logger    *zap.Logger
}

func NewRetractionService(store domain.Store, projector *Projector, logger *zap.Logger) *RetractionService {
	return &RetractionService{store: store, projector: projector, logger: logger}
}

type RetractionInput struct {
	EventID     uuid.UUID  `json:"event_id"`
	EventType   string     `json:"event_type"`
	Reason      string     `json:"reason,omitempty"`
	RetractedBy string     `json:"retracted_by,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

type RetractionResult struct {
	Retracted           bool `json:"retracted"`
	TrustStatesAffected int  `json:"trust_states_affected"`
}

func (s *RetractionService) RetractEvent(ctx context.Context, in RetractionInput) (*RetractionResult, error) {
	ts := time.Now().UTC()
	if in.Timestamp != nil {
		ts = in.Timestamp.UTC()
	}

	switch in.EventType {
	case EventTypeVerification:
		return s.retractVerification(ctx, in, ts)
	case EventTypeClaim:
		return s.retractClaim(ctx, in, ts)
	default:
		return nil, ErrUnknownEventType
	}
}

func (s *RetractionService) retractVerification(ctx context.Context, in RetractionInput, ts time.Time) (*RetractionResult, error) {
	event, err := s.store.Verifications().GetByID(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if event == nil || event.Retracted {
		return &RetractionResult{}, nil
	}

	scope, err := s.projector.ScopeForConcept(ctx, event.ConceptID)
	if err != nil {
		return nil, err
	}

	var affected int
	err = s.projector.WithPersonLock(event.PersonID, func() error {
		before, err := s.store.TrustStates().GetForConcepts(ctx, event.PersonID, scope.ConceptIDs)
		if err != nil {
			return err
		}

		if err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
			if err := tx.Verifications().MarkRetracted(ctx, in.EventID, in.RetractedBy, in.Reason, ts); err != nil {
				return err
			}
			return tx.Jobs().Enqueue(ctx, event.PersonID, scope.Key)
		}); err != nil {
			return err
		}

		after, err := s.projector.ProjectScope(ctx, event.PersonID, scope)
		if err != nil {
			return err
		}
		affected = countChanged(before, after)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("verification retracted",
		zap.String("event_id", in.EventID.String()),
		zap.String("person_id", event.PersonID),
		zap.String("concept_id", event.ConceptID),
		zap.String("reason", in.Reason),
		zap.Int("trust_states_affected", affected))

	return &RetractionResult{Retracted: true, TrustStatesAffected: affected}, nil
}

// retractClaim removes a claim from claim history. Claims never drove
// level or confidence, so no recompute happens.
func (s *RetractionService) retractClaim(ctx context.Context, in RetractionInput, ts time.Time) (*RetractionResult, error) {
	claim, err := s.store.Claims().GetByID(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if claim == nil || claim.Retracted {
		return &RetractionResult{}, nil
	}

	if err := s.store.Claims().MarkRetracted(ctx, in.EventID, in.RetractedBy, in.Reason, ts); err != nil {
		return nil, err
	}

	s.logger.Info("claim retracted",
		zap.String("event_id", in.EventID.String()),
		zap.String("person_id", claim.PersonID),
		zap.String("concept_id", claim.ConceptID),
		zap.String("reason", in.Reason))

	return &RetractionResult{Retracted: true}, nil
}

// countChanged counts concepts whose snapshot was added, removed, or moved
// in level or confidence between two scope projections.
func countChanged(before, after []domain.TrustState) int {
	prev := make(map[string]domain.TrustState, len(before))
	for _, st := range before {
		prev[st.ConceptID] = st
	}
	next := make(map[string]domain.TrustState, len(after))
	for _, st := range after {
		next[st.ConceptID] = st
	}

	changed := 0
	for id, b := range prev {
		a, ok := next[id]
		if !ok {
			changed++
			continue
		}
		if a.Level != b.Level || abs(a.Confidence-b.Confidence) > MinStateDelta {
			changed++
		}
	}
	for id := range next {
		if _, ok := prev[id]; !ok {
			changed++
		}
	}
	return changed
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

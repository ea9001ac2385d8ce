package service

import (
	"context"
	"errors"
	"time"

	"github.com/credence-core/credence/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrPersonIDRequired  = errors.New("person_id is required")
	ErrConceptIDRequired = errors.New("concept_id is required")
	ErrUnknownModality   = errors.New("unknown modality")
	ErrUnknownResult     = errors.New("unknown verification result")
	ErrUnknownSource     = errors.New("unknown event source")
	ErrConceptNotFound   = errors.New("concept not found")
)

// TrustService owns the verification write path and all trust-state reads.
// Reads apply decay at query time; stored snapshots never bake it in.
type TrustService struct {
	store     domain.Store
	projector *Projector
	logger    *zap.Logger
}

func NewTrustService(store domain.Store, projector *Projector, logger *zap.Logger) *TrustService {
	return &TrustService{store: store, projector: projector, logger: logger}
}

type VerificationInput struct {
	PersonID  string     `json:"person_id"`
	ConceptID string     `json:"concept_id"`
	Modality  string     `json:"modality"`
	Result    string     `json:"result"`
	Context   string     `json:"context,omitempty"`
	Source    string     `json:"source,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// RecordVerification validates and appends one verification event, then
// rebuilds the affected scope and returns the concept's resulting trust
// state with decay applied as of the event time's present.
func (s *TrustService) RecordVerification(ctx context.Context, in VerificationInput) (*domain.TrustState, error) {
	if in.PersonID == "" {
		return nil, ErrPersonIDRequired
	}
	if in.ConceptID == "" {
		return nil, ErrConceptIDRequired
	}
	if !domain.ValidModality(in.Modality) {
		return nil, ErrUnknownModality
	}
	if !domain.ValidVerificationResult(in.Result) {
		return nil, ErrUnknownResult
	}
	source := in.Source
	if source == "" {
		source = string(domain.SourceInternal)
	}
	if !domain.ValidEventSource(source) {
		return nil, ErrUnknownSource
	}

	concept, err := s.store.Graph().GetConcept(ctx, in.ConceptID)
	if err != nil {
		return nil, err
	}
	if concept == nil {
		return nil, ErrConceptNotFound
	}

	ts := time.Now().UTC()
	if in.Timestamp != nil {
		ts = in.Timestamp.UTC()
	}

	event := &domain.VerificationEvent{
		ID:        uuid.New(),
		PersonID:  in.PersonID,
		ConceptID: in.ConceptID,
		Modality:  domain.Modality(in.Modality),
		Result:    domain.VerificationResult(in.Result),
		Context:   in.Context,
		Source:    domain.EventSource(source),
		Timestamp: ts,
	}

	scope, err := s.projector.ScopeForConcept(ctx, in.ConceptID)
	if err != nil {
		return nil, err
	}

	err = s.projector.WithPersonLock(in.PersonID, func() error {
		if err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
			if err := tx.Verifications().Append(ctx, event); err != nil {
				return err
			}
			return tx.Jobs().Enqueue(ctx, in.PersonID, scope.Key)
		}); err != nil {
			return err
		}
		_, err := s.projector.ProjectScope(ctx, in.PersonID, scope)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("verification recorded",
		zap.String("person_id", in.PersonID),
		zap.String("concept_id", in.ConceptID),
		zap.String("modality", in.Modality),
		zap.String("result", in.Result),
		zap.Int64("seq", event.Seq))

	return s.GetTrustState(ctx, in.PersonID, in.ConceptID, time.Now().UTC())
}

// GetTrustState returns the derived state for one (person, concept) pair,
// rebuilding the scope first if its cache is stale. An unknown concept is a
// hard error; a known concept with no evidence is a well-typed untested
// state with zero confidence.
func (s *TrustService) GetTrustState(ctx context.Context, personID, conceptID string, asOf time.Time) (*domain.TrustState, error) {
	if personID == "" {
		return nil, ErrPersonIDRequired
	}
	concept, err := s.store.Graph().GetConcept(ctx, conceptID)
	if err != nil {
		return nil, err
	}
	if concept == nil {
		return nil, ErrConceptNotFound
	}

	scope, err := s.projector.ScopeForConcept(ctx, conceptID)
	if err != nil {
		return nil, err
	}
	states, err := s.projector.EnsureFresh(ctx, personID, scope)
	if err != nil {
		return nil, err
	}

	for i := range states {
		if states[i].ConceptID == conceptID {
			st := states[i]
			if err := s.decorate(ctx, &st, asOf); err != nil {
				return nil, err
			}
			return &st, nil
		}
	}

	st := &domain.TrustState{
		PersonID:  personID,
		ConceptID: conceptID,
		Level:     domain.TrustUntested,
	}
	if err := s.decorate(ctx, st, asOf); err != nil {
		return nil, err
	}
	return st, nil
}

// ListTrustStates returns every derived state for the person, each scope
// refreshed as needed, with decay and calibration gap applied as of asOf.
func (s *TrustService) ListTrustStates(ctx context.Context, personID string, asOf time.Time) ([]domain.TrustState, error) {
	if personID == "" {
		return nil, ErrPersonIDRequired
	}
	if err := s.RefreshPerson(ctx, personID); err != nil {
		return nil, err
	}

	states, err := s.store.TrustStates().ListForPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	for i := range states {
		if err := s.decorate(ctx, &states[i], asOf); err != nil {
			return nil, err
		}
	}
	return states, nil
}

// RefreshPerson ensures every scope the person has evidence in is fresh.
func (s *TrustService) RefreshPerson(ctx context.Context, personID string) error {
	conceptIDs, err := s.store.Verifications().ConceptIDsForPerson(ctx, personID)
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, id := range conceptIDs {
		scope, err := s.projector.ScopeForConcept(ctx, id)
		if err != nil {
			return err
		}
		if seen[scope.Key] {
			continue
		}
		seen[scope.Key] = true
		if _, err := s.projector.EnsureFresh(ctx, personID, scope); err != nil {
			return err
		}
	}
	return nil
}

// decorate fills the query-time fields: decayed confidence and, when a
// claim exists, the calibration gap.
func (s *TrustService) decorate(ctx context.Context, st *domain.TrustState, asOf time.Time) error {
	dependents, err := s.store.Graph().CountDownstreamDependents(ctx, st.ConceptID)
	if err != nil {
		return err
	}

	decayed := ComputeDecayedConfidence(st.Confidence, st.LastVerified, asOf, len(st.ModalitiesTested), dependents)
	st.DecayedConfidence = &decayed

	claim, err := s.store.Claims().Latest(ctx, st.PersonID, st.ConceptID)
	if err != nil {
		return err
	}
	if claim != nil {
		gap := claim.SelfReportedConfidence - decayed
		st.CalibrationGap = &gap
	}
	return nil
}

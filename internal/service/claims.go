package service

import (
	"context"
	"errors"
	"time"

	"github.com/credence-core/credence/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrConfidenceOutOfRange = errors.New("self_reported_confidence must be between 0 and 1")

// ClaimService records self-reported confidence and measures it against
// the decayed evidence-based confidence.
type ClaimService struct {
	store  domain.Store
	trust  *TrustService
	logger *zap.Logger
}

func NewClaimService(store domain.Store, trust *TrustService, logger *zap.Logger) *ClaimService {
	return &ClaimService{store: store, trust: trust, logger: logger}
}

type ClaimInput struct {
	PersonID               string     `json:"person_id"`
	ConceptID              string     `json:"concept_id"`
	SelfReportedConfidence float64    `json:"self_reported_confidence"`
	Context                string     `json:"context,omitempty"`
	Timestamp              *time.Time `json:"timestamp,omitempty"`
}

type ClaimResult struct {
	Recorded          bool               `json:"recorded"`
	Claim             *domain.ClaimEvent `json:"claim"`
	CurrentTrustState *domain.TrustState `json:"current_trust_state"`
	// CalibrationGap is self-report minus decayed evidence: positive means
	// overclaiming, negative underclaiming.
	CalibrationGap float64 `json:"calibration_gap"`
}

func (s *ClaimService) RecordClaim(ctx context.Context, in ClaimInput) (*ClaimResult, error) {
	if in.PersonID == "" {
		return nil, ErrPersonIDRequired
	}
	if in.ConceptID == "" {
		return nil, ErrConceptIDRequired
	}
	if in.SelfReportedConfidence < 0 || in.SelfReportedConfidence > 1 {
		return nil, ErrConfidenceOutOfRange
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

	claim := &domain.ClaimEvent{
		ID:                     uuid.New(),
		PersonID:               in.PersonID,
		ConceptID:              in.ConceptID,
		SelfReportedConfidence: in.SelfReportedConfidence,
		Context:                in.Context,
		Timestamp:              ts,
	}
	if err := s.store.Claims().Append(ctx, claim); err != nil {
		return nil, err
	}

	state, err := s.trust.GetTrustState(ctx, in.PersonID, in.ConceptID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	decayed := state.Confidence
	if state.DecayedConfidence != nil {
		decayed = *state.DecayedConfidence
	}
	gap := in.SelfReportedConfidence - decayed

	s.logger.Info("claim recorded",
		zap.String("person_id", in.PersonID),
		zap.String("concept_id", in.ConceptID),
		zap.Float64("self_reported", in.SelfReportedConfidence),
		zap.Float64("calibration_gap", gap))

	return &ClaimResult{
		Recorded:          true,
		Claim:             claim,
		CurrentTrustState: state,
		CalibrationGap:    gap,
	}, nil
}

package service

import (
	"context"
	"time"

	"github.com/credence-core/credence/internal/domain"
	"go.uber.org/zap"
)

const (
	// StaleAfterDays: a concept unverified this long counts stale.
	StaleAfterDays = 60.0
	// PredictionSuccessThreshold: pre-event confidence at or above this
	// predicts a success.
	PredictionSuccessThreshold = 0.5

	// Decision-table thresholds for the recommendation.
	StalePercentageThreshold  = 0.5
	OverconfidenceThreshold   = 0.2
	UnderconfidenceThreshold  = 0.2
	SurpriseRateThreshold     = 0.4
	ClaimCalibrationThreshold = 0.6
	MinPredictionSamples      = 3
)

// Recommendation strings, one per decision-table row.
const (
	RecommendationNoData           = "no trust data"
	RecommendationStale            = "re-verify stale concepts before relying on them"
	RecommendationOverconfident    = "confidence is running ahead of the evidence; verify before trusting"
	RecommendationUnderconfident   = "evidence outpaces confidence; trust demonstrated concepts more"
	RecommendationSurprising       = "verification outcomes are frequently surprising; verify more often"
	RecommendationClaimsMisaligned = "self-reports diverge from the evidence; calibrate claims against verification"
	RecommendationInsufficient     = "insufficient data"
	RecommendationNominal          = "nominal"
)

// CalibrationService is a read-only auditor over all of a person's trust
// states. It never mutates anything beyond triggering cache refreshes.
type CalibrationService struct {
	store  domain.Store
	trust  *TrustService
	logger *zap.Logger
}

func NewCalibrationService(store domain.Store, trust *TrustService, logger *zap.Logger) *CalibrationService {
	return &CalibrationService{store: store, trust: trust, logger: logger}
}

type CalibrationReport struct {
	PersonID    string    `json:"person_id"`
	AsOf        time.Time `json:"as_of"`
	GeneratedAt time.Time `json:"generated_at"`

	ConceptsTracked   int `json:"concepts_tracked"`
	PredictionSamples int `json:"prediction_samples"`
	ClaimsConsidered  int `json:"claims_considered"`

	// PredictionAccuracy treats the pre-last-event confidence as a
	// prediction of the last event's outcome; SurpriseRate is its
	// complement over the same samples.
	PredictionAccuracy float64 `json:"prediction_accuracy"`
	SurpriseRate       float64 `json:"surprise_rate"`
	// Mean miss magnitudes, bucketed by direction.
	Overconfidence  float64 `json:"overconfidence"`
	Underconfidence float64 `json:"underconfidence"`

	StalePercentage  float64 `json:"stale_percentage"`
	ClaimCalibration float64 `json:"claim_calibration"`

	Recommendation string `json:"recommendation"`
}

func (s *CalibrationService) Calibrate(ctx context.Context, personID string, asOf time.Time) (*CalibrationReport, error) {
	if personID == "" {
		return nil, ErrPersonIDRequired
	}

	report := &CalibrationReport{
		PersonID:    personID,
		AsOf:        asOf,
		GeneratedAt: time.Now().UTC(),
	}

	conceptIDs, err := s.store.Verifications().ConceptIDsForPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	claims, err := s.store.Claims().ListForPerson(ctx, personID)
	if err != nil {
		return nil, err
	}

	if len(conceptIDs) == 0 && len(claims) == 0 {
		report.Recommendation = RecommendationNoData
		return report, nil
	}

	if err := s.trust.RefreshPerson(ctx, personID); err != nil {
		return nil, err
	}
	states, err := s.store.TrustStates().ListForPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	report.ConceptsTracked = len(states)

	directlyVerified := make(map[string]bool, len(conceptIDs))
	for _, id := range conceptIDs {
		directlyVerified[id] = true
	}

	s.scorePredictions(ctx, personID, conceptIDs, report)
	s.scoreStaleness(states, directlyVerified, asOf, report)
	if err := s.scoreClaims(ctx, claims, states, asOf, report); err != nil {
		return nil, err
	}

	report.Recommendation = recommend(report)

	s.logger.Debug("calibration computed",
		zap.String("person_id", personID),
		zap.Int("concepts", report.ConceptsTracked),
		zap.Int("samples", report.PredictionSamples),
		zap.Float64("accuracy", report.PredictionAccuracy),
		zap.Float64("stale_pct", report.StalePercentage),
		zap.String("recommendation", report.Recommendation))

	return report, nil
}

// scorePredictions: for each concept with at least two events, the
// confidence derived from all but the last event is the prediction, and the
// last event's result is the outcome. Partial outcomes are ambiguous and
// excluded from the sample.
func (s *CalibrationService) scorePredictions(ctx context.Context, personID string, conceptIDs []string, report *CalibrationReport) {
	var samples, matches int
	var overSum, underSum float64
	var overN, underN int

	for _, conceptID := range conceptIDs {
		history, err := s.store.Verifications().History(ctx, personID, conceptID)
		if err != nil || len(history) < 2 {
			continue
		}
		last := history[len(history)-1]
		if last.Result == domain.ResultPartial {
			continue
		}

		_, confidence := ComputeTrustFromHistory(history[:len(history)-1], nil)
		predictedSuccess := confidence >= PredictionSuccessThreshold

		samples++
		switch last.Result {
		case domain.ResultDemonstrated:
			if predictedSuccess {
				matches++
			} else {
				underSum += 1 - confidence
				underN++
			}
		case domain.ResultFailed:
			if !predictedSuccess {
				matches++
			} else {
				overSum += confidence
				overN++
			}
		}
	}

	report.PredictionSamples = samples
	if samples > 0 {
		report.PredictionAccuracy = float64(matches) / float64(samples)
		report.SurpriseRate = 1 - report.PredictionAccuracy
	}
	if overN > 0 {
		report.Overconfidence = overSum / float64(overN)
	}
	if underN > 0 {
		report.Underconfidence = underSum / float64(underN)
	}
}

// scoreStaleness: a concept is stale when unverified for over 60 days, or
// when it is inferred with no direct verification at all.
func (s *CalibrationService) scoreStaleness(states []domain.TrustState, directlyVerified map[string]bool, asOf time.Time, report *CalibrationReport) {
	if len(states) == 0 {
		return
	}
	stale := 0
	for i := range states {
		st := &states[i]
		switch {
		case st.LastVerified != nil && asOf.Sub(*st.LastVerified).Hours()/24 > StaleAfterDays:
			stale++
		case st.Level == domain.TrustInferred && !directlyVerified[st.ConceptID]:
			stale++
		}
	}
	report.StalePercentage = float64(stale) / float64(len(states))
}

// scoreClaims: claimCalibration = 1 − mean |claim − decayed evidence|
// across concepts with a live claim, floored at zero. The most recent
// non-retracted claim per concept counts.
func (s *CalibrationService) scoreClaims(ctx context.Context, claims []domain.ClaimEvent, states []domain.TrustState, asOf time.Time, report *CalibrationReport) error {
	byConcept := make(map[string]*domain.TrustState, len(states))
	for i := range states {
		byConcept[states[i].ConceptID] = &states[i]
	}

	latest := make(map[string]*domain.ClaimEvent)
	for i := range claims {
		c := &claims[i]
		if c.Retracted {
			continue
		}
		if prev, ok := latest[c.ConceptID]; !ok || c.Timestamp.After(prev.Timestamp) {
			latest[c.ConceptID] = c
		}
	}
	if len(latest) == 0 {
		return nil
	}

	var gapSum float64
	for conceptID, claim := range latest {
		decayed := 0.0
		if st, ok := byConcept[conceptID]; ok {
			dependents, err := s.store.Graph().CountDownstreamDependents(ctx, conceptID)
			if err != nil {
				return err
			}
			decayed = ComputeDecayedConfidence(st.Confidence, st.LastVerified, asOf, len(st.ModalitiesTested), dependents)
		}
		gapSum += abs(claim.SelfReportedConfidence - decayed)
	}

	report.ClaimsConsidered = len(latest)
	calibration := 1 - gapSum/float64(len(latest))
	if calibration < 0 {
		calibration = 0
	}
	report.ClaimCalibration = calibration
	return nil
}

// recommend maps the worst offending metric to one recommendation, in
// fixed priority order: staleness, overconfidence, underconfidence,
// surprise rate, claim miscalibration, insufficient data, nominal.
func recommend(r *CalibrationReport) string {
	switch {
	case r.StalePercentage > StalePercentageThreshold:
		return RecommendationStale
	case r.Overconfidence > OverconfidenceThreshold:
		return RecommendationOverconfident
	case r.Underconfidence > UnderconfidenceThreshold:
		return RecommendationUnderconfident
	case r.SurpriseRate > SurpriseRateThreshold:
		return RecommendationSurprising
	case r.ClaimsConsidered > 0 && r.ClaimCalibration < ClaimCalibrationThreshold:
		return RecommendationClaimsMisaligned
	case r.PredictionSamples < MinPredictionSamples:
		return RecommendationInsufficient
	default:
		return RecommendationNominal
	}
}

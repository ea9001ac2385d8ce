package service

import (
	"github.com/credence-core/credence/internal/domain"
)

// ModelVersion stamps every snapshot this binary derives. Bump whenever the
// scoring or propagation rules below change, so cached projections from an
// older model are recomputed instead of served.
const ModelVersion = 1

// TaxonomyVersion stamps the modality strength table in domain. Bump
// together with any edit to domain.ModalityStrengths.
const TaxonomyVersion = 1

const (
	// CrossModalityBonus is added per additional distinct modality among
	// demonstrated events.
	CrossModalityBonus = 0.1
	// PartialSuccessWeight is how much a partial counts toward the success
	// side of a contested ratio.
	PartialSuccessWeight = 0.5
	// PartialEvidenceBump is the flat bump when partials accompany
	// demonstrated successes.
	PartialEvidenceBump = 0.05
	// ContestedFloorConfidence is where a previously trusted concept lands
	// when only failures remain in its direct history.
	ContestedFloorConfidence = 0.2
)

// ComputeTrustFromHistory derives (level, confidence) for one concept from
// its non-retracted direct event history. prior is the state the concept
// held before this history segment was applied, or nil; it only matters for
// the failure-only branch, where a previously trusted concept degrades to
// contested while a never-trusted one stays untested. Failure alone does
// not prove negative knowledge from nothing; the events remain in the log
// for the calibration auditor even though the level refuses to move.
func ComputeTrustFromHistory(history []domain.VerificationEvent, prior *domain.TrustState) (domain.TrustLevel, float64) {
	var demonstrated, failed, partial []domain.VerificationEvent
	for i := range history {
		if history[i].Retracted {
			continue
		}
		switch history[i].Result {
		case domain.ResultDemonstrated:
			demonstrated = append(demonstrated, history[i])
		case domain.ResultFailed:
			failed = append(failed, history[i])
		case domain.ResultPartial:
			partial = append(partial, history[i])
		}
	}

	hasSuccess := len(demonstrated) > 0 || len(partial) > 0

	switch {
	case hasSuccess && len(failed) > 0:
		successWeight := float64(len(demonstrated)) + PartialSuccessWeight*float64(len(partial))
		confidence := successWeight / (successWeight + float64(len(failed)))
		confidence += demonstratedModalityBonus(demonstrated)
		return domain.TrustContested, clamp01(confidence)

	case hasSuccess:
		confidence := maxDemonstratedStrength(demonstrated)
		if len(demonstrated) == 0 {
			// Partial-only history: half credit for the strongest channel.
			confidence = PartialSuccessWeight * maxStrength(partial)
		}
		confidence += demonstratedModalityBonus(demonstrated)
		if len(partial) > 0 {
			confidence += PartialEvidenceBump
		}
		return domain.TrustVerified, clamp01(confidence)

	case len(failed) > 0:
		if prior == nil || prior.Level == domain.TrustUntested {
			return domain.TrustUntested, 0
		}
		return domain.TrustContested, ContestedFloorConfidence

	default:
		return domain.TrustUntested, 0
	}
}

// DistinctModalities counts distinct modalities among the given events.
func DistinctModalities(events []domain.VerificationEvent) int {
	seen := make(map[domain.Modality]struct{}, len(events))
	for i := range events {
		seen[events[i].Modality] = struct{}{}
	}
	return len(seen)
}

// demonstratedModalityBonus is CrossModalityBonus per additional distinct
// modality among demonstrated events.
func demonstratedModalityBonus(demonstrated []domain.VerificationEvent) float64 {
	n := DistinctModalities(demonstrated)
	if n <= 1 {
		return 0
	}
	return CrossModalityBonus * float64(n-1)
}

func maxDemonstratedStrength(demonstrated []domain.VerificationEvent) float64 {
	return maxStrength(demonstrated)
}

func maxStrength(events []domain.VerificationEvent) float64 {
	var max float64
	for i := range events {
		if s := events[i].Modality.Strength(); s > max {
			max = s
		}
	}
	return max
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

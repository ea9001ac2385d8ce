package service

import (
	"math"
	"time"
)

const (
	// BaseHalfLifeDays is the confidence half-life for a concept verified
	// through a single modality with nothing depending on it.
	BaseHalfLifeDays = 30.0
	// ModalityHalfLifeFactor widens the half-life per additional distinct
	// modality tested.
	ModalityHalfLifeFactor = 0.1
	// DependentHalfLifeDays is the additive slowdown per downstream
	// dependent. Foundational concepts decay more slowly.
	DependentHalfLifeDays = 2.0
)

// ComputeDecayedConfidence applies the exponential half-life model:
// decayed = confidence * 0.5^(daysSince/halfLife). Decay is computed at
// read time, never baked into stored snapshots. Out-of-range confidence is
// clamped; zero confidence stays zero; a nil or non-past lastVerified
// returns confidence unchanged. The result is monotonically non-increasing
// in elapsed time and never negative.
func ComputeDecayedConfidence(confidence float64, lastVerified *time.Time, asOf time.Time, modalityCount, dependentCount int) float64 {
	confidence = clamp01(confidence)
	if confidence == 0 || lastVerified == nil {
		return confidence
	}

	days := asOf.Sub(*lastVerified).Hours() / 24
	if days <= 0 {
		return confidence
	}

	return confidence * math.Pow(0.5, days/halfLifeDays(modalityCount, dependentCount))
}

func halfLifeDays(modalityCount, dependentCount int) float64 {
	if modalityCount < 1 {
		modalityCount = 1
	}
	if dependentCount < 0 {
		dependentCount = 0
	}
	return BaseHalfLifeDays*(1+ModalityHalfLifeFactor*float64(modalityCount-1)) +
		DependentHalfLifeDays*float64(dependentCount)
}

package service

import (
	"math"
	"testing"

	"github.com/credence-core/credence/internal/domain"
)

func ev(modality domain.Modality, result domain.VerificationResult) domain.VerificationEvent {
	return domain.VerificationEvent{Modality: modality, Result: result}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeTrustFromHistory(t *testing.T) {
	tests := []struct {
		name           string
		history        []domain.VerificationEvent
		prior          *domain.TrustState
		wantLevel      domain.TrustLevel
		wantConfidence float64
	}{
		{
			name:           "empty history",
			history:        nil,
			wantLevel:      domain.TrustUntested,
			wantConfidence: 0,
		},
		{
			name:           "single demonstrated takes modality strength",
			history:        []domain.VerificationEvent{ev(domain.ModalitySandboxIndependent, domain.ResultDemonstrated)},
			wantLevel:      domain.TrustVerified,
			wantConfidence: 0.80,
		},
		{
			name: "repeat demonstrations of one modality do not stack",
			history: []domain.VerificationEvent{
				ev(domain.ModalityGrillRecall, domain.ResultDemonstrated),
				ev(domain.ModalityGrillRecall, domain.ResultDemonstrated),
			},
			wantLevel:      domain.TrustVerified,
			wantConfidence: 0.30,
		},
		{
			name: "second modality adds cross-modality bonus",
			history: []domain.VerificationEvent{
				ev(domain.ModalityGrillRecall, domain.ResultDemonstrated),
				ev(domain.ModalityGrillExplain, domain.ResultDemonstrated),
			},
			wantLevel:      domain.TrustVerified,
			wantConfidence: 0.45 + CrossModalityBonus,
		},
		{
			name:           "partial-only earns half the strongest channel plus bump",
			history:        []domain.VerificationEvent{ev(domain.ModalitySandboxGuided, domain.ResultPartial)},
			wantLevel:      domain.TrustVerified,
			wantConfidence: PartialSuccessWeight*0.60 + PartialEvidenceBump,
		},
		{
			name: "mixed success and failure is contested at the weighted ratio",
			history: []domain.VerificationEvent{
				ev(domain.ModalityGrillRecall, domain.ResultDemonstrated),
				ev(domain.ModalityGrillRecall, domain.ResultFailed),
			},
			wantLevel:      domain.TrustContested,
			wantConfidence: 0.5,
		},
		{
			name: "partials weigh half on the success side of the ratio",
			history: []domain.VerificationEvent{
				ev(domain.ModalityGrillRecall, domain.ResultDemonstrated),
				ev(domain.ModalityGrillRecall, domain.ResultPartial),
				ev(domain.ModalityGrillRecall, domain.ResultFailed),
			},
			wantLevel:      domain.TrustContested,
			wantConfidence: 1.5 / 2.5,
		},
		{
			name:           "failure alone with no prior stays untested",
			history:        []domain.VerificationEvent{ev(domain.ModalityGrillRecall, domain.ResultFailed)},
			wantLevel:      domain.TrustUntested,
			wantConfidence: 0,
		},
		{
			name:           "failure alone degrades a previously verified concept",
			history:        []domain.VerificationEvent{ev(domain.ModalityGrillRecall, domain.ResultFailed)},
			prior:          &domain.TrustState{Level: domain.TrustVerified, Confidence: 0.8},
			wantLevel:      domain.TrustContested,
			wantConfidence: ContestedFloorConfidence,
		},
		{
			name: "retracted events are ignored",
			history: []domain.VerificationEvent{
				{Modality: domain.ModalityIntegratedUse, Result: domain.ResultDemonstrated, Retracted: true},
				ev(domain.ModalityGrillRecall, domain.ResultDemonstrated),
			},
			wantLevel:      domain.TrustVerified,
			wantConfidence: 0.30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, confidence := ComputeTrustFromHistory(tt.history, tt.prior)
			if level != tt.wantLevel {
				t.Errorf("level = %s, want %s", level, tt.wantLevel)
			}
			if !almostEqual(confidence, tt.wantConfidence) {
				t.Errorf("confidence = %v, want %v", confidence, tt.wantConfidence)
			}
		})
	}
}

func TestComputeTrustFromHistoryClamped(t *testing.T) {
	// Every modality demonstrated: max strength 0.95 plus eleven bonus
	// increments exceeds 1 and must clamp.
	var history []domain.VerificationEvent
	for m := range domain.ModalityStrengths {
		history = append(history, ev(m, domain.ResultDemonstrated))
	}

	level, confidence := ComputeTrustFromHistory(history, nil)
	if level != domain.TrustVerified {
		t.Fatalf("level = %s, want verified", level)
	}
	if confidence != 1 {
		t.Errorf("confidence = %v, want clamped to 1", confidence)
	}
}

func TestDistinctModalities(t *testing.T) {
	events := []domain.VerificationEvent{
		ev(domain.ModalityGrillRecall, domain.ResultDemonstrated),
		ev(domain.ModalityGrillRecall, domain.ResultDemonstrated),
		ev(domain.ModalityGrillExplain, domain.ResultDemonstrated),
	}
	if got := DistinctModalities(events); got != 2 {
		t.Errorf("DistinctModalities = %d, want 2", got)
	}
}

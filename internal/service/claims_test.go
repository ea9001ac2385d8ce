package service

import (
	"context"
	"errors"
	"testing"

	"github.com/credence-core/credence/internal/domain"
	"go.uber.org/zap"
)

func setupClaimTest() (*ClaimService, *TrustService, *mockStore) {
	st := newMockStore()
	projector := NewProjector(st, zap.NewNop())
	trust := NewTrustService(st, projector, zap.NewNop())
	return NewClaimService(st, trust, zap.NewNop()), trust, st
}

func TestRecordClaimValidation(t *testing.T) {
	svc, _, st := setupClaimTest()
	st.addConcept("goroutines")
	ctx := context.Background()

	tests := []struct {
		name    string
		input   ClaimInput
		wantErr error
	}{
		{"missing person", ClaimInput{ConceptID: "goroutines", SelfReportedConfidence: 0.5}, ErrPersonIDRequired},
		{"missing concept", ClaimInput{PersonID: "p1", SelfReportedConfidence: 0.5}, ErrConceptIDRequired},
		{"confidence below range", ClaimInput{PersonID: "p1", ConceptID: "goroutines", SelfReportedConfidence: -0.1}, ErrConfidenceOutOfRange},
		{"confidence above range", ClaimInput{PersonID: "p1", ConceptID: "goroutines", SelfReportedConfidence: 1.1}, ErrConfidenceOutOfRange},
		{"unknown concept", ClaimInput{PersonID: "p1", ConceptID: "monads", SelfReportedConfidence: 0.5}, ErrConceptNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordClaim(ctx, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecordClaimWithoutEvidence(t *testing.T) {
	svc, _, st := setupClaimTest()
	st.addConcept("goroutines")

	result, err := svc.RecordClaim(context.Background(), ClaimInput{
		PersonID:               "p1",
		ConceptID:              "goroutines",
		SelfReportedConfidence: 0.9,
	})
	if err != nil {
		t.Fatalf("record claim: %v", err)
	}

	if !result.Recorded {
		t.Error("claim should be recorded")
	}
	// A claim changes nothing about trust: the state stays untested and
	// the whole self-report is unbacked.
	if result.CurrentTrustState.Level != domain.TrustUntested {
		t.Errorf("level = %s, want untested", result.CurrentTrustState.Level)
	}
	if !almostEqual(result.CalibrationGap, 0.9) {
		t.Errorf("gap = %v, want 0.9", result.CalibrationGap)
	}
}

func TestRecordClaimAgainstEvidence(t *testing.T) {
	svc, trust, st := setupClaimTest()
	st.addConcept("goroutines")
	ctx := context.Background()

	if _, err := trust.RecordVerification(ctx, VerificationInput{
		PersonID:  "p1",
		ConceptID: "goroutines",
		Modality:  "sandbox:independent",
		Result:    "demonstrated",
	}); err != nil {
		t.Fatalf("record verification: %v", err)
	}

	result, err := svc.RecordClaim(ctx, ClaimInput{
		PersonID:               "p1",
		ConceptID:              "goroutines",
		SelfReportedConfidence: 0.9,
	})
	if err != nil {
		t.Fatalf("record claim: %v", err)
	}

	// Evidence sits at ~0.80 fresh, so claiming 0.9 overclaims by ~0.1.
	if result.CalibrationGap < 0.09 || result.CalibrationGap > 0.11 {
		t.Errorf("gap = %v, want ~0.1", result.CalibrationGap)
	}
	if result.CurrentTrustState.CalibrationGap == nil {
		t.Fatal("trust state should carry the gap once a claim exists")
	}

	// Subsequent trust reads expose the gap too.
	state, err := trust.GetTrustState(ctx, "p1", "goroutines", result.Claim.Timestamp)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.CalibrationGap == nil {
		t.Error("decorated state should include calibration gap")
	}
}

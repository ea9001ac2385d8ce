package domain

import (
	"time"

	"github.com/google/uuid"
)

// Modality is the channel through which understanding was tested. Each
// modality carries a fixed evidentiary strength; the set is versioned via
// the modality taxonomy version and must not be edited without a bump.
type Modality string

const (
	ModalityGrillRecall        Modality = "grill:recall"
	ModalityGrillExplain       Modality = "grill:explain"
	ModalityGrillApplication   Modality = "grill:application"
	ModalityGrillEdgeCase      Modality = "grill:edge-case"
	ModalityGrillTransfer      Modality = "grill:transfer"
	ModalitySandboxGuided      Modality = "sandbox:guided"
	ModalitySandboxIndependent Modality = "sandbox:independent"
	ModalitySandboxDebug       Modality = "sandbox:debug"
	ModalitySandboxExtend      Modality = "sandbox:extend"
	ModalityIntegratedUse      Modality = "integrated:use"
	ModalityIntegratedTeach    Modality = "integrated:teachback"
	ModalityExternalAttested   Modality = "external:attested"
)

// ModalityStrengths maps each modality to its evidentiary weight.
// Recall questions are weak evidence; observed integrated use is the
// strongest signal available.
var ModalityStrengths = map[Modality]float64{
	ModalityGrillRecall:        0.30,
	ModalityGrillExplain:       0.45,
	ModalityGrillApplication:   0.55,
	ModalityGrillEdgeCase:      0.60,
	ModalityGrillTransfer:      0.70,
	ModalitySandboxGuided:      0.60,
	ModalitySandboxIndependent: 0.80,
	ModalitySandboxDebug:       0.75,
	ModalitySandboxExtend:      0.85,
	ModalityIntegratedUse:      0.95,
	ModalityIntegratedTeach:    0.90,
	ModalityExternalAttested:   0.40,
}

func ValidModality(m string) bool {
	_, ok := ModalityStrengths[Modality(m)]
	return ok
}

func (m Modality) Strength() float64 {
	return ModalityStrengths[m]
}

// VerificationResult is the outcome of a verification attempt.
type VerificationResult string

const (
	ResultDemonstrated VerificationResult = "demonstrated"
	ResultFailed       VerificationResult = "failed"
	ResultPartial      VerificationResult = "partial"
)

func ValidVerificationResult(r string) bool {
	switch VerificationResult(r) {
	case ResultDemonstrated, ResultFailed, ResultPartial:
		return true
	}
	return false
}

// EventSource records whether the evidence came from inside the product or
// from an external attestation.
type EventSource string

const (
	SourceInternal EventSource = "internal"
	SourceExternal EventSource = "external"
)

func ValidEventSource(s string) bool {
	switch EventSource(s) {
	case SourceInternal, SourceExternal:
		return true
	}
	return false
}

// VerificationEvent is one appended observation of a person exercising a
// concept. Events are immutable; retraction marks them inactive, it never
// deletes them. Seq is assigned by the store on append and is strictly
// increasing across all events.
type VerificationEvent struct {
	ID             uuid.UUID          `json:"id"`
	Seq            int64              `json:"seq"`
	PersonID       string             `json:"person_id"`
	ConceptID      string             `json:"concept_id"`
	Modality       Modality           `json:"modality"`
	Result         VerificationResult `json:"result"`
	Context        string             `json:"context,omitempty"`
	Source         EventSource        `json:"source"`
	Timestamp      time.Time          `json:"timestamp"`
	Retracted      bool               `json:"retracted"`
	RetractedAt    *time.Time         `json:"retracted_at,omitempty"`
	RetractedBy    string             `json:"retracted_by,omitempty"`
	RetractionNote string             `json:"retraction_note,omitempty"`
}

// IsSuccess reports whether the event carries success-class evidence.
func (e *VerificationEvent) IsSuccess() bool {
	return e.Result == ResultDemonstrated || e.Result == ResultPartial
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// ClaimEvent is a self-reported confidence statement. Claims never move
// trust levels; they exist so the calibration gap between self-report and
// evidence can be measured.
type ClaimEvent struct {
	ID                     uuid.UUID  `json:"id"`
	PersonID               string     `json:"person_id"`
	ConceptID              string     `json:"concept_id"`
	SelfReportedConfidence float64    `json:"self_reported_confidence"`
	Context                string     `json:"context,omitempty"`
	Timestamp              time.Time  `json:"timestamp"`
	Retracted              bool       `json:"retracted"`
	RetractedAt            *time.Time `json:"retracted_at,omitempty"`
	RetractedBy            string     `json:"retracted_by,omitempty"`
	RetractionNote         string     `json:"retraction_note,omitempty"`
}

package domain

import "time"

// TrustLevel is the derived state of one (person, concept) pair.
type TrustLevel string

const (
	// TrustUntested: no evidence, or only failures with no prior success.
	TrustUntested TrustLevel = "untested"
	// TrustVerified: direct success-class evidence, no unresolved failures.
	TrustVerified TrustLevel = "verified"
	// TrustInferred: trust arrived only via propagation from other concepts.
	TrustInferred TrustLevel = "inferred"
	// TrustContested: confirming and disconfirming evidence coexist.
	TrustContested TrustLevel = "contested"
)

func ValidTrustLevel(l string) bool {
	switch TrustLevel(l) {
	case TrustUntested, TrustVerified, TrustInferred, TrustContested:
		return true
	}
	return false
}

// TrustState is derived, never hand-edited. A state with level inferred has
// non-empty InferredFrom; verified requires success-class direct history
// with no unresolved failures. Snapshots carry the event sequence and the
// version triple they were derived under; a snapshot is authoritative only
// while those stamps match the current scope and versions.
type TrustState struct {
	PersonID         string     `json:"person_id"`
	ConceptID        string     `json:"concept_id"`
	Level            TrustLevel `json:"level"`
	Confidence       float64    `json:"confidence"`
	LastVerified     *time.Time `json:"last_verified,omitempty"`
	InferredFrom     []string   `json:"inferred_from,omitempty"`
	ModalitiesTested []Modality `json:"modalities_tested,omitempty"`

	// Stamps set by the projector.
	DerivedFromSeq  int64 `json:"derived_from_seq"`
	GraphVersion    int   `json:"graph_version"`
	ModelVersion    int   `json:"model_version"`
	TaxonomyVersion int   `json:"taxonomy_version"`

	// Query-time only; never persisted.
	DecayedConfidence *float64 `json:"decayed_confidence,omitempty"`
	CalibrationGap    *float64 `json:"calibration_gap,omitempty"`
}

// HasModality reports whether the modality has been tested for this state.
func (s *TrustState) HasModality(m Modality) bool {
	for _, t := range s.ModalitiesTested {
		if t == m {
			return true
		}
	}
	return false
}

// Versions is the version triple in effect for derivation stamps.
// GraphVersion bumps on any structural graph change, ModelVersion on
// scoring-rule changes, TaxonomyVersion on modality taxonomy changes.
type Versions struct {
	GraphVersion    int `json:"graph_version"`
	ModelVersion    int `json:"model_version"`
	TaxonomyVersion int `json:"taxonomy_version"`
}

// StaleReason enumerates why a cached scope cannot be served as-is.
type StaleReason string

const (
	StaleNoCheckpoint      StaleReason = "no_checkpoint"
	StaleCheckpointBehind  StaleReason = "checkpoint_behind"
	StaleSnapshotMissing   StaleReason = "snapshot_missing"
	StaleSnapshotBehind    StaleReason = "snapshot_behind"
	StaleGraphVersionDrift StaleReason = "graph_version_drift"
	StaleModelVersionDrift StaleReason = "model_version_drift"
	StaleTaxonomyDrift     StaleReason = "taxonomy_version_drift"
	StalePendingProjection StaleReason = "pending_projection"
)

// Scope is the unit of cache invalidation: one concept or its whole
// connected component, for one person. Key is a stable hash of the sorted
// member ids, so any membership change yields a fresh checkpoint identity.
type Scope struct {
	Anchor     string   `json:"anchor"`
	ConceptIDs []string `json:"concept_ids"`
	Key        string   `json:"key"`
}

func (s *Scope) Contains(conceptID string) bool {
	for _, id := range s.ConceptIDs {
		if id == conceptID {
			return true
		}
	}
	return false
}

// ScopeFreshness is the verdict of comparing a scope's cache against the
// current event log and version triple.
type ScopeFreshness struct {
	Fresh         bool          `json:"fresh"`
	Reasons       []StaleReason `json:"reasons,omitempty"`
	LatestSeq     int64         `json:"latest_seq"`
	CheckpointSeq int64         `json:"checkpoint_seq"`
}

// ProjectionCheckpoint records the event sequence and versions a scope's
// snapshots were last rebuilt under.
type ProjectionCheckpoint struct {
	PersonID        string    `json:"person_id"`
	ScopeKey        string    `json:"scope_key"`
	Seq             int64     `json:"seq"`
	GraphVersion    int       `json:"graph_version"`
	ModelVersion    int       `json:"model_version"`
	TaxonomyVersion int       `json:"taxonomy_version"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ProjectionJobStatus is the lifecycle of a queued recompute.
type ProjectionJobStatus string

const (
	JobPending   ProjectionJobStatus = "pending"
	JobCompleted ProjectionJobStatus = "completed"
)

// ProjectionJob marks a scope dirty. Jobs are enqueued when events are
// appended and marked complete by the next successful projection of the
// scope; they carry no payload because projection always replays from
// scratch.
type ProjectionJob struct {
	ID          int64               `json:"id"`
	PersonID    string              `json:"person_id"`
	ScopeKey    string              `json:"scope_key"`
	Status      ProjectionJobStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

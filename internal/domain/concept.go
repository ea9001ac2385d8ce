package domain

import (
	"time"

	"github.com/google/uuid"
)

// EdgeType classifies how trust in the source concept bears on the target.
type EdgeType string

const (
	EdgePrerequisite EdgeType = "prerequisite"
	EdgeComponentOf  EdgeType = "component_of"
	EdgeRelatedTo    EdgeType = "related_to"
)

func ValidEdgeType(t string) bool {
	switch EdgeType(t) {
	case EdgePrerequisite, EdgeComponentOf, EdgeRelatedTo:
		return true
	}
	return false
}

// ConceptNode is a unit of the domain graph. Immutable once loaded; domain
// packs may add concepts but redefining an existing id's relationships
// requires a graph version bump.
type ConceptNode struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RelationshipEdge is a directed, weighted edge between concepts.
// InferenceStrength is how strongly trust in From implies trust in To,
// in (0, 1]. Propagation only flows along outgoing edges.
type RelationshipEdge struct {
	ID                uuid.UUID `json:"id"`
	From              string    `json:"from"`
	To                string    `json:"to"`
	Type              EdgeType  `json:"type"`
	InferenceStrength float64   `json:"inference_strength"`
	CreatedAt         time.Time `json:"created_at"`
}

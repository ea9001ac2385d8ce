package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type GraphStore interface {
	CreateConcept(ctx context.Context, c *ConceptNode) error
	GetConcept(ctx context.Context, id string) (*ConceptNode, error)
	ListConcepts(ctx context.Context) ([]ConceptNode, error)
	CreateEdge(ctx context.Context, e *RelationshipEdge) error
	ListEdges(ctx context.Context) ([]RelationshipEdge, error)
	GetEdgesFrom(ctx context.Context, conceptID string) ([]RelationshipEdge, error)
	GetEdgesTo(ctx context.Context, conceptID string) ([]RelationshipEdge, error)
	// CountDownstreamDependents counts concepts for which conceptID is a
	// prerequisite. Feeds the structural-importance term of decay.
	CountDownstreamDependents(ctx context.Context, conceptID string) (int, error)
}

type VerificationEventStore interface {
	Append(ctx context.Context, e *VerificationEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*VerificationEvent, error)
	// History returns non-retracted events for one (person, concept),
	// ordered by (timestamp, seq, id).
	History(ctx context.Context, personID, conceptID string) ([]VerificationEvent, error)
	// HistoryForConcepts returns non-retracted events across a concept set,
	// in the same deterministic order.
	HistoryForConcepts(ctx context.Context, personID string, conceptIDs []string) ([]VerificationEvent, error)
	// LatestSeq returns the highest sequence number among all events
	// (retracted included) for the concept set, or 0 when none exist.
	// Retracted events count so a checkpoint written after a
	// retraction-triggered rebuild stays comparable; the retraction itself
	// assigns no new seq, so its dirtiness is signaled by the pending
	// projection job it enqueues, not by this horizon.
	LatestSeq(ctx context.Context, personID string, conceptIDs []string) (int64, error)
	MarkRetracted(ctx context.Context, id uuid.UUID, by, note string, at time.Time) error
	// ConceptIDsForPerson lists every concept the person has non-retracted
	// events for.
	ConceptIDsForPerson(ctx context.Context, personID string) ([]string, error)
}

type ClaimStore interface {
	Append(ctx context.Context, c *ClaimEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClaimEvent, error)
	// Latest returns the most recent non-retracted claim for the pair, or
	// nil when none exists.
	Latest(ctx context.Context, personID, conceptID string) (*ClaimEvent, error)
	ListForPerson(ctx context.Context, personID string) ([]ClaimEvent, error)
	MarkRetracted(ctx context.Context, id uuid.UUID, by, note string, at time.Time) error
}

type TrustStateStore interface {
	Get(ctx context.Context, personID, conceptID string) (*TrustState, error)
	ListForPerson(ctx context.Context, personID string) ([]TrustState, error)
	GetForConcepts(ctx context.Context, personID string, conceptIDs []string) ([]TrustState, error)
	// ReplaceForScope deletes every snapshot for the concept set and writes
	// the given states. Callers run it inside WithTransaction so readers
	// never observe a partially rewritten scope.
	ReplaceForScope(ctx context.Context, personID string, conceptIDs []string, states []TrustState) error
}

type CheckpointStore interface {
	Get(ctx context.Context, personID, scopeKey string) (*ProjectionCheckpoint, error)
	Upsert(ctx context.Context, cp *ProjectionCheckpoint) error
}

type ProjectionJobStore interface {
	Enqueue(ctx context.Context, personID, scopeKey string) error
	// CompleteForScope marks all pending jobs for the scope done, returning
	// how many were closed.
	CompleteForScope(ctx context.Context, personID, scopeKey string, at time.Time) (int64, error)
	// CountPendingForScope reports open jobs for the scope. A non-zero
	// count marks the scope stale: an event or retraction committed but its
	// follow-up projection has not run yet.
	CountPendingForScope(ctx context.Context, personID, scopeKey string) (int64, error)
	ListPending(ctx context.Context, personID string) ([]ProjectionJob, error)
}

type VersionStore interface {
	Get(ctx context.Context) (*Versions, error)
	// BumpGraphVersion increments and returns the graph version. Called in
	// the same transaction as any structural graph write.
	BumpGraphVersion(ctx context.Context) (int, error)
	// EnsureDefaults seeds the version row with the binary's model and
	// taxonomy versions if absent, and bumps them if the binary is newer.
	EnsureDefaults(ctx context.Context, modelVersion, taxonomyVersion int) error
}

// Store is the storage contract the core depends on. The reference
// implementation is Postgres via pgx; any ordered, transactional store
// satisfies it.
type Store interface {
	Graph() GraphStore
	Verifications() VerificationEventStore
	Claims() ClaimStore
	TrustStates() TrustStateStore
	Checkpoints() CheckpointStore
	Jobs() ProjectionJobStore
	Versions() VersionStore

	// WithTransaction runs fn against a transaction-bound view of the
	// store, committing on nil and rolling back on error.
	WithTransaction(ctx context.Context, fn func(Store) error) error
}

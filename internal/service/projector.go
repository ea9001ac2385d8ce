package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/credence-core/credence/internal/domain"
	"go.uber.org/zap"
)

// Projector keeps cached trust snapshots consistent with the event log, the
// graph structure, and the version triple. It never patches incrementally:
// a stale scope is rebuilt from scratch by replaying its full ordered event
// history, so the cache is self-healing and can always be reconstructed.
type Projector struct {
	store  domain.Store
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewProjector(store domain.Store, logger *zap.Logger) *Projector {
	return &Projector{
		store:  store,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// WithPersonLock serializes append-then-recompute sequences for one person
// within this process. Each individual projection write is atomic on its
// own, but without this lock two concurrent writers in the same scope could
// race their replays and the later commit would briefly hide the earlier
// writer's event. Cross-process deployments need an external single-writer
// queue per person; this is the documented serialization boundary.
func (p *Projector) WithPersonLock(personID string, fn func() error) error {
	p.mu.Lock()
	lock, ok := p.locks[personID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[personID] = lock
	}
	p.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// ScopeForConcept resolves the connected component around anchor, closing
// over incoming and outgoing edges. The scope key hashes the sorted member
// ids, so any structural change to membership yields a new checkpoint
// identity and old checkpoints can never vouch for a reshaped component.
func (p *Projector) ScopeForConcept(ctx context.Context, anchor string) (*domain.Scope, error) {
	graph := p.store.Graph()

	visited := map[string]bool{anchor: true}
	queue := []string{anchor}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		out, err := graph.GetEdgesFrom(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve scope: edges from %s: %w", id, err)
		}
		in, err := graph.GetEdgesTo(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve scope: edges to %s: %w", id, err)
		}
		for _, e := range out {
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, e.To)
			}
		}
		for _, e := range in {
			if !visited[e.From] {
				visited[e.From] = true
				queue = append(queue, e.From)
			}
		}
	}

	ids := make([]string, 0, len(visited))
	for id := range visited {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return &domain.Scope{Anchor: anchor, ConceptIDs: ids, Key: ScopeKey(ids)}, nil
}

// ScopeKey is an fnv-64a hash of the sorted member ids.
func ScopeKey(sortedConceptIDs []string) string {
	h := fnv.New64a()
	for _, id := range sortedConceptIDs {
		_, _ = h.Write([]byte(id))
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Freshness compares the scope's cache against the current event log and
// versions, returning every reason it is stale. Staleness is never an
// error: it is the trigger for a deterministic rebuild.
func (p *Projector) Freshness(ctx context.Context, personID string, scope *domain.Scope) (*domain.ScopeFreshness, error) {
	latestSeq, err := p.store.Verifications().LatestSeq(ctx, personID, scope.ConceptIDs)
	if err != nil {
		return nil, err
	}
	versions, err := p.store.Versions().Get(ctx)
	if err != nil {
		return nil, err
	}

	f := &domain.ScopeFreshness{LatestSeq: latestSeq}

	// A retraction assigns no new seq, so an open job is the only trace of
	// a committed write whose projection has not landed yet.
	pending, err := p.store.Jobs().CountPendingForScope(ctx, personID, scope.Key)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		f.Reasons = append(f.Reasons, domain.StalePendingProjection)
	}

	cp, err := p.store.Checkpoints().Get(ctx, personID, scope.Key)
	if err != nil {
		return nil, err
	}
	switch {
	case cp == nil:
		if latestSeq > 0 {
			f.Reasons = append(f.Reasons, domain.StaleNoCheckpoint)
		}
	default:
		f.CheckpointSeq = cp.Seq
		if cp.Seq < latestSeq {
			f.Reasons = append(f.Reasons, domain.StaleCheckpointBehind)
		}
		if cp.GraphVersion != versions.GraphVersion {
			f.Reasons = append(f.Reasons, domain.StaleGraphVersionDrift)
		}
		if cp.ModelVersion != versions.ModelVersion {
			f.Reasons = append(f.Reasons, domain.StaleModelVersionDrift)
		}
		if cp.TaxonomyVersion != versions.TaxonomyVersion {
			f.Reasons = append(f.Reasons, domain.StaleTaxonomyDrift)
		}
	}

	snapshots, err := p.store.TrustStates().GetForConcepts(ctx, personID, scope.ConceptIDs)
	if err != nil {
		return nil, err
	}
	byConcept := make(map[string]*domain.TrustState, len(snapshots))
	for i := range snapshots {
		byConcept[snapshots[i].ConceptID] = &snapshots[i]
	}

	withEvents, err := p.conceptsWithEvents(ctx, personID, scope)
	if err != nil {
		return nil, err
	}
	for _, id := range withEvents {
		if _, ok := byConcept[id]; !ok {
			f.Reasons = appendReason(f.Reasons, domain.StaleSnapshotMissing)
		}
	}
	for _, snap := range byConcept {
		if snap.DerivedFromSeq < latestSeq {
			f.Reasons = appendReason(f.Reasons, domain.StaleSnapshotBehind)
		}
		if snap.GraphVersion != versions.GraphVersion {
			f.Reasons = appendReason(f.Reasons, domain.StaleGraphVersionDrift)
		}
		if snap.ModelVersion != versions.ModelVersion {
			f.Reasons = appendReason(f.Reasons, domain.StaleModelVersionDrift)
		}
		if snap.TaxonomyVersion != versions.TaxonomyVersion {
			f.Reasons = appendReason(f.Reasons, domain.StaleTaxonomyDrift)
		}
	}

	f.Fresh = len(f.Reasons) == 0
	return f, nil
}

// ProjectScope rebuilds a scope from scratch: gather the scope's
// non-retracted events, replay them in (timestamp, seq, id) order applying
// scoring per concept and propagation per event, then atomically replace
// every snapshot row, advance the checkpoint, and close queued projection
// jobs. Callers serialize via WithPersonLock.
func (p *Projector) ProjectScope(ctx context.Context, personID string, scope *domain.Scope) ([]domain.TrustState, error) {
	events, err := p.store.Verifications().HistoryForConcepts(ctx, personID, scope.ConceptIDs)
	if err != nil {
		return nil, err
	}
	latestSeq, err := p.store.Verifications().LatestSeq(ctx, personID, scope.ConceptIDs)
	if err != nil {
		return nil, err
	}
	versions, err := p.store.Versions().Get(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := p.scopeEdges(ctx, scope)
	if err != nil {
		return nil, err
	}

	states := Replay(personID, events, edges)

	now := time.Now().UTC()
	rows := make([]domain.TrustState, 0, len(states))
	for _, st := range states {
		st.DerivedFromSeq = latestSeq
		st.GraphVersion = versions.GraphVersion
		st.ModelVersion = versions.ModelVersion
		st.TaxonomyVersion = versions.TaxonomyVersion
		rows = append(rows, *st)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ConceptID < rows[j].ConceptID })

	err = p.store.WithTransaction(ctx, func(tx domain.Store) error {
		if err := tx.TrustStates().ReplaceForScope(ctx, personID, scope.ConceptIDs, rows); err != nil {
			return err
		}
		if err := tx.Checkpoints().Upsert(ctx, &domain.ProjectionCheckpoint{
			PersonID:        personID,
			ScopeKey:        scope.Key,
			Seq:             latestSeq,
			GraphVersion:    versions.GraphVersion,
			ModelVersion:    versions.ModelVersion,
			TaxonomyVersion: versions.TaxonomyVersion,
			UpdatedAt:       now,
		}); err != nil {
			return err
		}
		_, err := tx.Jobs().CompleteForScope(ctx, personID, scope.Key, now)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("project scope %s: %w", scope.Key, err)
	}

	p.logger.Debug("scope projected",
		zap.String("person_id", personID),
		zap.String("scope_key", scope.Key),
		zap.Int("concepts", len(scope.ConceptIDs)),
		zap.Int("events", len(events)),
		zap.Int("states", len(rows)),
		zap.Int64("seq", latestSeq))

	return rows, nil
}

// EnsureFresh returns the scope's snapshots, rebuilding first when any
// staleness reason fires.
func (p *Projector) EnsureFresh(ctx context.Context, personID string, scope *domain.Scope) ([]domain.TrustState, error) {
	freshness, err := p.Freshness(ctx, personID, scope)
	if err != nil {
		return nil, err
	}
	if freshness.Fresh {
		return p.store.TrustStates().GetForConcepts(ctx, personID, scope.ConceptIDs)
	}

	p.logger.Debug("scope stale, rebuilding",
		zap.String("person_id", personID),
		zap.String("scope_key", scope.Key),
		zap.Any("reasons", freshness.Reasons))

	var rows []domain.TrustState
	err = p.WithPersonLock(personID, func() error {
		var err error
		rows, err = p.ProjectScope(ctx, personID, scope)
		return err
	})
	return rows, err
}

// Replay folds the ordered event history into per-concept trust states,
// applying direct scoring then propagation for each event. Pure: callers
// own both inputs and the returned accumulator.
func Replay(personID string, events []domain.VerificationEvent, edges []domain.RelationshipEdge) map[string]*domain.TrustState {
	SortEvents(events)
	prop := NewPropagator(edges)

	states := make(map[string]*domain.TrustState)
	histories := make(map[string][]domain.VerificationEvent)

	for i := range events {
		ev := events[i]
		histories[ev.ConceptID] = append(histories[ev.ConceptID], ev)

		st := ensureState(states, personID, ev.ConceptID)
		level, confidence := ComputeTrustFromHistory(histories[ev.ConceptID], st)
		st.Level = level
		st.Confidence = confidence
		if ev.IsSuccess() {
			ts := ev.Timestamp
			st.LastVerified = &ts
		}
		if !st.HasModality(ev.Modality) {
			st.ModalitiesTested = append(st.ModalitiesTested, ev.Modality)
		}

		prop.Apply(&ev, st, states)
	}

	// Drop untouched zero states created only as propagation targets that
	// ended where they started; untested-with-no-history is represented by
	// the absence of a row.
	for id, st := range states {
		if st.Level == domain.TrustUntested && st.Confidence == 0 && len(histories[id]) == 0 {
			delete(states, id)
		}
	}
	return states
}

// SortEvents orders events by (timestamp, seq, id) for deterministic
// replay.
func SortEvents(events []domain.VerificationEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		if events[i].Seq != events[j].Seq {
			return events[i].Seq < events[j].Seq
		}
		return events[i].ID.String() < events[j].ID.String()
	})
}

func (p *Projector) scopeEdges(ctx context.Context, scope *domain.Scope) ([]domain.RelationshipEdge, error) {
	var edges []domain.RelationshipEdge
	for _, id := range scope.ConceptIDs {
		out, err := p.store.Graph().GetEdgesFrom(ctx, id)
		if err != nil {
			return nil, err
		}
		edges = append(edges, out...)
	}
	return edges, nil
}

func (p *Projector) conceptsWithEvents(ctx context.Context, personID string, scope *domain.Scope) ([]string, error) {
	all, err := p.store.Verifications().ConceptIDsForPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	var in []string
	for _, id := range all {
		if scope.Contains(id) {
			in = append(in, id)
		}
	}
	return in, nil
}

func appendReason(reasons []domain.StaleReason, r domain.StaleReason) []domain.StaleReason {
	for _, existing := range reasons {
		if existing == r {
			return reasons
		}
	}
	return append(reasons, r)
}

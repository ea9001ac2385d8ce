package service

import (
	"context"
	"sort"
	"time"

	"github.com/credence-core/credence/internal/domain"
	"github.com/credence-core/credence/internal/store"
	"github.com/google/uuid"
)

// mockStore is an in-memory domain.Store. It mirrors the pgx store's
// conventions: point reads return (nil, nil) on missing rows, event
// sequence numbers are assigned on append, and transactions run the
// callback against the same store.
type mockStore struct {
	concepts    map[string]*domain.ConceptNode
	edges       []domain.RelationshipEdge
	events      []domain.VerificationEvent
	claims      []domain.ClaimEvent
	states      map[string]map[string]domain.TrustState
	checkpoints map[string]domain.ProjectionCheckpoint
	jobs        []domain.ProjectionJob
	versions    domain.Versions
	nextSeq     int64
	nextJobID   int64
}

func newMockStore() *mockStore {
	return &mockStore{
		concepts:    make(map[string]*domain.ConceptNode),
		states:      make(map[string]map[string]domain.TrustState),
		checkpoints: make(map[string]domain.ProjectionCheckpoint),
		versions:    domain.Versions{GraphVersion: 1, ModelVersion: ModelVersion, TaxonomyVersion: TaxonomyVersion},
	}
}

func (m *mockStore) Graph() domain.GraphStore                     { return (*mockGraphStore)(m) }
func (m *mockStore) Verifications() domain.VerificationEventStore { return (*mockEventStore)(m) }
func (m *mockStore) Claims() domain.ClaimStore                    { return (*mockClaimStore)(m) }
func (m *mockStore) TrustStates() domain.TrustStateStore          { return (*mockTrustStateStore)(m) }
func (m *mockStore) Checkpoints() domain.CheckpointStore          { return (*mockCheckpointStore)(m) }
func (m *mockStore) Jobs() domain.ProjectionJobStore              { return (*mockJobStore)(m) }
func (m *mockStore) Versions() domain.VersionStore                { return (*mockVersionStore)(m) }

func (m *mockStore) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	return fn(m)
}

// Test seeding helpers.

func (m *mockStore) addConcept(id string) {
	m.concepts[id] = &domain.ConceptNode{ID: id, Name: id, CreatedAt: time.Now().UTC()}
}

func (m *mockStore) addEdge(from, to string, t domain.EdgeType, strength float64) {
	m.edges = append(m.edges, domain.RelationshipEdge{
		ID:                uuid.New(),
		From:              from,
		To:                to,
		Type:              t,
		InferenceStrength: strength,
		CreatedAt:         time.Now().UTC(),
	})
}

type mockGraphStore mockStore

func (m *mockGraphStore) CreateConcept(ctx context.Context, c *domain.ConceptNode) error {
	m.concepts[c.ID] = c
	return nil
}

func (m *mockGraphStore) GetConcept(ctx context.Context, id string) (*domain.ConceptNode, error) {
	return m.concepts[id], nil
}

func (m *mockGraphStore) ListConcepts(ctx context.Context) ([]domain.ConceptNode, error) {
	var out []domain.ConceptNode
	for _, c := range m.concepts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockGraphStore) CreateEdge(ctx context.Context, e *domain.RelationshipEdge) error {
	m.edges = append(m.edges, *e)
	return nil
}

func (m *mockGraphStore) ListEdges(ctx context.Context) ([]domain.RelationshipEdge, error) {
	return append([]domain.RelationshipEdge(nil), m.edges...), nil
}

func (m *mockGraphStore) GetEdgesFrom(ctx context.Context, conceptID string) ([]domain.RelationshipEdge, error) {
	var out []domain.RelationshipEdge
	for _, e := range m.edges {
		if e.From == conceptID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockGraphStore) GetEdgesTo(ctx context.Context, conceptID string) ([]domain.RelationshipEdge, error) {
	var out []domain.RelationshipEdge
	for _, e := range m.edges {
		if e.To == conceptID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockGraphStore) CountDownstreamDependents(ctx context.Context, conceptID string) (int, error) {
	count := 0
	for _, e := range m.edges {
		if e.From == conceptID && e.Type == domain.EdgePrerequisite {
			count++
		}
	}
	return count, nil
}

type mockEventStore mockStore

func (m *mockEventStore) Append(ctx context.Context, e *domain.VerificationEvent) error {
	m.nextSeq++
	e.Seq = m.nextSeq
	m.events = append(m.events, *e)
	return nil
}

func (m *mockEventStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.VerificationEvent, error) {
	for i := range m.events {
		if m.events[i].ID == id {
			e := m.events[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (m *mockEventStore) History(ctx context.Context, personID, conceptID string) ([]domain.VerificationEvent, error) {
	var out []domain.VerificationEvent
	for _, e := range m.events {
		if e.PersonID == personID && e.ConceptID == conceptID && !e.Retracted {
			out = append(out, e)
		}
	}
	SortEvents(out)
	return out, nil
}

func (m *mockEventStore) HistoryForConcepts(ctx context.Context, personID string, conceptIDs []string) ([]domain.VerificationEvent, error) {
	in := make(map[string]bool, len(conceptIDs))
	for _, id := range conceptIDs {
		in[id] = true
	}
	var out []domain.VerificationEvent
	for _, e := range m.events {
		if e.PersonID == personID && in[e.ConceptID] && !e.Retracted {
			out = append(out, e)
		}
	}
	SortEvents(out)
	return out, nil
}

func (m *mockEventStore) LatestSeq(ctx context.Context, personID string, conceptIDs []string) (int64, error) {
	in := make(map[string]bool, len(conceptIDs))
	for _, id := range conceptIDs {
		in[id] = true
	}
	var latest int64
	for _, e := range m.events {
		if e.PersonID == personID && in[e.ConceptID] && e.Seq > latest {
			latest = e.Seq
		}
	}
	return latest, nil
}

func (m *mockEventStore) MarkRetracted(ctx context.Context, id uuid.UUID, by, note string, at time.Time) error {
	for i := range m.events {
		if m.events[i].ID == id && !m.events[i].Retracted {
			m.events[i].Retracted = true
			m.events[i].RetractedAt = &at
			m.events[i].RetractedBy = by
			m.events[i].RetractionNote = note
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *mockEventStore) ConceptIDsForPerson(ctx context.Context, personID string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, e := range m.events {
		if e.PersonID == personID && !e.Retracted && !seen[e.ConceptID] {
			seen[e.ConceptID] = true
			out = append(out, e.ConceptID)
		}
	}
	sort.Strings(out)
	return out, nil
}

type mockClaimStore mockStore

func (m *mockClaimStore) Append(ctx context.Context, c *domain.ClaimEvent) error {
	m.claims = append(m.claims, *c)
	return nil
}

func (m *mockClaimStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ClaimEvent, error) {
	for i := range m.claims {
		if m.claims[i].ID == id {
			c := m.claims[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockClaimStore) Latest(ctx context.Context, personID, conceptID string) (*domain.ClaimEvent, error) {
	var latest *domain.ClaimEvent
	for i := range m.claims {
		c := m.claims[i]
		if c.PersonID != personID || c.ConceptID != conceptID || c.Retracted {
			continue
		}
		if latest == nil || c.Timestamp.After(latest.Timestamp) {
			latest = &c
		}
	}
	return latest, nil
}

func (m *mockClaimStore) ListForPerson(ctx context.Context, personID string) ([]domain.ClaimEvent, error) {
	var out []domain.ClaimEvent
	for _, c := range m.claims {
		if c.PersonID == personID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *mockClaimStore) MarkRetracted(ctx context.Context, id uuid.UUID, by, note string, at time.Time) error {
	for i := range m.claims {
		if m.claims[i].ID == id && !m.claims[i].Retracted {
			m.claims[i].Retracted = true
			m.claims[i].RetractedAt = &at
			m.claims[i].RetractedBy = by
			m.claims[i].RetractionNote = note
			return nil
		}
	}
	return store.ErrNotFound
}

type mockTrustStateStore mockStore

func (m *mockTrustStateStore) Get(ctx context.Context, personID, conceptID string) (*domain.TrustState, error) {
	if st, ok := m.states[personID][conceptID]; ok {
		return &st, nil
	}
	return nil, nil
}

func (m *mockTrustStateStore) ListForPerson(ctx context.Context, personID string) ([]domain.TrustState, error) {
	var out []domain.TrustState
	for _, st := range m.states[personID] {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConceptID < out[j].ConceptID })
	return out, nil
}

func (m *mockTrustStateStore) GetForConcepts(ctx context.Context, personID string, conceptIDs []string) ([]domain.TrustState, error) {
	var out []domain.TrustState
	for _, id := range conceptIDs {
		if st, ok := m.states[personID][id]; ok {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConceptID < out[j].ConceptID })
	return out, nil
}

func (m *mockTrustStateStore) ReplaceForScope(ctx context.Context, personID string, conceptIDs []string, states []domain.TrustState) error {
	byPerson := m.states[personID]
	if byPerson == nil {
		byPerson = make(map[string]domain.TrustState)
		m.states[personID] = byPerson
	}
	for _, id := range conceptIDs {
		delete(byPerson, id)
	}
	for _, st := range states {
		byPerson[st.ConceptID] = st
	}
	return nil
}

type mockCheckpointStore mockStore

func (m *mockCheckpointStore) Get(ctx context.Context, personID, scopeKey string) (*domain.ProjectionCheckpoint, error) {
	if cp, ok := m.checkpoints[personID+"|"+scopeKey]; ok {
		return &cp, nil
	}
	return nil, nil
}

func (m *mockCheckpointStore) Upsert(ctx context.Context, cp *domain.ProjectionCheckpoint) error {
	m.checkpoints[cp.PersonID+"|"+cp.ScopeKey] = *cp
	return nil
}

type mockJobStore mockStore

func (m *mockJobStore) Enqueue(ctx context.Context, personID, scopeKey string) error {
	m.nextJobID++
	m.jobs = append(m.jobs, domain.ProjectionJob{
		ID:        m.nextJobID,
		PersonID:  personID,
		ScopeKey:  scopeKey,
		Status:    domain.JobPending,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (m *mockJobStore) CompleteForScope(ctx context.Context, personID, scopeKey string, at time.Time) (int64, error) {
	var closed int64
	for i := range m.jobs {
		j := &m.jobs[i]
		if j.PersonID == personID && j.ScopeKey == scopeKey && j.Status == domain.JobPending {
			j.Status = domain.JobCompleted
			j.CompletedAt = &at
			closed++
		}
	}
	return closed, nil
}

func (m *mockJobStore) CountPendingForScope(ctx context.Context, personID, scopeKey string) (int64, error) {
	var n int64
	for _, j := range m.jobs {
		if j.PersonID == personID && j.ScopeKey == scopeKey && j.Status == domain.JobPending {
			n++
		}
	}
	return n, nil
}

func (m *mockJobStore) ListPending(ctx context.Context, personID string) ([]domain.ProjectionJob, error) {
	var out []domain.ProjectionJob
	for _, j := range m.jobs {
		if j.PersonID == personID && j.Status == domain.JobPending {
			out = append(out, j)
		}
	}
	return out, nil
}

type mockVersionStore mockStore

func (m *mockVersionStore) Get(ctx context.Context) (*domain.Versions, error) {
	v := m.versions
	return &v, nil
}

func (m *mockVersionStore) BumpGraphVersion(ctx context.Context) (int, error) {
	m.versions.GraphVersion++
	return m.versions.GraphVersion, nil
}

func (m *mockVersionStore) EnsureDefaults(ctx context.Context, modelVersion, taxonomyVersion int) error {
	if modelVersion > m.versions.ModelVersion {
		m.versions.ModelVersion = modelVersion
	}
	if taxonomyVersion > m.versions.TaxonomyVersion {
		m.versions.TaxonomyVersion = taxonomyVersion
	}
	return nil
}

var _ domain.Store = (*mockStore)(nil)

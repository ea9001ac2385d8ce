package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/credence-core/credence/internal/domain"
	"github.com/credence-core/credence/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore is a minimal in-memory domain.Store for exercising handlers
// through real services. Point reads return (nil, nil) on missing rows and
// transactions run the callback against the same store, matching the pgx
// implementation's conventions.
type fakeStore struct {
	concepts    map[string]*domain.ConceptNode
	events      []domain.VerificationEvent
	states      map[string][]domain.TrustState
	checkpoints map[string]domain.ProjectionCheckpoint
	pendingJobs map[string]int64
	nextSeq     int64
}

func newFakeStore(conceptIDs ...string) *fakeStore {
	f := &fakeStore{
		concepts:    make(map[string]*domain.ConceptNode),
		states:      make(map[string][]domain.TrustState),
		checkpoints: make(map[string]domain.ProjectionCheckpoint),
		pendingJobs: make(map[string]int64),
	}
	for _, id := range conceptIDs {
		f.concepts[id] = &domain.ConceptNode{ID: id, Name: id, CreatedAt: time.Now().UTC()}
	}
	return f
}

func (f *fakeStore) Graph() domain.GraphStore                     { return (*fakeGraph)(f) }
func (f *fakeStore) Verifications() domain.VerificationEventStore { return (*fakeEvents)(f) }
func (f *fakeStore) Claims() domain.ClaimStore                    { return (*fakeClaims)(f) }
func (f *fakeStore) TrustStates() domain.TrustStateStore          { return (*fakeStates)(f) }
func (f *fakeStore) Checkpoints() domain.CheckpointStore          { return (*fakeCheckpoints)(f) }
func (f *fakeStore) Jobs() domain.ProjectionJobStore              { return (*fakeJobs)(f) }
func (f *fakeStore) Versions() domain.VersionStore                { return (*fakeVersions)(f) }

func (f *fakeStore) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	return fn(f)
}

type fakeGraph fakeStore

func (f *fakeGraph) CreateConcept(ctx context.Context, c *domain.ConceptNode) error {
	f.concepts[c.ID] = c
	return nil
}

func (f *fakeGraph) GetConcept(ctx context.Context, id string) (*domain.ConceptNode, error) {
	return f.concepts[id], nil
}

func (f *fakeGraph) ListConcepts(ctx context.Context) ([]domain.ConceptNode, error) {
	var out []domain.ConceptNode
	for _, c := range f.concepts {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeGraph) CreateEdge(ctx context.Context, e *domain.RelationshipEdge) error { return nil }
func (f *fakeGraph) ListEdges(ctx context.Context) ([]domain.RelationshipEdge, error) {
	return nil, nil
}
func (f *fakeGraph) GetEdgesFrom(ctx context.Context, conceptID string) ([]domain.RelationshipEdge, error) {
	return nil, nil
}
func (f *fakeGraph) GetEdgesTo(ctx context.Context, conceptID string) ([]domain.RelationshipEdge, error) {
	return nil, nil
}
func (f *fakeGraph) CountDownstreamDependents(ctx context.Context, conceptID string) (int, error) {
	return 0, nil
}

type fakeEvents fakeStore

func (f *fakeEvents) Append(ctx context.Context, e *domain.VerificationEvent) error {
	f.nextSeq++
	e.Seq = f.nextSeq
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeEvents) GetByID(ctx context.Context, id uuid.UUID) (*domain.VerificationEvent, error) {
	return nil, nil
}

func (f *fakeEvents) History(ctx context.Context, personID, conceptID string) ([]domain.VerificationEvent, error) {
	return f.HistoryForConcepts(ctx, personID, []string{conceptID})
}

func (f *fakeEvents) HistoryForConcepts(ctx context.Context, personID string, conceptIDs []string) ([]domain.VerificationEvent, error) {
	in := make(map[string]bool, len(conceptIDs))
	for _, id := range conceptIDs {
		in[id] = true
	}
	var out []domain.VerificationEvent
	for _, e := range f.events {
		if e.PersonID == personID && in[e.ConceptID] && !e.Retracted {
			out = append(out, e)
		}
	}
	service.SortEvents(out)
	return out, nil
}

func (f *fakeEvents) LatestSeq(ctx context.Context, personID string, conceptIDs []string) (int64, error) {
	in := make(map[string]bool, len(conceptIDs))
	for _, id := range conceptIDs {
		in[id] = true
	}
	var max int64
	for _, e := range f.events {
		if e.PersonID == personID && in[e.ConceptID] && e.Seq > max {
			max = e.Seq
		}
	}
	return max, nil
}

func (f *fakeEvents) MarkRetracted(ctx context.Context, id uuid.UUID, by, note string, at time.Time) error {
	return nil
}

func (f *fakeEvents) ConceptIDsForPerson(ctx context.Context, personID string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, e := range f.events {
		if e.PersonID == personID && !e.Retracted && !seen[e.ConceptID] {
			seen[e.ConceptID] = true
			out = append(out, e.ConceptID)
		}
	}
	return out, nil
}

type fakeClaims fakeStore

func (f *fakeClaims) Append(ctx context.Context, c *domain.ClaimEvent) error { return nil }
func (f *fakeClaims) GetByID(ctx context.Context, id uuid.UUID) (*domain.ClaimEvent, error) {
	return nil, nil
}
func (f *fakeClaims) Latest(ctx context.Context, personID, conceptID string) (*domain.ClaimEvent, error) {
	return nil, nil
}
func (f *fakeClaims) ListForPerson(ctx context.Context, personID string) ([]domain.ClaimEvent, error) {
	return nil, nil
}
func (f *fakeClaims) MarkRetracted(ctx context.Context, id uuid.UUID, by, note string, at time.Time) error {
	return nil
}

type fakeStates fakeStore

func (f *fakeStates) Get(ctx context.Context, personID, conceptID string) (*domain.TrustState, error) {
	for _, st := range f.states[personID] {
		if st.ConceptID == conceptID {
			s := st
			return &s, nil
		}
	}
	return nil, nil
}

func (f *fakeStates) ListForPerson(ctx context.Context, personID string) ([]domain.TrustState, error) {
	return append([]domain.TrustState(nil), f.states[personID]...), nil
}

func (f *fakeStates) GetForConcepts(ctx context.Context, personID string, conceptIDs []string) ([]domain.TrustState, error) {
	in := make(map[string]bool, len(conceptIDs))
	for _, id := range conceptIDs {
		in[id] = true
	}
	var out []domain.TrustState
	for _, st := range f.states[personID] {
		if in[st.ConceptID] {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeStates) ReplaceForScope(ctx context.Context, personID string, conceptIDs []string, states []domain.TrustState) error {
	in := make(map[string]bool, len(conceptIDs))
	for _, id := range conceptIDs {
		in[id] = true
	}
	var kept []domain.TrustState
	for _, st := range f.states[personID] {
		if !in[st.ConceptID] {
			kept = append(kept, st)
		}
	}
	f.states[personID] = append(kept, states...)
	return nil
}

type fakeCheckpoints fakeStore

func (f *fakeCheckpoints) Get(ctx context.Context, personID, scopeKey string) (*domain.ProjectionCheckpoint, error) {
	cp, ok := f.checkpoints[personID+"|"+scopeKey]
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

func (f *fakeCheckpoints) Upsert(ctx context.Context, cp *domain.ProjectionCheckpoint) error {
	f.checkpoints[cp.PersonID+"|"+cp.ScopeKey] = *cp
	return nil
}

type fakeJobs fakeStore

func (f *fakeJobs) Enqueue(ctx context.Context, personID, scopeKey string) error {
	f.pendingJobs[personID+"|"+scopeKey]++
	return nil
}

func (f *fakeJobs) CompleteForScope(ctx context.Context, personID, scopeKey string, at time.Time) (int64, error) {
	n := f.pendingJobs[personID+"|"+scopeKey]
	delete(f.pendingJobs, personID+"|"+scopeKey)
	return n, nil
}

func (f *fakeJobs) CountPendingForScope(ctx context.Context, personID, scopeKey string) (int64, error) {
	return f.pendingJobs[personID+"|"+scopeKey], nil
}

func (f *fakeJobs) ListPending(ctx context.Context, personID string) ([]domain.ProjectionJob, error) {
	return nil, nil
}

type fakeVersions fakeStore

func (f *fakeVersions) Get(ctx context.Context) (*domain.Versions, error) {
	return &domain.Versions{
		GraphVersion:    1,
		ModelVersion:    service.ModelVersion,
		TaxonomyVersion: service.TaxonomyVersion,
	}, nil
}

func (f *fakeVersions) BumpGraphVersion(ctx context.Context) (int, error) { return 2, nil }
func (f *fakeVersions) EnsureDefaults(ctx context.Context, modelVersion, taxonomyVersion int) error {
	return nil
}

var _ domain.Store = (*fakeStore)(nil)

// testRouter mounts the verification and trust handlers the way the app
// router does, backed by the fake store.
func testRouter(st domain.Store) *chi.Mux {
	logger := zap.NewNop()
	projector := service.NewProjector(st, logger)
	trustSvc := service.NewTrustService(st, projector, logger)

	vh := NewVerificationHandler(trustSvc)
	th := NewTrustHandler(trustSvc)

	r := chi.NewRouter()
	r.Post("/v1/verifications", vh.Create)
	r.Route("/v1/people/{personID}", func(r chi.Router) {
		r.Get("/trust", th.List)
		r.Get("/trust/{conceptID}", th.Get)
	})
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestVerificationEndpointRoundTrip(t *testing.T) {
	r := testRouter(newFakeStore("goroutines"))

	rec := doJSON(t, r, http.MethodPost, "/v1/verifications", map[string]string{
		"person_id":  "p1",
		"concept_id": "goroutines",
		"modality":   "sandbox:independent",
		"result":     "demonstrated",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var state domain.TrustState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, domain.TrustVerified, state.Level)
	assert.InDelta(t, 0.80, state.Confidence, 1e-9)
	assert.NotNil(t, state.LastVerified)
	assert.NotNil(t, state.DecayedConfidence)
}

func TestVerificationEndpointErrorMapping(t *testing.T) {
	r := testRouter(newFakeStore("goroutines"))

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{
			name: "unknown modality",
			body: map[string]string{"person_id": "p1", "concept_id": "goroutines", "modality": "grill:vibes", "result": "demonstrated"},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown result",
			body: map[string]string{"person_id": "p1", "concept_id": "goroutines", "modality": "grill:recall", "result": "aced"},
			want: http.StatusBadRequest,
		},
		{
			name: "missing person",
			body: map[string]string{"concept_id": "goroutines", "modality": "grill:recall", "result": "demonstrated"},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown concept",
			body: map[string]string{"person_id": "p1", "concept_id": "monads", "modality": "grill:recall", "result": "demonstrated"},
			want: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, http.MethodPost, "/v1/verifications", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestVerificationEndpointRejectsMalformedBody(t *testing.T) {
	r := testRouter(newFakeStore("goroutines"))

	req := httptest.NewRequest(http.MethodPost, "/v1/verifications", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrustEndpointAsOfParsing(t *testing.T) {
	r := testRouter(newFakeStore("goroutines"))

	rec := doJSON(t, r, http.MethodPost, "/v1/verifications", map[string]string{
		"person_id":  "p1",
		"concept_id": "goroutines",
		"modality":   "sandbox:independent",
		"result":     "demonstrated",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodGet, "/v1/people/p1/trust/goroutines?asOf=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "malformed asOf must be rejected")

	// Pinning asOf far in the future reads through decay.
	future := time.Now().UTC().AddDate(1, 0, 0).Format(time.RFC3339)
	rec = doJSON(t, r, http.MethodGet, "/v1/people/p1/trust/goroutines?asOf="+future, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var state domain.TrustState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.InDelta(t, 0.80, state.Confidence, 1e-9, "stored confidence never bakes decay in")
	require.NotNil(t, state.DecayedConfidence)
	assert.Less(t, *state.DecayedConfidence, 0.01, "a year out the decayed confidence should be near zero")
}

func TestTrustListEmptyForUnknownPerson(t *testing.T) {
	r := testRouter(newFakeStore("goroutines"))

	rec := doJSON(t, r, http.MethodGet, "/v1/people/nobody/trust", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		PersonID string              `json:"person_id"`
		States   []domain.TrustState `json:"states"`
		Count    int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "nobody", resp.PersonID)
	assert.Empty(t, resp.States)
	assert.Zero(t, resp.Count)
}

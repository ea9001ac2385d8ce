package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/credence-core/credence/internal/domain"
	"github.com/credence-core/credence/internal/service"
	"github.com/go-chi/chi/v5"
)

type GraphHandler struct {
	svc *service.GraphService
}

func NewGraphHandler(svc *service.GraphService) *GraphHandler {
	return &GraphHandler{svc: svc}
}

func (h *GraphHandler) CreateConcept(w http.ResponseWriter, r *http.Request) {
	var req service.ConceptInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	concept, err := h.svc.CreateConcept(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConceptNameRequired):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrConceptExists):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create concept")
		}
		return
	}

	writeJSON(w, http.StatusCreated, concept)
}

func (h *GraphHandler) GetConcept(w http.ResponseWriter, r *http.Request) {
	concept, err := h.svc.GetConcept(r.Context(), chi.URLParam(r, "conceptID"))
	if err != nil {
		if errors.Is(err, service.ErrConceptNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get concept")
		return
	}

	writeJSON(w, http.StatusOK, concept)
}

type listConceptsResponse struct {
	Concepts []domain.ConceptNode `json:"concepts"`
	Count    int                  `json:"count"`
}

func (h *GraphHandler) ListConcepts(w http.ResponseWriter, r *http.Request) {
	concepts, err := h.svc.ListConcepts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list concepts")
		return
	}
	if concepts == nil {
		concepts = []domain.ConceptNode{}
	}

	writeJSON(w, http.StatusOK, listConceptsResponse{Concepts: concepts, Count: len(concepts)})
}

func (h *GraphHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var req service.EdgeInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	edge, err := h.svc.CreateEdge(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConceptIDRequired),
			errors.Is(err, service.ErrEdgeEndpointsEqual),
			errors.Is(err, service.ErrUnknownEdgeType),
			errors.Is(err, service.ErrStrengthOutOfRange):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrEdgeConceptNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create edge")
		}
		return
	}

	writeJSON(w, http.StatusCreated, edge)
}

type listEdgesResponse struct {
	Edges []domain.RelationshipEdge `json:"edges"`
	Count int                       `json:"count"`
}

func (h *GraphHandler) ListEdges(w http.ResponseWriter, r *http.Request) {
	edges, err := h.svc.ListEdges(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list edges")
		return
	}
	if edges == nil {
		edges = []domain.RelationshipEdge{}
	}

	writeJSON(w, http.StatusOK, listEdgesResponse{Edges: edges, Count: len(edges)})
}

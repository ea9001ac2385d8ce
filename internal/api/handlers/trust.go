package handlers

import (
	"errors"
	"net/http"

	"github.com/credence-core/credence/internal/domain"
	"github.com/credence-core/credence/internal/service"
	"github.com/go-chi/chi/v5"
)

type TrustHandler struct {
	svc *service.TrustService
}

func NewTrustHandler(svc *service.TrustService) *TrustHandler {
	return &TrustHandler{svc: svc}
}

type listTrustResponse struct {
	PersonID string              `json:"person_id"`
	States   []domain.TrustState `json:"states"`
	Count    int                 `json:"count"`
}

func (h *TrustHandler) List(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "personID")
	asOf, ok := parseAsOf(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "asOf must be RFC 3339")
		return
	}

	states, err := h.svc.ListTrustStates(r.Context(), personID, asOf)
	if err != nil {
		if errors.Is(err, service.ErrPersonIDRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list trust states")
		return
	}
	if states == nil {
		states = []domain.TrustState{}
	}

	writeJSON(w, http.StatusOK, listTrustResponse{
		PersonID: personID,
		States:   states,
		Count:    len(states),
	})
}

func (h *TrustHandler) Get(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "personID")
	conceptID := chi.URLParam(r, "conceptID")
	asOf, ok := parseAsOf(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "asOf must be RFC 3339")
		return
	}

	state, err := h.svc.GetTrustState(r.Context(), personID, conceptID, asOf)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPersonIDRequired),
			errors.Is(err, service.ErrConceptIDRequired):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrConceptNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to get trust state")
		}
		return
	}

	writeJSON(w, http.StatusOK, state)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/credence-core/credence/internal/service"
)

type ClaimHandler struct {
	svc *service.ClaimService
}

func NewClaimHandler(svc *service.ClaimService) *ClaimHandler {
	return &ClaimHandler{svc: svc}
}

func (h *ClaimHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.ClaimInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.RecordClaim(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPersonIDRequired),
			errors.Is(err, service.ErrConceptIDRequired),
			errors.Is(err, service.ErrConfidenceOutOfRange):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrConceptNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to record claim")
		}
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

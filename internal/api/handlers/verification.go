package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/credence-core/credence/internal/service"
)

type VerificationHandler struct {
	svc *service.TrustService
}

func NewVerificationHandler(svc *service.TrustService) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

func (h *VerificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.VerificationInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := h.svc.RecordVerification(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPersonIDRequired),
			errors.Is(err, service.ErrConceptIDRequired),
			errors.Is(err, service.ErrUnknownModality),
			errors.Is(err, service.ErrUnknownResult),
			errors.Is(err, service.ErrUnknownSource):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrConceptNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to record verification")
		}
		return
	}

	writeJSON(w, http.StatusCreated, state)
}

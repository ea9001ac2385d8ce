package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/credence-core/credence/internal/service"
	"github.com/google/uuid"
)

type RetractionHandler struct {
	svc *service.RetractionService
}

func NewRetractionHandler(svc *service.RetractionService) *RetractionHandler {
	return &RetractionHandler{svc: svc}
}

type retractionRequest struct {
	EventID     string     `json:"event_id"`
	EventType   string     `json:"event_type"`
	Reason      string     `json:"reason,omitempty"`
	RetractedBy string     `json:"retracted_by,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

func (h *RetractionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req retractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event_id")
		return
	}

	result, err := h.svc.RetractEvent(r.Context(), service.RetractionInput{
		EventID:     eventID,
		EventType:   req.EventType,
		Reason:      req.Reason,
		RetractedBy: req.RetractedBy,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		if errors.Is(err, service.ErrUnknownEventType) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to retract event")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

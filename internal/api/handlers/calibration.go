package handlers

import (
	"errors"
	"net/http"

	"github.com/credence-core/credence/internal/service"
	"github.com/go-chi/chi/v5"
)

type CalibrationHandler struct {
	svc *service.CalibrationService
}

func NewCalibrationHandler(svc *service.CalibrationService) *CalibrationHandler {
	return &CalibrationHandler{svc: svc}
}

func (h *CalibrationHandler) Get(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "personID")
	asOf, ok := parseAsOf(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "asOf must be RFC 3339")
		return
	}

	report, err := h.svc.Calibrate(r.Context(), personID, asOf)
	if err != nil {
		if errors.Is(err, service.ErrPersonIDRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to build calibration report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

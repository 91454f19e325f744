package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/gatewatch/internal/backend"
	"github.com/kozaktomas/gatewatch/internal/timesheet"
)

// AttendanceHandler serves check-ins, check-outs and daily summaries
type AttendanceHandler struct {
	svc    *timesheet.Service
	logger *slog.Logger
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(svc *timesheet.Service, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{svc: svc, logger: logger}
}

// Last returns the identity's attendance state
func (h *AttendanceHandler) Last(w http.ResponseWriter, r *http.Request) {
	ev, err := h.svc.LastEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, "last event", err)
		return
	}
	respondJSON(w, http.StatusOK, ev)
}

// In records a check-in
func (h *AttendanceHandler) In(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, ok := decodeRecordRequest(w, r)
	if !ok {
		return
	}
	res, err := h.svc.RecordIn(r.Context(), id, req.Name)
	if err != nil {
		h.respondServiceError(w, "record in", err)
		return
	}
	h.logger.Info("checked in", "id", sanitizeForLog(id), "entry", res.EntryNumber)
	respondJSON(w, http.StatusCreated, res)
}

// Out records a check-out
func (h *AttendanceHandler) Out(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, ok := decodeRecordRequest(w, r)
	if !ok {
		return
	}
	res, err := h.svc.RecordOut(r.Context(), id, req.Name)
	if err != nil {
		h.respondServiceError(w, "record out", err)
		return
	}
	h.logger.Info("checked out", "id", sanitizeForLog(id), "session", res.SessionDuration, "break", res.BreakType)
	respondJSON(w, http.StatusCreated, res)
}

// Summary returns today's attendance
func (h *AttendanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.DailySummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, "daily summary", err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// decodeRecordRequest accepts an empty body as a request without a name
func decodeRecordRequest(w http.ResponseWriter, r *http.Request) (backend.RecordRequest, bool) {
	var req backend.RecordRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return req, false
	}
	return req, true
}

func (h *AttendanceHandler) respondServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, timesheet.ErrIdentityNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, timesheet.ErrCooldown):
		respondError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, timesheet.ErrAlreadyIn), errors.Is(err, timesheet.ErrNotCheckedIn):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(op, "error", err)
		respondError(w, http.StatusInternalServerError, "attendance service failed")
	}
}

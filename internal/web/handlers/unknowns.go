package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/gatewatch/internal/backend"
	"github.com/kozaktomas/gatewatch/internal/constants"
	"github.com/kozaktomas/gatewatch/internal/sightings"
)

// UnknownsHandler serves the unknown sighting register
type UnknownsHandler struct {
	registry *sightings.Registry
	logger   *slog.Logger
}

// NewUnknownsHandler creates a new unknowns handler
func NewUnknownsHandler(registry *sightings.Registry, logger *slog.Logger) *UnknownsHandler {
	return &UnknownsHandler{registry: registry, logger: logger}
}

// Log records an unknown face, answering 201 for a new sighting and 200 for a repeat
func (h *UnknownsHandler) Log(w http.ResponseWriter, r *http.Request) {
	var report backend.UnknownReport
	if err := decodeJSON(w, r, &report); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	res, err := h.registry.LogUnknown(r.Context(), report)
	if err != nil {
		if errors.Is(err, sightings.ErrEmptyEmbedding) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("log unknown", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to log unknown")
		return
	}

	status := http.StatusOK
	if res.IsNew {
		status = http.StatusCreated
	}
	respondJSON(w, status, res)
}

// List returns the most recently seen sightings
func (h *UnknownsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := constants.DefaultSightingLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, constants.MaxSightingLimit)
	}

	result, err := h.registry.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list unknowns", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list unknowns")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Delete removes a sighting
func (h *UnknownsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.registry.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sightings.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("delete unknown", "id", sanitizeForLog(id), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete unknown")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

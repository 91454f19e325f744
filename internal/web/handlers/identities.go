package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/gatewatch/internal/backend"
	"github.com/kozaktomas/gatewatch/internal/database"
	"github.com/kozaktomas/gatewatch/internal/facematch"
)

// IdentitiesHandler serves the enrolled gallery
type IdentitiesHandler struct {
	repo   database.IdentityWriter
	logger *slog.Logger
}

// NewIdentitiesHandler creates a new identities handler
func NewIdentitiesHandler(repo database.IdentityWriter, logger *slog.Logger) *IdentitiesHandler {
	return &IdentitiesHandler{repo: repo, logger: logger}
}

// List returns every identity with its embedding
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	stored, err := h.repo.ListIdentities(r.Context())
	if err != nil {
		h.logger.Error("list identities", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list identities")
		return
	}

	result := make([]backend.Identity, 0, len(stored))
	for _, s := range stored {
		result = append(result, toAPIIdentity(s))
	}
	respondJSON(w, http.StatusOK, result)
}

// Create enrolls a new identity. Names must be unique after normalization.
func (h *IdentitiesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateIdentityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	name := facematch.CleanDisplayName(req.Name)
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Embedding) == 0 {
		respondError(w, http.StatusBadRequest, "embedding is required")
		return
	}

	existing, err := h.repo.ListIdentities(r.Context())
	if err != nil {
		h.logger.Error("list identities", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create identity")
		return
	}
	for _, e := range existing {
		if facematch.SameName(e.Name, name) {
			respondError(w, http.StatusConflict, "identity already exists")
			return
		}
		if len(e.Embedding) != len(req.Embedding) {
			respondError(w, http.StatusBadRequest, "embedding dimension does not match the gallery")
			return
		}
	}

	created, err := h.repo.CreateIdentity(r.Context(), name, req.Embedding)
	if err != nil {
		h.logger.Error("create identity", "name", sanitizeForLog(name), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create identity")
		return
	}
	h.logger.Info("identity enrolled", "id", created.ID, "name", sanitizeForLog(name))
	respondJSON(w, http.StatusCreated, toAPIIdentity(*created))
}

// Delete removes an identity together with its attendance history
func (h *IdentitiesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.DeleteIdentity(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "identity not found")
			return
		}
		h.logger.Error("delete identity", "id", sanitizeForLog(id), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete identity")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toAPIIdentity(s database.StoredIdentity) backend.Identity {
	return backend.Identity{
		ID:        s.ID,
		Name:      s.Name,
		Embedding: s.Embedding,
		CreatedAt: s.CreatedAt,
	}
}

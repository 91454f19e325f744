package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kozaktomas/gatewatch/internal/events"
	"github.com/kozaktomas/gatewatch/internal/monitor"
)

// Engine is the part of monitor.Monitor the status server controls
type Engine interface {
	Start(ctx context.Context) (*monitor.Session, error)
	Stop() error
	Status() monitor.Status
}

// MonitorHandler exposes the running engine to operators
type MonitorHandler struct {
	engine      Engine
	broadcaster *events.Broadcaster
	baseCtx     context.Context
	logger      *slog.Logger
}

// NewMonitorHandler creates a new monitor handler. Sessions started over HTTP
// live until baseCtx is cancelled or Stop is called.
func NewMonitorHandler(baseCtx context.Context, engine Engine, broadcaster *events.Broadcaster, logger *slog.Logger) *MonitorHandler {
	return &MonitorHandler{
		engine:      engine,
		broadcaster: broadcaster,
		baseCtx:     baseCtx,
		logger:      logger,
	}
}

// Status returns the latest engine status
func (h *MonitorHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Status())
}

// Start begins a monitoring session
func (h *MonitorHandler) Start(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.Start(h.baseCtx); err != nil {
		if errors.Is(err, monitor.ErrAlreadyRunning) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("start monitor", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to start monitor")
		return
	}
	respondJSON(w, http.StatusOK, h.engine.Status())
}

// Stop ends the current session and waits for an in-flight cycle
func (h *MonitorHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Stop(); err != nil {
		if errors.Is(err, monitor.ErrNotRunning) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("stop monitor", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to stop monitor")
		return
	}
	respondJSON(w, http.StatusOK, h.engine.Status())
}

// Events streams engine events over SSE
func (h *MonitorHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r, h.broadcaster, h.engine.Status())
}

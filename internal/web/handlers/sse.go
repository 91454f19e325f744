package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/kozaktomas/gatewatch/internal/events"
)

// sendSSEEvent writes a single server-sent event and flushes it
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}

// streamSSEEvents sends the initial payload as a "status" event, then forwards
// broadcast events until the client disconnects.
func streamSSEEvents(w http.ResponseWriter, r *http.Request, b *events.Broadcaster, initial any) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	eventCh := b.AddListener()
	defer b.RemoveListener(eventCh)

	sendSSEEvent(w, flusher, string(events.Status), initial)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, string(event.Type), event)
		}
	}
}

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Abhigyan126/Make-FaceDB/internal/batch"
)

// sendSSEEvent writes one server-sent event and flushes it.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload)
	flusher.Flush()
}

// Events streams the current run's events via SSE until the run reaches a
// terminal state or the client disconnects. The stream starts with a status
// snapshot; events emitted before the client connected are not replayed.
func (h *RunsHandler) Events(w http.ResponseWriter, r *http.Request) {
	run := h.Current()
	if run == nil {
		respondError(w, http.StatusNotFound, "no run has been started")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	eventCh := run.AddListener()
	defer run.RemoveListener(eventCh)

	sendSSEEvent(w, flusher, "status", run.Snapshot())

	if run.Terminal() {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, string(event.Type), event)
			if event.Type == batch.EventComplete {
				// Final status includes the result path set by aggregation.
				sendSSEEvent(w, flusher, "status", run.Snapshot())
				return
			}
		}
	}
}

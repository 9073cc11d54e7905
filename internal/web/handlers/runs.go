package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Abhigyan126/Make-FaceDB/internal/batch"
	"github.com/Abhigyan126/Make-FaceDB/internal/catalog"
	"github.com/Abhigyan126/Make-FaceDB/internal/constants"
	"github.com/Abhigyan126/Make-FaceDB/internal/pipeline"
)

// Run represents one folder processing run exposed over the API.
type Run struct {
	ID          string         `json:"id"`
	Folder      string         `json:"folder"`
	Status      pipeline.State `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	ResultPath  string         `json:"result_path,omitempty"`
	Error       string         `json:"error,omitempty"`

	mu        sync.RWMutex
	listeners []chan batch.Event
}

// Snapshot returns a copy of the run's public fields for JSON responses.
func (r *Run) Snapshot() Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Run{
		ID:          r.ID,
		Folder:      r.Folder,
		Status:      r.Status,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		ResultPath:  r.ResultPath,
		Error:       r.Error,
	}
}

// Terminal returns true once the run has finished.
func (r *Run) Terminal() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status == pipeline.StateCompleted || r.Status == pipeline.StateCancelled
}

// AddListener adds an event listener.
func (r *Run) AddListener() chan batch.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan batch.Event, constants.EventChannelBuffer)
	r.listeners = append(r.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (r *Run) RemoveListener(ch chan batch.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, listener := range r.listeners {
		if listener == ch {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// broadcast sends an event to all listeners. Listeners are best-effort
// observers; a full listener buffer drops the event for that listener only.
// The ordered, lossless channel is the one between the worker and the
// consumer loop, not the SSE fan-out.
func (r *Run) broadcast(event batch.Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, listener := range r.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// RunsHandler exposes run start/cancel/status and the event stream. It owns
// the consumer loop for web-initiated runs: one goroutine per run polls the
// controller at a fixed interval, fans events out to SSE listeners, and
// performs result aggregation when the completion event arrives.
type RunsHandler struct {
	controller *pipeline.Controller
	store      catalog.Store

	mu      sync.RWMutex
	current *Run
}

// NewRunsHandler creates a runs handler.
func NewRunsHandler(controller *pipeline.Controller, store catalog.Store) *RunsHandler {
	return &RunsHandler{controller: controller, store: store}
}

// Current returns the current (or most recent) run, or nil.
func (h *RunsHandler) Current() *Run {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// StartRequest is the request body for starting a run.
type StartRequest struct {
	Folder string `json:"folder"`
}

// Start starts a new run over a folder.
func (h *RunsHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Folder == "" {
		respondError(w, http.StatusBadRequest, "folder is required")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.controller.Start(req.Folder); err != nil {
		if err == pipeline.ErrAlreadyRunning {
			respondError(w, http.StatusConflict, "a run is already in progress")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	run := &Run{
		ID:        uuid.NewString(),
		Folder:    req.Folder,
		Status:    pipeline.StateRunning,
		StartedAt: time.Now(),
	}
	h.current = run
	log.Printf("Started run %s for folder %s", run.ID, sanitizeForLog(req.Folder))

	go h.consume(run)

	respondJSON(w, http.StatusAccepted, run.Snapshot())
}

// consume is the consumer loop for one run: it drains controller events at a
// fixed poll interval until the completion event, then aggregates results.
func (h *RunsHandler) consume(run *Run) {
	ticker := time.NewTicker(constants.PollInterval)
	defer ticker.Stop()

	for range ticker.C {
		for _, event := range h.controller.Poll() {
			if event.Type == batch.EventComplete {
				// Aggregate before notifying so listeners see the final
				// status (result path, errors) when the complete event lands.
				h.finishRun(run)
				run.broadcast(event)
				return
			}
			run.broadcast(event)
		}
	}
}

// finishRun performs the terminal aggregation step: write the result file,
// persist the catalog, and record the run outcome. The completion event has
// been observed, so catalog and output ownership is back on this side.
func (h *RunsHandler) finishRun(run *Run) {
	var resultPath, runErr string

	path, err := batch.WriteResults(h.controller.Folder(), h.controller.Output())
	if err != nil {
		runErr = fmt.Sprintf("writing results: %v", err)
	} else {
		resultPath = path
	}

	if err := h.store.Save(context.Background(), h.controller.Catalog().Records()); err != nil {
		if runErr != "" {
			runErr += "; "
		}
		runErr += fmt.Sprintf("saving catalog: %v", err)
	}

	now := time.Now()
	run.mu.Lock()
	run.Status = h.controller.State()
	run.CompletedAt = &now
	run.ResultPath = resultPath
	run.Error = runErr
	run.mu.Unlock()
}

// Status returns the current run.
func (h *RunsHandler) Status(w http.ResponseWriter, r *http.Request) {
	run := h.Current()
	if run == nil {
		respondError(w, http.StatusNotFound, "no run has been started")
		return
	}
	respondJSON(w, http.StatusOK, run.Snapshot())
}

// Cancel requests cancellation of the current run. Cancellation is advisory:
// the worker stops at its next per-image boundary and completion still follows.
func (h *RunsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	run := h.Current()
	if run == nil || run.Terminal() {
		respondError(w, http.StatusNotFound, "no run in progress")
		return
	}

	h.controller.Cancel()
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "cancel requested"})
}

package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Abhigyan126/Make-FaceDB/internal/batch"
	"github.com/Abhigyan126/Make-FaceDB/internal/pipeline"
)

func startRun(t *testing.T, handler *RunsHandler, folder string) *Run {
	t.Helper()

	body := bytes.NewBufferString(`{"folder": "` + folder + `"}`)
	req := httptest.NewRequest("POST", "/api/v1/runs", body)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler.Start(recorder, req)

	assertStatusCode(t, recorder, http.StatusAccepted)

	run := handler.Current()
	if run == nil {
		t.Fatal("expected a current run after start")
	}
	return run
}

func TestRunsHandler_Start_Success(t *testing.T) {
	emb := &fakeEmbedder{embeddings: [][]float32{{1, 0, 0, 0}}}
	store := &memoryStore{}
	handler := NewRunsHandler(testController(emb), store)
	folder := makeImageFolder(t, 2)

	run := startRun(t, handler, folder)

	if run.ID == "" {
		t.Error("expected non-empty run id")
	}
	if run.Folder != folder {
		t.Errorf("expected folder '%s', got '%s'", folder, run.Folder)
	}

	waitForTerminal(t, run)

	snapshot := run.Snapshot()
	if snapshot.Status != pipeline.StateCompleted {
		t.Errorf("expected status '%s', got '%s'", pipeline.StateCompleted, snapshot.Status)
	}
	if snapshot.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
	if snapshot.Error != "" {
		t.Errorf("expected no run error, got '%s'", snapshot.Error)
	}

	expectedPath := filepath.Join(folder, batch.ResultFileName)
	if snapshot.ResultPath != expectedPath {
		t.Errorf("expected result path '%s', got '%s'", expectedPath, snapshot.ResultPath)
	}
	if _, err := os.Stat(expectedPath); err != nil {
		t.Errorf("expected result file to exist: %v", err)
	}

	if store.saveCount() != 1 {
		t.Errorf("expected 1 catalog save, got %d", store.saveCount())
	}
}

func TestRunsHandler_Start_InvalidBody(t *testing.T) {
	handler := NewRunsHandler(testController(&fakeEmbedder{}), &memoryStore{})

	req := httptest.NewRequest("POST", "/api/v1/runs", bytes.NewBufferString("not json"))
	recorder := httptest.NewRecorder()

	handler.Start(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, errInvalidRequestBody)
}

func TestRunsHandler_Start_MissingFolder(t *testing.T) {
	handler := NewRunsHandler(testController(&fakeEmbedder{}), &memoryStore{})

	req := httptest.NewRequest("POST", "/api/v1/runs", bytes.NewBufferString(`{}`))
	recorder := httptest.NewRecorder()

	handler.Start(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "folder is required")
}

func TestRunsHandler_Start_Conflict(t *testing.T) {
	emb := &fakeEmbedder{embeddings: [][]float32{{1, 0, 0, 0}}, block: make(chan struct{})}
	handler := NewRunsHandler(testController(emb), &memoryStore{})
	folder := makeImageFolder(t, 1)

	run := startRun(t, handler, folder)

	body := bytes.NewBufferString(`{"folder": "` + folder + `"}`)
	req := httptest.NewRequest("POST", "/api/v1/runs", body)
	recorder := httptest.NewRecorder()

	handler.Start(recorder, req)

	assertStatusCode(t, recorder, http.StatusConflict)
	assertJSONError(t, recorder, "a run is already in progress")

	// The first run must be unaffected by the rejected start.
	if got := handler.Current(); got != run {
		t.Error("expected the first run to remain current")
	}

	close(emb.block)
	waitForTerminal(t, run)
}

func TestRunsHandler_Status_NoRun(t *testing.T) {
	handler := NewRunsHandler(testController(&fakeEmbedder{}), &memoryStore{})

	req := httptest.NewRequest("GET", "/api/v1/runs/current", nil)
	recorder := httptest.NewRecorder()

	handler.Status(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "no run has been started")
}

func TestRunsHandler_Status_AfterCompletion(t *testing.T) {
	emb := &fakeEmbedder{embeddings: [][]float32{{1, 0, 0, 0}}}
	handler := NewRunsHandler(testController(emb), &memoryStore{})
	folder := makeImageFolder(t, 1)

	run := startRun(t, handler, folder)
	waitForTerminal(t, run)

	req := httptest.NewRequest("GET", "/api/v1/runs/current", nil)
	recorder := httptest.NewRecorder()

	handler.Status(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var result Run
	parseJSONResponse(t, recorder, &result)
	if result.Status != pipeline.StateCompleted {
		t.Errorf("expected status '%s', got '%s'", pipeline.StateCompleted, result.Status)
	}
	if result.ResultPath == "" {
		t.Error("expected result path in status response")
	}
}

func TestRunsHandler_Cancel_NoRun(t *testing.T) {
	handler := NewRunsHandler(testController(&fakeEmbedder{}), &memoryStore{})

	req := httptest.NewRequest("DELETE", "/api/v1/runs/current", nil)
	recorder := httptest.NewRecorder()

	handler.Cancel(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "no run in progress")
}

func TestRunsHandler_Cancel_Running(t *testing.T) {
	emb := &fakeEmbedder{embeddings: [][]float32{{1, 0, 0, 0}}, block: make(chan struct{})}
	store := &memoryStore{}
	handler := NewRunsHandler(testController(emb), store)
	folder := makeImageFolder(t, 3)

	run := startRun(t, handler, folder)

	req := httptest.NewRequest("DELETE", "/api/v1/runs/current", nil)
	recorder := httptest.NewRecorder()

	handler.Cancel(recorder, req)

	assertStatusCode(t, recorder, http.StatusAccepted)

	close(emb.block)
	waitForTerminal(t, run)

	snapshot := run.Snapshot()
	if snapshot.Status != pipeline.StateCancelled {
		t.Errorf("expected status '%s', got '%s'", pipeline.StateCancelled, snapshot.Status)
	}

	// Partial results and the catalog are still persisted on cancellation.
	if snapshot.ResultPath == "" {
		t.Error("expected result path after cancelled run")
	}
	if store.saveCount() != 1 {
		t.Errorf("expected 1 catalog save, got %d", store.saveCount())
	}
}

func TestRunsHandler_Cancel_Terminal(t *testing.T) {
	emb := &fakeEmbedder{embeddings: [][]float32{{1, 0, 0, 0}}}
	handler := NewRunsHandler(testController(emb), &memoryStore{})

	run := startRun(t, handler, makeImageFolder(t, 1))
	waitForTerminal(t, run)

	req := httptest.NewRequest("DELETE", "/api/v1/runs/current", nil)
	recorder := httptest.NewRecorder()

	handler.Cancel(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestRunsHandler_Events_NoRun(t *testing.T) {
	handler := NewRunsHandler(testController(&fakeEmbedder{}), &memoryStore{})

	req := httptest.NewRequest("GET", "/api/v1/runs/current/events", nil)
	recorder := httptest.NewRecorder()

	handler.Events(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestRunsHandler_Events_TerminalRunSendsSnapshot(t *testing.T) {
	emb := &fakeEmbedder{embeddings: [][]float32{{1, 0, 0, 0}}}
	handler := NewRunsHandler(testController(emb), &memoryStore{})

	run := startRun(t, handler, makeImageFolder(t, 1))
	waitForTerminal(t, run)

	req := httptest.NewRequest("GET", "/api/v1/runs/current/events", nil)
	recorder := httptest.NewRecorder()

	handler.Events(recorder, req)

	contentType := recorder.Header().Get("Content-Type")
	if contentType != "text/event-stream" {
		t.Errorf("expected Content-Type 'text/event-stream', got '%s'", contentType)
	}

	body := recorder.Body.String()
	if !strings.HasPrefix(body, "event: status\n") {
		t.Errorf("expected stream to start with a status event, got: %s", body)
	}
	if !strings.Contains(body, `"status":"completed"`) {
		t.Errorf("expected completed status in snapshot, got: %s", body)
	}
}

func TestRun_BroadcastSkipsFullListeners(t *testing.T) {
	run := &Run{}
	ch := run.AddListener()

	// Fill the listener buffer, then broadcast one more event.
	for i := 0; i < cap(ch); i++ {
		run.broadcast(batch.LogEvent("fill"))
	}
	run.broadcast(batch.LogEvent("dropped"))

	if len(ch) != cap(ch) {
		t.Errorf("expected a full buffer of %d events, got %d", cap(ch), len(ch))
	}

	run.RemoveListener(ch)
	run.broadcast(batch.LogEvent("after remove")) // must not panic
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Abhigyan126/Make-FaceDB/internal/catalog"
	"github.com/Abhigyan126/Make-FaceDB/internal/pipeline"
)

// fakeEmbedder returns canned embeddings and optionally blocks every call
// until the block channel is closed, so tests can hold a run in the running
// state while they probe handlers.
type fakeEmbedder struct {
	mu         sync.Mutex
	embeddings [][]float32
	err        error
	block      chan struct{}
	calls      int
}

func (f *fakeEmbedder) DetectAndEmbed(ctx context.Context, imageData []byte) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.embeddings, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memoryStore records every Save call and can be told to fail.
type memoryStore struct {
	mu       sync.Mutex
	saved    [][]catalog.Record
	failSave bool
}

func (m *memoryStore) Load(ctx context.Context) ([]catalog.Record, error) {
	return nil, nil
}

func (m *memoryStore) Save(ctx context.Context, records []catalog.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("store unavailable")
	}
	m.saved = append(m.saved, records)
	return nil
}

func (m *memoryStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

// testMatcher returns the matcher used across handler tests.
func testMatcher() catalog.Matcher {
	return catalog.Matcher{Metric: catalog.MetricEuclidean, Threshold: 0.6}
}

// testController wires a controller around a fake embedder and a fresh catalog.
func testController(emb *fakeEmbedder) *pipeline.Controller {
	return pipeline.New(emb, catalog.New(testMatcher()))
}

// makeImageFolder creates a temp folder with the given number of image files.
func makeImageFolder(t *testing.T, count int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < count; i++ {
		name := filepath.Join(dir, fmt.Sprintf("photo%d.jpg", i))
		if err := os.WriteFile(name, []byte(fmt.Sprintf("image-%d", i)), 0600); err != nil {
			t.Fatalf("failed to write test image: %v", err)
		}
	}
	return dir
}

// waitForTerminal waits until the run reaches a terminal state.
func waitForTerminal(t *testing.T, run *Run) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if run.Terminal() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run did not reach a terminal state in time")
}

// multipartImageBody builds a multipart body with a single "file" part.
func multipartImageBody(t *testing.T, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "query.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Abhigyan126/Make-FaceDB/internal/batch"
	"github.com/Abhigyan126/Make-FaceDB/internal/catalog"
)

// blockingEmbedder returns one face per image and can be made to block until
// released, to hold a run open while the test inspects controller state. It
// honors the request context the way the real HTTP client does, and closes
// started on its first call so tests can synchronize with the worker.
type blockingEmbedder struct {
	mu      sync.Mutex
	block   chan struct{}
	started chan struct{}
	calls   int
	failAll bool
}

func (b *blockingEmbedder) DetectAndEmbed(ctx context.Context, imageData []byte) ([][]float32, error) {
	b.mu.Lock()
	b.calls++
	if b.calls == 1 && b.started != nil {
		close(b.started)
	}
	block := b.block
	b.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.failAll {
		return nil, errors.New("embedding failure")
	}
	// A distinct face per image so every image registers a new identity.
	return [][]float32{{float32(len(imageData)), 0, 0}}, nil
}

func newController(emb *blockingEmbedder) *Controller {
	cat := catalog.New(catalog.Matcher{Metric: catalog.MetricEuclidean, Threshold: 0.1})
	return New(emb, cat)
}

func makeFolder(t *testing.T, names ...string) string {
	t.Helper()
	folder := t.TempDir()
	for i, name := range names {
		content := make([]byte, i+1)
		if err := os.WriteFile(filepath.Join(folder, name), content, 0600); err != nil {
			t.Fatal(err)
		}
	}
	return folder
}

// drain polls until the completion event arrives or the deadline passes.
func drain(t *testing.T, ctrl *Controller) []batch.Event {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var all []batch.Event
	for time.Now().Before(deadline) {
		evs := ctrl.Poll()
		all = append(all, evs...)
		for _, e := range evs {
			if e.Type == batch.EventComplete {
				return all
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run did not complete; events so far: %v", all)
	return nil
}

func TestController_StartToCompletion(t *testing.T) {
	folder := makeFolder(t, "a.jpg", "b.jpg")
	ctrl := newController(&blockingEmbedder{})

	if ctrl.State() != StateIdle {
		t.Errorf("expected initial state idle, got %s", ctrl.State())
	}

	if err := ctrl.Start(folder); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	events := drain(t, ctrl)

	if ctrl.State() != StateCompleted {
		t.Errorf("expected state completed, got %s", ctrl.State())
	}
	if events[len(events)-1].Type != batch.EventComplete {
		t.Error("expected completion event last")
	}
	if len(ctrl.Output().Images) != 2 {
		t.Errorf("expected 2 image results, got %d", len(ctrl.Output().Images))
	}
	if ctrl.Folder() != folder {
		t.Errorf("expected folder %s, got %s", folder, ctrl.Folder())
	}
}

func TestController_StartWhileRunning(t *testing.T) {
	folder := makeFolder(t, "a.jpg")
	emb := &blockingEmbedder{block: make(chan struct{})}
	ctrl := newController(emb)

	if err := ctrl.Start(folder); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	err := ctrl.Start(folder)
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
	if ctrl.State() != StateRunning {
		t.Errorf("expected the first run to be unaffected, state is %s", ctrl.State())
	}

	close(emb.block)
	drain(t, ctrl)

	// A new run is allowed once the previous one completed.
	if err := ctrl.Start(folder); err != nil {
		t.Errorf("expected start to succeed after completion, got %v", err)
	}
	drain(t, ctrl)
}

func TestController_Cancel(t *testing.T) {
	folder := makeFolder(t, "a.jpg", "b.jpg", "c.jpg")
	emb := &blockingEmbedder{block: make(chan struct{}), started: make(chan struct{})}
	ctrl := newController(emb)

	if err := ctrl.Start(folder); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Cancel only once the first embedding call is in flight.
	<-emb.started
	ctrl.Cancel()
	close(emb.block)

	events := drain(t, ctrl)

	if ctrl.State() != StateCancelled {
		t.Errorf("expected state cancelled, got %s", ctrl.State())
	}
	if events[len(events)-1].Type != batch.EventComplete {
		t.Error("expected completion event even after cancellation")
	}

	emb.mu.Lock()
	calls := emb.calls
	emb.mu.Unlock()
	if calls != 1 {
		t.Errorf("expected only the in-flight image to be attempted, got %d calls", calls)
	}
	// The in-flight image ran to completion, so its result is kept.
	if len(ctrl.Output().Images) != 1 {
		t.Errorf("expected 1 partial result, got %d", len(ctrl.Output().Images))
	}
}

func TestController_CancelAfterWorkDoneKeepsCompletedState(t *testing.T) {
	folder := makeFolder(t, "a.jpg")
	ctrl := newController(&blockingEmbedder{})

	if err := ctrl.Start(folder); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Give the worker time to emit the completion event, then cancel before
	// anything has been drained. The finished run must not be relabelled.
	time.Sleep(100 * time.Millisecond)
	ctrl.Cancel()

	drain(t, ctrl)

	if ctrl.State() != StateCompleted {
		t.Errorf("expected state completed, got %s", ctrl.State())
	}
	if len(ctrl.Output().Images) != 1 {
		t.Errorf("expected 1 image result, got %d", len(ctrl.Output().Images))
	}
}

func TestController_CancelWhenIdleIsNoop(t *testing.T) {
	ctrl := newController(&blockingEmbedder{})
	ctrl.Cancel()
	if ctrl.State() != StateIdle {
		t.Errorf("expected state to stay idle, got %s", ctrl.State())
	}
}

func TestController_EventOrderPreserved(t *testing.T) {
	folder := makeFolder(t, "a.jpg", "b.jpg", "c.jpg")
	ctrl := newController(&blockingEmbedder{})

	if err := ctrl.Start(folder); err != nil {
		t.Fatal(err)
	}
	events := drain(t, ctrl)

	prev := 0
	for _, e := range events {
		if e.Type != batch.EventProgress {
			continue
		}
		if e.Current <= prev {
			t.Errorf("progress out of order: %v", events)
		}
		if e.Current > e.Total {
			t.Errorf("current %d exceeds total %d", e.Current, e.Total)
		}
		prev = e.Current
	}
	if prev != 3 {
		t.Errorf("expected final progress 3, got %d", prev)
	}
}

func TestController_PollBeforeStart(t *testing.T) {
	ctrl := newController(&blockingEmbedder{})
	if evs := ctrl.Poll(); evs != nil {
		t.Errorf("expected nil events before any run, got %v", evs)
	}
}

func TestController_AllImagesFailStillCompletes(t *testing.T) {
	folder := makeFolder(t, "a.jpg", "b.jpg")
	ctrl := newController(&blockingEmbedder{failAll: true})

	if err := ctrl.Start(folder); err != nil {
		t.Fatal(err)
	}
	events := drain(t, ctrl)

	if ctrl.State() != StateCompleted {
		t.Errorf("expected completed even when every image failed, got %s", ctrl.State())
	}
	if len(ctrl.Output().Images) != 0 {
		t.Errorf("expected empty output, got %d", len(ctrl.Output().Images))
	}
	logCount := 0
	for _, e := range events {
		if e.Type == batch.EventLog {
			logCount++
		}
	}
	if logCount != 2 {
		t.Errorf("expected 2 error logs, got %d", logCount)
	}
}

func TestController_CatalogSharedAcrossRuns(t *testing.T) {
	folder := makeFolder(t, "a.jpg")
	ctrl := newController(&blockingEmbedder{})

	if err := ctrl.Start(folder); err != nil {
		t.Fatal(err)
	}
	drain(t, ctrl)
	if ctrl.Catalog().Len() != 1 {
		t.Fatalf("expected 1 identity after first run, got %d", ctrl.Catalog().Len())
	}

	// Same folder, same face: the catalog must not grow.
	if err := ctrl.Start(folder); err != nil {
		t.Fatal(err)
	}
	drain(t, ctrl)
	if ctrl.Catalog().Len() != 1 {
		t.Errorf("expected catalog to stay at 1 identity, got %d", ctrl.Catalog().Len())
	}
}

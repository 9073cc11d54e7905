// Package pipeline owns the background execution of a batch run and the
// bounded event channel between the worker and the consumer loop.
package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/Abhigyan126/Make-FaceDB/internal/batch"
	"github.com/Abhigyan126/Make-FaceDB/internal/catalog"
	"github.com/Abhigyan126/Make-FaceDB/internal/constants"
	"github.com/Abhigyan126/Make-FaceDB/internal/embedder"
)

// ErrAlreadyRunning is returned by Start while a run is in progress. Runs are
// never queued; the caller must wait for the current run to complete.
var ErrAlreadyRunning = errors.New("a run is already in progress")

// State is the lifecycle state of the controller.
type State string

// Controller states. Exactly one run may be Running at a time.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// Controller starts batch runs on a background goroutine and relays their
// events to a polling consumer in strict arrival order.
//
// The worker and the consumer communicate only through the bounded event
// channel: when the consumer falls behind, the worker blocks on send rather
// than dropping events. The catalog and the run's output are owned by the
// worker while Running and must not be touched from the consumer side until
// the completion event has been drained - that event is the synchronization
// point that hands ownership back.
type Controller struct {
	embedder embedder.Embedder
	catalog  *catalog.Catalog

	mu              sync.Mutex
	state           State
	cancel          context.CancelFunc
	cancelRequested bool
	workerDone      bool
	events          chan batch.Event
	output          *batch.Output
	folder          string
}

// New creates a controller. The catalog is shared across runs and accumulates
// identities for the controller's lifetime.
func New(emb embedder.Embedder, cat *catalog.Catalog) *Controller {
	return &Controller{
		embedder: emb,
		catalog:  cat,
		state:    StateIdle,
	}
}

// Start launches a background run over the folder. It fails with
// ErrAlreadyRunning if a run is in progress.
func (c *Controller) Start(folder string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRunning {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.state = StateRunning
	c.cancel = cancel
	c.cancelRequested = false
	c.workerDone = false
	c.folder = folder
	c.events = make(chan batch.Event, constants.EventChannelBuffer)
	c.output = &batch.Output{}

	events := c.events
	out := c.output

	go func() {
		defer cancel()
		proc := batch.NewProcessor(c.embedder)
		// Blocking send: backpressure instead of event loss.
		proc.Run(ctx, folder, c.catalog, out, func(e batch.Event) {
			if e.Type == batch.EventComplete {
				// The run's work is over; a Cancel arriving from here on
				// must not relabel the outcome.
				c.mu.Lock()
				c.workerDone = true
				c.mu.Unlock()
			}
			events <- e
		})
	}()

	return nil
}

// Cancel requests that the current run stop. It is advisory: the worker
// observes it at its next per-image boundary, and a completion event still
// follows. Calling Cancel when no run is in progress, or after the worker
// has already finished its work, is a no-op.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning || c.cancel == nil || c.workerDone {
		return
	}
	c.cancelRequested = true
	c.cancel()
}

// Poll drains all currently pending events without blocking, preserving emit
// order. When the completion event is drained, the controller transitions to
// Completed (or Cancelled if a cancel was requested) and stops draining.
func (c *Controller) Poll() []batch.Event {
	c.mu.Lock()
	events := c.events
	c.mu.Unlock()

	if events == nil {
		return nil
	}

	var drained []batch.Event
	for {
		select {
		case e := <-events:
			drained = append(drained, e)
			if e.Type == batch.EventComplete {
				c.finish()
				return drained
			}
		default:
			return drained
		}
	}
}

// finish records the terminal state once the completion event has been observed.
func (c *Controller) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelRequested {
		c.state = StateCancelled
	} else {
		c.state = StateCompleted
	}
	c.cancel = nil
}

// State returns the current run state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Running reports whether a run is in progress.
func (c *Controller) Running() bool {
	return c.State() == StateRunning
}

// Output returns the last run's accumulated results. Valid only after the
// completion event has been drained; while Running the output belongs to the
// background worker.
func (c *Controller) Output() *batch.Output {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.output
}

// Folder returns the folder of the current or most recent run.
func (c *Controller) Folder() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.folder
}

// Catalog returns the shared identity catalog. Safe to use from the consumer
// side only while no run is Running.
func (c *Controller) Catalog() *catalog.Catalog {
	return c.catalog
}

package gc

import (
	"fmt"
	"sync"
	"time"

	events "github.com/docker/go-events"
)

// ProgressEvent is the Event type written to a Reporter's sink: a
// snapshot of cumulative purge progress at the time of the report
//.
type ProgressEvent struct {
	ObjectsRemoved  int64
	PayloadsRemoved int64
	RendersRemoved  int64
}

func (e ProgressEvent) String() string {
	return fmt.Sprintf("removed %d objects, %d payloads, %d renders", e.ObjectsRemoved, e.PayloadsRemoved, e.RendersRemoved)
}

// Reporter debounces purge counters into a ProgressEvent at most once
// per interval, the same shape the Sync Engine's Reporter uses, but
// counting the three independent purge tasks (object, payload, render).
type Reporter struct {
	sink     events.Sink
	interval time.Duration

	mu              sync.Mutex
	objectsRemoved  int64
	payloadsRemoved int64
	rendersRemoved  int64
	dirty           bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewReporter starts a Reporter flushing to sink every interval.
// Callers must Close it when the purge finishes.
func NewReporter(sink events.Sink, interval time.Duration) *Reporter {
	r := &Reporter{sink: sink, interval: interval, done: make(chan struct{})}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *Reporter) run() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.flush()
		case <-r.done:
			r.flush()
			return
		}
	}
}

func (r *Reporter) flush() {
	r.mu.Lock()
	if !r.dirty {
		r.mu.Unlock()
		return
	}
	event := ProgressEvent{ObjectsRemoved: r.objectsRemoved, PayloadsRemoved: r.payloadsRemoved, RendersRemoved: r.rendersRemoved}
	r.dirty = false
	r.mu.Unlock()

	r.sink.Write(event)
}

// IncrementObjects records n additional objects removed.
func (r *Reporter) IncrementObjects(n int64) {
	r.mu.Lock()
	r.objectsRemoved += n
	r.dirty = true
	r.mu.Unlock()
}

// IncrementPayloads records n additional payloads removed.
func (r *Reporter) IncrementPayloads(n int64) {
	r.mu.Lock()
	r.payloadsRemoved += n
	r.dirty = true
	r.mu.Unlock()
}

// IncrementRenders records n additional renders removed.
func (r *Reporter) IncrementRenders(n int64) {
	r.mu.Lock()
	r.rendersRemoved += n
	r.dirty = true
	r.mu.Unlock()
}

// Close stops the background flush loop after a final flush.
func (r *Reporter) Close() error {
	close(r.done)
	r.wg.Wait()
	return r.sink.Close()
}

type noopSink struct{}

func (noopSink) Write(events.Event) error { return nil }
func (noopSink) Close() error             { return nil }

// NewDiscardReporter returns a Reporter that accumulates but never
// displays progress, for callers that don't need output.
func NewDiscardReporter() *Reporter {
	return NewReporter(noopSink{}, time.Hour)
}

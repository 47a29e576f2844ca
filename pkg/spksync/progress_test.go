package spksync

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	events "github.com/docker/go-events"
)

type collectingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *collectingSink) Write(e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *collectingSink) Close() error { return nil }

func (s *collectingSink) snapshot() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Event(nil), s.events...)
}

func TestReporterDebouncesWithinInterval(t *testing.T) {
	sink := &collectingSink{}
	r := NewReporter(sink, 50*time.Millisecond)

	r.IncrementObjects(1)
	r.IncrementObjects(1)
	r.IncrementPayloads(1, 100)

	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, sink.snapshot(), "no flush should happen before the debounce interval elapses")

	time.Sleep(80 * time.Millisecond)
	require.NoError(t, r.Close())

	got := sink.snapshot()
	require.NotEmpty(t, got)
	last := got[len(got)-1].(ProgressEvent)
	assert.Equal(t, int64(2), last.ObjectsSynced)
	assert.Equal(t, int64(1), last.PayloadsSynced)
	assert.Equal(t, int64(100), last.BytesSynced)
}

func TestReporterSkipsFlushWhenNothingChanged(t *testing.T) {
	sink := &collectingSink{}
	r := NewReporter(sink, 20*time.Millisecond)
	defer r.Close()

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, sink.snapshot())
}

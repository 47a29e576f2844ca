package spkmetrics

import "testing"

// These don't assert against prometheus's registry (its collector
// internals aren't meant to be unit tested here); they exist to catch
// a panic from a malformed metric name or label set, the same failure
// mode metrics.NewNamespace/NewLabeledCounter surface at package init.
func TestCountersAcceptIncrements(t *testing.T) {
	ObjectsSynced.WithValues("blob").Inc(1)
	PayloadsSynced.Inc(1)
	BytesSynced.Inc(4096)
	RootFailures.Inc(1)

	ObjectsRemoved.Inc(1)
	PayloadsRemoved.Inc(1)
	RendersRemoved.Inc(1)
	PurgeErrors.Inc(1)

	Decisions.Inc(1)
	Backtracks.Inc(1)
}

func TestTimerRecordsDuration(t *testing.T) {
	SolveDuration.Update(0)
}

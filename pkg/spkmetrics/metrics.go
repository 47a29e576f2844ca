package spkmetrics

import "github.com/docker/go-metrics"

// NamespacePrefix is the prometheus namespace shared by every spk
// metric.
const NamespacePrefix = "spk"

var (
	// SyncNamespace covers the sync engine (pkg/spksync).
	SyncNamespace = metrics.NewNamespace(NamespacePrefix, "sync", nil)
	// GCNamespace covers the garbage collector (pkg/gc).
	GCNamespace = metrics.NewNamespace(NamespacePrefix, "gc", nil)
	// SolveNamespace covers the dependency solver (pkg/solve).
	SolveNamespace = metrics.NewNamespace(NamespacePrefix, "solve", nil)
)

var (
	// ObjectsSynced counts graph objects written to a sync
	// destination, labeled by object kind (blob, manifest, layer,
	// platform, mask).
	ObjectsSynced = SyncNamespace.NewLabeledCounter("objects_synced", "The number of objects copied by a sync", "kind")

	// PayloadsSynced counts payload blobs actually streamed to a sync
	// destination (as opposed to ones the destination already had).
	PayloadsSynced = SyncNamespace.NewCounter("payloads_synced", "The number of payloads streamed by a sync")

	// BytesSynced totals the payload bytes streamed by every sync.
	BytesSynced = SyncNamespace.NewCounter("bytes_synced", "The total size in bytes of payloads streamed by a sync")

	// RootFailures counts sync roots that failed outright.
	RootFailures = SyncNamespace.NewCounter("root_failures", "The number of sync roots that failed")
)

var (
	// ObjectsRemoved counts graph objects deleted by a GC purge.
	ObjectsRemoved = GCNamespace.NewCounter("objects_removed", "The number of unattached objects removed by garbage collection")

	// PayloadsRemoved counts payload blobs deleted by a GC purge.
	PayloadsRemoved = GCNamespace.NewCounter("payloads_removed", "The number of unattached payloads removed by garbage collection")

	// RendersRemoved counts cached filesystem renders deleted by a GC
	// purge.
	RendersRemoved = GCNamespace.NewCounter("renders_removed", "The number of unattached renders removed by garbage collection")

	// PurgeErrors counts non-fatal errors accumulated during a purge
	// a purge continues past most of these.
	PurgeErrors = GCNamespace.NewCounter("purge_errors", "The number of errors accumulated during a garbage collection purge")
)

var (
	// Decisions counts package candidates the solver successfully
	// committed to.
	Decisions = SolveNamespace.NewCounter("decisions", "The number of package version decisions the solver committed to")

	// Backtracks counts candidates the solver tried and then abandoned,
	// either because the candidate itself failed validation or because
	// every decision built on top of it eventually failed.
	Backtracks = SolveNamespace.NewCounter("backtracks", "The number of solver candidates tried and then abandoned")

	// SolveDuration times a full Solver.Solve call.
	SolveDuration = SolveNamespace.NewTimer("duration_seconds", "The time taken by a complete solve")
)

func init() {
	metrics.Register(SyncNamespace)
	metrics.Register(GCNamespace)
	metrics.Register(SolveNamespace)
}

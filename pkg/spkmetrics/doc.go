// Package spkmetrics exposes prometheus counters and timers for the
// sync engine, garbage collector, and solver, built on
// docker/go-metrics' namespace/counter/timer abstractions.
//
// Namespace is registered with the default prometheus registry via an
// init-time metrics.Register call; cmd/spk need only mount
// docker/go-metrics' prometheus handler to serve it.
package spkmetrics

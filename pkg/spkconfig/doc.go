// Package spkconfig implements the process-wide configuration surface:
// a single YAML document describing the repositories a process knows
// about, the sync engine's concurrency caps, the runtime's tmpfs
// sizing, and logging, overridable by environment variables and CLI
// flags layered on top of the parsed document.
package spkconfig

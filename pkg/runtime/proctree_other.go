//go:build !linux

package runtime

// ProcProcessTree has no /proc filesystem to read outside Linux. The
// FUSE path on macOS/Windows resolves ancestry through platform APIs
// (a process-tree snapshot) not exercised by this checkout's Router
// logic; see DESIGN.md.
type ProcProcessTree struct{}

func (ProcProcessTree) Parent(pid int) (int, error) { return 0, nil }

//go:build !linux

package build

import "os/exec"

// configureProcessGroup is a no-op outside Linux; the build script's
// cancellation path falls back to killing just the direct child.
func configureProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process != nil {
		cmd.Process.Kill()
	}
}

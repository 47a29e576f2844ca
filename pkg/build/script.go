package build

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
)

// RunScript runs script (a recipe's build, test, or source-script
// stage) as a shell command inside dir, with env appended to the
// inherited environment. Cancelling ctx kills the script's whole
// process group, not just the direct child, so a build that spawned a
// compiler or test runner doesn't leave orphans behind (
// "Cancellation during the build script kills the script's process
// group").
func RunScript(ctx context.Context, stage, dir string, script []string, env []string) error {
	if len(script) == 0 {
		return nil
	}
	cmd := exec.Command("sh", "-c", strings.Join(script, "\n"))
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	configureProcessGroup(cmd)

	var stderr bytes.Buffer
	cmd.Stdout = os.Stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return ErrScriptFailed{Stage: stage, Cause: err}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		killProcessGroup(cmd)
		<-done
		return ErrScriptFailed{Stage: stage, Cause: ctx.Err()}
	case err := <-done:
		if err == nil {
			return nil
		}
		code := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		return ErrScriptFailed{Stage: stage, ExitCode: code, Cause: err}
	}
}

package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunScriptSucceeds(t *testing.T) {
	dir := t.TempDir()
	err := RunScript(context.Background(), "build", dir, []string{"echo built > out.txt"}, nil)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "built\n", string(got))
}

func TestRunScriptPassesEnv(t *testing.T) {
	dir := t.TempDir()
	err := RunScript(context.Background(), "build", dir, []string{"echo $SPK_OPT_FOO > out.txt"}, []string{"SPK_OPT_FOO=bar"})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bar\n", string(got))
}

func TestRunScriptReturnsExitCodeOnFailure(t *testing.T) {
	dir := t.TempDir()
	err := RunScript(context.Background(), "build", dir, []string{"exit 3"}, nil)
	require.Error(t, err)
	var scriptErr ErrScriptFailed
	require.ErrorAs(t, err, &scriptErr)
	assert.Equal(t, 3, scriptErr.ExitCode)
}

func TestRunScriptKillsOnCancellation(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := RunScript(ctx, "build", dir, []string{"sleep 5"}, nil)
	require.Error(t, err)
	var scriptErr ErrScriptFailed
	require.ErrorAs(t, err, &scriptErr)
}

func TestRunScriptEmptyIsNoop(t *testing.T) {
	err := RunScript(context.Background(), "build", t.TempDir(), nil, nil)
	assert.NoError(t, err)
}

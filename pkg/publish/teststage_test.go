package publish

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spkdev/spk/pkg/pkgmodel"
)

func TestRunStageRunsOnlyMatchingStage(t *testing.T) {
	dir := t.TempDir()
	recipe := pkgmodel.Recipe{
		Tests: []pkgmodel.TestStage{
			{Kind: pkgmodel.TestSources, Script: []string{"touch sources.ran"}},
			{Kind: pkgmodel.TestBuild, Script: []string{"touch build.ran"}},
		},
	}

	require.NoError(t, RunStage(context.Background(), pkgmodel.TestBuild, recipe, dir, nil))

	assert.NoFileExists(t, dir+"/sources.ran")
	assert.FileExists(t, dir+"/build.ran")
}

func TestRunStageRunsMultipleScriptsInOrder(t *testing.T) {
	dir := t.TempDir()
	recipe := pkgmodel.Recipe{
		Tests: []pkgmodel.TestStage{
			{Kind: pkgmodel.TestInstall, Script: []string{"touch first"}},
			{Kind: pkgmodel.TestInstall, Script: []string{"test -f first && touch second"}},
		},
	}

	require.NoError(t, RunStage(context.Background(), pkgmodel.TestInstall, recipe, dir, nil))

	assert.FileExists(t, dir+"/first")
	assert.FileExists(t, dir+"/second")
}

func TestRunStageWrapsFailureAsErrTestStageFailed(t *testing.T) {
	dir := t.TempDir()
	recipe := pkgmodel.Recipe{
		Tests: []pkgmodel.TestStage{
			{Kind: pkgmodel.TestInstall, Script: []string{"exit 7"}},
		},
	}

	err := RunStage(context.Background(), pkgmodel.TestInstall, recipe, dir, nil)
	require.Error(t, err)

	var stageErr ErrTestStageFailed
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, pkgmodel.TestInstall, stageErr.Stage)
}

func TestRunStageNoMatchingTestsIsNoop(t *testing.T) {
	dir := t.TempDir()
	recipe := pkgmodel.Recipe{
		Tests: []pkgmodel.TestStage{
			{Kind: pkgmodel.TestSources, Script: []string{"touch sources.ran"}},
		},
	}

	require.NoError(t, RunStage(context.Background(), pkgmodel.TestBuild, recipe, dir, nil))
}

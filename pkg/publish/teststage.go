package publish

import (
	"context"

	"github.com/spkdev/spk/pkg/build"
	"github.com/spkdev/spk/pkg/pkgmodel"
)

// RunStage runs every test a recipe declares for stage, in declaration
// order, inside dir. The three stages mark distinct points in the
// build pipeline a test can run at: TestSources right after a recipe's
// sources are collected (dir is the source working directory),
// TestBuild right after its build script finishes (dir is the build
// runtime's merged view), and TestInstall against a rendered install
// of its components (dir is that render's root). All three reuse
// build.RunScript, so a test's cancellation kills its process group
// exactly like a build script's does.
func RunStage(ctx context.Context, stage pkgmodel.TestStageKind, recipe pkgmodel.Recipe, dir string, env []string) error {
	for _, ts := range recipe.Tests {
		if ts.Kind != stage {
			continue
		}
		if err := build.RunScript(ctx, string(stage), dir, ts.Script, env); err != nil {
			return ErrTestStageFailed{Stage: stage, Cause: err}
		}
	}
	return nil
}

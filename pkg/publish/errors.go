package publish

import (
	"fmt"

	"github.com/spkdev/spk/pkg/pkgmodel"
)

// ErrTestStageFailed wraps a failing script from one of a recipe's
// declared test stages.
type ErrTestStageFailed struct {
	Stage pkgmodel.TestStageKind
	Cause error
}

func (e ErrTestStageFailed) Error() string {
	return fmt.Sprintf("publish: %s test stage failed: %v", e.Stage, e.Cause)
}

func (e ErrTestStageFailed) Unwrap() error { return e.Cause }

package spkerrors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spkdev/spk/pkg/build"
	"github.com/spkdev/spk/pkg/pkgmodel"
)

func TestRenderChainsWrappedCauses(t *testing.T) {
	inner := build.ErrValidationDenied{Rule: pkgmodel.MustInstallSomething}
	outer := fmt.Errorf("build: variant %q: %w", "default", inner)

	got := Render(outer)

	assert.Contains(t, got, `build: variant "default"`)
	assert.Contains(t, got, "caused by: build: validation rule MustInstallSomething denied the build")
}

func TestRenderSingleErrorNoCause(t *testing.T) {
	got := Render(fmt.Errorf("plain failure"))
	assert.Equal(t, "plain failure", got)
}

func TestIsValidationDeniedUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("build: %w", build.ErrValidationDenied{Rule: pkgmodel.MustCollectAllFiles})
	assert.True(t, IsValidationDenied(wrapped))
	assert.False(t, IsValidationDenied(fmt.Errorf("unrelated")))
}

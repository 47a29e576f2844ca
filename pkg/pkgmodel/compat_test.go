package pkgmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCompatMajorMustMatch(t *testing.T) {
	c := DefaultCompat()
	base := mustVersion(t, "1.2.3")
	candidate := mustVersion(t, "2.0.0")
	assert.False(t, c.IsCompatible(base, candidate, CompatAPI))
	assert.False(t, c.IsCompatible(base, candidate, CompatBinary))
}

func TestDefaultCompatMinorRelaxesAPI(t *testing.T) {
	c := DefaultCompat()
	base := mustVersion(t, "1.2.3")
	candidate := mustVersion(t, "1.5.0")
	assert.True(t, c.IsCompatible(base, candidate, CompatAPI))
}

func TestDefaultCompatPatchRelaxesBinaryOnly(t *testing.T) {
	c := DefaultCompat()
	base := mustVersion(t, "1.2.3")
	candidate := mustVersion(t, "1.2.9")
	assert.True(t, c.IsCompatible(base, candidate, CompatBinary))
	// Patch alone does not grant API-level relaxation; since minor is
	// equal the check continues to patch, whose rule lacks 'a', so
	// unequal patch parts fail the API check.
	assert.False(t, c.IsCompatible(base, candidate, CompatAPI))
}

func TestDefaultCompatLowerCandidateFails(t *testing.T) {
	c := DefaultCompat()
	base := mustVersion(t, "1.2.3")
	candidate := mustVersion(t, "1.1.0")
	assert.False(t, c.IsCompatible(base, candidate, CompatAPI))
}

func TestParseCompatExplicitRule(t *testing.T) {
	c, err := ParseCompat("x.ab.x")
	require.NoError(t, err)
	base := mustVersion(t, "1.2.3")
	higherMinor := mustVersion(t, "1.5.3")
	assert.True(t, c.IsCompatible(base, higherMinor, CompatAPI))
	assert.True(t, c.IsCompatible(base, higherMinor, CompatBinary))
}

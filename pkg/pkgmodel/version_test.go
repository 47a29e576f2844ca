package pkgmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustVersion(t *testing.T, s string) Version {
	t.Helper()
	v, err := ParseVersion(s)
	require.NoError(t, err)
	return v
}

func TestVersionCompareIntegerParts(t *testing.T) {
	assert.Equal(t, -1, mustVersion(t, "1.2.3").Compare(mustVersion(t, "1.3.0")))
	assert.Equal(t, 1, mustVersion(t, "2.0.0").Compare(mustVersion(t, "1.9.9")))
	assert.Equal(t, 0, mustVersion(t, "1.0.0").Compare(mustVersion(t, "1.0.0")))
}

func TestVersionShorterPrefixCompareGreaterWhenTrailingZero(t *testing.T) {
	// "1.0" has no parts beyond the compared prefix; "1.0.0" has an
	// explicit trailing zero. the shorter sequence
	// compares greater in this case.
	assert.Equal(t, 1, mustVersion(t, "1.0").Compare(mustVersion(t, "1.0.0")))
}

func TestVersionPreReleaseOutranked(t *testing.T) {
	release := mustVersion(t, "1.0.0")
	rc := mustVersion(t, "1.0.0-rc.1")
	assert.Equal(t, 1, release.Compare(rc))
	assert.Equal(t, -1, rc.Compare(release))
}

func TestVersionFewerPreReleaseTagsIsGreater(t *testing.T) {
	one := mustVersion(t, "1.0.0-rc.1")
	two := mustVersion(t, "1.0.0-alpha,rc.1")
	assert.Equal(t, 1, one.Compare(two))
}

func TestVersionMorePostReleaseTagsIsGreater(t *testing.T) {
	one := mustVersion(t, "1.0.0+build.1")
	two := mustVersion(t, "1.0.0+build.1,fix.2")
	assert.Equal(t, -1, one.Compare(two))
}

func TestVersionRoundTripString(t *testing.T) {
	s := "1.2.3-rc.1+build.2"
	v := mustVersion(t, s)
	assert.Equal(t, s, v.String())
}

func TestParseVersionInvalid(t *testing.T) {
	_, err := ParseVersion("")
	assert.Error(t, err)
	_, err = ParseVersion("a.b.c")
	assert.Error(t, err)
}

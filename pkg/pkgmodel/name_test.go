package pkgmodel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePkgNameValid(t *testing.T) {
	n, err := ParsePkgName("openssl-dev")
	require.NoError(t, err)
	assert.Equal(t, PkgName("openssl-dev"), n)
}

func TestParsePkgNameRejectsUppercaseAndLeadingHyphen(t *testing.T) {
	_, err := ParsePkgName("OpenSSL")
	assert.Error(t, err)

	_, err = ParsePkgName("-openssl")
	assert.Error(t, err)
}

func TestParsePkgNameEnforcesLengthBounds(t *testing.T) {
	_, err := ParsePkgName("a")
	assert.Error(t, err)

	_, err = ParsePkgName(strings.Repeat("a", 65))
	assert.Error(t, err)
}

func TestParseOptNameAllowsDotNamespace(t *testing.T) {
	n, err := ParseOptName("python.abi")
	require.NoError(t, err)
	assert.Equal(t, OptName("python.abi"), n)
}

func TestOptNameNamespaceSplitsOnLastDot(t *testing.T) {
	pkg, opt, namespaced := OptName("python.abi.debug").Namespace()
	assert.True(t, namespaced)
	assert.Equal(t, "python.abi", pkg)
	assert.Equal(t, "debug", opt)

	_, _, namespaced = OptName("debug").Namespace()
	assert.False(t, namespaced)
}

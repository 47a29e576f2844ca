package pkgmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionMapDigestStableUnderInsertionOrder(t *testing.T) {
	a := NewOptionMap()
	a.Set("debug", "on")
	a.Set("arch", "x86_64")

	b := NewOptionMap()
	b.Set("arch", "x86_64")
	b.Set("debug", "on")

	assert.Equal(t, a.Digest(), b.Digest())
}

func TestOptionMapDigestChangesWithValue(t *testing.T) {
	a := NewOptionMap()
	a.Set("debug", "on")

	b := NewOptionMap()
	b.Set("debug", "off")

	assert.NotEqual(t, a.Digest(), b.Digest())
}

func TestOptionMapKeysPreservesInsertionOrder(t *testing.T) {
	m := NewOptionMap()
	m.Set("debug", "on")
	m.Set("arch", "x86_64")
	m.Set("abi", "gnu")

	assert.Equal(t, []OptName{"debug", "arch", "abi"}, m.Keys())
}

func TestPackageScopedSplitsNamespace(t *testing.T) {
	pkg := PkgName("openssl")

	opt, matches := PackageScoped(OptName("openssl.debug"), pkg)
	assert.True(t, matches)
	assert.Equal(t, OptName("debug"), opt)

	opt, matches = PackageScoped(OptName("curl.debug"), pkg)
	assert.False(t, matches)
	assert.Equal(t, OptName("curl.debug"), opt)

	opt, matches = PackageScoped(OptName("debug"), pkg)
	assert.False(t, matches)
	assert.Equal(t, OptName("debug"), opt)
}

func TestPackageOptionsMergesGlobalAndScoped(t *testing.T) {
	all := NewOptionMap()
	all.Set("debug", "on")
	all.Set("openssl.shared", "true")
	all.Set("curl.shared", "false")

	scoped := PackageOptions(all, PkgName("openssl"))

	v, ok := scoped.Get("debug")
	assert.True(t, ok)
	assert.Equal(t, "on", v)

	v, ok = scoped.Get("shared")
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	_, ok = scoped.Get("curl.shared")
	assert.False(t, ok)
}

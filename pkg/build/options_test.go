package build

import (
	goruntime "runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spkdev/spk/pkg/pkgmodel"
)

func TestHostOptions(t *testing.T) {
	host := HostOptions()
	v, ok := host.Get("host.os")
	require.True(t, ok)
	assert.Equal(t, goruntime.GOOS, v)
	v, ok = host.Get("host.arch")
	require.True(t, ok)
	assert.Equal(t, goruntime.GOARCH, v)
}

func TestResolveVariantPrecedence(t *testing.T) {
	opts := []pkgmodel.BuildOption{
		{Kind: pkgmodel.OptionVar, Name: "debug", Default: "false"},
		{Kind: pkgmodel.OptionVar, Name: "optimize", Default: "false"},
	}
	variant := pkgmodel.Variant{Name: "debug-build", Overrides: map[pkgmodel.OptName]string{"debug": "true"}}
	given := pkgmodel.NewOptionMap()
	given.Set("optimize", "true")

	resolved := ResolveVariant(opts, variant, given)
	v, _ := resolved.Get("debug")
	assert.Equal(t, "true", v)
	v, _ = resolved.Get("optimize")
	assert.Equal(t, "true", v)
}

func TestDedupVariantsDropsDuplicateDigests(t *testing.T) {
	opts := []pkgmodel.BuildOption{{Kind: pkgmodel.OptionVar, Name: "debug", Default: "false"}}
	variants := []pkgmodel.Variant{
		{Name: "a", Overrides: map[pkgmodel.OptName]string{"debug": "true"}},
		{Name: "b", Overrides: map[pkgmodel.OptName]string{"debug": "true"}},
		{Name: "c", Overrides: map[pkgmodel.OptName]string{"debug": "false"}},
	}

	deduped := DedupVariants(opts, variants, nil)
	require.Len(t, deduped, 2)
	assert.Equal(t, "a", deduped[0].Name)
	assert.Equal(t, "c", deduped[1].Name)
}

func TestEnvFromOptionsFormatsShellIdentifiers(t *testing.T) {
	opts := pkgmodel.NewOptionMap()
	opts.Set("host.os", "linux")
	opts.Set("my-flag", "on")

	env := EnvFromOptions(opts)
	assert.Contains(t, env, "SPK_OPT_HOST_OS=linux")
	assert.Contains(t, env, "SPK_OPT_MY_FLAG=on")
}

package build

import (
	goruntime "runtime"

	"github.com/spkdev/spk/pkg/pkgmodel"
)

// HostOptions returns the var options spk derives from the running
// host, namespaced under "host." ( step 1: "top-level
// options ∪ host options"). Callers pass --no-host to omit these from
// ResolveVariant's given map.
func HostOptions() *pkgmodel.OptionMap {
	host := pkgmodel.NewOptionMap()
	host.Set("host.os", goruntime.GOOS)
	host.Set("host.arch", goruntime.GOARCH)
	return host
}

// ResolveVariant computes the resolved option map for one build
// variant: the recipe's declared option defaults, overridden by the
// variant's own overrides, overridden in turn by the caller-given
// values (top-level request options and, unless suppressed, host
// options) — step 2.
func ResolveVariant(opts []pkgmodel.BuildOption, variant pkgmodel.Variant, given *pkgmodel.OptionMap) *pkgmodel.OptionMap {
	resolved := pkgmodel.NewOptionMap()
	for _, opt := range opts {
		if opt.Kind != pkgmodel.OptionVar {
			continue
		}
		resolved.Set(opt.Name, opt.Default)
	}
	for name, value := range variant.Overrides {
		resolved.Set(name, value)
	}
	if given != nil {
		for _, k := range given.Keys() {
			v, _ := given.Get(k)
			resolved.Set(k, v)
		}
	}
	return resolved
}

// DedupVariants drops variants whose resolved option map digest
// repeats one already seen, preserving the first occurrence's order
// ( step 2: "Duplicate variants (same digest) are
// skipped").
func DedupVariants(opts []pkgmodel.BuildOption, variants []pkgmodel.Variant, given *pkgmodel.OptionMap) []pkgmodel.Variant {
	seen := make(map[string]bool)
	var out []pkgmodel.Variant
	for _, v := range variants {
		resolved := ResolveVariant(opts, v, given)
		d := resolved.Digest()
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, v)
	}
	return out
}

// EnvFromOptions formats a resolved option map as SPK_OPT_<NAME>=<value>
// environment entries for a build script. Dots
// in namespaced option names become underscores, matching the
// environment's shell-identifier constraints.
func EnvFromOptions(opts *pkgmodel.OptionMap) []string {
	var env []string
	for _, k := range opts.Keys() {
		v, _ := opts.Get(k)
		env = append(env, "SPK_OPT_"+optEnvName(string(k))+"="+v)
	}
	return env
}

func optEnvName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r == '.' || r == '-':
			out = append(out, '_')
		case r >= 'a' && r <= 'z':
			out = append(out, r-('a'-'A'))
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

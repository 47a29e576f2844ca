package main

import (
	"strings"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/tagstore"
)

// parsePkgRequest turns a bare CLI argument ("openssl" or
// "openssl/1.1.1") into a PkgRequest with the narrowest possible
// version constraint: an exact version when one is given, otherwise
// the zero-value VersionRange, which Contains/Intersect treat as
// unbounded in both directions (pkg/pkgmodel/versionrange.go).
func parsePkgRequest(arg string) (pkgmodel.PkgRequest, error) {
	nameRaw, versionRaw, hasVersion := strings.Cut(arg, "/")

	name, err := pkgmodel.ParsePkgName(nameRaw)
	if err != nil {
		return pkgmodel.PkgRequest{}, usagef("spk: %w", err)
	}

	rng := pkgmodel.VersionRange{}
	if hasVersion {
		v, err := pkgmodel.ParseVersion(versionRaw)
		if err != nil {
			return pkgmodel.PkgRequest{}, usagef("spk: %w", err)
		}
		rng = pkgmodel.VersionRange{Lower: &v, Upper: &v, UpperIncl: true}
	}

	return pkgmodel.PkgRequest{Pkg: pkgmodel.RangeIdent{Name: name, Range: rng}}, nil
}

// resolveRef resolves a single EnvSpec Item against every repository
// in rs, in search order, to a
// single object digest. A tag spec is tried against each repository's
// tag store; a digest or digest prefix is tried against each
// repository's object store via digest.ResolveOrError.
func resolveRef(rs *repoSet, item string) (digest.Digest, error) {
	if spec, err := tagstore.ParseSpec(item); err == nil {
		for _, e := range rs.entries {
			if e.tags == nil {
				continue
			}
			tag, err := e.tags.Read(spec)
			if err == nil {
				return tag.Target, nil
			}
			var unknown tagstore.ErrUnknownReference
			if !isErrUnknownReference(err, &unknown) {
				return digest.Digest{}, err
			}
		}
	}

	partial, err := digest.ParsePartial(item)
	if err != nil {
		return digest.Digest{}, usagef("spk: %q is neither a known tag nor a digest: %w", item, err)
	}
	for _, e := range rs.entries {
		candidates, err := e.repo.Objects().FindDigests(partial)
		if err != nil {
			return digest.Digest{}, err
		}
		if len(candidates) == 0 {
			continue
		}
		return digest.ResolveOrError(partial, candidates)
	}
	return digest.Digest{}, usagef("spk: no repository resolves reference %q", item)
}

func isErrUnknownReference(err error, target *tagstore.ErrUnknownReference) bool {
	u, ok := err.(tagstore.ErrUnknownReference)
	if ok {
		*target = u
	}
	return ok
}

// resolveEnvSpec parses EnvSpec grammar
// ("Item (+ Item)*") and resolves every item to a digest, in order.
func resolveEnvSpec(rs *repoSet, raw string) ([]digest.Digest, error) {
	items := strings.Split(raw, "+")
	out := make([]digest.Digest, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, usagef("spk: empty item in env spec %q", raw)
		}
		d, err := resolveRef(rs, item)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

package main

import (
	"strings"

	"github.com/spkdev/spk/pkg/pkgmodel"
)

// parseVersionIdent parses "name/version".
func parseVersionIdent(arg string) (pkgmodel.VersionIdent, error) {
	nameRaw, versionRaw, ok := strings.Cut(arg, "/")
	if !ok {
		return pkgmodel.VersionIdent{}, usagef("spk: expected name/version, got %q", arg)
	}
	name, err := pkgmodel.ParsePkgName(nameRaw)
	if err != nil {
		return pkgmodel.VersionIdent{}, usagef("spk: %w", err)
	}
	version, err := pkgmodel.ParseVersion(versionRaw)
	if err != nil {
		return pkgmodel.VersionIdent{}, usagef("spk: %w", err)
	}
	return pkgmodel.VersionIdent{Name: name, Version: version}, nil
}

// parseBuildIdent parses "name/version/build";
// "src" names the source build.
func parseBuildIdent(arg string) (pkgmodel.BuildIdent, error) {
	idx := strings.LastIndex(arg, "/")
	if idx < 0 {
		return pkgmodel.BuildIdent{}, usagef("spk: expected name/version/build, got %q", arg)
	}
	vident, err := parseVersionIdent(arg[:idx])
	if err != nil {
		return pkgmodel.BuildIdent{}, err
	}
	buildRaw := arg[idx+1:]
	build := pkgmodel.SourceBuild
	if buildRaw != "src" {
		build = pkgmodel.DigestBuild(buildRaw)
	}
	return pkgmodel.BuildIdent{VersionIdent: vident, Build: build}, nil
}

// Package pkgmodel implements SPK's package data model (,
// ): names, versions, compatibility rules, option maps, requests,
// components, recipes, and builds.
package pkgmodel

import (
	"fmt"
	"regexp"
)

var pkgNameRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
var optNameRegexp = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ErrInvalidName reports a name that fails PkgName or OptName rules.
type ErrInvalidName struct {
	Kind string
	Name string
}

func (e ErrInvalidName) Error() string {
	return fmt.Sprintf("pkgmodel: invalid %s %q", e.Kind, e.Name)
}

// PkgName is a validated package name: 2-64 chars, lowercase
// letters/digits/hyphen, cannot start with a hyphen.
type PkgName string

// ParsePkgName validates and returns s as a PkgName.
func ParsePkgName(s string) (PkgName, error) {
	if len(s) < 2 || len(s) > 64 || !pkgNameRegexp.MatchString(s) {
		return "", ErrInvalidName{Kind: "PkgName", Name: s}
	}
	return PkgName(s), nil
}

// OptName is a validated option name: a superset of PkgName allowing
// `_` and namespace separator `.` (e.g. "python.abi").
type OptName string

// ParseOptName validates and returns s as an OptName.
func ParseOptName(s string) (OptName, error) {
	if s == "" || len(s) > 64 || !optNameRegexp.MatchString(s) {
		return "", ErrInvalidName{Kind: "OptName", Name: s}
	}
	return OptName(s), nil
}

// Namespace splits "pkg.opt" into ("pkg", "opt", true), or returns
// ("", string(n), false) for a global option name.
func (n OptName) Namespace() (pkg string, opt string, namespaced bool) {
	s := string(n)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return s[:i], s[i+1:], true
		}
	}
	return "", s, false
}

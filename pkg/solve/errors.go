package solve

import (
	"fmt"

	"github.com/spkdev/spk/pkg/pkgmodel"
)

// NoVersionMatches is returned when no candidate build of a package
// satisfies a request's version range, pre-release policy, or
// required_compat within the span a PackageIterator offered (
// "Failure modes").
type NoVersionMatches struct {
	Name  pkgmodel.PkgName
	Range pkgmodel.VersionRange
}

func (e NoVersionMatches) Error() string {
	return fmt.Sprintf("solve: no version of %s matches the requested range", e.Name)
}

// VarOptionMismatch is returned when a build option's assigned value
// does not satisfy its declared choices or compat rule.
type VarOptionMismatch struct {
	Var     pkgmodel.OptName
	Want    string
	Got     string
	Context string // package the mismatch was evaluated against, if any
}

func (e VarOptionMismatch) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("solve: option %s wants %q, got %q (%s)", e.Var, e.Want, e.Got, e.Context)
	}
	return fmt.Sprintf("solve: option %s wants %q, got %q", e.Var, e.Want, e.Got)
}

// RecursiveBuildDenied is returned when satisfying a build-time
// requirement would require building the same package from source
// while it is itself being built.
type RecursiveBuildDenied struct {
	Name pkgmodel.PkgName
}

func (e RecursiveBuildDenied) Error() string {
	return fmt.Sprintf("solve: recursive build denied for %s", e.Name)
}

// MissingRequiredVar is returned when a build declares a required var
// option with no namespaced request satisfying it ( step
// 2.b: "a plain (non-namespaced) value does not satisfy a required
// var").
type MissingRequiredVar struct {
	Var pkgmodel.OptName
}

func (e MissingRequiredVar) Error() string {
	return fmt.Sprintf("solve: missing required var %s", e.Var)
}

// Interrupted is returned when the caller's context is canceled
// mid-search.
type Interrupted struct{}

func (e Interrupted) Error() string {
	return "solve: interrupted"
}

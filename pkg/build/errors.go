package build

import (
	"fmt"

	"github.com/spkdev/spk/pkg/pkgmodel"
)

// ErrNoSourcesDefined is returned when a recipe's source build is
// requested but its `sources:` list is empty.
type ErrNoSourcesDefined struct {
	Name pkgmodel.PkgName
}

func (e ErrNoSourcesDefined) Error() string {
	return fmt.Sprintf("build: %s declares no sources", e.Name)
}

// ErrScriptFailed wraps a non-zero exit from a build, source, or test
// script.
type ErrScriptFailed struct {
	Stage    string
	ExitCode int
	Cause    error
}

func (e ErrScriptFailed) Error() string {
	return fmt.Sprintf("build: %s script failed (exit %d): %v", e.Stage, e.ExitCode, e.Cause)
}

func (e ErrScriptFailed) Unwrap() error { return e.Cause }

// ErrValidationDenied is returned when a build's output is denied by
// the recipe's ValidationSpec.
type ErrValidationDenied struct {
	Rule pkgmodel.ValidationRuleKind
	Path string
}

func (e ErrValidationDenied) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("build: validation rule %s denied %s", e.Rule, e.Path)
	}
	return fmt.Sprintf("build: validation rule %s denied the build", e.Rule)
}

// ErrUnknownSourceKind is returned for a SourceEntry whose Kind this
// package does not know how to collect.
type ErrUnknownSourceKind struct {
	Kind pkgmodel.SourceKind
}

func (e ErrUnknownSourceKind) Error() string {
	return fmt.Sprintf("build: unknown source kind %d", e.Kind)
}

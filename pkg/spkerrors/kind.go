package spkerrors

import (
	"context"
	"errors"

	"github.com/spkdev/spk/pkg/build"
	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/repository"
	"github.com/spkdev/spk/pkg/runtime"
	"github.com/spkdev/spk/pkg/solve"
	"github.com/spkdev/spk/pkg/tagstore"
)

// Kind names one row of the error taxonomy table. It exists
// so a caller (chiefly cmd/spk) can pick an exit code or a retry
// policy without switching on every concrete error type itself.
type Kind string

const (
	KindUnknownObject        Kind = "unknown-object"
	KindUnknownReference     Kind = "unknown-reference"
	KindAmbiguousReference   Kind = "ambiguous-reference"
	KindObjectMissingPayload Kind = "object-missing-payload"
	KindInvalid              Kind = "invalid"
	KindVersionExists        Kind = "version-exists"
	KindPackageNotFound      Kind = "package-not-found"
	KindSolve                Kind = "solve"
	KindValidationDenied     Kind = "validation-denied"
	KindRuntime              Kind = "runtime"
	KindCancelled            Kind = "cancelled"
	KindUnknown              Kind = "unknown"
)

// Classify maps err (walking its Unwrap chain) to the taxonomy row it
// belongs to.
func Classify(err error) Kind {
	var (
		unknownObject   graph.ErrUnknownObject
		unknownRef      tagstore.ErrUnknownReference
		ambiguousRef    digest.ErrAmbiguousReference
		missingPayload  repository.ErrObjectMissingPayload
		invalidName     pkgmodel.ErrInvalidName
		invalidVersion  pkgmodel.ErrInvalidVersion
		invalidDigest   digest.ErrInvalidDigest
		recipeExists    repository.ErrRecipeExists
		unknownRecipe   repository.ErrUnknownRecipe
		unknownBuild    repository.ErrUnknownBuild
		validationDeny  build.ErrValidationDenied
		invalidTransit  runtime.ErrInvalidTransition
		noMatchingRoot  runtime.ErrNoMatchingRoot
		solveInterrupt  solve.Interrupted
	)
	switch {
	case errors.As(err, &unknownObject):
		return KindUnknownObject
	case errors.As(err, &unknownRef):
		return KindUnknownReference
	case errors.As(err, &ambiguousRef):
		return KindAmbiguousReference
	case errors.As(err, &missingPayload):
		return KindObjectMissingPayload
	case errors.As(err, &invalidName), errors.As(err, &invalidVersion), errors.As(err, &invalidDigest):
		return KindInvalid
	case errors.As(err, &recipeExists):
		return KindVersionExists
	case errors.As(err, &unknownRecipe), errors.As(err, &unknownBuild):
		return KindPackageNotFound
	case isSolveFailure(err):
		return KindSolve
	case errors.As(err, &validationDeny):
		return KindValidationDenied
	case errors.As(err, &invalidTransit), errors.As(err, &noMatchingRoot):
		return KindRuntime
	case errors.Is(err, context.Canceled), errors.As(err, &solveInterrupt):
		return KindCancelled
	default:
		return KindUnknown
	}
}

func isSolveFailure(err error) bool {
	var (
		noVersion   solve.NoVersionMatches
		varMismatch solve.VarOptionMismatch
		recursive   solve.RecursiveBuildDenied
		missingVar  solve.MissingRequiredVar
	)
	switch {
	case errors.As(err, &noVersion), errors.As(err, &varMismatch), errors.As(err, &recursive), errors.As(err, &missingVar):
		return true
	default:
		return false
	}
}

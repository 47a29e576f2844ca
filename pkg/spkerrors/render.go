package spkerrors

import (
	"errors"
	"strings"

	"github.com/spkdev/spk/pkg/build"
)

// Render folds err's cause chain into the multi-line form cmd/spk
// prints to stderr: the top-level message, then one indented line per
// wrapped cause, innermost last.
func Render(err error) string {
	var lines []string
	for err != nil {
		lines = append(lines, err.Error())
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if len(lines) == 0 {
		return ""
	}
	b := strings.Builder{}
	b.WriteString(lines[0])
	for _, l := range lines[1:] {
		b.WriteString("\n  caused by: ")
		b.WriteString(l)
	}
	return b.String()
}

// IsValidationDenied reports whether err is (or wraps) a
// build.ErrValidationDenied, for callers deciding whether a failure is
// the build's own script/output versus a solver or repository error.
func IsValidationDenied(err error) bool {
	var denied build.ErrValidationDenied
	return errors.As(err, &denied)
}

package digest

import (
	"strings"
)

// Partial is a leading prefix of a canonical digest string. It need not
// decode to a whole number of bytes: resolution compares it as a string
// prefix and never decodes it.
type Partial struct {
	raw string // original, unpadded prefix as given by the caller
}

// ParsePartial accepts any non-empty prefix of a canonical digest string,
// upper-cased. The prefix need not land on an 8-character (5-bit group)
// boundary; it is stored as given and matched as a string prefix, not
// padded or base32-decoded.
func ParsePartial(s string) (Partial, error) {
	if s == "" {
		return Partial{}, ErrInvalidDigest{Input: s, Cause: errEmptyPartial}
	}
	return Partial{raw: strings.ToUpper(s)}, nil
}

var errEmptyPartial = errStr("empty partial digest")

type errStr string

func (e errStr) Error() string { return string(e) }

// String returns the prefix as given.
func (p Partial) String() string { return p.raw }

// Padded returns p's prefix padded with '=' to the next 8-character
// boundary, suitable for tolerant base32 decoding.
func (p Partial) Padded() string {
	rem := len(p.raw) % 8
	if rem == 0 {
		return p.raw
	}
	return p.raw + strings.Repeat("=", 8-rem)
}

// Matches reports whether d's canonical string begins with p's prefix.
// An empty prefix matches nothing.
func (p Partial) Matches(d Digest) bool {
	return p.raw != "" && strings.HasPrefix(d.String(), p.raw)
}

// ResolveResult is the outcome of resolving a Partial against a set of
// known digests.
type ResolveResult int

const (
	// ResolveUnknown means no digest matched the prefix.
	ResolveUnknown ResolveResult = iota
	// ResolveOne means exactly one digest matched.
	ResolveOne
	// ResolveAmbiguous means more than one digest matched.
	ResolveAmbiguous
)

// ErrAmbiguousReference reports that a partial digest resolved to more
// than one candidate; always
// fatal for the call that raised it, never recovered by proxy fallback.
type ErrAmbiguousReference struct {
	Prefix     string
	Candidates []Digest
}

func (e ErrAmbiguousReference) Error() string {
	return "digest: prefix " + e.Prefix + " matches more than one digest"
}

// ResolveOrError wraps Resolve, turning ResolveAmbiguous into
// ErrAmbiguousReference and ResolveUnknown into ErrInvalidDigest so
// callers (cmd/spk's ref resolution in particular) get a single error
// return instead of switching on ResolveResult themselves.
func ResolveOrError(p Partial, candidates []Digest) (Digest, error) {
	d, res := Resolve(p, candidates)
	switch res {
	case ResolveOne:
		return d, nil
	case ResolveAmbiguous:
		var matches []Digest
		for _, c := range candidates {
			if p.Matches(c) {
				matches = append(matches, c)
			}
		}
		return Digest{}, ErrAmbiguousReference{Prefix: p.raw, Candidates: matches}
	default:
		return Digest{}, ErrInvalidDigest{Input: p.raw, Cause: errUnresolvedPartial}
	}
}

var errUnresolvedPartial = errStr("no digest matches this prefix")

// Resolve scans candidates (e.g. from Repository.FindDigests) and reports
// whether the partial names zero, one, or more than one of them.
func Resolve(p Partial, candidates []Digest) (Digest, ResolveResult) {
	var match Digest
	count := 0
	for _, d := range candidates {
		if p.Matches(d) {
			if count == 0 {
				match = d
			}
			count++
			if count > 1 {
				return Digest{}, ResolveAmbiguous
			}
		}
	}
	switch count {
	case 0:
		return Digest{}, ResolveUnknown
	default:
		return match, ResolveOne
	}
}

package pkgmodel

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Version is an ordered sequence of unsigned integer parts plus
// pre-release and post-release tag sets.
type Version struct {
	Parts []uint64
	Pre   []Tag
	Post   []Tag
}

// Tag is a single named, numbered pre/post-release component, e.g.
// "rc.1".
type Tag struct {
	Name  string
	Value uint64
}

func (t Tag) String() string {
	if t.Value == 0 {
		return t.Name
	}
	return fmt.Sprintf("%s.%d", t.Name, t.Value)
}

// ErrInvalidVersion is returned when a version string fails to parse.
type ErrInvalidVersion struct {
	Input string
}

func (e ErrInvalidVersion) Error() string {
	return fmt.Sprintf("pkgmodel: invalid version %q", e.Input)
}

// ParseVersion parses "1.2.3-rc.1+post.2" style strings: dot-separated
// integer parts, an optional "-"-prefixed pre-release tag list, and an
// optional "+"-prefixed post-release tag list, each comma-separated.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Version{}, ErrInvalidVersion{Input: s}
	}

	rest := s
	var postRaw, preRaw string
	if i := strings.IndexByte(rest, '+'); i >= 0 {
		postRaw = rest[i+1:]
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		preRaw = rest[i+1:]
		rest = rest[:i]
	}

	parts, err := parseParts(rest)
	if err != nil {
		return Version{}, ErrInvalidVersion{Input: s}
	}
	pre, err := parseTags(preRaw)
	if err != nil {
		return Version{}, ErrInvalidVersion{Input: s}
	}
	post, err := parseTags(postRaw)
	if err != nil {
		return Version{}, ErrInvalidVersion{Input: s}
	}

	return Version{Parts: parts, Pre: pre, Post: post}, nil
}

func parseParts(s string) ([]uint64, error) {
	if s == "" {
		return nil, fmt.Errorf("empty version")
	}
	fields := strings.Split(s, ".")
	parts := make([]uint64, len(fields))
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			return nil, err
		}
		parts[i] = n
	}
	return parts, nil
}

func parseTags(s string) ([]Tag, error) {
	if s == "" {
		return nil, nil
	}
	var tags []Tag
	for _, entry := range strings.Split(s, ",") {
		name, valueStr, hasValue := strings.Cut(entry, ".")
		var v uint64
		if hasValue {
			n, err := strconv.ParseUint(valueStr, 10, 64)
			if err != nil {
				return nil, err
			}
			v = n
		}
		tags = append(tags, Tag{Name: name, Value: v})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (v Version) String() string {
	fields := make([]string, len(v.Parts))
	for i, p := range v.Parts {
		fields[i] = strconv.FormatUint(p, 10)
	}
	s := strings.Join(fields, ".")
	if len(v.Pre) > 0 {
		s += "-" + joinTags(v.Pre)
	}
	if len(v.Post) > 0 {
		s += "+" + joinTags(v.Post)
	}
	return s
}

func joinTags(tags []Tag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

// Compare orders a against b
// lexicographically (a shorter prefix compares greater when all
// compared parts are equal and the longer's remaining parts are all
// zero), then pre-release (absence outranks presence), then
// post-release (more outranks fewer).
func (a Version) Compare(b Version) int {
	if c := comparePartsLexical(a.Parts, b.Parts); c != 0 {
		return c
	}
	if c := comparePre(a.Pre, b.Pre); c != 0 {
		return c
	}
	return comparePost(a.Post, b.Post)
}

func comparePartsLexical(a, b []uint64) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv uint64
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	// All compared parts equal (with implicit trailing zeros);
	// shorter sequence compares greater,
	// tie-break.
	if len(a) != len(b) {
		if len(a) < len(b) {
			return 1
		}
		return -1
	}
	return 0
}

// comparePre: empty pre-release list outranks any non-empty one;
// between two non-empty lists, fewer tags is greater.
func comparePre(a, b []Tag) int {
	aEmpty, bEmpty := len(a) == 0, len(b) == 0
	if aEmpty && bEmpty {
		return 0
	}
	if aEmpty {
		return 1
	}
	if bEmpty {
		return -1
	}
	if len(a) != len(b) {
		if len(a) < len(b) {
			return 1
		}
		return -1
	}
	return compareTagSlice(a, b)
}

// comparePost: more post-release tags outranks fewer.
func comparePost(a, b []Tag) int {
	if len(a) != len(b) {
		if len(a) > len(b) {
			return 1
		}
		return -1
	}
	return compareTagSlice(a, b)
}

func compareTagSlice(a, b []Tag) int {
	for i := range a {
		if a[i].Name != b[i].Name {
			if a[i].Name < b[i].Name {
				return -1
			}
			return 1
		}
		if a[i].Value != b[i].Value {
			if a[i].Value < b[i].Value {
				return -1
			}
			return 1
		}
	}
	return 0
}

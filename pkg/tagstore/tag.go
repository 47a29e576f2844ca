// Package tagstore implements the append-only named-pointer store of
//: a tag is a timestamped pointer into the object graph,
// linked to its predecessor, stored as a length-prefixed record stream
// per name.
package tagstore

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spkdev/spk/pkg/digest"
)

// Tag is a single named pointer into the object graph.
type Tag struct {
	Org    string
	Name   string
	Target digest.Digest
	Parent digest.Digest
	User   string
	Time   time.Time
}

var nameRegexp = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

const maxNameLen = 64

// ErrInvalidName is returned when a tag name violates tag
// name rules (non-empty, <=64 chars, alphanumeric plus -._, no leading
// hyphen).
type ErrInvalidName struct {
	Name string
}

func (e ErrInvalidName) Error() string {
	return fmt.Sprintf("tagstore: invalid tag name %q", e.Name)
}

// ValidateName checks a bare tag name component (not an org path).
func ValidateName(name string) error {
	if name == "" || len(name) > maxNameLen || !nameRegexp.MatchString(name) {
		return ErrInvalidName{Name: name}
	}
	return nil
}

// ValidateOrg checks each slash-separated component of an org path.
func ValidateOrg(org string) error {
	if org == "" {
		return nil
	}
	for _, part := range strings.Split(org, "/") {
		if err := ValidateName(part); err != nil {
			return err
		}
	}
	return nil
}

// Spec identifies a tag stream and, optionally, a version index back
// from the latest entry: "org/name[~version]", version 0 == latest.
type Spec struct {
	Org     string
	Name    string
	Version int
}

// streamPath is the Org/Name pair's path inside the tags root,
// independent of the Version selector.
func (s Spec) streamPath() string {
	if s.Org == "" {
		return s.Name + ".tag"
	}
	return s.Org + "/" + s.Name + ".tag"
}

// ParseSpec parses "org/name[~version]".
func ParseSpec(raw string) (Spec, error) {
	name := raw
	version := 0
	if idx := strings.LastIndex(raw, "~"); idx >= 0 {
		name = raw[:idx]
		n, err := parseUint(raw[idx+1:])
		if err != nil {
			return Spec{}, fmt.Errorf("tagstore: invalid version suffix in %q: %w", raw, err)
		}
		version = n
	}

	org := ""
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		org, name = name[:idx], name[idx+1:]
	}

	if err := ValidateOrg(org); err != nil {
		return Spec{}, err
	}
	if err := ValidateName(name); err != nil {
		return Spec{}, err
	}

	return Spec{Org: org, Name: name, Version: version}, nil
}

func parseUint(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty version")
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit %q", r)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func (s Spec) String() string {
	base := s.Name
	if s.Org != "" {
		base = s.Org + "/" + s.Name
	}
	if s.Version == 0 {
		return base
	}
	return fmt.Sprintf("%s~%d", base, s.Version)
}

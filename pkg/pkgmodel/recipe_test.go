package pkgmodel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func globMatch(subject, path string) bool {
	prefix := strings.TrimSuffix(subject, "*")
	if prefix != subject {
		return strings.HasPrefix(path, prefix)
	}
	return subject == path
}

func TestValidationSpecDefaultsToAllowed(t *testing.T) {
	var v ValidationSpec
	assert.Equal(t, Allowed, v.Evaluate("lib/libssl.so", globMatch))
}

func TestValidationSpecMoreSpecificAllowedOverridesLessSpecificDenied(t *testing.T) {
	v := ValidationSpec{Rules: []ValidationRule{
		{Kind: MustNotAlterExistingFiles, Verdict: Denied, Subject: "lib/*", Locality: 1},
		{Kind: MustNotAlterExistingFiles, Verdict: Allowed, Subject: "lib/libssl.so", Locality: 2},
	}}

	assert.Equal(t, Allowed, v.Evaluate("lib/libssl.so", globMatch))
	assert.Equal(t, Denied, v.Evaluate("lib/libcrypto.so", globMatch))
}

func TestValidationSpecTieBreaksTowardAllowed(t *testing.T) {
	v := ValidationSpec{Rules: []ValidationRule{
		{Kind: MustNotAlterExistingFiles, Verdict: Denied, Subject: "lib/*", Locality: 1},
		{Kind: MustNotAlterExistingFiles, Verdict: Allowed, Subject: "lib/*", Locality: 1},
	}}

	assert.Equal(t, Allowed, v.Evaluate("lib/libssl.so", globMatch))
}

func TestValidationSpecNoMatchingRuleIsAllowed(t *testing.T) {
	v := ValidationSpec{Rules: []ValidationRule{
		{Kind: MustNotAlterExistingFiles, Verdict: Denied, Subject: "etc/*", Locality: 1},
	}}

	assert.Equal(t, Allowed, v.Evaluate("lib/libssl.so", globMatch))
}

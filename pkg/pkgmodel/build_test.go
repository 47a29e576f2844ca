package pkgmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildStringForms(t *testing.T) {
	assert.Equal(t, "src", SourceBuild.String())
	assert.Equal(t, "abcd1234", DigestBuild("abcd1234").String())
}

func TestBuildIdentStringIncludesVersionAndBuild(t *testing.T) {
	ident := BuildIdent{
		VersionIdent: VersionIdent{Name: "openssl", Version: mustVersion(t, "1.2.3")},
		Build:        DigestBuild("abcd1234"),
	}
	assert.Equal(t, "openssl/1.2.3/abcd1234", ident.String())
}

func TestLocatedBuildIdentStringIncludesRepository(t *testing.T) {
	located := LocatedBuildIdent{
		Repository: "local",
		BuildIdent: BuildIdent{
			VersionIdent: VersionIdent{Name: "openssl", Version: mustVersion(t, "1.2.3")},
			Build:        SourceBuild,
		},
	}
	assert.Equal(t, "local:openssl/1.2.3/src", located.String())
}

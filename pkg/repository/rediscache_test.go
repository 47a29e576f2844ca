package repository

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spkdev/spk/pkg/pkgmodel"
)

func newTestPool(t *testing.T) *redis.Pool {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return &redis.Pool{
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", mr.Addr())
		},
	}
}

func TestRedisCacheServesListPackagesFromCacheOnSecondCall(t *testing.T) {
	inner := NewMemoryRepository("mem")
	ident := pkgmodel.VersionIdent{Name: "openssl", Version: mustVersion(t, "1.0.0")}
	require.NoError(t, inner.PublishRecipe(pkgmodel.Recipe{Ident: ident}, Overwrite))

	cached := NewRedisCache(inner, newTestPool(t), time.Minute)

	first, err := cached.ListPackages()
	require.NoError(t, err)
	assert.Equal(t, []pkgmodel.PkgName{"openssl"}, first)

	// Publish directly against inner, bypassing invalidation, to prove
	// the second ListPackages call is served from cache rather than
	// re-reading inner.
	other := pkgmodel.VersionIdent{Name: "zlib", Version: mustVersion(t, "1.0.0")}
	require.NoError(t, inner.PublishRecipe(pkgmodel.Recipe{Ident: other}, Overwrite))

	second, err := cached.ListPackages()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRedisCacheInvalidatesOnPublishThroughWrapper(t *testing.T) {
	inner := NewMemoryRepository("mem")
	cached := NewRedisCache(inner, newTestPool(t), time.Minute)

	first, err := cached.ListPackages()
	require.NoError(t, err)
	assert.Empty(t, first)

	ident := pkgmodel.VersionIdent{Name: "openssl", Version: mustVersion(t, "1.0.0")}
	require.NoError(t, cached.PublishRecipe(pkgmodel.Recipe{Ident: ident}, Overwrite))

	second, err := cached.ListPackages()
	require.NoError(t, err)
	assert.Equal(t, []pkgmodel.PkgName{"openssl"}, second)
}

func TestRedisCacheBypassPolicySkipsCache(t *testing.T) {
	inner := NewMemoryRepository("mem")
	cached := NewRedisCache(inner, newTestPool(t), time.Minute)
	cached.SetCachePolicy(BypassCache)

	_, err := cached.ListPackages()
	require.NoError(t, err)

	ident := pkgmodel.VersionIdent{Name: "openssl", Version: mustVersion(t, "1.0.0")}
	require.NoError(t, inner.PublishRecipe(pkgmodel.Recipe{Ident: ident}, Overwrite))

	second, err := cached.ListPackages()
	require.NoError(t, err)
	assert.Equal(t, []pkgmodel.PkgName{"openssl"}, second)
}

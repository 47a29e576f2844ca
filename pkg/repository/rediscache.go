package repository

import (
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
	"gopkg.in/yaml.v2"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/pkgmodel"
)

// RedisCache decorates a Repository with a read-through cache for its
// three listing calls, the same shape as a descriptor cache sitting in
// front of blob lookups, adapted here to package listings. A cache
// miss, a BypassCache policy, or any Redis error all fall through to
// the wrapped Repository unchanged; a successful read-through result
// is written back with TTL.
type RedisCache struct {
	Repository
	pool   *redis.Pool
	ttl    time.Duration
	policy CachePolicy
}

// NewRedisCache wraps repo with a listing cache backed by pool. A zero
// ttl disables expiry (entries live until evicted or invalidated).
func NewRedisCache(repo Repository, pool *redis.Pool, ttl time.Duration) *RedisCache {
	return &RedisCache{Repository: repo, pool: pool, ttl: ttl, policy: CacheOk}
}

func (c *RedisCache) SetCachePolicy(p CachePolicy) {
	c.policy = p
	c.Repository.SetCachePolicy(p)
}

func (c *RedisCache) cacheKey(parts ...string) string {
	key := "spk:list:" + c.Name()
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

func (c *RedisCache) get(key string, v interface{}) bool {
	if c.policy == BypassCache {
		return false
	}
	conn := c.pool.Get()
	defer conn.Close()

	raw, err := redis.Bytes(conn.Do("GET", key))
	if err != nil {
		return false
	}
	return yaml.Unmarshal(raw, v) == nil
}

func (c *RedisCache) set(key string, v interface{}) {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return
	}
	conn := c.pool.Get()
	defer conn.Close()

	if c.ttl > 0 {
		_, _ = conn.Do("SET", key, raw, "EX", int(c.ttl.Seconds()))
	} else {
		_, _ = conn.Do("SET", key, raw)
	}
}

// invalidate drops every listing key for this repository. Publishing
// or removing a recipe/package changes at least one of the three
// listing results, and keys aren't addressable individually from a
// PkgName alone (ListPackages has no argument to key on), so a write
// invalidates the whole namespace rather than risk serving a stale
// ListPackages after a new package is published.
func (c *RedisCache) invalidate() {
	conn := c.pool.Get()
	defer conn.Close()

	keys, err := redis.Strings(conn.Do("KEYS", c.cacheKey()+"*"))
	if err != nil || len(keys) == 0 {
		return
	}
	args := redis.Args{}.AddFlat(keys)
	_, _ = conn.Do("DEL", args...)
}

func (c *RedisCache) ListPackages() ([]pkgmodel.PkgName, error) {
	key := c.cacheKey("packages")
	var cached []pkgmodel.PkgName
	if c.get(key, &cached) {
		return cached, nil
	}
	names, err := c.Repository.ListPackages()
	if err != nil {
		return nil, err
	}
	c.set(key, names)
	return names, nil
}

func (c *RedisCache) ListPackageVersions(name pkgmodel.PkgName) ([]pkgmodel.Version, error) {
	key := c.cacheKey("versions", string(name))
	var cached []pkgmodel.Version
	if c.get(key, &cached) {
		return cached, nil
	}
	versions, err := c.Repository.ListPackageVersions(name)
	if err != nil {
		return nil, err
	}
	c.set(key, versions)
	return versions, nil
}

func (c *RedisCache) ListPackageBuilds(ident pkgmodel.VersionIdent) ([]pkgmodel.Build, error) {
	key := c.cacheKey("builds", fmt.Sprintf("%s@%s", ident.Name, ident.Version))
	var cached []pkgmodel.Build
	if c.get(key, &cached) {
		return cached, nil
	}
	builds, err := c.Repository.ListPackageBuilds(ident)
	if err != nil {
		return nil, err
	}
	c.set(key, builds)
	return builds, nil
}

func (c *RedisCache) PublishRecipe(r pkgmodel.Recipe, policy PublishPolicy) error {
	if err := c.Repository.PublishRecipe(r, policy); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

func (c *RedisCache) RemoveRecipe(ident pkgmodel.VersionIdent) error {
	if err := c.Repository.RemoveRecipe(ident); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

func (c *RedisCache) PublishPackage(p pkgmodel.Package, components map[pkgmodel.ComponentName]digest.Digest) error {
	if err := c.Repository.PublishPackage(p, components); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

func (c *RedisCache) RemovePackage(ident pkgmodel.BuildIdent) error {
	if err := c.Repository.RemovePackage(ident); err != nil {
		return err
	}
	c.invalidate()
	return nil
}

var _ Repository = (*RedisCache)(nil)

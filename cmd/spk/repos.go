package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gomodule/redigo/redis"

	"github.com/spkdev/spk/pkg/repository"
	"github.com/spkdev/spk/pkg/spkconfig"
	"github.com/spkdev/spk/pkg/storagedriver"
	"github.com/spkdev/spk/pkg/storagedriver/filesystem"
	"github.com/spkdev/spk/pkg/storagedriver/s3"
	"github.com/spkdev/spk/pkg/tagstore"
)

// namedRepo pairs a configured repository.Repository with the tag
// store rooted alongside it ( tag streams are addressed
// by name within a repository, but Repository itself only models
// objects/recipes/packages — C4 Reference Model lives beside it).
type namedRepo struct {
	name string
	repo repository.Repository
	tags *tagstore.Store
}

// repoSet is the ordered list of repositories a single invocation of
// spk searches: the current directory's workspace repo first (unless
// --no-local-repo), then every configured repository named by
// --enable-repo, in the order given.
type repoSet struct {
	entries []namedRepo
}

func newRepoSet(cfg *spkconfig.Config, enabled []string, noLocal bool) (*repoSet, error) {
	var rs repoSet

	if !noLocal {
		wd, err := os.Getwd()
		if err == nil {
			ws := repository.NewWorkspaceRepository(wd, globFiles, os.ReadFile)
			rs.entries = append(rs.entries, namedRepo{name: "workspace", repo: ws})
		}
	}

	for _, name := range enabled {
		rc, ok := cfg.Repositories[name]
		if !ok {
			return nil, usagef("spk: --enable-repo %q is not configured", name)
		}
		repo, tags, err := buildRepository(name, rc)
		if err != nil {
			return nil, fmt.Errorf("repository %q: %w", name, err)
		}
		rs.entries = append(rs.entries, namedRepo{name: name, repo: repo, tags: tags})
	}

	return &rs, nil
}

func buildRepository(name string, rc spkconfig.Repository) (repository.Repository, *tagstore.Store, error) {
	var (
		repo repository.Repository
		tags *tagstore.Store
	)

	switch rc.Kind {
	case spkconfig.RepoMemory:
		repo = repository.NewMemoryRepository(name)
		tags = tagstore.New(filepath.Join(os.TempDir(), "spk-tags", name))

	case spkconfig.RepoWorkspace:
		repo = repository.NewWorkspaceRepository(rc.Path, globFiles, os.ReadFile)

	case spkconfig.RepoS3:
		if rc.S3 == nil {
			return nil, nil, fmt.Errorf("repository: kind s3 requires an s3: block")
		}
		driver, err := s3.New(s3.Params{
			Bucket:        rc.S3.Bucket,
			Region:        rc.S3.Region,
			RootDirectory: rc.S3.RootDirectory,
			AccessKey:     rc.S3.AccessKey,
			SecretKey:     rc.S3.SecretKey,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("repository: s3 driver: %w", err)
		}
		repo, tags = fsRepoAndTags(name, rc, driver)

	case spkconfig.RepoLocal, "":
		if rc.Path == "" {
			return nil, nil, fmt.Errorf("repository: kind local requires a path")
		}
		repo, tags = fsRepoAndTags(name, rc, filesystem.New(rc.Path))

	default:
		return nil, nil, fmt.Errorf("repository: unknown kind %q", rc.Kind)
	}

	if rc.Cache.RedisAddr != "" {
		repo = withRedisCache(repo, rc.Cache)
	}
	return repo, tags, nil
}

// withRedisCache wraps repo with a listing cache, built the same way
// a redigo connection pool is dialed and sized elsewhere in the CLI.
func withRedisCache(repo repository.Repository, c spkconfig.Cache) repository.Repository {
	pool := &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 240 * time.Second,
		Dial:        func() (redis.Conn, error) { return redis.Dial("tcp", c.RedisAddr) },
	}
	ttl := time.Duration(c.TTLSecs) * time.Second
	return repository.NewRedisCache(repo, pool, ttl)
}

func fsRepoAndTags(name string, rc spkconfig.Repository, driver storagedriver.StorageDriver) (*repository.FSRepository, *tagstore.Store) {
	repo := repository.NewFSRepository(name, driver)
	tagsRoot := rc.Path
	if tagsRoot == "" {
		tagsRoot = filepath.Join(os.TempDir(), "spk-tags", name)
	}
	return repo, tagstore.New(filepath.Join(tagsRoot, "tags"))
}

// globFiles adapts doublestar's variadic-options signature to the
// plain func(string) ([]string, error) WorkspaceRepository expects.
func globFiles(pattern string) ([]string, error) {
	return doublestar.FilepathGlob(pattern)
}

// all returns every repository in search order.
func (rs *repoSet) all() []repository.Repository {
	out := make([]repository.Repository, 0, len(rs.entries))
	for _, e := range rs.entries {
		out = append(out, e.repo)
	}
	return out
}

// find returns the named repository, or the sole configured one if
// name is empty and exactly one is enabled.
func (rs *repoSet) find(name string) (namedRepo, error) {
	if name == "" {
		if len(rs.entries) == 1 {
			return rs.entries[0], nil
		}
		return namedRepo{}, usagef("spk: ambiguous repository, specify --enable-repo")
	}
	for _, e := range rs.entries {
		if e.name == name {
			return e, nil
		}
	}
	return namedRepo{}, usagef("spk: repository %q is not enabled", name)
}

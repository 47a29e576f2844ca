package spkconfig

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v2"
)

// Version is the config schema's major.minor marker,
// carried for forward compatibility even though this schema has had
// only one version so far.
type Version string

// Config is the root of a process's YAML configuration document.
type Config struct {
	Version Version `yaml:"version"`

	Log Log `yaml:"log,omitempty"`

	// Repositories names every repository this process may address by
	// name, e.g. from cmd/spk's --repo flag or a recipe's embedded
	// requirements.
	Repositories map[string]Repository `yaml:"repositories,omitempty"`

	Sync Sync `yaml:"sync,omitempty"`

	Runtime Runtime `yaml:"runtime,omitempty"`

	// Build carries process-wide defaults for the build pipeline; a
	// recipe's own build: section always takes precedence over these.
	Build Build `yaml:"build,omitempty"`
}

// Log configures the process's logrus level and formatter, trimmed to
// the two fields cmd/spk actually exposes: filter composition beyond
// level and formatter comes from SPFS_LOG/RUST_LOG-style environment
// overrides, not from this struct alone, but a YAML default is still
// useful for unattended runs.
type Log struct {
	Level     string `yaml:"level,omitempty"`
	Formatter string `yaml:"formatter,omitempty"`
}

// RepositoryKind names which Repository variant (pkg/repository) a
// Repository config entry constructs.
type RepositoryKind string

const (
	RepoLocal     RepositoryKind = "local"
	RepoMemory    RepositoryKind = "memory"
	RepoWorkspace RepositoryKind = "workspace"
	RepoS3        RepositoryKind = "s3"
)

// Repository configures one named repository.
type Repository struct {
	Kind RepositoryKind `yaml:"kind"`

	// Path is the local directory for RepoLocal/RepoWorkspace.
	Path string `yaml:"path,omitempty"`
	// Glob is the template-discovery pattern for RepoWorkspace
	//; defaults to "*/*.spk.yaml" when empty.
	Glob string `yaml:"glob,omitempty"`

	S3 *S3 `yaml:"s3,omitempty"`

	Cache Cache `yaml:"cache,omitempty"`
}

// S3 configures an S3-backed payload/object store (mirrors
// pkg/storagedriver/s3.Params).
type S3 struct {
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region,omitempty"`
	RootDirectory string `yaml:"rootdirectory,omitempty"`
	AccessKey     string `yaml:"accesskey,omitempty"`
	SecretKey     string `yaml:"secretkey,omitempty"`
}

// Cache configures the redis-backed listing cache a repository may be
// wrapped in (pkg/repository.RedisCache).
type Cache struct {
	RedisAddr string `yaml:"redis_addr,omitempty"`
	TTLSecs   int    `yaml:"ttl_secs,omitempty"`
}

// Sync carries the sync engine's concurrency caps (
// "SPFS_SYNC_MAX_CONCURRENT_{MANIFESTS,PAYLOADS}").
type Sync struct {
	MaxConcurrentManifests int `yaml:"max_concurrent_manifests,omitempty"`
	MaxConcurrentPayloads  int `yaml:"max_concurrent_payloads,omitempty"`
}

// Runtime carries the overlay runtime's tmpfs sizing (
// "SPFS_FILESYSTEM_TMPFS_SIZE").
type Runtime struct {
	TmpfsSize string `yaml:"tmpfs_size,omitempty"`
}

// Build carries process-wide build defaults.
type Build struct {
	NoHost bool `yaml:"no_host,omitempty"`
}

// Parse reads a YAML document from r into a Config, then applies any
// SPFS_-prefixed environment variable overrides.
func Parse(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("spkconfig: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("spkconfig: %w", err)
	}
	if err := newEnvOverlay("SPFS").apply(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseFile opens path and parses it as a Config.
func ParseFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("spkconfig: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

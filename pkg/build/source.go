package build

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/payload"
	"github.com/spkdev/spk/pkg/pkgmodel"
)

// SourceBuilder collects a recipe's `sources:` entries into a working
// directory and commits the result as a single Source layer (
// "Source build").
type SourceBuilder struct {
	Objects  graph.Store
	Payloads *payload.Store
}

// Collect materializes every entry of sources into work, each
// optionally under its own Subdir, in declaration order.
func (b *SourceBuilder) Collect(ctx context.Context, sources []pkgmodel.SourceEntry, work string) error {
	for i, s := range sources {
		dest := work
		if s.Subdir != "" {
			dest = filepath.Join(work, s.Subdir)
		}
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return err
		}

		var err error
		switch s.Kind {
		case pkgmodel.SourceLocal:
			err = copyTree(s.Local, dest)
		case pkgmodel.SourceGit:
			err = cloneGit(s.Git, dest)
		case pkgmodel.SourceTar:
			err = extractTar(s.Tar, dest)
		case pkgmodel.SourceScript:
			err = RunScript(ctx, "source", dest, s.Script, nil)
		default:
			err = ErrUnknownSourceKind{Kind: s.Kind}
		}
		if err != nil {
			return fmt.Errorf("build: source entry %d: %w", i, err)
		}
	}
	return nil
}

// Commit builds the Source layer from work, writes it to b.Objects and
// returns the layer's digest; it publishes no name for it.
func (b *SourceBuilder) Commit(work string) (digest.Digest, error) {
	manifestDigest, manifest, err := Commit(work, b.Objects, b.Payloads)
	if err != nil {
		return digest.Digest{}, err
	}
	layer := graph.Layer{Manifest: manifestDigest}
	d, err := b.Objects.WriteObject(layer)
	if err != nil {
		return digest.Digest{}, err
	}
	_ = manifest
	return d, nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	})
}

func cloneGit(g pkgmodel.GitSource, dest string) error {
	repo, err := git.PlainClone(dest, false, &git.CloneOptions{URL: g.URL})
	if err != nil {
		return err
	}
	if g.Ref == "" {
		return nil
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(g.Ref))
	if err != nil {
		return err
	}
	return wt.Checkout(&git.CheckoutOptions{Hash: *hash})
}

func extractTar(src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(src, ".gz") || strings.HasSuffix(src, ".tgz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target := filepath.Join(dest, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		default:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode).Perm())
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		}
	}
}

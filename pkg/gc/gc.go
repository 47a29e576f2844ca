// Package gc implements the Garbage Collector: it
// classifies a repository's digests into attached (reachable from a
// published package build) and unattached, then purges the unattached
// set's objects, payloads, and renders.
package gc

import (
	"fmt"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/pkgmodel"
	"github.com/spkdev/spk/pkg/repository"
	"github.com/spkdev/spk/pkg/spkmetrics"
)

// RenderRemover purges a manifest's materialized render directory
// (pkg/render's on-disk cache), letting Purge count the render task
// without this package depending on the renderer's mount/link
// machinery. Satisfied by *render.Store.
type RenderRemover interface {
	// RemoveRender deletes the render for manifest digest d if
	// present, reporting whether anything was actually removed.
	RemoveRender(d digest.Digest) (bool, error)
}

// Options configures a Collector.
type Options struct {
	Progress *Reporter
	// Renders purges a digest's render directory alongside its object
	// and payload entries. Nil skips the render task entirely (a
	// repository with no local render cache, e.g. a remote mirror).
	Renders RenderRemover
}

func (o Options) withDefaults() Options {
	if o.Progress == nil {
		o.Progress = NewDiscardReporter()
	}
	return o
}

// Report is the result of a Compute call: classification
// of a repository's digest space, before anything is removed.
type Report struct {
	AttachedCount int
	Unattached    []digest.Digest
	// OrphanPayloads are payload digests with no corresponding Blob
	// object anywhere in the object graph — necessarily a subset of
	// Unattached, called out separately since they can never become
	// attached by publishing a new build that merely references an
	// existing Blob.
	OrphanPayloads []digest.Digest
}

// Result is the outcome of a Purge call: the removal count of each of
// the three independently-counted tasks, plus every
// non-ErrUnknownObject/ErrUnknownPayload error encountered.
type Result struct {
	ObjectsRemoved  int
	PayloadsRemoved int
	RendersRemoved  int
	Errors          []error
}

// FirstError returns a summary error when Errors is non-empty, or nil.
func (r *Result) FirstError() error {
	if len(r.Errors) == 0 {
		return nil
	}
	if len(r.Errors) == 1 {
		return fmt.Errorf("gc: purge failed: %w", r.Errors[0])
	}
	return fmt.Errorf("gc: purge failed: %w (+%d more errors)", r.Errors[0], len(r.Errors)-1)
}

// Collector computes and purges one repository's unattached digests.
type Collector struct {
	repo repository.Repository
	opts Options
}

// New returns a Collector over repo.
func New(repo repository.Repository, opts Options) *Collector {
	return &Collector{repo: repo, opts: opts.withDefaults()}
}

// roots enumerates every component digest across every published
// package build: the repository's stand-in for "every tag's target"
//, since recipes and packages here are plain YAML
// documents rather than Tag Store streams (see DESIGN.md's pkg/repository
// entry) — a component's layer digest is the only per-build root.
func (c *Collector) roots() ([]digest.Digest, error) {
	names, err := c.repo.ListPackages()
	if err != nil {
		return nil, err
	}
	var roots []digest.Digest
	for _, name := range names {
		versions, err := c.repo.ListPackageVersions(name)
		if err != nil {
			return nil, err
		}
		for _, version := range versions {
			vi := pkgmodel.VersionIdent{Name: name, Version: version}
			builds, err := c.repo.ListPackageBuilds(vi)
			if err != nil {
				return nil, err
			}
			for _, build := range builds {
				bi := pkgmodel.BuildIdent{VersionIdent: vi, Build: build}
				components, err := c.repo.ReadComponents(bi)
				if err != nil {
					return nil, err
				}
				for _, d := range components {
					roots = append(roots, d)
				}
			}
		}
	}
	return roots, nil
}

// reachable walks every object transitively reachable from roots,
// recording every digest touched even when it does not itself resolve
// to a stored Object — a Tree-kind Blob entry addresses its payload
// digest directly, and that digest is "attached" whether or not a
// Blob wrapper object was ever separately published for it (
// "digest(Blob) = payload").
func (c *Collector) reachable(roots []digest.Digest) (map[digest.Digest]bool, error) {
	store := c.repo.Objects()
	seen := make(map[digest.Digest]bool)
	var walk func(d digest.Digest) error
	walk = func(d digest.Digest) error {
		if seen[d] {
			return nil
		}
		seen[d] = true
		obj, err := store.ReadObject(d)
		if err != nil {
			if _, ok := err.(graph.ErrUnknownObject); ok {
				return nil
			}
			return err
		}
		for _, child := range obj.Children() {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	for _, root := range roots {
		if err := walk(root); err != nil {
			return nil, err
		}
	}
	return seen, nil
}

// blobPayloads returns the set of payload digests with a published
// Blob object anywhere in the object graph, attached or not, used to
// find orphan payloads.
func (c *Collector) blobPayloads() (map[digest.Digest]bool, error) {
	blobs := make(map[digest.Digest]bool)
	err := c.repo.Objects().IterObjects(func(d digest.Digest) bool {
		obj, rerr := c.repo.Objects().ReadObject(d)
		if rerr == nil {
			if b, ok := obj.(graph.Blob); ok {
				blobs[b.Payload] = true
			}
		}
		return true
	})
	return blobs, err
}

// Compute classifies the repository's digests without removing
// anything.
func (c *Collector) Compute() (*Report, error) {
	roots, err := c.roots()
	if err != nil {
		return nil, err
	}
	attached, err := c.reachable(roots)
	if err != nil {
		return nil, err
	}

	allDigests := make(map[digest.Digest]bool)
	if err := c.repo.Objects().IterObjects(func(d digest.Digest) bool {
		allDigests[d] = true
		return true
	}); err != nil {
		return nil, err
	}
	if err := c.repo.Payloads().IterPayloads(func(d digest.Digest) bool {
		allDigests[d] = true
		return true
	}); err != nil {
		return nil, err
	}

	blobs, err := c.blobPayloads()
	if err != nil {
		return nil, err
	}

	var unattached, orphanPayloads []digest.Digest
	for d := range allDigests {
		if attached[d] {
			continue
		}
		unattached = append(unattached, d)
		if !blobs[d] {
			has, herr := c.repo.Payloads().Has(d)
			if herr == nil && has {
				orphanPayloads = append(orphanPayloads, d)
			}
		}
	}

	return &Report{
		AttachedCount:  len(attached),
		Unattached:     unattached,
		OrphanPayloads: orphanPayloads,
	}, nil
}

// Purge computes the unattached set and removes every task (object,
// payload, render) for each one, counting each task independently.
// ErrUnknownObject/ErrUnknownPayload during removal is swallowed
// (another collector run or concurrent publish may have already
// claimed the digest); any other error is recorded and purging
// continues with the remaining digests so one failure does not abort
// the whole run.
func (c *Collector) Purge() (*Result, error) {
	report, err := c.Compute()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, d := range report.Unattached {
		// Only count the object task when d actually names an object:
		// a payload-only digest (no Blob was ever published for it)
		// has nothing for RemoveObject to do, and RemoveObject itself
		// treats an absent digest as a no-op rather than an error.
		if _, err := c.repo.Objects().ReadObject(d); err == nil {
			if err := c.repo.Objects().RemoveObject(d); err != nil {
				if _, ok := err.(graph.ErrUnknownObject); !ok {
					res.Errors = append(res.Errors, err)
					spkmetrics.PurgeErrors.Inc(1)
				}
			} else {
				res.ObjectsRemoved++
				c.opts.Progress.IncrementObjects(1)
				spkmetrics.ObjectsRemoved.Inc(1)
			}
		} else if _, ok := err.(graph.ErrUnknownObject); !ok {
			res.Errors = append(res.Errors, err)
			spkmetrics.PurgeErrors.Inc(1)
		}

		has, herr := c.repo.Payloads().Has(d)
		if herr != nil {
			res.Errors = append(res.Errors, herr)
			spkmetrics.PurgeErrors.Inc(1)
		} else if has {
			if err := c.repo.Payloads().Remove(d); err != nil {
				res.Errors = append(res.Errors, err)
				spkmetrics.PurgeErrors.Inc(1)
			} else {
				res.PayloadsRemoved++
				c.opts.Progress.IncrementPayloads(1)
				spkmetrics.PayloadsRemoved.Inc(1)
			}
		}

		if c.opts.Renders != nil {
			removed, rerr := c.opts.Renders.RemoveRender(d)
			if rerr != nil {
				res.Errors = append(res.Errors, rerr)
				spkmetrics.PurgeErrors.Inc(1)
			} else if removed {
				res.RendersRemoved++
				c.opts.Progress.IncrementRenders(1)
				spkmetrics.RendersRemoved.Inc(1)
			}
		}
	}
	c.opts.Progress.flush()

	return res, nil
}

// Package spksync implements the Sync Engine: copying
// reachable objects and payloads from one Repository to another with
// bounded per-class concurrency, idempotent re-runs, and debounced
// progress reporting.
package spksync

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/repository"
	"github.com/spkdev/spk/pkg/spkmetrics"
)

// Policy controls how aggressively the engine re-copies content that
// might already be present at the destination.
type Policy int

const (
	// MissingOnly copies only what the destination lacks. Default.
	MissingOnly Policy = iota
	// LatestTags behaves like MissingOnly for object/payload content
	// (content addressing makes "already has this digest" the only
	// question that matters) but signals callers to re-resolve any
	// named roots against the source before walking, picking up a
	// root whose target moved since the last sync.
	LatestTags
	// ResyncEverything forces every payload to be re-streamed from
	// source even when the destination already has it, for repairing
	// destinations suspected of silent corruption.
	ResyncEverything
)

// Root names one starting point for a sync's reachable-object walk: a
// human-readable label (a package build or component name, for
// progress/error reporting) paired with the digest to walk from.
type Root struct {
	Label  string
	Digest digest.Digest
}

// Options configures one Sync call. Zero values select sane defaults
// (4 concurrent manifest-class tasks, 8 concurrent payload-class
// tasks, a discarding progress reporter).
type Options struct {
	MaxConcurrentManifests int
	MaxConcurrentPayloads  int
	Progress               *Reporter
	// Remote, if set, is consulted for a payload the source repository
	// cannot produce before the sync gives up on that blob.
	Remote PayloadFetcher
}

func (o Options) withDefaults() Options {
	if o.MaxConcurrentManifests <= 0 {
		o.MaxConcurrentManifests = 4
	}
	if o.MaxConcurrentPayloads <= 0 {
		o.MaxConcurrentPayloads = 8
	}
	if o.Progress == nil {
		o.Progress = NewDiscardReporter()
	}
	return o
}

// RootResult carries the one error that failed a given root, if any.
type RootResult struct {
	Root Root
	Err  error
}

// Result aggregates the outcome of one Sync call (
// "Failure semantics").
type Result struct {
	FailedRoots []RootResult
	// ExtraErrorCount counts failed roots beyond the first; each failed
	// root carries the one error that stopped it.
	ExtraErrorCount int
}

// FirstError returns the first root failure as a plain error, or nil
// if every root synced cleanly.
func (res *Result) FirstError() error {
	if len(res.FailedRoots) == 0 {
		return nil
	}
	first := res.FailedRoots[0]
	if res.ExtraErrorCount > 0 {
		return fmt.Errorf("spksync: root %s failed: %w (+%d more errors)", first.Root.Label, first.Err, res.ExtraErrorCount)
	}
	return fmt.Errorf("spksync: root %s failed: %w", first.Root.Label, first.Err)
}

// ErrPayloadDigestMismatch is a permanent (non-retriable) failure: the
// bytes streamed from source hashed to something other than the digest
// the source's own Blob object claimed.
type ErrPayloadDigestMismatch struct {
	Want digest.Digest
	Got  digest.Digest
}

func (e ErrPayloadDigestMismatch) Error() string {
	return fmt.Sprintf("spksync: payload hashed to %s, expected %s", e.Got, e.Want)
}

// Engine runs Sync calls against a fixed pair of repositories.
type Engine struct {
	source repository.Repository
	dest   repository.Repository
	policy Policy
	opts   Options

	manifestSem *semaphore.Weighted
	payloadSem  *semaphore.Weighted

	mu      sync.Mutex
	visited map[digest.Digest]chan struct{}
	errs    map[digest.Digest]error
}

// NewEngine returns an Engine that will copy from source to dest under
// policy, using opts to bound concurrency and report progress.
func NewEngine(source, dest repository.Repository, policy Policy, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		source:      source,
		dest:        dest,
		policy:      policy,
		opts:        opts,
		manifestSem: semaphore.NewWeighted(int64(opts.MaxConcurrentManifests)),
		payloadSem:  semaphore.NewWeighted(int64(opts.MaxConcurrentPayloads)),
		visited:     make(map[digest.Digest]chan struct{}),
		errs:        make(map[digest.Digest]error),
	}
}

// Sync walks every root's reachable object set and copies whatever
// dest is missing (or, under ResyncEverything, everything) from
// source. It returns once every root has either completed or failed;
// one root's failure does not stop the others from being attempted.
func (e *Engine) Sync(ctx context.Context, roots []Root) *Result {
	res := &Result{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, root := range roots {
		root := root
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.syncObject(ctx, root.Digest); err != nil {
				spkmetrics.RootFailures.Inc(1)
				mu.Lock()
				res.FailedRoots = append(res.FailedRoots, RootResult{Root: root, Err: err})
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	e.opts.Progress.flush()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(res.FailedRoots); i++ {
		res.ExtraErrorCount++
	}
	return res
}

// syncObject syncs the single object named d and, recursively, every
// object it depends on, memoizing per digest so a shared dependency
// (e.g. a base-platform layer referenced by many builds) is only
// copied once even when reached from multiple roots concurrently.
func (e *Engine) syncObject(ctx context.Context, d digest.Digest) error {
	e.mu.Lock()
	if done, ok := e.visited[d]; ok {
		e.mu.Unlock()
		<-done
		e.mu.Lock()
		err := e.errs[d]
		e.mu.Unlock()
		return err
	}
	done := make(chan struct{})
	e.visited[d] = done
	e.mu.Unlock()

	err := e.doSyncObject(ctx, d)

	e.mu.Lock()
	e.errs[d] = err
	e.mu.Unlock()
	close(done)
	return err
}

func (e *Engine) doSyncObject(ctx context.Context, d digest.Digest) error {
	obj, err := e.source.Objects().ReadObject(d)
	if err != nil {
		return err
	}

	switch o := obj.(type) {
	case graph.Blob:
		return e.syncBlob(ctx, o)
	case graph.Platform:
		// Not itself wrapped in manifestSem: a Platform is a thin
		// coordination node over its stack of Layers, each of which
		// acquires the semaphore when it reaches its own Manifest.
		// Holding a permit here while waiting on those would
		// self-deadlock once concurrent Platforms exhaust the
		// semaphore before any of their Layers can acquire it.
		if err := e.syncChildren(ctx, o.Stack); err != nil {
			return err
		}
		return e.writeObject(o, "platform")
	case graph.Layer:
		if err := e.syncObject(ctx, o.Manifest); err != nil {
			return err
		}
		return e.writeObject(o, "layer")
	case graph.Manifest:
		if err := e.withManifestSem(ctx, func() error {
			return e.syncManifestBlobs(ctx, o)
		}); err != nil {
			return err
		}
		return e.writeObject(o, "manifest")
	case graph.Mask:
		return e.writeObject(o, "mask")
	default:
		return fmt.Errorf("spksync: unrecognized object kind for %s", d)
	}
}

func (e *Engine) withManifestSem(ctx context.Context, fn func() error) error {
	if err := e.manifestSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.manifestSem.Release(1)
	return fn()
}

func (e *Engine) syncChildren(ctx context.Context, digests []digest.Digest) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(digests))
	for _, d := range digests {
		d := d
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- e.syncObject(ctx, d)
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// syncManifestBlobs copies every Blob-kind tree entry's payload+object
// ahead of the manifest itself: for each Blob-kind entry in any of its
// trees, schedule a payload+blob sync, then write the manifest.
func (e *Engine) syncManifestBlobs(ctx context.Context, m graph.Manifest) error {
	var blobDigests []digest.Digest
	for _, tree := range m.Trees {
		for _, entry := range tree.Entries {
			if entry.Kind == graph.EntryBlob {
				blobDigests = append(blobDigests, entry.Object)
			}
		}
	}
	var wg sync.WaitGroup
	errCh := make(chan error, len(blobDigests))
	for _, d := range blobDigests {
		d := d
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- e.syncObject(ctx, d)
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) writeObject(o graph.Object, kind string) error {
	if _, err := e.dest.Objects().WriteObject(o); err != nil {
		return err
	}
	e.opts.Progress.IncrementObjects(1)
	spkmetrics.ObjectsSynced.WithValues(kind).Inc(1)
	return nil
}

// syncBlob implements Blob step: skip when dest already
// has the payload under policy; otherwise stream it through a hasher,
// verify the digest, and write both payload and Blob object.
func (e *Engine) syncBlob(ctx context.Context, b graph.Blob) error {
	if err := e.payloadSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.payloadSem.Release(1)

	if e.policy != ResyncEverything {
		has, err := e.dest.Payloads().Has(b.Payload)
		if err != nil {
			return err
		}
		if has {
			if _, err := e.dest.Objects().WriteObject(b); err != nil {
				return err
			}
			spkmetrics.ObjectsSynced.WithValues("blob").Inc(1)
			return nil
		}
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	var bytesWritten int64
	err := backoff.Retry(func() error {
		n, err := e.copyPayload(b.Payload)
		if err != nil {
			if _, permanent := err.(ErrPayloadDigestMismatch); permanent {
				return backoff.Permanent(err)
			}
			return err
		}
		bytesWritten = n
		return nil
	}, bo)
	if err != nil {
		return err
	}

	if _, err := e.dest.Objects().WriteObject(b); err != nil {
		return err
	}
	e.opts.Progress.IncrementPayloads(1, bytesWritten)
	spkmetrics.ObjectsSynced.WithValues("blob").Inc(1)
	spkmetrics.PayloadsSynced.Inc(1)
	spkmetrics.BytesSynced.Inc(float64(bytesWritten))
	return nil
}

// copyPayload streams d's bytes from source (falling back to opts.Remote
// when source has no payload store entry for it) into dest, verifying
// the stream hashes to d before committing.
func (e *Engine) copyPayload(d digest.Digest) (int64, error) {
	r, err := e.source.Payloads().Open(d)
	if err != nil && e.opts.Remote != nil {
		r, err = e.opts.Remote.OpenPayload(d)
	}
	if err != nil {
		return 0, err
	}
	defer r.Close()

	counter := &countingReader{r: r}
	got, err := e.dest.Payloads().Write(counter)
	if err != nil {
		return 0, err
	}
	if got != d {
		return 0, ErrPayloadDigestMismatch{Want: d, Got: got}
	}
	return counter.total, nil
}

// countingReader tallies bytes read so syncBlob can report transfer
// size to the progress Reporter without a second pass over the data.
type countingReader struct {
	r     io.Reader
	total int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.total += int64(n)
	return n, err
}

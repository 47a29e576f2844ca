package repository

import (
	"io"

	"github.com/spkdev/spk/pkg/digest"
	"github.com/spkdev/spk/pkg/graph"
	"github.com/spkdev/spk/pkg/payload"
)

// PayloadFallbackRepository reads through primary only; when a read
// surfaces a missing payload, it pulls that single payload from each
// secondary in turn and retries once, self-healing local corruption
// without a full sync.
type PayloadFallbackRepository struct {
	*embeddedPrimary
	secondary []Repository
}

// embeddedPrimary forwards every Repository method to primary;
// PayloadFallbackRepository overrides only the payload-bearing reads.
type embeddedPrimary struct {
	Repository
}

// NewPayloadFallbackRepository wraps primary, healing missing payloads
// from secondary in order.
func NewPayloadFallbackRepository(primary Repository, secondary ...Repository) *PayloadFallbackRepository {
	return &PayloadFallbackRepository{embeddedPrimary: &embeddedPrimary{Repository: primary}, secondary: secondary}
}

// heal copies d from the first secondary that has it into primary's
// payload store.
func (p *PayloadFallbackRepository) heal(d digest.Digest) error {
	var lastErr error = payload.ErrUnknownPayload{Digest: d}
	for _, s := range p.secondary {
		r, err := s.Payloads().Open(d)
		if err != nil {
			lastErr = err
			continue
		}
		werr := p.Payloads().WriteKnownDigest(r, d)
		r.Close()
		if werr != nil {
			lastErr = werr
			continue
		}
		return nil
	}
	return lastErr
}

// OpenPayload reads d from primary, healing from secondaries on a miss
// before giving up. This is the payload-fallback repository's primary
// entry point; ReadPackage/ReadComponents alone cannot trigger a
// payload miss since they never touch the payload store directly — the
// miss surfaces when a caller (the Renderer, typically) later opens a
// Blob's payload and gets ErrUnknownPayload.
func (p *PayloadFallbackRepository) OpenPayload(d digest.Digest) (io.ReadCloser, error) {
	r, err := p.Payloads().Open(d)
	if err == nil {
		return r, nil
	}
	if _, ok := err.(payload.ErrUnknownPayload); !ok {
		return nil, err
	}
	if herr := p.heal(d); herr != nil {
		return nil, err
	}
	return p.Payloads().Open(d)
}

// ReadObject reads d from primary's object graph, healing the
// referenced payload when d is a Blob whose payload went missing.
func (p *PayloadFallbackRepository) ReadObject(d digest.Digest) (graph.Object, error) {
	obj, err := p.Objects().ReadObject(d)
	if err != nil {
		return nil, err
	}
	if blob, ok := obj.(graph.Blob); ok {
		has, err := p.Payloads().Has(blob.Payload)
		if err != nil {
			return nil, err
		}
		if !has {
			if herr := p.heal(blob.Payload); herr != nil {
				return nil, ErrObjectMissingPayload{Payload: blob.Payload}
			}
		}
	}
	return obj, nil
}

var _ Repository = (*PayloadFallbackRepository)(nil)

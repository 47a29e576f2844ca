package spksync

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/spkdev/spk/pkg/digest"
)

// PayloadFetcher is the minimal surface the Sync Engine needs to pull a
// payload it could not find through the primary source repository. It
// lets a sync run fall back to a plain HTTP payload endpoint (a CDN or
// a repository mirror that only serves raw payload bytes) without that
// endpoint needing to implement the full Repository interface.
type PayloadFetcher interface {
	OpenPayload(d digest.Digest) (io.ReadCloser, error)
}

// HTTPPayloadFetcher fetches payloads by digest from baseURL + "/payloads/<digest>",
// retrying transient failures (connection resets, 5xx) with the
// teacher's resumable-HTTP client rather than failing the whole sync
// run on one flaky response.
type HTTPPayloadFetcher struct {
	baseURL string
	client  *retryablehttp.Client
}

// NewHTTPPayloadFetcher wraps baseURL (no trailing slash) as a
// PayloadFetcher, retrying each request up to maxRetries times with the
// client's default exponential backoff.
func NewHTTPPayloadFetcher(baseURL string, maxRetries int) *HTTPPayloadFetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = maxRetries
	client.Logger = nil
	return &HTTPPayloadFetcher{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

func (f *HTTPPayloadFetcher) OpenPayload(d digest.Digest) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/payloads/%s", f.baseURL, d.String())
	req, err := retryablehttp.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("spksync: remote has no payload %s", d)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("spksync: remote returned %s for payload %s", resp.Status, d)
	}
	return resp.Body, nil
}

var _ PayloadFetcher = (*HTTPPayloadFetcher)(nil)
